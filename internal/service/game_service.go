package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbeisheim/greedychess-backend/internal/model"
	"github.com/gofiber/fiber/v2/log"
)

type GameService struct {
	gameManager *GameManager
	engineDelay time.Duration
}

func NewGameService(gameManager *GameManager, engineDelay time.Duration) *GameService {
	return &GameService{
		gameManager: gameManager,
		engineDelay: engineDelay,
	}
}

func (gs *GameService) CreateGame(opts CreateGameOptions) (string, error) {
	gameID, err := gs.gameManager.CreateGame(opts)
	if err != nil {
		return "", fmt.Errorf("failed to create game: %w", err)
	}
	log.Infof("created %s game %s", opts.Mode, gameID)
	return gameID, nil
}

func (gs *GameService) JoinGame(gameID string, playerID string) (model.Color, error) {
	return gs.gameManager.AddPlayerToGame(gameID, playerID)
}

func (gs *GameService) JoinMatchmaking(playerID string) error {
	return gs.gameManager.JoinMatchmaking(playerID)
}

func (gs *GameService) GetGameState(gameID string) (model.GameState, error) {
	game, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return model.GameState{}, err
	}
	return game.GetState(), nil
}

func (gs *GameService) LegalMoves(gameID string, from model.Square) ([]model.Destination, error) {
	game, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	return game.LegalMoves(from), nil
}

func (gs *GameService) HandleMove(gameID string, playerID string, move model.Move) error {
	game, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return err
	}
	if err := game.MakeMove(playerID, move); err != nil {
		return err
	}
	log.Infof("game %s: player %s moved %v -> %v", gameID, playerID, move.From, move.To)
	return nil
}

// PlayEngineMove runs the selector for the automated side and applies its move.
func (gs *GameService) PlayEngineMove(gameID string) (model.Move, error) {
	game, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return model.Move{}, err
	}
	m, err := game.PlayEngineMove()
	if err != nil {
		return model.Move{}, err
	}
	log.Infof("game %s: engine moved %v -> %v", gameID, m.From, m.To)
	return m, nil
}

// RequestEngineMove is PlayEngineMove on behalf of playerID, who must hold a
// human seat in the game.
func (gs *GameService) RequestEngineMove(gameID string, playerID string) (model.Move, error) {
	game, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return model.Move{}, err
	}
	if playerID == model.EnginePlayerID || !game.IsPlayerInGame(playerID) {
		return model.Move{}, model.ErrNotInGame
	}
	return gs.PlayEngineMove(gameID)
}

// ScheduleEngineReply plays the engine's move after the configured delay if the
// engine is to move. Errors are only logged since no request is waiting on them.
func (gs *GameService) ScheduleEngineReply(gameID string) {
	game, err := gs.gameManager.GetGame(gameID)
	if err != nil || !game.IsEngineTurn() {
		return
	}
	time.AfterFunc(gs.engineDelay, func() {
		if _, err := gs.PlayEngineMove(gameID); err != nil {
			if errors.Is(err, model.ErrNoLegalMoves) || errors.Is(err, model.ErrNotEngineTurn) {
				log.Infof("game %s: engine did not move: %v", gameID, err)
				return
			}
			log.Errorf("game %s: engine reply: %v", gameID, err)
		}
	})
}

// RegisterConnection attaches conn to the game; false means the player already has
// a live connection and conn was closed.
func (gs *GameService) RegisterConnection(gameID string, playerID string, conn model.Conn) (bool, error) {
	game, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return false, err
	}
	return game.RegisterConnection(playerID, conn), nil
}

func (gs *GameService) UnregisterConnection(gameID string, playerID string, conn model.Conn) {
	game, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return
	}
	game.UnregisterConnection(playerID, conn)
}

func (gs *GameService) RegisterMatchmakingChannel(playerID string, ch chan string) {
	gs.gameManager.RegisterMatchmakingChannel(playerID, ch)
}

func (gs *GameService) UnregisterMatchmakingChannel(playerID string, ch chan string) {
	gs.gameManager.UnregisterMatchmakingChannel(playerID, ch)
}
