package service

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/benbeisheim/greedychess-backend/internal/model"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

type GameManager struct {
	games            map[string]*model.Game
	queue            *model.Queue
	matchingChannels map[string]chan string
	selector         model.MoveSelector
	engineColor      model.Color
	mu               sync.RWMutex

	done     chan struct{}
	stopOnce sync.Once
}

// NewGameManager starts the matchmaking loop; call Stop to end it.
func NewGameManager(selector model.MoveSelector, engineColor model.Color, matchmakingInterval time.Duration) *GameManager {
	gm := &GameManager{
		games:            make(map[string]*model.Game),
		queue:            model.NewQueue(),
		matchingChannels: make(map[string]chan string),
		selector:         selector,
		engineColor:      engineColor,
		done:             make(chan struct{}),
	}

	go gm.processMatchmaking(matchmakingInterval)

	return gm
}

func (gm *GameManager) Stop() {
	gm.stopOnce.Do(func() { close(gm.done) })
}

func (gm *GameManager) RegisterMatchmakingChannel(playerID string, ch chan string) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	// a reconnecting player replaces the old channel
	if existingCh, exists := gm.matchingChannels[playerID]; exists {
		delete(gm.matchingChannels, playerID)
		close(existingCh)
	}
	gm.matchingChannels[playerID] = ch
}

// UnregisterMatchmakingChannel forgets playerID's channel and queue entry. The
// channel itself is left for its creator to drop.
func (gm *GameManager) UnregisterMatchmakingChannel(playerID string, ch chan string) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if current, ok := gm.matchingChannels[playerID]; ok && current == ch {
		delete(gm.matchingChannels, playerID)
		gm.queue.Remove(playerID)
	}
}

func (gm *GameManager) processMatchmaking(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-gm.done:
			return
		case <-ticker.C:
			gm.matchPlayers()
		}
	}
}

// matchPlayers pairs queued players into human games until fewer than two wait.
func (gm *GameManager) matchPlayers() {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for {
		first, second, ok := gm.queue.NextPair()
		if !ok {
			return
		}
		player1, player2 := first.Player, second.Player

		gameID := uuid.New().String()
		game := model.NewGame(gameID, model.GameOptions{Mode: model.ModeHuman})
		p1Color, err := game.AddPlayer(player1.ID)
		if err != nil {
			log.Errorf("matchmaking: seat %s: %v", player1.ID, err)
			continue
		}
		p2Color, err := game.AddPlayer(player2.ID)
		if err != nil {
			log.Errorf("matchmaking: seat %s: %v", player2.ID, err)
			continue
		}
		gm.games[gameID] = game
		log.Infof("matchmaking: game %s %s(white) vs %s(black), longest wait %s",
			gameID, player1.ID, player2.ID, time.Since(first.JoinedAt).Round(time.Millisecond))

		gm.notifyMatchLocked(player1.ID, model.MatchFoundEvent{GameID: gameID, Color: p1Color})
		gm.notifyMatchLocked(player2.ID, model.MatchFoundEvent{GameID: gameID, Color: p2Color})
	}
}

func (gm *GameManager) notifyMatchLocked(playerID string, event model.MatchFoundEvent) {
	ch, ok := gm.matchingChannels[playerID]
	if !ok {
		log.Warnf("matchmaking: no channel for player %s, game %s", playerID, event.GameID)
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Errorf("matchmaking: marshal event: %v", err)
		return
	}

	select {
	case ch <- string(payload):
	default:
		log.Warnf("matchmaking: channel for player %s is full", playerID)
	}
	delete(gm.matchingChannels, playerID)
	close(ch)
}

type CreateGameOptions struct {
	Mode model.Mode
	// EngineColor overrides the configured engine side when set.
	EngineColor *model.Color
	// FEN starts the game from a custom position.
	FEN string
}

func (gm *GameManager) CreateGame(opts CreateGameOptions) (string, error) {
	mode := opts.Mode
	if mode == "" {
		mode = model.ModeEngine
	}
	engineColor := gm.engineColor
	if opts.EngineColor != nil {
		engineColor = *opts.EngineColor
	}

	var board *model.Board
	if opts.FEN != "" {
		b, err := model.NewBoardFromFEN(opts.FEN)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidGame, err)
		}
		board = b
	}

	gameID := uuid.New().String()
	game := model.NewGame(gameID, model.GameOptions{
		Mode:        mode,
		EngineColor: engineColor,
		Board:       board,
		Selector:    gm.selector,
	})

	gm.mu.Lock()
	gm.games[gameID] = game
	gm.mu.Unlock()
	return gameID, nil
}

func (gm *GameManager) GetGame(gameID string) (*model.Game, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	game, exists := gm.games[gameID]
	if !exists {
		return nil, ErrGameNotFound
	}
	return game, nil
}

func (gm *GameManager) AddPlayerToGame(gameID string, playerID string) (model.Color, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return model.White, err
	}
	return game.AddPlayer(playerID)
}

func (gm *GameManager) JoinMatchmaking(playerID string) error {
	return gm.queue.AddPlayer(model.Player{ID: playerID})
}

func (gm *GameManager) QueueSize() int {
	return gm.queue.Size()
}
