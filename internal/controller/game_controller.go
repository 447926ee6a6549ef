package controller

import (
	"github.com/benbeisheim/greedychess-backend/internal/middleware"
	"github.com/benbeisheim/greedychess-backend/internal/model"
	"github.com/benbeisheim/greedychess-backend/internal/service"
	"github.com/gofiber/fiber/v2"
)

type GameController struct {
	gameService *service.GameService
}

func NewGameController(gameService *service.GameService) *GameController {
	return &GameController{gameService: gameService}
}

type createGameRequest struct {
	Mode        string `json:"mode"`
	EngineColor string `json:"engineColor"`
	FEN         string `json:"fen"`
}

// CreateGame creates a game and seats the caller in it.
func (gc *GameController) CreateGame(c *fiber.Ctx) error {
	var req createGameRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
	}

	opts := service.CreateGameOptions{FEN: req.FEN}
	if req.Mode != "" {
		mode, ok := model.ParseMode(req.Mode)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "mode must be engine or human",
			})
		}
		opts.Mode = mode
	}
	if req.EngineColor != "" {
		color, err := model.ParseColor(req.EngineColor)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		opts.EngineColor = &color
	}

	gameID, err := gc.gameService.CreateGame(opts)
	if err != nil {
		return writeError(c, err)
	}
	color, err := gc.gameService.JoinGame(gameID, playerID(c))
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Game created",
		"game_id": gameID,
		"color":   color,
	})
}

func (gc *GameController) JoinGame(c *fiber.Ctx) error {
	color, err := gc.gameService.JoinGame(c.Params("gameId"), playerID(c))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Game joined",
		"color":   color,
	})
}

func (gc *GameController) GetGameState(c *fiber.Ctx) error {
	gameState, err := gc.gameService.GetGameState(c.Params("gameId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(gameState)
}

// LegalMoves lists destinations for the piece on ?rank=&file=. Empty and
// off-board squares give an empty list.
func (gc *GameController) LegalMoves(c *fiber.Ctx) error {
	from := model.Square{Rank: c.QueryInt("rank", -1), File: c.QueryInt("file", -1)}

	moves, err := gc.gameService.LegalMoves(c.Params("gameId"), from)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"square": from,
		"moves":  moves,
	})
}

func (gc *GameController) MakeMove(c *fiber.Ctx) error {
	var move model.Move
	if err := c.BodyParser(&move); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid move body",
		})
	}

	gameID := c.Params("gameId")
	if err := gc.gameService.HandleMove(gameID, playerID(c), move); err != nil {
		return writeError(c, err)
	}
	gameState, err := gc.gameService.GetGameState(gameID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(gameState)
}

// EngineMove plays the automated side's reply for a seated player. Clients call it
// once it is the engine's turn; the server never moves for the engine on REST
// games by itself.
func (gc *GameController) EngineMove(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	move, err := gc.gameService.RequestEngineMove(gameID, playerID(c))
	if err != nil {
		return writeError(c, err)
	}
	gameState, err := gc.gameService.GetGameState(gameID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"move":  move,
		"state": gameState,
	})
}

func (gc *GameController) JoinMatchmaking(c *fiber.Ctx) error {
	if err := gc.gameService.JoinMatchmaking(playerID(c)); err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "queued",
	})
}

func playerID(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.PlayerIDKey).(string)
	return id
}
