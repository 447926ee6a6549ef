package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/benbeisheim/greedychess-backend/internal/middleware"
	"github.com/benbeisheim/greedychess-backend/internal/model"
	"github.com/benbeisheim/greedychess-backend/internal/service"
	"github.com/benbeisheim/greedychess-backend/internal/ws"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
)

type WebSocketController struct {
	gameService *service.GameService
}

func NewWebSocketController(gameService *service.GameService) *WebSocketController {
	return &WebSocketController{
		gameService: gameService,
	}
}

// lockedConn serialises writes; game broadcasts and replies share one socket.
type lockedConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (lc *lockedConn) WriteJSON(v interface{}) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.Conn.WriteJSON(v)
}

func (lc *lockedConn) WriteMessage(messageType int, data []byte) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.Conn.WriteMessage(messageType, data)
}

type legalMovesRequest struct {
	Square model.Square `json:"square"`
}

type legalMovesResponse struct {
	Square model.Square        `json:"square"`
	Moves  []model.Destination `json:"moves"`
}

// HandleConnection serves one player's socket on /ws/game/:gameId.
func (wsc *WebSocketController) HandleConnection(c *websocket.Conn) {
	gameID := c.Params("gameId")
	playerID, _ := c.Locals(middleware.PlayerIDKey).(string)
	conn := &lockedConn{Conn: c}

	registered, err := wsc.gameService.RegisterConnection(gameID, playerID, conn)
	if err != nil {
		log.Warnf("register connection for game %s: %v", gameID, err)
		wsc.sendError(conn, err)
		c.Close()
		return
	}
	if !registered {
		return
	}
	defer wsc.gameService.UnregisterConnection(gameID, playerID, conn)

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			log.Debugf("game %s: read from player %s: %v", gameID, playerID, err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg ws.Message
		if err := json.Unmarshal(message, &msg); err != nil {
			wsc.sendError(conn, fmt.Errorf("parse message: %w", err))
			continue
		}
		if err := wsc.handleMessage(conn, gameID, playerID, msg); err != nil {
			wsc.sendError(conn, err)
		}
	}
}

func (wsc *WebSocketController) handleMessage(conn model.Conn, gameID, playerID string, msg ws.Message) error {
	switch msg.Type {
	case ws.MessageTypeMove:
		var move model.Move
		if err := json.Unmarshal(msg.Payload, &move); err != nil {
			return err
		}
		if err := wsc.gameService.HandleMove(gameID, playerID, move); err != nil {
			return err
		}
		wsc.gameService.ScheduleEngineReply(gameID)
		return nil

	case ws.MessageTypeLegalMoves:
		var req legalMovesRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return err
		}
		moves, err := wsc.gameService.LegalMoves(gameID, req.Square)
		if err != nil {
			return err
		}
		reply, err := ws.NewMessage(ws.MessageTypeLegalMoves, legalMovesResponse{Square: req.Square, Moves: moves})
		if err != nil {
			return err
		}
		return conn.WriteJSON(reply)

	case ws.MessageTypeEngineMove:
		_, err := wsc.gameService.RequestEngineMove(gameID, playerID)
		return err

	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

func (wsc *WebSocketController) sendError(conn model.Conn, err error) {
	msg, mErr := ws.NewMessage(ws.MessageTypeError, ws.ErrorPayload{Error: err.Error()})
	if mErr != nil {
		log.Errorf("marshal error message: %v", mErr)
		return
	}
	if wErr := conn.WriteJSON(msg); wErr != nil {
		log.Debugf("send error message: %v", wErr)
	}
}

// HandleMatchmaking queues the player and pushes a matchFound message once a game
// has been created for them. The socket closes after that.
func (wsc *WebSocketController) HandleMatchmaking(c *websocket.Conn) {
	playerID, _ := c.Locals(middleware.PlayerIDKey).(string)
	conn := &lockedConn{Conn: c}

	ch := make(chan string, 1)
	wsc.gameService.RegisterMatchmakingChannel(playerID, ch)
	defer wsc.gameService.UnregisterMatchmakingChannel(playerID, ch)

	if err := wsc.gameService.JoinMatchmaking(playerID); err != nil && !errors.Is(err, model.ErrAlreadyQueued) {
		wsc.sendError(conn, err)
		c.Close()
		return
	}

	// the client never sends anything useful here; a read error means it left
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case payload, ok := <-ch:
		if ok && payload != "" {
			msg := ws.Message{Type: ws.MessageTypeMatchFound, Payload: json.RawMessage(payload)}
			if err := conn.WriteJSON(msg); err != nil {
				log.Warnf("matchmaking: notify player %s: %v", playerID, err)
			}
		}
	case <-gone:
		log.Debugf("matchmaking: player %s left the queue", playerID)
	}

	c.Close()
	<-gone
}
