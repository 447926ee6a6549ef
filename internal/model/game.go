package model

import (
	"fmt"
	"sync"

	"github.com/benbeisheim/greedychess-backend/internal/ws"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
)

// Conn is the part of a websocket connection a game writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// The connections for a specific game. mu is held for whole broadcasts so each
// connection sees state versions in increasing order.
type GameConnections struct {
	connections map[string]Conn   // playerID -> connection
	sent        map[string]uint64 // playerID -> version of the last state written
	mu          sync.Mutex
}

func NewGameConnections() *GameConnections {
	return &GameConnections{
		connections: make(map[string]Conn),
		sent:        make(map[string]uint64),
	}
}

type Seats struct {
	White ClientPlayer `json:"white"`
	Black ClientPlayer `json:"black"`
}

// Game owns one board and serialises every access to it, including the
// selector's simulate/undo search.
type Game struct {
	ID          string
	Mode        Mode
	EngineColor Color

	mu          sync.Mutex
	board       *Board
	selector    MoveSelector
	players     Seats
	lastMove    *Move
	sound       string
	version     uint64
	connections *GameConnections
}

type GameState struct {
	ID string `json:"id"`
	// Version grows by one with every applied move.
	Version  uint64                       `json:"version"`
	Mode     Mode                         `json:"mode"`
	Board    [boardSize][boardSize]*Piece `json:"board"`
	FEN      string                       `json:"fen"`
	ToMove   Color                        `json:"toMove"`
	Material int                          `json:"material"`
	Sound    string                       `json:"sound"`
	LastMove *Move                        `json:"lastMove"`
	Resolve  *string                      `json:"resolve"`
	Players  Seats                        `json:"players"`
}

// ResolveNoLegalMoves marks a position where the side to move cannot move.
// Whether that is mate or stalemate is left to the client.
const ResolveNoLegalMoves = "no-legal-moves"

type GameOptions struct {
	Mode        Mode
	EngineColor Color
	// Board defaults to the initial position.
	Board    *Board
	Selector MoveSelector
}

func NewGame(id string, opts GameOptions) *Game {
	board := opts.Board
	if board == nil {
		board = NewBoard()
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeHuman
	}

	g := &Game{
		ID:          id,
		Mode:        mode,
		EngineColor: opts.EngineColor,
		board:       board,
		selector:    opts.Selector,
		version:     1,
		connections: NewGameConnections(),
	}
	if mode == ModeEngine {
		g.seat(opts.EngineColor, ClientPlayer{ID: EnginePlayerID, Color: opts.EngineColor, IsEngine: true})
	}
	return g
}

func (g *Game) seat(c Color, p ClientPlayer) {
	if c == White {
		g.players.White = p
	} else {
		g.players.Black = p
	}
}

// AddPlayer seats playerID in the first free seat, White before Black. A player
// already seated gets their existing color back.
func (g *Game) AddPlayer(playerID string) (Color, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.colorOf(playerID); ok {
		return c, nil
	}
	if g.players.White.ID == "" {
		g.players.White = ClientPlayer{ID: playerID, Color: White}
		return White, nil
	}
	if g.players.Black.ID == "" {
		g.players.Black = ClientPlayer{ID: playerID, Color: Black}
		return Black, nil
	}
	return White, ErrGameFull
}

func (g *Game) colorOf(playerID string) (Color, bool) {
	switch playerID {
	case "":
		return White, false
	case g.players.White.ID:
		return White, true
	case g.players.Black.ID:
		return Black, true
	}
	return White, false
}

func (g *Game) IsPlayerInGame(playerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.colorOf(playerID)
	return ok
}

func (g *Game) GetState() GameState {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.snapshot()
}

// IsEngineTurn reports whether the automated side is to move.
func (g *Game) IsEngineTurn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.Mode == ModeEngine && g.board.ToMove == g.EngineColor
}

// LegalMoves lists the destinations of the piece on from, flagging captures.
func (g *Game) LegalMoves(from Square) []Destination {
	g.mu.Lock()
	defer g.mu.Unlock()

	dests := []Destination{}
	for _, m := range g.board.EnumerateMoves(from) {
		dests = append(dests, Destination{To: m.To, Capture: g.board.PieceAt(m.To) != nil})
	}
	return dests
}

// MakeMove applies a human move for playerID.
func (g *Game) MakeMove(playerID string, m Move) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	color, ok := g.colorOf(playerID)
	if !ok || color == g.engineSeat() {
		return ErrNotInGame
	}
	if color != g.board.ToMove {
		return ErrNotYourTurn
	}
	if g.board.PieceAt(m.From) == nil {
		return ErrNoPiece
	}
	if err := g.apply(m); err != nil {
		return err
	}

	go g.broadcastState(g.snapshot())
	return nil
}

// PlayEngineMove asks the selector for the automated side's move and applies it.
func (g *Game) PlayEngineMove() (Move, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Mode != ModeEngine || g.board.ToMove != g.EngineColor || g.selector == nil {
		return Move{}, ErrNotEngineTurn
	}

	m, ok := g.selector.SelectMove(g.board, g.EngineColor)
	if !ok {
		if len(g.board.EnumerateAllMoves(g.EngineColor)) == 0 {
			return Move{}, ErrNoLegalMoves
		}
		return Move{}, ErrSelectorFailed
	}
	if err := g.apply(m); err != nil {
		return Move{}, fmt.Errorf("engine move %v -> %v: %w", m.From, m.To, err)
	}

	go g.broadcastState(g.snapshot())
	return m, nil
}

// engineSeat returns the automated color, or an impossible value outside engine mode.
func (g *Game) engineSeat() Color {
	if g.Mode != ModeEngine {
		return Color(255)
	}
	return g.EngineColor
}

func (g *Game) apply(m Move) error {
	capture := g.board.PieceAt(m.To) != nil
	if !g.board.ApplyMove(m.From, m.To) {
		return ErrIllegalMove
	}
	if capture {
		g.sound = "capture"
	} else {
		g.sound = "move"
	}
	g.lastMove = &Move{From: m.From, To: m.To}
	g.version++
	return nil
}

func (g *Game) snapshot() GameState {
	board := g.board.Clone()
	state := GameState{
		ID:       g.ID,
		Version:  g.version,
		Mode:     g.Mode,
		Board:    board.Grid(),
		FEN:      board.FEN(),
		ToMove:   board.ToMove,
		Material: board.EvaluateMaterial(),
		Sound:    g.sound,
		Players:  g.players,
	}
	if g.lastMove != nil {
		last := *g.lastMove
		state.LastMove = &last
	}
	if len(board.EnumerateAllMoves(board.ToMove)) == 0 {
		resolve := ResolveNoLegalMoves
		state.Resolve = &resolve
	}
	return state
}

// RegisterConnection attaches conn for playerID. A second connection for the same
// player is closed and false is returned.
func (g *Game) RegisterConnection(playerID string, conn Conn) bool {
	g.connections.mu.Lock()
	if _, exists := g.connections.connections[playerID]; exists {
		// keep the healthy connection, reject the new one
		g.connections.mu.Unlock()
		_ = conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Connection already exists"),
		)
		_ = conn.Close()
		return false
	}
	g.connections.connections[playerID] = conn
	delete(g.connections.sent, playerID)
	g.connections.mu.Unlock()
	log.Debugf("game %s: registered connection for player %s", g.ID, playerID)

	go g.broadcastState(g.GetState())
	return true
}

// UnregisterConnection drops playerID's connection if it is still conn.
func (g *Game) UnregisterConnection(playerID string, conn Conn) {
	g.connections.mu.Lock()
	defer g.connections.mu.Unlock()

	if current, exists := g.connections.connections[playerID]; exists && current == conn {
		delete(g.connections.connections, playerID)
		delete(g.connections.sent, playerID)
	}
}

// broadcastState writes state to every connection that has not yet been sent
// this version or a newer one. Connections that fail a write are dropped.
func (g *Game) broadcastState(state GameState) {
	msg, err := ws.NewMessage(ws.MessageTypeGameState, state)
	if err != nil {
		log.Errorf("game %s: marshal state: %v", g.ID, err)
		return
	}

	g.connections.mu.Lock()
	defer g.connections.mu.Unlock()

	for playerID, conn := range g.connections.connections {
		if g.connections.sent[playerID] >= state.Version {
			continue
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Warnf("game %s: send state to player %s: %v", g.ID, playerID, err)
			delete(g.connections.connections, playerID)
			delete(g.connections.sent, playerID)
			continue
		}
		g.connections.sent[playerID] = state.Version
	}
}
