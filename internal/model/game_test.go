package model

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbeisheim/greedychess-backend/internal/ws"
	"github.com/google/go-cmp/cmp"
)

// firstMove plays the first enumerated move.
type firstMove struct{}

func (firstMove) SelectMove(b *Board, color Color) (Move, bool) {
	moves := b.EnumerateAllMoves(color)
	if len(moves) == 0 {
		return Move{}, false
	}
	return moves[0], true
}

type noMove struct{}

func (noMove) SelectMove(*Board, Color) (Move, bool) { return Move{}, false }

type fakeConn struct {
	mu       sync.Mutex
	messages chan ws.Message
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{messages: make(chan ws.Message, 16)}
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	msg, ok := v.(ws.Message)
	if !ok {
		return errors.New("unexpected payload")
	}
	f.messages <- msg
	return nil
}

func (f *fakeConn) WriteMessage(int, []byte) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) nextState(t *testing.T) GameState {
	t.Helper()
	select {
	case msg := <-f.messages:
		if msg.Type != ws.MessageTypeGameState {
			t.Fatalf("message type = %s, want %s", msg.Type, ws.MessageTypeGameState)
		}
		var state GameState
		if err := json.Unmarshal(msg.Payload, &state); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		return state
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a game state")
	}
	return GameState{}
}

func newHumanGame(t *testing.T) *Game {
	t.Helper()
	g := NewGame("g1", GameOptions{Mode: ModeHuman})
	for _, id := range []string{"alice", "bob"} {
		if _, err := g.AddPlayer(id); err != nil {
			t.Fatalf("AddPlayer(%s): %v", id, err)
		}
	}
	return g
}

func TestAddPlayer(t *testing.T) {
	g := NewGame("g1", GameOptions{})

	if g.Mode != ModeHuman {
		t.Errorf("default mode = %s, want %s", g.Mode, ModeHuman)
	}

	steps := []struct {
		id      string
		want    Color
		wantErr error
	}{
		{"alice", White, nil},
		{"bob", Black, nil},
		{"alice", White, nil},
		{"bob", Black, nil},
		{"carol", White, ErrGameFull},
	}
	for _, s := range steps {
		got, err := g.AddPlayer(s.id)
		if !errors.Is(err, s.wantErr) {
			t.Errorf("AddPlayer(%s) error = %v, want %v", s.id, err, s.wantErr)
			continue
		}
		if err == nil && got != s.want {
			t.Errorf("AddPlayer(%s) = %v, want %v", s.id, got, s.want)
		}
	}

	if !g.IsPlayerInGame("bob") || g.IsPlayerInGame("carol") || g.IsPlayerInGame("") {
		t.Error("IsPlayerInGame disagrees with the seats")
	}
}

func TestEngineGameSeats(t *testing.T) {
	g := NewGame("g1", GameOptions{Mode: ModeEngine, EngineColor: White, Selector: firstMove{}})

	got, err := g.AddPlayer("alice")
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if got != Black {
		t.Errorf("human seat = %v, want black", got)
	}

	want := Seats{
		White: ClientPlayer{ID: EnginePlayerID, Color: White, IsEngine: true},
		Black: ClientPlayer{ID: "alice", Color: Black},
	}
	if diff := cmp.Diff(want, g.GetState().Players); diff != "" {
		t.Errorf("seats mismatch (-want +got):\n%s", diff)
	}
	if !g.IsEngineTurn() {
		t.Error("IsEngineTurn() = false with the engine on white")
	}
	if _, err := g.AddPlayer("bob"); !errors.Is(err, ErrGameFull) {
		t.Errorf("AddPlayer(bob) = %v, want ErrGameFull", err)
	}
}

func TestMakeMoveErrors(t *testing.T) {
	tests := []struct {
		name   string
		player string
		move   Move
		want   error
	}{
		{"stranger", "carol", Move{sq(1, 4), sq(3, 4)}, ErrNotInGame},
		{"out of turn", "bob", Move{sq(6, 4), sq(4, 4)}, ErrNotYourTurn},
		{"empty square", "alice", Move{sq(3, 3), sq(4, 3)}, ErrNoPiece},
		{"opponent piece", "alice", Move{sq(6, 4), sq(5, 4)}, ErrIllegalMove},
		{"bad geometry", "alice", Move{sq(0, 1), sq(2, 1)}, ErrIllegalMove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newHumanGame(t)
			before := g.GetState()

			if err := g.MakeMove(tt.player, tt.move); !errors.Is(err, tt.want) {
				t.Fatalf("MakeMove() = %v, want %v", err, tt.want)
			}
			if diff := cmp.Diff(before, g.GetState()); diff != "" {
				t.Errorf("state changed after a rejected move (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMakeMove(t *testing.T) {
	g := newHumanGame(t)

	if err := g.MakeMove("alice", Move{sq(1, 4), sq(3, 4)}); err != nil {
		t.Fatalf("MakeMove(e4): %v", err)
	}
	state := g.GetState()
	if state.ToMove != Black || state.Sound != "move" {
		t.Errorf("state after e4: toMove %v, sound %q", state.ToMove, state.Sound)
	}
	if diff := cmp.Diff(&Move{sq(1, 4), sq(3, 4)}, state.LastMove); diff != "" {
		t.Errorf("LastMove mismatch (-want +got):\n%s", diff)
	}

	for _, m := range []struct {
		player string
		move   Move
	}{
		{"bob", Move{sq(6, 3), sq(4, 3)}},
		{"alice", Move{sq(3, 4), sq(4, 3)}},
	} {
		if err := g.MakeMove(m.player, m.move); err != nil {
			t.Fatalf("MakeMove(%s, %v): %v", m.player, m.move, err)
		}
	}
	state = g.GetState()
	if state.Sound != "capture" {
		t.Errorf("sound after exd5 = %q, want capture", state.Sound)
	}
	if state.Material != 1 {
		t.Errorf("material after exd5 = %d, want 1", state.Material)
	}
	if state.Resolve != nil {
		t.Errorf("resolve = %q, want nil", *state.Resolve)
	}
}

func TestEngineSeatCannotBeDrivenByHand(t *testing.T) {
	g := NewGame("g1", GameOptions{Mode: ModeEngine, EngineColor: White, Selector: firstMove{}})
	if err := g.MakeMove(EnginePlayerID, Move{sq(1, 4), sq(3, 4)}); !errors.Is(err, ErrNotInGame) {
		t.Errorf("MakeMove(engine seat) = %v, want ErrNotInGame", err)
	}
}

func TestPlayEngineMove(t *testing.T) {
	g := NewGame("g1", GameOptions{Mode: ModeEngine, EngineColor: Black, Selector: firstMove{}})
	if _, err := g.AddPlayer("alice"); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}

	if _, err := g.PlayEngineMove(); !errors.Is(err, ErrNotEngineTurn) {
		t.Fatalf("PlayEngineMove on white's turn = %v, want ErrNotEngineTurn", err)
	}
	if err := g.MakeMove("alice", Move{sq(1, 4), sq(3, 4)}); err != nil {
		t.Fatalf("MakeMove: %v", err)
	}

	m, err := g.PlayEngineMove()
	if err != nil {
		t.Fatalf("PlayEngineMove: %v", err)
	}
	want := Move{sq(6, 0), sq(4, 0)}
	if m != want {
		t.Errorf("PlayEngineMove() = %v, want %v", m, want)
	}
	if state := g.GetState(); state.ToMove != White || *state.LastMove != want {
		t.Errorf("state after engine move: toMove %v, lastMove %v", state.ToMove, state.LastMove)
	}
}

func TestPlayEngineMoveHumanGame(t *testing.T) {
	g := newHumanGame(t)
	if _, err := g.PlayEngineMove(); !errors.Is(err, ErrNotEngineTurn) {
		t.Errorf("PlayEngineMove in a human game = %v, want ErrNotEngineTurn", err)
	}
}

func TestPlayEngineMoveNoLegalMoves(t *testing.T) {
	b := NewEmptyBoard()
	b.Place(Black, Pawn, sq(3, 0)).HasMoved = true
	b.Place(White, Pawn, sq(2, 0))
	b.ToMove = Black

	g := NewGame("g1", GameOptions{Mode: ModeEngine, EngineColor: Black, Board: b, Selector: firstMove{}})
	if _, err := g.PlayEngineMove(); !errors.Is(err, ErrNoLegalMoves) {
		t.Errorf("PlayEngineMove() = %v, want ErrNoLegalMoves", err)
	}

	state := g.GetState()
	if state.Resolve == nil || *state.Resolve != ResolveNoLegalMoves {
		t.Errorf("Resolve = %v, want %q", state.Resolve, ResolveNoLegalMoves)
	}
}

func TestPlayEngineMoveSelectorFailed(t *testing.T) {
	g := NewGame("g1", GameOptions{Mode: ModeEngine, EngineColor: White, Selector: noMove{}})
	if _, err := g.PlayEngineMove(); !errors.Is(err, ErrSelectorFailed) {
		t.Errorf("PlayEngineMove() = %v, want ErrSelectorFailed", err)
	}
}

func TestLegalMoves(t *testing.T) {
	b := NewEmptyBoard()
	b.Place(White, Pawn, sq(1, 1))
	b.Place(Black, Knight, sq(2, 2))
	g := NewGame("g1", GameOptions{Board: b})

	want := []Destination{
		{To: sq(2, 1)},
		{To: sq(2, 2), Capture: true},
		{To: sq(3, 1)},
	}
	if diff := cmp.Diff(want, g.LegalMoves(sq(1, 1))); diff != "" {
		t.Errorf("LegalMoves mismatch (-want +got):\n%s", diff)
	}
	if got := g.LegalMoves(sq(5, 5)); got == nil || len(got) != 0 {
		t.Errorf("LegalMoves(empty square) = %#v, want empty slice", got)
	}
}

func TestBroadcastState(t *testing.T) {
	g := newHumanGame(t)
	alice, bob := newFakeConn(), newFakeConn()

	if !g.RegisterConnection("alice", alice) {
		t.Fatal("RegisterConnection(alice) = false")
	}
	alice.nextState(t)
	if !g.RegisterConnection("bob", bob) {
		t.Fatal("RegisterConnection(bob) = false")
	}
	bob.nextState(t)
	select {
	case msg := <-alice.messages:
		t.Fatalf("alice was sent an unchanged state again: %s", msg.Type)
	case <-time.After(20 * time.Millisecond):
	}

	if err := g.MakeMove("alice", Move{sq(1, 4), sq(3, 4)}); err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	for _, conn := range []*fakeConn{alice, bob} {
		state := conn.nextState(t)
		if state.ToMove != Black || state.FEN != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b - - 0 1" {
			t.Errorf("broadcast state: toMove %v, fen %q", state.ToMove, state.FEN)
		}
	}
}

func TestRegisterConnectionRejectsDuplicate(t *testing.T) {
	g := newHumanGame(t)
	first, second := newFakeConn(), newFakeConn()

	if !g.RegisterConnection("alice", first) {
		t.Fatal("first RegisterConnection = false")
	}
	if g.RegisterConnection("alice", second) {
		t.Error("second RegisterConnection = true")
	}
	if !second.isClosed() || first.isClosed() {
		t.Errorf("closed: first %v, second %v; want only the second", first.isClosed(), second.isClosed())
	}

	g.UnregisterConnection("alice", second)
	if g.RegisterConnection("alice", newFakeConn()) {
		t.Error("unregistering the rejected connection dropped the live one")
	}
}

// recordingConn keeps every state written to it.
type recordingConn struct {
	mu     sync.Mutex
	states []GameState
}

func (r *recordingConn) WriteJSON(v interface{}) error {
	msg, ok := v.(ws.Message)
	if !ok {
		return errors.New("unexpected payload")
	}
	var state GameState
	if err := json.Unmarshal(msg.Payload, &state); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return nil
}

func (r *recordingConn) WriteMessage(int, []byte) error { return nil }
func (r *recordingConn) Close() error                   { return nil }

func (r *recordingConn) snapshot() []GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]GameState(nil), r.states...)
}

func TestBroadcastDeliversStatesInOrder(t *testing.T) {
	for run := 0; run < 50; run++ {
		g := NewGame("g1", GameOptions{Mode: ModeEngine, EngineColor: Black, Selector: firstMove{}})
		if _, err := g.AddPlayer("alice"); err != nil {
			t.Fatalf("AddPlayer: %v", err)
		}
		conn := &recordingConn{}
		g.RegisterConnection("alice", conn)

		if err := g.MakeMove("alice", Move{sq(1, 4), sq(3, 4)}); err != nil {
			t.Fatalf("MakeMove: %v", err)
		}
		if _, err := g.PlayEngineMove(); err != nil {
			t.Fatalf("PlayEngineMove: %v", err)
		}
		final := g.GetState()

		deadline := time.Now().Add(2 * time.Second)
		for {
			states := conn.snapshot()
			if n := len(states); n > 0 && states[n-1].Version == final.Version {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("run %d: final state never delivered", run)
			}
			time.Sleep(time.Millisecond)
		}
		// give any older broadcast still in flight the chance to land
		time.Sleep(5 * time.Millisecond)

		states := conn.snapshot()
		if last := states[len(states)-1]; last.FEN != final.FEN {
			t.Fatalf("run %d: last delivered fen %q, want %q", run, last.FEN, final.FEN)
		}
		for i := 1; i < len(states); i++ {
			if states[i].Version <= states[i-1].Version {
				t.Fatalf("run %d: version %d delivered after %d", run, states[i].Version, states[i-1].Version)
			}
		}
	}
}

func TestStateVersion(t *testing.T) {
	g := newHumanGame(t)
	if v := g.GetState().Version; v != 1 {
		t.Fatalf("initial Version = %d, want 1", v)
	}
	if err := g.MakeMove("alice", Move{sq(1, 4), sq(4, 4)}); err == nil {
		t.Fatal("illegal move accepted")
	}
	if v := g.GetState().Version; v != 1 {
		t.Errorf("Version after a rejected move = %d, want 1", v)
	}
	if err := g.MakeMove("alice", Move{sq(1, 4), sq(3, 4)}); err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	if v := g.GetState().Version; v != 2 {
		t.Errorf("Version after a move = %d, want 2", v)
	}
}
