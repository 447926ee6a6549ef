package model

type Move struct {
	From Square `json:"from"`
	To   Square `json:"to"`
}

// Destination is one entry of a piece's move list as shown to a client.
type Destination struct {
	To      Square `json:"to"`
	Capture bool   `json:"capture"`
}

// MoveSelector picks a move for color on b, or reports false when it has none.
type MoveSelector interface {
	SelectMove(b *Board, color Color) (Move, bool)
}
