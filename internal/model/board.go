package model

import "fmt"

const boardSize = 8

type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor accepts "white" or "black".
func ParseColor(s string) (Color, error) {
	switch s {
	case "white":
		return White, nil
	case "black":
		return Black, nil
	}
	return White, fmt.Errorf("unknown color %q", s)
}

type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
)

func (p PieceType) String() string {
	switch p {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	}
	return fmt.Sprintf("piece(%d)", p)
}

func (p PieceType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PieceType) UnmarshalText(text []byte) error {
	for t := Pawn; t <= King; t++ {
		if t.String() == string(text) {
			*p = t
			return nil
		}
	}
	return fmt.Errorf("unknown piece type %q", text)
}

// Square is a (rank, file) pair. Rank 0 is White's back rank, file 0 is the a-file.
type Square struct {
	Rank int `json:"rank"`
	File int `json:"file"`
}

func (s Square) Valid() bool {
	return s.Rank >= 0 && s.Rank < boardSize && s.File >= 0 && s.File < boardSize
}

func (s Square) String() string {
	return fmt.Sprintf("(%d,%d)", s.Rank, s.File)
}

type Piece struct {
	Type     PieceType `json:"type"`
	Color    Color     `json:"color"`
	Square   Square    `json:"square"`
	HasMoved bool      `json:"hasMoved"`
}

// Board is the only mutable state of a game. It is not safe for concurrent use;
// Game serialises access to it.
type Board struct {
	grid   [boardSize][boardSize]*Piece
	ToMove Color
}

var backRank = [boardSize]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// NewBoard returns the standard initial position with White to move.
func NewBoard() *Board {
	b := NewEmptyBoard()
	for file := 0; file < boardSize; file++ {
		b.Place(White, backRank[file], Square{Rank: 0, File: file})
		b.Place(White, Pawn, Square{Rank: 1, File: file})
		b.Place(Black, Pawn, Square{Rank: 6, File: file})
		b.Place(Black, backRank[file], Square{Rank: 7, File: file})
	}
	return b
}

func NewEmptyBoard() *Board {
	return &Board{ToMove: White}
}

// Place puts a fresh, unmoved piece on sq, replacing whatever was there.
func (b *Board) Place(color Color, pieceType PieceType, sq Square) *Piece {
	if !sq.Valid() {
		panic(fmt.Sprintf("model: place on off-board square %v", sq))
	}
	p := &Piece{Type: pieceType, Color: color, Square: sq}
	b.grid[sq.Rank][sq.File] = p
	return p
}

// PieceAt returns nil for empty and off-board squares.
func (b *Board) PieceAt(sq Square) *Piece {
	if !sq.Valid() {
		return nil
	}
	return b.grid[sq.Rank][sq.File]
}

// Grid returns the cells in [rank][file] order.
func (b *Board) Grid() [boardSize][boardSize]*Piece {
	return b.grid
}

func (b *Board) Clone() *Board {
	clone := &Board{ToMove: b.ToMove}
	for rank := range b.grid {
		for file, p := range b.grid[rank] {
			if p == nil {
				continue
			}
			cp := *p
			clone.grid[rank][file] = &cp
		}
	}
	return clone
}
