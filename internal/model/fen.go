package model

import (
	"fmt"

	"github.com/notnil/chess"
)

var fenPieces = map[Color]map[PieceType]chess.Piece{
	White: {
		Pawn: chess.WhitePawn, Knight: chess.WhiteKnight, Bishop: chess.WhiteBishop,
		Rook: chess.WhiteRook, Queen: chess.WhiteQueen, King: chess.WhiteKing,
	},
	Black: {
		Pawn: chess.BlackPawn, Knight: chess.BlackKnight, Bishop: chess.BlackBishop,
		Rook: chess.BlackRook, Queen: chess.BlackQueen, King: chess.BlackKing,
	},
}

var fenTypes = map[chess.PieceType]PieceType{
	chess.Pawn:   Pawn,
	chess.Knight: Knight,
	chess.Bishop: Bishop,
	chess.Rook:   Rook,
	chess.Queen:  Queen,
	chess.King:   King,
}

// NewBoardFromFEN loads piece placement and side to move from a FEN record.
// Castling rights, en passant target and clocks are ignored. Pawns away from
// their home rank count as having moved.
func NewBoardFromFEN(fen string) (*Board, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	pos := chess.NewGame(opt).Position()

	b := NewEmptyBoard()
	for sq, pc := range pos.Board().SquareMap() {
		pieceType, ok := fenTypes[pc.Type()]
		if !ok {
			continue
		}
		color := White
		if pc.Color() == chess.Black {
			color = Black
		}
		at := Square{Rank: int(sq.Rank()), File: int(sq.File())}
		p := b.Place(color, pieceType, at)
		if pieceType == Pawn {
			p.HasMoved = at.Rank != pawnHomeRank(color)
		}
	}
	if pos.Turn() == chess.Black {
		b.ToMove = Black
	}
	return b, nil
}

// FEN renders the position. Castling and en passant fields are always "-".
func (b *Board) FEN() string {
	squares := make(map[chess.Square]chess.Piece)
	for rank := range b.grid {
		for file, p := range b.grid[rank] {
			if p == nil {
				continue
			}
			squares[chess.Square(rank*boardSize+file)] = fenPieces[p.Color][p.Type]
		}
	}
	turn := "w"
	if b.ToMove == Black {
		turn = "b"
	}
	return fmt.Sprintf("%s %s - - 0 1", chess.NewBoard(squares).String(), turn)
}

func pawnHomeRank(c Color) int {
	if c == White {
		return 1
	}
	return 6
}
