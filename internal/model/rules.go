package model

import "fmt"

// IsPathClear reports whether every square strictly between from and to is empty.
// from and to must share a rank, file or diagonal.
func (b *Board) IsPathClear(from, to Square) bool {
	dRank := to.Rank - from.Rank
	dFile := to.File - from.File
	if dRank != 0 && dFile != 0 && abs(dRank) != abs(dFile) {
		panic(fmt.Sprintf("model: IsPathClear on unaligned squares %v -> %v", from, to))
	}

	step := Square{Rank: sign(dRank), File: sign(dFile)}
	cur := Square{Rank: from.Rank + step.Rank, File: from.File + step.File}
	for cur != to {
		if b.PieceAt(cur) != nil {
			return false
		}
		cur = Square{Rank: cur.Rank + step.Rank, File: cur.File + step.File}
	}
	return true
}

// IsLegalMove checks ownership of the destination, the piece's movement shape and,
// for everything but knights, that nothing stands in between. It does not look at
// whose turn it is and knows nothing about check.
func (b *Board) IsLegalMove(from, to Square) bool {
	piece := b.PieceAt(from)
	if piece == nil || !to.Valid() || from == to {
		return false
	}
	if target := b.PieceAt(to); target != nil && target.Color == piece.Color {
		return false
	}
	if !b.fitsGeometry(piece, from, to) {
		return false
	}
	if piece.Type != Knight {
		return b.IsPathClear(from, to)
	}
	return true
}

func (b *Board) fitsGeometry(piece *Piece, from, to Square) bool {
	rankDiff := abs(to.Rank - from.Rank)
	fileDiff := abs(to.File - from.File)

	switch piece.Type {
	case Pawn:
		return b.fitsPawn(piece, from, to)
	case Knight:
		return (rankDiff == 2 && fileDiff == 1) || (rankDiff == 1 && fileDiff == 2)
	case Bishop:
		return isDiagonal(rankDiff, fileDiff)
	case Rook:
		return isStraight(rankDiff, fileDiff)
	case Queen:
		return isStraight(rankDiff, fileDiff) || isDiagonal(rankDiff, fileDiff)
	case King:
		return rankDiff <= 1 && fileDiff <= 1
	}
	return false
}

func (b *Board) fitsPawn(piece *Piece, from, to Square) bool {
	dir := 1
	if piece.Color == Black {
		dir = -1
	}

	if from.File == to.File {
		switch to.Rank - from.Rank {
		case dir:
			return b.PieceAt(to) == nil
		case 2 * dir:
			between := Square{Rank: from.Rank + dir, File: from.File}
			return !piece.HasMoved && b.PieceAt(between) == nil && b.PieceAt(to) == nil
		}
		return false
	}
	if abs(to.File-from.File) == 1 && to.Rank-from.Rank == dir {
		return b.PieceAt(to) != nil
	}
	return false
}

func isDiagonal(rankDiff, fileDiff int) bool {
	return rankDiff == fileDiff && rankDiff != 0
}

func isStraight(rankDiff, fileDiff int) bool {
	return (rankDiff == 0) != (fileDiff == 0)
}

// ApplyMove moves the piece on from to to if it belongs to the side to move and the
// move is legal. Anything on to is captured. On false the board is untouched.
func (b *Board) ApplyMove(from, to Square) bool {
	piece := b.PieceAt(from)
	if piece == nil || piece.Color != b.ToMove {
		return false
	}
	if !b.IsLegalMove(from, to) {
		return false
	}

	b.grid[to.Rank][to.File] = piece
	b.grid[from.Rank][from.File] = nil
	piece.Square = to
	piece.HasMoved = true
	b.ToMove = b.ToMove.Opposite()
	return true
}

// EnumerateMoves lists the legal moves of the piece on from, destinations in
// rank-then-file order.
func (b *Board) EnumerateMoves(from Square) []Move {
	moves := []Move{}
	if b.PieceAt(from) == nil {
		return moves
	}
	for rank := 0; rank < boardSize; rank++ {
		for file := 0; file < boardSize; file++ {
			to := Square{Rank: rank, File: file}
			if b.IsLegalMove(from, to) {
				moves = append(moves, Move{From: from, To: to})
			}
		}
	}
	return moves
}

// EnumerateAllMoves concatenates EnumerateMoves for every piece of color, visiting
// origin squares in rank-then-file order.
func (b *Board) EnumerateAllMoves(color Color) []Move {
	moves := []Move{}
	for rank := 0; rank < boardSize; rank++ {
		for file := 0; file < boardSize; file++ {
			p := b.grid[rank][file]
			if p != nil && p.Color == color {
				moves = append(moves, b.EnumerateMoves(Square{Rank: rank, File: file})...)
			}
		}
	}
	return moves
}
