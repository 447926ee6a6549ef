package model

var pieceValues = [...]int{
	Pawn:   1,
	Knight: 3,
	Bishop: 3,
	Rook:   5,
	Queen:  9,
	King:   100,
}

// Value is the material worth of a piece type.
func (p PieceType) Value() int {
	return pieceValues[p]
}

// EvaluateMaterial sums piece values, positive for White and negative for Black.
func (b *Board) EvaluateMaterial() int {
	score := 0
	for rank := range b.grid {
		for _, p := range b.grid[rank] {
			if p == nil {
				continue
			}
			if p.Color == White {
				score += p.Type.Value()
			} else {
				score -= p.Type.Value()
			}
		}
	}
	return score
}
