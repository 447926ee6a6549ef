// Package engine picks moves for the automated side.
package engine

import (
	"math"

	"github.com/benbeisheim/greedychess-backend/internal/model"
)

// Greedy looks exactly one ply ahead: it plays every legal move on the board,
// scores the material balance and keeps the best one. White maximises the
// score and Black minimises it; ties go to the first move in generation order.
type Greedy struct{}

func NewGreedy() Greedy {
	return Greedy{}
}

// SelectMove returns false when color has no legal moves. The board is mutated
// while searching and restored before returning, so the caller must not share it.
func (Greedy) SelectMove(b *model.Board, color model.Color) (model.Move, bool) {
	candidates := b.EnumerateAllMoves(color)
	if len(candidates) == 0 {
		return model.Move{}, false
	}

	best := model.Move{}
	found := false
	bestScore := math.MaxInt
	if color == model.White {
		bestScore = math.MinInt
	}

	for _, m := range candidates {
		var score int
		b.WithMove(m, func() {
			score = b.EvaluateMaterial()
		})
		if improves(color, score, bestScore) {
			best, bestScore, found = m, score, true
		}
	}
	return best, found
}

func improves(color model.Color, score, best int) bool {
	if color == model.Black {
		return score < best
	}
	return score > best
}
