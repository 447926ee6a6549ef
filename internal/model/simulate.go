package model

import "fmt"

// WithMove relocates the piece for m.From onto m.To, runs fn, then puts both squares
// back exactly as they were, captured piece included. HasMoved, the piece's Square
// and ToMove are never touched, so fn must only read occupancy and material.
//
// The board must not be used by anyone else until WithMove returns.
func (b *Board) WithMove(m Move, fn func()) {
	from, to := m.From, m.To
	if !from.Valid() || !to.Valid() {
		panic(fmt.Sprintf("model: WithMove on off-board squares %v -> %v", from, to))
	}
	moving := b.grid[from.Rank][from.File]
	captured := b.grid[to.Rank][to.File]

	b.grid[to.Rank][to.File] = moving
	b.grid[from.Rank][from.File] = nil
	defer func() {
		b.grid[from.Rank][from.File] = moving
		b.grid[to.Rank][to.File] = captured
	}()

	fn()
}
