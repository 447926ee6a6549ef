package model

import "errors"

var (
	ErrGameFull       = errors.New("game is full")
	ErrNotInGame      = errors.New("player not in game")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrNoPiece        = errors.New("no piece at from square")
	ErrIllegalMove    = errors.New("illegal move")
	ErrNotEngineTurn  = errors.New("not the engine's turn")
	ErrNoLegalMoves   = errors.New("no legal moves")
	ErrSelectorFailed = errors.New("selector returned no move despite legal moves")
	ErrAlreadyQueued  = errors.New("player already in queue")
)
