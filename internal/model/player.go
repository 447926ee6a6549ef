package model

type Player struct {
	ID string
}

type ClientPlayer struct {
	ID       string `json:"name"`
	Color    Color  `json:"color"`
	IsEngine bool   `json:"isEngine"`
}

// EnginePlayerID is the seat name of the automated side.
const EnginePlayerID = "engine"

type Mode string

const (
	// ModeEngine seats one human against the automated side.
	ModeEngine Mode = "engine"
	ModeHuman  Mode = "human"
)

func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeEngine, ModeHuman:
		return Mode(s), true
	}
	return "", false
}

type MatchFoundEvent struct {
	GameID string `json:"gameId"`
	Color  Color  `json:"color"`
}
