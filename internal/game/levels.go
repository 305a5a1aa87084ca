package game

import (
	. "github.com/cricklet/chessforge/internal/helpers"
)

// Level is a difficulty offered before a game. Skill is the engine's
// Skill Level option.
type Level struct {
	Rating int    `json:"rating"`
	Label  string `json:"label"`
	Skill  int    `json:"skill"`
}

var Levels = []Level{
	{200, "Beginner", 1},
	{400, "Casual", 2},
	{600, "Levy", 3},
	{800, "Club", 4},
	{1000, "Intermediate", 6},
	{1500, "Strong", 8},
	{2000, "Expert", 12},
	{2500, "Master", 16},
	{3000, "Stockfish Max", 20},
}

const DefaultSkill = 6

func LevelForSkill(skill int) Optional[Level] {
	return FindInSlice(Levels, func(level Level) bool {
		return level.Skill == skill
	})
}
