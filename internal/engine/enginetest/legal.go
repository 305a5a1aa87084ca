package enginetest

import (
	"strings"

	"github.com/cricklet/chessforge/internal/game"
)

// FirstLegalMove answers with the first legal move of the position, or
// bestmove (none) when there is none. It stands in for a real engine when the
// reply has to be playable.
func FirstLegalMove(position string, goCommand string) []string {
	fen, moves := splitPosition(position)

	g, err := game.NewGame(fen)
	if err.HasError() {
		return []string{"bestmove (none)"}
	}
	for _, move := range moves {
		_, err = g.PerformMove(move)
		if err.HasError() {
			return []string{"bestmove (none)"}
		}
	}

	valid := g.ValidMoves()
	if len(valid) == 0 {
		return []string{"info depth 0 score mate 0", "bestmove (none)"}
	}
	return []string{
		"info depth 5 seldepth 5 multipv 1 score cp 42 nodes 1234 nps 100000 time 12 pv " + valid[0],
		"bestmove " + valid[0],
	}
}

// splitPosition reverses uci.PositionCommand.
func splitPosition(position string) (string, []string) {
	fields := strings.Fields(position)
	if len(fields) > 0 && fields[0] == "position" {
		fields = fields[1:]
	}
	fen := []string{}
	moves := []string{}

	inMoves := false
	for _, field := range fields {
		switch {
		case field == "moves":
			inMoves = true
		case inMoves:
			moves = append(moves, field)
		case field != "fen" && field != "startpos":
			fen = append(fen, field)
		}
	}
	return strings.Join(fen, " "), moves
}
