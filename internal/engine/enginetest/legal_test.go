package enginetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPosition(t *testing.T) {
	fen, moves := splitPosition("position startpos moves e2e4 e7e5")
	assert.Equal(t, "", fen)
	assert.Equal(t, []string{"e2e4", "e7e5"}, moves)

	fen, moves = splitPosition("position fen 7k/8/8/8/8/8/8/K7 w - - 0 1")
	assert.Equal(t, "7k/8/8/8/8/8/8/K7 w - - 0 1", fen)
	assert.Empty(t, moves)
}

func TestFirstLegalMove(t *testing.T) {
	reply := FirstLegalMove("position startpos moves e2e4", "go depth 1")
	assert.Len(t, reply, 2)
	assert.Contains(t, reply[1], "bestmove ")

	// white is checkmated
	reply = FirstLegalMove("position startpos moves f2f3 e7e5 g2g4 d8h4", "go depth 1")
	assert.Equal(t, "bestmove (none)", reply[len(reply)-1])

	reply = FirstLegalMove("position startpos moves e2e5", "go depth 1")
	assert.Equal(t, []string{"bestmove (none)"}, reply)
}
