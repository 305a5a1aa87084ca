package game

import (
	"testing"

	. "github.com/cricklet/chessforge/internal/helpers"
	"github.com/cricklet/chessforge/internal/uci"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playMoves(t *testing.T, g *Game, moves ...string) {
	for _, move := range moves {
		_, err := g.PerformMove(move)
		require.True(t, IsNil(err), err)
	}
}

func TestNewGame(t *testing.T) {
	g, err := NewGame("")
	require.True(t, IsNil(err), err)

	assert.Equal(t, uci.StartFen, g.Fen())
	assert.Equal(t, White, g.Turn())
	assert.False(t, g.IsOver())
	assert.True(t, g.LastMove().IsEmpty())
	assert.Equal(t, "in progress", g.Status().String())

	_, err = NewGame("not a fen")
	assert.True(t, err.HasError())
}

func TestPerformMove(t *testing.T) {
	g, err := NewGame("")
	require.True(t, IsNil(err), err)

	san, err := g.PerformMove("e2e4")
	require.True(t, IsNil(err), err)
	assert.Equal(t, "e4", san)
	assert.Equal(t, Black, g.Turn())

	san, err = g.PerformMove("g8f6")
	require.True(t, IsNil(err), err)
	assert.Equal(t, "Nf6", san)

	_, err = g.PerformMove("e4e6")
	assert.True(t, err.HasError())

	assert.Equal(t, []string{"e2e4", "g8f6"}, g.Moves())
	assert.Equal(t, []string{"e4", "Nf6"}, g.History())
	assert.Equal(t, "g8f6", g.LastMove().Value())
	assert.Equal(t, uci.Position{Fen: uci.StartFen, Moves: []string{"e2e4", "g8f6"}}, g.Position())
	assert.Equal(t, "position startpos moves e2e4 g8f6", uci.PositionCommand(uci.Position{Moves: g.Moves()}))
}

func TestPromotionDefaultsToQueen(t *testing.T) {
	g, err := NewGame("7k/4P3/8/8/8/8/8/K7 w - - 0 1")
	require.True(t, IsNil(err), err)

	san, err := g.PerformMove("e7e8")
	require.True(t, IsNil(err), err)
	assert.Equal(t, "e8=Q+", san)
	assert.Equal(t, "e7e8q", g.LastMove().Value())

	g, err = NewGame("7k/4P3/8/8/8/8/8/K7 w - - 0 1")
	require.True(t, IsNil(err), err)
	_, err = g.PerformMove("e7e8n")
	require.True(t, IsNil(err), err)
	assert.Equal(t, "e7e8n", g.LastMove().Value())
}

func TestValidMovesFrom(t *testing.T) {
	g, err := NewGame("")
	require.True(t, IsNil(err), err)

	assert.ElementsMatch(t, []string{"g1f3", "g1h3"}, g.ValidMovesFrom("g1"))
	assert.ElementsMatch(t, []string{"e2e3", "e2e4"}, g.ValidMovesFrom("E2"))
	assert.Empty(t, g.ValidMovesFrom("e4"))
	assert.Empty(t, g.ValidMovesFrom("e8"))
}

func TestUndo(t *testing.T) {
	g, err := NewGame("")
	require.True(t, IsNil(err), err)
	playMoves(t, g, "e2e4", "e7e5", "g1f3", "b8c6")

	require.True(t, IsNil(g.Undo(2)))
	assert.Equal(t, []string{"e2e4", "e7e5"}, g.Moves())
	assert.Equal(t, []string{"e4", "e5"}, g.History())
	assert.Equal(t, White, g.Turn())

	require.True(t, IsNil(g.Undo(10)))
	assert.Empty(t, g.Moves())
	assert.Equal(t, uci.StartFen, g.Fen())

	require.True(t, IsNil(g.Undo(1)))
}

func TestUndoFromFen(t *testing.T) {
	fen := "rn1qk2r/ppp3pp/3b1n2/3ppb2/8/2NPBNP1/PPP2PBP/R2QK2R b KQkq - 15 8"
	g, err := NewGame(fen)
	require.True(t, IsNil(err), err)
	start := g.Fen()
	playMoves(t, g, "e8g8", "d3d4")
	assert.NotEqual(t, start, g.Fen())

	require.True(t, IsNil(g.Undo(2)))
	assert.Equal(t, start, g.Fen())
	assert.Equal(t, start, g.Position().Fen)
	assert.Equal(t, Black, g.Turn())
}

func TestCheckmate(t *testing.T) {
	g, err := NewGame("")
	require.True(t, IsNil(err), err)
	playMoves(t, g, "f2f3", "e7e5", "g2g4", "d8h4")

	status := g.Status()
	assert.True(t, status.IsOver())
	assert.Equal(t, "0-1", status.Outcome)
	assert.Equal(t, "Checkmate", status.Method)
	assert.Equal(t, "0-1 by Checkmate", status.String())

	_, err = g.PerformMove("a2a3")
	assert.True(t, err.HasError())

	require.True(t, IsNil(g.Undo(1)))
	assert.False(t, g.IsOver())
}

func TestStalemate(t *testing.T) {
	g, err := NewGame("k7/8/1Q6/8/8/8/8/7K w - - 0 1")
	require.True(t, IsNil(err), err)
	playMoves(t, g, "b6c7")

	assert.Equal(t, "1/2-1/2", g.Status().Outcome)
	assert.Equal(t, "Stalemate", g.Status().Method)
}

func TestResign(t *testing.T) {
	g, err := NewGame("")
	require.True(t, IsNil(err), err)
	playMoves(t, g, "d2d4")

	g.Resign(Black)
	assert.Equal(t, "1-0", g.Status().Outcome)
	assert.Equal(t, "Resignation", g.Status().Method)
}

func TestParseSide(t *testing.T) {
	side, err := ParseSide("w")
	assert.True(t, IsNil(err))
	assert.Equal(t, White, side)

	side, err = ParseSide("Black")
	assert.True(t, IsNil(err))
	assert.Equal(t, Black, side)
	assert.Equal(t, White, side.Other())

	_, err = ParseSide("green")
	assert.True(t, err.HasError())
}

func TestLevels(t *testing.T) {
	level := LevelForSkill(DefaultSkill)
	require.True(t, level.HasValue())
	assert.Equal(t, "Intermediate", level.Value().Label)

	assert.True(t, LevelForSkill(5).IsEmpty())
	for _, level := range Levels {
		assert.True(t, level.Skill >= 0 && level.Skill <= 20, level)
	}
}
