package uci

import (
	"testing"
	"time"

	. "github.com/cricklet/chessforge/internal/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakeTokens(t *testing.T) {
	assert.True(t, IsReady("readyok"))
	assert.True(t, IsReady("readyok\r"))
	assert.False(t, IsReady("info string readyok"))
	assert.False(t, IsReady("uciok"))

	assert.True(t, IsUciHandshakeComplete("uciok"))
	assert.False(t, IsUciHandshakeComplete("readyok"))
	assert.False(t, IsUciHandshakeComplete("id name uciok"))

	assert.True(t, IsBestMove("bestmove e2e4"))
	assert.True(t, IsBestMove("bestmove (none)"))
	assert.False(t, IsBestMove("info depth 1 pv e2e4"))
	assert.False(t, IsBestMove("bestmoves"))

	assert.True(t, IsInfo("info depth 3 score cp 10"))
	assert.True(t, IsInfo("info string NNUE enabled"))
	assert.False(t, IsInfo("information"))
	assert.False(t, IsInfo("bestmove e2e4"))
}

func TestExtractBestMovePromotion(t *testing.T) {
	result, err := ExtractBestMove("bestmove e7e8q ponder d8d7")
	require.True(t, IsNil(err), err)
	require.True(t, result.Move.HasValue())

	move := result.Move.Value()
	assert.Equal(t, "e7", move.From)
	assert.Equal(t, "e8", move.To)
	assert.Equal(t, "q", move.Promotion.Value())
	assert.Equal(t, "e7e8q", move.String())

	require.True(t, result.Ponder.HasValue())
	assert.Equal(t, "d8d7", result.Ponder.Value().String())
	assert.True(t, result.Ponder.Value().Promotion.IsEmpty())
}

func TestExtractBestMoveNone(t *testing.T) {
	for _, line := range []string{"bestmove (none)", "bestmove 0000", "bestmove"} {
		result, err := ExtractBestMove(line)
		assert.True(t, IsNil(err), line)
		assert.True(t, result.NoMove(), line)
	}
}

func TestExtractBestMoveMalformed(t *testing.T) {
	_, err := ExtractBestMove("bestmove z9z9")
	assert.True(t, err.HasError())

	_, err = ExtractBestMove("info depth 1")
	assert.True(t, err.HasError())

	result, err := ExtractBestMove("bestmove g1f3 ponder ???")
	assert.True(t, IsNil(err))
	assert.Equal(t, "g1f3", result.Move.Value().String())
	assert.True(t, result.Ponder.IsEmpty())
}

func TestExtractScoreCentipawns(t *testing.T) {
	score := ExtractScore("info depth 10 seldepth 12 score cp -35 nodes 12345 nps 100000 pv e7e5")
	require.True(t, score.HasValue())
	assert.Equal(t, Centipawns, score.Value().Kind)
	assert.Equal(t, -35, score.Value().Value)
	assert.False(t, score.Value().IsMate())
}

func TestExtractScoreMate(t *testing.T) {
	score := ExtractScore("info depth 8 score mate 3 nodes 100 pv h5f7")
	require.True(t, score.HasValue())
	assert.Equal(t, Mate, score.Value().Kind)
	assert.Equal(t, 3, score.Value().Value)

	// a mate of -1 is still a mate, not a centipawn value
	score = ExtractScore("info depth 31 seldepth 2 multipv 1 score mate -1 nodes 670 nps 670000 tbhits 0 time 1 pv a4e8")
	assert.Equal(t, MateScore(-1), score.Value())
}

func TestExtractScoreAbsent(t *testing.T) {
	assert.True(t, ExtractScore("info depth 9 seldepth 10 nodes 500").IsEmpty())
	assert.True(t, ExtractScore("info string score cp 100 is not a score").IsEmpty())
	assert.True(t, ExtractScore("info depth 9 score").IsEmpty())
	assert.True(t, ExtractScore("bestmove e2e4").IsEmpty())
	assert.True(t, ExtractScore("readyok").IsEmpty())
}

func TestParseInfo(t *testing.T) {
	info, ok := ParseInfo("info depth 14 seldepth 16 multipv 1 score cp 133 lowerbound nodes 46884 nps 390700 tbhits 0 time 120 pv b7e4 d3e4 c7c4")
	require.True(t, ok)
	assert.Equal(t, 14, info.Depth)
	assert.Equal(t, 16, info.SelDepth)
	assert.Equal(t, 1, info.MultiPV)
	assert.Equal(t, Score{Kind: Centipawns, Value: 133, Bound: LowerBound}, info.Score.Value())
	assert.Equal(t, int64(46884), info.Nodes)
	assert.Equal(t, int64(390700), info.NPS)
	assert.Equal(t, 120, info.Time)
	assert.Equal(t, []string{"b7e4", "d3e4", "c7c4"}, info.PV)

	_, ok = ParseInfo("bestmove e2e4")
	assert.False(t, ok)
}

func TestParseID(t *testing.T) {
	key, value, ok := ParseID("id name Stockfish 16.1")
	assert.True(t, ok)
	assert.Equal(t, "name", key)
	assert.Equal(t, "Stockfish 16.1", value)

	key, value, ok = ParseID("id author the Stockfish developers")
	assert.True(t, ok)
	assert.Equal(t, "author", key)
	assert.Equal(t, "the Stockfish developers", value)

	_, _, ok = ParseID("uciok")
	assert.False(t, ok)
}

func TestParseOption(t *testing.T) {
	option, ok := ParseOption("option name Skill Level type spin default 20 min 0 max 20")
	require.True(t, ok)
	assert.Equal(t, "Skill Level", option.Name)
	assert.Equal(t, "spin", option.Type)
	assert.Equal(t, "20", option.Default)
	assert.Equal(t, 0, option.Min.Value())
	assert.Equal(t, 20, option.Max.Value())

	option, ok = ParseOption("option name Analysis Contempt type combo default Both var Off var White var Black var Both")
	require.True(t, ok)
	assert.Equal(t, "Analysis Contempt", option.Name)
	assert.Equal(t, []string{"Off", "White", "Black", "Both"}, option.Vars)
	assert.True(t, option.Min.IsEmpty())

	option, ok = ParseOption("option name Clear Hash type button")
	require.True(t, ok)
	assert.Equal(t, "Clear Hash", option.Name)
	assert.Equal(t, "button", option.Type)

	_, ok = ParseOption("id name Stockfish")
	assert.False(t, ok)
}

func TestScoreString(t *testing.T) {
	assert.Equal(t, "+0.3", CentipawnScore(30).String())
	assert.Equal(t, "-1.2", CentipawnScore(-120).String())
	assert.Equal(t, "0.0", CentipawnScore(0).String())
	assert.Equal(t, "0.0", CentipawnScore(4).String())
	assert.Equal(t, "0.0", CentipawnScore(-4).String())
	assert.Equal(t, "-0.1", CentipawnScore(-5).String())
	assert.Equal(t, "+0.4", CentipawnScore(42).String())
	assert.Equal(t, "M3", MateScore(3).String())
	assert.Equal(t, "M-2", MateScore(-2).String())

	assert.Equal(t, "cp+35", ScoreString(CentipawnScore(35)))
	assert.Equal(t, "mate-1", ScoreString(MateScore(-1)))
}

func TestScoreForWhite(t *testing.T) {
	assert.Equal(t, CentipawnScore(50), CentipawnScore(50).ForWhite(true))
	assert.Equal(t, CentipawnScore(-50), CentipawnScore(50).ForWhite(false))
	assert.Equal(t, MateScore(2), MateScore(-2).ForWhite(false))

	bounded := Score{Kind: Centipawns, Value: 10, Bound: LowerBound}
	assert.Equal(t, Score{Kind: Centipawns, Value: -10, Bound: UpperBound}, bounded.ForWhite(false))
}

func TestPositionCommand(t *testing.T) {
	fen := "rn1qk2r/ppp3pp/3b1n2/3ppb2/8/2NPBNP1/PPP2PBP/R2QK2R b KQkq - 15 8"
	assert.Equal(t, "position fen "+fen, PositionCommand(Position{Fen: fen}))
	assert.Equal(t, "position fen "+fen+" moves e8g8 d3d4",
		PositionCommand(Position{Fen: fen, Moves: []string{"e8g8", "d3d4"}}))
	assert.Equal(t, "position startpos", PositionCommand(Position{}))
	assert.Equal(t, "position startpos moves e2e4", PositionCommand(Position{Fen: "startpos", Moves: []string{"e2e4"}}))
}

func TestGoCommand(t *testing.T) {
	cmd, err := GoCommand(DepthParams(12))
	assert.True(t, IsNil(err))
	assert.Equal(t, "go depth 12", cmd)

	cmd, err = GoCommand(DurationParams(time.Second))
	assert.True(t, IsNil(err))
	assert.Equal(t, "go movetime 1000", cmd)

	_, err = GoCommand(SearchParams{Depth: Some(5), Duration: Some(time.Second)})
	assert.True(t, err.HasError())

	_, err = GoCommand(SearchParams{})
	assert.True(t, err.HasError())

	_, err = GoCommand(DepthParams(0))
	assert.True(t, err.HasError())
}

func TestOptionCommands(t *testing.T) {
	assert.Equal(t, "setoption name Skill Level value 6", SkillLevelCommand(6))
	assert.Equal(t, "setoption name Hash value 64", SetOptionCommand("Hash", 64))
	assert.Equal(t, "uci", UciCommand())
	assert.Equal(t, "isready", IsReadyCommand())
	assert.Equal(t, "ucinewgame", UciNewGameCommand())
	assert.Equal(t, "stop", StopCommand())
	assert.Equal(t, "quit", QuitCommand())
}

func TestParseMove(t *testing.T) {
	move, err := ParseMove("a7a8N")
	assert.True(t, IsNil(err))
	assert.Equal(t, "n", move.Promotion.Value())

	_, err = ParseMove("a7a8k")
	assert.True(t, err.HasError())

	_, err = ParseMove("e2")
	assert.True(t, err.HasError())
}

func TestScoreKindText(t *testing.T) {
	text, err := Mate.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "mate", string(text))

	var kind ScoreKind
	require.NoError(t, kind.UnmarshalText([]byte("cp")))
	assert.Equal(t, Centipawns, kind)
	assert.Error(t, kind.UnmarshalText([]byte("pawns")))
}

func TestWinPercentage(t *testing.T) {
	assert.InDelta(t, 50.0, CentipawnScore(0).WinPercentage(), 0.001)
	assert.Greater(t, CentipawnScore(300).WinPercentage(), 70.0)
	assert.Less(t, CentipawnScore(-300).WinPercentage(), 30.0)
	assert.Equal(t, 100.0, MateScore(2).WinPercentage())
	assert.Equal(t, 0.0, MateScore(-1).WinPercentage())
}
