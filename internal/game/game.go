package game

import (
	"strings"

	. "github.com/cricklet/chessforge/internal/helpers"
	"github.com/cricklet/chessforge/internal/uci"
	"github.com/notnil/chess"
)

type Side int

const (
	White Side = iota
	Black
)

func (s Side) String() string {
	if s == White {
		return "white"
	}
	return "black"
}

func (s Side) Other() Side {
	return 1 - s
}

func ParseSide(s string) (Side, Error) {
	switch strings.ToLower(s) {
	case "w", "white":
		return White, NilError
	case "b", "black":
		return Black, NilError
	}
	return White, Errorf("unknown side %q", s)
}

func sideFromColor(color chess.Color) Side {
	if color == chess.Black {
		return Black
	}
	return White
}

func (s Side) color() chess.Color {
	if s == Black {
		return chess.Black
	}
	return chess.White
}

// Game tracks one game of chess. The rules live in notnil/chess; Game keeps
// the moves in coordinate notation so the position can be handed to an
// engine and so moves can be taken back by replaying.
type Game struct {
	startFen string
	game     *chess.Game

	moves   []string
	history []string
}

func newChessGame(fen string) (*chess.Game, Error) {
	if fen == "" || fen == uci.StartFen {
		return chess.NewGame(), NilError
	}
	option, err := chess.FEN(fen)
	if err != nil {
		return nil, Errorf("fen %q: %w", fen, err)
	}
	return chess.NewGame(option), NilError
}

// NewGame starts from fen, or the standard position when fen is empty.
func NewGame(fen string) (*Game, Error) {
	game, err := newChessGame(fen)
	if err.HasError() {
		return nil, err
	}
	return &Game{
		startFen: game.FEN(),
		game:     game,
	}, NilError
}

func (g *Game) StartFen() string {
	return g.startFen
}

func (g *Game) Fen() string {
	return g.game.FEN()
}

func (g *Game) Turn() Side {
	return sideFromColor(g.game.Position().Turn())
}

// Position is the game as an engine sees it: the starting position plus the
// moves played since.
func (g *Game) Position() uci.Position {
	return uci.Position{
		Fen:   g.startFen,
		Moves: append([]string{}, g.moves...),
	}
}

// CurrentPosition is the current position without history.
func (g *Game) CurrentPosition() uci.Position {
	return uci.Position{Fen: g.Fen()}
}

func (g *Game) findMove(move string) Optional[*chess.Move] {
	move = strings.ToLower(move)
	return FindInSlice(g.game.ValidMoves(), func(m *chess.Move) bool {
		// promotions without a piece become queens
		return m.String() == move || (len(move) == 4 && m.String() == move+"q")
	})
}

// PerformMove plays a move in coordinate notation and returns it in standard
// algebraic notation.
func (g *Game) PerformMove(move string) (string, Error) {
	if g.IsOver() {
		return "", Errorf("move %v: game is over (%v)", move, g.Status())
	}

	found := g.findMove(move)
	if found.IsEmpty() {
		return "", Errorf("move %v: illegal in %v", move, g.Fen())
	}

	m := found.Value()
	san := chess.AlgebraicNotation{}.Encode(g.game.Position(), m)
	err := g.game.Move(m)
	if err != nil {
		return "", Errorf("move %v: %w", move, err)
	}

	g.moves = append(g.moves, m.String())
	g.history = append(g.history, san)
	return san, NilError
}

// ValidMoves lists every legal move in coordinate notation.
func (g *Game) ValidMoves() []string {
	return MapSlice(g.game.ValidMoves(), func(m *chess.Move) string {
		return m.String()
	})
}

// ValidMovesFrom lists the legal moves starting on square, in coordinate
// notation.
func (g *Game) ValidMovesFrom(square string) []string {
	square = strings.ToLower(square)
	result := []string{}
	for _, m := range g.game.ValidMoves() {
		if m.S1().String() == square {
			result = append(result, m.String())
		}
	}
	return result
}

// Undo takes back the last n moves.
func (g *Game) Undo(n int) Error {
	n = MinInt(n, len(g.moves))
	if n <= 0 {
		return NilError
	}

	moves := g.moves[:len(g.moves)-n]
	replay, err := NewGame(g.startFen)
	if err.HasError() {
		return err
	}
	for _, move := range moves {
		_, err = replay.PerformMove(move)
		if err.HasError() {
			return Errorf("undo: replaying %v: %w", move, err)
		}
	}

	*g = *replay
	return NilError
}

func (g *Game) Resign(side Side) {
	g.game.Resign(side.color())
}

func (g *Game) Moves() []string {
	return append([]string{}, g.moves...)
}

// History is the moves played in standard algebraic notation.
func (g *Game) History() []string {
	return append([]string{}, g.history...)
}

func (g *Game) LastMove() Optional[string] {
	if len(g.moves) == 0 {
		return Empty[string]()
	}
	return Some(Last(g.moves))
}

type Status struct {
	// Outcome is 1-0, 0-1, 1/2-1/2, or * while the game is running.
	Outcome string
	Method  string
}

func (s Status) IsOver() bool {
	return s.Outcome != string(chess.NoOutcome)
}

func (s Status) String() string {
	if !s.IsOver() {
		return "in progress"
	}
	return s.Outcome + " by " + s.Method
}

func (g *Game) Status() Status {
	return Status{
		Outcome: string(g.game.Outcome()),
		Method:  g.game.Method().String(),
	}
}

func (g *Game) IsOver() bool {
	return g.Status().IsOver()
}

// PGN is the game so far in portable game notation.
func (g *Game) PGN() string {
	return g.game.String()
}
