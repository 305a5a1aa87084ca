package game

import (
	"strings"

	. "github.com/cricklet/chessforge/internal/helpers"
	"github.com/notnil/chess"
)

// Epd is a test position: a board plus the moves a good engine should
// (bm) or shouldn't (am) play.
type Epd struct {
	ID         string
	Fen        string
	BestMoves  []string
	AvoidMoves []string
}

// EpdToFen keeps the four board fields of an EPD line and fills in the move
// counters.
func EpdToFen(epd string) string {
	parts := strings.Fields(epd)
	if len(parts) > 4 {
		parts = parts[:4]
	}
	return strings.Join(parts, " ") + " 0 1"
}

func isFen(line string) bool {
	fields := strings.Fields(line)
	return !strings.Contains(line, ";") && len(fields) == 6
}

func trimSan(san string) string {
	return strings.TrimRight(san, "+#!?")
}

// moveFromSan converts a move like Nxe5+ into coordinate notation.
func moveFromSan(g *Game, san string) (string, Error) {
	position := g.game.Position()
	found := FindInSlice(g.game.ValidMoves(), func(m *chess.Move) bool {
		return trimSan(chess.AlgebraicNotation{}.Encode(position, m)) == trimSan(san)
	})
	if found.IsEmpty() {
		return "", Errorf("no move %v in %v", san, g.Fen())
	}
	return found.Value().String(), NilError
}

// ParseEpd parses an EPD line. Plain FEN lines are accepted and have no
// expected moves.
func ParseEpd(line string) (Epd, Error) {
	line = strings.TrimSpace(line)
	if isFen(line) {
		_, err := NewGame(line)
		return Epd{Fen: line}, err
	}

	epd := Epd{Fen: EpdToFen(line)}
	g, err := NewGame(epd.Fen)
	if err.HasError() {
		return epd, Errorf("epd %q: %w", line, err)
	}

	fields := strings.Fields(line)
	if len(fields) <= 4 {
		return epd, NilError
	}

	for _, operation := range strings.Split(strings.Join(fields[4:], " "), ";") {
		opcode, operands, _ := strings.Cut(strings.TrimSpace(operation), " ")
		switch opcode {
		case "bm", "am":
			for _, san := range strings.FieldsFunc(operands, func(r rune) bool { return r == ' ' || r == ',' }) {
				move, err := moveFromSan(g, san)
				if err.HasError() {
					return epd, Errorf("epd %q: %w", line, err)
				}
				if opcode == "bm" {
					epd.BestMoves = append(epd.BestMoves, move)
				} else {
					epd.AvoidMoves = append(epd.AvoidMoves, move)
				}
			}
		case "id":
			epd.ID = strings.Trim(operands, `"`)
		}
	}

	return epd, NilError
}

func (e Epd) HasExpectation() bool {
	return len(e.BestMoves) > 0 || len(e.AvoidMoves) > 0
}

// Solved reports whether move is one of the best moves and none of the
// moves to avoid.
func (e Epd) Solved(move string) bool {
	if Contains(e.AvoidMoves, move) {
		return false
	}
	if len(e.BestMoves) > 0 {
		return Contains(e.BestMoves, move)
	}
	return true
}
