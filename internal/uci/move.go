package uci

import (
	"strings"

	. "github.com/cricklet/chessforge/internal/helpers"
)

// Move is a move in coordinate notation: origin square, destination square
// and an optional promotion piece (q, r, b, n).
type Move struct {
	From      string
	To        string
	Promotion Optional[string]
}

func isSquare(s string) bool {
	return len(s) == 2 && s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

func ParseMove(s string) (Move, Error) {
	if len(s) != 4 && len(s) != 5 {
		return Move{}, Errorf("move %q: expected 4-5 characters", s)
	}

	from, to := s[0:2], s[2:4]
	if !isSquare(from) || !isSquare(to) {
		return Move{}, Errorf("move %q: invalid squares", s)
	}

	move := Move{From: from, To: to}
	if len(s) == 5 {
		promotion := strings.ToLower(s[4:5])
		if !strings.Contains("qrbn", promotion) {
			return Move{}, Errorf("move %q: invalid promotion %q", s, promotion)
		}
		move.Promotion = Some(promotion)
	}

	return move, NilError
}

func (m Move) String() string {
	return m.From + m.To + m.Promotion.ValueOr("")
}
