package uci

import (
	"fmt"
	"math"
)

type ScoreKind int

const (
	Centipawns ScoreKind = iota
	Mate
)

func (k ScoreKind) String() string {
	switch k {
	case Centipawns:
		return "cp"
	case Mate:
		return "mate"
	}
	return "unknown"
}

func (k ScoreKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ScoreKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "cp":
		*k = Centipawns
	case "mate":
		*k = Mate
	default:
		return fmt.Errorf("unknown score kind %q", text)
	}
	return nil
}

type ScoreBound int

const (
	Exact ScoreBound = iota
	LowerBound
	UpperBound
)

// Score is an engine evaluation from the point of view of the side to move.
// A centipawn score is material-ish advantage, a mate score is the signed
// number of moves to a forced mate. Exactly one kind is ever set.
type Score struct {
	Kind  ScoreKind  `json:"kind"`
	Value int        `json:"value"`
	Bound ScoreBound `json:"bound,omitempty"`
}

func CentipawnScore(cp int) Score {
	return Score{Kind: Centipawns, Value: cp}
}

func MateScore(moves int) Score {
	return Score{Kind: Mate, Value: moves}
}

func (s Score) IsMate() bool {
	return s.Kind == Mate
}

// ForWhite converts a side-to-move score to White's point of view.
func (s Score) ForWhite(whiteToMove bool) Score {
	if whiteToMove {
		return s
	}
	s.Value = -s.Value
	switch s.Bound {
	case LowerBound:
		s.Bound = UpperBound
	case UpperBound:
		s.Bound = LowerBound
	}
	return s
}

// String renders scores the way the eval bar shows them: M3, M-2, +0.3, -1.2.
func (s Score) String() string {
	if s.Kind == Mate {
		return fmt.Sprintf("M%d", s.Value)
	}
	// round first so a few centipawns either way read as 0.0
	tenths := math.Round(float64(s.Value) / 10)
	switch {
	case tenths > 0:
		return fmt.Sprintf("+%.1f", tenths/10)
	case tenths < 0:
		return fmt.Sprintf("%.1f", tenths/10)
	}
	return "0.0"
}

// ScoreString is the long form used in logs: cp+35, mate-1.
func ScoreString(s Score) string {
	return fmt.Sprintf("%v%+d", s.Kind, s.Value)
}

// WinPercentage maps a score to the side's chance of winning, 0 to 100.
func (s Score) WinPercentage() float64 {
	if s.IsMate() {
		if s.Value > 0 {
			return 100
		}
		return 0
	}
	return 50.0 + 50.0*(2.0/(1.0+math.Exp(-0.00368208*float64(s.Value)))-1.0)
}
