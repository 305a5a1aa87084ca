package uci

import (
	"strconv"
	"strings"

	. "github.com/cricklet/chessforge/internal/helpers"
)

func IsReady(line string) bool {
	return strings.TrimSpace(line) == "readyok"
}

func IsUciHandshakeComplete(line string) bool {
	return strings.TrimSpace(line) == "uciok"
}

func IsBestMove(line string) bool {
	fields := strings.Fields(line)
	return len(fields) > 0 && fields[0] == "bestmove"
}

func IsInfo(line string) bool {
	fields := strings.Fields(line)
	return len(fields) > 0 && fields[0] == "info"
}

type BestMove struct {
	Move   Optional[Move]
	Ponder Optional[Move]
}

// NoMove is true when the engine had nothing to play, eg. the game is
// already decided.
func (b BestMove) NoMove() bool {
	return b.Move.IsEmpty()
}

func isNoMoveToken(token string) bool {
	return token == "(none)" || token == "none" || token == "0000"
}

// ExtractBestMove parses `bestmove <move> [ponder <move>]`.
func ExtractBestMove(line string) (BestMove, Error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "bestmove" {
		return BestMove{}, Errorf("not a bestmove line: %q", line)
	}

	result := BestMove{}
	if len(fields) < 2 || isNoMoveToken(fields[1]) {
		return result, NilError
	}

	move, err := ParseMove(fields[1])
	if err.HasError() {
		return result, Errorf("bestmove line %q: %w", line, err)
	}
	result.Move = Some(move)

	if len(fields) >= 4 && fields[2] == "ponder" && !isNoMoveToken(fields[3]) {
		ponder, err := ParseMove(fields[3])
		if err.HasError() {
			// the best move is still usable without the ponder move
			return result, NilError
		}
		result.Ponder = Some(ponder)
	}

	return result, NilError
}

// Info is the subset of a search-progress line we care about. Fields that
// weren't on the line are left at zero / empty.
type Info struct {
	Depth    int
	SelDepth int
	MultiPV  int
	Score    Optional[Score]
	Nodes    int64
	NPS      int64
	Time     int
	PV       []string
}

func parseIntField(fields []string, i int) (int, bool) {
	if i >= len(fields) {
		return 0, false
	}
	v, err := strconv.Atoi(fields[i])
	return v, err == nil
}

func parseInt64Field(fields []string, i int) (int64, bool) {
	if i >= len(fields) {
		return 0, false
	}
	v, err := strconv.ParseInt(fields[i], 10, 64)
	return v, err == nil
}

// ParseInfo parses an `info ...` line. It returns false for any other line.
// Unknown tokens are skipped; `info string` ends parsing since the rest of
// the line is free text.
func ParseInfo(line string) (Info, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "info" {
		return Info{}, false
	}

	info := Info{}
	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "string":
			return info, true
		case "depth":
			if v, ok := parseIntField(fields, i+1); ok {
				info.Depth = v
				i++
			}
		case "seldepth":
			if v, ok := parseIntField(fields, i+1); ok {
				info.SelDepth = v
				i++
			}
		case "multipv":
			if v, ok := parseIntField(fields, i+1); ok {
				info.MultiPV = v
				i++
			}
		case "time":
			if v, ok := parseIntField(fields, i+1); ok {
				info.Time = v
				i++
			}
		case "nodes":
			if v, ok := parseInt64Field(fields, i+1); ok {
				info.Nodes = v
				i++
			}
		case "nps":
			if v, ok := parseInt64Field(fields, i+1); ok {
				info.NPS = v
				i++
			}
		case "score":
			score, consumed, ok := parseScore(fields[i+1:])
			if ok {
				info.Score = Some(score)
			}
			i += consumed
		case "pv":
			info.PV = append([]string{}, fields[i+1:]...)
			return info, true
		}
	}

	return info, true
}

func parseScore(fields []string) (Score, int, bool) {
	if len(fields) < 2 {
		return Score{}, len(fields), false
	}

	value, err := strconv.Atoi(fields[1])
	if err != nil {
		return Score{}, 1, false
	}

	score := Score{Value: value}
	switch fields[0] {
	case "cp":
		score.Kind = Centipawns
	case "mate":
		score.Kind = Mate
	default:
		return Score{}, 1, false
	}

	consumed := 2
	if len(fields) > 2 {
		switch fields[2] {
		case "lowerbound":
			score.Bound = LowerBound
			consumed++
		case "upperbound":
			score.Bound = UpperBound
			consumed++
		}
	}

	return score, consumed, true
}

// ExtractScore returns the score on an info line, or empty when the line has
// no score field.
func ExtractScore(line string) Optional[Score] {
	info, ok := ParseInfo(line)
	if !ok {
		return Empty[Score]()
	}
	return info.Score
}

// ParseID parses `id name <name>` and `id author <author>`.
func ParseID(line string) (string, string, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "id" {
		return "", "", false
	}
	if fields[1] != "name" && fields[1] != "author" {
		return "", "", false
	}
	return fields[1], strings.Join(fields[2:], " "), true
}

// Option is an engine setting advertised during the handshake.
type Option struct {
	Name    string
	Type    string
	Default string
	Min     Optional[int]
	Max     Optional[int]
	Vars    []string
}

var _optionKeywords = []string{"name", "type", "default", "min", "max", "var"}

// ParseOption parses `option name <name> type <type> [default ..] [min ..]
// [max ..] [var ..]*`. Names and defaults may contain spaces.
func ParseOption(line string) (Option, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "option" || fields[1] != "name" {
		return Option{}, false
	}

	values := map[string][]string{}
	option := Option{}
	key := ""
	current := []string{}

	flushValue := func() {
		if key == "" {
			return
		}
		value := strings.Join(current, " ")
		if key == "var" {
			option.Vars = append(option.Vars, value)
		} else {
			values[key] = current
		}
		current = []string{}
	}

	for _, field := range fields[1:] {
		isKeyword := Contains(_optionKeywords, field)
		// names may contain keywords, only "type" ends them
		if key == "name" {
			isKeyword = field == "type"
		}
		if isKeyword {
			flushValue()
			key = field
			continue
		}
		current = append(current, field)
	}
	flushValue()

	option.Name = strings.Join(values["name"], " ")
	option.Type = strings.Join(values["type"], " ")
	option.Default = strings.Join(values["default"], " ")
	if v, err := strconv.Atoi(strings.Join(values["min"], "")); err == nil {
		option.Min = Some(v)
	}
	if v, err := strconv.Atoi(strings.Join(values["max"], "")); err == nil {
		option.Max = Some(v)
	}

	if option.Name == "" {
		return Option{}, false
	}
	return option, true
}
