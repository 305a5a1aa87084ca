package uci

import (
	"fmt"
	"strings"
	"time"

	. "github.com/cricklet/chessforge/internal/helpers"
)

const StartFen = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Position is what the engine searches: a serialized board plus any moves
// played from it. Fen is passed through verbatim.
type Position struct {
	Fen   string
	Moves []string
}

// SearchParams bounds one search by depth or by time, never both.
type SearchParams struct {
	Depth    Optional[int]
	Duration Optional[time.Duration]
}

func DepthParams(depth int) SearchParams {
	return SearchParams{Depth: Some(depth)}
}

func DurationParams(d time.Duration) SearchParams {
	return SearchParams{Duration: Some(d)}
}

func (p SearchParams) Validate() Error {
	if p.Depth.HasValue() && p.Duration.HasValue() {
		return Errorf("search params: depth and movetime are mutually exclusive")
	}
	if p.Depth.IsEmpty() && p.Duration.IsEmpty() {
		return Errorf("search params: no depth or movetime provided")
	}
	if p.Depth.HasValue() && p.Depth.Value() <= 0 {
		return Errorf("search params: depth %v must be positive", p.Depth.Value())
	}
	if p.Duration.HasValue() && p.Duration.Value() < time.Millisecond {
		return Errorf("search params: movetime %v must be at least 1ms", p.Duration.Value())
	}
	return NilError
}

func (p SearchParams) String() string {
	if p.Depth.HasValue() {
		return fmt.Sprintf("depth %v", p.Depth.Value())
	}
	if p.Duration.HasValue() {
		return fmt.Sprintf("movetime %v", p.Duration.Value())
	}
	return "unbounded"
}

func UciCommand() string {
	return "uci"
}

func IsReadyCommand() string {
	return "isready"
}

func UciNewGameCommand() string {
	return "ucinewgame"
}

func StopCommand() string {
	return "stop"
}

func QuitCommand() string {
	return "quit"
}

func PositionCommand(position Position) string {
	result := ""
	fen := strings.TrimSpace(position.Fen)
	if fen == "" || fen == "startpos" {
		result = "position startpos"
	} else {
		result = "position fen " + fen
	}

	if len(position.Moves) > 0 {
		result += " moves " + strings.Join(position.Moves, " ")
	}
	return result
}

func GoCommand(params SearchParams) (string, Error) {
	err := params.Validate()
	if err.HasError() {
		return "", err
	}

	if params.Depth.HasValue() {
		return fmt.Sprint("go depth ", params.Depth.Value()), NilError
	}
	return fmt.Sprint("go movetime ", params.Duration.Value().Milliseconds()), NilError
}

func SetOptionCommand(name string, value any) string {
	return fmt.Sprintf("setoption name %v value %v", name, value)
}

const SkillLevelOption = "Skill Level"

func SkillLevelCommand(level int) string {
	return SetOptionCommand(SkillLevelOption, level)
}
