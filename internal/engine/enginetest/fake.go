// Package enginetest runs a scripted in-memory UCI engine for tests.
package enginetest

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/cricklet/chessforge/internal/binary"
	. "github.com/cricklet/chessforge/internal/helpers"
)

// Responder returns the lines the engine prints for a search. position is
// the last position command, goCommand the go command that started it.
type Responder func(position string, goCommand string) []string

// EchoLastMove answers every search with the last move of the position, or
// e2e4 from a position without moves.
func EchoLastMove(position string, goCommand string) []string {
	move := "e2e4"
	fields := strings.Fields(position)
	if len(fields) > 0 && Contains(fields, "moves") {
		move = Last(fields)
	}
	return []string{
		"info depth 1 seldepth 1 multipv 1 score cp 10 nodes 20 nps 2000 time 1 pv " + move,
		"bestmove " + move,
	}
}

// Engine speaks UCI over a pair of pipes. Its Channel is a real
// binary.LineChannel, so sessions under test see the same delivery
// guarantees as with an engine process.
type Engine struct {
	channel *binary.LineChannel

	commands *io.PipeReader
	replies  *io.PipeWriter
	writeMu  sync.Mutex

	mu         sync.Mutex
	sent       []string
	position   string
	searching  bool
	held       Optional[string]
	violations []string
	changed    chan struct{}

	name    string
	options []string
	respond Responder
	hold    bool
	noReady bool
	noUciOk bool
	noStop  bool
	logger  Logger

	done chan struct{}
}

type Option func(*Engine)

func WithResponder(respond Responder) Option {
	return func(e *Engine) {
		e.respond = respond
	}
}

// WithHeldSearches makes the engine sit on every go command until Release or
// a stop command.
func WithHeldSearches() Option {
	return func(e *Engine) {
		e.hold = true
	}
}

// WithoutReadyOk makes the engine ignore isready.
func WithoutReadyOk() Option {
	return func(e *Engine) {
		e.noReady = true
	}
}

// WithIgnoredStop makes a held search ignore stop, so only Release ends it.
func WithIgnoredStop() Option {
	return func(e *Engine) {
		e.noStop = true
	}
}

// WithoutUciOk makes the engine never finish the uci handshake.
func WithoutUciOk() Option {
	return func(e *Engine) {
		e.noUciOk = true
	}
}

func WithOptionLines(lines ...string) Option {
	return func(e *Engine) {
		e.options = lines
	}
}

func WithLogger(logger Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

var DefaultOptionLines = []string{
	"option name Threads type spin default 1 min 1 max 1024",
	"option name Hash type spin default 16 min 1 max 33554432",
	"option name Clear Hash type button",
	"option name Skill Level type spin default 20 min 0 max 20",
	"option name UCI_ShowWDL type check default false",
}

func NewEngine(options ...Option) *Engine {
	commandsReader, commandsWriter := io.Pipe()
	repliesReader, repliesWriter := io.Pipe()

	e := &Engine{
		commands: commandsReader,
		replies:  repliesWriter,
		changed:  make(chan struct{}),
		name:     "Fakefish 1.0",
		options:  DefaultOptionLines,
		respond:  EchoLastMove,
		done:     make(chan struct{}),
	}

	for _, option := range options {
		option(e)
	}

	if e.logger == nil {
		e.logger = &SilentLogger
	}

	e.channel = binary.NewLineChannel("fake", repliesReader, commandsWriter, binary.WithChannelLogger(e.logger))

	go e.serve()
	return e
}

func (e *Engine) Channel() *binary.LineChannel {
	return e.channel
}

func (e *Engine) serve() {
	defer close(e.done)
	defer e.replies.Close()

	scanner := bufio.NewScanner(e.commands)
	for scanner.Scan() {
		if e.handle(scanner.Text()) == LoopBreak {
			return
		}
	}
}

func (e *Engine) write(lines ...string) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	for _, line := range lines {
		_, err := io.WriteString(e.replies, line+"\n")
		if err != nil {
			return
		}
	}
}

// notify wakes anyone in WaitFor. Requires mu.
func (e *Engine) notify() {
	close(e.changed)
	e.changed = make(chan struct{})
}

func (e *Engine) handle(command string) LoopResult {
	e.mu.Lock()
	e.sent = append(e.sent, command)
	e.notify()

	fields := strings.Fields(command)
	if len(fields) == 0 {
		e.mu.Unlock()
		return LoopContinue
	}

	reply := []string{}
	result := LoopContinue

	switch fields[0] {
	case "uci":
		reply = append(reply, "id name "+e.name, "id author enginetest")
		reply = append(reply, e.options...)
		if !e.noUciOk {
			reply = append(reply, "uciok")
		}
	case "isready":
		if !e.noReady {
			reply = append(reply, "readyok")
		}
	case "position":
		if e.searching {
			e.violations = append(e.violations, command)
		}
		e.position = command
	case "go":
		if e.searching {
			e.violations = append(e.violations, command)
		}
		e.searching = true
		if e.hold {
			e.held = Some(command)
		} else {
			reply = e.respond(e.position, command)
			e.searching = false
		}
	case "stop":
		if e.held.HasValue() && !e.noStop {
			reply = e.respond(e.position, e.held.Value())
			e.held = Empty[string]()
			e.searching = false
		}
	case "quit":
		result = LoopBreak
	}
	e.mu.Unlock()

	e.write(reply...)
	return result
}

// Release finishes a held search as if it had run to completion.
func (e *Engine) Release() bool {
	e.mu.Lock()
	if e.held.IsEmpty() {
		e.mu.Unlock()
		return false
	}
	reply := e.respond(e.position, e.held.Value())
	e.held = Empty[string]()
	e.searching = false
	e.mu.Unlock()

	e.write(reply...)
	return true
}

// Searching is true while a go command hasn't been answered.
func (e *Engine) Searching() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.searching
}

// Emit prints lines as if the engine produced them unprompted.
func (e *Engine) Emit(lines ...string) {
	e.write(lines...)
}

// Crash breaks both pipes, like the process dying.
func (e *Engine) Crash() {
	crashed := errors.New("engine crashed")
	e.replies.CloseWithError(crashed)
	e.commands.CloseWithError(crashed)
}

func (e *Engine) Sent() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string{}, e.sent...)
}

// Count is the number of commands received that start with prefix.
func (e *Engine) Count(prefix string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(FilterSlice(e.sent, func(command string) bool {
		return strings.HasPrefix(command, prefix)
	}))
}

// WaitFor blocks until count commands starting with prefix were received,
// or done is closed. It reports whether the count was reached.
func (e *Engine) WaitFor(prefix string, count int, done <-chan struct{}) bool {
	for {
		e.mu.Lock()
		n := len(FilterSlice(e.sent, func(command string) bool {
			return strings.HasPrefix(command, prefix)
		}))
		changed := e.changed
		e.mu.Unlock()

		if n >= count {
			return true
		}

		select {
		case <-changed:
		case <-done:
			return false
		}
	}
}

// Violations are position or go commands received while a search was still
// running.
func (e *Engine) Violations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string{}, e.violations...)
}

// Done is closed when the engine stops reading commands.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}
