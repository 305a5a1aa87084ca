package engine

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cricklet/chessforge/internal/binary"
	. "github.com/cricklet/chessforge/internal/helpers"
	"github.com/cricklet/chessforge/internal/uci"
)

type engineInfo struct {
	name    string
	author  string
	options []uci.Option
}

// Session drives one engine over a Channel. Replies on the channel carry no
// request ids, so every exchange is queued and run one at a time in the order
// it was submitted: a job is only sent once the previous job's terminal line
// has been read.
//
// A single goroutine (run) owns the queue, the in-flight job and every write
// to the channel. Callers talk to it over channels.
type Session struct {
	name    string
	logger  Logger
	channel binary.Channel

	settings      []optionSetting
	skillLevel    Optional[int]
	searchTimeout Optional[time.Duration]

	state       atomic.Int32
	initStarted atomic.Bool

	infoMu sync.RWMutex
	info   engineInfo

	submits         chan job
	cancels         chan job
	lines           chan string
	transportClosed chan Error

	terminate     chan struct{}
	terminateOnce sync.Once
	done          chan struct{}
	stopped       chan struct{}

	// owned by run
	queue    []job
	inFlight job
	ready    bool
	skill    Optional[int]
}

func configureSession(options ...SessionOption) *Session {
	s := &Session{
		name:            "engine",
		submits:         make(chan job),
		cancels:         make(chan job),
		lines:           make(chan string),
		transportClosed: make(chan Error, 1),
		terminate:       make(chan struct{}),
		done:            make(chan struct{}),
		stopped:         make(chan struct{}),
	}

	for _, option := range options {
		option(s)
	}

	if s.logger == nil {
		s.logger = &DefaultLogger
	}

	return s
}

func (s *Session) attach(channel binary.Channel) {
	s.channel = channel
	channel.OnClose(s.receiveClose)
	channel.OnLine(s.receiveLine)
	go s.run()
}

// NewSession takes ownership of channel. The session must be initialized
// before it accepts searches.
func NewSession(channel binary.Channel, options ...SessionOption) *Session {
	s := configureSession(options...)
	s.attach(channel)
	return s
}

// StartSession runs the engine binary at cmdPath and initializes it.
func StartSession(ctx context.Context, cmdPath string, args []string, options ...SessionOption) (*Session, Error) {
	s := configureSession(options...)

	runner, err := binary.SetupBinaryRunner(cmdPath, filepath.Base(cmdPath), args, binary.WithLogger(s.logger))
	if err.HasError() {
		return nil, Errorf("start %v: %w: %w", cmdPath, ErrTransportClosed, err)
	}

	s.attach(runner)

	err = s.Initialize(ctx)
	if err.HasError() {
		return nil, err
	}
	return s, NilError
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}

func (s *Session) setInfo(info engineInfo) {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	s.info = info
}

func (s *Session) EngineName() string {
	s.infoMu.RLock()
	defer s.infoMu.RUnlock()
	return s.info.name
}

func (s *Session) EngineAuthor() string {
	s.infoMu.RLock()
	defer s.infoMu.RUnlock()
	return s.info.author
}

// Options are the settings the engine advertised during the handshake.
func (s *Session) Options() []uci.Option {
	s.infoMu.RLock()
	defer s.infoMu.RUnlock()
	return append([]uci.Option{}, s.info.options...)
}

// SkillRange is the advertised range of the Skill Level option, or 0..20
// when the engine didn't advertise one.
func (s *Session) SkillRange() (int, int) {
	option := FindInSlice(s.Options(), func(o uci.Option) bool {
		return o.Name == uci.SkillLevelOption
	})
	if option.HasValue() {
		return option.Value().Min.ValueOr(0), option.Value().Max.ValueOr(20)
	}
	return 0, 20
}

func (s *Session) validateSkill(level int) Error {
	lowest, highest := s.SkillRange()
	if level < lowest || level > highest {
		return Errorf("skill level %v outside %v..%v", level, lowest, highest)
	}
	return NilError
}

// Initialize performs the uci / isready handshake and applies the configured
// options. Searches submitted while it runs wait behind it. A failed
// handshake terminates the session.
func (s *Session) Initialize(ctx context.Context) Error {
	if s.State().isTerminal() {
		return Errorf("%v: initialize: %w", s.name, ErrTerminated)
	}
	if !s.initStarted.CompareAndSwap(false, true) {
		return Errorf("%v: %w", s.name, ErrAlreadyInitialized)
	}

	s.logger.Println(s.name, "initializing")

	result := s.await(ctx, newHandshakeJob(ctx, s.settings, s.skillLevel))
	if result.err.HasError() {
		s.Terminate()
		return Errorf("%v: initialize: %w", s.name, result.err)
	}

	s.logger.Printf("%v: ready (%v by %v)", s.name, s.EngineName(), s.EngineAuthor())
	return NilError
}

func (s *Session) checkUsable(operation string) Error {
	if s.State().isTerminal() {
		return Errorf("%v: %v: %w", s.name, operation, ErrTerminated)
	}
	if !s.initStarted.Load() {
		return Errorf("%v: %v: %w", s.name, operation, ErrNotInitialized)
	}
	return NilError
}

// RequestBestMove searches position and returns the engine's best move with
// the last evaluation it reported.
func (s *Session) RequestBestMove(ctx context.Context, position uci.Position, params uci.SearchParams) (SearchResult, Error) {
	return s.Search(ctx, SearchRequest{Position: position, Params: params})
}

// Search queues request behind any work already submitted. Concurrent callers
// each get the result of their own request.
func (s *Session) Search(ctx context.Context, request SearchRequest) (SearchResult, Error) {
	err := request.Params.Validate()
	if err.HasError() {
		return SearchResult{}, Errorf("%w: %w", ErrInvalidSearch, err)
	}
	if request.SkillLevel.HasValue() {
		err = s.validateSkill(request.SkillLevel.Value())
		if err.HasError() {
			return SearchResult{}, Errorf("%w: %w", ErrInvalidSearch, err)
		}
	}

	err = s.checkUsable("search")
	if err.HasError() {
		return SearchResult{}, err
	}

	if s.searchTimeout.HasValue() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.searchTimeout.Value())
		defer cancel()
	}

	result := s.await(ctx, newSearchJob(ctx, request))
	return result.search, result.err
}

// SetSkillLevel changes the engine's strength for later searches. Nothing is
// sent when the level is already in effect.
func (s *Session) SetSkillLevel(ctx context.Context, level int) Error {
	err := s.validateSkill(level)
	if err.HasError() {
		return Errorf("%w: %w", ErrInvalidOption, err)
	}

	err = s.checkUsable("set skill level")
	if err.HasError() {
		return err
	}

	return s.await(ctx, newSkillJob(ctx, level)).err
}

func (s *Session) SetOption(ctx context.Context, name string, value any) Error {
	if level, ok := value.(int); ok && name == uci.SkillLevelOption {
		return s.SetSkillLevel(ctx, level)
	}
	if name == "" {
		return Errorf("%w: empty option name", ErrInvalidOption)
	}

	err := s.checkUsable("set option")
	if err.HasError() {
		return err
	}

	return s.await(ctx, newSyncJob(ctx, "setoption "+name, uci.SetOptionCommand(name, value))).err
}

// NewGame tells the engine the next search belongs to a different game.
func (s *Session) NewGame(ctx context.Context) Error {
	err := s.checkUsable("new game")
	if err.HasError() {
		return err
	}

	return s.await(ctx, newSyncJob(ctx, "new game", uci.UciNewGameCommand())).err
}

// Terminate rejects queued and in-flight work, tells the engine to quit and
// closes the channel. It returns once the session has stopped and is safe to
// call more than once.
func (s *Session) Terminate() Error {
	s.terminateOnce.Do(func() {
		close(s.terminate)
	})
	<-s.stopped
	return NilError
}

// Done is closed once the session stops accepting work.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) await(ctx context.Context, j job) jobResult {
	b := j.base()

	select {
	case s.submits <- j:
	case <-s.done:
		return jobResult{err: Errorf("%v: %v: %w", s.name, b.label, ErrTerminated)}
	}

	select {
	case result := <-b.result:
		return result
	case <-ctx.Done():
	}

	select {
	case s.cancels <- j:
	case <-s.done:
	}

	// the loop settles every job it has accepted, including on shutdown
	return <-b.result
}

func (s *Session) receiveLine(line string) {
	select {
	case s.lines <- line:
	case <-s.done:
	}
}

func (s *Session) receiveClose(err Error) {
	select {
	case s.transportClosed <- err:
	case <-s.done:
	}
}
