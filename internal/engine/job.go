package engine

import (
	"context"

	. "github.com/cricklet/chessforge/internal/helpers"
	"github.com/cricklet/chessforge/internal/uci"
	"github.com/oklog/ulid/v2"
)

type SearchRequest struct {
	Position   uci.Position
	Params     uci.SearchParams
	SkillLevel Optional[int]
}

type SearchResult struct {
	BestMove Optional[uci.Move]
	Ponder   Optional[uci.Move]
	// Score is from the side to move's point of view, as last reported by
	// the primary line of the search.
	Score Optional[uci.Score]
	Depth int
	Nodes int64
	PV    []string
}

// NoMove is a valid result: the side to move has no legal moves.
func (r SearchResult) NoMove() bool {
	return r.BestMove.IsEmpty()
}

type jobResult struct {
	search SearchResult
	err    Error
}

// job is one exchange with the engine: the commands sent when it reaches the
// front of the queue, and the replies that complete it. Only the session loop
// touches a job after it has been submitted.
type job interface {
	base() *jobBase
	state() State
	// start returns the commands to send. done is true when the job settled
	// without needing the engine.
	start(s *Session) (commands []string, done bool)
	// handle consumes one inbound line. done is true on the job's terminal
	// line.
	handle(s *Session, line string) (commands []string, done bool)
}

type jobBase struct {
	id    ulid.ULID
	label string
	ctx   context.Context

	result  chan jobResult
	settled bool

	// set once the caller gave up. the job stays in flight until its
	// terminal line has been drained.
	cancelled bool
	stopSent  bool
}

func newJobBase(ctx context.Context, label string) jobBase {
	return jobBase{
		id:     ulid.Make(),
		label:  label,
		ctx:    ctx,
		result: make(chan jobResult, 1),
	}
}

func (j *jobBase) base() *jobBase {
	return j
}

func (j *jobBase) settle(result jobResult) {
	if j.settled {
		return
	}
	j.settled = true
	j.result <- result
}

func (j *jobBase) fail(err Error) {
	j.settle(jobResult{err: err})
}

func (j *jobBase) String() string {
	return j.label + " " + j.id.String()
}

type handshakeJob struct {
	jobBase

	settings []optionSetting
	skill    Optional[int]

	receivedUciOk bool
	info          engineInfo
}

var _ job = (*handshakeJob)(nil)

func newHandshakeJob(ctx context.Context, settings []optionSetting, skill Optional[int]) *handshakeJob {
	return &handshakeJob{
		jobBase:  newJobBase(ctx, "initialize"),
		settings: settings,
		skill:    skill,
	}
}

func (j *handshakeJob) state() State {
	return HandshakeInProgress
}

func (j *handshakeJob) start(s *Session) ([]string, bool) {
	return []string{uci.UciCommand()}, false
}

func (j *handshakeJob) advertised(name string) bool {
	if len(j.info.options) == 0 {
		return true
	}
	return FindInSlice(j.info.options, func(o uci.Option) bool {
		return o.Name == name
	}).HasValue()
}

func (j *handshakeJob) configure(s *Session) []string {
	commands := []string{}
	for _, setting := range j.settings {
		if !j.advertised(setting.name) {
			s.logger.Printf("%v: engine has no option %q, skipping", s.name, setting.name)
			continue
		}
		commands = append(commands, uci.SetOptionCommand(setting.name, setting.value))
	}

	if j.skill.HasValue() && j.advertised(uci.SkillLevelOption) {
		commands = append(commands, uci.SkillLevelCommand(j.skill.Value()))
		s.skill = j.skill
	}

	return append(commands, uci.IsReadyCommand())
}

func (j *handshakeJob) handle(s *Session, line string) ([]string, bool) {
	if !j.receivedUciOk {
		if key, value, ok := uci.ParseID(line); ok {
			if key == "name" {
				j.info.name = value
			} else {
				j.info.author = value
			}
		} else if option, ok := uci.ParseOption(line); ok {
			j.info.options = append(j.info.options, option)
		} else if uci.IsUciHandshakeComplete(line) {
			j.receivedUciOk = true
			s.setInfo(j.info)
			return j.configure(s), false
		}
		return nil, false
	}

	if uci.IsReady(line) {
		s.ready = true
		j.settle(jobResult{})
		return nil, true
	}
	return nil, false
}

type searchJob struct {
	jobBase

	request SearchRequest
	result  SearchResult
}

var _ job = (*searchJob)(nil)

func newSearchJob(ctx context.Context, request SearchRequest) *searchJob {
	return &searchJob{
		jobBase: newJobBase(ctx, "search "+request.Params.String()),
		request: request,
	}
}

func (j *searchJob) state() State {
	return SearchInProgress
}

func (j *searchJob) start(s *Session) ([]string, bool) {
	goCommand, err := uci.GoCommand(j.request.Params)
	if err.HasError() {
		j.fail(Errorf("%w: %w", ErrInvalidSearch, err))
		return nil, true
	}

	commands := []string{}
	if j.request.SkillLevel.HasValue() {
		commands = append(commands, s.skillCommands(j.request.SkillLevel.Value())...)
	}

	j.result = SearchResult{}
	return append(commands, uci.PositionCommand(j.request.Position), goCommand), false
}

func (j *searchJob) handle(s *Session, line string) ([]string, bool) {
	if uci.IsInfo(line) {
		info, _ := uci.ParseInfo(line)
		// secondary lines of a multipv search describe other moves
		if info.MultiPV > 1 {
			return nil, false
		}
		if info.Score.HasValue() {
			j.result.Score = info.Score
		}
		if info.Depth > 0 {
			j.result.Depth = info.Depth
		}
		if info.Nodes > 0 {
			j.result.Nodes = info.Nodes
		}
		if len(info.PV) > 0 {
			j.result.PV = info.PV
		}
		return nil, false
	}

	if !uci.IsBestMove(line) {
		return nil, false
	}

	bestMove, err := uci.ExtractBestMove(line)
	if err.HasError() {
		j.fail(Errorf("%v: %w: %w", s.name, ErrMalformedLine, err))
		return nil, true
	}

	j.result.BestMove = bestMove.Move
	j.result.Ponder = bestMove.Ponder
	j.settle(jobResult{search: j.result})
	return nil, true
}

// syncJob sends commands that have no reply of their own, then waits for the
// engine to acknowledge an isready probe.
type syncJob struct {
	jobBase

	commands []string
	skill    Optional[int]
}

var _ job = (*syncJob)(nil)

func newSyncJob(ctx context.Context, label string, commands ...string) *syncJob {
	return &syncJob{
		jobBase:  newJobBase(ctx, label),
		commands: commands,
	}
}

func newSkillJob(ctx context.Context, level int) *syncJob {
	j := newSyncJob(ctx, "skill level")
	j.skill = Some(level)
	return j
}

func (j *syncJob) state() State {
	return SyncInProgress
}

func (j *syncJob) start(s *Session) ([]string, bool) {
	commands := append([]string{}, j.commands...)
	if j.skill.HasValue() {
		commands = append(commands, s.skillCommands(j.skill.Value())...)
	}

	if len(commands) == 0 {
		j.settle(jobResult{})
		return nil, true
	}
	return append(commands, uci.IsReadyCommand()), false
}

func (j *syncJob) handle(s *Session, line string) ([]string, bool) {
	if uci.IsReady(line) {
		j.settle(jobResult{})
		return nil, true
	}
	return nil, false
}
