package engine

import (
	. "github.com/cricklet/chessforge/internal/helpers"
	"github.com/cricklet/chessforge/internal/uci"
)

func (s *Session) run() {
	defer func() {
		s.setState(Terminated)
		close(s.done)

		err := s.channel.Close()
		if err.HasError() {
			s.logger.Println(s.name, "close:", err)
		}
		close(s.stopped)
		s.logger.Println(s.name, "terminated")
	}()

	for {
		result := LoopContinue

		select {
		case j := <-s.submits:
			s.queue = append(s.queue, j)
			if j.state() == HandshakeInProgress {
				s.setState(HandshakeInProgress)
			}
		case line := <-s.lines:
			result = s.receive(line)
		case j := <-s.cancels:
			result = s.cancel(j)
		case err := <-s.transportClosed:
			s.shutdown(Errorf("%v: %w: %w", s.name, ErrTransportClosed, err), false)
			return
		case <-s.terminate:
			s.shutdown(Errorf("%v: %w", s.name, ErrTerminated), true)
			return
		}

		if result == LoopContinue {
			result = s.dispatch()
		}
		if result == LoopBreak {
			return
		}
	}
}

func (s *Session) send(commands []string) LoopResult {
	for _, command := range commands {
		err := s.channel.Send(command)
		if err.HasError() {
			s.shutdown(Errorf("%v: %w: %w", s.name, ErrTransportClosed, err), false)
			return LoopBreak
		}
	}
	return LoopContinue
}

// promoteHandshake moves a queued handshake to the front. Nothing else may
// reach the engine before it.
func (s *Session) promoteHandshake() bool {
	for i, j := range s.queue {
		if _, ok := j.(*handshakeJob); ok {
			copy(s.queue[1:i+1], s.queue[:i])
			s.queue[0] = j
			return true
		}
	}
	return false
}

// dispatch starts queued jobs until one is waiting on the engine.
func (s *Session) dispatch() LoopResult {
	for s.inFlight == nil && len(s.queue) > 0 {
		if !s.ready && !s.promoteHandshake() {
			break
		}

		j := s.queue[0]
		s.queue = s.queue[1:]

		b := j.base()
		if b.ctx.Err() != nil {
			b.fail(Wrap(b.ctx.Err()))
			continue
		}

		commands, done := j.start(s)
		if s.send(commands) == LoopBreak {
			b.fail(Errorf("%v: %v: %w", s.name, b.label, ErrTransportClosed))
			return LoopBreak
		}
		if !done {
			s.inFlight = j
			s.setState(j.state())
		}
	}

	if s.inFlight == nil {
		if s.ready {
			s.setState(Idle)
		} else {
			s.setState(Uninitialized)
		}
	}
	return LoopContinue
}

func (s *Session) receive(line string) LoopResult {
	if s.inFlight == nil {
		if len(line) > 0 {
			s.logger.Println(s.name, "ignoring unsolicited line:", Ellipses(line, 80))
		}
		return LoopContinue
	}

	j := s.inFlight
	commands, done := j.handle(s, line)
	if done {
		s.inFlight = nil
		if j.base().cancelled {
			s.logger.Println(s.name, "drained", j.base())
		}
	}
	return s.send(commands)
}

// cancel settles a job whose caller stopped waiting. A queued job is dropped
// before it reaches the engine. A running search is stopped, but it stays in
// flight until its bestmove line is read so that the line can't be taken as
// the reply to the next job.
func (s *Session) cancel(j job) LoopResult {
	b := j.base()
	if b.settled {
		return LoopContinue
	}

	err := Wrap(b.ctx.Err())
	if err.IsNil() {
		err = Errorf("%v: cancelled", b.label)
	}

	if s.inFlight != j {
		s.queue = FilterSlice(s.queue, func(other job) bool {
			return other != j
		})
		b.fail(err)
		return LoopContinue
	}

	b.cancelled = true
	b.fail(err)

	switch j.(type) {
	case *handshakeJob:
		s.shutdown(Errorf("%v: %w", s.name, ErrTerminated), true)
		return LoopBreak
	case *searchJob:
		if !b.stopSent {
			b.stopSent = true
			s.logger.Println(s.name, "stopping", b)
			return s.send([]string{uci.StopCommand()})
		}
	}
	return LoopContinue
}

// shutdown rejects all outstanding work with reason.
func (s *Session) shutdown(reason Error, quit bool) {
	s.setState(Draining)
	s.logger.Println(s.name, "draining:", reason.Error())

	searching := false
	if s.inFlight != nil {
		_, searching = s.inFlight.(*searchJob)
		s.inFlight.base().fail(reason)
		s.inFlight = nil
	}
	for _, j := range s.queue {
		j.base().fail(reason)
	}
	s.queue = nil

	if !quit {
		return
	}

	commands := []string{uci.QuitCommand()}
	if searching {
		commands = []string{uci.StopCommand(), uci.QuitCommand()}
	}
	for _, command := range commands {
		err := s.channel.Send(command)
		if err.HasError() {
			s.logger.Println(s.name, "send", command, "while draining:", err.Error())
			return
		}
	}
}

// skillCommands is the setoption needed to put the engine at level, if it
// isn't there already.
func (s *Session) skillCommands(level int) []string {
	if s.skill.HasValue() && s.skill.Value() == level {
		return nil
	}
	s.skill = Some(level)
	return []string{uci.SkillLevelCommand(level)}
}
