package engine

import (
	"time"

	. "github.com/cricklet/chessforge/internal/helpers"
	"github.com/cricklet/chessforge/internal/uci"
)

type optionSetting struct {
	name  string
	value any
}

type SessionOption func(*Session)

// WithName sets the name used in log lines.
func WithName(name string) SessionOption {
	return func(s *Session) {
		s.name = name
	}
}

func WithLogger(logger Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithSearchTimeout bounds every search. When it expires the engine is told
// to stop and the caller gets context.DeadlineExceeded.
func WithSearchTimeout(timeout time.Duration) SessionOption {
	return func(s *Session) {
		if timeout > 0 {
			s.searchTimeout = Some(timeout)
		}
	}
}

// WithOption is sent as a setoption command during the handshake.
func WithOption(name string, value any) SessionOption {
	return func(s *Session) {
		if name == uci.SkillLevelOption {
			if level, ok := value.(int); ok {
				s.skillLevel = Some(level)
				return
			}
		}
		s.settings = append(s.settings, optionSetting{name, value})
	}
}

func WithThreads(threads int) SessionOption {
	return WithOption("Threads", threads)
}

func WithHash(megabytes int) SessionOption {
	return WithOption("Hash", megabytes)
}

func WithSkillLevel(level int) SessionOption {
	return func(s *Session) {
		s.skillLevel = Some(level)
	}
}
