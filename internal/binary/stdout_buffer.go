package binary

import (
	"sync"

	. "github.com/cricklet/chessforge/internal/helpers"
)

// StdOutBuffer is an unbounded, ordered queue of output lines. The reader
// never blocks on a slow consumer; the consumer drains everything buffered
// so far with Flush and parks on Wait.
type StdOutBuffer struct {
	lock    sync.Mutex
	buffer  []string
	updated chan struct{}

	finished bool
	err      Error
}

func NewStdOutBuffer() *StdOutBuffer {
	return &StdOutBuffer{updated: make(chan struct{}, 1)}
}

func (u *StdOutBuffer) notify() {
	select {
	case u.updated <- struct{}{}:
	default:
	}
}

func (u *StdOutBuffer) Update(line string) {
	u.lock.Lock()
	u.buffer = append(u.buffer, line)
	u.lock.Unlock()

	u.notify()
}

// Finish marks the end of the stream. Lines buffered before Finish are
// still returned by Flush.
func (u *StdOutBuffer) Finish(err Error) {
	u.lock.Lock()
	if !u.finished {
		u.finished = true
		u.err = err
	}
	u.lock.Unlock()

	u.notify()
}

// Flush hands every buffered line to callback, in order, outside the lock.
// It reports whether the stream finished and nothing is left to read.
func (u *StdOutBuffer) Flush(callback func(line string)) (bool, Error) {
	u.lock.Lock()
	lines := u.buffer
	u.buffer = nil
	finished := u.finished
	err := u.err
	u.lock.Unlock()

	for _, line := range lines {
		callback(line)
	}

	return finished, err
}

func (u *StdOutBuffer) Wait() <-chan struct{} {
	return u.updated
}
