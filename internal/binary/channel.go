package binary

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync"

	. "github.com/cricklet/chessforge/internal/helpers"
	"golang.org/x/sync/errgroup"
)

var ErrChannelClosed = errors.New("engine channel closed")

// Channel is a bidirectional, line-oriented connection to an engine. Replies
// are not paired with commands: every inbound line goes to the one listener.
type Channel interface {
	// Send writes one command line. It doesn't wait for any reply.
	Send(command string) Error
	// OnLine registers the listener for inbound lines. Lines are delivered
	// one at a time, in the order they were received.
	OnLine(callback func(line string))
	// OnClose registers a listener called once when the channel stops
	// delivering lines, with an error wrapping ErrChannelClosed.
	OnClose(callback func(err Error))
	Close() Error
}

type LineChannel struct {
	name   string
	logger Logger

	reader io.Reader
	writer io.WriteCloser
	sendMu sync.Mutex

	stdout *StdOutBuffer

	listenerMu sync.Mutex
	onLine     func(string)
	onClose    func(Error)
	listening  chan struct{}

	recordMu sync.Mutex
	record   []string

	closeOnce sync.Once
	closed    chan struct{}
	readDone  chan struct{}

	eg errgroup.Group
}

var _ Channel = (*LineChannel)(nil)

type LineChannelOption func(*LineChannel)

func WithChannelLogger(logger Logger) LineChannelOption {
	return func(u *LineChannel) {
		u.logger = logger
	}
}

// NewLineChannel starts reading lines from stdout and writes commands to
// stdin. Lines read before a listener is registered are held until then.
func NewLineChannel(name string, stdout io.Reader, stdin io.WriteCloser, options ...LineChannelOption) *LineChannel {
	u := &LineChannel{
		name:      name,
		reader:    stdout,
		writer:    stdin,
		stdout:    NewStdOutBuffer(),
		listening: make(chan struct{}),
		closed:    make(chan struct{}),
		readDone:  make(chan struct{}),
	}

	for _, option := range options {
		option(u)
	}

	if u.logger == nil {
		u.logger = &DefaultLogger
	}

	u.eg.Go(u.readLoop)
	u.eg.Go(u.dispatchLoop)

	return u
}

func avoidSpam(line string) bool {
	if strings.Contains(line, "multipv") && !strings.Contains(line, "multipv 1 ") {
		return true
	}
	if strings.Contains(line, "currmove") {
		return true
	}
	return false
}

func (u *LineChannel) appendRecord(line string) {
	u.recordMu.Lock()
	defer u.recordMu.Unlock()
	u.record = append(u.record, line)
}

// Record appends a line to the transcript returned by Flush.
func (u *LineChannel) Record(prefix string, line string) {
	u.appendRecord(prefix + strings.TrimSpace(line))
}

func (u *LineChannel) flush(indent string) string {
	u.recordMu.Lock()
	defer u.recordMu.Unlock()
	return Indent(strings.Join(u.record, "\n"), indent)
}

// Flush is the transcript of everything sent and received so far.
func (u *LineChannel) Flush() string {
	return "> " + u.flush("> ")
}

// Lines longer than this are dropped rather than delivered.
const MaxLineLength = 1 << 20

// readLine reads one line of any length, keeping at most MaxLineLength bytes.
// The bool reports whether the line was too long to keep.
func readLine(reader *bufio.Reader) (string, bool, error) {
	line := []byte{}
	tooLong := false
	for {
		chunk, isPrefix, err := reader.ReadLine()
		if err != nil {
			return "", false, err
		}
		if !tooLong {
			line = append(line, chunk...)
			if len(line) > MaxLineLength {
				tooLong = true
				line = nil
			}
		}
		if !isPrefix {
			return string(line), tooLong, nil
		}
	}
}

func (u *LineChannel) readLoop() error {
	defer close(u.readDone)

	reader := bufio.NewReaderSize(u.reader, 64*1024)
	var err error
	for {
		var line string
		var tooLong bool
		line, tooLong, err = readLine(reader)
		if err != nil {
			break
		}
		if tooLong {
			u.logger.Println(u.name, "stdout: dropped a line over", MaxLineLength, "bytes")
			u.Record("out: ", "<dropped oversized line>")
			continue
		}

		line = strings.TrimRight(line, "\r")
		if !avoidSpam(line) {
			u.logger.Println(u.name, "stdout:", Ellipses(line, 140))
		}
		u.Record("out: ", line)
		u.stdout.Update(line)
	}

	if errors.Is(err, io.EOF) || u.isClosed() {
		u.stdout.Finish(Errorf("%v: %w", u.name, ErrChannelClosed))
	} else {
		u.stdout.Finish(Errorf("%v: %w: %w", u.name, ErrChannelClosed, err))
	}
	return nil
}

func (u *LineChannel) dispatchLoop() error {
	select {
	case <-u.listening:
	case <-u.closed:
	}

	for {
		finished, err := u.stdout.Flush(u.deliver)
		if finished {
			u.notifyClosed(err)
			return nil
		}

		select {
		case <-u.stdout.Wait():
		case <-u.closed:
			u.notifyClosed(Errorf("%v: %w", u.name, ErrChannelClosed))
			return nil
		}
	}
}

func (u *LineChannel) deliver(line string) {
	if u.isClosed() {
		return
	}

	u.listenerMu.Lock()
	onLine := u.onLine
	u.listenerMu.Unlock()

	if onLine != nil {
		onLine(line)
	}
}

func (u *LineChannel) notifyClosed(err Error) {
	u.listenerMu.Lock()
	onClose := u.onClose
	u.onClose = nil
	u.listenerMu.Unlock()

	if onClose != nil {
		onClose(err)
	}
}

func (u *LineChannel) isClosed() bool {
	select {
	case <-u.closed:
		return true
	default:
		return false
	}
}

func (u *LineChannel) OnLine(callback func(line string)) {
	u.listenerMu.Lock()
	first := u.onLine == nil
	u.onLine = callback
	u.listenerMu.Unlock()

	if first {
		close(u.listening)
	}
}

func (u *LineChannel) OnClose(callback func(err Error)) {
	u.listenerMu.Lock()
	defer u.listenerMu.Unlock()
	u.onClose = callback
}

func (u *LineChannel) Send(command string) Error {
	u.sendMu.Lock()
	defer u.sendMu.Unlock()

	if u.isClosed() {
		return Errorf("%v: send %q: %w", u.name, command, ErrChannelClosed)
	}

	u.logger.Println(u.name, "stdin:", command)
	u.Record("in:  ", command)

	_, err := io.WriteString(u.writer, command+"\n")
	if !IsNil(err) {
		return Errorf("%v: send %q: %w: %w", u.name, command, ErrChannelClosed, err)
	}
	return NilError
}

// Close stops delivery and closes the engine's stdin (and stdout, when it
// can be closed). It is safe to call more than once.
func (u *LineChannel) Close() Error {
	var err Error
	u.closeOnce.Do(func() {
		u.sendMu.Lock()
		close(u.closed)
		u.sendMu.Unlock()

		err = Wrap(u.writer.Close())
		if closer, ok := u.reader.(io.Closer); ok {
			err = Join(err, Wrap(closer.Close()))
		}
	})
	return err
}

// ReadDone is closed once the engine's output has been fully read.
func (u *LineChannel) ReadDone() <-chan struct{} {
	return u.readDone
}

// Wait blocks until the reader and dispatcher have exited.
func (u *LineChannel) Wait() Error {
	return Wrap(u.eg.Wait())
}
