package binary

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	. "github.com/cricklet/chessforge/internal/helpers"
	"golang.org/x/sync/errgroup"
)

// BinaryRunner runs an engine executable and exposes its stdin/stdout as a
// Channel. Stderr is kept in the transcript only.
type BinaryRunner struct {
	*LineChannel

	cmdName string
	cmd     *exec.Cmd

	stderr errgroup.Group

	closeOnce sync.Once

	Logger Logger
}

var _ Channel = (*BinaryRunner)(nil)

type BinaryRunnerOption func(*BinaryRunner)

// How long Close waits for the killed process to release its pipes.
const _closeTimeout = 2 * time.Second

func WithLogger(logger Logger) BinaryRunnerOption {
	return func(u *BinaryRunner) {
		u.Logger = logger
	}
}

func wrapError(u *BinaryRunner, err error) Error {
	if !IsNil(err) {
		transcript := ""
		if u.LineChannel != nil {
			transcript = u.flush(".  ")
		}
		return Wrap(fmt.Errorf("%v: %w\n%v", u.cmdName, err, transcript))
	}
	return NilError
}

func SetupBinaryRunner(cmdPath string, cmdName string, args []string, options ...BinaryRunnerOption) (*BinaryRunner, Error) {
	u := &BinaryRunner{
		cmdName: cmdName,
	}

	for _, option := range options {
		option(u)
	}

	if u.Logger == nil {
		u.Logger = &DefaultLogger
	}

	u.Logger.Println(cmdPath, args)
	u.cmd = exec.Command(cmdPath, args...)

	stdin, err := u.cmd.StdinPipe()
	if !IsNil(err) {
		return nil, wrapError(u, err)
	}

	var stdout io.Reader
	var stderr io.Reader
	stdout, err = u.cmd.StdoutPipe()
	if !IsNil(err) {
		return nil, wrapError(u, err)
	}
	stderr, err = u.cmd.StderrPipe()
	if !IsNil(err) {
		return nil, wrapError(u, err)
	}

	err = u.cmd.Start()
	if !IsNil(err) {
		return nil, wrapError(u, err)
	}

	u.LineChannel = NewLineChannel(cmdName, stdout, stdin, WithChannelLogger(u.Logger))

	u.stderr.Go(func() error {
		stderrScanner := bufio.NewScanner(stderr)
		for stderrScanner.Scan() {
			u.Record("err: ", stderrScanner.Text())
		}
		return nil
	})

	return u, NilError
}

// Close kills the engine process and reaps it. It is safe to call more than
// once.
func (u *BinaryRunner) Close() Error {
	var err Error
	u.closeOnce.Do(func() {
		if u.cmd.ProcessState == nil {
			_ = u.cmd.Process.Kill()
		}

		err = u.LineChannel.Close()

		select {
		case <-u.ReadDone():
		case <-time.After(_closeTimeout):
			u.Logger.Println(u.cmdName, "timed out waiting for output to close")
		}
		_ = u.stderr.Wait()

		// The process was killed, so an exit error is expected here.
		_ = u.cmd.Wait()
	})
	return err
}
