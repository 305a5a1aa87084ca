package binary

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/cricklet/chessforge/internal/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectLines(channel Channel) (func() []string, chan string) {
	lock := sync.Mutex{}
	lines := []string{}
	arrived := make(chan string, 100)

	channel.OnLine(func(line string) {
		lock.Lock()
		lines = append(lines, line)
		lock.Unlock()
		arrived <- line
	})

	return func() []string {
		lock.Lock()
		defer lock.Unlock()
		return append([]string{}, lines...)
	}, arrived
}

func waitFor(t *testing.T, arrived chan string, expected string) {
	select {
	case line := <-arrived:
		assert.Equal(t, expected, line)
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for %v", expected)
	}
}

func TestTee(t *testing.T) {
	runner, err := SetupBinaryRunner("tee", "tee", []string{}, WithLogger(&SilentLogger))
	require.True(t, IsNil(err), err)

	_, arrived := collectLines(runner)

	for i := 0; i < 10; i++ {
		v := fmt.Sprintf("hello world %d", i)
		err = runner.Send(v)
		assert.True(t, IsNil(err), err)
		waitFor(t, arrived, v)
	}

	assert.Contains(t, runner.Flush(), "in:  hello world 9")
	assert.Contains(t, runner.Flush(), "out: hello world 9")

	closed := make(chan Error, 1)
	runner.OnClose(func(err Error) {
		closed <- err
	})

	err = runner.Close()
	assert.True(t, IsNil(err), err)

	select {
	case err := <-closed:
		assert.ErrorIs(t, err, ErrChannelClosed)
	case <-time.After(time.Second):
		t.Fatal("close listener was not called")
	}

	err = runner.Send("after close")
	assert.ErrorIs(t, err, ErrChannelClosed)

	// idempotent
	assert.True(t, IsNil(runner.Close()))
}

func TestMissingBinary(t *testing.T) {
	_, err := SetupBinaryRunner("definitely-not-a-chess-engine", "missing", []string{}, WithLogger(&SilentLogger))
	assert.True(t, err.HasError())
}

func TestLineChannelOrder(t *testing.T) {
	stdoutReader, stdoutWriter := io.Pipe()
	stdinReader, stdinWriter := io.Pipe()

	channel := NewLineChannel("pipe", stdoutReader, stdinWriter, WithChannelLogger(&SilentLogger))
	defer channel.Close()

	go func() {
		for i := 0; i < 100; i++ {
			_, _ = fmt.Fprintf(stdoutWriter, "info depth %d\n", i)
		}
	}()

	// lines written before the listener registers are held, not dropped
	time.Sleep(20 * time.Millisecond)
	lines, arrived := collectLines(channel)

	for i := 0; i < 100; i++ {
		waitFor(t, arrived, fmt.Sprintf("info depth %d", i))
	}
	assert.Len(t, lines(), 100)

	go func() {
		_, _ = io.Copy(io.Discard, stdinReader)
	}()
	assert.True(t, IsNil(channel.Send("isready")))
}

func TestLineChannelEngineExit(t *testing.T) {
	stdoutReader, stdoutWriter := io.Pipe()
	_, stdinWriter := io.Pipe()

	channel := NewLineChannel("pipe", stdoutReader, stdinWriter, WithChannelLogger(&SilentLogger))
	_, arrived := collectLines(channel)

	closed := make(chan Error, 1)
	channel.OnClose(func(err Error) {
		closed <- err
	})

	_, _ = fmt.Fprintln(stdoutWriter, "bestmove e2e4")
	waitFor(t, arrived, "bestmove e2e4")

	_ = stdoutWriter.Close()

	select {
	case err := <-closed:
		assert.ErrorIs(t, err, ErrChannelClosed)
	case <-time.After(time.Second):
		t.Fatal("close listener was not called")
	}

	channel.Close()
	assert.True(t, IsNil(channel.Wait()))
}

func TestLineChannelSendAfterClose(t *testing.T) {
	stdoutReader, _ := io.Pipe()
	stdinReader, stdinWriter := io.Pipe()
	go func() {
		_, _ = io.Copy(io.Discard, stdinReader)
	}()

	channel := NewLineChannel("pipe", stdoutReader, stdinWriter, WithChannelLogger(&SilentLogger))
	assert.True(t, IsNil(channel.Send("uci")))

	assert.True(t, IsNil(channel.Close()))
	assert.True(t, IsNil(channel.Close()))

	assert.ErrorIs(t, channel.Send("isready"), ErrChannelClosed)
	assert.ErrorIs(t, channel.Send("quit"), ErrChannelClosed)
}

func TestLineChannelLongLines(t *testing.T) {
	stdoutReader, stdoutWriter := io.Pipe()
	_, stdinWriter := io.Pipe()

	channel := NewLineChannel("pipe", stdoutReader, stdinWriter, WithChannelLogger(&SilentLogger))
	defer channel.Close()
	_, arrived := collectLines(channel)

	closed := make(chan Error, 1)
	channel.OnClose(func(err Error) {
		closed <- err
	})

	long := "info depth 30 pv" + strings.Repeat(" e2e4 e7e5", 7000)
	huge := "info depth 31 pv" + strings.Repeat(" e2e4", MaxLineLength/5+10)
	go func() {
		_, _ = fmt.Fprintln(stdoutWriter, long)
		_, _ = fmt.Fprintln(stdoutWriter, huge)
		_, _ = fmt.Fprintln(stdoutWriter, "bestmove e2e4")
	}()

	select {
	case line := <-arrived:
		assert.Greater(t, len(line), 64*1024)
		assert.Equal(t, long, line)
	case <-time.After(time.Second):
		t.Fatal("long line was not delivered")
	}

	// the oversized line is skipped, the channel stays open
	waitFor(t, arrived, "bestmove e2e4")
	select {
	case err := <-closed:
		t.Fatal("channel closed:", err)
	default:
	}
}

func TestStdOutBuffer(t *testing.T) {
	buffer := NewStdOutBuffer()
	buffer.Update("a")
	buffer.Update("b")

	<-buffer.Wait()

	lines := []string{}
	finished, err := buffer.Flush(func(line string) {
		lines = append(lines, line)
	})
	assert.False(t, finished)
	assert.True(t, IsNil(err))
	assert.Equal(t, []string{"a", "b"}, lines)

	buffer.Update("c")
	buffer.Finish(Errorf("done: %w", ErrChannelClosed))

	lines = []string{}
	finished, err = buffer.Flush(func(line string) {
		lines = append(lines, line)
	})
	assert.True(t, finished)
	assert.ErrorIs(t, err, ErrChannelClosed)
	assert.Equal(t, []string{"c"}, lines)
}
