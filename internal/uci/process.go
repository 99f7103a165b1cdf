// Package uci drives UCI chess engines over their standard pipes.
//
// A Process owns exactly one engine subprocess: its stdin is written with
// Send, its stdout is consumed line by line with ReadUntil, and its stderr
// is drained continuously in the background so the engine can never block
// on a full pipe. Engine layers the UCI handshake and search commands on top
// of a Process, and Parse turns the text of one search into ranked lines.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// stderrTail is the number of stderr bytes kept for diagnostics.
	stderrTail = 4096

	// lineBuffer is how many stdout lines may queue before the reader blocks.
	lineBuffer = 256

	defaultShutdownTimeout = 2 * time.Second
)

// Config describes how to start an engine subprocess.
type Config struct {
	// Path is the engine executable.
	Path string

	// Args are extra command-line arguments passed to the engine.
	Args []string

	// Env is appended to the current process environment.
	Env []string

	// StartTimeout bounds the uci/isready handshake. Zero means 10s.
	StartTimeout time.Duration

	// ShutdownTimeout bounds how long Close waits after "quit" before
	// killing the process. Zero means 2s.
	ShutdownTimeout time.Duration

	// Logger receives driver diagnostics. Nil means no logging.
	Logger *zap.Logger
}

// Deadline bounds a single ReadUntil call.
type Deadline struct {
	// Max is the longest ReadUntil waits for the terminal marker.
	// Zero or negative means no bound other than the context.
	Max time.Duration

	// Min is the shortest ReadUntil waits, even when the terminal marker
	// arrives earlier. An engine exit ends the wait regardless.
	Min time.Duration
}

// Response is the output accumulated by one ReadUntil call.
type Response struct {
	Lines    []string
	Terminal bool
	Elapsed  time.Duration
}

// Text returns the accumulated output joined by newlines.
func (r Response) Text() string {
	return strings.Join(r.Lines, "\n")
}

// Process is one running engine subprocess and its pipes.
// Send and ReadUntil may be called from different goroutines, but a
// Process is meant to be owned by a single worker.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	errOut io.ReadCloser
	lines  chan string
	stderr *tailBuffer
	logger *zap.Logger

	shutdownTimeout time.Duration

	quit     chan struct{}
	waitDone chan struct{}
	waitErr  error

	mu     sync.Mutex
	closed bool
}

// Start launches the engine described by cfg. The returned Process must be
// released with Close.
func Start(cfg Config) (*Process, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.Command(cfg.Path, cfg.Args...)
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.WaitDelay = time.Second

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, opError("start", ErrLaunch, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, opError("start", ErrLaunch, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, opError("start", ErrLaunch, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, opError("start", ErrLaunch, err)
	}

	shutdown := cfg.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = defaultShutdownTimeout
	}

	p := &Process{
		cmd:             cmd,
		stdin:           stdin,
		stdout:          stdout,
		errOut:          stderr,
		lines:           make(chan string, lineBuffer),
		stderr:          &tailBuffer{max: stderrTail},
		logger:          logger.With(zap.Int("pid", cmd.Process.Pid)),
		shutdownTimeout: shutdown,
		quit:            make(chan struct{}),
		waitDone:        make(chan struct{}),
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		p.readStdout(stdout)
	}()
	go func() {
		defer readers.Done()
		// Copy errors only mean the pipe is gone; the exit is reported via stdout.
		_, _ = io.Copy(p.stderr, stderr)
	}()
	go func() {
		readers.Wait()
		p.waitErr = cmd.Wait()
		close(p.waitDone)
	}()

	p.logger.Debug("engine started", zap.String("path", cfg.Path))
	return p, nil
}

// readStdout forwards stdout lines until EOF or Close.
func (p *Process) readStdout(r io.Reader) {
	defer close(p.lines)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		select {
		case p.lines <- line:
		case <-p.quit:
			return
		}
	}
}

// Send writes one command line to the engine.
func (p *Process) Send(command string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return opError("send", ErrIO, fmt.Errorf("process closed"))
	}
	if _, err := io.WriteString(p.stdin, command+"\n"); err != nil {
		return opError("send", ErrIO, err)
	}
	p.logger.Debug("sent", zap.String("command", command))
	return nil
}

// ReadUntil accumulates stdout lines until done reports the terminal marker.
// It never returns successfully before d.Min has elapsed, and fails with
// ErrTimeout once d.Max elapses without the marker. If the engine exits,
// ReadUntil fails with ErrIO immediately, returning what was read so far.
// Context cancellation ends the wait with the context's error.
func (p *Process) ReadUntil(ctx context.Context, done func(line string) bool, d Deadline) (Response, error) {
	start := time.Now()
	var resp Response

	var expired <-chan time.Time
	if d.Max > 0 {
		t := time.NewTimer(d.Max)
		defer t.Stop()
		expired = t.C
	}
	var floor <-chan time.Time

	finish := func(err error) (Response, error) {
		resp.Elapsed = time.Since(start)
		return resp, err
	}

	for {
		select {
		case <-ctx.Done():
			return finish(opError("read", ctx.Err(), nil))

		case <-expired:
			if resp.Terminal {
				return finish(nil)
			}
			return finish(opError("read", ErrTimeout, fmt.Errorf("no terminal marker within %s", d.Max)))

		case <-floor:
			return finish(nil)

		case line, ok := <-p.lines:
			if !ok {
				return finish(opError("read", ErrIO, p.exitError()))
			}
			resp.Lines = append(resp.Lines, line)
			if resp.Terminal || !done(line) {
				continue
			}
			resp.Terminal = true
			wait := d.Min - time.Since(start)
			if wait <= 0 {
				return finish(nil)
			}
			t := time.NewTimer(wait)
			defer t.Stop()
			floor = t.C
		}
	}
}

// Stderr returns the most recent stderr output of the engine.
func (p *Process) Stderr() string {
	return p.stderr.String()
}

// Exited reports whether the subprocess has terminated.
func (p *Process) Exited() bool {
	select {
	case <-p.waitDone:
		return true
	default:
		return false
	}
}

// Close asks the engine to quit and kills it if it does not exit within the
// shutdown timeout. After a kill the pipe read ends are closed too, since a
// leftover child of the engine can hold them open. Close is idempotent.
func (p *Process) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	_, _ = io.WriteString(p.stdin, "quit\n")
	_ = p.stdin.Close()
	p.mu.Unlock()

	close(p.quit)

	select {
	case <-p.waitDone:
	case <-time.After(p.shutdownTimeout):
		p.logger.Warn("engine did not quit, killing")
		if err := p.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("killing engine: %w", err)
		}
		_ = p.stdout.Close()
		_ = p.errOut.Close()
		select {
		case <-p.waitDone:
		case <-time.After(p.shutdownTimeout):
			return fmt.Errorf("engine pid %d not reaped after kill", p.cmd.Process.Pid)
		}
	}
	return nil
}

// exitError describes why stdout closed.
func (p *Process) exitError() error {
	select {
	case <-p.waitDone:
	case <-time.After(100 * time.Millisecond):
	}

	tail := strings.TrimSpace(p.Stderr())
	switch {
	case p.Exited() && tail != "":
		return fmt.Errorf("engine exited (%v), stderr: %s", p.waitErr, tail)
	case p.Exited():
		return fmt.Errorf("engine exited (%v)", p.waitErr)
	default:
		return fmt.Errorf("engine closed stdout")
	}
}

// tailBuffer is an io.Writer that keeps only the last max bytes.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
