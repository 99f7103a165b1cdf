package uci

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultStartTimeout = 10 * time.Second

// Options are the engine options set once after the handshake.
type Options struct {
	// MultiPV is the number of candidate lines requested per search.
	MultiPV int

	// HashMB is the transposition table size. Zero keeps the engine default.
	HashMB int

	// Threads is the engine's own search thread count. Zero keeps the
	// engine default.
	Threads int
}

// Limits bound one search.
type Limits struct {
	// Depth is passed as "go depth". Zero omits it.
	Depth int

	// MoveTime is passed as "go movetime". Zero omits it.
	MoveTime time.Duration

	// MinTime is the minimum time a search is allowed to take.
	MinTime time.Duration

	// Grace is added to MoveTime to form the response deadline.
	Grace time.Duration

	// SearchTimeout bounds a search that has no MoveTime. Zero means
	// DefaultSearchTimeout.
	SearchTimeout time.Duration
}

// DefaultSearchTimeout bounds depth-only searches when Limits sets none.
const DefaultSearchTimeout = time.Minute

// ResponseTimeout returns how long a search under l may take before the
// engine counts as unresponsive. It is never zero.
func (l Limits) ResponseTimeout() time.Duration {
	if l.MoveTime > 0 {
		return max(l.MoveTime, l.MinTime) + l.Grace
	}
	t := l.SearchTimeout
	if t <= 0 {
		t = DefaultSearchTimeout
	}
	return max(t, l.MinTime) + l.Grace
}

// Engine is a UCI session over a single Process.
type Engine struct {
	proc   *Process
	opts   Options
	name   string
	logger *zap.Logger

	startTimeout time.Duration
}

// Launch starts the engine, performs the uci handshake and applies opts.
// Any failure is reported as ErrLaunch and leaves no process behind.
func Launch(ctx context.Context, cfg Config, opts Options) (*Engine, error) {
	proc, err := Start(cfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.StartTimeout
	if timeout <= 0 {
		timeout = defaultStartTimeout
	}

	e := &Engine{
		proc:         proc,
		opts:         opts,
		logger:       proc.logger,
		startTimeout: timeout,
	}
	if err := e.handshake(ctx); err != nil {
		_ = proc.Close()
		return nil, opError("handshake", ErrLaunch, err)
	}
	return e, nil
}

func (e *Engine) handshake(ctx context.Context) error {
	if err := e.proc.Send("uci"); err != nil {
		return err
	}
	resp, err := e.proc.ReadUntil(ctx, func(l string) bool { return l == "uciok" }, Deadline{Max: e.startTimeout})
	if err != nil {
		return err
	}
	for _, l := range resp.Lines {
		if name, ok := strings.CutPrefix(l, "id name "); ok {
			e.name = name
		}
	}

	if e.opts.MultiPV > 0 {
		if err := e.setOption("MultiPV", e.opts.MultiPV); err != nil {
			return err
		}
	}
	if e.opts.HashMB > 0 {
		if err := e.setOption("Hash", e.opts.HashMB); err != nil {
			return err
		}
	}
	if e.opts.Threads > 0 {
		if err := e.setOption("Threads", e.opts.Threads); err != nil {
			return err
		}
	}
	return e.sync(ctx)
}

func (e *Engine) setOption(name string, value int) error {
	return e.proc.Send(fmt.Sprintf("setoption name %s value %d", name, value))
}

// sync blocks until the engine answers isready.
func (e *Engine) sync(ctx context.Context) error {
	if err := e.proc.Send("isready"); err != nil {
		return err
	}
	_, err := e.proc.ReadUntil(ctx, func(l string) bool { return l == "readyok" }, Deadline{Max: e.startTimeout})
	return err
}

// Name returns the engine's self-reported name.
func (e *Engine) Name() string {
	return e.name
}

// NewGame tells the engine a new game starts and waits until it is ready.
func (e *Engine) NewGame(ctx context.Context) error {
	if err := e.proc.Send("ucinewgame"); err != nil {
		return err
	}
	return e.sync(ctx)
}

// Analyse searches the position reached by playing moves from startFEN and
// returns the parsed candidate lines. An empty startFEN means the standard
// starting position.
func (e *Engine) Analyse(ctx context.Context, startFEN string, moves []string, lim Limits) (Analysis, error) {
	if err := e.proc.Send(PositionCommand(startFEN, moves)); err != nil {
		return Analysis{}, err
	}
	if err := e.proc.Send(GoCommand(lim)); err != nil {
		return Analysis{}, err
	}

	resp, err := e.proc.ReadUntil(ctx, IsBestMove, Deadline{Min: lim.MinTime, Max: lim.ResponseTimeout()})
	if err != nil {
		return Analysis{}, err
	}
	a, err := Parse(resp.Lines, e.opts.MultiPV)
	if err != nil {
		e.logger.Debug("unparseable search output", zap.String("output", resp.Text()), zap.Error(err))
	}
	return a, err
}

// Stderr returns the recent stderr output of the engine process.
func (e *Engine) Stderr() string {
	return e.proc.Stderr()
}

// Close quits the engine process.
func (e *Engine) Close() error {
	return e.proc.Close()
}

// PositionCommand formats a "position" command.
func PositionCommand(startFEN string, moves []string) string {
	var b strings.Builder
	if startFEN == "" {
		b.WriteString("position startpos")
	} else {
		b.WriteString("position fen ")
		b.WriteString(startFEN)
	}
	if len(moves) > 0 {
		b.WriteString(" moves ")
		b.WriteString(strings.Join(moves, " "))
	}
	return b.String()
}

// GoCommand formats a "go" command for lim. Callers must set at least one
// of Depth and MoveTime or the search never terminates.
func GoCommand(lim Limits) string {
	cmd := "go"
	if lim.Depth > 0 {
		cmd += fmt.Sprintf(" depth %d", lim.Depth)
	}
	if lim.MoveTime > 0 {
		cmd += fmt.Sprintf(" movetime %d", lim.MoveTime.Milliseconds())
	}
	return cmd
}
