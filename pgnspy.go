// Package pgnspy measures how closely the moves of chess games follow a UCI
// engine's top choices.
//
// Each game is replayed through a pool of persistent engine processes. For
// every position the engine's ranked candidates are compared with the move
// actually played, and the result is folded into per-player statistics:
// match rates by rank, centipawn loss and blunder counts.
//
// Example usage:
//
//	settings := pgnspy.DefaultSettings()
//	settings.EnginePath = "/usr/local/bin/stockfish"
//	settings.PlayerName = "DrNykterstein"
//
//	a, err := pgnspy.New(pgnspy.WithSettings(settings))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close()
//
//	games, err := pgnspy.ReadGames(f, "games.pgn")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := a.ProcessGames(ctx, games)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	st := res.Report.Players["DrNykterstein"]
//	fmt.Printf("T1 %.1f%%  ACPL %.1f\n", 100*st.MatchRate(0), st.AverageLoss)
package pgnspy

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrInvalidSettings indicates the settings cannot produce a
	// meaningful run.
	ErrInvalidSettings = errors.New("pgnspy: invalid settings")

	// ErrEngineNotFound indicates the engine executable does not exist.
	ErrEngineNotFound = errors.New("pgnspy: engine not found")

	// ErrNoWorkers indicates no engine could be started, or every worker
	// slot was lost before the queue was empty.
	ErrNoWorkers = errors.New("pgnspy: no usable engine workers")

	// ErrFinalised indicates a position was added to finalised Stats.
	ErrFinalised = errors.New("pgnspy: stats already finalised")

	// ErrClosed indicates the analyser has been closed.
	ErrClosed = errors.New("pgnspy: analyser closed")
)

// Analyser runs games through a pool of engine processes.
// An Analyser is safe for concurrent use; runs are serialised.
type Analyser struct {
	settings AnalysisSettings
	opts     options
	logger   *zap.Logger
	closed   atomic.Bool

	// run is held for the whole of a ProcessGames call.
	run sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates an Analyser with the given options.
func New(opts ...Option) (*Analyser, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	if err := cfg.settings.Validate(); err != nil {
		return nil, err
	}

	a := &Analyser{
		settings: cfg.settings,
		opts:     cfg,
		logger:   cfg.logger.Named("pgnspy"),
	}

	a.logger.Debug("analyser initialized",
		zap.String("engine", a.settings.EnginePath),
		zap.Int("workers", a.settings.NumThreads),
		zap.Int("variations", a.settings.NumVariations),
	)

	return a, nil
}

// Settings returns the settings every run uses.
func (a *Analyser) Settings() AnalysisSettings {
	return a.settings
}

// ProcessGames analyses games and returns the per-game results and the
// finalised report.
//
// Failures confined to one game (an engine crash or timeout, an unparseable
// PGN) are counted in Result.GamesWithErrors and never abort the run. The
// returned error is non-nil only when the run as a whole failed: the engine
// is missing, no worker slot is usable, or ctx was cancelled. Whenever the
// pool ran, the Result is returned alongside the error.
func (a *Analyser) ProcessGames(ctx context.Context, games []GamePGN) (*Result, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}

	a.run.Lock()
	defer a.run.Unlock()

	if a.closed.Load() {
		return nil, ErrClosed
	}

	path, err := exec.LookPath(a.settings.EnginePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEngineNotFound, a.settings.EnginePath, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.cancel = nil
		a.mu.Unlock()
		cancel()
	}()

	return newPool(a, path).run(ctx, games)
}

// Close stops any run in progress and waits until its engine processes
// have exited. After Close, the analyser should not be used.
func (a *Analyser) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()

	a.run.Lock()
	defer a.run.Unlock()
	return nil
}
