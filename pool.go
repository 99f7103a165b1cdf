package pgnspy

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/discochess/pgnspy/internal/evalcache"
	"github.com/discochess/pgnspy/internal/metrics"
	"github.com/discochess/pgnspy/internal/uci"
)

// maxMessageErrors bounds how many game errors are spelled out in
// Result.Message.
const maxMessageErrors = 5

// pool is the configuration shared by the workers of one run.
type pool struct {
	runID    string
	settings AnalysisSettings
	engine   uci.Config
	options  uci.Options
	limits   uci.Limits
	retries  int
	player   string
	cache    *evalcache.Cache
	metrics  metrics.Collector
	logger   *zap.Logger
}

func newPool(a *Analyser, enginePath string) *pool {
	s := a.settings
	runID := uuid.NewString()
	logger := a.logger.Named("pool").With(zap.String("run_id", runID))

	return &pool{
		runID:    runID,
		settings: s,
		engine: uci.Config{
			Path:            enginePath,
			Args:            a.opts.engineArgs,
			Env:             a.opts.engineEnv,
			ShutdownTimeout: a.opts.shutdown,
			Logger:          logger.Named("uci"),
		},
		options: uci.Options{
			MultiPV: s.NumVariations,
			HashMB:  s.HashSize,
			Threads: s.EngineThreads,
		},
		limits: uci.Limits{
			Depth:         s.SearchDepth,
			MoveTime:      s.MaxTime,
			MinTime:       s.MinTime,
			Grace:         a.opts.grace,
			SearchTimeout: a.opts.searchTimeout,
		},
		retries: a.opts.launchRetries,
		player:  strings.TrimSpace(s.PlayerName),
		cache:   a.opts.cache,
		metrics: a.opts.metrics,
		logger:  logger,
	}
}

// gameError is a failure confined to one game.
type gameError struct {
	index int
	err   error
}

// run analyses games with exactly NumThreads workers and merges their
// private results once every worker has stopped.
func (p *pool) run(ctx context.Context, games []GamePGN) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: p.runID, Report: NewReport(p.settings)}
	if len(games) == 0 {
		res.Report.Finalise()
		return res, nil
	}

	p.logger.Info("run started",
		zap.Int("games", len(games)),
		zap.Int("workers", p.settings.NumThreads),
	)
	p.metrics.IncCounter(metrics.GamesQueued, int64(len(games)))

	q := newQueue(games)
	workers := make([]*worker, p.settings.NumThreads)
	var g errgroup.Group
	for i := range workers {
		w := newWorker(i, p, q)
		workers[i] = w
		g.Go(func() error {
			w.run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	var (
		analysed []indexedGame
		errs     []gameError
		lastErr  error
	)
	for _, w := range workers {
		if err := res.Report.Merge(w.report); err != nil {
			return nil, fmt.Errorf("merging worker %d: %w", w.id, err)
		}
		analysed = append(analysed, w.games...)
		errs = append(errs, w.errs...)
		res.GamesSkipped += w.skipped
		if w.launchErr != nil {
			lastErr = w.launchErr
		}
	}

	// Games nobody dequeued: the run was cancelled or every slot died.
	var fatal error
	if rest := q.drain(); len(rest) > 0 {
		cause := ctx.Err()
		if cause == nil {
			fatal = noWorkers(lastErr)
			cause = ErrNoWorkers
		}
		for _, j := range rest {
			errs = append(errs, gameError{index: j.index, err: fmt.Errorf("%s: not analysed: %w", label(j), cause)})
		}
		p.metrics.IncCounter(metrics.GamesErrored, int64(len(rest)))
	}
	if fatal == nil && ctx.Err() != nil {
		fatal = ctx.Err()
	}

	slices.SortFunc(analysed, func(a, b indexedGame) int { return cmp.Compare(a.index, b.index) })
	for _, ig := range analysed {
		res.Games = append(res.Games, ig.game)
	}
	slices.SortFunc(errs, func(a, b gameError) int { return cmp.Compare(a.index, b.index) })
	res.GamesWithErrors = len(errs)
	res.Message = summarise(errs)
	res.Report.Finalise()

	p.logger.Info("run finished",
		zap.Int("analysed", res.GamesAnalysed()),
		zap.Int("errors", res.GamesWithErrors),
		zap.Int("skipped", res.GamesSkipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	if fatal != nil {
		p.logger.Error("run failed", zap.Error(fatal))
	}
	return res, fatal
}

// summarise combines the first few game errors into one message.
func summarise(errs []gameError) string {
	if len(errs) == 0 {
		return ""
	}
	var combined error
	for _, ge := range errs[:min(len(errs), maxMessageErrors)] {
		combined = multierr.Append(combined, ge.err)
	}
	msg := combined.Error()
	if n := len(errs) - maxMessageErrors; n > 0 {
		msg += fmt.Sprintf("; and %d more", n)
	}
	return msg
}

func noWorkers(cause error) error {
	if cause == nil {
		return ErrNoWorkers
	}
	return fmt.Errorf("%w: %w", ErrNoWorkers, cause)
}

// label names a game in error messages.
func label(j job) string {
	if j.game.White == "" && j.game.Black == "" {
		return fmt.Sprintf("game %d", j.index+1)
	}
	return fmt.Sprintf("game %d (%s vs %s)", j.index+1, j.game.White, j.game.Black)
}

// engineFailed reports whether err leaves the engine process in an unknown
// state, so that it must be replaced before the next game.
func engineFailed(err error) bool {
	var op *uci.OpError
	return errors.As(err, &op) && !errors.Is(err, uci.ErrProtocol)
}
