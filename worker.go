package pgnspy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/pgnspy/internal/metrics"
	"github.com/discochess/pgnspy/internal/pgnload"
	"github.com/discochess/pgnspy/internal/uci"
)

// errSkipped marks a game the player filter leaves out.
var errSkipped = errors.New("pgnspy: game skipped")

// indexedGame is an analysed game and its position in the input.
type indexedGame struct {
	index int
	game  Game
}

// worker owns one engine slot for the length of a run. Everything it
// accumulates is private until the pool merges it after the run.
type worker struct {
	id     int
	pool   *pool
	queue  *queue
	logger *zap.Logger

	engine   *uci.Engine
	launches int

	report    *Report
	games     []indexedGame
	errs      []gameError
	skipped   int
	launchErr error
}

func newWorker(id int, p *pool, q *queue) *worker {
	return &worker{
		id:     id,
		pool:   p,
		queue:  q,
		logger: p.logger.Named("worker").With(zap.Int("worker_id", id)),
		report: NewReport(p.settings),
	}
}

// run takes games from the queue until it is empty, ctx is done or the
// slot can no longer start an engine. A fresh engine is in place before
// each game is taken, so a game is never dequeued by a dead slot.
func (w *worker) run(ctx context.Context) {
	defer w.release()

	for ctx.Err() == nil {
		if err := w.ensureEngine(ctx); err != nil {
			if ctx.Err() == nil {
				w.launchErr = err
				w.logger.Error("worker slot lost", zap.Error(err))
			}
			return
		}
		j, ok := w.queue.next()
		if !ok {
			return
		}
		w.process(ctx, j)
	}
}

// ensureEngine launches an engine if the slot has none, retrying up to
// the pool's retry count.
func (w *worker) ensureEngine(ctx context.Context) error {
	if w.engine != nil {
		return nil
	}

	var err error
	for attempt := 0; attempt <= w.pool.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}

		var e *uci.Engine
		e, err = uci.Launch(ctx, w.pool.engine, w.pool.options)
		if err != nil {
			w.logger.Warn("engine launch failed", zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		if w.launches > 0 {
			w.pool.metrics.IncCounter(metrics.EngineRestarts, 1)
			w.logger.Warn("engine relaunched", zap.Int("launches", w.launches+1))
		}
		w.launches++
		w.pool.metrics.IncCounter(metrics.EngineLaunches, 1)
		w.pool.metrics.AddGauge(metrics.EngineLive, 1)
		w.logger.Debug("engine ready", zap.String("name", e.Name()))
		w.engine = e
		return nil
	}
	return err
}

// discardEngine closes the slot's engine so the next game gets a new one.
func (w *worker) discardEngine() {
	if w.engine == nil {
		return
	}
	if err := w.engine.Close(); err != nil {
		w.logger.Warn("closing engine", zap.Error(err))
	}
	w.engine = nil
	w.pool.metrics.AddGauge(metrics.EngineLive, -1)
}

func (w *worker) release() {
	w.discardEngine()
}

// process analyses one game and records its outcome.
func (w *worker) process(ctx context.Context, j job) {
	logger := w.logger.With(zap.Int("game", j.index+1))
	start := time.Now()

	g, err := w.analyseGame(ctx, j.game)
	switch {
	case errors.Is(err, errSkipped):
		w.skipped++
		w.pool.metrics.IncCounter(metrics.GamesSkipped, 1)
		logger.Debug("game skipped by player filter")

	case err != nil:
		w.errs = append(w.errs, gameError{index: j.index, err: fmt.Errorf("%s: %w", label(j), err)})
		w.pool.metrics.IncCounter(metrics.GamesErrored, 1)
		if engineFailed(err) {
			logger.Warn("game failed, replacing engine",
				zap.Error(err),
				zap.String("stderr", w.engine.Stderr()),
			)
			w.discardEngine()
		} else {
			logger.Warn("game failed", zap.Error(err))
		}

	default:
		if err := w.report.AddGame(g); err != nil {
			w.errs = append(w.errs, gameError{index: j.index, err: fmt.Errorf("%s: %w", label(j), err)})
			logger.Error("recording game", zap.Error(err))
			return
		}
		w.games = append(w.games, indexedGame{index: j.index, game: *g})
		w.pool.metrics.IncCounter(metrics.GamesAnalysed, 1)
		logger.Debug("game analysed",
			zap.Int("positions", len(g.Positions)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// analyseGame replays gp through the slot's engine. Positions the engine
// answers with unparseable output are left out; any other engine failure
// fails the whole game.
func (w *worker) analyseGame(ctx context.Context, gp GamePGN) (*Game, error) {
	rec, err := pgnload.Load(gp.PGNText)
	if err != nil {
		return nil, err
	}

	g := &Game{
		Event:       rec.Event,
		Date:        rec.Date,
		White:       firstNonEmpty(rec.White, gp.White),
		Black:       firstNonEmpty(rec.Black, gp.Black),
		Result:      rec.Result,
		TimeControl: rec.TimeControl,
		FileName:    gp.FileName,
	}
	if w.pool.player != "" && !w.isPlayer(g.White) && !w.isPlayer(g.Black) {
		return nil, errSkipped
	}

	if err := w.engine.NewGame(ctx); err != nil {
		return nil, err
	}

	for i, ply := range rec.Plies {
		if ply.MoveNumber <= w.pool.settings.BookDepth {
			continue
		}
		color := White
		if ply.Black {
			color = Black
		}
		if w.pool.player != "" && !w.isPlayer(g.playerFor(color)) {
			continue
		}

		lines, err := w.evaluate(ctx, rec, i)
		if errors.Is(err, uci.ErrProtocol) {
			w.pool.metrics.IncCounter(metrics.PositionErrors, 1)
			w.logger.Warn("position skipped", zap.Int("ply", ply.Index), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("ply %d: %w", ply.Index, err)
		}

		top := make([]Move, len(lines))
		for i, l := range lines {
			top[i] = Move{Move: l.Move, Depth: l.Depth, Time: l.TimeMs, Score: l.Score}
		}
		g.Positions = append(g.Positions, Position{
			Ply:        ply.Index,
			MoveNumber: ply.MoveNumber,
			ToMove:     color,
			FEN:        ply.FEN,
			PlayedMove: ply.Move,
			TopMoves:   top,
			MovePlayed: matchPlayed(top, ply.Move),
		})
	}
	return g, nil
}

// evaluate returns the engine's candidate lines for the position before
// ply i of rec, consulting the evaluation cache first.
func (w *worker) evaluate(ctx context.Context, rec *pgnload.Record, i int) ([]uci.Line, error) {
	ply := rec.Plies[i]
	m := w.pool.metrics
	if c := w.pool.cache; c != nil {
		if lines, ok := c.Get(ply.FEN); ok {
			m.IncCounter(metrics.CacheHits, 1)
			m.IncCounter(metrics.Positions, 1)
			return lines, nil
		}
		m.IncCounter(metrics.CacheMisses, 1)
	}

	start := time.Now()
	a, err := w.engine.Analyse(ctx, rec.StartFEN, rec.Moves(i), w.pool.limits)
	m.ObserveHistogram(metrics.EvaluationSeconds, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	m.IncCounter(metrics.Positions, 1)

	if !a.Ordered {
		w.logger.Warn("engine lines not in score order",
			zap.Int("ply", ply.Index),
			zap.String("fen", ply.FEN),
		)
	}
	w.logger.Debug("position evaluated",
		zap.Int("ply", ply.Index),
		zap.Int("lines", len(a.Lines)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if c := w.pool.cache; c != nil {
		c.Add(ply.FEN, a.Lines)
	}
	return a.Lines, nil
}

func (w *worker) isPlayer(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), w.pool.player)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
