package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/discochess/pgnspy"
	"github.com/discochess/pgnspy/internal/codec"
	"github.com/discochess/pgnspy/internal/evalcache"
	"github.com/discochess/pgnspy/internal/metrics"
	"github.com/discochess/pgnspy/internal/metrics/prommetrics"
	"github.com/discochess/pgnspy/internal/metrics/zapmetrics"
	"github.com/discochess/pgnspy/internal/source"
)

type analyzeFlags struct {
	out         string
	jsonOutput  bool
	cacheSize   int
	engineArgs  []string
	grace       time.Duration
	searchLimit time.Duration
	retries     int
	metricsAddr string
}

func newAnalyzeCmd(g *globals) *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze [LOCATION...]",
		Short: "Analyse the games of PGN archives",
		Long: `Analyse every game of the given PGN archives and print per-player
engine agreement.

A location ending in "/" (or naming a local directory) stands for every
.pgn, .pgn.zst and .pgn.gz archive inside it.

Settings come from the flags below, PGNSPY_* environment variables
(PGNSPY_PLAYER_NAME, PGNSPY_NUM_THREADS, ...) and the --config file, in
that order of precedence.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, g, &f, args)
		},
	}

	fs := cmd.Flags()
	addSettingsFlags(fs)
	fs.StringVarP(&f.out, "out", "o", "", "write the full result as JSON to this file (.zst and .gz compress)")
	fs.BoolVar(&f.jsonOutput, "json", false, "print the full result as JSON instead of a table")
	fs.IntVar(&f.cacheSize, "cache-size", evalcache.DefaultSize, "positions whose evaluations are cached; 0 disables")
	fs.StringSliceVar(&f.engineArgs, "engine-arg", nil, "extra engine command-line argument (repeatable)")
	fs.DurationVar(&f.grace, "response-grace", 2*time.Second, "time past --max-time before a search counts as timed out")
	fs.DurationVar(&f.searchLimit, "search-timeout", time.Minute, "longest a depth-only search may run before the engine is replaced")
	fs.IntVar(&f.retries, "launch-retries", 2, "engine launch retries per worker before it gives up")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")

	return cmd
}

func runAnalyze(cmd *cobra.Command, g *globals, f *analyzeFlags, args []string) error {
	ctx := cmd.Context()
	logger := g.logger

	settings, err := loadSettings(cmd.Flags(), g.configFile)
	if err != nil {
		return err
	}

	mux, err := g.sources()
	if err != nil {
		return err
	}
	defer mux.Close()

	games, err := readInputs(ctx, mux, args, logger)
	if err != nil {
		return err
	}
	logger.Info("games loaded", zap.Int("games", len(games)), zap.Int("archives", len(args)))

	var collector metrics.Collector = zapmetrics.New(logger.Named("metrics"))
	if f.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector = prommetrics.New(reg)
		stop := serveMetrics(f.metricsAddr, reg, logger)
		defer stop()
	}

	opts := []pgnspy.Option{
		pgnspy.WithSettings(settings),
		pgnspy.WithLogger(logger),
		pgnspy.WithMetrics(collector),
		pgnspy.WithEngineArgs(f.engineArgs...),
		pgnspy.WithResponseGrace(f.grace),
		pgnspy.WithSearchTimeout(f.searchLimit),
		pgnspy.WithLaunchRetries(f.retries),
	}
	if f.cacheSize > 0 {
		cache, err := evalcache.New(f.cacheSize)
		if err != nil {
			return fmt.Errorf("creating evaluation cache: %w", err)
		}
		opts = append(opts, pgnspy.WithEvalCache(cache))
	}

	a, err := pgnspy.New(opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	res, runErr := a.ProcessGames(ctx, games)
	if res == nil {
		return runErr
	}
	logger.Info("analysis finished",
		zap.String("run_id", res.RunID),
		zap.Int("analysed", res.GamesAnalysed()),
		zap.Int("errors", res.GamesWithErrors),
		zap.Int("skipped", res.GamesSkipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	if !res.OK() {
		logger.Warn("some games were not analysed", zap.String("message", res.Message))
	}

	if f.out != "" {
		if err := writeResult(f.out, res); err != nil {
			return multierr.Append(runErr, err)
		}
	}

	w := cmd.OutOrStdout()
	if f.jsonOutput {
		if err := res.WriteJSON(w); err != nil {
			return multierr.Append(runErr, err)
		}
	} else {
		printReport(w, res, settings)
	}
	return runErr
}

// readInputs loads the games of every location, expanding directories.
func readInputs(ctx context.Context, mux *source.Mux, args []string, logger *zap.Logger) ([]pgnspy.GamePGN, error) {
	var locations []string
	for _, arg := range args {
		if !isDirectory(arg) {
			locations = append(locations, arg)
			continue
		}
		names, err := mux.List(ctx, arg)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", arg, err)
		}
		if len(names) == 0 {
			logger.Warn("no PGN archives found", zap.String("location", arg))
		}
		locations = append(locations, names...)
	}

	var games []pgnspy.GamePGN
	for _, loc := range locations {
		gs, err := readArchive(ctx, mux, loc)
		if err != nil {
			return nil, err
		}
		logger.Debug("archive read", zap.String("location", loc), zap.Int("games", len(gs)))
		games = append(games, gs...)
	}
	return games, nil
}

func readArchive(ctx context.Context, mux *source.Mux, location string) (games []pgnspy.GamePGN, err error) {
	rc, err := mux.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, rc.Close())
	}()

	games, err = pgnspy.ReadGames(rc, location)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", location, err)
	}
	return games, nil
}

// isDirectory reports whether location names a directory: a trailing
// slash, or an existing local directory.
func isDirectory(location string) bool {
	if strings.HasSuffix(location, "/") {
		return true
	}
	loc, err := source.ParseLocation(location)
	if err != nil || loc.Scheme != "" {
		return false
	}
	info, err := os.Stat(loc.Key)
	return err == nil && info.IsDir()
}

// writeResult writes res as JSON to path, compressed according to its
// extension.
func writeResult(path string, res *pgnspy.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating result file: %w", err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	w, err := codec.ForPath(path).Writer(f)
	if err != nil {
		return fmt.Errorf("creating compressor: %w", err)
	}
	if err := res.WriteJSON(w); err != nil {
		w.Close()
		return fmt.Errorf("writing result: %w", err)
	}
	return w.Close()
}

// serveMetrics serves reg on addr until the returned function is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("stopping metrics server", zap.Error(err))
		}
	}
}

// printReport prints one row per player and a total row.
func printReport(w io.Writer, res *pgnspy.Result, s pgnspy.AnalysisSettings) {
	fmt.Fprintf(w, "Run:      %s\n", res.RunID)
	fmt.Fprintf(w, "Games:    %d analysed, %d with errors, %d skipped\n",
		res.GamesAnalysed(), res.GamesWithErrors, res.GamesSkipped)
	if res.Message != "" {
		fmt.Fprintf(w, "Errors:   %s\n", res.Message)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{"Player", "Positions"}
	for n := range s.NumVariations {
		header = append(header, fmt.Sprintf("T%d", n+1))
	}
	header = append(header, "ACPL", "SD", "Blunders", "Unmatched")
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	row := func(name string, st *pgnspy.Stats) {
		cells := []string{name, fmt.Sprint(st.Positions)}
		for n := range s.NumVariations {
			cells = append(cells, fmt.Sprintf("%.1f%%", 100*st.MatchRate(n)))
		}
		cells = append(cells,
			fmt.Sprintf("%.1f", st.AverageLoss),
			fmt.Sprintf("%.1f", st.StdDevLoss),
			fmt.Sprintf("%d (%.1f%%)", st.Blunders, 100*st.BlunderRate()),
			fmt.Sprint(st.Unmatched),
		)
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	for _, name := range res.Report.PlayerNames() {
		row(name, res.Report.Players[name])
	}
	row("Total", res.Report.Total)
	tw.Flush()
}
