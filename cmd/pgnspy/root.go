package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/discochess/pgnspy/internal/source"
	"github.com/discochess/pgnspy/internal/source/disksource"
	"github.com/discochess/pgnspy/internal/source/gcssource"
	"github.com/discochess/pgnspy/internal/source/s3source"
)

// globals holds the persistent flags and the state derived from them.
type globals struct {
	configFile string
	verbose    bool
	s3Region   string
	s3Endpoint string

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "pgnspy",
		Short: "Measure how closely chess moves follow a UCI engine",
		Long: `pgnspy replays games from PGN archives through a pool of UCI engine
processes and reports, per player, how often the played move was the
engine's first, second or third choice, the average centipawn loss and
the number of blunders.

Archives may be local files or directories, s3://bucket/key or
gs://bucket/key locations, plain or compressed with .zst or .gz.

Examples:
  # Analyse one player's games with 4 engine processes
  pgnspy analyze --engine stockfish --player DrNykterstein --threads 4 games.pgn

  # Analyse a directory of archives and keep the full result
  pgnspy analyze --out result.json.zst ./archives/

  # Compare a player with everyone else in a saved result
  pgnspy compare --player DrNykterstein result.json.zst`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(g.verbose)
			if err != nil {
				return err
			}
			g.logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = g.logger.Sync()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configFile, "config", "c", "", "settings file (yaml, json or toml)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&g.s3Region, "s3-region", "", "AWS region for s3:// locations")
	pf.StringVar(&g.s3Endpoint, "s3-endpoint", "", "custom endpoint for S3-compatible services")

	cmd.AddCommand(
		newAnalyzeCmd(g),
		newCompareCmd(g),
		newVersionCmd(),
	)
	return cmd
}

// newLogger returns a development logger when verbose, a production one
// otherwise.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// sources returns a mux serving local paths, s3:// and gs:// locations.
func (g *globals) sources() (*source.Mux, error) {
	local, err := disksource.New("")
	if err != nil {
		return nil, err
	}

	mux := source.NewMux(local)
	mux.Register("s3", func(ctx context.Context, bucket string) (source.Source, error) {
		var opts []s3source.Option
		if g.s3Region != "" {
			opts = append(opts, s3source.WithRegion(g.s3Region))
		}
		if g.s3Endpoint != "" {
			opts = append(opts, s3source.WithEndpoint(g.s3Endpoint))
		}
		return s3source.New(ctx, bucket, opts...)
	})
	mux.Register("gs", func(ctx context.Context, bucket string) (source.Source, error) {
		return gcssource.New(ctx, bucket)
	})
	return mux, nil
}
