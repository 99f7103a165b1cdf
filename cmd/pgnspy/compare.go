package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/discochess/pgnspy"
	"github.com/discochess/pgnspy/internal/compare"
)

func newCompareCmd(g *globals) *cobra.Command {
	var (
		player     string
		markdown   bool
		outputJSON bool
		opts       = compare.DefaultOptions()
	)

	cmd := &cobra.Command{
		Use:   "compare RESULT",
		Short: "Compare a player's engine agreement with everyone else's",
		Long: `Compare one player's centipawn losses and first-choice match rate
with those of every other player in a result written by "analyze --out".

The losses are compared with a Mann-Whitney U test, Cohen's d and a
bootstrap interval for the difference of means. The match rates are
compared with a two-proportion z-test.

Examples:
  pgnspy compare --player DrNykterstein result.json.zst
  pgnspy compare --player DrNykterstein --markdown s3://bucket/result.json.zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			mux, err := g.sources()
			if err != nil {
				return err
			}
			defer mux.Close()

			rc, err := mux.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := pgnspy.ReadResult(rc)
			err = multierr.Append(err, rc.Close())
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			c, err := compare.Player(res.Report, player, opts)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch {
			case outputJSON:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(c)
			case markdown:
				return compare.WriteMarkdown(w, c)
			default:
				_, err = fmt.Fprintln(w, c.Summary())
				return err
			}
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&player, "player", "p", "", "player to compare (case-insensitive)")
	fs.BoolVar(&markdown, "markdown", false, "print a Markdown report")
	fs.BoolVar(&outputJSON, "json", false, "print the comparison as JSON")
	fs.IntVar(&opts.BootstrapIterations, "bootstrap", opts.BootstrapIterations, "bootstrap resampling iterations")
	fs.Float64Var(&opts.Confidence, "confidence", opts.Confidence, "bootstrap confidence level")
	_ = cmd.MarkFlagRequired("player")

	return cmd
}
