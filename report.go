package pgnspy

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
)

// Report groups Stats for a run: one over every counted position and one
// per player.
type Report struct {
	Total   *Stats            `json:"total"`
	Players map[string]*Stats `json:"players"`

	settings AnalysisSettings
}

// NewReport returns an empty report for s.
func NewReport(s AnalysisSettings) *Report {
	return &Report{
		Total:    NewStats(s),
		Players:  make(map[string]*Stats),
		settings: s,
	}
}

// AddGame folds every position of g into the report, attributing each to
// the player who moved.
func (r *Report) AddGame(g *Game) error {
	for i := range g.Positions {
		p := &g.Positions[i]
		counted, err := r.Total.AddPosition(p, r.settings)
		if err != nil {
			return err
		}
		if !counted {
			continue
		}
		if _, err := r.Player(g.Player(p)).AddPosition(p, r.settings); err != nil {
			return err
		}
	}
	return nil
}

// Player returns the Stats of name, creating them on first use.
func (r *Report) Player(name string) *Stats {
	st, ok := r.Players[name]
	if !ok {
		st = NewStats(r.settings)
		r.Players[name] = st
	}
	return st
}

// Merge adds o to r, player by player.
func (r *Report) Merge(o *Report) error {
	if err := r.Total.Merge(o.Total); err != nil {
		return err
	}
	for name, st := range o.Players {
		if err := r.Player(name).Merge(st); err != nil {
			return fmt.Errorf("merging %s: %w", name, err)
		}
	}
	return nil
}

// Finalise finalises every Stats in the report.
func (r *Report) Finalise() {
	r.Total.Finalise()
	for _, st := range r.Players {
		st.Finalise()
	}
}

// PlayerNames returns the players in the report, sorted.
func (r *Report) PlayerNames() []string {
	return slices.Sorted(maps.Keys(r.Players))
}

// Result is the outcome of one ProcessGames call. It is always populated,
// including when the run fails part way.
type Result struct {
	RunID string `json:"run_id"`

	// Games holds the analysed games in input order.
	Games []Game `json:"games"`

	// GamesWithErrors counts games discarded because of an engine failure,
	// a timeout, a malformed PGN or cancellation.
	GamesWithErrors int `json:"games_with_errors"`

	// GamesSkipped counts games the player filter left out.
	GamesSkipped int `json:"games_skipped"`

	// Message describes the errors of the run. Empty when there were none.
	Message string `json:"message,omitempty"`

	Report *Report `json:"report"`
}

// GamesAnalysed returns the number of fully analysed games.
func (r *Result) GamesAnalysed() int {
	return len(r.Games)
}

// OK reports whether every game was analysed without error.
func (r *Result) OK() bool {
	return r.GamesWithErrors == 0
}

// WriteJSON writes the result as indented JSON.
func (r *Result) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ReadResult decodes a result written by WriteJSON. Every Stats in the
// report comes back finalised.
func ReadResult(r io.Reader) (*Result, error) {
	var res Result
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	if res.Report == nil {
		return nil, fmt.Errorf("decoding result: no report")
	}
	if res.Report.Total == nil {
		res.Report.Total = &Stats{}
	}
	if res.Report.Players == nil {
		res.Report.Players = make(map[string]*Stats)
	}
	res.Report.Finalise()
	return &res, nil
}
