package pgnspy

import (
	"fmt"
	"runtime"
	"time"
)

// AnalysisSettings is the immutable configuration of one analysis run.
// Thresholds are non-negative centipawn magnitudes; a zero threshold
// disables the gate it controls unless noted otherwise.
type AnalysisSettings struct {
	// PlayerName restricts analysis to the moves of this player
	// (case-insensitive). Empty means every move of every game.
	PlayerName string `mapstructure:"player_name"`

	// ExcludeForcedMoves skips positions where the second-best move is
	// more than ForcedMoveCutoff worse than the best.
	ExcludeForcedMoves bool `mapstructure:"exclude_forced_moves"`
	ForcedMoveCutoff   int  `mapstructure:"forced_move_cutoff"`

	// IncludeOnlyUnclearPositions keeps only positions where the
	// second-best move is within UnclearPositionCutoff of the best.
	IncludeOnlyUnclearPositions bool `mapstructure:"include_only_unclear_positions"`
	UnclearPositionCutoff       int  `mapstructure:"unclear_position_cutoff"`

	// BlunderThreshold is the centipawn loss above which a move is a blunder.
	BlunderThreshold int `mapstructure:"blunder_threshold"`

	// EqualPositionThreshold admits positions where neither side is better
	// by more than this value.
	EqualPositionThreshold int `mapstructure:"equal_position_threshold"`

	// LosingThreshold admits positions where the side to move is worse by
	// more than EqualPositionThreshold but by no more than this value.
	// When both thresholds are set, a position in either window counts.
	LosingThreshold int `mapstructure:"losing_threshold"`

	// BookDepth is the number of full moves at the start of each game that
	// are treated as opening book and not analysed.
	BookDepth int `mapstructure:"book_depth"`

	// EnginePath is the UCI engine executable.
	EnginePath string `mapstructure:"engine_path"`

	// NumVariations is the number of candidate lines (multipv) requested.
	NumVariations int `mapstructure:"num_variations"`

	// SearchDepth limits the engine search depth. Zero means time only.
	SearchDepth int `mapstructure:"search_depth"`

	// MaxTime bounds the engine's think time per position. Zero means
	// depth only.
	MaxTime time.Duration `mapstructure:"max_time"`

	// MinTime is the minimum think time granted per position.
	MinTime time.Duration `mapstructure:"min_time"`

	// NumThreads is the number of engine processes analysing in parallel.
	NumThreads int `mapstructure:"num_threads"`

	// EngineThreads is the search thread count of each engine process.
	EngineThreads int `mapstructure:"engine_threads"`

	// HashSize is each engine's hash table size in MB.
	HashSize int `mapstructure:"hash_size"`
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() AnalysisSettings {
	return AnalysisSettings{
		ExcludeForcedMoves:     true,
		ForcedMoveCutoff:       200,
		UnclearPositionCutoff:  50,
		BlunderThreshold:       200,
		EqualPositionThreshold: 100,
		BookDepth:              10,
		EnginePath:             "stockfish",
		NumVariations:          3,
		SearchDepth:            20,
		MaxTime:                5 * time.Second,
		NumThreads:             max(1, runtime.NumCPU()/2),
		EngineThreads:          1,
		HashSize:               128,
	}
}

// Validate reports the first problem that would make a run meaningless.
func (s AnalysisSettings) Validate() error {
	switch {
	case s.EnginePath == "":
		return fmt.Errorf("%w: engine path is empty", ErrInvalidSettings)
	case s.NumVariations < 1:
		return fmt.Errorf("%w: num_variations must be at least 1, got %d", ErrInvalidSettings, s.NumVariations)
	case s.NumThreads < 1:
		return fmt.Errorf("%w: num_threads must be at least 1, got %d", ErrInvalidSettings, s.NumThreads)
	case s.EngineThreads < 0, s.HashSize < 0, s.SearchDepth < 0, s.BookDepth < 0:
		return fmt.Errorf("%w: engine limits must not be negative", ErrInvalidSettings)
	case s.SearchDepth == 0 && s.MaxTime <= 0:
		return fmt.Errorf("%w: either search_depth or max_time must be set", ErrInvalidSettings)
	case s.MinTime < 0 || s.MaxTime < 0:
		return fmt.Errorf("%w: think times must not be negative", ErrInvalidSettings)
	case s.MaxTime > 0 && s.MinTime > s.MaxTime:
		return fmt.Errorf("%w: min_time %s exceeds max_time %s", ErrInvalidSettings, s.MinTime, s.MaxTime)
	case s.ForcedMoveCutoff < 0, s.UnclearPositionCutoff < 0, s.BlunderThreshold < 0,
		s.EqualPositionThreshold < 0, s.LosingThreshold < 0:
		return fmt.Errorf("%w: thresholds must not be negative", ErrInvalidSettings)
	case s.LosingThreshold > 0 && s.LosingThreshold <= s.EqualPositionThreshold:
		return fmt.Errorf("%w: losing_threshold %d must exceed equal_position_threshold %d",
			ErrInvalidSettings, s.LosingThreshold, s.EqualPositionThreshold)
	}
	return nil
}
