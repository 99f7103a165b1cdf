package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/discochess/pgnspy"
)

// envPrefix prefixes the environment variables that override settings,
// as in PGNSPY_PLAYER_NAME.
const envPrefix = "PGNSPY"

// settingFlags ties each settings key to the flag that sets it.
var settingFlags = []struct {
	key  string
	flag string
}{
	{"player_name", "player"},
	{"engine_path", "engine"},
	{"num_variations", "variations"},
	{"search_depth", "depth"},
	{"max_time", "max-time"},
	{"min_time", "min-time"},
	{"num_threads", "threads"},
	{"engine_threads", "engine-threads"},
	{"hash_size", "hash"},
	{"book_depth", "book-depth"},
	{"blunder_threshold", "blunder-threshold"},
	{"exclude_forced_moves", "exclude-forced"},
	{"forced_move_cutoff", "forced-cutoff"},
	{"include_only_unclear_positions", "only-unclear"},
	{"unclear_position_cutoff", "unclear-cutoff"},
	{"equal_position_threshold", "equal-threshold"},
	{"losing_threshold", "losing-threshold"},
}

// addSettingsFlags registers one flag per analysis setting, defaulting to
// pgnspy.DefaultSettings.
func addSettingsFlags(fs *pflag.FlagSet) {
	d := pgnspy.DefaultSettings()

	fs.String("player", d.PlayerName, "analyse only this player's moves (case-insensitive)")
	fs.String("engine", d.EnginePath, "UCI engine executable")
	fs.Int("variations", d.NumVariations, "candidate lines requested per position (multipv)")
	fs.Int("depth", d.SearchDepth, "engine search depth; 0 searches by time only")
	fs.Duration("max-time", d.MaxTime, "engine think time per position; 0 searches by depth only")
	fs.Duration("min-time", d.MinTime, "minimum think time per position")
	fs.IntP("threads", "j", d.NumThreads, "engine processes analysing in parallel")
	fs.Int("engine-threads", d.EngineThreads, "search threads of each engine process")
	fs.Int("hash", d.HashSize, "hash table size of each engine process in MB")
	fs.Int("book-depth", d.BookDepth, "full moves at the start of each game left unanalysed")
	fs.Int("blunder-threshold", d.BlunderThreshold, "centipawn loss above which a move is a blunder")
	fs.Bool("exclude-forced", d.ExcludeForcedMoves, "skip positions with a single reasonable move")
	fs.Int("forced-cutoff", d.ForcedMoveCutoff, "gap to the second choice that makes a move forced")
	fs.Bool("only-unclear", d.IncludeOnlyUnclearPositions, "keep only positions with close alternatives")
	fs.Int("unclear-cutoff", d.UnclearPositionCutoff, "gap to the second choice within which a position is unclear")
	fs.Int("equal-threshold", d.EqualPositionThreshold, "keep only positions within this many centipawns of equality; 0 disables")
	fs.Int("losing-threshold", d.LosingThreshold, "also keep positions lost by more than equal-threshold and at most this; 0 disables")
}

// loadSettings resolves the analysis settings. Flags set on the command
// line win over PGNSPY_* environment variables, which win over the
// settings file, which wins over the defaults.
func loadSettings(fs *pflag.FlagSet, configFile string) (pgnspy.AnalysisSettings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, sf := range settingFlags {
		f := fs.Lookup(sf.flag)
		if f == nil {
			return pgnspy.AnalysisSettings{}, fmt.Errorf("flag --%s is not defined", sf.flag)
		}
		if err := v.BindPFlag(sf.key, f); err != nil {
			return pgnspy.AnalysisSettings{}, fmt.Errorf("binding --%s: %w", sf.flag, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return pgnspy.AnalysisSettings{}, fmt.Errorf("reading settings file: %w", err)
		}
	}

	var s pgnspy.AnalysisSettings
	if err := v.Unmarshal(&s); err != nil {
		return pgnspy.AnalysisSettings{}, fmt.Errorf("decoding settings: %w", err)
	}
	return s, s.Validate()
}
