// Package fakeengine is a scripted UCI engine for tests.
//
// Tests re-exec their own binary with Script.Env set and call Main from a
// helper test, so the driver talks to a real subprocess over real pipes:
//
//	func TestHelperEngine(t *testing.T) {
//	    if !fakeengine.Enabled() {
//	        t.Skip("helper process for engine tests")
//	    }
//	    fakeengine.Main()
//	}
package fakeengine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Environment variables carrying the script.
const (
	EnvEnable    = "PGNSPY_FAKE_ENGINE"
	envScores    = "PGNSPY_FAKE_SCORES"
	envLine      = "PGNSPY_FAKE_LINE"
	envMatchRank = "PGNSPY_FAKE_MATCH_RANK"
	envCrashOn   = "PGNSPY_FAKE_CRASH_ON"
	envHangOn    = "PGNSPY_FAKE_HANG_ON"
	envFailStart = "PGNSPY_FAKE_FAIL_HANDSHAKE"
	envProgress  = "PGNSPY_FAKE_PROGRESS"
	envStartLog  = "PGNSPY_FAKE_START_LOG"
	envStderr    = "PGNSPY_FAKE_STDERR"
	envDelay     = "PGNSPY_FAKE_DELAY"
)

// HelperArgs are the arguments that make a test binary run only the helper
// test named TestHelperEngine.
var HelperArgs = []string{"-test.run=^TestHelperEngine$"}

// Script controls how the fake engine answers.
type Script struct {
	// Scores are the centipawn scores reported for ranks 0..len-1.
	Scores []int

	// Line is the sequence of moves, in UCI notation, reported at
	// MatchRank: at a position with k moves played, Line[k] is used.
	Line []string

	// MatchRank is the rank Line moves are reported at.
	MatchRank int

	// CrashOn makes the engine exit mid-search once this move is in the
	// position's move list.
	CrashOn string

	// HangOn makes the engine never answer a search once this move is in
	// the position's move list.
	HangOn string

	// FailHandshake makes the engine exit when it receives "uci".
	FailHandshake bool

	// Progress emits shallower, out-of-order lines before the final ones.
	Progress bool

	// StartLog, if set, is a file the engine appends one line to per launch.
	StartLog string

	// Stderr is written to stderr at startup.
	Stderr string

	// Delay is how long each search takes.
	Delay time.Duration
}

// Enabled reports whether the current process should act as the engine.
func Enabled() bool {
	return os.Getenv(EnvEnable) == "1"
}

// Env returns environment entries that select the fake engine running s.
func (s Script) Env() []string {
	scores := make([]string, len(s.Scores))
	for i, v := range s.Scores {
		scores[i] = strconv.Itoa(v)
	}
	env := []string{
		EnvEnable + "=1",
		envScores + "=" + strings.Join(scores, ","),
		envLine + "=" + strings.Join(s.Line, " "),
		envMatchRank + "=" + strconv.Itoa(s.MatchRank),
		envCrashOn + "=" + s.CrashOn,
		envHangOn + "=" + s.HangOn,
		envStartLog + "=" + s.StartLog,
		envStderr + "=" + s.Stderr,
		envDelay + "=" + s.Delay.String(),
	}
	if s.FailHandshake {
		env = append(env, envFailStart+"=1")
	}
	if s.Progress {
		env = append(env, envProgress+"=1")
	}
	return env
}

// FromEnv reads the script from the environment.
func FromEnv() Script {
	s := Script{
		Line:          strings.Fields(os.Getenv(envLine)),
		CrashOn:       os.Getenv(envCrashOn),
		HangOn:        os.Getenv(envHangOn),
		FailHandshake: os.Getenv(envFailStart) == "1",
		Progress:      os.Getenv(envProgress) == "1",
		StartLog:      os.Getenv(envStartLog),
		Stderr:        os.Getenv(envStderr),
	}
	for _, f := range strings.Split(os.Getenv(envScores), ",") {
		if v, err := strconv.Atoi(strings.TrimSpace(f)); err == nil {
			s.Scores = append(s.Scores, v)
		}
	}
	if len(s.Scores) == 0 {
		s.Scores = []int{50, 20, -10}
	}
	s.MatchRank, _ = strconv.Atoi(os.Getenv(envMatchRank))
	s.Delay, _ = time.ParseDuration(os.Getenv(envDelay))
	return s
}

// Main runs the engine on the process's standard streams and exits.
func Main() {
	os.Exit(Run(os.Stdin, os.Stdout, os.Stderr, FromEnv()))
}

// Run serves the UCI protocol on in/out until "quit" or EOF and returns
// the exit code.
func Run(in io.Reader, out, errOut io.Writer, s Script) int {
	if s.StartLog != "" {
		if f, err := os.OpenFile(s.StartLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			fmt.Fprintln(f, os.Getpid())
			f.Close()
		}
	}
	if s.Stderr != "" {
		fmt.Fprintln(errOut, s.Stderr)
	}

	w := bufio.NewWriter(out)
	say := func(format string, args ...any) {
		fmt.Fprintf(w, format+"\n", args...)
	}

	multiPV := 1
	var moves []string

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch {
		case cmd == "uci":
			if s.FailHandshake {
				return 2
			}
			say("id name fakeengine")
			say("id author pgnspy")
			say("option name MultiPV type spin default 1 min 1 max 500")
			say("uciok")

		case cmd == "isready":
			say("readyok")

		case cmd == "ucinewgame":
			moves = nil

		case strings.HasPrefix(cmd, "setoption name MultiPV value "):
			if n, err := strconv.Atoi(strings.TrimPrefix(cmd, "setoption name MultiPV value ")); err == nil {
				multiPV = n
			}

		case strings.HasPrefix(cmd, "position"):
			moves = nil
			if _, list, ok := strings.Cut(cmd, " moves "); ok {
				moves = strings.Fields(list)
			}

		case strings.HasPrefix(cmd, "go"):
			if s.CrashOn != "" && slices.Contains(moves, s.CrashOn) {
				say("info depth 1 multipv 1 score cp 0 time 1 pv %s", filler(0))
				w.Flush()
				return 3
			}
			if s.HangOn != "" && slices.Contains(moves, s.HangOn) {
				continue
			}
			if s.Delay > 0 {
				time.Sleep(s.Delay)
			}
			s.search(say, multiPV, len(moves))

		case cmd == "quit":
			w.Flush()
			return 0
		}
		w.Flush()
	}
	return 0
}

// search prints the info lines and bestmove for the position reached after
// ply moves.
func (s Script) search(say func(string, ...any), multiPV, ply int) {
	ranks := min(multiPV, len(s.Scores))

	move := func(rank int) string {
		if rank == s.MatchRank && ply < len(s.Line) {
			return s.Line[ply]
		}
		return filler(rank)
	}

	if s.Progress {
		for r := ranks - 1; r >= 0; r-- {
			say("info depth 1 seldepth 1 multipv %d score cp %d nodes 20 time 1 pv %s",
				r+1, s.Scores[ranks-1-r], move(r))
		}
		say("info depth 2 currmove %s currmovenumber 1", move(0))
		say("info string NNUE evaluation enabled")
	}
	for r := 0; r < ranks; r++ {
		say("info depth 10 seldepth 14 multipv %d score cp %d nodes 12000 nps 600000 time 20 pv %s %s",
			r+1, s.Scores[r], move(r), filler(9))
	}
	say("bestmove %s", move(0))
}

// filler returns a placeholder move that never matches a real move.
func filler(rank int) string {
	return fmt.Sprintf("z%dz%d", rank, rank)
}
