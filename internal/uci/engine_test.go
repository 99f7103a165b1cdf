package uci

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/discochess/pgnspy/internal/testutil/fakeengine"
)

func TestHelperEngine(t *testing.T) {
	if !fakeengine.Enabled() {
		t.Skip("helper process for engine tests")
	}
	fakeengine.Main()
}

func fakeConfig(t *testing.T, s fakeengine.Script) Config {
	t.Helper()
	return Config{
		Path:            os.Args[0],
		Args:            fakeengine.HelperArgs,
		Env:             s.Env(),
		StartTimeout:    5 * time.Second,
		ShutdownTimeout: time.Second,
	}
}

func launchFake(t *testing.T, s fakeengine.Script, opts Options) *Engine {
	t.Helper()
	e, err := Launch(context.Background(), fakeConfig(t, s), opts)
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestLaunch_Handshake(t *testing.T) {
	e := launchFake(t, fakeengine.Script{}, Options{MultiPV: 3, HashMB: 16, Threads: 1})
	if e.Name() != "fakeengine" {
		t.Errorf("Name() = %q, want fakeengine", e.Name())
	}
}

func TestLaunch_MissingBinary(t *testing.T) {
	_, err := Launch(context.Background(), Config{Path: "/nonexistent/engine"}, Options{})
	if !errors.Is(err, ErrLaunch) {
		t.Errorf("Launch() error = %v, want ErrLaunch", err)
	}
}

func TestLaunch_HandshakeFailure(t *testing.T) {
	_, err := Launch(context.Background(), fakeConfig(t, fakeengine.Script{FailHandshake: true}), Options{})
	if !errors.Is(err, ErrLaunch) {
		t.Errorf("Launch() error = %v, want ErrLaunch", err)
	}
}

func TestEngine_Analyse(t *testing.T) {
	s := fakeengine.Script{
		Scores:    []int{120, 80, 40},
		Line:      []string{"e2e4", "e7e5"},
		MatchRank: 1,
		Progress:  true,
	}
	e := launchFake(t, s, Options{MultiPV: 3})
	ctx := context.Background()

	if err := e.NewGame(ctx); err != nil {
		t.Fatalf("NewGame() error = %v", err)
	}

	a, err := e.Analyse(ctx, "", []string{"e2e4"}, Limits{Depth: 10, MoveTime: time.Second, Grace: time.Second})
	if err != nil {
		t.Fatalf("Analyse() error = %v", err)
	}
	if len(a.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(a.Lines))
	}
	for i, want := range []int{120, 80, 40} {
		if a.Lines[i].Score != want || a.Lines[i].Depth != 10 {
			t.Errorf("Lines[%d] = %+v, want depth 10 score %d", i, a.Lines[i], want)
		}
	}
	if a.Lines[1].Move != "e7e5" {
		t.Errorf("rank 1 move = %q, want e7e5", a.Lines[1].Move)
	}
}

func TestEngine_AnalyseReusesProcess(t *testing.T) {
	e := launchFake(t, fakeengine.Script{Scores: []int{10, 5}}, Options{MultiPV: 2})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := e.Analyse(ctx, "", nil, Limits{Depth: 5}); err != nil {
			t.Fatalf("Analyse() #%d error = %v", i, err)
		}
	}
}

func TestEngine_AnalyseTimeout(t *testing.T) {
	e := launchFake(t, fakeengine.Script{HangOn: "a2a3"}, Options{MultiPV: 1})

	start := time.Now()
	_, err := e.Analyse(context.Background(), "", []string{"a2a3"},
		Limits{Depth: 5, MoveTime: 50 * time.Millisecond, Grace: 50 * time.Millisecond})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Analyse() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %s", elapsed)
	}
}

func TestEngine_AnalyseDepthOnlyTimeout(t *testing.T) {
	e := launchFake(t, fakeengine.Script{HangOn: "a2a3"}, Options{MultiPV: 1})

	start := time.Now()
	_, err := e.Analyse(context.Background(), "", []string{"a2a3"},
		Limits{Depth: 5, SearchTimeout: 100 * time.Millisecond, Grace: 50 * time.Millisecond})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Analyse() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %s", elapsed)
	}
}

func TestLimits_ResponseTimeout(t *testing.T) {
	tests := []struct {
		name string
		lim  Limits
		want time.Duration
	}{
		{"movetime", Limits{MoveTime: time.Second, Grace: 2 * time.Second}, 3 * time.Second},
		{"min time above movetime", Limits{MoveTime: time.Second, MinTime: 4 * time.Second, Grace: time.Second}, 5 * time.Second},
		{"depth only", Limits{Depth: 20, SearchTimeout: 10 * time.Second, Grace: time.Second}, 11 * time.Second},
		{"depth only default", Limits{Depth: 20}, DefaultSearchTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.lim.ResponseTimeout(); got != tt.want {
				t.Errorf("ResponseTimeout() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEngine_AnalyseCrash(t *testing.T) {
	e := launchFake(t, fakeengine.Script{CrashOn: "h2h4", Stderr: "engine warming up"}, Options{MultiPV: 1})

	_, err := e.Analyse(context.Background(), "", []string{"h2h4"}, Limits{Depth: 5})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("Analyse() error = %v, want ErrIO", err)
	}
	if !strings.Contains(e.Stderr(), "engine warming up") {
		t.Errorf("Stderr() = %q, want captured stderr", e.Stderr())
	}
}

func TestEngine_AnalyseCancelled(t *testing.T) {
	e := launchFake(t, fakeengine.Script{HangOn: "a2a3"}, Options{MultiPV: 1})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := e.Analyse(ctx, "", []string{"a2a3"}, Limits{Depth: 5})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Analyse() error = %v, want context.Canceled", err)
	}
}

func TestPositionCommand(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		moves []string
		want  string
	}{
		{"startpos", "", nil, "position startpos"},
		{"startpos with moves", "", []string{"e2e4", "e7e5"}, "position startpos moves e2e4 e7e5"},
		{"fen", "8/8/8/8/8/8/8/K6k w - - 0 1", nil, "position fen 8/8/8/8/8/8/8/K6k w - - 0 1"},
		{"fen with moves", "8/8/8/8/8/8/8/K6k w - - 0 1", []string{"a1a2"}, "position fen 8/8/8/8/8/8/8/K6k w - - 0 1 moves a1a2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PositionCommand(tt.fen, tt.moves); got != tt.want {
				t.Errorf("PositionCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGoCommand(t *testing.T) {
	tests := []struct {
		lim  Limits
		want string
	}{
		{Limits{Depth: 20}, "go depth 20"},
		{Limits{MoveTime: 1500 * time.Millisecond}, "go movetime 1500"},
		{Limits{Depth: 18, MoveTime: 2 * time.Second}, "go depth 18 movetime 2000"},
	}
	for _, tt := range tests {
		if got := GoCommand(tt.lim); got != tt.want {
			t.Errorf("GoCommand(%+v) = %q, want %q", tt.lim, got, tt.want)
		}
	}
}
