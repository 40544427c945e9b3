package protocol

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hailam/reversi/internal/board"
	"github.com/hailam/reversi/internal/engine"
	"github.com/hailam/reversi/internal/eval"
	"github.com/hailam/reversi/internal/nn"
)

func newTestProtocol(t *testing.T, y float64) (*Protocol, *bytes.Buffer) {
	t.Helper()
	e, err := eval.New(eval.ScorerFunc(func(nn.Input) (float64, error) { return y, nil }))
	if err != nil {
		t.Fatal(err)
	}
	cached := eval.NewCached(e, nil, 0)
	var out bytes.Buffer
	p := New(engine.NewEngine(cached, 1), cached, engine.SearchLimits{Depth: 2}, &out, nil)
	return p, &out
}

func run(t *testing.T, p *Protocol, script string) {
	t.Helper()
	if err := p.Run(context.Background(), strings.NewReader(script)); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestIsReadyAndEval(t *testing.T) {
	p, out := newTestProtocol(t, 0.5)
	run(t, p, "isready\neval\n")

	want := "readyok\neval score 30 raw 0.500000\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestPositionCommands(t *testing.T) {
	p, out := newTestProtocol(t, 0.5)

	run(t, p, "position startpos moves f5 d6\n")
	if out.Len() != 0 {
		t.Fatalf("unexpected output %q", out.String())
	}
	want := board.NewPosition()
	for _, s := range []string{"f5", "d6"} {
		m, _ := board.ParseMove(s)
		if err := want.Play(m); err != nil {
			t.Fatal(err)
		}
	}
	if p.position.Text() != want.Text() {
		t.Errorf("position = %s, want %s", p.position.Text(), want.Text())
	}

	// An illegal move leaves the previous position in place.
	run(t, p, "position startpos moves a1\n")
	if !strings.Contains(out.String(), "info string error: position:") {
		t.Errorf("missing error, output %q", out.String())
	}
	if p.position.Text() != want.Text() {
		t.Error("invalid position command replaced the position")
	}

	run(t, p, "position "+board.StartText+"\n")
	if p.position.Text() != board.StartText {
		t.Errorf("text position = %s", p.position.Text())
	}
}

func TestEvalTerminal(t *testing.T) {
	p, out := newTestProtocol(t, 0.5)
	cells := strings.Repeat("X", 64)
	run(t, p, "position "+cells+" O\neval\n")

	if got := out.String(); got != "eval terminal score 30000\n" {
		t.Errorf("output = %q", got)
	}
}

func TestGo(t *testing.T) {
	p, out := newTestProtocol(t, 0.5)
	run(t, p, "go depth 2\n")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 2 info lines and bestmove, got %q", out.String())
	}
	if !strings.HasPrefix(lines[0], "info depth 1 ") || !strings.HasPrefix(lines[1], "info depth 2 ") {
		t.Errorf("info lines = %q", lines[:2])
	}
	fields := strings.Fields(lines[2])
	if len(fields) != 2 || fields[0] != "bestmove" {
		t.Fatalf("last line = %q", lines[2])
	}
	m, err := board.ParseMove(fields[1])
	if err != nil || !board.NewPosition().IsLegal(m) {
		t.Errorf("bestmove %s is not legal at the start", fields[1])
	}
}

func TestStopRightAfterGo(t *testing.T) {
	for _, cmd := range []string{"quit", "stop"} {
		t.Run(cmd, func(t *testing.T) {
			e, err := eval.New(eval.ScorerFunc(func(nn.Input) (float64, error) {
				time.Sleep(200 * time.Microsecond)
				return 0.5, nil
			}))
			if err != nil {
				t.Fatal(err)
			}
			cached := eval.NewCached(e, nil, 0)
			var out bytes.Buffer
			p := New(engine.NewEngine(cached, 1), cached, engine.SearchLimits{Depth: 2}, &out, nil)

			done := make(chan error, 1)
			go func() {
				done <- p.Run(context.Background(), strings.NewReader("go depth 9\n"+cmd+"\n"))
			}()

			select {
			case err := <-done:
				if err != nil {
					t.Fatalf("Run: %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatalf("%s did not interrupt the search", cmd)
			}
			if !strings.Contains(out.String(), "bestmove ") || strings.Contains(out.String(), "info depth 9 ") {
				t.Errorf("output = %q", out.String())
			}
		})
	}
}

func TestGoDefaultsAndErrors(t *testing.T) {
	p, _ := newTestProtocol(t, 0.5)

	limits, err := p.parseGoOptions(nil)
	if err != nil || limits.Depth != 2 {
		t.Errorf("defaults = %+v, %v", limits, err)
	}
	limits, err = p.parseGoOptions([]string{"movetime", "100"})
	if err != nil || limits.Depth != 0 || limits.MoveTime.Milliseconds() != 100 {
		t.Errorf("movetime = %+v, %v", limits, err)
	}
	for _, args := range [][]string{{"depth"}, {"depth", "x"}, {"nodes", "5"}, {"depth", "-1"}} {
		if _, err := p.parseGoOptions(args); err == nil {
			t.Errorf("parseGoOptions(%v) should fail", args)
		}
	}
}

func TestSearchFailureReported(t *testing.T) {
	p, out := newTestProtocol(t, 2)
	run(t, p, "go depth 1\n")

	if !strings.Contains(out.String(), "search failed") || !strings.HasSuffix(out.String(), "bestmove none\n") {
		t.Errorf("output = %q", out.String())
	}
}

func TestQuitAndUnknown(t *testing.T) {
	p, out := newTestProtocol(t, 0.5)
	run(t, p, "bogus\nquit\nisready\n")

	if got := out.String(); got != "info string error: unknown command: bogus\n" {
		t.Errorf("output = %q", got)
	}
}

func TestPerft(t *testing.T) {
	p, out := newTestProtocol(t, 0.5)
	run(t, p, "perft 3\n")

	if !strings.HasPrefix(out.String(), "nodes 56 ") {
		t.Errorf("output = %q", out.String())
	}
}
