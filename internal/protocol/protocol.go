// Package protocol implements a line-oriented text protocol for
// evaluating and searching reversi positions, in the style of UCI.
//
//	isready                                  -> readyok
//	newgame                                  resets position and hash table
//	position startpos|<cells> <side> [moves m1 m2 ...]
//	eval                                     -> eval score <n> raw <y> | eval terminal score <n>
//	go [depth N] [movetime MS]               -> info ... lines, then bestmove <m>
//	stop                                     stops a running search
//	perft [N]                                -> nodes <n>
//	d                                        prints the board
//	quit
package protocol

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hailam/reversi/internal/board"
	"github.com/hailam/reversi/internal/engine"
	"github.com/hailam/reversi/internal/eval"
)

// Protocol reads commands from an input stream and writes responses.
type Protocol struct {
	engine   *engine.Engine
	eval     *eval.Cached
	position *board.Position
	defaults engine.SearchLimits
	log      *zap.SugaredLogger

	outMu sync.Mutex
	out   io.Writer

	// Search state
	searching  atomic.Bool
	searchDone chan struct{}
}

// New creates a protocol handler. defaults apply to "go" without limits.
func New(eng *engine.Engine, ev *eval.Cached, defaults engine.SearchLimits, out io.Writer, log *zap.SugaredLogger) *Protocol {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Protocol{
		engine:   eng,
		eval:     ev,
		position: board.NewPosition(),
		defaults: defaults,
		log:      log,
		out:      out,
	}
}

// Run processes commands from in until "quit", end of input or ctx is
// cancelled. A search still running at end of input is allowed to finish;
// quit stops it.
func (p *Protocol) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			p.handleStop()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				p.waitSearch()
				return <-scanErr
			}
			if quit := p.handle(ctx, line); quit {
				p.handleStop()
				return nil
			}
		}
	}
}

// handle executes one command line and reports whether it was "quit".
func (p *Protocol) handle(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "isready":
		p.println("readyok")
	case "newgame":
		p.handleStop()
		p.engine.Clear()
		p.position = board.NewPosition()
	case "position":
		p.handleStop()
		p.handlePosition(args)
	case "eval":
		p.handleEval(ctx)
	case "go":
		p.handleGo(ctx, args)
	case "stop":
		p.handleStop()
	case "perft":
		p.handlePerft(args)
	case "d":
		p.println(p.position.String())
	case "quit":
		return true
	default:
		p.errorf("unknown command: %s", cmd)
	}
	return false
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves f5 d6
//   - position <64 cells> <side>
//   - position <64 cells> <side> moves c3
//
// The current position is kept if any part is invalid.
func (p *Protocol) handlePosition(args []string) {
	if len(args) == 0 {
		p.errorf("position: missing argument")
		return
	}

	var pos *board.Position
	var rest []string
	if args[0] == "startpos" {
		pos = board.NewPosition()
		rest = args[1:]
	} else {
		if len(args) < 2 {
			p.errorf("position: expected <cells> <side>")
			return
		}
		var err error
		pos, err = board.ParseText(args[0] + " " + args[1])
		if err != nil {
			p.errorf("position: %v", err)
			return
		}
		rest = args[2:]
	}

	if len(rest) > 0 {
		if rest[0] != "moves" {
			p.errorf("position: unexpected %q", rest[0])
			return
		}
		for _, s := range rest[1:] {
			m, err := board.ParseMove(s)
			if err != nil {
				p.errorf("position: %v", err)
				return
			}
			if err := pos.Play(m); err != nil {
				p.errorf("position: %v", err)
				return
			}
		}
	}

	p.position = pos
}

func (p *Protocol) handleEval(ctx context.Context) {
	res, err := p.eval.Evaluate(ctx, p.position)
	if err != nil {
		p.log.Errorw("evaluation failed", "position", p.position.Text(), "error", err)
		p.errorf("eval: %v", err)
		return
	}
	if res.Terminal {
		p.printf("eval terminal score %d\n", res.Score)
		return
	}
	p.printf("eval score %d raw %.6f\n", res.Score, res.Raw)
}

// parseGoOptions parses "go" arguments on top of the configured defaults.
// Explicit limits replace both defaults.
func (p *Protocol) parseGoOptions(args []string) (engine.SearchLimits, error) {
	if len(args) == 0 {
		return p.defaults, nil
	}

	var limits engine.SearchLimits
	for i := 0; i < len(args); i++ {
		if i+1 >= len(args) {
			return limits, fmt.Errorf("missing value for %s", args[i])
		}
		n, err := strconv.Atoi(args[i+1])
		if err != nil || n < 0 {
			return limits, fmt.Errorf("invalid %s %q", args[i], args[i+1])
		}
		switch args[i] {
		case "depth":
			limits.Depth = n
		case "movetime":
			limits.MoveTime = time.Duration(n) * time.Millisecond
		default:
			return limits, fmt.Errorf("unknown option %s", args[i])
		}
		i++
	}
	if limits.Depth == 0 && limits.MoveTime == 0 {
		limits.Depth = p.defaults.Depth
	}
	return limits, nil
}

// handleGo starts a search with the given parameters.
func (p *Protocol) handleGo(ctx context.Context, args []string) {
	limits, err := p.parseGoOptions(args)
	if err != nil {
		p.errorf("go: %v", err)
		return
	}

	p.handleStop()
	p.engine.ClearStop()

	p.engine.OnInfo = p.sendInfo
	pos := p.position.Copy()

	done := make(chan struct{})
	p.searchDone = done
	p.searching.Store(true)

	go func() {
		defer close(done)
		defer p.searching.Store(false)

		res, err := p.engine.SearchWithLimits(ctx, pos, limits)
		if err != nil {
			p.log.Errorw("search failed", "position", pos.Text(), "error", err)
			p.errorf("search failed: %v", err)
			p.println("bestmove none")
			return
		}
		if res.Book {
			p.println("info string book move")
		}
		p.printf("bestmove %s\n", res.Move)
	}()
}

// sendInfo outputs search info.
func (p *Protocol) sendInfo(info engine.SearchInfo) {
	parts := []string{
		fmt.Sprintf("depth %d", info.Depth),
		fmt.Sprintf("score %d", info.Score),
		fmt.Sprintf("nodes %d", info.Nodes),
		fmt.Sprintf("time %d", info.Time.Milliseconds()),
	}
	if info.Time > 0 {
		nps := uint64(float64(info.Nodes) / info.Time.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}
	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}
	if len(info.PV) > 0 {
		pv := make([]string, len(info.PV))
		for i, m := range info.PV {
			pv[i] = m.String()
		}
		parts = append(parts, "pv "+strings.Join(pv, " "))
	}
	p.printf("info %s\n", strings.Join(parts, " "))
}

// handleStop stops the current search and waits for it to report.
func (p *Protocol) handleStop() {
	if p.searching.Load() {
		p.engine.Stop()
	}
	p.waitSearch()
}

func (p *Protocol) waitSearch() {
	if p.searchDone != nil {
		<-p.searchDone
		p.searchDone = nil
	}
}

// handlePerft runs a perft test.
func (p *Protocol) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			p.errorf("perft: invalid depth %q", args[0])
			return
		}
		depth = n
	}

	start := time.Now()
	nodes := engine.Perft(p.position.Copy(), depth)
	p.printf("nodes %d time %d\n", nodes, time.Since(start).Milliseconds())
}

func (p *Protocol) printf(format string, args ...interface{}) {
	p.outMu.Lock()
	defer p.outMu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *Protocol) println(s string) {
	p.printf("%s\n", s)
}

func (p *Protocol) errorf(format string, args ...interface{}) {
	p.printf("info string error: "+format+"\n", args...)
}
