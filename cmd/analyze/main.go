package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/cricklet/chessforge/internal/config"
	"github.com/cricklet/chessforge/internal/engine"
	"github.com/cricklet/chessforge/internal/game"
	. "github.com/cricklet/chessforge/internal/helpers"
	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/pkg/profile"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

type analysis struct {
	line   string
	epd    game.Epd
	result engine.SearchResult
	err    Error
}

func (a analysis) solved() bool {
	return a.err.IsNil() && a.result.BestMove.HasValue() && a.epd.Solved(a.result.BestMove.Value().String())
}

func (a analysis) String() string {
	if a.err.HasError() {
		return fmt.Sprintf("%v\n  error: %v", a.line, a.err)
	}
	if a.result.NoMove() {
		return fmt.Sprintf("%v\n  no move", a.line)
	}

	eval := "?"
	if a.result.Score.HasValue() {
		score := a.result.Score.Value()
		eval = fmt.Sprintf("%v (%.0f%%)", score, score.WinPercentage())
	}
	result := fmt.Sprintf("%v\n  best %v eval %v depth %v nodes %v pv %v",
		a.line,
		a.result.BestMove.Value(),
		eval,
		a.result.Depth,
		humanize.Comma(a.result.Nodes),
		Ellipses(strings.Join(a.result.PV, " "), 60))

	if a.epd.HasExpectation() {
		if a.solved() {
			result += "\n  solved"
		} else {
			result += fmt.Sprintf("\n  missed: bm %v am %v", a.epd.BestMoves, a.epd.AvoidMoves)
		}
	}
	return result
}

// readPositions treats each argument as a file of FEN or EPD lines, or as a
// position itself. With no arguments positions are read from stdin.
func readPositions(args []string) ([]string, Error) {
	positions := []string{}
	scan := func(scanner *bufio.Scanner) Error {
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" && !strings.HasPrefix(line, "#") {
				positions = append(positions, line)
			}
		}
		return Wrap(scanner.Err())
	}

	if len(args) == 0 {
		return positions, scan(bufio.NewScanner(os.Stdin))
	}

	for _, arg := range args {
		file, err := os.Open(arg)
		if err != nil {
			positions = append(positions, arg)
			continue
		}
		scanErr := scan(bufio.NewScanner(file))
		file.Close()
		if scanErr.HasError() {
			return positions, scanErr
		}
	}
	return positions, NilError
}

// analyze searches every position at once. The session runs them one at a
// time in submission order.
func analyze(ctx context.Context, session *engine.Session, c config.Config, positions []string) []analysis {
	results := make([]analysis, len(positions))
	bar := progressbar.Default(int64(len(positions)), "analyzing")

	group := errgroup.Group{}
	for i, line := range positions {
		i, line := i, line
		group.Go(func() error {
			defer bar.Add(1)
			results[i].line = line

			epd, err := game.ParseEpd(line)
			if err.HasError() {
				results[i].err = err
				return nil
			}
			results[i].epd = epd

			g, err := game.NewGame(epd.Fen)
			if err.HasError() {
				results[i].err = err
				return nil
			}

			result, err := session.Search(ctx, engine.SearchRequest{
				Position:   g.CurrentPosition(),
				Params:     c.SearchParams(),
				SkillLevel: Some(c.Engine.SkillLevel),
			})
			if result.Score.HasValue() {
				result.Score = Some(result.Score.Value().ForWhite(g.Turn() == game.White))
			}
			results[i].result = result
			results[i].err = err
			return nil
		})
	}
	_ = group.Wait()
	_ = bar.Finish()

	return results
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, fmt.Sprint(r))
			fmt.Fprintln(os.Stderr, string(debug.Stack()))
		}
	}()

	args := os.Args[1:]

	if Contains(args, "profile") {
		p := profile.Start(profile.ProfilePath(RootDir() + "/data/CmdAnalyzeMain"))
		defer p.Stop()
	}
	args = FilterSlice(args, func(arg string) bool {
		return arg != "profile"
	})

	c, args, err := config.FromArgs(args)
	if err.HasError() {
		fmt.Fprintln(os.Stderr, "config:", err)
		fmt.Fprintln(os.Stderr, "usage: analyze [engine=path] [skill=N] [depth=N | movetime=1s] [verbose=true] <fen | epd | file>...")
		os.Exit(1)
	}

	positions, err := readPositions(args)
	if err.HasError() {
		fmt.Fprintln(os.Stderr, "reading positions:", err)
		os.Exit(1)
	}
	if len(positions) == 0 {
		fmt.Fprintln(os.Stderr, "no positions to analyze")
		return
	}

	var logger Logger = &SilentLogger
	if c.Verbose {
		logger = PrefixLogger(&DefaultLogger, "engine: ")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := engine.NewRegistry(c.EngineFactory(logger))
	defer registry.Shutdown()

	session, err := registry.Acquire(ctx)
	if err.HasError() {
		fmt.Fprintln(os.Stderr, "engine:", err)
		os.Exit(1)
	}
	name := session.EngineName()
	if name == "" {
		name = c.Engine.Path
	}
	fmt.Println("analyzing", len(positions), "positions with", name)

	results := analyze(ctx, session, c, positions)
	solved, expected := 0, 0
	for _, result := range results {
		fmt.Println(result)
		if c.Verbose {
			spew.Dump(result.result)
		}
		if result.epd.HasExpectation() {
			expected++
			if result.solved() {
				solved++
			}
		}
	}
	if expected > 0 {
		fmt.Printf("solved %v / %v\n", solved, expected)
	}
}
