package engine

import (
	"context"
	"fmt"
	"runtime"

	"github.com/hailam/chessmind/internal/rules"
	"golang.org/x/sync/errgroup"
)

// Analysis is the search result for one position of a batch.
type Analysis struct {
	FEN    string
	Result Result
}

// AnalyzeAll searches every FEN to a fixed depth, in parallel. Each worker
// owns its own Engine so no table is shared between goroutines. Results keep
// the order of fens; the first error cancels the remaining work.
func AnalyzeAll(ctx context.Context, fens []string, depth int, cfg Config) ([]Analysis, error) {
	out := make([]Analysis, len(fens))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, fen := range fens {
		g.Go(func() error {
			pos, err := rules.FromFEN(fen)
			if err != nil {
				return err
			}
			e := NewEngine(cfg)
			res, err := e.SelectMove(ctx, pos, depth, pos.SideToMove())
			if err != nil {
				return fmt.Errorf("analyze %q: %w", fen, err)
			}
			out[i] = Analysis{FEN: fen, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
