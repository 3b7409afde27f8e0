package engine

import (
	"context"
	"testing"
	"time"

	"github.com/hailam/chessmind/internal/rules"
)

type stubBook struct {
	move rules.Move
	hits int
}

func (b *stubBook) Probe(pos rules.Position) (rules.Move, bool) {
	if pos.Key() != rules.NewGame().Key() {
		return rules.NoMove, false
	}
	b.hits++
	return b.move, true
}

func TestSearchBasic(t *testing.T) {
	eng := NewEngine(quietConfig())
	eng.SetDifficulty(Easy)

	res, err := eng.Search(context.Background(), rules.NewGame())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found() {
		t.Fatal("Search returned no move for starting position")
	}
	t.Logf("Best move: %s", FormatMove(res.Move, res.Score))
}

func TestBookPreFilter(t *testing.T) {
	eng := NewEngine(quietConfig())
	e4 := rules.Move{From: rules.NewSquare(4, 1), To: rules.NewSquare(4, 3), Piece: rules.Pawn}
	book := &stubBook{move: e4}
	eng.SetBook(book)

	res, err := eng.SelectMove(context.Background(), rules.NewGame(), 3, rules.White)
	if err != nil {
		t.Fatal(err)
	}
	if !res.FromBook || !res.Move.Same(e4) || res.Stats.Nodes != 0 {
		t.Errorf("book hit not honoured: %+v", res)
	}

	// Out of book the search runs.
	pos := rules.NewGame()
	playMoves(t, pos, "e2e4")
	res, err = eng.SelectMove(context.Background(), pos, 2, rules.Black)
	if err != nil {
		t.Fatal(err)
	}
	if res.FromBook || res.Stats.Nodes == 0 {
		t.Errorf("expected a real search: %+v", res)
	}
	if book.hits != 1 {
		t.Errorf("book hits = %d", book.hits)
	}
}

func TestSearchWithLimits(t *testing.T) {
	eng := NewEngine(quietConfig())
	var depths []int
	eng.OnInfo = func(info SearchInfo) {
		depths = append(depths, info.Depth)
	}

	res, err := eng.SearchWithLimits(context.Background(), rules.NewGame(), SearchLimits{Depth: 3, MoveTime: 30 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found() || res.Depth != 3 {
		t.Errorf("result %+v", res)
	}
	if len(depths) != 3 || depths[0] != 1 || depths[2] != 3 {
		t.Errorf("info depths = %v, want [1 2 3]", depths)
	}
}

func TestSearchWithNodeLimit(t *testing.T) {
	eng := NewEngine(quietConfig())
	res, err := eng.SearchWithLimits(context.Background(), rules.NewGame(), SearchLimits{Depth: 10, Nodes: 3000})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found() {
		t.Fatal("no move under a node limit")
	}
	// Polling granularity allows some overshoot.
	if res.Stats.Total() > 3000+2*checkInterval {
		t.Errorf("searched %d nodes", res.Stats.Total())
	}
	if res.Depth >= 10 {
		t.Errorf("depth %d reached under a tiny budget", res.Depth)
	}
}

func TestDepthOnlyMatchesSession(t *testing.T) {
	const fen = "4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1"
	eng := NewEngine(quietConfig())
	a, err := eng.SearchWithLimits(context.Background(), mustFEN(t, fen), SearchLimits{Depth: 3})
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewSession(quietConfig()).SelectMove(mustFEN(t, fen), 3, rules.White)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Move.Same(b.Move) || a.Score != b.Score {
		t.Errorf("engine %s/%d, session %s/%d", a.Move, a.Score, b.Move, b.Score)
	}
}

func TestGoAndStop(t *testing.T) {
	eng := NewEngine(quietConfig())
	done := eng.Go(context.Background(), rules.NewGame(), SearchLimits{Depth: MaxPly - 1, Infinite: true})

	time.Sleep(200 * time.Millisecond)
	eng.Stop()

	select {
	case out := <-done:
		if out.Err != nil {
			t.Fatal(out.Err)
		}
		if !out.Result.Found() {
			t.Error("stopped search returned no move")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("search did not stop")
	}
}

func TestStopHoldsAgainstQueuedSearch(t *testing.T) {
	eng := NewEngine(quietConfig())
	done := eng.Go(context.Background(), rules.NewGame(), SearchLimits{Depth: MaxPly - 1, Infinite: true})

	time.Sleep(200 * time.Millisecond)
	eng.Stop()

	// A search queued behind the running one must not revive it.
	queued := make(chan Outcome, 1)
	go func() {
		res, err := eng.SearchWithLimits(context.Background(), rules.NewGame(), SearchLimits{Depth: 1})
		queued <- Outcome{Result: res, Err: err}
	}()

	select {
	case out := <-done:
		if out.Err != nil {
			t.Fatal(out.Err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("stopped search kept running")
	}

	select {
	case out := <-queued:
		if out.Err != nil {
			t.Fatal(out.Err)
		}
		if !out.Result.Found() {
			t.Errorf("queued search = %+v", out.Result)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("queued search did not finish")
	}
}

func TestOptionsChangeDuringSearch(t *testing.T) {
	eng := NewEngine(quietConfig())
	done := eng.Go(context.Background(), rules.NewGame(), SearchLimits{Depth: MaxPly - 1, Infinite: true})

	e4 := rules.Move{From: rules.NewSquare(4, 1), To: rules.NewSquare(4, 3), Piece: rules.Pawn}
	book := &stubBook{move: e4}
	for i := 0; i < 100; i++ {
		eng.SetBook(nil)
		eng.SetDifficulty(Difficulty(i % 3))
		eng.SetBook(book)
		_ = eng.Difficulty()
	}
	eng.SetDifficulty(Hard)
	eng.Stop()

	select {
	case out := <-done:
		if out.Err != nil {
			t.Fatal(out.Err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("search did not stop")
	}

	// The last settings apply to the next search.
	if eng.Difficulty() != Hard {
		t.Errorf("difficulty = %v", eng.Difficulty())
	}
	res, err := eng.SelectMove(context.Background(), rules.NewGame(), 2, rules.White)
	if err != nil {
		t.Fatal(err)
	}
	if !res.FromBook || !res.Move.Same(e4) {
		t.Errorf("book set during search not used afterwards: %+v", res)
	}
}

func TestEpisodesResetTables(t *testing.T) {
	eng := NewEngine(quietConfig())
	if _, err := eng.SelectMove(context.Background(), rules.NewGame(), 2, rules.White); err != nil {
		t.Fatal(err)
	}
	if eng.Session().TT().Len() == 0 {
		t.Fatal("search stored nothing")
	}
	pos := rules.NewGame()
	playMoves(t, pos, "e2e4")
	if _, err := eng.SelectMove(context.Background(), pos, 1, rules.Black); err != nil {
		t.Fatal(err)
	}
	// The start position entry belongs to the previous episode.
	if _, ok := eng.Session().TT().Probe(Hash(rules.NewGame().Key())); ok {
		t.Error("table survived an episode boundary")
	}

	cfg := quietConfig()
	cfg.KeepTables = true
	keep := NewEngine(cfg)
	if _, err := keep.SelectMove(context.Background(), rules.NewGame(), 2, rules.White); err != nil {
		t.Fatal(err)
	}
	if _, err := keep.SelectMove(context.Background(), pos, 1, rules.Black); err != nil {
		t.Fatal(err)
	}
	if _, ok := keep.Session().TT().Probe(Hash(rules.NewGame().Key())); !ok {
		t.Error("KeepTables engine dropped its table")
	}

	keep.Clear()
	if keep.Session().TT().Len() != 0 {
		t.Error("Clear left entries")
	}
}

func TestPerft(t *testing.T) {
	want := []uint64{1, 20, 400, 8902}
	for depth, n := range want {
		got, err := Perft(rules.NewGame(), depth)
		if err != nil {
			t.Fatal(err)
		}
		if got != n {
			t.Errorf("perft(%d) = %d, want %d", depth, got, n)
		}
	}
}

func TestAnalyzeAll(t *testing.T) {
	fens := []string{
		rules.StartFEN,
		"4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1",
		"6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1",
	}
	out, err := AnalyzeAll(context.Background(), fens, 2, quietConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(fens) {
		t.Fatalf("got %d results", len(out))
	}
	if out[1].Result.Move.String() != "d1d5" || out[2].Result.Move.String() != "a1a8" {
		t.Errorf("unexpected moves: %s, %s", out[1].Result.Move, out[2].Result.Move)
	}

	if _, err := AnalyzeAll(context.Background(), []string{"not a fen"}, 1, quietConfig()); err == nil {
		t.Error("bad FEN accepted")
	}
}

func TestScoreToString(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "0.00"},
		{135, "1.35"},
		{-7, "-0.07"},
		{CheckmateScore, "Checkmate"},
		{-CheckmateScore, "Checkmated"},
	}
	for _, tt := range tests {
		if got := ScoreToString(tt.score); got != tt.want {
			t.Errorf("ScoreToString(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestClockAllocate(t *testing.T) {
	c := Clock{Time: [2]time.Duration{60 * time.Second, 10 * time.Second}}
	w := c.Allocate(rules.White, 20)
	if w <= 0 || w > 48*time.Second {
		t.Errorf("white allocation %v", w)
	}
	if b := c.Allocate(rules.Black, 20); b >= w {
		t.Errorf("black with less time got %v >= %v", b, w)
	}
	if got := (Clock{}).Allocate(rules.White, 0); got != 0 {
		t.Errorf("empty clock allocated %v", got)
	}
	low := Clock{Time: [2]time.Duration{5 * time.Millisecond}}
	if got := low.Allocate(rules.White, 40); got != 10*time.Millisecond {
		t.Errorf("low clock allocated %v", got)
	}
}
