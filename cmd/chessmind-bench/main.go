package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/chessmind/internal/engine"
	"github.com/hailam/chessmind/internal/rules"
)

// suite mixes quiet openings, tactics and endgames.
var suite = []string{
	rules.StartFEN,
	"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3",
	"r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4",
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1",
	"6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"8/8/4k3/8/2P5/8/4K3/8 w - - 0 1",
}

var (
	depth      = flag.Int("depth", 3, "search depth per position")
	perftDepth = flag.Int("perft", 4, "perft depth from the start position (0 skips)")
	jitter     = flag.Int("jitter", 0, "evaluation jitter amplitude")
	loglevel   = flag.String("loglevel", "warn", "log level (debug, info, warn, error)")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(*loglevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if *perftDepth > 0 {
		start := time.Now()
		nodes, err := engine.Perft(rules.NewGame(), *perftDepth)
		if err != nil {
			log.Fatal().Err(err).Msg("perft failed")
		}
		fmt.Printf("perft(%d) = %d in %v\n\n", *perftDepth, nodes, time.Since(start).Round(time.Millisecond))
	}

	cfg := engine.DefaultConfig()
	cfg.JitterAmplitude = *jitter

	start := time.Now()
	results, err := engine.AnalyzeAll(ctx, suite, *depth, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("analysis failed")
	}
	elapsed := time.Since(start)

	for _, a := range results {
		s := a.Result.Stats
		fmt.Printf("%-8s %8s %9d nodes %9d qnodes %6d tt  %s\n",
			a.Result.Move, engine.ScoreToString(a.Result.Score), s.Nodes, s.QNodes, s.TTHits, a.FEN)
	}

	total := lo.SumBy(results, func(a engine.Analysis) uint64 { return a.Result.Stats.Total() })
	fmt.Printf("\n%d positions, depth %d: %d nodes in %v (%.0f nps)\n",
		len(results), *depth, total, elapsed.Round(time.Millisecond), float64(total)/elapsed.Seconds())
}
