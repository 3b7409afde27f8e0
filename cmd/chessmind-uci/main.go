package main

import (
	"flag"
	"os"
	"runtime/pprof"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chessmind/internal/book"
	"github.com/hailam/chessmind/internal/engine"
	"github.com/hailam/chessmind/internal/uci"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	hashMB     = flag.Int("hash", 64, "transposition table size in MB")
	ownBook    = flag.Bool("book", true, "offer the built-in opening book")
	loglevel   = flag.String("loglevel", "info", "log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	// Protocol output owns stdout; diagnostics go to stderr.
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(*loglevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", profilePath).Msg("cpu-profiling")
	}

	cfg := engine.DefaultConfig()
	cfg.TTSizeMB = *hashMB
	eng := engine.NewEngine(cfg)

	var b engine.Book
	if *ownBook {
		b = book.Default(nil)
	}

	protocol := uci.New(eng, b, os.Stdout)
	if err := protocol.Run(os.Stdin); err != nil {
		log.Error().Err(err).Msg("uci-input")
	}
}
