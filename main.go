// ChessMind - play chess against the search engine in a terminal
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/chessmind/internal/book"
	"github.com/hailam/chessmind/internal/delegate"
	"github.com/hailam/chessmind/internal/engine"
	"github.com/hailam/chessmind/internal/rules"
	"github.com/hailam/chessmind/internal/storage"
)

var (
	difficulty = flag.String("difficulty", "medium", "engine difficulty (easy, medium, hard)")
	depth      = flag.Int("depth", 0, "fixed search depth (0 uses the difficulty)")
	color      = flag.String("color", "white", "colour you play (white, black)")
	useBook    = flag.Bool("book", true, "let the engine play from its opening book")
	engineCmd  = flag.String("delegate", "", "path of an external UCI engine to play instead")
	moveTime   = flag.Duration("movetime", time.Second, "thinking time for the external engine")
	dbDir      = flag.String("db", "", "database directory (default: platform data dir, \"none\" disables)")
	loglevel   = flag.String("loglevel", "warn", "log level (debug, info, warn, error)")
)

type settings struct {
	difficulty engine.Difficulty
	depth      int
	human      rules.Color
	book       bool
	delegate   string
}

func main() {
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(*loglevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	store := openStorage()
	if store != nil {
		defer store.Close()
	}
	prefs := storage.DefaultPreferences()
	if store != nil {
		p, err := store.LoadPreferences()
		if err != nil {
			log.Warn().Err(err).Msg("load-preferences")
		} else {
			prefs = p
		}
	}
	applyFlags(prefs)

	s, err := resolve(prefs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if store != nil {
		if err := store.SavePreferences(prefs); err != nil {
			log.Warn().Err(err).Msg("save-preferences")
		}
	}

	eng := engine.NewEngine(engine.DefaultConfig())
	eng.SetDifficulty(s.difficulty)
	if s.book {
		eng.SetBook(book.Default(nil))
	}

	var ext *delegate.Engine
	if s.delegate != "" {
		ext, err = delegate.New(s.delegate)
		if err != nil {
			log.Error().Err(err).Msg("delegate unavailable, using own search")
		} else {
			defer ext.Close()
		}
	}

	p := &player{s: s, eng: eng, ext: ext, in: bufio.NewScanner(os.Stdin), out: os.Stdout}
	res, played := p.play(ctx)
	if !played {
		return
	}

	code, title := book.NewECO().Name(res.Moves)
	if code != "" {
		fmt.Fprintf(os.Stdout, "Opening: %s %s\n", code, title)
		res.Opening = code
	}
	fmt.Fprintf(os.Stdout, "Result: %s\n", res.Outcome)

	if store != nil {
		if _, err := store.RecordGame(res); err != nil {
			log.Warn().Err(err).Msg("record-game")
			return
		}
		if stats, err := store.LoadStats(); err == nil {
			fmt.Fprintf(os.Stdout, "Games: %d, win rate %.1f%%\n", stats.GamesPlayed, stats.WinRate())
		}
	}
}

func openStorage() *storage.Storage {
	var (
		store *storage.Storage
		err   error
	)
	switch *dbDir {
	case "none":
		return nil
	case "":
		store, err = storage.NewStorage()
	default:
		store, err = storage.Open(*dbDir)
	}
	if err != nil {
		log.Warn().Err(err).Msg("storage disabled")
		return nil
	}
	return store
}

// applyFlags overrides saved preferences with the flags given on the command line.
func applyFlags(prefs *storage.Preferences) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "difficulty":
			prefs.Difficulty = *difficulty
		case "depth":
			prefs.Depth = *depth
		case "color":
			prefs.Color = *color
		case "book":
			prefs.UseBook = *useBook
		case "delegate":
			prefs.Delegate = *engineCmd
		}
	})
}

func resolve(prefs *storage.Preferences) (settings, error) {
	d, ok := engine.ParseDifficulty(prefs.Difficulty)
	if !ok {
		return settings{}, fmt.Errorf("unknown difficulty %q", prefs.Difficulty)
	}
	c, err := rules.ParseColor(prefs.Color)
	if err != nil {
		return settings{}, err
	}
	if prefs.Depth < 0 || prefs.Depth >= engine.MaxPly {
		return settings{}, fmt.Errorf("depth %d out of range", prefs.Depth)
	}
	return settings{difficulty: d, depth: prefs.Depth, human: c, book: prefs.UseBook, delegate: prefs.Delegate}, nil
}

type player struct {
	s   settings
	eng *engine.Engine
	ext *delegate.Engine
	in  *bufio.Scanner
	out io.Writer
}

// play runs one game. played is false when the human left before any move.
func (p *player) play(ctx context.Context) (res storage.GameResult, played bool) {
	game := rules.NewGame()
	start := time.Now()
	res = storage.GameResult{Difficulty: p.s.difficulty.String(), Color: p.s.human}

	finish := func(o storage.Outcome) (storage.GameResult, bool) {
		res.Outcome = o
		res.Moves = lo.Map(game.History(), func(m rules.Move, _ int) string { return m.String() })
		res.Duration = time.Since(start)
		return res, len(res.Moves) > 0
	}

	for {
		printBoard(p.out, game, p.s.human)
		switch st := game.Status(); st {
		case rules.Checkmate:
			if rules.Winner(game) == p.s.human {
				return finish(storage.Win)
			}
			return finish(storage.Loss)
		case rules.Stalemate, rules.Draw:
			fmt.Fprintf(p.out, "%s.\n", st)
			return finish(storage.Draw)
		}

		if game.SideToMove() != p.s.human {
			m, err := p.engineMove(ctx, game)
			if err != nil {
				log.Error().Err(err).Msg("engine move")
				return finish(storage.Win)
			}
			fmt.Fprintf(p.out, "Engine plays %s\n", m)
			if err := game.Apply(m); err != nil {
				log.Error().Err(err).Msg("apply engine move")
				return finish(storage.Win)
			}
			continue
		}

		fmt.Fprint(p.out, "Your move (e2e4, moves, undo, quit): ")
		if !p.in.Scan() {
			return finish(storage.Loss)
		}
		switch line := strings.TrimSpace(p.in.Text()); line {
		case "quit", "resign":
			return finish(storage.Loss)
		case "moves":
			legal := lo.Map(game.LegalMoves(), func(m rules.Move, _ int) string { return m.String() })
			fmt.Fprintln(p.out, strings.Join(legal, " "))
		case "undo":
			// Take back the engine reply and our move.
			for i := 0; i < 2 && len(game.History()) > 0; i++ {
				if err := game.Undo(); err != nil {
					log.Error().Err(err).Msg("undo")
				}
			}
		default:
			m, err := rules.ParseMove(game, line)
			if err != nil {
				fmt.Fprintf(p.out, "Illegal move %q\n", line)
				continue
			}
			if err := game.Apply(m); err != nil {
				fmt.Fprintf(p.out, "Cannot play %s: %v\n", m, err)
			}
		}
	}
}

func (p *player) engineMove(ctx context.Context, game *rules.Game) (rules.Move, error) {
	if p.ext != nil {
		m, err := p.ext.BestMove(ctx, game, *moveTime)
		if err == nil {
			return m, nil
		}
		log.Warn().Err(err).Msg("delegate failed, falling back to own search")
	}

	limits := engine.DifficultySettings[p.s.difficulty]
	if p.s.depth > 0 {
		limits = engine.SearchLimits{Depth: p.s.depth}
	}
	res, err := p.eng.SearchWithLimits(ctx, game.Clone(), limits)
	if err != nil {
		return rules.NoMove, err
	}
	if !res.Found() {
		return rules.NoMove, fmt.Errorf("no move found")
	}
	if !res.FromBook {
		fmt.Fprintf(p.out, "depth %d, score %s, %d nodes\n", res.Depth, engine.ScoreToString(res.Score), res.Stats.Total())
	}
	return res.Move, nil
}

// printBoard draws the board from the human's side.
func printBoard(w io.Writer, pos rules.Position, side rules.Color) {
	var sb strings.Builder
	for r := 0; r < 8; r++ {
		rank := 7 - r
		if side == rules.Black {
			rank = r
		}
		fmt.Fprintf(&sb, "%d ", rank+1)
		for f := 0; f < 8; f++ {
			file := f
			if side == rules.Black {
				file = 7 - f
			}
			sb.WriteByte(' ')
			sb.WriteByte(pieceChar(pos.PieceAt(rules.NewSquare(file, rank))))
		}
		sb.WriteByte('\n')
	}
	if side == rules.Black {
		sb.WriteString("   h g f e d c b a\n")
	} else {
		sb.WriteString("   a b c d e f g h\n")
	}
	fmt.Fprint(w, sb.String())
}

func pieceChar(p rules.Piece) byte {
	if p.Empty() {
		return '.'
	}
	c := p.Type.Char()
	if p.Color == rules.White {
		c -= 'a' - 'A'
	}
	return c
}
