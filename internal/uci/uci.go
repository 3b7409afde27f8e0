package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hailam/chessmind/internal/engine"
	"github.com/hailam/chessmind/internal/rules"
)

// DefaultDepth is the search depth used by a bare "go".
const DefaultDepth = 4

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine *engine.Engine
	game   *rules.Game

	book    engine.Book
	ownBook bool
	depth   int

	outMu sync.Mutex
	out   io.Writer

	// Search state
	searchDone chan struct{}
}

// New creates a UCI protocol handler writing protocol output to out. When
// book is non-nil it is offered as the OwnBook option and enabled.
func New(eng *engine.Engine, book engine.Book, out io.Writer) *UCI {
	u := &UCI{
		engine: eng,
		game:   rules.NewGame(),
		book:   book,
		depth:  DefaultDepth,
		out:    out,
	}
	u.setOwnBook(book != nil)
	return u
}

// Run reads commands from in until "quit" or end of input. A search still
// running at end of input is allowed to finish.
func (u *UCI) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if !u.Handle(scanner.Text()) {
			return nil
		}
	}
	u.wait()
	return scanner.Err()
}

// Handle executes one command line. It returns false after "quit".
func (u *UCI) Handle(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		u.println("readyok")
	case "ucinewgame":
		u.handleNewGame()
	case "position":
		u.handlePosition(args)
	case "go":
		u.handleGo(args)
	case "stop":
		u.handleStop()
	case "quit":
		u.handleStop()
		return false
	case "setoption":
		u.handleSetOption(args)
	// Debug commands
	case "d":
		u.println(u.game.FEN())
		u.printf("Key: %s\n", u.game.Key())
	case "perft":
		u.handlePerft(args)
	default:
		log.Debug().Str("command", cmd).Msg("unknown-command")
	}
	return true
}

func (u *UCI) printf(format string, a ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format, a...)
}

func (u *UCI) println(s string) {
	u.printf("%s\n", s)
}

func (u *UCI) handleUCI() {
	u.println("id name ChessMind")
	u.println("id author ChessMind Team")
	u.println("")
	if u.book != nil {
		u.printf("option name OwnBook type check default %t\n", u.ownBook)
	}
	u.printf("option name Depth type spin default %d min 1 max %d\n", DefaultDepth, engine.MaxPly-1)
	u.println("uciok")
}

func (u *UCI) handleNewGame() {
	u.wait()
	u.engine.Clear()
	u.game = rules.NewGame()
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
//
// The current position is kept when the command is malformed.
func (u *UCI) handlePosition(args []string) {
	game, err := parsePosition(args)
	if err != nil {
		log.Warn().Err(err).Strs("args", args).Msg("bad-position")
		return
	}
	u.game = game
}

func parsePosition(args []string) (*rules.Game, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("position: missing arguments")
	}
	movesAt := len(args)
	for i, arg := range args {
		if arg == "moves" {
			movesAt = i
			break
		}
	}

	var game *rules.Game
	switch args[0] {
	case "startpos":
		game = rules.NewGame()
	case "fen":
		g, err := rules.FromFEN(strings.Join(args[1:movesAt], " "))
		if err != nil {
			return nil, fmt.Errorf("position: %w", err)
		}
		game = g
	default:
		return nil, fmt.Errorf("position: unknown kind %q", args[0])
	}

	if movesAt == len(args) {
		return game, nil
	}
	for _, tok := range args[movesAt+1:] {
		m, err := rules.ParseMove(game, tok)
		if err != nil {
			return nil, fmt.Errorf("position: %w", err)
		}
		if err := game.Apply(m); err != nil {
			return nil, fmt.Errorf("position: %w", err)
		}
	}
	return game, nil
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth    int
	Nodes    uint64
	MoveTime time.Duration
	Infinite bool
	Clock    engine.Clock
}

func parseGoOptions(args []string) GoOptions {
	var opts GoOptions
	next := func(i *int) string {
		if *i+1 < len(args) {
			*i++
			return args[*i]
		}
		return ""
	}
	millis := func(s string) time.Duration {
		ms, _ := strconv.Atoi(s)
		return time.Duration(ms) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			opts.Depth, _ = strconv.Atoi(next(&i))
		case "nodes":
			opts.Nodes, _ = strconv.ParseUint(next(&i), 10, 64)
		case "movetime":
			opts.MoveTime = millis(next(&i))
		case "infinite":
			opts.Infinite = true
		case "wtime":
			opts.Clock.Time[rules.White] = millis(next(&i))
		case "btime":
			opts.Clock.Time[rules.Black] = millis(next(&i))
		case "winc":
			opts.Clock.Inc[rules.White] = millis(next(&i))
		case "binc":
			opts.Clock.Inc[rules.Black] = millis(next(&i))
		case "movestogo":
			opts.Clock.MovesToGo, _ = strconv.Atoi(next(&i))
		}
	}
	return opts
}

// limits converts GoOptions to engine.SearchLimits for the current position.
func (u *UCI) limits(opts GoOptions) engine.SearchLimits {
	if opts.Infinite {
		return engine.SearchLimits{Depth: engine.MaxPly - 1, Infinite: true}
	}

	limits := engine.SearchLimits{Depth: opts.Depth, Nodes: opts.Nodes, MoveTime: opts.MoveTime}
	if limits.MoveTime == 0 {
		limits.MoveTime = opts.Clock.Allocate(u.game.SideToMove(), gamePly(u.game.FEN()))
	}
	if limits.Depth <= 0 {
		limits.Depth = u.depth
		if limits.Nodes > 0 || limits.MoveTime > 0 {
			limits.Depth = engine.MaxPly - 1
		}
	}
	return limits
}

// gamePly derives the game ply from the FEN move number and side to move.
func gamePly(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 6 {
		return 0
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 0
	}
	ply := (n - 1) * 2
	if fields[1] == "b" {
		ply++
	}
	return ply
}

func (u *UCI) handleGo(args []string) {
	u.wait()

	limits := u.limits(parseGoOptions(args))
	u.engine.OnInfo = u.sendInfo

	root := u.game.Clone()
	done := make(chan struct{})
	u.searchDone = done
	outcome := u.engine.Go(context.Background(), u.game.Clone(), limits)

	go func() {
		defer close(done)
		out := <-outcome
		if out.Err != nil {
			log.Error().Err(out.Err).Msg("search-failed")
		}
		u.printf("bestmove %s\n", bestMove(root, out.Result))
	}()
}

// bestMove validates the result against a fresh position. Without a usable
// result it falls back to the first legal move, and to 0000 when there is none.
func bestMove(pos rules.Position, res engine.Result) string {
	legal := pos.LegalMoves()
	if res.Found() {
		for _, m := range legal {
			if m.Same(res.Move) {
				return m.String()
			}
		}
		log.Error().Str("move", res.Move.String()).Int("legal", len(legal)).Msg("illegal-bestmove")
	}
	if len(legal) > 0 {
		return legal[0].String()
	}
	return rules.NoMove.String()
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.SearchInfo) {
	parts := []string{
		fmt.Sprintf("depth %d", info.Depth),
		fmt.Sprintf("score cp %d", info.Score),
		fmt.Sprintf("nodes %d", info.Nodes+info.QNodes),
		fmt.Sprintf("nps %d", info.NPS),
		fmt.Sprintf("time %d", info.Time.Milliseconds()),
	}
	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}
	if !info.Move.IsNull() {
		parts = append(parts, "pv "+info.Move.String())
	}
	u.printf("info %s\n", strings.Join(parts, " "))
}

// handleStop stops the current search and waits for its bestmove.
func (u *UCI) handleStop() {
	if u.searchDone != nil {
		u.engine.Stop()
	}
	u.wait()
}

func (u *UCI) wait() {
	if u.searchDone != nil {
		<-u.searchDone
		u.searchDone = nil
	}
}

// handleSetOption processes "setoption name <name> [value <value>]".
func (u *UCI) handleSetOption(args []string) {
	var name, value []string
	target := &name
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			*target = append(*target, arg)
		}
	}

	v := strings.Join(value, " ")
	switch strings.ToLower(strings.Join(name, " ")) {
	case "ownbook":
		u.setOwnBook(strings.EqualFold(v, "true"))
	case "depth":
		d, err := strconv.Atoi(v)
		if err != nil || d < 1 || d >= engine.MaxPly {
			log.Warn().Str("value", v).Msg("bad-depth-option")
			return
		}
		u.depth = d
	default:
		log.Debug().Strs("args", args).Msg("unknown-option")
	}
}

func (u *UCI) setOwnBook(on bool) {
	u.ownBook = on && u.book != nil
	if u.ownBook {
		u.engine.SetBook(u.book)
	} else {
		u.engine.SetBook(nil)
	}
}

// handlePerft runs a perft test.
func (u *UCI) handlePerft(args []string) {
	depth := 3
	if len(args) > 0 {
		depth, _ = strconv.Atoi(args[0])
	}

	start := time.Now()
	nodes, err := engine.Perft(u.game.Clone(), depth)
	if err != nil {
		log.Error().Err(err).Msg("perft-failed")
		return
	}
	elapsed := time.Since(start)

	u.printf("Nodes: %d\n", nodes)
	u.printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		u.printf("NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
}
