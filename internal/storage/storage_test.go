package storage

import (
	"os"
	"testing"
	"time"

	"github.com/hailam/chessmind/internal/rules"
)

func openTemp(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPreferences(t *testing.T) {
	s := openTemp(t)

	prefs, err := s.LoadPreferences()
	if err != nil {
		t.Fatal(err)
	}
	if prefs.Username != "Player" || prefs.Difficulty != "medium" || !prefs.UseBook {
		t.Errorf("unexpected defaults: %+v", prefs)
	}

	prefs.Difficulty = "hard"
	prefs.Color = "black"
	prefs.Delegate = "/usr/bin/stockfish"
	prefs.UseBook = false
	if err := s.SavePreferences(prefs); err != nil {
		t.Fatal(err)
	}
	if prefs.LastPlayed.IsZero() {
		t.Error("LastPlayed not stamped")
	}

	got, err := s.LoadPreferences()
	if err != nil {
		t.Fatal(err)
	}
	if got.Difficulty != "hard" || got.Color != "black" || got.Delegate != "/usr/bin/stockfish" || got.UseBook {
		t.Errorf("round trip lost settings: %+v", got)
	}
}

func TestRecordGame(t *testing.T) {
	s := openTemp(t)

	results := []GameResult{
		{Outcome: Win, Difficulty: "easy", Color: rules.White, Opening: "C60", Duration: time.Minute},
		{Outcome: Win, Difficulty: "hard", Color: rules.Black, Opening: "C60", Duration: time.Minute},
		{Outcome: Draw, Difficulty: "hard", Color: rules.White, Duration: time.Minute},
		{Outcome: Win, Difficulty: "hard", Color: rules.White, Duration: time.Minute},
		{Outcome: Loss, Difficulty: "medium", Color: rules.Black, Moves: []string{"f2f3", "e7e5", "g2g4", "d8h4"}},
	}
	for i, r := range results {
		rec, err := s.RecordGame(r)
		if err != nil {
			t.Fatal(err)
		}
		if rec.ID != i+1 {
			t.Errorf("game %d got id %d", i, rec.ID)
		}
	}

	stats, err := s.LoadStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.GamesPlayed != 5 || stats.Wins != 3 || stats.Draws != 1 || stats.Losses != 1 {
		t.Errorf("totals = %+v", stats)
	}
	if stats.LongestWinStreak != 2 || stats.CurrentStreak != 0 {
		t.Errorf("streaks = %d/%d", stats.LongestWinStreak, stats.CurrentStreak)
	}
	if stats.WinsByDifficulty["hard"] != 2 || stats.WinsByColor["white"] != 2 || stats.Openings["C60"] != 2 {
		t.Errorf("breakdown = %v %v %v", stats.WinsByDifficulty, stats.WinsByColor, stats.Openings)
	}
	if stats.TotalPlayTime != 4*time.Minute {
		t.Errorf("play time = %v", stats.TotalPlayTime)
	}
	if rate := stats.WinRate(); rate != 60 {
		t.Errorf("win rate = %.2f%%", rate)
	}

	games, err := s.RecentGames(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(games) != 2 || games[0].ID != 5 || games[1].ID != 4 {
		t.Fatalf("recent games = %+v", games)
	}
	if games[0].Outcome != Loss || len(games[0].Moves) != 4 {
		t.Errorf("latest game = %+v", games[0])
	}
}

func TestRecordGameAfterZeroStats(t *testing.T) {
	s := openTemp(t)

	// A zero GameStats stores its maps as JSON null.
	if err := s.SaveStats(&GameStats{}); err != nil {
		t.Fatal(err)
	}
	loaded, err := s.LoadStats()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.WinsByDifficulty == nil || loaded.WinsByColor == nil || loaded.Openings == nil {
		t.Errorf("LoadStats returned nil maps: %+v", loaded)
	}

	if _, err := s.RecordGame(GameResult{Outcome: Win, Difficulty: "easy", Color: rules.White, Opening: "B20"}); err != nil {
		t.Fatal(err)
	}
	stats, err := s.LoadStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Wins != 1 || stats.WinsByDifficulty["easy"] != 1 || stats.WinsByColor["white"] != 1 || stats.Openings["B20"] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordGame(GameResult{Outcome: Win, Difficulty: "easy"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	stats, err := s.LoadStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.GamesPlayed != 1 || stats.Wins != 1 {
		t.Errorf("stats after reopen = %+v", stats)
	}
}

func TestWinRateEmpty(t *testing.T) {
	if rate := NewGameStats().WinRate(); rate != 0 {
		t.Errorf("empty win rate = %f", rate)
	}
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{Win: "win", Draw: "draw", Loss: "loss"} {
		if o.String() != want {
			t.Errorf("%d.String() = %q", o, o.String())
		}
	}
}

func TestDataPaths(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	dataDir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("Data directory was not created: %s", dataDir)
	}
	t.Logf("Data directory: %s", dataDir)
}
