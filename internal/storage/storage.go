package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/chessmind/internal/rules"
)

// Storage keys
const (
	keyPreferences = "preferences"
	keyStats       = "stats"
	prefixGame     = "game/"
)

// Preferences stores the last-used settings of the terminal game.
type Preferences struct {
	Username   string    `json:"username"`
	Difficulty string    `json:"difficulty"`
	Color      string    `json:"color"`
	Depth      int       `json:"depth"`
	UseBook    bool      `json:"use_book"`
	Delegate   string    `json:"delegate"` // External engine path; empty uses our own search
	LastPlayed time.Time `json:"last_played"`
}

// DefaultPreferences returns default preferences.
func DefaultPreferences() *Preferences {
	return &Preferences{
		Username:   "Player",
		Difficulty: "medium",
		Color:      "white",
		UseBook:    true,
	}
}

// Outcome is a finished game seen from the human player.
type Outcome int

const (
	Loss Outcome = iota
	Draw
	Win
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Draw:
		return "draw"
	}
	return "loss"
}

// GameResult describes a completed game.
type GameResult struct {
	Outcome    Outcome       `json:"outcome"`
	Difficulty string        `json:"difficulty"`
	Color      rules.Color   `json:"color"` // Colour played by the human
	Opening    string        `json:"opening,omitempty"`
	Moves      []string      `json:"moves"`
	Duration   time.Duration `json:"duration"`
}

// GameRecord is a stored game.
type GameRecord struct {
	ID       int       `json:"id"`
	PlayedAt time.Time `json:"played_at"`
	GameResult
}

// GameStats stores game statistics.
type GameStats struct {
	GamesPlayed      int            `json:"games_played"`
	Wins             int            `json:"wins"`
	Losses           int            `json:"losses"`
	Draws            int            `json:"draws"`
	WinsByDifficulty map[string]int `json:"wins_by_difficulty"`
	WinsByColor      map[string]int `json:"wins_by_color"`
	Openings         map[string]int `json:"openings"`
	TotalPlayTime    time.Duration  `json:"total_play_time"`
	LongestWinStreak int            `json:"longest_win_streak"`
	CurrentStreak    int            `json:"current_streak"`
}

// NewGameStats returns empty game statistics.
func NewGameStats() *GameStats {
	return &GameStats{
		WinsByDifficulty: make(map[string]int),
		WinsByColor:      make(map[string]int),
		Openings:         make(map[string]int),
	}
}

// WinRate returns the win rate as a percentage (0-100).
func (s *GameStats) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.GamesPlayed) * 100
}

// fillMaps replaces maps decoded from JSON null with empty ones.
func (s *GameStats) fillMaps() {
	if s.WinsByDifficulty == nil {
		s.WinsByDifficulty = make(map[string]int)
	}
	if s.WinsByColor == nil {
		s.WinsByColor = make(map[string]int)
	}
	if s.Openings == nil {
		s.Openings = make(map[string]int)
	}
}

func (s *GameStats) add(r GameResult) {
	s.fillMaps()
	s.GamesPlayed++
	s.TotalPlayTime += r.Duration
	if r.Opening != "" {
		s.Openings[r.Opening]++
	}

	switch r.Outcome {
	case Win:
		s.Wins++
		s.CurrentStreak++
		s.LongestWinStreak = max(s.LongestWinStreak, s.CurrentStreak)
		s.WinsByDifficulty[r.Difficulty]++
		s.WinsByColor[r.Color.String()]++
	case Draw:
		s.Draws++
		s.CurrentStreak = 0
	default:
		s.Losses++
		s.CurrentStreak = 0
	}
}

// Storage wraps BadgerDB for persistent storage.
type Storage struct {
	db *badger.DB
}

// NewStorage opens the database in the platform data directory.
func NewStorage() (*Storage, error) {
	dbDir, err := DatabaseDir()
	if err != nil {
		return nil, err
	}
	return Open(dbDir)
}

// Open opens (or creates) a database in dir.
func Open(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open storage %s: %w", dir, err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SavePreferences saves preferences and stamps LastPlayed.
func (s *Storage) SavePreferences(prefs *Preferences) error {
	prefs.LastPlayed = time.Now()
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, keyPreferences, prefs)
	})
}

// LoadPreferences loads preferences, returning defaults if none were saved.
func (s *Storage) LoadPreferences() (*Preferences, error) {
	prefs := DefaultPreferences()
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, keyPreferences, prefs)
	})
	return prefs, err
}

// SaveStats saves game statistics.
func (s *Storage) SaveStats(stats *GameStats) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, keyStats, stats)
	})
}

// LoadStats loads game statistics, returning empty stats if none were saved.
func (s *Storage) LoadStats() (*GameStats, error) {
	stats := NewGameStats()
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, keyStats, stats)
	})
	stats.fillMaps()
	return stats, err
}

// RecordGame stores a completed game and updates statistics in one transaction.
func (s *Storage) RecordGame(result GameResult) (GameRecord, error) {
	var rec GameRecord
	err := s.db.Update(func(txn *badger.Txn) error {
		stats := NewGameStats()
		if err := getJSON(txn, keyStats, stats); err != nil {
			return err
		}
		stats.add(result)

		rec = GameRecord{ID: stats.GamesPlayed, PlayedAt: time.Now(), GameResult: result}
		if err := setJSON(txn, keyStats, stats); err != nil {
			return err
		}
		return setJSON(txn, gameKey(rec.ID), rec)
	})
	return rec, err
}

// RecentGames returns up to n stored games, newest first.
func (s *Storage) RecentGames(n int) ([]GameRecord, error) {
	var games []GameRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixGame)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the last key not after the seek key.
		for it.Seek([]byte(prefixGame + "~")); it.ValidForPrefix(opts.Prefix) && len(games) < n; it.Next() {
			var rec GameRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			games = append(games, rec)
		}
		return nil
	})
	return games, err
}

// gameKey zero-pads the id so keys sort in play order.
func gameKey(id int) string {
	return fmt.Sprintf("%s%010d", prefixGame, id)
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

// getJSON decodes key into v, leaving v untouched when the key is absent.
func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}
