package rules

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// Mirror returns the color-mirrored FEN: the board is flipped vertically,
// piece colors and the side to move are swapped, and castling rights and
// the en passant square follow.
func Mirror(fen string) (string, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return "", fmt.Errorf("mirror: short fen %q", fen)
	}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return "", fmt.Errorf("mirror: bad placement %q", fields[0])
	}
	slices.Reverse(ranks)
	fields[0] = swapCase(strings.Join(ranks, "/"))

	switch fields[1] {
	case "w":
		fields[1] = "b"
	case "b":
		fields[1] = "w"
	default:
		return "", fmt.Errorf("mirror: bad side %q", fields[1])
	}

	if fields[2] != "-" {
		// Keep FEN order: white rights first.
		swapped := []rune(swapCase(fields[2]))
		slices.SortStableFunc(swapped, func(a, b rune) int {
			if unicode.IsUpper(a) == unicode.IsUpper(b) {
				return 0
			}
			if unicode.IsUpper(a) {
				return -1
			}
			return 1
		})
		fields[2] = string(swapped)
	}

	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return "", fmt.Errorf("mirror: %w", err)
		}
		fields[3] = sq.Mirror().String()
	}
	return strings.Join(fields, " "), nil
}

func swapCase(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsUpper(r):
			return unicode.ToLower(r)
		case unicode.IsLower(r):
			return unicode.ToUpper(r)
		}
		return r
	}, s)
}
