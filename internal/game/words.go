package game

import (
	"strings"
	"time"
)

// MatchesWord reports whether a guess hits the secret word. Comparison is
// case-insensitive and ignores surrounding whitespace on both sides.
func MatchesWord(guess, word string) bool {
	if word == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(guess), strings.TrimSpace(word))
}

// MaskWord renders the guessing players' view of the secret word: one
// underscore per character, spaces preserved, all joined by single spaces.
//
//	"apple juice" -> "_ _ _ _ _   _ _ _ _ _"
//
// Word gaps staying visible is a gameplay rule, not a leak.
func MaskWord(word string) string {
	masked := make([]string, 0, len(word))
	for _, r := range word {
		if r == ' ' {
			masked = append(masked, " ")
		} else {
			masked = append(masked, "_")
		}
	}
	return strings.Join(masked, " ")
}

const (
	guessBaseScore       = 50
	guessSpeedMultiplier = 50
	// DrawerGuessReward is split evenly across the room for every
	// correct guess, so the drawing player earns more in bigger rooms
	// only if more people actually guess.
	DrawerGuessReward = 50
	// NoGuessPenalty is deducted from the drawing player when a round
	// ends with nobody guessing the word.
	NoGuessPenalty = 50
)

// GuessScore computes the points for a correct guess submitted after
// `elapsed` of a round lasting `total`. Faster guesses score strictly more;
// the floor is the base score.
func GuessScore(elapsed, total time.Duration) int {
	if total <= 0 {
		return guessBaseScore
	}
	left := 1 - float64(elapsed)/float64(total)
	if left < 0 {
		left = 0
	}
	return guessBaseScore + int(guessSpeedMultiplier*left)
}
