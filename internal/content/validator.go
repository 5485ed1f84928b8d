// Package content filters spam, gibberish and degenerate input before
// any upstream cost is incurred. Rejection is a product-level soft
// decline, not a protocol error.
package content

import (
	"strings"
	"unicode"
)

// Reason identifies which heuristic rejected the text.
type Reason string

const (
	ReasonTooShort      Reason = "too_short"
	ReasonNumericSpam   Reason = "numeric_spam"
	ReasonRepeatedChars Reason = "repeated_chars"
	ReasonUnbrokenToken Reason = "unbroken_token"
	ReasonLowVowel      Reason = "low_vowel"
)

const (
	minLength         = 2
	maxDigitRun       = 6
	maxCharRepeat     = 5
	maxUnbrokenLength = 20
	minLettersForRate = 5
	minVowelFraction  = 0.10
)

// Validate runs the rejection heuristics in order and returns the first
// matching reason. It is pure and side-effect free.
func Validate(text string) (ok bool, reason Reason) {
	trimmed := strings.TrimSpace(text)

	if len([]rune(trimmed)) < minLength {
		return false, ReasonTooShort
	}

	if isAllDigits(trimmed) && len(trimmed) > maxDigitRun {
		return false, ReasonNumericSpam
	}

	if hasRepeatedRun(trimmed, maxCharRepeat) {
		return false, ReasonRepeatedChars
	}

	if len([]rune(trimmed)) > maxUnbrokenLength && !strings.ContainsFunc(trimmed, unicode.IsSpace) {
		return false, ReasonUnbrokenToken
	}

	if letters, vowels := countLetters(trimmed); letters > minLettersForRate {
		if float64(vowels)/float64(letters) < minVowelFraction {
			return false, ReasonLowVowel
		}
	}

	return true, ""
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// hasRepeatedRun reports whether any rune appears n or more times in a row.
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
			if run >= n {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

// countLetters strips non-letters and tallies vowels, the keyboard-mash
// heuristic's inputs.
func countLetters(s string) (letters, vowels int) {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		switch unicode.ToLower(r) {
		case 'a', 'e', 'i', 'o', 'u':
			vowels++
		}
	}
	return letters, vowels
}
