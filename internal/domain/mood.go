package domain

import "strings"

// Mood is one of the five canonical mood labels. The set is closed: any text
// outside it is rejected at parse time and by a DB check constraint.
type Mood string

// Canonical mood labels, ordered worst to best.
const (
	MoodVeryBad  Mood = "very bad"
	MoodBad      Mood = "bad"
	MoodNeutral  Mood = "neutral"
	MoodGood     Mood = "good"
	MoodVeryGood Mood = "very good"
)

// Moods lists the canonical labels in order. Useful for validation messages
// and tests.
var Moods = []Mood{MoodVeryBad, MoodBad, MoodNeutral, MoodGood, MoodVeryGood}

// ParseMood normalizes raw text (case-insensitive, surrounding whitespace and
// internal runs of spaces collapsed) and returns the canonical Mood, or
// ("", false) when the text is not one of the five labels.
func ParseMood(raw string) (Mood, bool) {
	norm := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	for _, m := range Moods {
		if norm == string(m) {
			return m, true
		}
	}
	return "", false
}

// Valid reports whether m is one of the canonical labels.
func (m Mood) Valid() bool {
	_, ok := ParseMood(string(m))
	return ok
}
