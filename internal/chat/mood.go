package chat

import (
	"regexp"

	"github.com/hearu/hearu-backend/internal/domain"
)

// moodPattern matches the terminal classification sentence the quiz prompt
// instructs the model to produce ("... your mood is good. ..."). The capture
// allows a two-word label for "very bad" / "very good".
var moodPattern = regexp.MustCompile(`(?i)your mood is (\w+\s*\w*)`)

// ExtractMood scans an assistant reply for a terminal mood classification.
// It returns the canonical mood and true when the reply contains one of the
// five valid labels; any other text, including near-misses like "goodish",
// yields false.
func ExtractMood(reply string) (domain.Mood, bool) {
	m := moodPattern.FindStringSubmatch(reply)
	if len(m) < 2 {
		return "", false
	}
	return domain.ParseMood(m[1])
}
