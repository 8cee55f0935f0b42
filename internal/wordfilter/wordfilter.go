// Package wordfilter implements the bad-word matching engine.
package wordfilter

import (
	"fmt"
	"regexp"
	"strings"

	"herald_bot/internal/model"
)

// Match checks message text against a chat's bad-word entries and returns the
// first matching entry. Plain entries match case-insensitively as substrings;
// regex entries compile with (?i).
func Match(text string, entries []model.BadWord) (model.BadWord, bool) {
	lowered := strings.ToLower(text)
	for _, e := range entries {
		switch e.Kind {
		case model.BadWordPlain:
			if strings.Contains(lowered, strings.ToLower(e.Entry)) {
				return e, true
			}
		case model.BadWordRegex:
			re, err := regexp.Compile("(?i)" + e.Entry)
			if err != nil {
				continue
			}
			if re.MatchString(text) {
				return e, true
			}
		}
	}
	return model.BadWord{}, false
}

// ValidateRegex checks whether a pattern is a valid regular expression.
func ValidateRegex(pattern string) error {
	_, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	return nil
}
