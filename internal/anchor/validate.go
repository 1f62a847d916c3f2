package anchor

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/teo/internal/domain"
)

// ValidateFunc checks raw text against one input kind. On rejection it
// returns a hint naming the expected format.
type ValidateFunc func(text string) (ok bool, hint string)

// ValidatorSet maps input kinds to their validators. Validators are pure
// functions; the set is safe for concurrent reads after construction.
type ValidatorSet struct {
	byKind map[domain.InputKind]ValidateFunc
}

var urlPattern = regexp.MustCompile(
	`^https?://` +
		`(?:(?:[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?\.)+[A-Za-z]{2,6}\.?|` +
		`localhost|` +
		`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
		`(?::\d+)?` +
		`(?:/?|[/?]\S+)$`)

// NewValidatorSet builds the default validator registry.
func NewValidatorSet() *ValidatorSet {
	v := &ValidatorSet{byKind: make(map[domain.InputKind]ValidateFunc)}

	v.byKind[domain.InputText] = func(string) (bool, string) { return true, "" }

	v.byKind[domain.InputURL] = func(text string) (bool, string) {
		if urlPattern.MatchString(text) {
			return true, ""
		}
		return false, "Invalid URL format. Example: https://docs.google.com/spreadsheets/d/..."
	}

	v.byKind[domain.InputNumber] = func(text string) (bool, string) {
		// Decimal comma is normalized to a decimal point.
		if _, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64); err == nil {
			return true, ""
		}
		return false, "Enter a number. Example: 1000 or 1000.50"
	}

	v.byKind[domain.InputDate] = timeValidator("2006-01-02", "Date format: YYYY-MM-DD. Example: 2024-12-31")
	v.byKind[domain.InputMonth] = timeValidator("2006-01", "Month format: YYYY-MM. Example: 2024-12")
	v.byKind[domain.InputTime] = timeValidator("15:04", "Time format: HH:MM. Example: 09:30")

	return v
}

func timeValidator(layout, hint string) ValidateFunc {
	return func(text string) (bool, string) {
		if _, err := time.Parse(layout, text); err == nil {
			return true, ""
		}
		return false, hint
	}
}

// Register installs or replaces the validator for a kind.
func (v *ValidatorSet) Register(kind domain.InputKind, fn ValidateFunc) {
	v.byKind[kind] = fn
}

// Validate runs the validator for kind against text. Kinds with no
// registered validator accept everything.
func (v *ValidatorSet) Validate(kind domain.InputKind, text string) (bool, string) {
	if fn, ok := v.byKind[kind]; ok {
		return fn(text)
	}
	return true, ""
}
