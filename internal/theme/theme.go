// Package theme resolves the light/dark preference for a request.
// There is no global store: the resolved Theme is passed to whatever renders.
package theme

import "strings"

// Theme is the colour scheme of a page
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// CookieName is where the preference is persisted in the browser
const CookieName = "theme"

// Parse accepts the persisted value; ok is false for anything unknown
func Parse(raw string) (Theme, bool) {
	switch Theme(strings.ToLower(strings.TrimSpace(raw))) {
	case Light:
		return Light, true
	case Dark:
		return Dark, true
	default:
		return "", false
	}
}

// Resolve picks the initial theme: a stored preference wins, then the
// system preference, then light.
func Resolve(stored string, prefersDark bool) Theme {
	if t, ok := Parse(stored); ok {
		return t
	}
	if prefersDark {
		return Dark
	}
	return Light
}

// PrefersDark reads the Sec-CH-Prefers-Color-Scheme client hint
func PrefersDark(hint string) bool {
	return strings.EqualFold(strings.Trim(strings.TrimSpace(hint), `"`), "dark")
}

// Toggle returns the opposite theme
func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// IsDark is a template helper
func (t Theme) IsDark() bool {
	return t == Dark
}

func (t Theme) String() string {
	return string(t)
}
