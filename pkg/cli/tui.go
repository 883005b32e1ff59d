package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for terminal rendering.
type Theme struct {
	Pass lipgloss.Color // pass/unlocked accents
	Fail lipgloss.Color // fail/denied accents
	Dim  lipgloss.Color // dimmed/secondary text
}

// DefaultTheme is the default green/red theme.
var DefaultTheme = Theme{
	Pass: lipgloss.Color("#00ff9f"),
	Fail: lipgloss.Color("#ff5f5f"),
	Dim:  lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Pass  lipgloss.Style
	Fail  lipgloss.Style
	Label lipgloss.Style
	Dim   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Pass:  lipgloss.NewStyle().Bold(true).Foreground(t.Pass),
		Fail:  lipgloss.NewStyle().Bold(true).Foreground(t.Fail),
		Label: lipgloss.NewStyle().Bold(true),
		Dim:   lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Verdict renders the authentication outcome banner.
func (s Styles) Verdict(unlocked bool) string {
	if unlocked {
		return s.Pass.Render("▌UNLOCKED")
	}
	return s.Fail.Render("▌DENIED")
}

// Gate renders a pass/fail marker for a single gate.
func (s Styles) Gate(pass bool) string {
	if pass {
		return s.Pass.Render("✓")
	}
	return s.Fail.Render("✗")
}

// ScoreBar renders a labeled score as a bar against its threshold:
//
//	liveness     ██████████░░░░░░░░░░  0.512 ≥ 0.500  ✓
func (s Styles) ScoreBar(label string, score, threshold float64, width int) string {
	pass := score >= threshold
	return fmt.Sprintf("%s %s  %s ≥ %s  %s",
		s.Label.Render(padLabel(label)), s.bar(score, pass, width),
		FormatScore(score), FormatScore(threshold), s.Gate(pass))
}

// SubScoreBar renders an unthresholded [0,1] component score.
func (s Styles) SubScoreBar(label string, score float64, width int) string {
	return fmt.Sprintf("%s %s  %s",
		s.Dim.Render(padLabel(label)), s.bar(score, true, width), FormatScore(score))
}

// padLabel pads before styling; padding afterwards would count the
// ANSI escape bytes and misalign the columns.
func padLabel(label string) string {
	return fmt.Sprintf("%-12s", label)
}

func (s Styles) bar(score float64, pass bool, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := min(max(int(score*float64(width)+0.5), 0), width)
	style := s.Pass
	if !pass {
		style = s.Fail
	}
	return style.Render(strings.Repeat("█", filled)) + s.Dim.Render(strings.Repeat("░", width-filled))
}
