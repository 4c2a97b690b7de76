// Package render draws coaching cards and chat turns for a terminal.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/grovetools/compass/pkg/chat"
	"github.com/grovetools/compass/pkg/directive"
)

const defaultWidth = 72

// Renderer renders cards with a fixed width and color setting.
type Renderer struct {
	box     lipgloss.Style
	title   lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	speaker lipgloss.Style
}

// New creates a renderer writing for w. With color disabled the ASCII
// profile is forced so output carries no escape sequences.
func New(w io.Writer, width int, color bool) *Renderer {
	if width <= 0 {
		width = defaultWidth
	}

	lr := lipgloss.NewRenderer(w)
	if color {
		lr.SetColorProfile(termenv.ANSI256)
	} else {
		lr.SetColorProfile(termenv.Ascii)
	}

	return &Renderer{
		box: lr.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(width - 2),
		title:   lr.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		label:   lr.NewStyle().Foreground(lipgloss.Color("245")),
		muted:   lr.NewStyle().Faint(true),
		speaker: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
	}
}

// Card renders a single card.
func (r *Renderer) Card(card directive.Card) string {
	var lines []string

	switch c := card.(type) {
	case directive.FocusCard:
		lines = append(lines, r.title.Render("Focus"))
		lines = appendIf(lines, c.Headline)
		lines = appendIf(lines, r.muted.Render(c.Summary), c.Summary)
	case directive.BlockersCard:
		lines = append(lines, r.title.Render(orDefault(c.Title, "Blockers")))
		lines = append(lines, bullets(c.Items, "•")...)
	case directive.ActionsCard:
		lines = append(lines, r.title.Render(orDefault(c.Title, "Action Plan")))
		for i, item := range c.Items {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, item))
		}
	case directive.CheckinCard:
		lines = append(lines, r.title.Render("Check-in"))
		lines = r.field(lines, "What", c.What)
		lines = r.field(lines, "When", c.When)
		lines = r.field(lines, "Frequency", c.Frequency)
	case directive.SessionEndCard:
		lines = append(lines, r.title.Render(c.Title))
		lines = append(lines, c.Message)
	case directive.MeditationCard:
		lines = append(lines, r.title.Render(orDefault(c.Title, "Meditation")))
		lines = r.field(lines, "Duration", c.Duration)
		lines = appendIf(lines, c.Description)
	case directive.UnknownCard:
		lines = append(lines, r.title.Render(c.Type))
		keys := make([]string, 0, len(c.Props))
		for k := range c.Props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = r.field(lines, k, c.Props[k])
		}
	default:
		return ""
	}

	return r.box.Render(strings.Join(lines, "\n"))
}

// Text renders the display prose of model output followed by its cards.
func (r *Renderer) Text(text string) string {
	var parts []string
	if display := directive.Strip(text); display != "" {
		parts = append(parts, display)
	}
	for _, card := range directive.Cards(text) {
		parts = append(parts, r.Card(card))
	}
	return strings.Join(parts, "\n")
}

// Turn renders a transcript turn with a speaker label.
func (r *Renderer) Turn(turn *chat.Turn) string {
	header := turn.Speaker
	if turn.Timestamp != nil {
		header += " " + r.muted.Render(turn.Timestamp.Format(chat.TimestampLayout))
	}

	if turn.Speaker != chat.SpeakerCoach {
		return r.speaker.Render(header) + "\n" + turn.Content
	}

	parts := []string{r.speaker.Render(header)}
	if turn.Display != "" {
		parts = append(parts, turn.Display)
	}
	for _, card := range turn.Cards {
		parts = append(parts, r.Card(card))
	}
	return strings.Join(parts, "\n")
}

func (r *Renderer) field(lines []string, name, value string) []string {
	if value == "" {
		return lines
	}
	return append(lines, r.label.Render(name+":")+" "+value)
}

// appendIf appends s when it (or the optional guard) is non-empty.
func appendIf(lines []string, s string, guard ...string) []string {
	check := s
	if len(guard) > 0 {
		check = guard[0]
	}
	if check == "" {
		return lines
	}
	return append(lines, s)
}

func bullets(items []string, mark string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, mark+" "+item)
	}
	return out
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
