package directive

import (
	"regexp"
	"strings"
)

// Kind identifies the card a directive renders as.
type Kind string

const (
	KindFocus      Kind = "focus"
	KindBlockers   Kind = "blockers"
	KindActions    Kind = "actions"
	KindCheckin    Kind = "checkin"
	KindSessionEnd Kind = SessionEndType
	KindMeditation Kind = "meditation"
	KindUnknown    Kind = "unknown"
)

// Card is one of FocusCard, BlockersCard, ActionsCard, CheckinCard,
// SessionEndCard, MeditationCard or UnknownCard.
type Card interface {
	Kind() Kind
	isCard()
}

// FocusCard summarizes what the session is centered on.
type FocusCard struct {
	Headline string `json:"headline,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

// BlockersCard lists what is standing in the way.
type BlockersCard struct {
	Title string   `json:"title,omitempty"`
	Items []string `json:"items,omitempty"`
}

// ActionsCard is the action plan.
type ActionsCard struct {
	Title string   `json:"title,omitempty"`
	Items []string `json:"items,omitempty"`
}

// CheckinCard proposes a follow-up check-in.
type CheckinCard struct {
	What      string `json:"what,omitempty"`
	When      string `json:"when,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

// SessionEndCard prompts the user to complete the session.
type SessionEndCard struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// MeditationCard offers a guided meditation.
type MeditationCard struct {
	Title       string `json:"title,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
}

// UnknownCard carries a directive whose type has no dedicated card.
type UnknownCard struct {
	Type  string            `json:"type"`
	Props map[string]string `json:"props"`
}

func (FocusCard) Kind() Kind { return KindFocus }
func (BlockersCard) Kind() Kind { return KindBlockers }
func (ActionsCard) Kind() Kind { return KindActions }
func (CheckinCard) Kind() Kind { return KindCheckin }
func (SessionEndCard) Kind() Kind { return KindSessionEnd }
func (MeditationCard) Kind() Kind { return KindMeditation }
func (UnknownCard) Kind() Kind { return KindUnknown }

func (FocusCard) isCard() {}
func (BlockersCard) isCard() {}
func (ActionsCard) isCard() {}
func (CheckinCard) isCard() {}
func (SessionEndCard) isCard() {}
func (MeditationCard) isCard() {}
func (UnknownCard) isCard() {}

var bulletRegex = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)

// CardFrom maps a directive onto its card.
func CardFrom(d Directive) Card {
	switch Kind(d.Type) {
	case KindFocus:
		return FocusCard{Headline: d.Props["headline"], Summary: d.Props["summary"]}
	case KindBlockers:
		return BlockersCard{Title: d.Props["title"], Items: splitItems(d.Props["items"])}
	case KindActions:
		return ActionsCard{Title: d.Props["title"], Items: splitItems(d.Props["items"])}
	case KindCheckin:
		return CheckinCard{What: d.Props["what"], When: d.Props["when"], Frequency: d.Props["frequency"]}
	case KindSessionEnd:
		return SessionEndCard{
			Title:   d.Prop("title", DefaultSessionEndTitle),
			Message: d.Prop("message", DefaultSessionEndMessage),
		}
	case KindMeditation:
		return MeditationCard{
			Title:       d.Props["title"],
			Duration:    d.Props["duration"],
			Description: d.Props["description"],
		}
	default:
		props := make(map[string]string, len(d.Props))
		for k, v := range d.Props {
			props[k] = v
		}
		return UnknownCard{Type: d.Type, Props: props}
	}
}

// Cards extracts the directives in text and maps each onto its card.
func Cards(text string) []Card {
	directives := Extract(text)
	cards := make([]Card, 0, len(directives))
	for _, d := range directives {
		cards = append(cards, CardFrom(d))
	}
	return cards
}

// splitItems turns a newline-separated list into items, dropping blank
// lines and leading bullets or numbering.
func splitItems(raw string) []string {
	var items []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(bulletRegex.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		items = append(items, line)
	}
	return items
}
