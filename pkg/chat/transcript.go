// Package chat parses coaching chat transcripts kept as markdown notebooks.
package chat

import (
	"time"

	"github.com/grovetools/compass/pkg/directive"
)

// Speakers.
const (
	SpeakerUser  = "user"
	SpeakerCoach = "coach"
)

// Frontmatter is the optional YAML header of a transcript.
type Frontmatter struct {
	Title   string `yaml:"title,omitempty" json:"title,omitempty"`
	User    string `yaml:"user,omitempty" json:"user,omitempty"`
	Session string `yaml:"session,omitempty" json:"session,omitempty"`
}

// Turn is a single entry in the conversation.
type Turn struct {
	Speaker   string     `json:"speaker"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`

	// Set on coach turns only.
	Display    string                `json:"display,omitempty"`
	Directives []directive.Directive `json:"directives,omitempty"`
	Cards      []directive.Card      `json:"-"`
	SessionEnd directive.SessionEnd  `json:"session_end"`
}

// Transcript is a parsed conversation.
type Transcript struct {
	Meta  Frontmatter `json:"meta"`
	Turns []*Turn     `json:"turns"`
}

// Completed reports whether any coach turn ended the session.
func (t *Transcript) Completed() bool {
	for _, turn := range t.Turns {
		if turn.SessionEnd.Found() {
			return true
		}
	}
	return false
}

// Cards returns the cards of every coach turn in order.
func (t *Transcript) Cards() []directive.Card {
	var cards []directive.Card
	for _, turn := range t.Turns {
		cards = append(cards, turn.Cards...)
	}
	return cards
}

// LastCoachTurn returns the most recent coach turn, or nil.
func (t *Transcript) LastCoachTurn() *Turn {
	for i := len(t.Turns) - 1; i >= 0; i-- {
		if t.Turns[i].Speaker == SpeakerCoach {
			return t.Turns[i]
		}
	}
	return nil
}

// NewCoachTurn builds a coach turn from model output, resolving its
// directives, cards, display text and session end.
func NewCoachTurn(content string, ts *time.Time) *Turn {
	return &Turn{
		Speaker:    SpeakerCoach,
		Content:    content,
		Timestamp:  ts,
		Display:    directive.Strip(content),
		Directives: directive.Extract(content),
		Cards:      directive.Cards(content),
		SessionEnd: directive.ExtractSessionEnd(content),
	}
}
