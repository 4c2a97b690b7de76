package chat

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/grovetools/compass/pkg/state"
)

// FormatTranscript writes a transcript back out as a markdown notebook that
// ParseTranscript accepts. Coach turns keep their raw content so directives
// survive the round trip; lines of "---" inside it are escaped so they are
// not read back as cell separators. User turns with a timestamp get a
// "## User" header.
func FormatTranscript(t *Transcript) string {
	var sb strings.Builder

	if t.Meta != (Frontmatter{}) {
		header, err := yaml.Marshal(t.Meta)
		if err == nil {
			sb.WriteString("---\n")
			sb.Write(header)
			sb.WriteString("---\n")
		}
	}

	for i, turn := range t.Turns {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		} else if sb.Len() > 0 {
			sb.WriteString("\n")
		}

		if turn.Speaker == SpeakerCoach {
			sb.WriteString("## Coach")
			if turn.Timestamp != nil {
				sb.WriteString(" (" + turn.Timestamp.Format(TimestampLayout) + ")")
			}
			sb.WriteString("\n\n")
			sb.WriteString(escapeSeparators(turn.Content))
		} else {
			if turn.Timestamp != nil {
				sb.WriteString("## User (" + turn.Timestamp.Format(TimestampLayout) + ")\n\n")
			}
			for j, line := range strings.Split(turn.Content, "\n") {
				if j > 0 {
					sb.WriteString("\n")
				}
				if line == "" {
					sb.WriteString(">")
					continue
				}
				sb.WriteString("> " + line)
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// FromMessages builds a transcript from cached onboarding messages.
func FromMessages(meta Frontmatter, messages []state.Message) *Transcript {
	t := &Transcript{Meta: meta}
	for _, msg := range messages {
		var ts *time.Time
		if !msg.CreatedAt.IsZero() {
			created := msg.CreatedAt.UTC().Truncate(time.Second)
			ts = &created
		}

		if msg.Role == state.RoleCoach {
			t.Turns = append(t.Turns, NewCoachTurn(msg.Content, ts))
			continue
		}
		t.Turns = append(t.Turns, &Turn{
			Speaker:   SpeakerUser,
			Content:   msg.Content,
			Timestamp: ts,
		})
	}
	return t
}
