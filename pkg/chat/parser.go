package chat

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TimestampLayout is the format of the optional timestamp in a turn header.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	ErrEmptyTranscript         = errors.New("empty transcript")
	ErrUnterminatedFrontmatter = errors.New("frontmatter is not terminated")
)

var (
	coachHeaderRegex = regexp.MustCompile(`^## (?:Coach|LLM Response)(?: \((\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\))?\s*$`)
	userHeaderRegex  = regexp.MustCompile(`^## User(?: \((\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\))?\s*$`)

	// A line of dashes written with leading backslashes by FormatTranscript.
	escapedSeparatorRegex = regexp.MustCompile(`^\\+---$`)
)

const cellSeparator = "\n---\n"

// ParseTranscript parses a markdown notebook into a Transcript.
//
// Cells are separated by a line holding only "---". A cell whose first line
// is "## Coach" (optionally followed by a timestamp in parentheses) is a
// coach turn. A "## User" header carries a user turn's timestamp; a cell
// without a header is a user turn too.
func ParseTranscript(content []byte) (*Transcript, error) {
	raw := strings.ReplaceAll(string(content), "\r\n", "\n")
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyTranscript
	}

	meta, body, err := splitFrontmatter(raw)
	if err != nil {
		return nil, err
	}

	transcript := &Transcript{Meta: meta}
	for i, cell := range strings.Split(body, cellSeparator) {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		turn, err := parseCell(cell)
		if err != nil {
			return nil, fmt.Errorf("error parsing cell %d: %w", i+1, err)
		}
		transcript.Turns = append(transcript.Turns, turn)
	}

	return transcript, nil
}

func splitFrontmatter(raw string) (Frontmatter, string, error) {
	var meta Frontmatter
	if !strings.HasPrefix(raw, "---\n") {
		return meta, raw, nil
	}

	rest := raw[len("---\n"):]
	var header, body string
	if strings.HasPrefix(rest, "---\n") {
		body = rest[len("---\n"):]
	} else if end := strings.Index(rest, cellSeparator); end != -1 {
		header, body = rest[:end], rest[end+len(cellSeparator):]
	} else if strings.HasSuffix(strings.TrimRight(rest, "\n"), "\n---") || strings.TrimSpace(rest) == "---" {
		header = strings.TrimSuffix(strings.TrimRight(rest, "\n"), "---")
	} else {
		return meta, "", ErrUnterminatedFrontmatter
	}

	if err := yaml.Unmarshal([]byte(header), &meta); err != nil {
		return meta, "", fmt.Errorf("parse frontmatter: %w", err)
	}
	return meta, body, nil
}

func parseCell(cell string) (*Turn, error) {
	firstLine, rest, _ := strings.Cut(cell, "\n")

	if m := coachHeaderRegex.FindStringSubmatch(firstLine); m != nil {
		ts, err := parseHeaderTimestamp(m[1])
		if err != nil {
			return nil, fmt.Errorf("parse coach timestamp: %w", err)
		}
		return NewCoachTurn(unescapeSeparators(strings.TrimSpace(rest)), ts), nil
	}

	if m := userHeaderRegex.FindStringSubmatch(firstLine); m != nil {
		ts, err := parseHeaderTimestamp(m[1])
		if err != nil {
			return nil, fmt.Errorf("parse user timestamp: %w", err)
		}
		return &Turn{
			Speaker:   SpeakerUser,
			Content:   unquote(strings.TrimSpace(rest)),
			Timestamp: ts,
		}, nil
	}

	return &Turn{
		Speaker: SpeakerUser,
		Content: unquote(cell),
	}, nil
}

func parseHeaderTimestamp(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(TimestampLayout, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// unquote strips markdown quote prefixes from user lines.
func unquote(cell string) string {
	lines := strings.Split(cell, "\n")
	for i, line := range lines {
		if line == ">" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimPrefix(line, "> ")
	}
	return strings.Join(lines, "\n")
}

// escapeSeparators prefixes every line made of "---" and any leading
// backslashes with one more backslash, so content never contains a cell
// separator. unescapeSeparators reverses it.
func escapeSeparators(content string) string {
	if !strings.Contains(content, "---") {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.TrimLeft(line, "\\") == "---" {
			lines[i] = "\\" + line
		}
	}
	return strings.Join(lines, "\n")
}

func unescapeSeparators(content string) string {
	if !strings.Contains(content, "\\---") {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if escapedSeparatorRegex.MatchString(line) {
			lines[i] = line[1:]
		}
	}
	return strings.Join(lines, "\n")
}
