// Package directive extracts inline coaching-card directives from
// model-generated chat text and reduces that text to readable prose.
//
// Two forms are recognized:
//
//	[focus]
//	[focus:headline="Be bold",summary="Line one\nLine two"]
//
// plus the legacy session boundary [finish-start] ... [finish-end].
package directive

import (
	"regexp"
	"strings"
)

// SessionEndType is the directive type that closes a coaching session.
const SessionEndType = "sessionEnd"

// Defaults applied to a session-end directive that omits them.
const (
	DefaultSessionEndTitle   = "Ready to Complete Your Session"
	DefaultSessionEndMessage = "I have gathered enough context to create your personalized life compass."
)

// Legacy session boundary markers.
const (
	FinishStartMarker = "[finish-start]"
	FinishEndMarker   = "[finish-end]"
)

var (
	simpleRegex     = regexp.MustCompile(`\[(\w+)\]`)
	paramRegex      = regexp.MustCompile(`(?s)\[(\w+):((?:[^\]\\]|\\.)*)\]`)
	propRegex       = regexp.MustCompile(`(?s)(\w+)="((?:[^"\\]|\\.)*)"`)
	sessionEndRegex = regexp.MustCompile(`(?s)\[sessionEnd(?::(?:[^\]\\]|\\.)*)?\]`)
	blankRunRegex   = regexp.MustCompile(`\n{3,}`)
)

// Directive is a single card directive found in a text blob.
type Directive struct {
	Type  string            `json:"type" yaml:"type"`
	Props map[string]string `json:"props" yaml:"props"`
}

// Prop returns the named prop, or fallback when it is absent or empty.
func (d Directive) Prop(key, fallback string) string {
	if v, ok := d.Props[key]; ok && v != "" {
		return v
	}
	return fallback
}

// SessionEnd is the result of resolving a session end in a text blob.
type SessionEnd struct {
	Directives     []Directive `json:"directives" yaml:"directives"`
	RawMatchedText string      `json:"raw_matched_text" yaml:"raw_matched_text"`
}

// Found reports whether a session end was resolved.
func (s SessionEnd) Found() bool {
	return len(s.Directives) > 0 || s.RawMatchedText != ""
}

// Extract returns the directives in text, one per type.
//
// Simple occurrences are collected first in order of appearance. A
// parameterized occurrence then replaces the directive of the same type in
// place, or is appended when the type has not been seen.
func Extract(text string) []Directive {
	var directives []Directive
	positions := make(map[string]int)

	for _, m := range simpleRegex.FindAllStringSubmatch(text, -1) {
		if _, seen := positions[m[1]]; seen {
			continue
		}
		positions[m[1]] = len(directives)
		directives = append(directives, Directive{Type: m[1], Props: map[string]string{}})
	}

	for _, m := range paramRegex.FindAllStringSubmatch(text, -1) {
		d := Directive{Type: m[1], Props: parseProps(m[2])}
		if i, ok := positions[d.Type]; ok {
			directives[i] = d
			continue
		}
		positions[d.Type] = len(directives)
		directives = append(directives, d)
	}

	return directives
}

// parseProps reads key="value" pairs from a directive body. Unbalanced
// quotes just produce fewer pairs.
func parseProps(body string) map[string]string {
	props := make(map[string]string)
	for _, m := range propRegex.FindAllStringSubmatch(body, -1) {
		props[m[1]] = unescape(m[2])
	}
	return props
}

func unescape(value string) string {
	value = strings.ReplaceAll(value, `\"`, `"`)
	return strings.ReplaceAll(value, `\n`, "\n")
}

// ExtractSessionEnd resolves the session end in text.
//
// A sessionEnd directive wins over the legacy markers. When it is present the
// result holds every other directive in text followed by the session end with
// its title and message defaulted. Otherwise the directives between
// [finish-start] and [finish-end] are returned along with the text between
// the markers.
func ExtractSessionEnd(text string) SessionEnd {
	if sessionEndRegex.MatchString(text) {
		var others []Directive
		end := Directive{Type: SessionEndType, Props: map[string]string{}}
		for _, d := range Extract(text) {
			if d.Type == SessionEndType {
				end = d
				continue
			}
			others = append(others, d)
		}
		return SessionEnd{
			Directives:     append(others, withSessionEndDefaults(end)),
			RawMatchedText: text,
		}
	}

	if inner, ok := betweenFinishMarkers(text); ok {
		return SessionEnd{
			Directives:     Extract(inner),
			RawMatchedText: inner,
		}
	}

	return SessionEnd{}
}

func withSessionEndDefaults(d Directive) Directive {
	props := make(map[string]string, len(d.Props)+2)
	for k, v := range d.Props {
		props[k] = v
	}
	if _, ok := props["title"]; !ok {
		props["title"] = DefaultSessionEndTitle
	}
	if _, ok := props["message"]; !ok {
		props["message"] = DefaultSessionEndMessage
	}
	return Directive{Type: SessionEndType, Props: props}
}

// betweenFinishMarkers returns the text strictly between the first
// [finish-start] and the first [finish-end] that follows it.
func betweenFinishMarkers(text string) (string, bool) {
	start := strings.Index(text, FinishStartMarker)
	if start == -1 {
		return "", false
	}
	rest := text[start+len(FinishStartMarker):]
	end := strings.Index(rest, FinishEndMarker)
	if end == -1 {
		return "", false
	}
	return rest[:end], true
}

// Strip returns the prose a reader should see, with all directive syntax and
// finish markers removed and blank-line runs collapsed.
//
// Text is scanned once. A directive whose removal exposes an enclosing one,
// as in "[a[b]]", removes both, so Strip(Strip(x)) == Strip(x).
func Strip(text string) string {
	text = stripDirectives(cutFinishRegions(text))
	text = blankRunRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// cutFinishRegions drops everything from each [finish-start] through the
// next [finish-end], or to the end of text when no end marker follows. The
// remaining pieces are joined by a blank line.
func cutFinishRegions(text string) string {
	if !strings.Contains(text, FinishStartMarker) {
		return text
	}

	var pieces []string
	for {
		start := strings.Index(text, FinishStartMarker)
		if start == -1 {
			pieces = append(pieces, text)
			break
		}
		pieces = append(pieces, text[:start])
		rest := text[start+len(FinishStartMarker):]
		end := strings.Index(rest, FinishEndMarker)
		if end == -1 {
			break
		}
		text = rest[end+len(FinishEndMarker):]
	}

	kept := pieces[:0]
	for _, p := range pieces {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

type bracketState int

const (
	bracketOpen    bracketState = iota // nothing after '[' yet
	bracketType                        // one or more word characters
	bracketBody                        // after "type:"
	bracketLiteral                     // cannot be a directive
)

// bracket is an unclosed '[' during stripDirectives.
type bracket struct {
	pos     int
	state   bracketState
	escaped bool
}

func (b *bracket) feed(c byte) {
	switch b.state {
	case bracketOpen, bracketType:
		switch {
		case isWordByte(c):
			b.state = bracketType
		case c == ':' && b.state == bracketType:
			b.state = bracketBody
		default:
			b.state = bracketLiteral
		}
	case bracketBody:
		b.escaped = c == '\\'
	}
}

// removable reports whether the closed group is directive syntax. content is
// what remains between the brackets after inner removals.
func (b *bracket) removable(content []byte) bool {
	if b.state == bracketType || b.state == bracketBody {
		return true
	}
	s := string(content)
	return s == "finish-start" || s == "finish-end"
}

// stripDirectives removes directive groups in a single pass. Open brackets
// sit on a stack; on ']' the innermost is closed and, when it is a
// directive, truncated out of the output so its parent resumes as if the
// group had never been there. A kept group turns a parent still reading its
// type into plain text, while a parent in its body absorbs it.
func stripDirectives(text string) string {
	out := make([]byte, 0, len(text))
	var stack []bracket

	for i := 0; i < len(text); i++ {
		c := text[i]
		if n := len(stack); n > 0 && stack[n-1].escaped {
			stack[n-1].escaped = false
			out = append(out, c)
			continue
		}

		switch c {
		case '[':
			stack = append(stack, bracket{pos: len(out)})
			out = append(out, c)
		case ']':
			n := len(stack)
			if n == 0 {
				out = append(out, c)
				continue
			}
			top := stack[n-1]
			stack = stack[:n-1]
			if top.removable(out[top.pos+1:]) {
				out = out[:top.pos]
				continue
			}
			out = append(out, c)
			if n > 1 && stack[n-2].state != bracketBody {
				stack[n-2].state = bracketLiteral
			}
		default:
			if n := len(stack); n > 0 {
				stack[n-1].feed(c)
			}
			out = append(out, c)
		}
	}

	return string(out)
}

func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
