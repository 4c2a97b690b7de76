package directive_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/grovetools/compass/pkg/directive"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []directive.Directive
	}{
		{
			name: "empty text",
			text: "",
			want: nil,
		},
		{
			name: "plain prose",
			text: "Let's talk about what matters most to you this week.",
			want: nil,
		},
		{
			name: "simple form",
			text: "[focus]",
			want: []directive.Directive{
				{Type: "focus", Props: map[string]string{}},
			},
		},
		{
			name: "parameterized form",
			text: `[focus:headline="Be bold"]`,
			want: []directive.Directive{
				{Type: "focus", Props: map[string]string{"headline": "Be bold"}},
			},
		},
		{
			name: "parameterized overrides earlier simple form in place",
			text: `[checkin] then [actions] and [checkin:what="sleep"]`,
			want: []directive.Directive{
				{Type: "checkin", Props: map[string]string{"what": "sleep"}},
				{Type: "actions", Props: map[string]string{}},
			},
		},
		{
			name: "later parameterized replaces earlier parameterized",
			text: `[focus:headline="First"] and [focus:headline="Second",summary="S"]`,
			want: []directive.Directive{
				{Type: "focus", Props: map[string]string{"headline": "Second", "summary": "S"}},
			},
		},
		{
			name: "duplicate simple forms collapse to one",
			text: "[blockers] and again [blockers]",
			want: []directive.Directive{
				{Type: "blockers", Props: map[string]string{}},
			},
		},
		{
			name: "escaped quote in value",
			text: `[card:note="she said \"hi\""]`,
			want: []directive.Directive{
				{Type: "card", Props: map[string]string{"note": `she said "hi"`}},
			},
		},
		{
			name: "escaped newline in value",
			text: `[actions:items="Walk\nRead"]`,
			want: []directive.Directive{
				{Type: "actions", Props: map[string]string{"items": "Walk\nRead"}},
			},
		},
		{
			name: "escaped bracket inside body",
			text: `[focus:headline="see \] here"]`,
			want: []directive.Directive{
				{Type: "focus", Props: map[string]string{"headline": `see \] here`}},
			},
		},
		{
			name: "unbalanced quotes yield partial props",
			text: `[focus:headline="ok",summary="broken]`,
			want: []directive.Directive{
				{Type: "focus", Props: map[string]string{"headline": "ok"}},
			},
		},
		{
			name: "body without pairs yields empty props",
			text: `[meditation:nothing here]`,
			want: []directive.Directive{
				{Type: "meditation", Props: map[string]string{}},
			},
		},
		{
			name: "unknown types are kept",
			text: `[sparkle:level="high"] [focus]`,
			want: []directive.Directive{
				{Type: "focus", Props: map[string]string{}},
				{Type: "sparkle", Props: map[string]string{"level": "high"}},
			},
		},
		{
			name: "legacy markers are not directives",
			text: "[finish-start][finish-end]",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := directive.Extract(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractSessionEnd(t *testing.T) {
	t.Run("parameterized session end is appended last", func(t *testing.T) {
		text := `Great work today. [focus:headline="Rest"] [sessionEnd:title="Done",message="Great job"]`
		got := directive.ExtractSessionEnd(text)

		want := []directive.Directive{
			{Type: "focus", Props: map[string]string{"headline": "Rest"}},
			{Type: "sessionEnd", Props: map[string]string{"title": "Done", "message": "Great job"}},
		}
		if diff := cmp.Diff(want, got.Directives); diff != "" {
			t.Errorf("Directives mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, text, got.RawMatchedText)
		assert.True(t, got.Found())
	})

	t.Run("bare session end gets defaults", func(t *testing.T) {
		got := directive.ExtractSessionEnd("[sessionEnd]")

		want := []directive.Directive{{
			Type: "sessionEnd",
			Props: map[string]string{
				"title":   directive.DefaultSessionEndTitle,
				"message": directive.DefaultSessionEndMessage,
			},
		}}
		if diff := cmp.Diff(want, got.Directives); diff != "" {
			t.Errorf("Directives mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("partial props keep the given value", func(t *testing.T) {
		got := directive.ExtractSessionEnd(`[sessionEnd:title="All set"]`)

		assert.Len(t, got.Directives, 1)
		assert.Equal(t, "All set", got.Directives[0].Props["title"])
		assert.Equal(t, directive.DefaultSessionEndMessage, got.Directives[0].Props["message"])
	})

	t.Run("legacy markers", func(t *testing.T) {
		got := directive.ExtractSessionEnd(`Hello [finish-start][focus:headline="X"][finish-end]world`)

		want := []directive.Directive{
			{Type: "focus", Props: map[string]string{"headline": "X"}},
		}
		if diff := cmp.Diff(want, got.Directives); diff != "" {
			t.Errorf("Directives mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, `[focus:headline="X"]`, got.RawMatchedText)
	})

	t.Run("new style wins over legacy markers", func(t *testing.T) {
		text := `[finish-start][blockers][finish-end] [sessionEnd]`
		got := directive.ExtractSessionEnd(text)

		assert.Equal(t, text, got.RawMatchedText)
		assert.Len(t, got.Directives, 2)
		assert.Equal(t, "blockers", got.Directives[0].Type)
		assert.Equal(t, "sessionEnd", got.Directives[1].Type)
	})

	t.Run("start marker without end", func(t *testing.T) {
		got := directive.ExtractSessionEnd("[finish-start][focus]")

		assert.Empty(t, got.Directives)
		assert.Empty(t, got.RawMatchedText)
		assert.False(t, got.Found())
	})

	t.Run("nothing to resolve", func(t *testing.T) {
		got := directive.ExtractSessionEnd("[focus] keep going")

		assert.Empty(t, got.Directives)
		assert.Empty(t, got.RawMatchedText)
	})
}

func TestStrip(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "no directives",
			text: "  Just talk.\nAnother line.  ",
			want: "Just talk.\nAnother line.",
		},
		{
			name: "simple and parameterized forms",
			text: `Here is your focus. [focus:headline="Be bold"] Keep going [blockers]`,
			want: "Here is your focus.  Keep going",
		},
		{
			name: "session end removed",
			text: `That is everything. [sessionEnd:title="Done",message="Great job"]`,
			want: "That is everything.",
		},
		{
			name: "legacy markers with text on both sides",
			text: `Hello [finish-start][focus:headline="X"][finish-end]world`,
			want: "Hello\n\nworld",
		},
		{
			name: "legacy markers with text before only",
			text: "Wrapping up.\n[finish-start][focus][finish-end]",
			want: "Wrapping up.",
		},
		{
			name: "legacy start marker without end",
			text: "Almost there [finish-start] hidden [focus]",
			want: "Almost there",
		},
		{
			name: "stray end marker",
			text: "Oops [finish-end] done",
			want: "Oops  done",
		},
		{
			name: "blank line runs collapse",
			text: "One\n\n\n\n[actions]\n\n\nTwo",
			want: "One\n\nTwo",
		},
		{
			name: "nested brackets exposed by removal",
			text: "a [x[y]] b",
			want: "a  b",
		},
		{
			name: "deeply nested directives",
			text: "x [a[b[c]]] y",
			want: "x  y",
		},
		{
			name: "kept group inside a type name",
			text: "[a[b c]]",
			want: "[a[b c]]",
		},
		{
			name: "kept group inside a body",
			text: "[note:see [b c] here] after",
			want: "after",
		},
		{
			name: "unclosed bracket is kept",
			text: "cost [a:1 and [focus] more",
			want: "cost [a:1 and  more",
		},
		{
			name: "marker spelled out by an inner removal",
			text: "[finish-[x]end] done",
			want: "done",
		},
		{
			name: "several legacy regions",
			text: "one [finish-start]a[finish-end] two [finish-start]b[finish-end] three",
			want: "one\n\ntwo\n\nthree",
		},
		{
			name: "escaped content in body",
			text: `Note [card:note="she said \"hi\"\nthen left"] end`,
			want: "Note  end",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := directive.Strip(tt.text)
			if got != tt.want {
				t.Errorf("Strip() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStripIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"[a[b]]",
		"[finish-[x]start] tail [finish-end]",
		"x\n\n\n\n[focus]\n\n\n\ny",
		`[sessionEnd:title="a\]b"] [focus:headline="q"] [blockers]`,
		"Hello [finish-start][focus:headline=\"X\"][finish-end]world",
		"[[[[nested]]]]",
		"[finish-start] [finish-start] x [finish-end] [finish-end]",
		"[a[b c]]",
		"[a:x\\[y] z",
		"[[]x]",
		"[a:\\",
		"a [x:1 [finish-start] b] [finish-end] c]",
		"[finish-[finish-end]end]",
	}

	for _, in := range inputs {
		once := directive.Strip(in)
		twice := directive.Strip(once)
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestStripNestedInputIsLinear(t *testing.T) {
	const depth = 200_000

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "balanced nesting",
			text: strings.Repeat("[a", depth) + strings.Repeat("]", depth),
			want: "",
		},
		{
			name: "nested bodies",
			text: strings.Repeat("[a:", depth) + strings.Repeat("]", depth) + " end",
			want: "end",
		},
		{
			name: "unclosed brackets",
			text: strings.Repeat("[a ", depth),
			want: strings.TrimSpace(strings.Repeat("[a ", depth)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			got := directive.Strip(tt.text)
			elapsed := time.Since(start)

			assert.Equal(t, tt.want, got)
			assert.Less(t, elapsed, 2*time.Second, "Strip took %s on %d bytes", elapsed, len(tt.text))
		})
	}
}
