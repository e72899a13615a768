// internal/engine/text/text_test.go
package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		stopWords bool
		expected  []string
	}{
		{
			name:     "lowercases and splits on punctuation",
			input:    "Ultimate Inventory-System: PRO v2",
			expected: []string{"ultimate", "inventory", "system", "pro"},
		},
		{
			name:     "folds diacritics",
			input:    "Café Résumé builder",
			expected: []string{"cafe", "resume", "builder"},
		},
		{
			name:     "drops tokens outside 3..19",
			input:    "ab abc supercalifragilisticexpialidocious",
			expected: []string{"abc"},
		},
		{
			name:      "drops stop words when asked",
			input:     "The best tool for your project",
			stopWords: true,
			expected:  []string{"best", "tool", "project"},
		},
		{
			name:     "keeps stop words otherwise",
			input:    "The best tool",
			expected: []string{"the", "best", "tool"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tokenize(tt.input, tt.stopWords))
		})
	}
}

func TestBigrams(t *testing.T) {
	assert.Nil(t, Bigrams([]string{"one"}))
	assert.Equal(t, []string{"fast inventory", "inventory system"}, Bigrams([]string{"fast", "inventory", "system"}))
}

func TestDescriptionText_TruncatesTo200Words(t *testing.T) {
	long := ""
	for i := 0; i < 250; i++ {
		long += "word "
	}
	out := DescriptionText("<p>short</p>", long)
	assert.Len(t, Tokenize(out, false), DescriptionWordLimit)
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain text", input: "  hello   world ", expected: "hello world"},
		{name: "paragraphs do not glue words", input: "<p>hello</p><p>world</p>", expected: "hello world"},
		{name: "line breaks", input: "one<br>two<br/>three", expected: "one two three"},
		{name: "scripts removed", input: "<div>keep</div><script>var x = 1;</script>", expected: "keep"},
		{name: "entities decoded", input: "Tom &amp; Jerry", expected: "Tom & Jerry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripHTML(tt.input))
		})
	}
}

func TestCountBullets(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "none", input: "Just a paragraph.", expected: 0},
		{name: "plain glyph lines", input: "Features:\n• Fast\n• Small\n- Cheap\n-5% off", expected: 3},
		{name: "list markup", input: "<ul><li>Fast</li><li>Small</li></ul>", expected: 2},
		{name: "glyph inside list item counted once", input: "<ul><li>• Fast</li><li>✓ Small</li></ul>", expected: 2},
		{name: "mixed markup and br glyphs", input: "<ul><li>A</li></ul><p>• B<br>• C</p>", expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CountBullets(tt.input))
		})
	}
}

func TestAnalyze_Links(t *testing.T) {
	assert.True(t, Analyze(`<a href="/docs">docs</a>`).HasLinks)
	assert.True(t, Analyze("see https://example.com/docs").HasLinks)
	assert.False(t, Analyze("no links here").HasLinks)
}

func TestSignalMatcher(t *testing.T) {
	m := NewSignalMatcher()

	body := "<h2>Key Features</h2><ul><li>Fast</li></ul><p>Requires Unity 2021. Try the demo and buy now!</p>"
	set := m.Match(Analyze(body))
	assert.True(t, set.Features)
	assert.True(t, set.Requirements)
	assert.True(t, set.Examples)
	assert.True(t, set.CTA)
	assert.False(t, set.Links)

	empty := m.Match(Analyze("nothing to see"))
	assert.Equal(t, SignalSet{}, empty)
}
