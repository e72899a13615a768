// internal/engine/text/html.go
package text

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const blockSelectors = "p, div, li, ul, ol, h1, h2, h3, h4, h5, h6, tr, section, article, blockquote, pre"

var linkPattern = regexp.MustCompile(`https?://\S+`)

// bulletGlyphs are line prefixes counted as bullets in plain text.
var bulletGlyphs = []string{"•", "◦", "▪", "‣", "✓", "✔", "►", "➤"}

// asciiBullets only count when followed by whitespace so "-5%" is not a bullet.
var asciiBullets = []string{"- ", "* "}

// Structure is what a description looks like once its markup is resolved.
type Structure struct {
	Text     string // whitespace-collapsed plain text
	Length   int    // rune count of Text
	Bullets  int
	HasLinks bool
}

// Analyze parses s once and measures its plain-text length, bullet count and
// links. A glyph inside a list item is counted once, as the list item.
func Analyze(s string) Structure {
	if !looksLikeHTML(s) {
		plain := collapse(s)
		return Structure{
			Text:     plain,
			Length:   utf8.RuneCountInString(plain),
			Bullets:  countGlyphLines(s),
			HasLinks: linkPattern.MatchString(s),
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		plain := collapse(s)
		return Structure{Text: plain, Length: utf8.RuneCountInString(plain), Bullets: countGlyphLines(s)}
	}

	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockSelectors).AppendHtml("\n")

	plain := collapse(doc.Text())
	out := Structure{
		Text:     plain,
		Length:   utf8.RuneCountInString(plain),
		HasLinks: doc.Find("a[href]").Length() > 0 || linkPattern.MatchString(plain),
	}

	items := doc.Find("li")
	out.Bullets = items.Length()
	items.Remove()
	out.Bullets += countGlyphLines(doc.Text())
	return out
}

// StripHTML returns the whitespace-collapsed text content of s.
func StripHTML(s string) string {
	return Analyze(s).Text
}

// StrippedLength is the rune count of StripHTML(s).
func StrippedLength(s string) int {
	return Analyze(s).Length
}

// CountBullets counts list items plus glyph-prefixed lines outside list items.
func CountBullets(s string) int {
	return Analyze(s).Bullets
}

func looksLikeHTML(s string) bool {
	return strings.Contains(s, "<") && strings.Contains(s, ">") || strings.Contains(s, "&")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func countGlyphLines(s string) int {
	count := 0
	for _, line := range strings.Split(s, "\n") {
		if isBulletLine(strings.TrimSpace(line)) {
			count++
		}
	}
	return count
}

func isBulletLine(line string) bool {
	if line == "" {
		return false
	}
	for _, g := range bulletGlyphs {
		if strings.HasPrefix(line, g) {
			return true
		}
	}
	for _, g := range asciiBullets {
		if strings.HasPrefix(line, g) {
			return true
		}
	}
	return false
}
