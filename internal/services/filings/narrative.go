package filings

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

var (
	// mdaHeading matches the MD&A section title with straight or curly apostrophes
	mdaHeading = regexp.MustCompile(`(?i)management[’'‘]?s?\s+discussion\s+and\s+analysis`)

	// itemHeading matches the start of the next numbered item
	itemHeading = regexp.MustCompile(`(?im)^\W*item\s+\d+[a-z]?\b`)

	blankLines = regexp.MustCompile(`\n{3,}`)
)

// ExtractNarrative returns the management-discussion section of a filing
// document as plain text, or the start of the document when it has no such
// section. The result is truncated to budget characters.
func ExtractNarrative(html []byte, budget int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse document: %w", err)
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	body.Find("script, style, noscript, table, img, ix\\:header").Remove()

	converter := md.NewConverter("", true, nil)
	text := converter.Convert(body)
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = blankLines.ReplaceAllString(strings.TrimSpace(text), "\n\n")

	if text == "" {
		return "", fmt.Errorf("document has no text")
	}

	return Truncate(mdaSection(text), budget), nil
}

// mdaSection picks the MD&A occurrence with the most text before the next
// item heading, skipping table-of-contents mentions
func mdaSection(text string) string {
	matches := mdaHeading.FindAllStringIndex(text, -1)

	best := ""
	for _, m := range matches {
		rest := text[m[0]:]
		end := len(rest)
		if loc := itemHeading.FindStringIndex(rest[m[1]-m[0]:]); loc != nil {
			end = m[1] - m[0] + loc[0]
		}
		if section := strings.TrimSpace(rest[:end]); len(section) > len(best) {
			best = section
		}
	}

	if best == "" {
		return text
	}
	return best
}

// Truncate cuts s to at most budget characters on a rune boundary
func Truncate(s string, budget int) string {
	if budget <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= budget {
		return s
	}
	return string(runes[:budget])
}
