package texts

import (
	"html"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize wraps every whitespace-delimited word as <word id="N">w</word>,
// numbering from 1. Whitespace between words is kept as is and word text is
// HTML-escaped.
func Tokenize(content string) string {
	var b strings.Builder
	b.Grow(len(content) * 2)

	id := 0
	for i := 0; i < len(content); {
		r, size := utf8.DecodeRuneInString(content[i:])
		if unicode.IsSpace(r) {
			b.WriteString(content[i : i+size])
			i += size
			continue
		}

		start := i
		for i < len(content) {
			r, size = utf8.DecodeRuneInString(content[i:])
			if unicode.IsSpace(r) {
				break
			}
			i += size
		}
		id++
		b.WriteString(`<word id="`)
		b.WriteString(strconv.Itoa(id))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(content[start:i]))
		b.WriteString(`</word>`)
	}
	return b.String()
}

// TokenCount returns the number of words Tokenize produced.
func TokenCount(tokenized string) int {
	return strings.Count(tokenized, `<word id="`)
}

// BackfillDocumentType is the per-row rule of the document type back-fill:
// texts with tokenized content are plain text, others keep their type.
func BackfillDocumentType(tokenized, current string) string {
	if tokenized != "" {
		return DocumentTypePlainText
	}
	return current
}
