package rag

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var attachmentNote = regexp.MustCompile(`\[Files attached:.*?\]`)

// Keywords is an unordered set of lower-cased query terms.
type Keywords map[string]struct{}

// AnalyzeQuery finds the latest user message, strips attachment annotations
// from it in place and returns the cleaned text with its keywords.
// Pass a copy of the conversation if the caller's slice must stay untouched.
func AnalyzeQuery(conversation []Message) (string, Keywords) {
	last := -1
	for i := len(conversation) - 1; i >= 0; i-- {
		if conversation[i].Role == RoleUser {
			last = i
			break
		}
	}
	if last == -1 {
		return "", Keywords{}
	}

	cleaned := strings.TrimSpace(attachmentNote.ReplaceAllString(conversation[last].Content, ""))
	conversation[last].Content = cleaned

	return cleaned, ExtractKeywords(cleaned)
}

// ExtractKeywords keeps whitespace-separated tokens longer than two characters.
func ExtractKeywords(text string) Keywords {
	kw := Keywords{}
	for _, tok := range strings.Fields(text) {
		// Lowering can change the rune count ('İ' becomes two runes).
		if utf8.RuneCountInString(tok) > 2 {
			kw[strings.ToLower(tok)] = struct{}{}
		}
	}
	return kw
}
