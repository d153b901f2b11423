package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MaxNoteLength is the stored length of a ledger note, in runes.
const MaxNoteLength = 255

var notePolicy = bluemonday.StrictPolicy()

// SanitizeNote strips all markup from a free-text ledger note and cuts it to
// MaxNoteLength runes. The result is HTML-escaped text, safe to render as is;
// a cut never leaves half an entity behind.
func SanitizeNote(input string) string {
	s := strings.TrimSpace(notePolicy.Sanitize(input))
	r := []rune(s)
	if len(r) <= MaxNoteLength {
		return s
	}
	s = string(r[:MaxNoteLength])
	// escaped text has no bare '&', so one after the last ';' opens a cut entity
	if amp := strings.LastIndexByte(s, '&'); amp > strings.LastIndexByte(s, ';') {
		s = s[:amp]
	}
	return strings.TrimSpace(s)
}
