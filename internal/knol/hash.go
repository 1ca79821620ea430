package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/knolvocab/internal/domain"
)

// Normalize cleans the card's front: trims whitespace, lowercases, collapses
// inner runs of whitespace and normalizes line endings. The back and tags
// are not part of a card's identity.
func Normalize(card domain.Card) string {
	p := strings.ReplaceAll(card.Front, "\r\n", "\n")
	p = strings.ToLower(p)
	lines := strings.Split(p, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Hash returns the card ID derived from the normalized front: the first 16
// bytes of its SHA-256 hash as hex. Editing the back or tags of a deck entry
// therefore produces a new version of the same card.
func Hash(card domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return fmt.Sprintf("%x", sum[:16])
}

// SameContent reports whether two cards carry the same front, back and tags.
func SameContent(a, b domain.Card) bool {
	if a.Front != b.Front || a.Back != b.Back || len(a.Tags) != len(b.Tags) {
		return false
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			return false
		}
	}
	return true
}
