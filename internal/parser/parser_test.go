package parser

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedFront string
		expectedBack  string
		expectedTags  []string
	}{
		{
			name:          "Simple front and back",
			input:         "F: el perro\nB: the dog",
			expectedCards: 1,
			expectedFront: "el perro",
			expectedBack:  "the dog",
		},
		{
			name:          "Front, back and tags",
			input:         "F: la casa\nB: the house\nT: nouns, a1",
			expectedCards: 1,
			expectedFront: "la casa",
			expectedBack:  "the house",
			expectedTags:  []string{"nouns", "a1"},
		},
		{
			name: "Multiline back",
			input: `
F: ser
B: to be
(permanent traits)
`,
			expectedCards: 1,
			expectedFront: "ser",
			expectedBack:  "to be\n(permanent traits)",
		},
		{
			name: "Two cards",
			input: `
F: uno
B: one

F: dos
B: two
`,
			expectedCards: 2,
		},
		{
			name: "Separator ends a card",
			input: `
F: tres
B: three
---
F: cuatro
`,
			expectedCards: 2,
		},
		{
			name:          "No cards, just text",
			input:         "A vocabulary list without any cards.",
			expectedCards: 0,
		},
		{
			name:          "Prefixes with no space",
			input:         "F:gato\nB:cat",
			expectedCards: 1,
			expectedFront: "gato",
			expectedBack:  "cat",
		},
		{
			name:          "Back without front is dropped",
			input:         "B: orphan",
			expectedCards: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := strings.NewReader(tc.input)
			cards, err := Parse(r)
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(cards) != tc.expectedCards {
				t.Fatalf("Expected %d cards, but got %d", tc.expectedCards, len(cards))
			}

			if tc.expectedCards == 1 {
				card := cards[0]
				if card.Front != tc.expectedFront {
					t.Errorf("Expected Front to be '%s', but got '%s'", tc.expectedFront, card.Front)
				}
				if card.Back != tc.expectedBack {
					t.Errorf("Expected Back to be '%s', but got '%s'", tc.expectedBack, card.Back)
				}
				if strings.Join(card.Tags, ",") != strings.Join(tc.expectedTags, ",") {
					t.Errorf("Expected Tags to be %v, but got %v", tc.expectedTags, card.Tags)
				}
			}
		})
	}
}
