package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/knolvocab/internal/domain"
)

const (
	frontPrefix = "F:"
	backPrefix  = "B:"
	tagsPrefix  = "T:"
)

type state int

const (
	seeking state = iota
	readingFront
	readingBack
	readingTags
)

// ParseFile reads a deck file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a deck from an io.Reader and extracts all cards. Only the
// Front, Back and Tags fields of the returned cards are set.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	var cards []domain.Card
	var currentCard domain.Card
	var currentBlock []string
	currentState := seeking

	flushBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.TrimRight(strings.Join(currentBlock, "\n"), "\n")
		switch currentState {
		case readingFront:
			currentCard.Front = content
		case readingBack:
			currentCard.Back = content
		case readingTags:
			currentCard.Tags = parseTags(content)
		}
		currentBlock = nil
	}

	finishCard := func() {
		flushBlock()
		if currentCard.Front != "" {
			cards = append(cards, currentCard)
		}
		currentCard = domain.Card{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "---" {
			finishCard()
			continue
		}

		prefix, next := fieldPrefix(line)
		if prefix == "" {
			if currentState != seeking {
				currentBlock = append(currentBlock, line)
			}
			continue
		}

		flushBlock()
		if next == readingFront && currentState != seeking { // A new front always starts a new card
			finishCard()
		}
		currentState = next
		currentBlock = append(currentBlock, strings.TrimPrefix(line[len(prefix):], " "))
	}

	finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}

func fieldPrefix(line string) (string, state) {
	switch {
	case strings.HasPrefix(line, frontPrefix):
		return frontPrefix, readingFront
	case strings.HasPrefix(line, backPrefix):
		return backPrefix, readingBack
	case strings.HasPrefix(line, tagsPrefix):
		return tagsPrefix, readingTags
	}
	return "", seeking
}

func parseTags(s string) []string {
	var tags []string
	for _, t := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' }) {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
