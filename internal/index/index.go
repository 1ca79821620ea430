package index

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/conorfennell/knolvocab/internal/domain"
	"github.com/conorfennell/knolvocab/internal/srs"
)

// Index is a snapshot of the live cards and their scheduling state.
// It is never modified after Build returns.
type Index struct {
	Cards  map[string]domain.Card
	States map[string]srs.State

	// Order lists every live card ID by creation time, then ID.
	Order []string
	// Due lists reviewed cards due at BuiltAt, earliest DueAt first.
	Due []string
	// New lists cards with no successful review since their last lapse, in creation order.
	New []string

	BuiltAt time.Time
}

// Builder builds indices with a fixed set of transition parameters.
type Builder struct {
	params srs.Params
}

// NewBuilder creates a Builder that replays reviews with the given parameters.
func NewBuilder(params srs.Params) *Builder {
	return &Builder{params: params}
}

// Build projects the mutation log into live cards, replays each card's
// review events and classifies the cards at now. Events for cards that are
// not live are ignored. Building twice from the same logs yields the same
// index.
func (b *Builder) Build(mutations []domain.CardMutation, events []domain.ReviewEvent, now time.Time) *Index {
	cards := Project(mutations)

	byCard := make(map[string][]domain.ReviewEvent, len(cards))
	for _, e := range events {
		if _, ok := cards[e.CardID]; !ok {
			continue
		}
		byCard[e.CardID] = append(byCard[e.CardID], e)
	}

	states := make(map[string]srs.State, len(cards))
	for id, c := range cards {
		states[id] = b.params.Replay(byCard[id], c.CreatedAt)
	}

	order := make([]string, 0, len(cards))
	for id := range cards {
		order = append(order, id)
	}
	slices.SortFunc(order, func(x, y string) int {
		if c := cards[x].CreatedAt.Compare(cards[y].CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(x, y)
	})

	idx := &Index{
		Cards:   cards,
		States:  states,
		Order:   order,
		BuiltAt: now,
	}
	idx.Due = idx.DueAt(now)
	for _, id := range order {
		if states[id].IsNew() {
			idx.New = append(idx.New, id)
		}
	}
	return idx
}

// Build builds an index with srs.DefaultParams.
func Build(mutations []domain.CardMutation, events []domain.ReviewEvent, now time.Time) *Index {
	return NewBuilder(srs.DefaultParams()).Build(mutations, events, now)
}

// DueAt returns the IDs of reviewed cards due at now, sorted by DueAt.
// Cards with the same DueAt keep their creation order.
func (idx *Index) DueAt(now time.Time) []string {
	var due []string
	for _, id := range idx.Order {
		if idx.State(id).IsDue(now) {
			due = append(due, id)
		}
	}
	slices.SortStableFunc(due, func(a, b string) int {
		return idx.States[a].DueAt.Compare(idx.States[b].DueAt)
	})
	return due
}

// Card returns the live card with the given ID. It panics if the ID is not
// in the index.
func (idx *Index) Card(id string) domain.Card {
	c, ok := idx.Cards[id]
	if !ok {
		panic(fmt.Sprintf("index: card %q is not in the index", id))
	}
	return c
}

// State returns the scheduling state of the card with the given ID. It
// panics if the ID is not in the index.
func (idx *Index) State(id string) srs.State {
	s, ok := idx.States[id]
	if !ok {
		panic(fmt.Sprintf("index: no scheduling state for card %q", id))
	}
	return s
}

// Len returns the number of live cards.
func (idx *Index) Len() int {
	return len(idx.Order)
}
