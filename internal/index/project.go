package index

import "github.com/conorfennell/knolvocab/internal/domain"

// Latest returns the winning mutation record for every ID, deleted or not.
// The record with the highest Version wins. Between records of equal Version
// the later UpdatedAt wins, and if that is also equal the one appearing later
// in mutations wins.
func Latest(mutations []domain.CardMutation) map[string]domain.CardMutation {
	latest := make(map[string]domain.CardMutation, len(mutations))
	for _, m := range mutations {
		cur, ok := latest[m.ID]
		if !ok || supersedes(m, cur) {
			latest[m.ID] = m
		}
	}
	return latest
}

func supersedes(m, cur domain.CardMutation) bool {
	if m.Version != cur.Version {
		return m.Version > cur.Version
	}
	return !m.UpdatedAt.Before(cur.UpdatedAt)
}

// Project reduces mutation records to the live card set. An ID whose latest
// record is deleted is absent from the result; a higher non-deleted version
// brings it back with that record's content.
func Project(mutations []domain.CardMutation) map[string]domain.Card {
	latest := Latest(mutations)
	cards := make(map[string]domain.Card, len(latest))
	for id, m := range latest {
		if m.Deleted {
			continue
		}
		cards[id] = m.Card()
	}
	return cards
}
