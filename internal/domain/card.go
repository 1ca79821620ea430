package domain

import "time"

// CardMutation is one immutable, versioned snapshot of a card's content.
// Every edit appends a new record with a higher Version; records are never
// updated in place.
type CardMutation struct {
	ID        string
	Front     string
	Back      string
	Tags      []string
	Source    string // deck path or git URL the card was imported from, empty if authored directly
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
	Deleted   bool
}

// Card is the live view of a card: the highest-versioned mutation record
// for an ID, provided that record is not deleted.
type Card struct {
	ID        string
	Front     string
	Back      string
	Tags      []string
	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

// Card returns the live view of the record. It does not check Deleted.
func (m CardMutation) Card() Card {
	return Card{
		ID:        m.ID,
		Front:     m.Front,
		Back:      m.Back,
		Tags:      m.Tags,
		Source:    m.Source,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Version:   m.Version,
	}
}

// ReviewEvent records a single review outcome for a card.
// Duration is nil when the caller did not measure it.
type ReviewEvent struct {
	ID         string
	CardID     string
	ReviewedAt time.Time
	Rating     Rating
	Mode       Mode
	Duration   *time.Duration
}
