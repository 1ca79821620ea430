package domain

import (
	"encoding"
	"errors"
	"fmt"
)

// Sentinel errors for decoding ratings and modes.
var (
	ErrInvalidRating = errors.New("invalid rating")
	ErrInvalidMode   = errors.New("invalid presentation mode")
)

// Rating is the user's answer to a card review.
type Rating int

const (
	Again Rating = iota + 1 // Failed to recall.
	Hard                    // Recalled with serious difficulty.
	Good                    // Recalled after some hesitation.
	Easy                    // Recalled immediately.
)

var ratingNames = [...]string{Again: "again", Hard: "hard", Good: "good", Easy: "easy"}

var (
	_ fmt.Stringer             = Rating(0)
	_ encoding.TextMarshaler   = Rating(0)
	_ encoding.TextUnmarshaler = (*Rating)(nil)
)

// IsValid reports whether r is one of Again, Hard, Good or Easy.
func (r Rating) IsValid() bool {
	return r >= Again && r <= Easy
}

// String returns the lower-case name of the rating, or "Rating(n)" for
// values outside the enum.
func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r Rating) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRating, int(r))
	}
	return []byte(ratingNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rating) UnmarshalText(text []byte) error {
	v, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ParseRating converts a rating name ("again", "hard", "good", "easy").
func ParseRating(s string) (Rating, error) {
	for r := Again; r <= Easy; r++ {
		if ratingNames[r] == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
}

// Mode is the way a card was presented during a review. It is recorded for
// reporting only and does not influence scheduling.
type Mode int

const (
	Recognize Mode = iota + 1 // Front shown, back recalled.
	Recall                    // Back shown, front recalled.
	Typing                    // Answer typed in.
)

var modeNames = [...]string{Recognize: "recognize", Recall: "recall", Typing: "typing"}

// IsValid reports whether m is a known presentation mode.
func (m Mode) IsValid() bool {
	return m >= Recognize && m <= Typing
}

func (m Mode) String() string {
	if m.IsValid() {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode converts a mode name ("recognize", "recall", "typing").
func ParseMode(s string) (Mode, error) {
	for m := Recognize; m <= Typing; m++ {
		if modeNames[m] == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}
