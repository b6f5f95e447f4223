package domain

import (
	"math"

	apperrors "github.com/readrate/server/pkg/errors"
)

// Aggregate is the denormalized rating summary carried on a book row. All
// transitions are pure so they can be verified independently of storage; the
// repository applies them inside the same transaction that writes the review
// row, with the book row locked.
type Aggregate struct {
	Average float64
	Count   int
}

// round2 rounds to two decimal places, half away from zero.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Add returns the aggregate after a new rating joins it.
func (a Aggregate) Add(rating int) Aggregate {
	sum := a.Average*float64(a.Count) + float64(rating)
	count := a.Count + 1
	return Aggregate{
		Average: round2(sum / float64(count)),
		Count:   count,
	}
}

// Replace returns the aggregate after one contributing rating changes value.
// The count stays fixed; a zero count means the stored summary disagrees with
// the review being updated, which is a consistency bug, not a caller error.
func (a Aggregate) Replace(oldRating, newRating int) (Aggregate, error) {
	if a.Count == 0 {
		return Aggregate{}, apperrors.Invariant("rating aggregate is empty while replacing a review rating")
	}
	sum := a.Average*float64(a.Count) - float64(oldRating) + float64(newRating)
	return Aggregate{
		Average: round2(sum / float64(a.Count)),
		Count:   a.Count,
	}, nil
}

// Remove returns the aggregate after a contributing rating leaves it. Removing
// the last rating resets the average to zero rather than dividing by zero.
func (a Aggregate) Remove(rating int) (Aggregate, error) {
	if a.Count == 0 {
		return Aggregate{}, apperrors.Invariant("rating aggregate is empty while removing a review rating")
	}
	count := a.Count - 1
	if count == 0 {
		return Aggregate{}, nil
	}
	sum := a.Average*float64(a.Count) - float64(rating)
	return Aggregate{
		Average: round2(sum / float64(count)),
		Count:   count,
	}, nil
}
