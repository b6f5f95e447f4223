package domain

import (
	"time"
)

// Review represents a book review submitted by a user. A soft-deleted review
// keeps its row so a later submission by the same user can resurrect it.
type Review struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	IsDeleted bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Reviewer is populated on read paths that join the users table.
	Reviewer *UserSummary `json:"reviewer,omitempty"`
}

// SubmitAction is the outcome of resolving a review submission against the
// user's existing review row for the same book.
type SubmitAction int

const (
	// SubmitInsert means no prior review row exists; insert a fresh one.
	SubmitInsert SubmitAction = iota
	// SubmitResurrect means a soft-deleted row exists; reactivate it in
	// place with the new rating and comment.
	SubmitResurrect
	// SubmitConflict means an active review already exists; the submission
	// must be rejected.
	SubmitConflict
)

// ResolveSubmit decides what a review submission should do given the user's
// existing review row for the book, or nil if none exists.
func ResolveSubmit(existing *Review) SubmitAction {
	switch {
	case existing == nil:
		return SubmitInsert
	case existing.IsDeleted:
		return SubmitResurrect
	default:
		return SubmitConflict
	}
}

// MinRating and MaxRating bound the accepted rating scale.
const (
	MinRating = 1
	MaxRating = 5
)

// IsValidRating checks that a rating falls on the accepted scale.
func IsValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}
