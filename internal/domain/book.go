package domain

import (
	"time"
)

// Book represents a book in the catalog together with its denormalized
// review aggregate. AvgRating and TotalReviews are maintained transactionally
// alongside review writes and are never recomputed from the reviews table on
// the read path.
type Book struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Genre        string    `json:"genre"`
	Description  string    `json:"description,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	AvgRating    float64   `json:"avg_rating"`
	TotalReviews int       `json:"total_reviews"`
	IsDeleted    bool      `json:"-"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Book sort fields accepted by list queries.
const (
	BookSortTitle     = "title"
	BookSortAuthor    = "author"
	BookSortGenre     = "genre"
	BookSortCreatedAt = "created_at"
)

// BookFilter holds the optional filters and ordering for book list queries.
// String filters match case-insensitively on equality.
type BookFilter struct {
	Genre    string
	Author   string
	Title    string
	SortBy   string
	SortDesc bool
}

// ValidBookSortFields returns the set of sortable book columns.
func ValidBookSortFields() []string {
	return []string{BookSortTitle, BookSortAuthor, BookSortGenre, BookSortCreatedAt}
}

// IsValidBookSortField checks whether the given field can be sorted on.
func IsValidBookSortField(field string) bool {
	for _, f := range ValidBookSortFields() {
		if f == field {
			return true
		}
	}
	return false
}
