package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/readrate/server/pkg/errors"
)

func TestAggregate_Add_FirstRating(t *testing.T) {
	agg := Aggregate{}.Add(4)

	assert.Equal(t, 4.0, agg.Average)
	assert.Equal(t, 1, agg.Count)
}

func TestAggregate_Add_ExistingRatings(t *testing.T) {
	// Ratings [4, 5], then a 3 arrives.
	agg := Aggregate{Average: 4.5, Count: 2}.Add(3)

	assert.Equal(t, 4.0, agg.Average)
	assert.Equal(t, 3, agg.Count)
}

func TestAggregate_Add_RoundsToTwoDecimals(t *testing.T) {
	// Ratings [1, 2], then a 2: 5/3 = 1.666... -> 1.67.
	agg := Aggregate{Average: 1.5, Count: 2}.Add(2)

	assert.Equal(t, 1.67, agg.Average)
	assert.Equal(t, 3, agg.Count)
}

func TestAggregate_Replace(t *testing.T) {
	// Ratings [4, 5, 3] with the 4 changing to a 2: 10/3 = 3.33.
	agg, err := Aggregate{Average: 4.0, Count: 3}.Replace(4, 2)
	require.NoError(t, err)

	assert.Equal(t, 3.33, agg.Average)
	assert.Equal(t, 3, agg.Count)
}

func TestAggregate_Replace_SameRating(t *testing.T) {
	agg, err := Aggregate{Average: 4.0, Count: 3}.Replace(4, 4)
	require.NoError(t, err)

	assert.Equal(t, 4.0, agg.Average)
	assert.Equal(t, 3, agg.Count)
}

func TestAggregate_Replace_EmptyAggregate(t *testing.T) {
	_, err := Aggregate{}.Replace(3, 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvariant)
}

func TestAggregate_Remove(t *testing.T) {
	// Ratings [4, 5, 3] with the 5 leaving: 7/2 = 3.50.
	agg, err := Aggregate{Average: 4.0, Count: 3}.Remove(5)
	require.NoError(t, err)

	assert.Equal(t, 3.5, agg.Average)
	assert.Equal(t, 2, agg.Count)
}

func TestAggregate_Remove_LastRating(t *testing.T) {
	agg, err := Aggregate{Average: 5.0, Count: 1}.Remove(5)
	require.NoError(t, err)

	assert.Equal(t, 0.0, agg.Average)
	assert.Equal(t, 0, agg.Count)
}

func TestAggregate_Remove_EmptyAggregate(t *testing.T) {
	_, err := Aggregate{}.Remove(3)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvariant)
}

func TestAggregate_ResurrectionSequence(t *testing.T) {
	// Submit 5, soft-delete it, then submit 3: the final aggregate must not
	// remember the deleted rating.
	agg := Aggregate{}.Add(5)
	assert.Equal(t, Aggregate{Average: 5.0, Count: 1}, agg)

	agg, err := agg.Remove(5)
	require.NoError(t, err)
	assert.Equal(t, Aggregate{}, agg)

	agg = agg.Add(3)
	assert.Equal(t, Aggregate{Average: 3.0, Count: 1}, agg)
}

func TestResolveSubmit(t *testing.T) {
	tests := []struct {
		name     string
		existing *Review
		want     SubmitAction
	}{
		{"no prior review", nil, SubmitInsert},
		{"soft-deleted review", &Review{IsDeleted: true}, SubmitResurrect},
		{"active review", &Review{IsDeleted: false}, SubmitConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveSubmit(tt.existing))
		})
	}
}

func TestIsValidRating(t *testing.T) {
	assert.False(t, IsValidRating(0))
	assert.True(t, IsValidRating(1))
	assert.True(t, IsValidRating(5))
	assert.False(t, IsValidRating(6))
}

func TestIsValidBookSortField(t *testing.T) {
	for _, f := range ValidBookSortFields() {
		assert.True(t, IsValidBookSortField(f))
	}
	assert.False(t, IsValidBookSortField("avg_rating; DROP TABLE books"))
	assert.False(t, IsValidBookSortField(""))
}
