package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/dto"
)

func TestReviewService_AggregatesFollowWrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := env.event(t, "Jazz Night", vancouver, nil, 10)
	u1, u2 := env.user(t, 1), env.user(t, 2)

	r1, err := env.reviews.CreateReview(ctx, &dto.CreateReviewRequest{EventID: strPtr(ev.ID), UserID: u1.ID, Rating: 5})
	require.NoError(t, err)
	_, err = env.reviews.CreateReview(ctx, &dto.CreateReviewRequest{EventID: strPtr(ev.ID), UserID: u2.ID, Rating: 3})
	require.NoError(t, err)

	stored, err := env.events.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Stats.ReviewCount)
	assert.Equal(t, 4.0, stored.Stats.AverageRating)

	four := 4
	_, err = env.reviews.UpdateReview(ctx, r1.ID, &dto.UpdateReviewRequest{Rating: &four})
	require.NoError(t, err)
	stored, err = env.events.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.5, stored.Stats.AverageRating)

	require.NoError(t, env.reviews.DeleteReview(ctx, r1.ID))
	stored, err = env.events.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Stats.ReviewCount)
	assert.Equal(t, 3.0, stored.Stats.AverageRating)

	assert.Len(t, env.pub.published(domain.ReviewChanged), 4)
}

func TestReviewService_VenueRating(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.venue(t, "Stanley Park", vancouver, 500)
	u1, u2, u3 := env.user(t, 1), env.user(t, 2), env.user(t, 3)

	for i, u := range []*domain.User{u1, u2, u3} {
		_, err := env.reviews.CreateReview(ctx, &dto.CreateReviewRequest{VenueID: strPtr(v.ID), UserID: u.ID, Rating: 5 - i})
		require.NoError(t, err)
	}

	stored, err := env.venues.GetVenue(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.ReviewCount)
	assert.Equal(t, 4.0, stored.Rating)

	page, err := env.reviews.ListReviews(ctx, domain.ReviewTargetVenue, v.ID, &dto.ListParams{Limit: "2"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)

	next, err := env.reviews.ListReviews(ctx, domain.ReviewTargetVenue, v.ID, &dto.ListParams{Cursor: page.NextCursor, Limit: "2"})
	require.NoError(t, err)
	assert.Len(t, next.Items, 1)
	assert.False(t, next.HasMore)
}

func TestReviewService_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := env.event(t, "Jazz Night", vancouver, nil, 10)
	v := env.venue(t, "Stanley Park", vancouver, 500)
	u := env.user(t, 1)

	tests := []struct {
		name  string
		req   *dto.CreateReviewRequest
		check func(error) bool
	}{
		{"no target", &dto.CreateReviewRequest{UserID: u.ID, Rating: 4}, domain.IsValidationError},
		{"two targets", &dto.CreateReviewRequest{EventID: strPtr(ev.ID), VenueID: strPtr(v.ID), UserID: u.ID, Rating: 4}, domain.IsValidationError},
		{"rating too high", &dto.CreateReviewRequest{EventID: strPtr(ev.ID), UserID: u.ID, Rating: 6}, domain.IsValidationError},
		{"rating too low", &dto.CreateReviewRequest{EventID: strPtr(ev.ID), UserID: u.ID, Rating: 0}, domain.IsValidationError},
		{"missing event", &dto.CreateReviewRequest{EventID: strPtr("nope"), UserID: u.ID, Rating: 4}, domain.IsValidationError},
		{"missing user", &dto.CreateReviewRequest{EventID: strPtr(ev.ID), UserID: "ghost", Rating: 4}, domain.IsValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.reviews.CreateReview(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}

	_, err := env.reviews.ListReviews(ctx, domain.ReviewTargetEvent, "nope", &dto.ListParams{})
	assert.True(t, domain.IsNotFoundError(err))

	stored, err := env.events.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Stats.ReviewCount)
	assert.Equal(t, 0.0, stored.Stats.AverageRating)
}
