package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/dto"
)

func TestUserService_EmailIsUnique(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, 1)

	_, err := env.users.CreateUser(ctx, &dto.CreateUserRequest{Email: "USER1@example.com"})
	require.Error(t, err)
	assert.True(t, domain.IsDuplicateKeyError(err))

	_, err = env.users.CreateUser(ctx, &dto.CreateUserRequest{Email: "not-an-email"})
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
}

func TestUserService_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, 1)

	radius := 2500.0
	updated, err := env.users.UpdateUser(ctx, u.ID, &dto.UpdateUserRequest{
		Interests:          []string{"jazz", "food"},
		PreferredLocation:  &vancouver,
		SearchRadiusMeters: &radius,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"jazz", "food"}, updated.Profile.Interests)
	assert.Equal(t, 2500.0, updated.SearchRadius())

	tooFar := domain.MaxRadiusMeters + 1
	_, err = env.users.UpdateUser(ctx, u.ID, &dto.UpdateUserRequest{SearchRadiusMeters: &tooFar})
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))

	_, err = env.users.UpdateUser(ctx, "ghost", &dto.UpdateUserRequest{})
	assert.True(t, domain.IsNotFoundError(err))
}

func TestUserService_ListPages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		env.user(t, i)
		env.clock.Advance(time.Second)
	}

	var seen []string
	params := &dto.ListParams{Limit: "2"}
	for {
		page, err := env.users.ListUsers(ctx, params)
		require.NoError(t, err)
		for _, u := range page.Items {
			seen = append(seen, u.Email)
		}
		if !page.HasMore {
			break
		}
		params = &dto.ListParams{Limit: "2", Cursor: page.NextCursor}
	}
	assert.Len(t, seen, 5)

	_, err := env.users.ListUsers(ctx, &dto.ListParams{Limit: "abc"})
	assert.True(t, domain.IsInvalidQueryError(err))
}

func TestUserService_DeleteRecomputesAggregates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.venue(t, "Stanley Park", vancouver, 500)
	ev := env.event(t, "Jazz Night", vancouver, strPtr(v.ID), 10)
	leaving, staying := env.user(t, 1), env.user(t, 2)

	_, err := env.reviews.CreateReview(ctx, &dto.CreateReviewRequest{EventID: strPtr(ev.ID), UserID: leaving.ID, Rating: 1})
	require.NoError(t, err)
	_, err = env.reviews.CreateReview(ctx, &dto.CreateReviewRequest{EventID: strPtr(ev.ID), UserID: staying.ID, Rating: 5})
	require.NoError(t, err)
	_, err = env.reviews.CreateReview(ctx, &dto.CreateReviewRequest{VenueID: strPtr(v.ID), UserID: leaving.ID, Rating: 2})
	require.NoError(t, err)
	booked, err := env.book(leaving.ID, ev.ID)
	require.NoError(t, err)
	_, err = env.book(staying.ID, ev.ID)
	require.NoError(t, err)

	before, err := env.events.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, before.Stats.AverageRating)
	assert.Equal(t, 2, before.CurrentAttendees)

	require.NoError(t, env.users.DeleteUser(ctx, leaving.ID))

	_, err = env.users.GetUser(ctx, leaving.ID)
	assert.True(t, domain.IsNotFoundError(err))
	_, err = env.checkins.GetCheckin(ctx, booked.CheckinID)
	assert.True(t, domain.IsNotFoundError(err))

	after, err := env.events.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Stats.ReviewCount)
	assert.Equal(t, 5.0, after.Stats.AverageRating)
	assert.Equal(t, 1, after.CurrentAttendees)

	venue, err := env.venues.GetVenue(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, venue.ReviewCount)
	assert.Equal(t, 0.0, venue.Rating)
	assert.Equal(t, 1, venue.Stats.TotalCheckins)

	assert.True(t, domain.IsNotFoundError(env.users.DeleteUser(ctx, leaving.ID)))
}
