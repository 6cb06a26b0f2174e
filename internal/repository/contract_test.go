package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/testutil"
)

// backends returns every storage backend available to the test run
func backends(t *testing.T) map[string]func(t *testing.T) *Repositories {
	return map[string]func(t *testing.T) *Repositories{
		"memory": func(t *testing.T) *Repositories {
			return NewMemoryRepositories(NewMemoryStore())
		},
		"postgres": func(t *testing.T) *Repositories {
			return NewPostgresRepositories(testutil.NewMigratedPool(t))
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, repos *Repositories)) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

func TestEventRepository_CreateAndGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		e := newEvent("Jazz Night", vancouver, baseTime.Add(24*time.Hour))
		require.NoError(t, repos.Events.Create(ctx, e))
		require.NotEmpty(t, e.TicketTiers[0].ID)

		got, err := repos.Events.GetByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, e.Title, got.Title)
		assert.Equal(t, domain.EventTypeInPerson, got.EventType)
		require.NotNil(t, got.Details.InPerson)
		assert.Equal(t, 19, got.Details.InPerson.AgeRestriction)
		require.Len(t, got.TicketTiers, 1)
		assert.Equal(t, 2, got.TicketTiers[0].Available)
		assert.InDelta(t, vancouver.Lng(), got.Location.Lng(), 1e-9)
		assert.True(t, got.StartDate.Equal(e.StartDate))
	})
}

func TestEventRepository_NotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		_, err := repos.Events.GetByID(ctx, uuid.NewString())
		assert.True(t, domain.IsNotFoundError(err))

		_, err = repos.Events.GetByID(ctx, "not-a-uuid")
		assert.True(t, domain.IsNotFoundError(err))
	})
}

func TestEventRepository_SoftDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		e := newEvent("Gone", vancouver, baseTime)
		require.NoError(t, repos.Events.Create(ctx, e))
		require.NoError(t, repos.Events.SoftDelete(ctx, e.ID, baseTime))

		_, err := repos.Events.GetByID(ctx, e.ID)
		assert.True(t, domain.IsNotFoundError(err))
		assert.True(t, domain.IsNotFoundError(repos.Events.SoftDelete(ctx, e.ID, baseTime)))
	})
}

func TestEventRepository_ReplaceTiersAfterSale(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		e := newEvent("Tiers", vancouver, baseTime)
		require.NoError(t, repos.Events.Create(ctx, e))

		require.NoError(t, repos.Events.ReplaceTiers(ctx, e.ID, []domain.TicketTier{
			{Name: "VIP", Price: 80, Allocation: 1, Available: 1},
		}))
		_, err := repos.Tiers.Reserve(ctx, mustTier(t, repos, e.ID, "VIP").ID)
		require.NoError(t, err)

		err = repos.Events.ReplaceTiers(ctx, e.ID, []domain.TicketTier{{Name: "GA", Allocation: 5, Available: 5}})
		assert.True(t, domain.IsValidationError(err))
	})
}

func mustTier(t *testing.T, repos *Repositories, eventID, name string) *domain.TicketTier {
	t.Helper()
	tier, err := repos.Tiers.GetForUpdate(context.Background(), eventID, name)
	require.NoError(t, err)
	return tier
}

func TestTicketTier_ReserveKeepsAllocation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		e := newEvent("Inventory", vancouver, baseTime)
		require.NoError(t, repos.Events.Create(ctx, e))
		tierID := mustTier(t, repos, e.ID, "GA").ID

		for i := 0; i < 2; i++ {
			tier, err := repos.Tiers.Reserve(ctx, tierID)
			require.NoError(t, err)
			assert.Equal(t, tier.Allocation, tier.Sold+tier.Available)
		}
		_, err := repos.Tiers.Reserve(ctx, tierID)
		assert.True(t, domain.IsSoldOutError(err))

		tier := mustTier(t, repos, e.ID, "GA")
		assert.Equal(t, 2, tier.Sold)
		assert.Equal(t, 0, tier.Available)

		_, err = repos.Tiers.GetForUpdate(ctx, e.ID, "Balcony")
		assert.True(t, domain.IsNotFoundError(err))
	})
}

func TestEventRepository_AdmitRespectsCapacity(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		e := newEvent("Small room", vancouver, baseTime)
		e.MaxAttendees = 1
		require.NoError(t, repos.Events.Create(ctx, e))

		require.NoError(t, repos.Events.ApplyTicketSale(ctx, e.ID, 25, baseTime))
		assert.True(t, domain.IsSoldOutError(repos.Events.AdmitAttendee(ctx, e.ID, baseTime)))
		assert.True(t, domain.IsNotFoundError(repos.Events.AdmitAttendee(ctx, uuid.NewString(), baseTime)))

		got, err := repos.Events.GetByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.CurrentAttendees)
		assert.Equal(t, 1, got.Stats.TotalTicketsSold)
		assert.InDelta(t, 25.0, got.Stats.Revenue, 1e-9)
		assert.InDelta(t, 100.0, got.Stats.AttendanceRate, 1e-9)
	})
}

func TestTxManager_RollsBack(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		e := newEvent("Rollback", vancouver, baseTime)
		require.NoError(t, repos.Events.Create(ctx, e))
		tierID := mustTier(t, repos, e.ID, "GA").ID
		u := newUser("rollback@example.com")
		require.NoError(t, repos.Users.Create(ctx, u))

		boom := errors.New("boom")
		err := repos.Tx.WithTx(ctx, func(ctx context.Context) error {
			if _, err := repos.Tiers.Reserve(ctx, tierID); err != nil {
				return err
			}
			if err := repos.Events.ApplyTicketSale(ctx, e.ID, 25, baseTime); err != nil {
				return err
			}
			if err := repos.Checkins.Create(ctx, newCheckin(e.ID, u.ID)); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		tier := mustTier(t, repos, e.ID, "GA")
		assert.Equal(t, 0, tier.Sold)
		got, err := repos.Events.GetByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.CurrentAttendees)
		checkins, err := repos.Checkins.ListByEvent(ctx, e.ID, nil, 10)
		require.NoError(t, err)
		assert.Empty(t, checkins)
	})
}

func TestCheckinRepository_OnePerEventUser(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		e := newEvent("Dup", vancouver, baseTime)
		require.NoError(t, repos.Events.Create(ctx, e))
		u := newUser("dup@example.com")
		require.NoError(t, repos.Users.Create(ctx, u))

		require.NoError(t, repos.Checkins.Create(ctx, newCheckin(e.ID, u.ID)))
		err := repos.Checkins.Create(ctx, newCheckin(e.ID, u.ID))
		assert.True(t, domain.IsDuplicateKeyError(err))
	})
}

func TestUserRepository_EmailUnique(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		require.NoError(t, repos.Users.Create(ctx, newUser("ada@example.com")))
		err := repos.Users.Create(ctx, newUser("ada@example.com"))
		assert.True(t, domain.IsDuplicateKeyError(err))
	})
}

func TestUserRepository_ListPages(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			u := newUser(uuid.NewString() + "@example.com")
			u.CreatedAt = baseTime.Add(time.Duration(i) * time.Minute)
			require.NoError(t, repos.Users.Create(ctx, u))
		}

		var seen []string
		var after *domain.Cursor
		for {
			rows, err := repos.Users.List(ctx, after, 2)
			require.NoError(t, err)
			page := domain.PageOf(rows, 2, domain.SortByCreated)
			for _, u := range page.Items {
				seen = append(seen, u.ID)
			}
			if !page.HasMore {
				break
			}
			after, err = domain.DecodeCursor(page.NextCursor, domain.SortByCreated)
			require.NoError(t, err)
		}
		assert.Len(t, seen, 5)
	})
}

func TestReviewRepository_OrphanHidesRows(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		e := newEvent("Reviewed", vancouver, baseTime)
		require.NoError(t, repos.Events.Create(ctx, e))
		u := newUser("critic@example.com")
		require.NoError(t, repos.Users.Create(ctx, u))

		r := newReview(domain.ReviewTargetEvent, e.ID, u.ID, 4)
		require.NoError(t, repos.Reviews.Create(ctx, r))

		n, err := repos.Reviews.OrphanByEvent(ctx, e.ID, baseTime)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = repos.Reviews.GetByID(ctx, r.ID)
		assert.True(t, domain.IsNotFoundError(err))
		rows, err := repos.Reviews.ListByTarget(ctx, domain.ReviewTargetEvent, e.ID, nil, 10)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestStatsRepository_ReviewMean(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		e := newEvent("Rated", vancouver, baseTime)
		require.NoError(t, repos.Events.Create(ctx, e))
		u1, u2 := newUser("r1@example.com"), newUser("r2@example.com")
		require.NoError(t, repos.Users.Create(ctx, u1))
		require.NoError(t, repos.Users.Create(ctx, u2))

		five := newReview(domain.ReviewTargetEvent, e.ID, u1.ID, 5)
		require.NoError(t, repos.Reviews.Create(ctx, five))
		require.NoError(t, repos.Reviews.Create(ctx, newReview(domain.ReviewTargetEvent, e.ID, u2.ID, 3)))

		require.NoError(t, repos.Stats.RecomputeEventReviewStats(ctx, e.ID, baseTime))
		got, err := repos.Events.GetByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Stats.ReviewCount)
		assert.InDelta(t, 4.0, got.Stats.AverageRating, 1e-9)

		require.NoError(t, repos.Reviews.Delete(ctx, five.ID))
		require.NoError(t, repos.Stats.RecomputeEventReviewStats(ctx, e.ID, baseTime))
		require.NoError(t, repos.Stats.RecomputeEventReviewStats(ctx, e.ID, baseTime))
		got, err = repos.Events.GetByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Stats.ReviewCount)
		assert.InDelta(t, 3.0, got.Stats.AverageRating, 1e-9)
	})
}

func TestStatsRepository_AttendanceAndHosting(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		v := newVenue("Stanley Park", vancouver)
		require.NoError(t, repos.Venues.Create(ctx, v))
		e := newEvent("Picnic", vancouver, baseTime.Add(48*time.Hour))
		e.MaxAttendees = 4
		e.ApplySnapshot(v, baseTime)
		require.NoError(t, repos.Events.Create(ctx, e))

		tierID := mustTier(t, repos, e.ID, "GA").ID
		for i := 0; i < 2; i++ {
			u := newUser(uuid.NewString() + "@example.com")
			require.NoError(t, repos.Users.Create(ctx, u))
			_, err := repos.Tiers.Reserve(ctx, tierID)
			require.NoError(t, err)
			c := newCheckin(e.ID, u.ID)
			c.VenueID = &v.ID
			require.NoError(t, repos.Checkins.Create(ctx, c))
		}

		for i := 0; i < 2; i++ {
			require.NoError(t, repos.Stats.RecomputeEventAttendance(ctx, e.ID, baseTime))
			require.NoError(t, repos.Stats.RecomputeVenueHostingStats(ctx, v.ID, baseTime))
		}

		got, err := repos.Events.GetByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, got.TicketsSold(), got.Stats.TotalTicketsSold)
		assert.Equal(t, 2, got.Stats.TotalTicketsSold)
		assert.InDelta(t, 50.0, got.Stats.Revenue, 1e-9)
		assert.Equal(t, 2, got.CurrentAttendees)
		assert.InDelta(t, 50.0, got.Stats.AttendanceRate, 1e-9)

		venue, err := repos.Venues.GetByID(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, venue.Stats.EventsHosted)
		assert.Equal(t, 1, venue.Stats.UpcomingEvents)
		assert.Equal(t, 2, venue.Stats.TotalCheckins)

		ids, err := repos.Stats.ListEventIDs(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, e.ID)
	})
}

func TestStatsRepository_RefreshVenueSnapshot(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		v := newVenue("Old Name", vancouver)
		require.NoError(t, repos.Venues.Create(ctx, v))
		e := newEvent("Snap", vancouver, baseTime)
		e.ApplySnapshot(v, baseTime)
		require.NoError(t, repos.Events.Create(ctx, e))

		v.Name = "New Name"
		v.Capacity = 250
		require.NoError(t, repos.Venues.Update(ctx, v))
		ids, err := repos.Stats.RefreshVenueSnapshot(ctx, v.ID, baseTime.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []string{e.ID}, ids)

		got, err := repos.Events.GetByID(ctx, e.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Venue)
		assert.Equal(t, "New Name", got.Venue.Name)
		assert.Equal(t, 250, got.Venue.Capacity)
		assert.True(t, got.Venue.SyncedAt.Equal(baseTime.Add(time.Hour)))
	})
}

func TestDiscovery_RadiusSearch(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		points := []domain.GeoPoint{
			offset(vancouver, 0, 0),
			offset(vancouver, 400, 300),
			offset(vancouver, -900, 0),
			offset(vancouver, 800, 800),
			offset(vancouver, 0, -2500),
			offset(vancouver, 5000, 5000),
		}
		want := map[string]bool{}
		for i, p := range points {
			e := newEvent("Show", p, baseTime.Add(time.Duration(i)*time.Hour))
			require.NoError(t, repos.Events.Create(ctx, e))
			if domain.DistanceMeters(vancouver, p) <= 1000 {
				want[e.ID] = true
			}
		}

		q := &domain.EventQuery{Near: &domain.Near{Center: vancouver, RadiusMeters: 1000}}
		require.NoError(t, q.Normalize())
		hits, err := repos.Discovery.SearchEvents(ctx, q)
		require.NoError(t, err)

		require.Len(t, hits, len(want))
		prev := -1.0
		for _, h := range hits {
			assert.True(t, want[h.Event.ID])
			require.NotNil(t, h.Distance)
			assert.LessOrEqual(t, *h.Distance, 1000.0)
			assert.InDelta(t, domain.DistanceMeters(vancouver, h.Event.Location), *h.Distance, 0.5)
			assert.GreaterOrEqual(t, *h.Distance, prev)
			prev = *h.Distance
		}
	})
}

func TestDiscovery_KeywordIdempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		titled := newEvent("Jazz Festival", vancouver, baseTime)
		tagged := newEvent("Summer Sounds", vancouver, baseTime)
		tagged.Tags = []string{"jazz"}
		described := newEvent("Open Air", vancouver, baseTime)
		described.Description = "Late night jazz by the water"
		other := newEvent("Poetry Slam", vancouver, baseTime)
		other.Description = "Words"
		for _, e := range []*domain.Event{described, other, tagged, titled} {
			require.NoError(t, repos.Events.Create(ctx, e))
		}

		run := func() []string {
			q := &domain.EventQuery{Text: "jazz"}
			require.NoError(t, q.Normalize())
			hits, err := repos.Discovery.SearchEvents(ctx, q)
			require.NoError(t, err)
			ids := make([]string, len(hits))
			for i, h := range hits {
				ids[i] = h.Event.ID
			}
			return ids
		}

		first := run()
		assert.Equal(t, []string{titled.ID, tagged.ID, described.ID}, first)
		assert.Equal(t, first, run())
	})
}

func TestDiscovery_DetailFilter(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		adult := newEvent("Late Show", vancouver, baseTime)
		allAges := newEvent("Matinee", vancouver, baseTime)
		allAges.Details.InPerson.AgeRestriction = 0
		require.NoError(t, repos.Events.Create(ctx, adult))
		require.NoError(t, repos.Events.Create(ctx, allAges))

		pred, err := domain.EventDetailPredicate(domain.EventTypeInPerson, "ageRestriction", domain.OpGte, "18")
		require.NoError(t, err)
		q := &domain.EventQuery{EventType: domain.EventTypeInPerson, Details: []domain.DetailPredicate{pred}}
		require.NoError(t, q.Normalize())

		hits, err := repos.Discovery.SearchEvents(ctx, q)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, adult.ID, hits[0].Event.ID)
	})
}

func TestDiscovery_PaginationCoversAll(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		var want []string
		for i := 0; i < 7; i++ {
			// pairs share a start time so the id tie-break is exercised
			e := newEvent("Paged", offset(vancouver, float64(i*100), 0), baseTime.Add(time.Duration(i/2)*time.Hour))
			require.NoError(t, repos.Events.Create(ctx, e))
			want = append(want, e.ID)
		}

		for _, near := range []*domain.Near{nil, {Center: vancouver, RadiusMeters: 5000}} {
			var got []string
			cursor := ""
			for {
				q := &domain.EventQuery{Near: near, Limit: 3, Cursor: cursor}
				require.NoError(t, q.Normalize())
				hits, err := repos.Discovery.SearchEvents(ctx, q)
				require.NoError(t, err)
				page := domain.PageOf(hits, q.Limit, q.SortMode())
				for _, h := range page.Items {
					got = append(got, h.Event.ID)
				}
				if !page.HasMore {
					break
				}
				cursor = page.NextCursor
			}
			sort.Strings(got)
			expected := append([]string(nil), want...)
			sort.Strings(expected)
			assert.Equal(t, expected, got)
		}
	})
}

func TestDiscovery_Venues(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		near := newVenue("Harbour Green", offset(vancouver, 300, 0))
		far := newVenue("Burnaby Lake", offset(vancouver, 0, 9000))
		require.NoError(t, repos.Venues.Create(ctx, near))
		require.NoError(t, repos.Venues.Create(ctx, far))

		q := &domain.VenueQuery{Near: &domain.Near{Center: vancouver, RadiusMeters: 1000}}
		require.NoError(t, q.Normalize())
		hits, err := repos.Discovery.SearchVenues(ctx, q)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, near.ID, hits[0].Venue.ID)

		q = &domain.VenueQuery{Text: "lake"}
		require.NoError(t, q.Normalize())
		hits, err = repos.Discovery.SearchVenues(ctx, q)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, far.ID, hits[0].Venue.ID)
	})
}

func TestConcurrentReservations(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		e := newEvent("Rush", vancouver, baseTime)
		e.TicketTiers[0].Allocation = 5
		e.TicketTiers[0].Available = 5
		require.NoError(t, repos.Events.Create(ctx, e))

		const workers = 20
		var wg sync.WaitGroup
		var mu sync.Mutex
		success, soldOut := 0, 0
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := repos.Tx.WithTx(ctx, func(ctx context.Context) error {
					tier, err := repos.Tiers.GetForUpdate(ctx, e.ID, "GA")
					if err != nil {
						return err
					}
					if tier.Available <= 0 {
						return &domain.SoldOutError{EventID: e.ID, Tier: "GA"}
					}
					_, err = repos.Tiers.Reserve(ctx, tier.ID)
					return err
				})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					success++
				case domain.IsSoldOutError(err):
					soldOut++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 5, success)
		assert.Equal(t, workers-5, soldOut)
		tier := mustTier(t, repos, e.ID, "GA")
		assert.Equal(t, 5, tier.Sold)
		assert.Equal(t, 0, tier.Available)
	})
}
