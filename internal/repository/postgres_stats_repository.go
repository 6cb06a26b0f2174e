package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/pkg/telemetry"
)

// PostgresStatsRepository implements StatsRepository using PostgreSQL.
// Every recompute reads its source rows, so repeated runs converge on the same values.
type PostgresStatsRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresStatsRepository creates a new PostgresStatsRepository
func NewPostgresStatsRepository(pool *pgxpool.Pool) *PostgresStatsRepository {
	return &PostgresStatsRepository{pool: pool}
}

// RefreshVenueSnapshot copies the venue's cached fields onto every live event referencing it
func (r *PostgresStatsRepository) RefreshVenueSnapshot(ctx context.Context, venueID string, at time.Time) (_ []string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.stats.venue_snapshot")
	defer func() { telemetry.EndSpan(span, err) }()

	if !validID(venueID) {
		return nil, domain.NewNotFoundError("venue", venueID)
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		UPDATE events e SET venue_snapshot = jsonb_build_object(
			'name', v.name,
			'city', COALESCE(v.address->>'city', ''),
			'capacity', v.capacity,
			'venueType', v.venue_type,
			'syncedAt', $2::timestamptz
		)
		FROM venues v
		WHERE v.id = $1 AND e.venue_id = v.id AND e.deleted_at IS NULL
		RETURNING e.id`,
		venueID, at,
	)
	if err != nil {
		return nil, translate(err, "venue", venueID, "")
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecomputeEventReviewStats sets reviewCount and averageRating from live reviews
func (r *PostgresStatsRepository) RecomputeEventReviewStats(ctx context.Context, eventID string, at time.Time) error {
	return r.exec(ctx, "repo.stats.event_reviews", "event", eventID, `
		UPDATE events SET review_count = s.cnt, average_rating = s.avg, stats_updated_at = $2
		FROM (
			SELECT count(*)::int AS cnt, COALESCE(round(avg(rating)::numeric, 1), 0)::float8 AS avg
			FROM reviews WHERE event_id = $1 AND orphaned_at IS NULL
		) s
		WHERE events.id = $1 AND events.deleted_at IS NULL`, at)
}

// RecomputeVenueReviewStats sets reviewCount and rating from live reviews
func (r *PostgresStatsRepository) RecomputeVenueReviewStats(ctx context.Context, venueID string, at time.Time) error {
	return r.exec(ctx, "repo.stats.venue_reviews", "venue", venueID, `
		UPDATE venues SET review_count = s.cnt, rating = s.avg, stats_updated_at = $2
		FROM (
			SELECT count(*)::int AS cnt, COALESCE(round(avg(rating)::numeric, 1), 0)::float8 AS avg
			FROM reviews WHERE venue_id = $1 AND orphaned_at IS NULL
		) s
		WHERE venues.id = $1`, at)
}

// RecomputeEventAttendance derives ticket totals from tiers and attendance from checkins
func (r *PostgresStatsRepository) RecomputeEventAttendance(ctx context.Context, eventID string, at time.Time) error {
	return r.exec(ctx, "repo.stats.event_attendance", "event", eventID, `
		UPDATE events e SET
			total_tickets_sold = t.sold,
			revenue = t.revenue,
			current_attendees = c.cnt,
			attendance_rate = CASE WHEN e.max_attendees > 0
				THEN round((c.cnt::numeric / e.max_attendees) * 100, 2)::float8
				ELSE 0 END,
			stats_updated_at = $2
		FROM (
			SELECT COALESCE(sum(sold), 0)::int AS sold,
				COALESCE(round(sum(sold * price)::numeric, 2), 0)::float8 AS revenue
			FROM ticket_tiers WHERE event_id = $1
		) t, (
			SELECT count(*)::int AS cnt FROM checkins WHERE event_id = $1 AND orphaned_at IS NULL
		) c
		WHERE e.id = $1 AND e.deleted_at IS NULL`, at)
}

// RecomputeVenueHostingStats counts hosted and upcoming events and checkins at the venue
func (r *PostgresStatsRepository) RecomputeVenueHostingStats(ctx context.Context, venueID string, at time.Time) error {
	return r.exec(ctx, "repo.stats.venue_hosting", "venue", venueID, `
		UPDATE venues v SET
			events_hosted = h.hosted,
			upcoming_events = h.upcoming,
			total_checkins = c.cnt,
			stats_updated_at = $2
		FROM (
			SELECT count(*) FILTER (WHERE status <> 'cancelled')::int AS hosted,
				count(*) FILTER (WHERE status = 'published' AND start_date > $2)::int AS upcoming
			FROM events WHERE venue_id = $1 AND deleted_at IS NULL
		) h, (
			SELECT count(*)::int AS cnt FROM checkins WHERE venue_id = $1 AND orphaned_at IS NULL
		) c
		WHERE v.id = $1`, at)
}

func (r *PostgresStatsRepository) exec(ctx context.Context, spanName, entity, id, sql string, at time.Time) (err error) {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer func() { telemetry.EndSpan(span, err) }()

	if !validID(id) {
		return domain.NewNotFoundError(entity, id)
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, sql, id, at)
	if err != nil {
		return translate(err, entity, id, "")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError(entity, id)
	}
	return nil
}

// ListEventIDs returns every live event id
func (r *PostgresStatsRepository) ListEventIDs(ctx context.Context) ([]string, error) {
	return r.ids(ctx, `SELECT id FROM events WHERE deleted_at IS NULL ORDER BY id`)
}

// ListVenueIDs returns every venue id
func (r *PostgresStatsRepository) ListVenueIDs(ctx context.Context) ([]string, error) {
	return r.ids(ctx, `SELECT id FROM venues ORDER BY id`)
}

func (r *PostgresStatsRepository) ids(ctx context.Context, sql string) ([]string, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
