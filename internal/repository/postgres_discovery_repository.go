package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/pkg/telemetry"
)

// rankWeights orders ts_rank weights as {D, C, B, A}
const rankWeights = `'{0, 0.1, 0.4, 1.0}'`

// PostgresDiscoveryRepository implements DiscoveryRepository using PostgreSQL
type PostgresDiscoveryRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresDiscoveryRepository creates a new PostgresDiscoveryRepository
func NewPostgresDiscoveryRepository(pool *pgxpool.Pool) *PostgresDiscoveryRepository {
	return &PostgresDiscoveryRepository{pool: pool}
}

// queryBuilder accumulates numbered arguments and WHERE conditions
type queryBuilder struct {
	args  []any
	where []string
}

func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) and(format string, a ...any) {
	b.where = append(b.where, fmt.Sprintf(format, a...))
}

func (b *queryBuilder) clause() string {
	if len(b.where) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.where, " AND ")
}

// haversineSQL is the great-circle distance in meters from (lng, lat) to alias.longitude/latitude
func haversineSQL(alias, lng, lat string) string {
	return fmt.Sprintf(`(2 * %v * asin(least(1, sqrt(
		power(sin(radians(%[2]s.latitude - %[4]s) / 2), 2) +
		cos(radians(%[4]s)) * cos(radians(%[2]s.latitude)) *
		power(sin(radians(%[2]s.longitude - %[3]s) / 2), 2)))))`,
		domain.EarthRadiusMeters, alias, lng, lat)
}

// boxSQL adds the bounding-box prefilter served by the (latitude, longitude) index
func boxSQL(b *queryBuilder, alias string, near *domain.Near) {
	box := domain.BoundingBoxFor(near.Center, near.RadiusMeters)
	b.and("%s.latitude BETWEEN %s AND %s", alias, b.arg(box.MinLat), b.arg(box.MaxLat))
	if !box.WrapsLng {
		b.and("%s.longitude BETWEEN %s AND %s", alias, b.arg(box.MinLng), b.arg(box.MaxLng))
	}
}

// detailSQL renders a whitelisted detail predicate against alias.details
func detailSQL(b *queryBuilder, alias string, p domain.DetailPredicate) string {
	// field names come from the per-type registry, never from raw input
	field := strings.ReplaceAll(p.Field, "'", "")
	switch p.Kind {
	case domain.KindNumber:
		return fmt.Sprintf("(%s.details->>'%s')::numeric %s %s", alias, field, p.Op.SQL(), b.arg(p.Value))
	case domain.KindBool:
		return fmt.Sprintf("(%s.details->>'%s')::boolean = %s", alias, field, b.arg(p.Value))
	default:
		return fmt.Sprintf("%s.details->>'%s' = %s", alias, field, b.arg(p.Value))
	}
}

// keysetSQL renders the resume condition for a sort mode over the derived columns
func keysetSQL(b *queryBuilder, alias, timeColumn string, after *domain.Cursor) string {
	switch after.Mode {
	case domain.SortByDistance:
		d := b.arg(after.Distance)
		return fmt.Sprintf("(%[1]s.distance > %[2]s OR (%[1]s.distance = %[2]s AND %[1]s.id > %[3]s))",
			alias, d, b.arg(after.ID))
	case domain.SortByScore:
		s, t := b.arg(after.Score), b.arg(after.Time)
		return fmt.Sprintf("(%[1]s.score < %[2]s OR (%[1]s.score = %[2]s AND (%[1]s.%[3]s < %[4]s OR (%[1]s.%[3]s = %[4]s AND %[1]s.id > %[5]s))))",
			alias, s, timeColumn, t, b.arg(after.ID))
	default:
		return fmt.Sprintf("(%[1]s.%[2]s, %[1]s.id) > (%[3]s, %[4]s)", alias, timeColumn, b.arg(after.Time), b.arg(after.ID))
	}
}

func orderSQL(alias, timeColumn string, mode domain.SortMode) string {
	switch mode {
	case domain.SortByDistance:
		return fmt.Sprintf("%[1]s.distance ASC, %[1]s.id ASC", alias)
	case domain.SortByScore:
		return fmt.Sprintf("%[1]s.score DESC, %[1]s.%[2]s DESC, %[1]s.id ASC", alias, timeColumn)
	default:
		return fmt.Sprintf("%[1]s.%[2]s ASC, %[1]s.id ASC", alias, timeColumn)
	}
}

// SearchEvents runs a composed geo, keyword, discriminator and window query over live events
func (r *PostgresDiscoveryRepository) SearchEvents(ctx context.Context, q *domain.EventQuery) (_ []domain.EventHit, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.discovery.events")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := checkCursor(q.After); err != nil {
		return nil, err
	}

	inner := &queryBuilder{}
	inner.and("e.deleted_at IS NULL")
	if q.EventType != "" {
		inner.and("e.event_type = %s", inner.arg(q.EventType))
		for _, p := range q.Details {
			inner.and("%s", detailSQL(inner, "e", p))
		}
	}

	distance, score := "NULL::float8", "NULL::float8"
	if q.Near != nil {
		distance = haversineSQL("e", inner.arg(q.Near.Center.Lng()), inner.arg(q.Near.Center.Lat()))
		boxSQL(inner, "e", q.Near)
	}
	if q.Text != "" {
		tsq := fmt.Sprintf("websearch_to_tsquery('english', %s)", inner.arg(q.Text))
		score = fmt.Sprintf("ts_rank(%s, e.search_vector, %s)::float8", rankWeights, tsq)
		inner.and("e.search_vector @@ %s", tsq)
	}
	if len(q.Categories) > 0 {
		cats := make([]string, len(q.Categories))
		for i, c := range q.Categories {
			cats[i] = strings.ToLower(c)
		}
		inner.and("lower(e.category) = ANY(%s::text[])", inner.arg(cats))
	}
	if q.Status != "" {
		inner.and("e.status = %s", inner.arg(q.Status))
	}
	if q.StartAfter != nil {
		inner.and("e.start_date >= %s", inner.arg(*q.StartAfter))
	}
	if q.StartBefore != nil {
		inner.and("e.start_date <= %s", inner.arg(*q.StartBefore))
	}
	if q.MinCapacity > 0 {
		inner.and("e.max_attendees >= %s", inner.arg(q.MinCapacity))
	}

	outer := &queryBuilder{args: inner.args}
	if q.Near != nil {
		outer.and("s.distance <= %s", outer.arg(q.Near.RadiusMeters))
	}
	mode := q.SortMode()
	if q.After != nil {
		outer.and("%s", keysetSQL(outer, "s", "start_date", q.After))
	}

	sql := fmt.Sprintf(`
		SELECT %s, s.distance, s.score
		FROM (
			SELECT e.*, %s AS distance, %s AS score
			FROM events e
			%s
		) s
		%s
		ORDER BY %s
		LIMIT %d`,
		strings.ReplaceAll(eventColumns, "e.", "s."), distance, score, inner.clause(),
		outer.clause(), orderSQL("s", "start_date", mode), q.Limit+1)

	c := conn(ctx, r.pool)
	rows, err := c.Query(ctx, sql, outer.args...)
	if err != nil {
		return nil, translate(err, "event", "", "")
	}
	defer rows.Close()

	hits := []domain.EventHit{}
	events := []*domain.Event{}
	for rows.Next() {
		var dist, sc *float64
		e, err := scanEvent(rows, &dist, &sc)
		if err != nil {
			return nil, err
		}
		hits = append(hits, domain.EventHit{Event: e, Distance: dist, Score: sc})
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := loadTiers(ctx, c, events...); err != nil {
		return nil, err
	}
	return hits, nil
}

// SearchVenues runs a composed geo, keyword and discriminator query over venues
func (r *PostgresDiscoveryRepository) SearchVenues(ctx context.Context, q *domain.VenueQuery) (_ []domain.VenueHit, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.discovery.venues")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := checkCursor(q.After); err != nil {
		return nil, err
	}

	inner := &queryBuilder{}
	if q.VenueType != "" {
		inner.and("v.venue_type = %s", inner.arg(q.VenueType))
		for _, p := range q.Details {
			inner.and("%s", detailSQL(inner, "v", p))
		}
	}

	distance, score := "NULL::float8", "NULL::float8"
	if q.Near != nil {
		distance = haversineSQL("v", inner.arg(q.Near.Center.Lng()), inner.arg(q.Near.Center.Lat()))
		boxSQL(inner, "v", q.Near)
	}
	if q.Text != "" {
		tsq := fmt.Sprintf("websearch_to_tsquery('english', %s)", inner.arg(q.Text))
		score = fmt.Sprintf("ts_rank(%s, v.search_vector, %s)::float8", rankWeights, tsq)
		inner.and("v.search_vector @@ %s", tsq)
	}
	if q.City != "" {
		inner.and("lower(v.address->>'city') = lower(%s)", inner.arg(q.City))
	}
	if q.MinCapacity > 0 {
		inner.and("v.capacity >= %s", inner.arg(q.MinCapacity))
	}

	outer := &queryBuilder{args: inner.args}
	if q.Near != nil {
		outer.and("s.distance <= %s", outer.arg(q.Near.RadiusMeters))
	}
	mode := q.SortMode()
	if q.After != nil {
		outer.and("%s", keysetSQL(outer, "s", "created_at", q.After))
	}

	sql := fmt.Sprintf(`
		SELECT %s, s.distance, s.score
		FROM (
			SELECT v.*, %s AS distance, %s AS score
			FROM venues v
			%s
		) s
		%s
		ORDER BY %s
		LIMIT %d`,
		strings.ReplaceAll(venueColumns, "v.", "s."), distance, score, inner.clause(),
		outer.clause(), orderSQL("s", "created_at", mode), q.Limit+1)

	rows, err := conn(ctx, r.pool).Query(ctx, sql, outer.args...)
	if err != nil {
		return nil, translate(err, "venue", "", "")
	}
	defer rows.Close()

	hits := []domain.VenueHit{}
	for rows.Next() {
		var dist, sc *float64
		v, err := scanVenue(rows, &dist, &sc)
		if err != nil {
			return nil, err
		}
		hits = append(hits, domain.VenueHit{Venue: v, Distance: dist, Score: sc})
	}
	return hits, rows.Err()
}
