package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/pkg/telemetry"
)

// PostgresCheckinRepository implements CheckinRepository using PostgreSQL
type PostgresCheckinRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCheckinRepository creates a new PostgresCheckinRepository
func NewPostgresCheckinRepository(pool *pgxpool.Pool) *PostgresCheckinRepository {
	return &PostgresCheckinRepository{pool: pool}
}

const checkinColumns = `id, event_id, user_id, venue_id, check_in_time, method, ticket_tier,
	longitude, latitude, metadata, created_at, orphaned_at`

func scanCheckin(row pgx.Row) (*domain.Checkin, error) {
	c := &domain.Checkin{}
	var lng, lat *float64
	var metadata []byte
	if err := row.Scan(&c.ID, &c.EventID, &c.UserID, &c.VenueID, &c.CheckInTime, &c.Method, &c.TicketTier,
		&lng, &lat, &metadata, &c.CreatedAt, &c.OrphanedAt); err != nil {
		return nil, err
	}
	if lng != nil && lat != nil {
		p := domain.NewPoint(*lng, *lat)
		c.Location = &p
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("decode checkin metadata: %w", err)
		}
	}
	return c, nil
}

// Create inserts a checkin. The (event_id, user_id) unique index rejects a second checkin.
func (r *PostgresCheckinRepository) Create(ctx context.Context, checkin *domain.Checkin) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.checkin.create")
	defer func() { telemetry.EndSpan(span, err) }()

	metadata, err := json.Marshal(checkin.Metadata)
	if err != nil {
		return err
	}
	var lng, lat *float64
	if checkin.Location != nil {
		x, y := checkin.Location.Lng(), checkin.Location.Lat()
		lng, lat = &x, &y
	}
	_, err = conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO checkins (
			id, event_id, user_id, venue_id, check_in_time, method, ticket_tier,
			longitude, latitude, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		checkin.ID, checkin.EventID, checkin.UserID, checkin.VenueID, checkin.CheckInTime,
		checkin.Method, checkin.TicketTier, lng, lat, metadata, checkin.CreatedAt,
	)
	return translate(err, "checkin", checkin.ID, checkin.EventID+"/"+checkin.UserID)
}

// GetByID retrieves a live checkin
func (r *PostgresCheckinRepository) GetByID(ctx context.Context, id string) (_ *domain.Checkin, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.checkin.get")
	defer func() { telemetry.EndSpan(span, err) }()

	if !validID(id) {
		return nil, domain.NewNotFoundError("checkin", id)
	}
	c, err := scanCheckin(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+checkinColumns+` FROM checkins WHERE id = $1 AND orphaned_at IS NULL`, id))
	if err != nil {
		return nil, translate(err, "checkin", id, "")
	}
	return c, nil
}

// Delete removes a checkin
func (r *PostgresCheckinRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.checkin.delete")
	defer func() { telemetry.EndSpan(span, err) }()

	if !validID(id) {
		return domain.NewNotFoundError("checkin", id)
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM checkins WHERE id = $1`, id)
	if err != nil {
		return translate(err, "checkin", id, "")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("checkin", id)
	}
	return nil
}

func (r *PostgresCheckinRepository) ListByEvent(ctx context.Context, eventID string, after *domain.Cursor, limit int) ([]*domain.Checkin, error) {
	return r.list(ctx, "event_id", eventID, after, limit)
}

func (r *PostgresCheckinRepository) ListByUser(ctx context.Context, userID string, after *domain.Cursor, limit int) ([]*domain.Checkin, error) {
	return r.list(ctx, "user_id", userID, after, limit)
}

func (r *PostgresCheckinRepository) list(ctx context.Context, column, id string, after *domain.Cursor, limit int) ([]*domain.Checkin, error) {
	if err := checkCursor(after); err != nil {
		return nil, err
	}
	if !validID(id) {
		return []*domain.Checkin{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM checkins WHERE %s = $1 AND orphaned_at IS NULL`, checkinColumns, column)
	args := []any{id}
	if after != nil {
		query += ` AND (check_in_time, id) > ($2, $3)`
		args = append(args, after.Time, after.ID)
	}
	query += fmt.Sprintf(` ORDER BY check_in_time, id LIMIT %d`, limit+1)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "checkin", "", "")
	}
	defer rows.Close()

	out := []*domain.Checkin{}
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresCheckinRepository) OrphanByEvent(ctx context.Context, eventID string, at time.Time) (int64, error) {
	return r.orphan(ctx, "event_id", eventID, at)
}

func (r *PostgresCheckinRepository) OrphanByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	return r.orphan(ctx, "user_id", userID, at)
}

func (r *PostgresCheckinRepository) orphan(ctx context.Context, column, id string, at time.Time) (int64, error) {
	if !validID(id) {
		return 0, nil
	}
	tag, err := conn(ctx, r.pool).Exec(ctx,
		fmt.Sprintf(`UPDATE checkins SET orphaned_at = $2 WHERE %s = $1 AND orphaned_at IS NULL`, column),
		id, at,
	)
	if err != nil {
		return 0, translate(err, "checkin", id, "")
	}
	return tag.RowsAffected(), nil
}
