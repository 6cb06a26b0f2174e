package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/pkg/telemetry"
)

// PostgresEventRepository implements EventRepository and TicketTierRepository using PostgreSQL
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// eventColumns are selected from events aliased as e
const eventColumns = `e.id, e.title, e.description, e.category, e.event_type,
	e.longitude, e.latitude, e.start_date, e.end_date, e.organizer_id,
	e.max_attendees, e.current_attendees, e.price, e.currency, e.is_free,
	e.status, e.tags, e.details, e.venue_id, e.venue_snapshot,
	e.total_tickets_sold, e.revenue, e.attendance_rate, e.review_count,
	e.average_rating, e.stats_updated_at, e.created_at, e.updated_at, e.deleted_at`

// scanEvent scans eventColumns followed by any extra destinations
func scanEvent(row pgx.Row, extra ...any) (*domain.Event, error) {
	e := &domain.Event{}
	var lng, lat float64
	var details, snapshot []byte

	dest := []any{
		&e.ID, &e.Title, &e.Description, &e.Category, &e.EventType,
		&lng, &lat, &e.StartDate, &e.EndDate, &e.OrganizerID,
		&e.MaxAttendees, &e.CurrentAttendees, &e.Price, &e.Currency, &e.IsFree,
		&e.Status, &e.Tags, &details, &e.VenueID, &snapshot,
		&e.Stats.TotalTicketsSold, &e.Stats.Revenue, &e.Stats.AttendanceRate, &e.Stats.ReviewCount,
		&e.Stats.AverageRating, &e.Stats.LastUpdated, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	e.Location = domain.NewPoint(lng, lat)
	d, err := domain.UnmarshalEventDetails(e.EventType, details)
	if err != nil {
		return nil, err
	}
	e.Details = d
	if len(snapshot) > 0 {
		e.Venue = &domain.VenueSnapshot{}
		if err := json.Unmarshal(snapshot, e.Venue); err != nil {
			return nil, fmt.Errorf("decode venue snapshot: %w", err)
		}
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return e, nil
}

// loadTiers attaches ticket tiers to events in one query
func loadTiers(ctx context.Context, q querier, events ...*domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	ids := make([]string, len(events))
	byID := make(map[string]*domain.Event, len(events))
	for i, e := range events {
		ids[i] = e.ID
		byID[e.ID] = e
		e.TicketTiers = []domain.TicketTier{}
	}

	rows, err := q.Query(ctx, `
		SELECT event_id, id, name, price, allocation, available, sold
		FROM ticket_tiers
		WHERE event_id = ANY($1::uuid[])
		ORDER BY event_id, position`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var eventID string
		var t domain.TicketTier
		if err := rows.Scan(&eventID, &t.ID, &t.Name, &t.Price, &t.Allocation, &t.Available, &t.Sold); err != nil {
			return err
		}
		if e, ok := byID[eventID]; ok {
			e.TicketTiers = append(e.TicketTiers, t)
		}
	}
	return rows.Err()
}

func insertTiers(ctx context.Context, q querier, eventID string, tiers []domain.TicketTier) error {
	for i := range tiers {
		t := &tiers[i]
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		_, err := q.Exec(ctx, `
			INSERT INTO ticket_tiers (id, event_id, position, name, price, allocation, available, sold)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			t.ID, eventID, i, t.Name, t.Price, t.Allocation, t.Available, t.Sold,
		)
		if err != nil {
			return translate(err, "ticket tier", t.ID, eventID+"/"+t.Name)
		}
	}
	return nil
}

func encodeEventJSON(e *domain.Event) (details, snapshot []byte, err error) {
	details, err = e.Details.MarshalVariant()
	if err != nil {
		return nil, nil, err
	}
	if e.Venue != nil {
		snapshot, err = json.Marshal(e.Venue)
		if err != nil {
			return nil, nil, err
		}
	}
	return details, snapshot, nil
}

// Create creates a new event and its tiers
func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.event.create")
	defer func() { telemetry.EndSpan(span, err) }()

	details, snapshot, err := encodeEventJSON(event)
	if err != nil {
		return err
	}

	return withTx(ctx, r.pool, func(ctx context.Context) error {
		q := conn(ctx, r.pool)
		_, err := q.Exec(ctx, `
			INSERT INTO events (
				id, title, description, category, event_type, longitude, latitude,
				start_date, end_date, organizer_id, max_attendees, current_attendees,
				price, currency, is_free, status, tags, details, venue_id, venue_snapshot,
				created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
			)`,
			event.ID, event.Title, event.Description, event.Category, event.EventType,
			event.Location.Lng(), event.Location.Lat(), event.StartDate, event.EndDate,
			event.OrganizerID, event.MaxAttendees, event.CurrentAttendees,
			event.Price, event.Currency, event.IsFree, event.Status, nonNil(event.Tags),
			details, event.VenueID, snapshot, event.CreatedAt, event.UpdatedAt,
		)
		if err != nil {
			return translate(err, "event", event.ID, event.ID)
		}
		return insertTiers(ctx, q, event.ID, event.TicketTiers)
	})
}

// GetByID retrieves a live event by ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (_ *domain.Event, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.event.get")
	defer func() { telemetry.EndSpan(span, err) }()

	if !validID(id) {
		return nil, domain.NewNotFoundError("event", id)
	}
	q := conn(ctx, r.pool)
	query := fmt.Sprintf(`SELECT %s FROM events e WHERE e.id = $1 AND e.deleted_at IS NULL`, eventColumns)
	event, err := scanEvent(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err, "event", id, "")
	}
	if err := loadTiers(ctx, q, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Update updates the organizer-owned fields of an event
func (r *PostgresEventRepository) Update(ctx context.Context, event *domain.Event) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.event.update")
	defer func() { telemetry.EndSpan(span, err) }()

	details, snapshot, err := encodeEventJSON(event)
	if err != nil {
		return err
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE events SET
			title = $2, description = $3, category = $4, event_type = $5,
			longitude = $6, latitude = $7, start_date = $8, end_date = $9,
			organizer_id = $10, max_attendees = $11, price = $12, currency = $13,
			is_free = $14, status = $15, tags = $16, details = $17,
			venue_id = $18, venue_snapshot = $19, updated_at = $20
		WHERE id = $1 AND deleted_at IS NULL`,
		event.ID, event.Title, event.Description, event.Category, event.EventType,
		event.Location.Lng(), event.Location.Lat(), event.StartDate, event.EndDate,
		event.OrganizerID, event.MaxAttendees, event.Price, event.Currency,
		event.IsFree, event.Status, nonNil(event.Tags), details,
		event.VenueID, snapshot, event.UpdatedAt,
	)
	if err != nil {
		return translate(err, "event", event.ID, "")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("event", event.ID)
	}
	return nil
}

// ReplaceTiers swaps the tiers of an event that has no sales
func (r *PostgresEventRepository) ReplaceTiers(ctx context.Context, eventID string, tiers []domain.TicketTier) error {
	return withTx(ctx, r.pool, func(ctx context.Context) error {
		q := conn(ctx, r.pool)
		var sold int
		err := q.QueryRow(ctx, `
			SELECT COALESCE(SUM(sold), 0) FROM ticket_tiers WHERE event_id = $1`, eventID).Scan(&sold)
		if err != nil {
			return translate(err, "event", eventID, "")
		}
		if sold > 0 {
			return domain.NewValidationError("ticketTiers", "cannot replace tiers after tickets were sold")
		}
		if _, err := q.Exec(ctx, `DELETE FROM ticket_tiers WHERE event_id = $1`, eventID); err != nil {
			return err
		}
		return insertTiers(ctx, q, eventID, tiers)
	})
}

// SoftDelete marks an event deleted and cancelled
func (r *PostgresEventRepository) SoftDelete(ctx context.Context, id string, at time.Time) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.event.delete")
	defer func() { telemetry.EndSpan(span, err) }()

	if !validID(id) {
		return domain.NewNotFoundError("event", id)
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE events
		SET deleted_at = $2, updated_at = $2, status = $3
		WHERE id = $1 AND deleted_at IS NULL`,
		id, at, domain.EventStatusCancelled,
	)
	if err != nil {
		return translate(err, "event", id, "")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("event", id)
	}
	return nil
}

// ApplyTicketSale records one sold ticket on the event counters
func (r *PostgresEventRepository) ApplyTicketSale(ctx context.Context, eventID string, price float64, at time.Time) error {
	return r.admit(ctx, eventID, 1, price, at)
}

// AdmitAttendee records one attendee without a ticket sale
func (r *PostgresEventRepository) AdmitAttendee(ctx context.Context, eventID string, at time.Time) error {
	return r.admit(ctx, eventID, 0, 0, at)
}

func (r *PostgresEventRepository) admit(ctx context.Context, eventID string, sold int, price float64, at time.Time) error {
	q := conn(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE events SET
			total_tickets_sold = total_tickets_sold + $2,
			revenue = round((revenue + $3)::numeric, 2)::float8,
			current_attendees = current_attendees + 1,
			attendance_rate = CASE WHEN max_attendees > 0
				THEN round(((current_attendees + 1)::numeric / max_attendees) * 100, 2)::float8
				ELSE 0 END,
			stats_updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL
			AND (max_attendees = 0 OR current_attendees < max_attendees)`,
		eventID, sold, price, at,
	)
	if err != nil {
		return translate(err, "event", eventID, "")
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1 AND deleted_at IS NULL)`, eventID).Scan(&exists); err != nil {
		return translate(err, "event", eventID, "")
	}
	if !exists {
		return domain.NewNotFoundError("event", eventID)
	}
	return &domain.SoldOutError{EventID: eventID}
}

// GetForUpdate reads and row-locks a tier inside the current transaction
func (r *PostgresEventRepository) GetForUpdate(ctx context.Context, eventID, name string) (*domain.TicketTier, error) {
	if !validID(eventID) {
		return nil, domain.NewNotFoundError("event", eventID)
	}
	var t domain.TicketTier
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT t.id, t.name, t.price, t.allocation, t.available, t.sold
		FROM ticket_tiers t
		JOIN events e ON e.id = t.event_id AND e.deleted_at IS NULL
		WHERE t.event_id = $1 AND t.name = $2
		FOR UPDATE OF t`,
		eventID, name,
	).Scan(&t.ID, &t.Name, &t.Price, &t.Allocation, &t.Available, &t.Sold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("ticket tier", eventID+"/"+name)
		}
		return nil, translate(err, "ticket tier", eventID+"/"+name, "")
	}
	return &t, nil
}

// Reserve moves one ticket from available to sold
func (r *PostgresEventRepository) Reserve(ctx context.Context, tierID string) (*domain.TicketTier, error) {
	var t domain.TicketTier
	var eventID string
	err := conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE ticket_tiers
		SET available = available - 1, sold = sold + 1
		WHERE id = $1 AND available > 0
		RETURNING id, event_id, name, price, allocation, available, sold`,
		tierID,
	).Scan(&t.ID, &eventID, &t.Name, &t.Price, &t.Allocation, &t.Available, &t.Sold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.SoldOutError{Tier: tierID}
		}
		return nil, translate(err, "ticket tier", tierID, "")
	}
	return &t, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// nonNil keeps NOT NULL array columns from receiving NULL
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// checkCursor rejects cursors whose id cannot address a row
func checkCursor(after *domain.Cursor) error {
	if after != nil && !validID(after.ID) {
		return domain.NewInvalidQueryError("malformed cursor")
	}
	return nil
}
