package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/pkg/telemetry"
)

// PostgresVenueRepository implements VenueRepository using PostgreSQL
type PostgresVenueRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresVenueRepository creates a new PostgresVenueRepository
func NewPostgresVenueRepository(pool *pgxpool.Pool) *PostgresVenueRepository {
	return &PostgresVenueRepository{pool: pool}
}

const venueColumns = `v.id, v.name, v.venue_type, v.longitude, v.latitude, v.address,
	v.capacity, v.amenities, v.contact, v.pricing, v.availability, v.rating,
	v.review_count, v.details, v.events_hosted, v.upcoming_events, v.total_checkins,
	v.stats_updated_at, v.created_at, v.updated_at`

func scanVenue(row pgx.Row, extra ...any) (*domain.Venue, error) {
	v := &domain.Venue{}
	var lng, lat float64
	var address, contact, pricing, availability, details []byte

	dest := []any{
		&v.ID, &v.Name, &v.VenueType, &lng, &lat, &address,
		&v.Capacity, &v.Amenities, &contact, &pricing, &availability, &v.Rating,
		&v.ReviewCount, &details, &v.Stats.EventsHosted, &v.Stats.UpcomingEvents, &v.Stats.TotalCheckins,
		&v.Stats.LastUpdated, &v.CreatedAt, &v.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	v.Location = domain.NewPoint(lng, lat)
	for _, f := range []struct {
		raw []byte
		dst any
	}{
		{address, &v.Address},
		{contact, &v.Contact},
		{pricing, &v.Pricing},
		{availability, &v.Availability},
	} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("decode venue %s: %w", v.ID, err)
		}
	}
	d, err := domain.UnmarshalVenueDetails(v.VenueType, details)
	if err != nil {
		return nil, err
	}
	v.Details = d
	if v.Amenities == nil {
		v.Amenities = []string{}
	}
	if v.Availability == nil {
		v.Availability = []domain.AvailabilityWindow{}
	}
	return v, nil
}

type venueJSON struct {
	address, contact, pricing, availability, details []byte
}

func encodeVenueJSON(v *domain.Venue) (*venueJSON, error) {
	var out venueJSON
	var err error
	if out.address, err = json.Marshal(v.Address); err != nil {
		return nil, err
	}
	if out.contact, err = json.Marshal(v.Contact); err != nil {
		return nil, err
	}
	if out.pricing, err = json.Marshal(v.Pricing); err != nil {
		return nil, err
	}
	windows := v.Availability
	if windows == nil {
		windows = []domain.AvailabilityWindow{}
	}
	if out.availability, err = json.Marshal(windows); err != nil {
		return nil, err
	}
	if out.details, err = v.Details.MarshalVariant(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create creates a new venue
func (r *PostgresVenueRepository) Create(ctx context.Context, venue *domain.Venue) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.venue.create")
	defer func() { telemetry.EndSpan(span, err) }()

	j, err := encodeVenueJSON(venue)
	if err != nil {
		return err
	}
	_, err = conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO venues (
			id, name, venue_type, longitude, latitude, address, capacity, amenities,
			contact, pricing, availability, details, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		venue.ID, venue.Name, venue.VenueType, venue.Location.Lng(), venue.Location.Lat(),
		j.address, venue.Capacity, nonNil(venue.Amenities), j.contact, j.pricing,
		j.availability, j.details, venue.CreatedAt, venue.UpdatedAt,
	)
	return translate(err, "venue", venue.ID, venue.ID)
}

// GetByID retrieves a venue by ID
func (r *PostgresVenueRepository) GetByID(ctx context.Context, id string) (_ *domain.Venue, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.venue.get")
	defer func() { telemetry.EndSpan(span, err) }()

	if !validID(id) {
		return nil, domain.NewNotFoundError("venue", id)
	}
	query := fmt.Sprintf(`SELECT %s FROM venues v WHERE v.id = $1`, venueColumns)
	venue, err := scanVenue(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err, "venue", id, "")
	}
	return venue, nil
}

// Update updates the owner-maintained fields of a venue
func (r *PostgresVenueRepository) Update(ctx context.Context, venue *domain.Venue) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.venue.update")
	defer func() { telemetry.EndSpan(span, err) }()

	j, err := encodeVenueJSON(venue)
	if err != nil {
		return err
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE venues SET
			name = $2, venue_type = $3, longitude = $4, latitude = $5, address = $6,
			capacity = $7, amenities = $8, contact = $9, pricing = $10,
			availability = $11, details = $12, updated_at = $13
		WHERE id = $1`,
		venue.ID, venue.Name, venue.VenueType, venue.Location.Lng(), venue.Location.Lat(),
		j.address, venue.Capacity, nonNil(venue.Amenities), j.contact, j.pricing,
		j.availability, j.details, venue.UpdatedAt,
	)
	if err != nil {
		return translate(err, "venue", venue.ID, "")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("venue", venue.ID)
	}
	return nil
}

// Delete removes a venue. Events keep their venue_id and snapshot.
func (r *PostgresVenueRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.venue.delete")
	defer func() { telemetry.EndSpan(span, err) }()

	if !validID(id) {
		return domain.NewNotFoundError("venue", id)
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM venues WHERE id = $1`, id)
	if err != nil {
		return translate(err, "venue", id, "")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("venue", id)
	}
	return nil
}
