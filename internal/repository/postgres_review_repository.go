package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/pkg/telemetry"
)

// PostgresReviewRepository implements ReviewRepository using PostgreSQL
type PostgresReviewRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresReviewRepository creates a new PostgresReviewRepository
func NewPostgresReviewRepository(pool *pgxpool.Pool) *PostgresReviewRepository {
	return &PostgresReviewRepository{pool: pool}
}

const reviewColumns = `id, event_id, venue_id, user_id, rating, comment, created_at, updated_at, orphaned_at`

func scanReview(row pgx.Row) (*domain.Review, error) {
	r := &domain.Review{}
	var rating int16
	if err := row.Scan(&r.ID, &r.EventID, &r.VenueID, &r.UserID, &rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt, &r.OrphanedAt); err != nil {
		return nil, err
	}
	r.Rating = int(rating)
	return r, nil
}

// Create creates a new review
func (r *PostgresReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.review.create")
	defer func() { telemetry.EndSpan(span, err) }()

	_, err = conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO reviews (id, event_id, venue_id, user_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		review.ID, review.EventID, review.VenueID, review.UserID, review.Rating,
		review.Comment, review.CreatedAt, review.UpdatedAt,
	)
	return translate(err, "review", review.ID, review.ID)
}

// GetByID retrieves a live review by ID
func (r *PostgresReviewRepository) GetByID(ctx context.Context, id string) (_ *domain.Review, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.review.get")
	defer func() { telemetry.EndSpan(span, err) }()

	if !validID(id) {
		return nil, domain.NewNotFoundError("review", id)
	}
	review, err := scanReview(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = $1 AND orphaned_at IS NULL`, id))
	if err != nil {
		return nil, translate(err, "review", id, "")
	}
	return review, nil
}

// Update writes rating and comment
func (r *PostgresReviewRepository) Update(ctx context.Context, review *domain.Review) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.review.update")
	defer func() { telemetry.EndSpan(span, err) }()

	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE reviews SET rating = $2, comment = $3, updated_at = $4
		WHERE id = $1 AND orphaned_at IS NULL`,
		review.ID, review.Rating, review.Comment, review.UpdatedAt,
	)
	if err != nil {
		return translate(err, "review", review.ID, "")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("review", review.ID)
	}
	return nil
}

// Delete removes a review
func (r *PostgresReviewRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.review.delete")
	defer func() { telemetry.EndSpan(span, err) }()

	if !validID(id) {
		return domain.NewNotFoundError("review", id)
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return translate(err, "review", id, "")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("review", id)
	}
	return nil
}

// ListByTarget pages live reviews of an event or venue by (created_at, id)
func (r *PostgresReviewRepository) ListByTarget(ctx context.Context, target domain.ReviewTarget, targetID string, after *domain.Cursor, limit int) ([]*domain.Review, error) {
	column := "event_id"
	if target == domain.ReviewTargetVenue {
		column = "venue_id"
	}
	return r.listBy(ctx, column, targetID, after, limit)
}

// ListByUser pages the live reviews written by a user
func (r *PostgresReviewRepository) ListByUser(ctx context.Context, userID string, after *domain.Cursor, limit int) ([]*domain.Review, error) {
	return r.listBy(ctx, "user_id", userID, after, limit)
}

func (r *PostgresReviewRepository) listBy(ctx context.Context, column, id string, after *domain.Cursor, limit int) ([]*domain.Review, error) {
	if err := checkCursor(after); err != nil {
		return nil, err
	}
	if !validID(id) {
		return []*domain.Review{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE %s = $1 AND orphaned_at IS NULL`, reviewColumns, column)
	args := []any{id}
	if after != nil {
		query += ` AND (created_at, id) > ($2, $3)`
		args = append(args, after.Time, after.ID)
	}
	query += fmt.Sprintf(` ORDER BY created_at, id LIMIT %d`, limit+1)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "review", "", "")
	}
	defer rows.Close()

	reviews := []*domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func (r *PostgresReviewRepository) OrphanByEvent(ctx context.Context, eventID string, at time.Time) (int64, error) {
	return r.orphan(ctx, "event_id", eventID, at)
}

func (r *PostgresReviewRepository) OrphanByVenue(ctx context.Context, venueID string, at time.Time) (int64, error) {
	return r.orphan(ctx, "venue_id", venueID, at)
}

func (r *PostgresReviewRepository) OrphanByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	return r.orphan(ctx, "user_id", userID, at)
}

func (r *PostgresReviewRepository) orphan(ctx context.Context, column, id string, at time.Time) (int64, error) {
	if !validID(id) {
		return 0, nil
	}
	tag, err := conn(ctx, r.pool).Exec(ctx,
		fmt.Sprintf(`UPDATE reviews SET orphaned_at = $2 WHERE %s = $1 AND orphaned_at IS NULL`, column),
		id, at,
	)
	if err != nil {
		return 0, translate(err, "review", id, "")
	}
	return tag.RowsAffected(), nil
}
