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

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, email, profile, created_at, updated_at, last_login`

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	var profile []byte
	if err := row.Scan(&u.ID, &u.Email, &profile, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin); err != nil {
		return nil, err
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &u.Profile); err != nil {
			return nil, fmt.Errorf("decode user profile: %w", err)
		}
	}
	if u.Profile.Interests == nil {
		u.Profile.Interests = []string{}
	}
	return u, nil
}

// Create creates a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.user.create")
	defer func() { telemetry.EndSpan(span, err) }()

	profile, err := json.Marshal(user.Profile)
	if err != nil {
		return err
	}
	_, err = conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO users (id, email, profile, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, profile, user.CreatedAt, user.UpdatedAt, user.LastLogin,
	)
	return translate(err, "user", user.ID, user.Email)
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (_ *domain.User, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.user.get")
	defer func() { telemetry.EndSpan(span, err) }()

	if !validID(id) {
		return nil, domain.NewNotFoundError("user", id)
	}
	user, err := scanUser(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "user", id, "")
	}
	return user, nil
}

// Update updates a user
func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.user.update")
	defer func() { telemetry.EndSpan(span, err) }()

	profile, err := json.Marshal(user.Profile)
	if err != nil {
		return err
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE users SET email = $2, profile = $3, updated_at = $4, last_login = $5
		WHERE id = $1`,
		user.ID, user.Email, profile, user.UpdatedAt, user.LastLogin,
	)
	if err != nil {
		return translate(err, "user", user.ID, user.Email)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("user", user.ID)
	}
	return nil
}

// Delete removes a user
func (r *PostgresUserRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.user.delete")
	defer func() { telemetry.EndSpan(span, err) }()

	if !validID(id) {
		return domain.NewNotFoundError("user", id)
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translate(err, "user", id, "")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("user", id)
	}
	return nil
}

// List pages users by (created_at, id)
func (r *PostgresUserRepository) List(ctx context.Context, after *domain.Cursor, limit int) ([]*domain.User, error) {
	if err := checkCursor(after); err != nil {
		return nil, err
	}
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	if after != nil {
		query += ` WHERE (created_at, id) > ($1, $2)`
		args = append(args, after.Time, after.ID)
	}
	query += fmt.Sprintf(` ORDER BY created_at, id LIMIT %d`, limit+1)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "user", "", "")
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
