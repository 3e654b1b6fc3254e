package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alchile/backend/internal/db"
	"github.com/alchile/backend/internal/domain"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type rateLimitRepository struct {
	db *sqlx.DB
}

func newRateLimitRepository(db *sqlx.DB) *rateLimitRepository {
	return &rateLimitRepository{
		db: db,
	}
}

func (r *rateLimitRepository) Increment(ctx context.Context, userID uuid.UUID, max int, now time.Time) (bool, error) {
	const op = "repository.rateLimit.Increment"

	const query = `
    UPDATE rate_limit_attempts
    SET attempts = attempts + 1, last_attempt = ?
    WHERE user_id = uuid_to_bin(?) AND reset_at > ? AND attempts < ?
    `

	res, err := r.db.ExecContext(ctx, query, now, userID, now, max)
	if err != nil {
		return false, fmt.Errorf("%s: increment rate limit failed: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	return rows == 1, nil
}

func (r *rateLimitRepository) ResetWindow(ctx context.Context, userID uuid.UUID, now time.Time, resetAt time.Time) (bool, error) {
	const op = "repository.rateLimit.ResetWindow"

	const query = `
    UPDATE rate_limit_attempts
    SET attempts = 1, last_attempt = ?, reset_at = ?
    WHERE user_id = uuid_to_bin(?) AND reset_at <= ?
    `

	res, err := r.db.ExecContext(ctx, query, now, resetAt, userID, now)
	if err != nil {
		return false, fmt.Errorf("%s: reset rate limit window failed: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	return rows == 1, nil
}

func (r *rateLimitRepository) Create(ctx context.Context, limit *domain.RateLimit) error {
	const op = "repository.rateLimit.Create"

	const query = `
    INSERT INTO rate_limit_attempts (user_id, attempts, last_attempt, reset_at)
    VALUES (uuid_to_bin(:user_id), :attempts, :last_attempt, :reset_at)
    `

	_, err := r.db.NamedExecContext(ctx, query, limit)
	if err != nil {
		//nolint:errorlint
		if mysqlError, ok := err.(*mysql.MySQLError); ok && mysqlError.Number == db.DuplicateEntry {
			return domain.ErrDuplicateEntry
		}
		return fmt.Errorf("%s: insert rate limit failed: %w", op, err)
	}

	return nil
}

func (r *rateLimitRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.RateLimit, error) {
	const op = "repository.rateLimit.Get"

	const query = `
    SELECT user_id, attempts, last_attempt, reset_at
    FROM rate_limit_attempts
    WHERE user_id = uuid_to_bin(?)
    `

	var limit domain.RateLimit
	if err := r.db.GetContext(ctx, &limit, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: select rate limit failed: %w", op, err)
	}

	return &limit, nil
}

func (r *rateLimitRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	const op = "repository.rateLimit.Delete"

	const query = `
    DELETE FROM rate_limit_attempts
    WHERE user_id = uuid_to_bin(?)
    `

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("%s: delete rate limit failed: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}
