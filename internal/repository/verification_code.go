package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alchile/backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type verificationCodeRepository struct {
	db *sqlx.DB
}

func newVerificationCodeRepository(db *sqlx.DB) *verificationCodeRepository {
	return &verificationCodeRepository{
		db: db,
	}
}

func (r *verificationCodeRepository) Create(ctx context.Context, code *domain.VerificationCode) error {
	const op = "repository.verificationCode.Create"

	const query = `
    INSERT INTO verification_codes
        (id, user_id, phone_number, code, purpose, attempts, verified, created_at, expires_at, ip_address, user_agent)
    VALUES
        (uuid_to_bin(:id), uuid_to_bin(:user_id), :phone_number, :code, :purpose, :attempts, :verified, :created_at, :expires_at, :ip_address, :user_agent)
    `

	res, err := r.db.NamedExecContext(ctx, query, code)
	if err != nil {
		return fmt.Errorf("%s: insert verification code failed: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	if rows != 1 {
		return fmt.Errorf("%s: expected 1 row affected, got %d", op, rows)
	}

	return nil
}

func (r *verificationCodeRepository) GetActive(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.VerificationCode, error) {
	const op = "repository.verificationCode.GetActive"

	const query = `
    SELECT id, user_id, phone_number, code, purpose, attempts, verified, verified_at, created_at, expires_at, ip_address, user_agent
    FROM verification_codes
    WHERE user_id = uuid_to_bin(?) AND verified = 0 AND expires_at > ?
    ORDER BY expires_at DESC
    LIMIT 1
    `

	var code domain.VerificationCode
	if err := r.db.GetContext(ctx, &code, query, userID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: select active verification code failed: %w", op, err)
	}

	return &code, nil
}

func (r *verificationCodeRepository) GetLast(ctx context.Context, userID uuid.UUID) (*domain.VerificationCode, error) {
	const op = "repository.verificationCode.GetLast"

	const query = `
    SELECT id, user_id, phone_number, code, purpose, attempts, verified, verified_at, created_at, expires_at, ip_address, user_agent
    FROM verification_codes
    WHERE user_id = uuid_to_bin(?)
    ORDER BY created_at DESC
    LIMIT 1
    `

	var code domain.VerificationCode
	if err := r.db.GetContext(ctx, &code, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: select last verification code failed: %w", op, err)
	}

	return &code, nil
}

func (r *verificationCodeRepository) RegisterAttempt(ctx context.Context, id uuid.UUID, maxAttempts int) (bool, error) {
	const op = "repository.verificationCode.RegisterAttempt"

	const query = `
    UPDATE verification_codes
    SET attempts = attempts + 1
    WHERE id = uuid_to_bin(?) AND verified = 0 AND attempts < ?
    `

	res, err := r.db.ExecContext(ctx, query, id, maxAttempts)
	if err != nil {
		return false, fmt.Errorf("%s: update attempts failed: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	return rows == 1, nil
}

func (r *verificationCodeRepository) Consume(ctx context.Context, id uuid.UUID, maxAttempts int, now time.Time) (bool, error) {
	const op = "repository.verificationCode.Consume"

	// Attempt increment and verified transition in one conditional write, so
	// two racing verifications cannot both succeed.
	const query = `
    UPDATE verification_codes
    SET attempts = attempts + 1, verified = 1, verified_at = ?
    WHERE id = uuid_to_bin(?) AND verified = 0 AND attempts < ?
    `

	res, err := r.db.ExecContext(ctx, query, now, id, maxAttempts)
	if err != nil {
		return false, fmt.Errorf("%s: consume verification code failed: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	return rows == 1, nil
}

func (r *verificationCodeRepository) InvalidateOutstanding(ctx context.Context, userID uuid.UUID, now time.Time, limit int) (int64, error) {
	const op = "repository.verificationCode.InvalidateOutstanding"

	const query = `
    UPDATE verification_codes
    SET verified = 1, verified_at = ?
    WHERE user_id = uuid_to_bin(?) AND verified = 0
    LIMIT ?
    `

	res, err := r.db.ExecContext(ctx, query, now, userID, limit)
	if err != nil {
		return 0, fmt.Errorf("%s: invalidate verification codes failed: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	return rows, nil
}

func (r *verificationCodeRepository) DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	const op = "repository.verificationCode.DeleteExpired"

	const query = `
    DELETE FROM verification_codes
    WHERE expires_at < ?
    LIMIT ?
    `

	res, err := r.db.ExecContext(ctx, query, now, limit)
	if err != nil {
		return 0, fmt.Errorf("%s: delete expired verification codes failed: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	return rows, nil
}
