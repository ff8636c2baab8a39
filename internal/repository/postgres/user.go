package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ntcogk/auth-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, first_name, church, role,
		is_email_verified, email_verification_token, email_verification_expires,
		password_reset_token, password_reset_expires, refresh_token_hash,
		last_login, failed_login_attempts, lock_until, is_active, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		user model.User
		role string
	)
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.Church, &role,
		&user.IsEmailVerified, &user.EmailVerificationToken, &user.EmailVerificationExpires,
		&user.PasswordResetToken, &user.PasswordResetExpires, &user.RefreshTokenHash,
		&user.LastLogin, &user.FailedLoginAttempts, &user.LockUntil, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return model.User{}, err
	}
	user.Role = model.Role(role)

	return user, nil
}

func (r *UserRepository) getOne(ctx context.Context, op, query string, args ...any) (model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to %s: %w", op, err)
	}

	return user, nil
}

// exec runs a write and returns errNone when no row matched.
func (r *UserRepository) exec(ctx context.Context, op string, errNone error, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return errNone
	}

	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users WHERE lower(email) = lower($1)`

	return r.getOne(ctx, "get user by email", query, model.NormalizeEmail(email))
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users WHERE id = $1`

	return r.getOne(ctx, "get user by id", query, id)
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	query := `INSERT INTO users (id, email, password_hash, first_name, church, role,
			is_email_verified, email_verification_token, email_verification_expires,
			is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + userColumns

	saved, err := scanUser(r.db.QueryRowContext(ctx, query,
		user.ID, model.NormalizeEmail(user.Email), user.PasswordHash, user.FirstName, user.Church, string(user.Role),
		user.IsEmailVerified, user.EmailVerificationToken, user.EmailVerificationExpires,
		user.IsActive, user.CreatedAt, user.UpdatedAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.User{}, model.ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return saved, nil
}

// Save persists profile and status fields. Credentials, tokens and lockout
// counters only change through the dedicated conditional updates.
func (r *UserRepository) Save(ctx context.Context, user model.User) (model.User, error) {
	query := `UPDATE users SET first_name = $2, church = $3, role = $4,
			is_email_verified = $5, is_active = $6, updated_at = $7
		WHERE id = $1
		RETURNING ` + userColumns

	return r.getOne(ctx, "save user", query,
		user.ID, user.FirstName, user.Church, string(user.Role),
		user.IsEmailVerified, user.IsActive, user.UpdatedAt,
	)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, now time.Time) error {
	query := `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`

	return r.exec(ctx, "update password", model.ErrNotFound, query, id, passwordHash, now)
}

// RecordLoginFailure counts a failed login. A lock that has already expired
// restarts the count at one; reaching the threshold sets a new lock.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, policy model.LockoutPolicy, now time.Time) (model.LockoutState, error) {
	const next = `(CASE WHEN lock_until IS NOT NULL AND lock_until <= $2 THEN 1 ELSE failed_login_attempts + 1 END)`
	query := `UPDATE users SET
			failed_login_attempts = ` + next + `,
			lock_until = CASE
				WHEN ` + next + ` >= $3 THEN $4::timestamptz
				WHEN lock_until IS NOT NULL AND lock_until <= $2 THEN NULL
				ELSE lock_until
			END,
			updated_at = $2
		WHERE id = $1
		RETURNING failed_login_attempts, lock_until`

	var state model.LockoutState
	err := r.db.QueryRowContext(ctx, query, id, now, policy.Threshold, now.Add(policy.Duration)).
		Scan(&state.FailedAttempts, &state.LockUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.LockoutState{}, model.ErrNotFound
		}
		return model.LockoutState{}, fmt.Errorf("failed to record login failure: %w", err)
	}

	return state, nil
}

// RecordLoginSuccess clears lockout state and stamps the login time. A nil
// refreshTokenHash keeps the stored session untouched.
func (r *UserRepository) RecordLoginSuccess(ctx context.Context, id uuid.UUID, refreshTokenHash *string, now time.Time) error {
	query := `UPDATE users SET failed_login_attempts = 0, lock_until = NULL, last_login = $2,
			refresh_token_hash = COALESCE($3, refresh_token_hash), updated_at = $2
		WHERE id = $1`

	return r.exec(ctx, "record login success", model.ErrNotFound, query, id, now, refreshTokenHash)
}

func (r *UserRepository) SetEmailVerification(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	query := `UPDATE users SET email_verification_token = $2, email_verification_expires = $3, updated_at = now()
		WHERE id = $1`

	return r.exec(ctx, "set email verification", model.ErrNotFound, query, id, code, expiresAt)
}

func (r *UserRepository) ConsumeEmailVerification(ctx context.Context, email, code string, now time.Time) (model.User, error) {
	query := `UPDATE users SET is_email_verified = TRUE, email_verification_token = NULL,
			email_verification_expires = NULL, updated_at = $3
		WHERE lower(email) = lower($1) AND email_verification_token = $2 AND email_verification_expires > $3
		RETURNING ` + userColumns

	return r.getOne(ctx, "consume email verification", query, model.NormalizeEmail(email), code, now)
}

func (r *UserRepository) SetPasswordReset(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	query := `UPDATE users SET password_reset_token = $2, password_reset_expires = $3, updated_at = now()
		WHERE id = $1`

	return r.exec(ctx, "set password reset", model.ErrNotFound, query, id, tokenHash, expiresAt)
}

func (r *UserRepository) ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (model.User, error) {
	query := `UPDATE users SET password_hash = $2, password_reset_token = NULL,
			password_reset_expires = NULL, updated_at = $3
		WHERE password_reset_token = $1 AND password_reset_expires > $3
		RETURNING ` + userColumns

	return r.getOne(ctx, "consume password reset", query, tokenHash, passwordHash, now)
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, id uuid.UUID, tokenHash string) error {
	query := `UPDATE users SET refresh_token_hash = $2, updated_at = now() WHERE id = $1`

	return r.exec(ctx, "set refresh token", model.ErrNotFound, query, id, tokenHash)
}

// RotateRefreshToken swaps the stored hash only if it still equals
// presentedHash, so a refresh token can be exchanged at most once.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, id uuid.UUID, presentedHash, nextHash string) error {
	query := `UPDATE users SET refresh_token_hash = $3, updated_at = now()
		WHERE id = $1 AND refresh_token_hash = $2`

	return r.exec(ctx, "rotate refresh token", model.ErrTokenMismatch, query, id, presentedHash, nextHash)
}

func (r *UserRepository) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET refresh_token_hash = NULL, updated_at = now() WHERE id = $1`

	return r.exec(ctx, "clear refresh token", model.ErrNotFound, query, id)
}

func (r *UserRepository) Count(ctx context.Context, filter model.UserFilter) (int64, error) {
	var (
		conds []string
		args  []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Verified != nil {
		conds = append(conds, "is_email_verified = "+bind(*filter.Verified))
	}
	if filter.Active != nil {
		conds = append(conds, "is_active = "+bind(*filter.Active))
	}
	if len(filter.Roles) > 0 {
		placeholders := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			placeholders[i] = bind(string(role))
		}
		conds = append(conds, "role IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.CreatedSince != nil {
		conds = append(conds, "created_at >= "+bind(*filter.CreatedSince))
	}

	query := `SELECT COUNT(*) FROM users`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}

	return count, nil
}

func (r *UserRepository) TopChurches(ctx context.Context, limit int) ([]model.ChurchCount, error) {
	query := `SELECT church, COUNT(*) AS total FROM users
		WHERE church <> ''
		GROUP BY church
		ORDER BY total DESC, church ASC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to group users by church: %w", err)
	}
	defer rows.Close()

	result := make([]model.ChurchCount, 0, limit)
	for rows.Next() {
		var c model.ChurchCount
		if err := rows.Scan(&c.Church, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan church count: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to group users by church: %w", err)
	}

	return result, nil
}
