// Package memory provides a process-local UserStore used by tests and by
// the server when DATABASE_DRIVER=memory.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ntcogk/auth-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

// UserRepository keeps users in a map guarded by a single mutex. Every
// method holds the lock for its whole read-modify-write, which gives the
// same atomicity as the conditional updates of the SQL store.
type UserRepository struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*model.User
	byEmail map[string]uuid.UUID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[uuid.UUID]*model.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

// Ping always succeeds.
func (r *UserRepository) Ping(context.Context) error {
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.lookupEmail(email)
	if !ok {
		return model.User{}, model.ErrNotFound
	}

	return clone(u), nil
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}

	return clone(u), nil
}

func (r *UserRepository) Create(_ context.Context, user model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Email = model.NormalizeEmail(user.Email)
	if _, ok := r.byEmail[user.Email]; ok {
		return model.User{}, model.ErrEmailTaken
	}

	stored := clone(&user)
	r.byID[user.ID] = &stored
	r.byEmail[user.Email] = user.ID

	return clone(&stored), nil
}

func (r *UserRepository) Save(_ context.Context, user model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[user.ID]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	u.FirstName = user.FirstName
	u.Church = user.Church
	u.Role = user.Role
	u.IsEmailVerified = user.IsEmailVerified
	u.IsActive = user.IsActive
	u.UpdatedAt = user.UpdatedAt

	return clone(u), nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string, now time.Time) error {
	return r.update(id, func(u *model.User) {
		u.PasswordHash = passwordHash
		u.UpdatedAt = now
	})
}

func (r *UserRepository) RecordLoginFailure(_ context.Context, id uuid.UUID, policy model.LockoutPolicy, now time.Time) (model.LockoutState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return model.LockoutState{}, model.ErrNotFound
	}

	expired := u.LockUntil != nil && !now.Before(*u.LockUntil)
	if expired {
		u.FailedLoginAttempts = 1
		u.LockUntil = nil
	} else {
		u.FailedLoginAttempts++
	}
	if u.FailedLoginAttempts >= policy.Threshold {
		until := now.Add(policy.Duration)
		u.LockUntil = &until
	}
	u.UpdatedAt = now

	return model.LockoutState{
		FailedAttempts: u.FailedLoginAttempts,
		LockUntil:      copyTime(u.LockUntil),
	}, nil
}

func (r *UserRepository) RecordLoginSuccess(_ context.Context, id uuid.UUID, refreshTokenHash *string, now time.Time) error {
	return r.update(id, func(u *model.User) {
		u.FailedLoginAttempts = 0
		u.LockUntil = nil
		u.LastLogin = &now
		if refreshTokenHash != nil {
			u.RefreshTokenHash = copyString(refreshTokenHash)
		}
		u.UpdatedAt = now
	})
}

func (r *UserRepository) SetEmailVerification(_ context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	return r.update(id, func(u *model.User) {
		u.EmailVerificationToken = &code
		u.EmailVerificationExpires = &expiresAt
	})
}

func (r *UserRepository) ConsumeEmailVerification(_ context.Context, email, code string, now time.Time) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.lookupEmail(email)
	if !ok || u.EmailVerificationToken == nil || *u.EmailVerificationToken != code ||
		u.EmailVerificationExpires == nil || !u.EmailVerificationExpires.After(now) {
		return model.User{}, model.ErrNotFound
	}

	u.IsEmailVerified = true
	u.EmailVerificationToken = nil
	u.EmailVerificationExpires = nil
	u.UpdatedAt = now

	return clone(u), nil
}

func (r *UserRepository) SetPasswordReset(_ context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return r.update(id, func(u *model.User) {
		u.PasswordResetToken = &tokenHash
		u.PasswordResetExpires = &expiresAt
	})
}

func (r *UserRepository) ConsumePasswordReset(_ context.Context, tokenHash, passwordHash string, now time.Time) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.PasswordResetToken == nil || *u.PasswordResetToken != tokenHash {
			continue
		}
		if u.PasswordResetExpires == nil || !u.PasswordResetExpires.After(now) {
			return model.User{}, model.ErrNotFound
		}
		u.PasswordHash = passwordHash
		u.PasswordResetToken = nil
		u.PasswordResetExpires = nil
		u.UpdatedAt = now

		return clone(u), nil
	}

	return model.User{}, model.ErrNotFound
}

func (r *UserRepository) SetRefreshToken(_ context.Context, id uuid.UUID, tokenHash string) error {
	return r.update(id, func(u *model.User) {
		u.RefreshTokenHash = &tokenHash
	})
}

func (r *UserRepository) RotateRefreshToken(_ context.Context, id uuid.UUID, presentedHash, nextHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok || u.RefreshTokenHash == nil || *u.RefreshTokenHash != presentedHash {
		return model.ErrTokenMismatch
	}
	u.RefreshTokenHash = &nextHash

	return nil
}

func (r *UserRepository) ClearRefreshToken(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(u *model.User) {
		u.RefreshTokenHash = nil
	})
}

func (r *UserRepository) Count(_ context.Context, filter model.UserFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, u := range r.byID {
		if matches(u, filter) {
			n++
		}
	}

	return n, nil
}

func (r *UserRepository) TopChurches(_ context.Context, limit int) ([]model.ChurchCount, error) {
	r.mu.Lock()
	counts := make(map[string]int64)
	for _, u := range r.byID {
		if u.Church != "" {
			counts[u.Church]++
		}
	}
	r.mu.Unlock()

	result := make([]model.ChurchCount, 0, len(counts))
	for church, n := range counts {
		result = append(result, model.ChurchCount{Church: church, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Church < result[j].Church
	})
	if limit >= 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func (r *UserRepository) lookupEmail(email string) (*model.User, bool) {
	id, ok := r.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return nil, false
	}
	u, ok := r.byID[id]
	return u, ok
}

func (r *UserRepository) update(id uuid.UUID, fn func(u *model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return model.ErrNotFound
	}
	fn(u)

	return nil
}

func matches(u *model.User, f model.UserFilter) bool {
	if f.Verified != nil && u.IsEmailVerified != *f.Verified {
		return false
	}
	if f.Active != nil && u.IsActive != *f.Active {
		return false
	}
	if len(f.Roles) > 0 && !slices.Contains(f.Roles, u.Role) {
		return false
	}
	if f.CreatedSince != nil && u.CreatedAt.Before(*f.CreatedSince) {
		return false
	}
	return true
}

// clone copies u so callers never share pointer fields with the store.
func clone(u *model.User) model.User {
	c := *u
	c.EmailVerificationToken = copyString(u.EmailVerificationToken)
	c.EmailVerificationExpires = copyTime(u.EmailVerificationExpires)
	c.PasswordResetToken = copyString(u.PasswordResetToken)
	c.PasswordResetExpires = copyTime(u.PasswordResetExpires)
	c.RefreshTokenHash = copyString(u.RefreshTokenHash)
	c.LastLogin = copyTime(u.LastLogin)
	c.LockUntil = copyTime(u.LockUntil)
	return c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
