package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xuniversity/auth-service/internal/domain"
	"github.com/xuniversity/auth-service/internal/repository"
)

// fakeUserRepo is an in-memory UserRepository. All mutations run under one
// mutex, mirroring the single-statement atomicity of the SQL implementation.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User

	// forced, when set, is returned by every method
	forced error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func copyUser(u *domain.User) *domain.User {
	out := *u
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		out.LockedUntil = &t
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		out.LastLoginAt = &t
	}
	return &out
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return r.forced
	}

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return fmt.Errorf("duplicate: %w", repository.ErrDuplicateEmail)
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return nil, r.forced
	}

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return nil, r.forced
	}

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return r.forced
	}

	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *fakeUserRepo) RecordLoginFailure(ctx context.Context, userID string, policy domain.LockoutPolicy, now time.Time) (int, *time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return 0, nil, r.forced
	}

	u, ok := r.users[userID]
	if !ok {
		return 0, nil, repository.ErrNotFound
	}

	u.FailedLoginAttempts++
	if policy.Trips(u.FailedLoginAttempts) {
		until := policy.LockExpiry(now)
		u.LockedUntil = &until
	}
	u.UpdatedAt = now

	if u.LockedUntil != nil {
		t := *u.LockedUntil
		return u.FailedLoginAttempts, &t, nil
	}
	return u.FailedLoginAttempts, nil, nil
}

func (r *fakeUserRepo) RecordLoginSuccess(ctx context.Context, userID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return r.forced
	}

	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	t := now
	u.LastLoginAt = &t
	u.UpdatedAt = now
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context, offset, limit int) ([]*domain.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return nil, 0, r.forced
	}

	all := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, copyUser(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// guardFailingUserRepo delegates to the embedded fake but fails the login
// counter updates on demand, standing in for a store that degrades
// mid-request.
type guardFailingUserRepo struct {
	*fakeUserRepo
	failureErr error
	successErr error
}

func (r *guardFailingUserRepo) RecordLoginFailure(ctx context.Context, userID string, policy domain.LockoutPolicy, now time.Time) (int, *time.Time, error) {
	if r.failureErr != nil {
		return 0, nil, r.failureErr
	}
	return r.fakeUserRepo.RecordLoginFailure(ctx, userID, policy, now)
}

func (r *guardFailingUserRepo) RecordLoginSuccess(ctx context.Context, userID string, now time.Time) error {
	if r.successErr != nil {
		return r.successErr
	}
	return r.fakeUserRepo.RecordLoginSuccess(ctx, userID, now)
}

// get returns the stored user for assertions
func (r *fakeUserRepo) get(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyUser(r.users[id])
}

// fakeSessionRepo is an in-memory SessionRepository with the same
// conditional semantics as the SQL implementation: one mutex stands in for
// row locks and transactions.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session

	forced error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*domain.Session)}
}

func copySession(s *domain.Session) *domain.Session {
	out := *s
	if s.UserAgent != nil {
		v := *s.UserAgent
		out.UserAgent = &v
	}
	if s.IPAddress != nil {
		v := *s.IPAddress
		out.IPAddress = &v
	}
	if s.RevokedAt != nil {
		t := *s.RevokedAt
		out.RevokedAt = &t
	}
	return &out
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return r.forced
	}

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	session.IsActive = true
	r.sessions[session.ID] = copySession(session)
	return nil
}

func (r *fakeSessionRepo) GetActiveByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return nil, r.forced
	}

	for _, s := range r.sessions {
		if s.RefreshTokenHash == tokenHash && s.IsActive && s.ExpiresAt.After(now) {
			return copySession(s), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return nil, r.forced
	}

	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copySession(s), nil
}

func (r *fakeSessionRepo) Touch(ctx context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return r.forced
	}

	s, ok := r.sessions[id]
	if !ok || !s.IsActive {
		return repository.ErrNotFound
	}
	s.LastAccessedAt = now
	return nil
}

func (r *fakeSessionRepo) Rotate(ctx context.Context, oldID string, replacement *domain.Session, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return r.forced
	}

	old, ok := r.sessions[oldID]
	if !ok || !old.IsActive || !old.ExpiresAt.After(now) {
		return repository.ErrNotFound
	}

	old.IsActive = false
	t := now
	old.RevokedAt = &t

	if replacement.ID == "" {
		replacement.ID = uuid.New().String()
	}
	replacement.IsActive = true
	r.sessions[replacement.ID] = copySession(replacement)
	return nil
}

func (r *fakeSessionRepo) Revoke(ctx context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return r.forced
	}

	s, ok := r.sessions[id]
	if !ok || !s.IsActive {
		return repository.ErrNotFound
	}
	s.IsActive = false
	t := now
	s.RevokedAt = &t
	return nil
}

func (r *fakeSessionRepo) RevokeAllByUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return 0, r.forced
	}

	var revoked int64
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive {
			s.IsActive = false
			t := now
			s.RevokedAt = &t
			revoked++
		}
	}
	return revoked, nil
}

func (r *fakeSessionRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return nil, r.forced
	}

	var out []*domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeSessionRepo) CountActiveByUser(ctx context.Context, userID string, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return 0, r.forced
	}

	count := 0
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive && s.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

func (r *fakeSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced != nil {
		return 0, r.forced
	}

	var deleted int64
	for id, s := range r.sessions {
		if !s.ExpiresAt.After(now) {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// activeCount reports active, unexpired sessions for assertions
func (r *fakeSessionRepo) activeCount(userID string, now time.Time) int {
	count, _ := r.CountActiveByUser(context.Background(), userID, now)
	return count
}
