package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timehacker/api/internal/model"
	ctxutil "github.com/timehacker/api/pkg/context"
	"github.com/timehacker/api/pkg/logger"
)

type memoryData struct {
	users         map[uuid.UUID]model.User
	emails        map[string]uuid.UUID
	refreshTokens map[uuid.UUID]model.RefreshToken
	resetTokens   map[uuid.UUID]model.PasswordResetToken
	profiles      map[uuid.UUID]model.Profile
	todos         map[uuid.UUID]model.Todo
	sessions      map[uuid.UUID]model.PomodoroSession
	settings      map[uuid.UUID]model.PomodoroSettings
}

func newMemoryData() *memoryData {
	return &memoryData{
		users:         make(map[uuid.UUID]model.User),
		emails:        make(map[string]uuid.UUID),
		refreshTokens: make(map[uuid.UUID]model.RefreshToken),
		resetTokens:   make(map[uuid.UUID]model.PasswordResetToken),
		profiles:      make(map[uuid.UUID]model.Profile),
		todos:         make(map[uuid.UUID]model.Todo),
		sessions:      make(map[uuid.UUID]model.PomodoroSession),
		settings:      make(map[uuid.UUID]model.PomodoroSettings),
	}
}

func (d *memoryData) clone() *memoryData {
	c := newMemoryData()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.emails {
		c.emails[k] = v
	}
	for k, v := range d.refreshTokens {
		c.refreshTokens[k] = v
	}
	for k, v := range d.resetTokens {
		c.resetTokens[k] = v
	}
	for k, v := range d.profiles {
		c.profiles[k] = v
	}
	for k, v := range d.todos {
		c.todos[k] = v
	}
	for k, v := range d.sessions {
		c.sessions[k] = v
	}
	for k, v := range d.settings {
		c.settings[k] = v
	}
	return c
}

// MemoryStore keeps every table in process memory. It backs the memory
// database driver and the service tests. Transactions are serialised and
// run against a copy that replaces the live data only on commit.
type MemoryStore struct {
	mu   *sync.RWMutex
	data *memoryData
	now  func() time.Time
	last *time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:   &sync.RWMutex{},
		data: newMemoryData(),
		now:  time.Now,
		last: new(time.Time),
	}
}

// stamp returns a strictly increasing timestamp so rows written in the same
// clock tick still sort in insertion order. Callers hold the write lock.
func (s *MemoryStore) stamp() time.Time {
	t := s.now()
	if !t.After(*s.last) {
		t = s.last.Add(time.Microsecond)
	}
	*s.last = t
	return t
}

func (s *MemoryStore) read(fn func(d *memoryData)) {
	if s.mu != nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	fn(s.data)
}

func (s *MemoryStore) write(fn func(d *memoryData) error) error {
	if s.mu != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}

func (s *MemoryStore) Users() Users                 { return memoryUsers{s} }
func (s *MemoryStore) RefreshTokens() RefreshTokens { return memoryRefreshTokens{s} }
func (s *MemoryStore) ResetTokens() ResetTokens     { return memoryResetTokens{s} }
func (s *MemoryStore) Profiles() Profiles           { return memoryProfiles{s} }
func (s *MemoryStore) Todos() Todos                 { return memoryTodos{s} }
func (s *MemoryStore) Pomodoros() Pomodoros         { return memoryPomodoros{s} }

func (s *MemoryStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "MemoryStore.WithinTransaction")

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.mu == nil {
		// already inside a transaction
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &MemoryStore{data: s.data.clone(), now: s.now, last: s.last}
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorWithContext(ctx, "Panic inside transaction, rolled back").
				Any("panic", r).
				Log()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		logger.DebugWithContext(ctx, "Transaction rolled back").Err(err).Log()
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.data = tx.data
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	var (
		user model.User
		ok   bool
	)
	r.s.read(func(d *memoryData) { user, ok = d.users[id] })
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r memoryUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	var (
		user model.User
		ok   bool
	)
	r.s.read(func(d *memoryData) {
		var id uuid.UUID
		if id, ok = d.emails[email]; ok {
			user, ok = d.users[id]
		}
	})
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r memoryUsers) Create(_ context.Context, user *model.User) error {
	return r.s.write(func(d *memoryData) error {
		if _, exists := d.emails[user.Email]; exists {
			return ErrDuplicateEmail
		}
		if user.ID == uuid.Nil {
			user.ID = uuid.New()
		}
		now := r.s.stamp()
		user.CreatedAt, user.UpdatedAt = now, now
		d.users[user.ID] = *user
		d.emails[user.Email] = user.ID
		return nil
	})
}

func (r memoryUsers) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	return r.s.write(func(d *memoryData) error {
		user, ok := d.users[id]
		if !ok {
			return ErrNotFound
		}
		user.PasswordHash = passwordHash
		user.UpdatedAt = r.s.stamp()
		d.users[id] = user
		return nil
	})
}

func (r memoryUsers) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	return r.s.write(func(d *memoryData) error {
		user, ok := d.users[id]
		if !ok {
			return ErrNotFound
		}
		user.IsActive = active
		user.UpdatedAt = r.s.stamp()
		d.users[id] = user
		return nil
	})
}

type memoryRefreshTokens struct{ s *MemoryStore }

func (r memoryRefreshTokens) Create(_ context.Context, token *model.RefreshToken) error {
	return r.s.write(func(d *memoryData) error {
		for _, t := range d.refreshTokens {
			if t.TokenHash == token.TokenHash {
				return ErrDuplicateKey
			}
		}
		if token.ID == uuid.Nil {
			token.ID = uuid.New()
		}
		token.CreatedAt = r.s.stamp()
		d.refreshTokens[token.ID] = *token
		return nil
	})
}

func (r memoryRefreshTokens) ListActive(_ context.Context, lookupID string, now time.Time) ([]model.RefreshToken, error) {
	var out []model.RefreshToken
	r.s.read(func(d *memoryData) {
		for _, t := range d.refreshTokens {
			if !t.ExpiresAt.After(now) {
				continue
			}
			if t.LookupID != lookupID {
				continue
			}
			out = append(out, t)
		}
	})
	return out, nil
}

func (r memoryRefreshTokens) ListActiveByUser(_ context.Context, userID uuid.UUID, now time.Time) ([]model.RefreshToken, error) {
	var out []model.RefreshToken
	r.s.read(func(d *memoryData) {
		for _, t := range d.refreshTokens {
			if t.UserID == userID && t.ExpiresAt.After(now) {
				out = append(out, t)
			}
		}
	})
	return out, nil
}

func (r memoryRefreshTokens) Delete(_ context.Context, id uuid.UUID) error {
	return r.s.write(func(d *memoryData) error {
		if _, ok := d.refreshTokens[id]; !ok {
			return ErrNotFound
		}
		delete(d.refreshTokens, id)
		return nil
	})
}

func (r memoryRefreshTokens) DeleteAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.s.write(func(d *memoryData) error {
		for id, t := range d.refreshTokens {
			if t.UserID == userID {
				delete(d.refreshTokens, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memoryRefreshTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.s.write(func(d *memoryData) error {
		for id, t := range d.refreshTokens {
			if !t.ExpiresAt.After(now) {
				delete(d.refreshTokens, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

type memoryResetTokens struct{ s *MemoryStore }

func (r memoryResetTokens) Create(_ context.Context, token *model.PasswordResetToken) error {
	return r.s.write(func(d *memoryData) error {
		if token.ID == uuid.Nil {
			token.ID = uuid.New()
		}
		token.CreatedAt = r.s.stamp()
		d.resetTokens[token.ID] = *token
		return nil
	})
}

func (r memoryResetTokens) ListUsable(_ context.Context, lookupID string, now time.Time) ([]model.PasswordResetToken, error) {
	var out []model.PasswordResetToken
	r.s.read(func(d *memoryData) {
		for _, t := range d.resetTokens {
			if t.Used || !t.ExpiresAt.After(now) {
				continue
			}
			if t.LookupID != lookupID {
				continue
			}
			out = append(out, t)
		}
	})
	return out, nil
}

func (r memoryResetTokens) MarkUsed(_ context.Context, id uuid.UUID) error {
	return r.s.write(func(d *memoryData) error {
		t, ok := d.resetTokens[id]
		if !ok || t.Used {
			return ErrTokenAlreadyUsed
		}
		t.Used = true
		d.resetTokens[id] = t
		return nil
	})
}

func (r memoryResetTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.s.write(func(d *memoryData) error {
		for id, t := range d.resetTokens {
			if t.Used || !t.ExpiresAt.After(now) {
				delete(d.resetTokens, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

type memoryProfiles struct{ s *MemoryStore }

func (r memoryProfiles) Get(_ context.Context, userID uuid.UUID) (*model.Profile, error) {
	var (
		profile model.Profile
		ok      bool
	)
	r.s.read(func(d *memoryData) { profile, ok = d.profiles[userID] })
	if !ok {
		return nil, ErrNotFound
	}
	return &profile, nil
}

func (r memoryProfiles) Create(_ context.Context, profile *model.Profile) error {
	return r.s.write(func(d *memoryData) error {
		if _, ok := d.users[profile.ID]; !ok {
			return ErrNotFound
		}
		now := r.s.stamp()
		profile.CreatedAt, profile.UpdatedAt = now, now
		d.profiles[profile.ID] = *profile
		return nil
	})
}

func (r memoryProfiles) Save(_ context.Context, profile *model.Profile) error {
	return r.s.write(func(d *memoryData) error {
		existing, ok := d.profiles[profile.ID]
		if !ok {
			return ErrNotFound
		}
		existing.Name, existing.School, existing.Avatar = profile.Name, profile.School, profile.Avatar
		existing.UpdatedAt = r.s.stamp()
		d.profiles[profile.ID] = existing
		*profile = existing
		return nil
	})
}

type memoryTodos struct{ s *MemoryStore }

func (r memoryTodos) List(_ context.Context, userID uuid.UUID, limit, offset int) ([]model.Todo, error) {
	var out []model.Todo
	r.s.read(func(d *memoryData) {
		for _, t := range d.todos {
			if t.UserID == userID {
				out = append(out, t)
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if limit > 0 {
		if offset >= len(out) {
			return []model.Todo{}, nil
		}
		end := offset + limit
		if end > len(out) {
			end = len(out)
		}
		out = out[offset:end]
	}
	return out, nil
}

func (r memoryTodos) Get(_ context.Context, userID, id uuid.UUID) (*model.Todo, error) {
	var (
		todo model.Todo
		ok   bool
	)
	r.s.read(func(d *memoryData) { todo, ok = d.todos[id] })
	if !ok || todo.UserID != userID {
		return nil, ErrNotFound
	}
	return &todo, nil
}

func (r memoryTodos) Create(_ context.Context, todo *model.Todo) error {
	return r.s.write(func(d *memoryData) error {
		if todo.ID == uuid.Nil {
			todo.ID = uuid.New()
		}
		now := r.s.stamp()
		todo.CreatedAt, todo.UpdatedAt = now, now
		d.todos[todo.ID] = *todo
		return nil
	})
}

func (r memoryTodos) Save(_ context.Context, todo *model.Todo) error {
	return r.s.write(func(d *memoryData) error {
		existing, ok := d.todos[todo.ID]
		if !ok || existing.UserID != todo.UserID {
			return ErrNotFound
		}
		todo.CreatedAt = existing.CreatedAt
		todo.UpdatedAt = r.s.stamp()
		d.todos[todo.ID] = *todo
		return nil
	})
}

func (r memoryTodos) Delete(_ context.Context, userID, id uuid.UUID) error {
	return r.s.write(func(d *memoryData) error {
		existing, ok := d.todos[id]
		if !ok || existing.UserID != userID {
			return ErrNotFound
		}
		delete(d.todos, id)
		return nil
	})
}

type memoryPomodoros struct{ s *MemoryStore }

func (r memoryPomodoros) ListSessions(_ context.Context, userID uuid.UUID, limit int) ([]model.PomodoroSession, error) {
	var out []model.PomodoroSession
	r.s.read(func(d *memoryData) {
		for _, sess := range d.sessions {
			if sess.UserID == userID {
				out = append(out, sess)
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CompletedAt, out[j].CompletedAt
		switch {
		case a == nil && b == nil:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memoryPomodoros) CreateSession(_ context.Context, session *model.PomodoroSession) error {
	return r.s.write(func(d *memoryData) error {
		if session.ID == uuid.Nil {
			session.ID = uuid.New()
		}
		now := r.s.stamp()
		session.CreatedAt, session.UpdatedAt = now, now
		d.sessions[session.ID] = *session
		return nil
	})
}

func (r memoryPomodoros) DeleteSession(_ context.Context, userID, id uuid.UUID) error {
	return r.s.write(func(d *memoryData) error {
		existing, ok := d.sessions[id]
		if !ok || existing.UserID != userID {
			return ErrNotFound
		}
		delete(d.sessions, id)
		return nil
	})
}

func (r memoryPomodoros) GetSettings(_ context.Context, userID uuid.UUID) (*model.PomodoroSettings, error) {
	var (
		settings model.PomodoroSettings
		ok       bool
	)
	r.s.read(func(d *memoryData) { settings, ok = d.settings[userID] })
	if !ok {
		return nil, ErrNotFound
	}
	return &settings, nil
}

func (r memoryPomodoros) SaveSettings(_ context.Context, settings *model.PomodoroSettings) error {
	return r.s.write(func(d *memoryData) error {
		now := r.s.stamp()
		if existing, ok := d.settings[settings.UserID]; ok {
			settings.ID = existing.ID
			settings.CreatedAt = existing.CreatedAt
		} else {
			if settings.ID == uuid.Nil {
				settings.ID = uuid.New()
			}
			settings.CreatedAt = now
		}
		settings.UpdatedAt = now
		d.settings[settings.UserID] = *settings
		return nil
	})
}
