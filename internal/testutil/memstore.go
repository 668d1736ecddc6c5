// Package testutil provides in-memory stores and fakes for tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"familytasks/internal/models"
	"familytasks/internal/repository"

	"github.com/google/uuid"
)

// UserStore is an in-memory user store
type UserStore struct {
	mu    sync.Mutex
	users map[string]models.User
	// Err, when set, is returned by every call
	Err error
}

// NewUserStore creates an empty user store
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]models.User)}
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.ID == id })
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.Email == email })
}

func (s *UserStore) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return s.find(func(u models.User) bool { return googleID != "" && u.GoogleID == googleID })
}

func (s *UserStore) SetRefreshToken(ctx context.Context, userID, token string) error {
	return s.update(userID, func(u *models.User) { u.RefreshToken = token })
}

func (s *UserStore) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	return s.update(userID, func(u *models.User) { u.GoogleID = googleID })
}

func (s *UserStore) find(match func(models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

func (s *UserStore) update(userID string, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return nil
}

// FamilyStore is an in-memory family store. Families are copied on the way
// in and out so callers never share slices with the store.
type FamilyStore struct {
	mu       sync.Mutex
	families map[string]models.Family
	Err      error
}

// NewFamilyStore creates an empty family store
func NewFamilyStore() *FamilyStore {
	return &FamilyStore{families: make(map[string]models.Family)}
}

func (s *FamilyStore) Create(ctx context.Context, family *models.Family) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if family.ID == "" {
		family.ID = uuid.NewString()
	}
	family.PurgeExpiredInvitations(time.Now())
	s.families[family.ID] = cloneFamily(*family)
	return nil
}

func (s *FamilyStore) Save(ctx context.Context, family *models.Family) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	family.UpdatedAt = time.Now().UTC()
	family.PurgeExpiredInvitations(time.Now())
	s.families[family.ID] = cloneFamily(*family)
	return nil
}

func (s *FamilyStore) GetByID(ctx context.Context, id string) (*models.Family, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	f, ok := s.families[id]
	if !ok {
		return nil, nil
	}
	out := cloneFamily(f)
	return &out, nil
}

func (s *FamilyStore) ListByMember(ctx context.Context, userID string) ([]models.Family, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []models.Family{}
	for _, f := range s.families {
		if f.IsMember(userID) {
			out = append(out, cloneFamily(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *FamilyStore) FindByInvitationToken(ctx context.Context, token string, now time.Time) (*models.Family, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, f := range s.families {
		if _, ok := f.InvitationByToken(token, now); ok {
			out := cloneFamily(f)
			return &out, nil
		}
	}
	return nil, nil
}

// Put stores family as-is, bypassing expiry purging
func (s *FamilyStore) Put(family models.Family) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.families[family.ID] = cloneFamily(family)
}

func cloneFamily(f models.Family) models.Family {
	f.Members = append([]models.FamilyMember(nil), f.Members...)
	f.PendingInvitations = append([]models.Invitation{}, f.PendingInvitations...)
	return f
}

// TaskStore is an in-memory task store
type TaskStore struct {
	mu    sync.Mutex
	tasks map[string]models.Task
	Err   error
}

// NewTaskStore creates an empty task store
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]models.Task)}
}

func (s *TaskStore) Create(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	s.tasks[task.ID] = cloneTask(*task)
	return nil
}

func (s *TaskStore) GetByID(ctx context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	out := cloneTask(t)
	return &out, nil
}

func (s *TaskStore) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []models.Task{}
	for _, t := range s.tasks {
		t := t
		if filter.Matches(&t) {
			out = append(out, cloneTask(t))
		}
	}
	models.SortTasks(out)
	return out, nil
}

func (s *TaskStore) Update(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	task.UpdatedAt = time.Now().UTC()
	s.tasks[task.ID] = cloneTask(*task)
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.tasks, id)
	return nil
}

func cloneTask(t models.Task) models.Task {
	t.Assignees = append([]string(nil), t.Assignees...)
	return t
}

// Revoker is an in-memory revocation list
type Revoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewRevoker creates an empty revocation list
func NewRevoker() *Revoker {
	return &Revoker{revoked: make(map[string]time.Time)}
}

func (r *Revoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[jti] = expiresAt
	return nil
}

func (r *Revoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.revoked[jti]
	return ok && time.Now().Before(exp), nil
}
