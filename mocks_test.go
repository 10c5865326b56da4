package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	auth "github.com/campusworks/go-campus-auth"
	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// memUserStore is an in-memory UserStore. ConsumeResetToken performs a real
// compare-and-swap under the mutex so concurrent consumption behaves like the
// conditional UPDATE in the bun-backed repository.
type memUserStore struct {
	mu     sync.Mutex
	users  map[int64]*auth.User
	nextID int64
}

func newMemUserStore(users ...*auth.User) *memUserStore {
	s := &memUserStore{users: map[int64]*auth.User{}}
	for _, u := range users {
		s.add(u)
	}
	return s
}

func (s *memUserStore) add(u *auth.User) *auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.nextID++
		u.ID = s.nextID
	} else if u.ID > s.nextID {
		s.nextID = u.ID
	}
	s.users[u.ID] = u
	return u
}

func (s *memUserStore) snapshot(id int64) *auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (s *memUserStore) GetByID(_ context.Context, id int64) (*auth.User, error) {
	if u := s.snapshot(id); u != nil {
		return u, nil
	}
	return nil, auth.ErrNotFound
}

func (s *memUserStore) GetByOrgEmail(_ context.Context, orgID *int64, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email != auth.NormalizeEmail(email) {
			continue
		}
		if orgID == nil {
			if u.OrganizationID != nil {
				continue
			}
		} else if u.OrganizationID == nil || *u.OrganizationID != *orgID {
			continue
		}
		cp := *u
		return &cp, nil
	}
	return nil, auth.ErrNotFound
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == auth.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *memUserStore) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (s *memUserStore) ConsumeResetToken(_ context.Context, id int64, passwordHash string, prior *time.Time, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	switch {
	case prior == nil && u.ResetTokenUsedAt != nil:
		return auth.ErrResetLinkUsed
	case prior != nil && (u.ResetTokenUsedAt == nil || !u.ResetTokenUsedAt.Equal(*prior)):
		return auth.ErrResetLinkUsed
	}
	u.PasswordHash = passwordHash
	watermark := usedAt
	u.ResetTokenUsedAt = &watermark
	return nil
}

func (s *memUserStore) MarkResetTokenSent(_ context.Context, id int64, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.ResetTokenSentAt = &sentAt
	return nil
}

func (s *memUserStore) SetActive(_ context.Context, id int64, active bool, actor auth.ActorRef, at time.Time) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	u.Active = active
	var actorID *int64
	if actor.ID != 0 {
		id := actor.ID
		actorID = &id
	}
	if active {
		u.ActivatedByID = actorID
		u.DeactivatedAt = nil
		u.DeactivatedByID = nil
	} else {
		u.DeactivatedAt = &at
		u.DeactivatedByID = actorID
	}
	cp := *u
	return &cp, nil
}

// captureSink records every activity event it receives.
type captureSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *captureSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) byType(t auth.ActivityEventType) []auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []auth.ActivityEvent
	for _, e := range s.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

// captureNotifier records delivered reset and welcome messages.
type captureNotifier struct {
	mu        sync.Mutex
	resetURLs []string
	welcomes  []welcomeMessage
}

type welcomeMessage struct {
	Email        string
	TempPassword string
	ResetURL     string
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, _ *auth.User, resetURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetURLs = append(n.resetURLs, resetURL)
	return nil
}

func (n *captureNotifier) SendWelcome(_ context.Context, user *auth.User, tempPassword, resetURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, welcomeMessage{
		Email:        user.Email,
		TempPassword: tempPassword,
		ResetURL:     resetURL,
	})
	return nil
}

// fakeRepoManager delegates to the testify repositories below and runs
// transaction closures inline, so closure errors propagate like a rollback.
type fakeRepoManager struct {
	users    *MockUsers
	orgs     *MockOrganizations
	profiles *MockProfiles
}

func (f *fakeRepoManager) Validate() error { return nil }

func (f *fakeRepoManager) MustValidate() {}

func (f *fakeRepoManager) RunInTx(ctx context.Context, _ *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	return fn(ctx, bun.Tx{})
}

func (f *fakeRepoManager) Users() auth.Users { return f.users }

func (f *fakeRepoManager) Organizations() auth.Organizations { return f.orgs }

func (f *fakeRepoManager) Profiles() auth.Profiles { return f.profiles }

// MockRepositoryManager implements auth.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	return args.Error(0)
}

func (m *MockRepositoryManager) Users() auth.Users {
	args := m.Called()
	return args.Get(0).(auth.Users)
}

func (m *MockRepositoryManager) Organizations() auth.Organizations {
	args := m.Called()
	return args.Get(0).(auth.Organizations)
}

func (m *MockRepositoryManager) Profiles() auth.Profiles {
	args := m.Called()
	return args.Get(0).(auth.Profiles)
}

// MockUsers implements auth.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	args := m.Called(ctx, id)
	return userResult(args)
}

func (m *MockUsers) GetByOrgEmail(ctx context.Context, orgID *int64, email string) (*auth.User, error) {
	args := m.Called(ctx, orgID, email)
	return userResult(args)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	return userResult(args)
}

func (m *MockUsers) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) ConsumeResetToken(ctx context.Context, id int64, passwordHash string, prior *time.Time, usedAt time.Time) error {
	args := m.Called(ctx, id, passwordHash, prior, usedAt)
	return args.Error(0)
}

func (m *MockUsers) MarkResetTokenSent(ctx context.Context, id int64, sentAt time.Time) error {
	args := m.Called(ctx, id, sentAt)
	return args.Error(0)
}

func (m *MockUsers) SetActive(ctx context.Context, id int64, active bool, actor auth.ActorRef, at time.Time) (*auth.User, error) {
	args := m.Called(ctx, id, active, actor, at)
	return userResult(args)
}

func (m *MockUsers) Create(ctx context.Context, record *auth.User) (*auth.User, error) {
	args := m.Called(ctx, record)
	return userResult(args)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *auth.User) (*auth.User, error) {
	args := m.Called(ctx, tx, record)
	return userResult(args)
}

func (m *MockUsers) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]*auth.User, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auth.User), args.Error(1)
}

func userResult(args mock.Arguments) (*auth.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

// MockOrganizations implements auth.Organizations
type MockOrganizations struct {
	mock.Mock
}

func (m *MockOrganizations) GetByID(ctx context.Context, id int64) (*auth.Organization, error) {
	args := m.Called(ctx, id)
	return orgResult(args)
}

func (m *MockOrganizations) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*auth.Organization, error) {
	args := m.Called(ctx, tx, id)
	return orgResult(args)
}

func (m *MockOrganizations) GetByCode(ctx context.Context, code string) (*auth.Organization, error) {
	args := m.Called(ctx, code)
	return orgResult(args)
}

func (m *MockOrganizations) Create(ctx context.Context, record *auth.Organization) (*auth.Organization, error) {
	args := m.Called(ctx, record)
	return orgResult(args)
}

func (m *MockOrganizations) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]*auth.Organization, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auth.Organization), args.Error(1)
}

func orgResult(args mock.Arguments) (*auth.Organization, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Organization), args.Error(1)
}

// MockProfiles implements auth.Profiles
type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) GetByUserID(ctx context.Context, userID int64) (*auth.Profile, error) {
	args := m.Called(ctx, userID)
	return profileResult(args)
}

func (m *MockProfiles) Create(ctx context.Context, record *auth.Profile) (*auth.Profile, error) {
	args := m.Called(ctx, record)
	return profileResult(args)
}

func (m *MockProfiles) CreateTx(ctx context.Context, tx bun.IDB, record *auth.Profile) (*auth.Profile, error) {
	args := m.Called(ctx, tx, record)
	return profileResult(args)
}

func (m *MockProfiles) Update(ctx context.Context, record *auth.Profile) (*auth.Profile, error) {
	args := m.Called(ctx, record)
	return profileResult(args)
}

func profileResult(args mock.Arguments) (*auth.Profile, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Profile), args.Error(1)
}

func ptrInt64(v int64) *int64 { return &v }

func ptrString(v string) *string { return &v }
