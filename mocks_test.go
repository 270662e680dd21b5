package auth_test

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sync"
	"time"

	"github.com/goliatone/go-repository-bun"
	auth "github.com/goliatone/go-tenant-auth"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var errInjectedWrite = stderrors.New("injected write failure")

// memRepo is an in-memory RepositoryManager for exercising hook and command
// semantics without a database. RunInTx snapshots state and restores it when
// the callback fails, mirroring a rollback.
type memRepo struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*auth.User
	invites map[uuid.UUID]*auth.Invite
	orgs    map[uuid.UUID]*auth.Organization

	// fault injection toggles
	failAcceptInvite bool
	failCreateUser   bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:   map[uuid.UUID]*auth.User{},
		invites: map[uuid.UUID]*auth.Invite{},
		orgs:    map[uuid.UUID]*auth.Organization{},
	}
}

func (m *memRepo) Validate() error { return nil }
func (m *memRepo) MustValidate()   {}

func (m *memRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	m.mu.Lock()
	users := cloneUsers(m.users)
	invites := cloneInvites(m.invites)
	orgs := cloneOrgs(m.orgs)
	m.mu.Unlock()

	if err := f(ctx, bun.Tx{}); err != nil {
		m.mu.Lock()
		m.users = users
		m.invites = invites
		m.orgs = orgs
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memRepo) Users() auth.Users                 { return &fakeUsers{repo: m} }
func (m *memRepo) Invites() auth.Invites             { return &fakeInvites{repo: m} }
func (m *memRepo) Organizations() auth.Organizations { return &fakeOrgs{repo: m} }

func (m *memRepo) addUser(u *auth.User) *auth.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		if u.ProviderUID != "" {
			if id, err := auth.UserIDFromProviderUID(u.ProviderUID); err == nil {
				u.ID = id
			}
		}
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
	}
	m.users[u.ID] = u
	return u
}

func (m *memRepo) addInvite(i *auth.Invite) *auth.Invite {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	m.invites[i.ID] = i
	return i
}

func (m *memRepo) addOrg(o *auth.Organization) *auth.Organization {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	m.orgs[o.ID] = o
	return o
}

func cloneUsers(src map[uuid.UUID]*auth.User) map[uuid.UUID]*auth.User {
	out := make(map[uuid.UUID]*auth.User, len(src))
	for k, v := range src {
		cp := *v
		out[k] = &cp
	}
	return out
}

func cloneInvites(src map[uuid.UUID]*auth.Invite) map[uuid.UUID]*auth.Invite {
	out := make(map[uuid.UUID]*auth.Invite, len(src))
	for k, v := range src {
		cp := *v
		out[k] = &cp
	}
	return out
}

func cloneOrgs(src map[uuid.UUID]*auth.Organization) map[uuid.UUID]*auth.Organization {
	out := make(map[uuid.UUID]*auth.Organization, len(src))
	for k, v := range src {
		cp := *v
		out[k] = &cp
	}
	return out
}

// fakeUsers implements the members the tests exercise; anything else panics
// through the embedded nil interface.
type fakeUsers struct {
	auth.Users
	repo *memRepo
}

func (f *fakeUsers) GetByProviderUID(ctx context.Context, uid string) (*auth.User, error) {
	return f.GetByProviderUIDTx(ctx, nil, uid)
}

func (f *fakeUsers) GetByProviderUIDTx(ctx context.Context, tx bun.IDB, uid string) (*auth.User, error) {
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	for _, u := range f.repo.users {
		if u.ProviderUID == uid {
			return u, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeUsers) GetSuperAdminByEmail(ctx context.Context, email string) (*auth.User, error) {
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	for _, u := range f.repo.users {
		if u.Email == email && u.IsSuperAdmin() {
			return u, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*auth.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, repository.NewRecordNotFound()
	}
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	if u, ok := f.repo.users[parsed]; ok {
		return u, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeUsers) Create(ctx context.Context, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	return f.CreateTx(ctx, nil, record, criteria...)
}

func (f *fakeUsers) CreateTx(ctx context.Context, tx bun.IDB, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	if f.repo.failCreateUser {
		return nil, errInjectedWrite
	}
	return f.repo.addUser(record), nil
}

func (f *fakeUsers) UpdateMembership(ctx context.Context, id uuid.UUID, role auth.MemberRole, orgID *uuid.UUID) (*auth.User, error) {
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	u, ok := f.repo.users[id]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	u.Role = role
	u.OrgID = orgID
	now := time.Now()
	u.UpdatedAt = &now
	return u, nil
}

func (f *fakeUsers) Deactivate(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return f.UpdateMembership(ctx, id, "", nil)
}

type fakeInvites struct {
	auth.Invites
	repo *memRepo
}

func (f *fakeInvites) FindPendingByEmail(ctx context.Context, email string) ([]*auth.Invite, error) {
	return f.FindPendingByEmailTx(ctx, nil, email)
}

func (f *fakeInvites) FindPendingByEmailTx(ctx context.Context, tx bun.IDB, email string) ([]*auth.Invite, error) {
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	var out []*auth.Invite
	for _, i := range f.repo.invites {
		if i.Email == email && i.Status == auth.InviteStatusPending {
			out = append(out, i)
		}
	}
	sortInvites(out)
	return out, nil
}

func (f *fakeInvites) FindConsumableByEmail(ctx context.Context, email string, now time.Time) ([]*auth.Invite, error) {
	return f.FindConsumableByEmailTx(ctx, nil, email, now)
}

func (f *fakeInvites) FindConsumableByEmailTx(ctx context.Context, tx bun.IDB, email string, now time.Time) ([]*auth.Invite, error) {
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	var out []*auth.Invite
	for _, i := range f.repo.invites {
		if i.Email == email && i.IsConsumable(now) {
			out = append(out, i)
		}
	}
	sortInvites(out)
	return out, nil
}

func (f *fakeInvites) HasConsumable(ctx context.Context, email string, now time.Time) (bool, error) {
	matches, err := f.FindConsumableByEmail(ctx, email, now)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

func (f *fakeInvites) AcceptTx(ctx context.Context, tx bun.IDB, id uuid.UUID, now time.Time) error {
	if f.repo.failAcceptInvite {
		return errInjectedWrite
	}
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	i, ok := f.repo.invites[id]
	if !ok || i.Status != auth.InviteStatusPending {
		return repository.NewRecordNotFound()
	}
	i.Status = auth.InviteStatusAccepted
	i.AcceptedAt = &now
	return nil
}

func (f *fakeInvites) DeletePending(ctx context.Context, id uuid.UUID) error {
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	i, ok := f.repo.invites[id]
	if !ok || i.Status != auth.InviteStatusPending {
		return repository.NewRecordNotFound()
	}
	delete(f.repo.invites, id)
	return nil
}

func (f *fakeInvites) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*auth.Invite, error) {
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	var out []*auth.Invite
	for _, i := range f.repo.invites {
		if i.OrgID == orgID {
			out = append(out, i)
		}
	}
	sortInvites(out)
	return out, nil
}

func (f *fakeInvites) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*auth.Invite, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, repository.NewRecordNotFound()
	}
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	if i, ok := f.repo.invites[parsed]; ok {
		return i, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeInvites) Create(ctx context.Context, record *auth.Invite, criteria ...repository.InsertCriteria) (*auth.Invite, error) {
	return f.repo.addInvite(record), nil
}

func sortInvites(invites []*auth.Invite) {
	for i := 1; i < len(invites); i++ {
		for j := i; j > 0; j-- {
			a, b := invites[j-1], invites[j]
			if a.CreatedAt != nil && b.CreatedAt != nil && a.CreatedAt.After(*b.CreatedAt) {
				invites[j-1], invites[j] = b, a
			}
		}
	}
}

type fakeOrgs struct {
	auth.Organizations
	repo *memRepo
}

func (f *fakeOrgs) GetBySlug(ctx context.Context, slug string) (*auth.Organization, error) {
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	for _, o := range f.repo.orgs {
		if o.Slug == slug {
			return o, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeOrgs) Create(ctx context.Context, record *auth.Organization, criteria ...repository.InsertCriteria) (*auth.Organization, error) {
	return f.repo.addOrg(record), nil
}

func (f *fakeOrgs) IncrementMemberCountTx(ctx context.Context, tx bun.IDB, id uuid.UUID, delta int) error {
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	o, ok := f.repo.orgs[id]
	if !ok {
		return repository.NewRecordNotFound()
	}
	o.MemberCount += delta
	return nil
}

// fakeIdentityStore records claim pushes and revocations.
type fakeIdentityStore struct {
	mu       sync.Mutex
	claims   map[string]map[string]any
	revoked  []string
	setErr   error
	revERror error
}

func newFakeIdentityStore() *fakeIdentityStore {
	return &fakeIdentityStore{claims: map[string]map[string]any{}}
}

func (f *fakeIdentityStore) SetClaims(ctx context.Context, uid string, claims map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.claims[uid] = claims
	return nil
}

func (f *fakeIdentityStore) RevokeRefreshTokens(ctx context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revERror != nil {
		return f.revERror
	}
	f.revoked = append(f.revoked, uid)
	return nil
}

// captureSink collects activity events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (c *captureSink) Record(ctx context.Context, event auth.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureSink) byType(t auth.ActivityEventType) []auth.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []auth.ActivityEvent
	for _, e := range c.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
