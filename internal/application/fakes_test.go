package application

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"vn.io.arda/account/internal/domain"
	"vn.io.arda/account/internal/messages"
)

// memAccounts is an in-memory AccountRepository. The dormancy projections use
// the same "age >= days" cutoffs as the postgres queries.
type memAccounts struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.Identity
	now  func() time.Time

	creates int
	// errors injected per method name
	fail map[string]error
}

func newMemAccounts(now time.Time) *memAccounts {
	return &memAccounts{
		rows: map[uuid.UUID]*domain.Identity{},
		now:  func() time.Time { return now },
		fail: map[string]error{},
	}
}

func (m *memAccounts) put(ids ...*domain.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		cp := *id
		m.rows[id.UserID] = &cp
	}
}

func (m *memAccounts) has(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok
}

func (m *memAccounts) FindByID(_ context.Context, id uuid.UUID) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["FindByID"]; err != nil {
		return nil, err
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *memAccounts) FindByEmailAndProvenance(_ context.Context, email string, p domain.Provenance) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["FindByEmailAndProvenance"]; err != nil {
		return nil, err
	}
	for _, row := range m.rows {
		if strings.EqualFold(row.Email, email) && row.Provenance == p {
			cp := *row
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAccounts) FindByProvenanceUserID(_ context.Context, p domain.Provenance, pid string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Provenance == p && row.ProvenanceUserID == pid {
			cp := *row
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAccounts) FindByRole(_ context.Context, role domain.Role) ([]*domain.Identity, error) {
	return m.filter(func(i *domain.Identity) bool { return i.Role == role }), nil
}

func (m *memAccounts) CountByRoleAndProvenance(_ context.Context, role domain.Role, p domain.Provenance) (int, error) {
	if err := m.fail["CountByRoleAndProvenance"]; err != nil {
		return 0, err
	}
	return len(m.filter(func(i *domain.Identity) bool { return i.Role == role && i.Provenance == p })), nil
}

func (m *memAccounts) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["Create"]; err != nil {
		return nil, err
	}
	for _, row := range m.rows {
		if strings.EqualFold(row.Email, identity.Email) && row.Provenance == identity.Provenance {
			return nil, domain.ErrDuplicate
		}
	}
	m.creates++
	cp := *identity
	m.rows[identity.UserID] = &cp
	return identity, nil
}

func (m *memAccounts) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["Delete"]; err != nil {
		return false, err
	}
	_, ok := m.rows[id]
	delete(m.rows, id)
	return ok, nil
}

func (m *memAccounts) UpdateLastVerifiedDate(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	row.LastVerifiedDate = &at
	return nil
}

func (m *memAccounts) UpdateLastSignedInDate(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	row.LastSignedInDate = &at
	return nil
}

func (m *memAccounts) olderThan(t *time.Time, days int) bool {
	return t != nil && !t.After(m.now().AddDate(0, 0, -days))
}

func (m *memAccounts) MediaForVerificationReminder(_ context.Context, days int) ([]*domain.Identity, error) {
	if err := m.fail["MediaForVerificationReminder"]; err != nil {
		return nil, err
	}
	return m.filter(func(i *domain.Identity) bool {
		return i.Role == domain.RoleVerifiedMedia && m.olderThan(i.LastVerifiedDate, days)
	}), nil
}

func (m *memAccounts) MediaForDeletion(ctx context.Context, days int) ([]*domain.Identity, error) {
	if err := m.fail["MediaForDeletion"]; err != nil {
		return nil, err
	}
	return m.filter(func(i *domain.Identity) bool {
		return i.Role == domain.RoleVerifiedMedia && m.olderThan(i.LastVerifiedDate, days)
	}), nil
}

func (m *memAccounts) CourtSystemsForSignInReminder(_ context.Context, daysA, daysB int) ([]*domain.Identity, error) {
	return m.filter(func(i *domain.Identity) bool {
		switch i.Provenance {
		case domain.ProvenanceCourtSystemA:
			return m.olderThan(i.LastSignedInDate, daysA)
		case domain.ProvenanceCourtSystemB:
			return m.olderThan(i.LastSignedInDate, daysB)
		}
		return false
	}), nil
}

func (m *memAccounts) AdminsForDeletion(_ context.Context, aadDays, ssoDays int) ([]*domain.Identity, error) {
	return m.filter(func(i *domain.Identity) bool {
		if !i.Role.IsAdmin() {
			return false
		}
		switch i.Provenance {
		case domain.ProvenanceExternalIdP:
			return m.olderThan(i.LastSignedInDate, aadDays)
		case domain.ProvenanceInternalSSO:
			return m.olderThan(i.LastSignedInDate, ssoDays)
		}
		return false
	}), nil
}

func (m *memAccounts) CourtSystemAForDeletion(_ context.Context, days int) ([]*domain.Identity, error) {
	return m.filter(func(i *domain.Identity) bool {
		return i.Provenance == domain.ProvenanceCourtSystemA && m.olderThan(i.LastSignedInDate, days)
	}), nil
}

func (m *memAccounts) CourtSystemBForDeletion(_ context.Context, days int) ([]*domain.Identity, error) {
	return m.filter(func(i *domain.Identity) bool {
		return i.Provenance == domain.ProvenanceCourtSystemB && m.olderThan(i.LastSignedInDate, days)
	}), nil
}

func (m *memAccounts) filter(keep func(*domain.Identity) bool) []*domain.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Identity
	for _, row := range m.rows {
		if keep(row) {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// memSubscriptions is an in-memory SubscriptionStore.
type memSubscriptions struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int64
	err    error
}

func newMemSubscriptions() *memSubscriptions {
	return &memSubscriptions{counts: map[uuid.UUID]int64{}}
}

func (m *memSubscriptions) DeleteAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	n := m.counts[userID]
	delete(m.counts, userID)
	return n, nil
}

// MockIdentityProvider implements IdentityProvider.
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) CreateUser(ctx context.Context, email, firstName, surname string) (string, error) {
	args := m.Called(ctx, email, firstName, surname)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityProvider) DeleteUser(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// MockDispatcher implements NotificationDispatcher.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Send(ctx context.Context, email string, template messages.Template, args map[string]string) error {
	a := m.Called(ctx, email, template, args)
	return a.Error(0)
}

// MockPolicy implements PolicyService.
type MockPolicy struct {
	mock.Mock
}

func (m *MockPolicy) CanManage(ctx context.Context, requesterID string) (bool, error) {
	args := m.Called(ctx, requesterID)
	return args.Bool(0), args.Error(1)
}

func ptr[T any](v T) *T { return &v }
