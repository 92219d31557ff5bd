package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"vn.io.arda/account/internal/domain"
	"vn.io.arda/account/internal/messages"
	"vn.io.arda/account/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func daysAgo(d int) *time.Time {
	return ptr(fixedNow.AddDate(0, 0, -d))
}

// recordingDeleter records deleted ids and fails for the ids in failFor.
type recordingDeleter struct {
	mu      sync.Mutex
	deleted []uuid.UUID
	failFor map[uuid.UUID]bool
}

func (d *recordingDeleter) DeleteAccount(_ context.Context, id uuid.UUID) (DeletionOutcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFor[id] {
		return DeletionOutcome{UserID: id}, errors.New("store unavailable")
	}
	d.deleted = append(d.deleted, id)
	return DeletionOutcome{UserID: id, LocalDeleted: true}, nil
}

// countingRecorder counts sweep item outcomes.
type countingRecorder struct {
	metrics.Nop
	mu    sync.Mutex
	items map[string]int
}

func (r *countingRecorder) RecordSweepItem(sweep, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items == nil {
		r.items = map[string]int{}
	}
	r.items[sweep+"/"+outcome]++
}

func newTestScheduler(repo *memAccounts, dispatcher NotificationDispatcher, deleter AccountDeleter, rec metrics.Recorder) *LifecycleScheduler {
	s := NewLifecycleScheduler(repo, NewNotificationStep(dispatcher), deleter,
		domain.DefaultRetentionThresholds(), 3, rec)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestMediaVerificationReminder_SelectsByThreshold(t *testing.T) {
	repo := newMemAccounts(fixedNow)
	due := &domain.Identity{UserID: uuid.New(), Role: domain.RoleVerifiedMedia, Provenance: domain.ProvenanceExternalIdP,
		Email: "due@news.example", Forenames: "Ann", LastVerifiedDate: daysAgo(350)}
	notDue := &domain.Identity{UserID: uuid.New(), Role: domain.RoleVerifiedMedia, Provenance: domain.ProvenanceExternalIdP,
		Email: "fresh@news.example", LastVerifiedDate: daysAgo(349)}
	admin := &domain.Identity{UserID: uuid.New(), Role: domain.RoleSystemAdmin, Provenance: domain.ProvenanceInternalSSO,
		Email: "admin@justice.example", LastVerifiedDate: daysAgo(400)}
	repo.put(due, notDue, admin)

	dispatcher := new(MockDispatcher)
	dispatcher.On("Send", mock.Anything, "due@news.example", messages.TemplateMediaVerificationReminder,
		messages.MediaVerificationArgs("Ann")).Return(nil).Once()

	report, err := newTestScheduler(repo, dispatcher, &recordingDeleter{}, nil).
		RunSweep(context.Background(), domain.SweepMediaVerificationReminder)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Selected)
	assert.Equal(t, 1, report.Succeeded)
	assert.Zero(t, report.Failed)
	dispatcher.AssertExpectations(t)
}

func TestSignInReminder_UsesPerSystemThresholds(t *testing.T) {
	repo := newMemAccounts(fixedNow)
	aDue := &domain.Identity{UserID: uuid.New(), Provenance: domain.ProvenanceCourtSystemA, Role: domain.RoleVerifiedMedia,
		Email: "a-due@court.example", Forenames: "Bo", LastSignedInDate: daysAgo(118)}
	aFresh := &domain.Identity{UserID: uuid.New(), Provenance: domain.ProvenanceCourtSystemA, Role: domain.RoleVerifiedMedia,
		Email: "a-fresh@court.example", LastSignedInDate: daysAgo(117)}
	bFresh := &domain.Identity{UserID: uuid.New(), Provenance: domain.ProvenanceCourtSystemB, Role: domain.RoleVerifiedMedia,
		Email: "b-fresh@court.example", LastSignedInDate: daysAgo(150)}
	bDue := &domain.Identity{UserID: uuid.New(), Provenance: domain.ProvenanceCourtSystemB, Role: domain.RoleVerifiedMedia,
		Email: "b-due@court.example", Forenames: "Cy", LastSignedInDate: daysAgo(180)}
	repo.put(aDue, aFresh, bFresh, bDue)

	dispatcher := new(MockDispatcher)
	dispatcher.On("Send", mock.Anything, "a-due@court.example", messages.TemplateInactiveSignInReminder,
		messages.InactiveSignInArgs("Bo", "CFT_IDAM", *aDue.LastSignedInDate)).Return(nil).Once()
	dispatcher.On("Send", mock.Anything, "b-due@court.example", messages.TemplateInactiveSignInReminder,
		messages.InactiveSignInArgs("Cy", "CRIME_IDAM", *bDue.LastSignedInDate)).Return(nil).Once()

	report, err := newTestScheduler(repo, dispatcher, &recordingDeleter{}, nil).
		RunSweep(context.Background(), domain.SweepSignInReminder)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Selected)
	assert.Equal(t, 2, report.Succeeded)
	dispatcher.AssertExpectations(t)
}

func TestReminder_FailureIsolatedToOneAccount(t *testing.T) {
	repo := newMemAccounts(fixedNow)
	for _, email := range []string{"a@news.example", "b@news.example", "c@news.example", "d@news.example"} {
		id := &domain.Identity{UserID: uuid.New(), Role: domain.RoleVerifiedMedia, Provenance: domain.ProvenanceExternalIdP,
			Email: email, LastVerifiedDate: daysAgo(360)}
		repo.put(id)
	}
	var failing uuid.UUID
	for _, id := range repo.filter(func(i *domain.Identity) bool { return i.Email == "b@news.example" }) {
		failing = id.UserID
	}

	dispatcher := new(MockDispatcher)
	dispatcher.On("Send", mock.Anything, "b@news.example", mock.Anything, mock.Anything).Return(errors.New("queue full"))
	dispatcher.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	rec := &countingRecorder{}
	report, err := newTestScheduler(repo, dispatcher, &recordingDeleter{}, rec).
		RunSweep(context.Background(), domain.SweepMediaVerificationReminder)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Selected)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []uuid.UUID{failing}, report.FailedUserIDs)
	dispatcher.AssertNumberOfCalls(t, "Send", 4)

	assert.Equal(t, 3, rec.items["media-verification-reminder/success"])
	assert.Equal(t, 1, rec.items["media-verification-reminder/failure"])
}

func TestReminder_MissingEmailCountsAsFailure(t *testing.T) {
	repo := newMemAccounts(fixedNow)
	repo.put(&domain.Identity{UserID: uuid.New(), Role: domain.RoleVerifiedMedia, Provenance: domain.ProvenanceExternalIdP,
		LastVerifiedDate: daysAgo(360)})

	dispatcher := new(MockDispatcher)
	report, err := newTestScheduler(repo, dispatcher, &recordingDeleter{}, nil).
		RunSweep(context.Background(), domain.SweepMediaVerificationReminder)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	dispatcher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeletionSweeps_SelectAndDelete(t *testing.T) {
	media := &domain.Identity{UserID: uuid.New(), Role: domain.RoleVerifiedMedia, Provenance: domain.ProvenanceExternalIdP,
		Email: "m@news.example", LastVerifiedDate: daysAgo(365)}
	mediaFresh := &domain.Identity{UserID: uuid.New(), Role: domain.RoleVerifiedMedia, Provenance: domain.ProvenanceExternalIdP,
		Email: "m2@news.example", LastVerifiedDate: daysAgo(364)}
	ssoAdmin := &domain.Identity{UserID: uuid.New(), Role: domain.RoleInternalAdminCTSC, Provenance: domain.ProvenanceInternalSSO,
		Email: "sso@justice.example", LastSignedInDate: daysAgo(90)}
	aadAdmin := &domain.Identity{UserID: uuid.New(), Role: domain.RoleInternalAdminLocal, Provenance: domain.ProvenanceExternalIdP,
		Email: "aad@justice.example", LastSignedInDate: daysAgo(89)}
	courtA := &domain.Identity{UserID: uuid.New(), Role: domain.RoleVerifiedMedia, Provenance: domain.ProvenanceCourtSystemA,
		Email: "a@court.example", LastSignedInDate: daysAgo(132)}
	courtB := &domain.Identity{UserID: uuid.New(), Role: domain.RoleVerifiedMedia, Provenance: domain.ProvenanceCourtSystemB,
		Email: "b@court.example", LastSignedInDate: daysAgo(207)}

	cases := []struct {
		kind domain.SweepKind
		want []uuid.UUID
	}{
		{domain.SweepMediaDeletion, []uuid.UUID{media.UserID}},
		{domain.SweepAdminDeletion, []uuid.UUID{ssoAdmin.UserID}},
		{domain.SweepCourtSystemADeletion, []uuid.UUID{courtA.UserID}},
		{domain.SweepCourtSystemBDeletion, nil},
	}
	for _, c := range cases {
		t.Run(string(c.kind), func(t *testing.T) {
			repo := newMemAccounts(fixedNow)
			repo.put(media, mediaFresh, ssoAdmin, aadAdmin, courtA, courtB)
			deleter := &recordingDeleter{}

			report, err := newTestScheduler(repo, new(MockDispatcher), deleter, nil).RunSweep(context.Background(), c.kind)
			require.NoError(t, err)
			assert.Equal(t, len(c.want), report.Selected)
			assert.ElementsMatch(t, c.want, deleter.deleted)
		})
	}
}

func TestDeletionSweep_OneFailureDoesNotStopOthers(t *testing.T) {
	repo := newMemAccounts(fixedNow)
	var all []uuid.UUID
	for i := 0; i < 10; i++ {
		id := &domain.Identity{UserID: uuid.New(), Role: domain.RoleVerifiedMedia, Provenance: domain.ProvenanceCourtSystemA,
			Email: uuid.NewString() + "@court.example", LastSignedInDate: daysAgo(200)}
		repo.put(id)
		all = append(all, id.UserID)
	}
	deleter := &recordingDeleter{failFor: map[uuid.UUID]bool{all[4]: true}}

	report, err := newTestScheduler(repo, new(MockDispatcher), deleter, nil).
		RunSweep(context.Background(), domain.SweepCourtSystemADeletion)
	require.NoError(t, err)

	assert.Equal(t, 10, report.Selected)
	assert.Equal(t, 9, report.Succeeded)
	assert.Equal(t, []uuid.UUID{all[4]}, report.FailedUserIDs)
	assert.ElementsMatch(t, append(append([]uuid.UUID{}, all[:4]...), all[5:]...), deleter.deleted)
}

func TestRunSweep_PanicIsContained(t *testing.T) {
	repo := newMemAccounts(fixedNow)
	repo.put(&domain.Identity{UserID: uuid.New(), Role: domain.RoleVerifiedMedia, Provenance: domain.ProvenanceExternalIdP,
		Email: "p@news.example", LastVerifiedDate: daysAgo(400)})

	s := newTestScheduler(repo, new(MockDispatcher), &recordingDeleter{}, nil)
	s.sweeps[domain.SweepMediaDeletion] = sweep{
		selectFn: s.sweeps[domain.SweepMediaDeletion].selectFn,
		actionFn: func(context.Context, *domain.Identity) error { panic("boom") },
	}

	report, err := s.RunSweep(context.Background(), domain.SweepMediaDeletion)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
}

func TestRunSweep_UnknownKind(t *testing.T) {
	s := newTestScheduler(newMemAccounts(fixedNow), new(MockDispatcher), &recordingDeleter{}, nil)
	_, err := s.RunSweep(context.Background(), domain.SweepKind("purge-everything"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRunAll_SelectionFailureSkipsOnlyThatSweep(t *testing.T) {
	repo := newMemAccounts(fixedNow)
	repo.fail["MediaForVerificationReminder"] = errors.New("statement timeout")
	courtB := &domain.Identity{UserID: uuid.New(), Role: domain.RoleVerifiedMedia, Provenance: domain.ProvenanceCourtSystemB,
		Email: "b@court.example", LastSignedInDate: daysAgo(300)}
	repo.put(courtB)

	dispatcher := new(MockDispatcher)
	dispatcher.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	deleter := &recordingDeleter{}

	reports := newTestScheduler(repo, dispatcher, deleter, nil).RunAll(context.Background())

	require.Len(t, reports, len(domain.AllSweepKinds())-1)
	for _, r := range reports {
		assert.NotEqual(t, domain.SweepMediaVerificationReminder, r.Kind)
	}
	assert.Contains(t, deleter.deleted, courtB.UserID)
}

func TestRunSweep_CompletesAfterCallerCancels(t *testing.T) {
	repo := newMemAccounts(fixedNow)
	for i := 0; i < 5; i++ {
		repo.put(&domain.Identity{UserID: uuid.New(), Role: domain.RoleVerifiedMedia, Provenance: domain.ProvenanceCourtSystemA,
			Email: uuid.NewString() + "@court.example", LastSignedInDate: daysAgo(200)})
	}

	ctx, cancel := context.WithCancel(context.Background())
	deleter := &cancellingDeleter{cancel: cancel}

	report, err := newTestScheduler(repo, new(MockDispatcher), deleter, nil).
		RunSweep(ctx, domain.SweepCourtSystemADeletion)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Succeeded)
}

// cancellingDeleter cancels the caller's context on first use and fails if the
// context it receives is ever cancelled.
type cancellingDeleter struct {
	once   sync.Once
	cancel context.CancelFunc
}

func (d *cancellingDeleter) DeleteAccount(ctx context.Context, id uuid.UUID) (DeletionOutcome, error) {
	d.once.Do(d.cancel)
	if err := ctx.Err(); err != nil {
		return DeletionOutcome{}, err
	}
	return DeletionOutcome{UserID: id, LocalDeleted: true}, nil
}

func TestStart_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := newMemAccounts(fixedNow)
	s := newTestScheduler(repo, new(MockDispatcher), &recordingDeleter{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
