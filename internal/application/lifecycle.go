package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"vn.io.arda/account/internal/domain"
	"vn.io.arda/account/internal/messages"
	"vn.io.arda/account/internal/metrics"
)

// NotificationStep requests one reminder for one account. It reports failure to
// its caller instead of aborting anything.
type NotificationStep struct {
	dispatcher NotificationDispatcher
}

// NewNotificationStep creates a NotificationStep.
func NewNotificationStep(dispatcher NotificationDispatcher) *NotificationStep {
	return &NotificationStep{dispatcher: dispatcher}
}

// Notify dispatches template to the identity's email address.
func (s *NotificationStep) Notify(ctx context.Context, identity *domain.Identity, template messages.Template, args map[string]string) error {
	if identity.Email == "" {
		return fmt.Errorf("notify %s: account has no email address", identity.UserID)
	}
	if err := s.dispatcher.Send(ctx, identity.Email, template, args); err != nil {
		return fmt.Errorf("notify %s: %w", identity.UserID, err)
	}
	return nil
}

// AccountDeleter is the per-account deletion step used by deletion sweeps.
type AccountDeleter interface {
	DeleteAccount(ctx context.Context, userID uuid.UUID) (DeletionOutcome, error)
}

// SweepReport summarises one sweep run.
type SweepReport struct {
	Kind          domain.SweepKind `json:"kind"`
	Selected      int              `json:"selected"`
	Succeeded     int              `json:"succeeded"`
	Failed        int              `json:"failed"`
	FailedUserIDs []uuid.UUID      `json:"failedUserIds,omitempty"`
	StartedAt     time.Time        `json:"startedAt"`
	Duration      time.Duration    `json:"durationNs"`
}

type sweep struct {
	selectFn func(ctx context.Context) ([]*domain.Identity, error)
	actionFn func(ctx context.Context, identity *domain.Identity) error
}

type itemResult struct {
	userID uuid.UUID
	err    error
}

// LifecycleScheduler drives the dormancy sweeps. Each sweep selects accounts by
// inactivity age and applies a reminder or a deletion to each one. A failure for
// one account never affects its siblings or any other sweep.
type LifecycleScheduler struct {
	accounts       domain.AccountRepository
	notifier       *NotificationStep
	deleter        AccountDeleter
	thresholds     domain.RetentionThresholds
	maxConcurrency int
	metrics        metrics.Recorder
	now            func() time.Time
	sweeps         map[domain.SweepKind]sweep
}

// NewLifecycleScheduler creates a scheduler. maxConcurrency <= 0 falls back to 10.
func NewLifecycleScheduler(
	accounts domain.AccountRepository,
	notifier *NotificationStep,
	deleter AccountDeleter,
	thresholds domain.RetentionThresholds,
	maxConcurrency int,
	rec metrics.Recorder,
) *LifecycleScheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	s := &LifecycleScheduler{
		accounts:       accounts,
		notifier:       notifier,
		deleter:        deleter,
		thresholds:     thresholds,
		maxConcurrency: maxConcurrency,
		metrics:        rec,
		now:            time.Now,
	}
	s.sweeps = s.buildSweeps()
	return s
}

func (s *LifecycleScheduler) buildSweeps() map[domain.SweepKind]sweep {
	t := s.thresholds
	return map[domain.SweepKind]sweep{
		domain.SweepMediaVerificationReminder: {
			selectFn: func(ctx context.Context) ([]*domain.Identity, error) {
				return s.accounts.MediaForVerificationReminder(ctx, t.MediaVerificationDays)
			},
			actionFn: s.remindVerification,
		},
		domain.SweepSignInReminder: {
			selectFn: func(ctx context.Context) ([]*domain.Identity, error) {
				return s.accounts.CourtSystemsForSignInReminder(ctx, t.CourtSystemASignInDays, t.CourtSystemBSignInDays)
			},
			actionFn: s.remindSignIn,
		},
		domain.SweepMediaDeletion: {
			selectFn: func(ctx context.Context) ([]*domain.Identity, error) {
				return s.accounts.MediaForDeletion(ctx, t.MediaDeletionDays)
			},
			actionFn: s.delete,
		},
		domain.SweepAdminDeletion: {
			selectFn: func(ctx context.Context) ([]*domain.Identity, error) {
				return s.accounts.AdminsForDeletion(ctx, t.AdminAADDeletionDays, t.AdminSSODeletionDays)
			},
			actionFn: s.delete,
		},
		domain.SweepCourtSystemADeletion: {
			selectFn: func(ctx context.Context) ([]*domain.Identity, error) {
				return s.accounts.CourtSystemAForDeletion(ctx, t.CourtSystemADeleteDays)
			},
			actionFn: s.delete,
		},
		domain.SweepCourtSystemBDeletion: {
			selectFn: func(ctx context.Context) ([]*domain.Identity, error) {
				return s.accounts.CourtSystemBForDeletion(ctx, t.CourtSystemBDeleteDays)
			},
			actionFn: s.delete,
		},
	}
}

func (s *LifecycleScheduler) remindVerification(ctx context.Context, identity *domain.Identity) error {
	return s.notifier.Notify(ctx, identity, messages.TemplateMediaVerificationReminder,
		messages.MediaVerificationArgs(identity.FullName()))
}

func (s *LifecycleScheduler) remindSignIn(ctx context.Context, identity *domain.Identity) error {
	last := identity.CreatedDate
	if identity.LastSignedInDate != nil {
		last = *identity.LastSignedInDate
	}
	return s.notifier.Notify(ctx, identity, messages.TemplateInactiveSignInReminder,
		messages.InactiveSignInArgs(identity.FullName(), string(identity.Provenance), last))
}

func (s *LifecycleScheduler) delete(ctx context.Context, identity *domain.Identity) error {
	_, err := s.deleter.DeleteAccount(ctx, identity.UserID)
	return err
}

// Start runs every sweep immediately and then once per interval until ctx is cancelled.
func (s *LifecycleScheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", interval).
		Int("max_concurrency", s.maxConcurrency).
		Msg("lifecycle scheduler started")

	s.RunAll(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("lifecycle scheduler stopped")
			return
		case <-ticker.C:
			s.RunAll(ctx)
		}
	}
}

// RunAll runs every sweep once. A sweep whose selection query fails is logged
// and skipped; the remaining sweeps still run.
func (s *LifecycleScheduler) RunAll(ctx context.Context) []SweepReport {
	reports := make([]SweepReport, 0, len(s.sweeps))
	for _, kind := range domain.AllSweepKinds() {
		report, err := s.RunSweep(ctx, kind)
		if err != nil {
			log.Error().Err(err).Str("sweep", string(kind)).Msg("lifecycle sweep failed")
			continue
		}
		reports = append(reports, report)
	}
	return reports
}

// RunSweep runs one sweep to completion. The returned error covers only the
// selection query or an unknown kind; per-account failures are in the report.
func (s *LifecycleScheduler) RunSweep(ctx context.Context, kind domain.SweepKind) (SweepReport, error) {
	sw, ok := s.sweeps[kind]
	if !ok {
		return SweepReport{}, fmt.Errorf("unknown sweep %q: %w", kind, domain.ErrValidation)
	}

	start := s.now()
	report := SweepReport{Kind: kind, StartedAt: start.UTC()}

	identities, err := sw.selectFn(ctx)
	if err != nil {
		return report, fmt.Errorf("select accounts for %s: %w", kind, err)
	}
	report.Selected = len(identities)

	// Once selected, every account is processed even if the caller goes away.
	runCtx := context.WithoutCancel(ctx)

	var (
		mu      sync.Mutex
		results = make([]itemResult, 0, len(identities))
		g       errgroup.Group
	)
	g.SetLimit(s.maxConcurrency)

	for _, identity := range identities {
		g.Go(func() error {
			err := s.runItem(runCtx, kind, sw, identity)
			mu.Lock()
			results = append(results, itemResult{userID: identity.UserID, err: err})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := lo.Filter(results, func(r itemResult, _ int) bool { return r.err != nil })
	report.Failed = len(failed)
	report.Succeeded = len(results) - len(failed)
	report.FailedUserIDs = lo.Map(failed, func(r itemResult, _ int) uuid.UUID { return r.userID })
	report.Duration = s.now().Sub(start)

	s.metrics.RecordSweepDuration(string(kind), report.Duration)
	log.Info().
		Str("sweep", string(kind)).
		Int("selected", report.Selected).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("lifecycle sweep completed")

	return report, nil
}

// runItem applies the sweep action to one account, converting panics into
// failures so one bad record cannot take the sweep down.
func (s *LifecycleScheduler) runItem(ctx context.Context, kind domain.SweepKind, sw sweep, identity *domain.Identity) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			s.metrics.RecordSweepItem(string(kind), metrics.OutcomeFailure)
			log.Warn().Err(err).
				Str("sweep", string(kind)).
				Str("user_id", identity.UserID.String()).
				Msg("lifecycle sweep item failed, skipping")
			return
		}
		s.metrics.RecordSweepItem(string(kind), metrics.OutcomeSuccess)
	}()
	return sw.actionFn(ctx, identity)
}
