package domain

import (
	"time"

	"github.com/google/uuid"
)

// SweepKind names one of the dormancy sweeps run by the lifecycle scheduler.
type SweepKind string

const (
	SweepMediaVerificationReminder SweepKind = "media-verification-reminder"
	SweepSignInReminder            SweepKind = "sign-in-reminder"
	SweepMediaDeletion             SweepKind = "media-deletion"
	SweepAdminDeletion             SweepKind = "admin-deletion"
	SweepCourtSystemADeletion      SweepKind = "court-system-a-deletion"
	SweepCourtSystemBDeletion      SweepKind = "court-system-b-deletion"
)

// AllSweepKinds returns the sweeps in their default run order.
func AllSweepKinds() []SweepKind {
	return []SweepKind{
		SweepMediaVerificationReminder,
		SweepSignInReminder,
		SweepMediaDeletion,
		SweepAdminDeletion,
		SweepCourtSystemADeletion,
		SweepCourtSystemBDeletion,
	}
}

// IsKnown reports whether k is a declared sweep.
func (k SweepKind) IsKnown() bool {
	for _, known := range AllSweepKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// RetentionThresholds are the day counts governing the dormancy sweeps.
// Values are copied into each component at construction and never mutated.
type RetentionThresholds struct {
	MediaVerificationDays  int
	MediaDeletionDays      int
	AdminAADDeletionDays   int
	AdminSSODeletionDays   int
	CourtSystemASignInDays int
	CourtSystemADeleteDays int
	CourtSystemBSignInDays int
	CourtSystemBDeleteDays int
}

// DefaultRetentionThresholds mirrors the platform's production settings.
func DefaultRetentionThresholds() RetentionThresholds {
	return RetentionThresholds{
		MediaVerificationDays:  350,
		MediaDeletionDays:      365,
		AdminAADDeletionDays:   90,
		AdminSSODeletionDays:   90,
		CourtSystemASignInDays: 118,
		CourtSystemADeleteDays: 132,
		CourtSystemBSignInDays: 180,
		CourtSystemBDeleteDays: 208,
	}
}

// AccountEventType names an external sign-in or verification event.
type AccountEventType string

const (
	EventSignedIn      AccountEventType = "SIGNED_IN"
	EventMediaVerified AccountEventType = "MEDIA_VERIFIED"
)

// AccountEvent is an inbound activity event that refreshes dormancy timestamps.
type AccountEvent struct {
	Type       AccountEventType
	UserID     uuid.UUID
	OccurredAt time.Time
	EventID    string
}
