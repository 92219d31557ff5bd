package messages

import (
	"fmt"
	"time"
)

// Template names the notification template the downstream pipeline renders.
type Template string

const (
	TemplateMediaVerificationReminder Template = "MEDIA_VERIFICATION_REMINDER"
	TemplateInactiveSignInReminder    Template = "INACTIVE_USER_SIGN_IN_REMINDER"
)

// DisplayDateLayout is the human-readable date format used in reminder bodies.
const DisplayDateLayout = "02 January 2006"

// FormatDisplayDate renders t for a reminder body.
func FormatDisplayDate(t time.Time) string {
	return t.Format(DisplayDateLayout)
}

// Subject returns the subject line for t.
func Subject(t Template) string {
	switch t {
	case TemplateMediaVerificationReminder:
		return MediaVerificationSubject
	case TemplateInactiveSignInReminder:
		return InactiveSignInSubject
	default:
		return ""
	}
}

// ─── Args builders ───────────────────────────────────────────────────────────

func MediaVerificationArgs(fullName string) map[string]string {
	return map[string]string{
		"fullName": fullName,
		"body":     fmt.Sprintf(MediaVerificationBody, fullName),
	}
}

func InactiveSignInArgs(fullName, provenance string, lastSignedIn time.Time) map[string]string {
	date := FormatDisplayDate(lastSignedIn)
	return map[string]string{
		"fullName":         fullName,
		"userProvenance":   provenance,
		"lastSignedInDate": date,
		"body":             fmt.Sprintf(InactiveSignInBody, fullName, date),
	}
}
