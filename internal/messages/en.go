package messages

// ─── Media ───────────────────────────────────────────────────────────────────

const (
	MediaVerificationSubject = "Confirm your court and tribunal hearings account"
	MediaVerificationBody    = "Hello %s, please sign in to confirm you still need your verified media account."
)

// ─── Sign-in ─────────────────────────────────────────────────────────────────

const (
	InactiveSignInSubject = "Your court and tribunal hearings account will be deleted"
	InactiveSignInBody    = "Hello %s, you last signed in on %s. Sign in to keep your account."
)
