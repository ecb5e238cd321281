package domain

// Reason is a short code carried on the login redirect so the landing page
// can show a message.
type Reason string

const (
	ReasonLogin          Reason = "login"
	ReasonBlocked        Reason = "blocked"
	ReasonUnverified     Reason = "unverified"
	ReasonUnverifiedSent Reason = "unverified_sent"
	ReasonResent         Reason = "resent"
	ReasonWait           Reason = "wait"
	ReasonResetSent      Reason = "reset_sent"
	ReasonResetWait      Reason = "reset_wait"
	ReasonResetDone      Reason = "reset_done"
)

var reasonMessages = map[Reason]string{
	ReasonLogin:          "Please log in.",
	ReasonBlocked:        "Your account is blocked.",
	ReasonUnverified:     "Please verify your email.",
	ReasonUnverifiedSent: "Registration successful. Check your email to verify your account.",
	ReasonResent:         "Verification email resent. Check your inbox.",
	ReasonWait:           "Please wait a minute before requesting another email.",
	ReasonResetSent:      "Password reset email sent. Check your inbox.",
	ReasonResetWait:      "Please wait a minute before requesting another reset email.",
	ReasonResetDone:      "Password reset successful. You can now log in.",
}

// Message returns the user-facing text for r, or "" for unknown codes.
func (r Reason) Message() string {
	return reasonMessages[r]
}

func (r Reason) Known() bool {
	_, ok := reasonMessages[r]
	return ok
}
