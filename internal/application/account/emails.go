package account

import (
	"fmt"
	"html"
	"net/url"
	"time"
)

func (s *Service) verificationEmail(to, token string) Email {
	link := s.verifyEmailBaseURL + url.QueryEscape(token)
	return Email{
		Kind:    EmailVerify,
		To:      to,
		Subject: "Confirm your email",
		HTML: fmt.Sprintf(
			`<p>Thanks for registering.</p><p>Please confirm your email by clicking the link below:</p>`+
				`<p><a href="%s">Confirm email</a></p><p>This link expires in %s.</p>`,
			html.EscapeString(link), humanDuration(s.verifyEmailTTL),
		),
	}
}

func (s *Service) passwordResetEmail(to, token string) Email {
	link := s.passwordResetBaseURL + url.QueryEscape(token)
	return Email{
		Kind:    EmailPasswordReset,
		To:      to,
		Subject: "Reset your password",
		HTML: fmt.Sprintf(
			`<p>We received a request to reset your password.</p>`+
				`<p><a href="%s">Reset password</a></p>`+
				`<p>This link expires in %s. If you did not request this, ignore this email.</p>`,
			html.EscapeString(link), humanDuration(s.passwordResetTTL),
		),
	}
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
