package email

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
	Insecure bool
}

// SMTPSender delivers account mail through an SMTP relay. It implements
// account.Mailer.
type SMTPSender struct {
	lg zerolog.Logger

	host     string
	port     int
	user     string
	pass     string
	from     string
	insecure bool
	timeout  time.Duration

	// dial is replaced in tests.
	dial func(ctx context.Context, c *mail.Client, m *mail.Msg) error
}

func NewSMTPSender(cfg SMTPConfig, lg zerolog.Logger) *SMTPSender {
	return &SMTPSender{
		lg:       lg.With().Str("component", "smtp_sender").Logger(),
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.Username,
		pass:     cfg.Password,
		from:     cfg.From,
		insecure: cfg.Insecure,
		timeout:  cfg.Timeout,
		dial: func(ctx context.Context, c *mail.Client, m *mail.Msg) error {
			return c.DialAndSendWithContext(ctx, m)
		},
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg account.Email) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	m, err := s.buildMsg(msg)
	if err != nil {
		return err
	}

	c, err := s.client()
	if err != nil {
		return PermanentError{msg: "smtp client init failed: " + err.Error()}
	}

	if err := s.dial(ctx, c, m); err != nil {
		s.lg.Error().Err(err).Str("kind", string(msg.Kind)).Msg("smtp send failed")
		return classify(err)
	}

	s.lg.Info().Str("kind", string(msg.Kind)).Msg("smtp send ok")
	return nil
}

func (s *SMTPSender) buildMsg(msg account.Email) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return nil, PermanentError{msg: "invalid from address: " + err.Error()}
	}
	if err := m.To(msg.To); err != nil {
		return nil, PermanentError{msg: "invalid to address: " + err.Error()}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}

func (s *SMTPSender) client() (*mail.Client, error) {
	tlsPolicy := mail.TLSMandatory
	if s.insecure {
		tlsPolicy = mail.TLSOpportunistic
	}

	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithTLSPolicy(tlsPolicy),
	}
	if s.user != "" {
		opts = append(opts, mail.WithSMTPAuth(mail.SMTPAuthPlain), mail.WithUsername(s.user), mail.WithPassword(s.pass))
	}
	return mail.NewClient(s.host, opts...)
}

// classify splits SMTP failures into retriable and terminal.
func classify(err error) error {
	msg := err.Error()
	switch {
	case containsAny(msg, "535", "5.7.8", "authentication", "Username and Password not accepted"):
		return PermanentError{msg: "smtp auth failed: " + msg}
	case containsAny(msg, "550", "553", "5.1.1"):
		return PermanentError{msg: "smtp recipient rejected: " + msg}
	default:
		return TemporaryError{msg: "smtp transient failure: " + msg}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, x := range subs {
		if x != "" && strings.Contains(s, x) {
			return true
		}
	}
	return false
}
