package memory

import (
	"context"
	"sync"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
)

// Mailbox captures outgoing email instead of delivering it. It backs
// EMAIL_TRANSPORT=log and the HTTP flow tests.
type Mailbox struct {
	mu   sync.Mutex
	sent []account.Email
	log  bool
}

func NewMailbox() *Mailbox { return &Mailbox{} }

// NewLoggingMailbox also writes each message to the service log so dev
// users can click the links.
func NewLoggingMailbox() *Mailbox { return &Mailbox{log: true} }

func (m *Mailbox) Send(ctx context.Context, msg account.Email) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	if m.log {
		logger.WithCtx(ctx).Info().
			Str("kind", string(msg.Kind)).
			Str("to", msg.To).
			Str("subject", msg.Subject).
			Str("html", msg.HTML).
			Msg("email captured")
	}
	return nil
}

func (m *Mailbox) Sent() []account.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]account.Email, len(m.sent))
	copy(out, m.sent)
	return out
}

// Last returns the most recent message sent to addr.
func (m *Mailbox) Last(to string) (account.Email, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == to {
			return m.sent[i], true
		}
	}
	return account.Email{}, false
}
