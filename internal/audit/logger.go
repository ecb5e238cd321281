package audit

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	appCtx "github.com/baechuer/real-time-ressys/services/account-service/internal/pkg/context"
)

// Logger provides structured audit logging for account lifecycle events.
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// Record writes one audit event. Failures and moderation are logged at
// warn level, everything else at info. Email fields are masked.
func (l *Logger) Record(action string, fields map[string]string) {
	l.RecordCtx(context.Background(), action, fields)
}

func (l *Logger) RecordCtx(ctx context.Context, action string, fields map[string]string) {
	evt := l.log.Info()
	if isWarn(action) {
		evt = l.log.Warn()
	}
	evt = evt.Str("action", action)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		if k == "email" {
			v = maskEmail(v)
		}
		evt = evt.Str(k, v)
	}
	if id := appCtx.GetRequestID(ctx); id != "" {
		evt = evt.Str("request_id", id)
	}
	evt.Msg("audit")
}

func isWarn(action string) bool {
	return strings.HasSuffix(action, "_failed") ||
		strings.HasSuffix(action, ".blocked") ||
		strings.HasSuffix(action, ".deleted") ||
		strings.HasSuffix(action, "_purged")
}

// maskEmail partially masks email for privacy in logs
func maskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email[:2] + "***"
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
