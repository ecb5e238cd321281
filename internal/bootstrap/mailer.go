package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/email"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/messaging/rabbitmq"
)

var mailerEmailsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "account_mailer",
		Name:      "emails_total",
		Help:      "Queued emails handled by the mailer, by kind and outcome",
	},
	[]string{"kind", "result"},
)

// consumerRunner is the part of rabbitmq.Consumer the mailer drives.
type consumerRunner interface {
	Run(ctx context.Context) error
}

// MailerApp drains the email queue into SMTP and serves /metrics.
type MailerApp struct {
	consumer consumerRunner
	metrics  *http.Server

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMailer() (*MailerApp, func(), error) {
	cfg, err := config.LoadMailer()
	if err != nil {
		return nil, nil, err
	}

	sender := email.NewSMTPSender(email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		Timeout:  cfg.SMTP.Timeout,
		Insecure: cfg.SMTP.Insecure,
	}, log.Logger)

	consumer := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		RabbitURL:  cfg.RabbitURL,
		Exchange:   cfg.Exchange,
		Queue:      cfg.Queue,
		Prefetch:   cfg.Prefetch,
		Tag:        "account-mailer",
		RetryDelay: cfg.RetryDelay,
		OnResult: func(kind account.EmailKind, r rabbitmq.Result) {
			mailerEmailsTotal.WithLabelValues(string(kind), string(r)).Inc()
		},
	}, sender, log.Logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	app := newMailerApp(consumer, &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	})

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
		defer cancel()
		_ = app.Stop(ctx)
	}
	return app, cleanup, nil
}

func newMailerApp(c consumerRunner, metrics *http.Server) *MailerApp {
	return &MailerApp{consumer: c, metrics: metrics}
}

// Start blocks until the consumer exits.
func (a *MailerApp) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	a.mu.Lock()
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()
	defer close(done)

	if a.metrics != nil {
		go func() {
			log.Info().Str("addr", a.metrics.Addr).Msg("mailer metrics listening")
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	return a.consumer.Run(ctx)
}

// Stop cancels the consumer and waits for it to return, bounded by ctx.
func (a *MailerApp) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.mu.Unlock()

	if a.metrics != nil {
		_ = a.metrics.Shutdown(ctx)
	}
	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
