package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	LoginPath        string

	// Storage
	StoreDriver string // postgres / memory
	DBAddr      string
	DBDebug     bool
	DBMigrate   bool

	// Sessions
	SessionSecret     string
	SessionCookieName string
	SessionTTL        time.Duration
	PasswordHasher    string // sha256 / bcrypt
	BcryptCost        int

	// Optional infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitURL      string
	RabbitExchange string
	EmailQueue     string

	// Email
	EmailTransport  string // smtp / rabbitmq / log
	EmailBestEffort bool
	SMTP            SMTPConfig

	// One-time token flows
	VerifyEmailBaseURL    string
	PasswordResetBaseURL  string
	VerifyEmailTokenTTL   time.Duration
	PasswordResetTokenTTL time.Duration
	EmailResendCooldown   time.Duration

	// Rate limiting on the anonymous auth endpoints; 0 disables
	RLAuthLimit  int
	RLAuthWindow time.Duration

	// Dev seed
	SeedEmail    string
	SeedPassword string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
	Insecure bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:       getEnv("ENV", "dev"),
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		LoginPath: getEnv("LOGIN_PATH", "/auth/v1/login"),
	}

	// required values
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("missing required env var: SESSION_SECRET")
	}
	cfg.SessionCookieName = getEnv("SESSION_COOKIE_NAME", "sid")

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	cfg.PasswordHasher = strings.ToLower(getEnv("PASSWORD_HASHER", "sha256"))
	if cfg.PasswordHasher != "sha256" && cfg.PasswordHasher != "bcrypt" {
		return nil, fmt.Errorf("PASSWORD_HASHER must be sha256 or bcrypt, got %q", cfg.PasswordHasher)
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}

	// Links in emails. The service appends the token, so both must end in
	// a `token=` query parameter.
	cfg.VerifyEmailBaseURL = os.Getenv("VERIFY_EMAIL_BASE_URL")
	if cfg.VerifyEmailBaseURL == "" {
		return nil, fmt.Errorf("missing required env var: VERIFY_EMAIL_BASE_URL")
	}
	if !strings.Contains(cfg.VerifyEmailBaseURL, "token=") {
		return nil, fmt.Errorf("VERIFY_EMAIL_BASE_URL must contain `token=`")
	}
	cfg.PasswordResetBaseURL = os.Getenv("PASSWORD_RESET_BASE_URL")
	if cfg.PasswordResetBaseURL == "" {
		return nil, fmt.Errorf("missing required env var: PASSWORD_RESET_BASE_URL")
	}
	if !strings.Contains(cfg.PasswordResetBaseURL, "token=") {
		return nil, fmt.Errorf("PASSWORD_RESET_BASE_URL must contain `token=`")
	}

	if cfg.VerifyEmailTokenTTL, err = getDuration("VERIFY_EMAIL_TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PasswordResetTokenTTL, err = getDuration("PASSWORD_RESET_TOKEN_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.EmailResendCooldown, err = getDuration("EMAIL_RESEND_COOLDOWN", time.Minute); err != nil {
		return nil, err
	}

	// Storage. memory is for local runs only.
	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", "postgres"))
	switch cfg.StoreDriver {
	case "postgres":
		cfg.DBAddr = os.Getenv("DB_ADDR")
		if cfg.DBAddr == "" {
			cfg.DBAddr = os.Getenv("DATABASE_URL")
		}
		if cfg.DBAddr == "" {
			return nil, fmt.Errorf("missing required env var: DB_ADDR")
		}
		if !strings.HasPrefix(cfg.DBAddr, "postgres://") && !strings.HasPrefix(cfg.DBAddr, "postgresql://") {
			return nil, fmt.Errorf("DB_ADDR must be a postgres:// URL")
		}
	case "memory":
		if cfg.Env == "prod" {
			return nil, fmt.Errorf("STORE_DRIVER=memory is not allowed in prod")
		}
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", cfg.StoreDriver)
	}
	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.DBMigrate, err = getBool("DB_MIGRATE", true); err != nil {
		return nil, err
	}

	// Redis is optional: without it sessions and rate limits stay in process.
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	cfg.RabbitURL = os.Getenv("RABBIT_URL")
	cfg.RabbitExchange = getEnv("RABBIT_EXCHANGE", "account.events")
	cfg.EmailQueue = getEnv("EMAIL_QUEUE", "account.email.q")

	cfg.EmailTransport = strings.ToLower(getEnv("EMAIL_TRANSPORT", "log"))
	if cfg.EmailBestEffort, err = getBool("EMAIL_BEST_EFFORT", false); err != nil {
		return nil, err
	}
	if cfg.SMTP, err = loadSMTP(); err != nil {
		return nil, err
	}
	switch cfg.EmailTransport {
	case "smtp":
		if cfg.SMTP.Host == "" {
			return nil, fmt.Errorf("smtp transport selected but missing SMTP_HOST")
		}
	case "rabbitmq":
		if cfg.RabbitURL == "" {
			return nil, fmt.Errorf("rabbitmq transport selected but missing RABBIT_URL")
		}
	case "log":
		// log transport writes links (and their tokens) to the service log
		if cfg.Env == "prod" {
			return nil, fmt.Errorf("EMAIL_TRANSPORT=log is not allowed in prod")
		}
	default:
		return nil, fmt.Errorf("EMAIL_TRANSPORT must be smtp, rabbitmq or log, got %q", cfg.EmailTransport)
	}

	if cfg.RLAuthLimit, err = getInt("RL_AUTH_LIMIT", 20); err != nil {
		return nil, err
	}
	if cfg.RLAuthWindow, err = getDuration("RL_AUTH_WINDOW", time.Minute); err != nil {
		return nil, err
	}

	cfg.SeedEmail = os.Getenv("SEED_EMAIL")
	cfg.SeedPassword = os.Getenv("SEED_PASSWORD")

	//Timeout values are optional and have a default value if not
	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MailerConfig configures the cmd/mailer worker that drains the email
// queue into SMTP.
type MailerConfig struct {
	Env          string
	RabbitURL    string
	Exchange     string
	Queue        string
	Prefetch     int
	RetryDelay   time.Duration
	ShutdownWait time.Duration
	MetricsAddr  string
	SMTP         SMTPConfig
}

func LoadMailer() (*MailerConfig, error) {
	_ = godotenv.Load()

	cfg := &MailerConfig{
		Env:         getEnv("ENV", "dev"),
		Exchange:    getEnv("RABBIT_EXCHANGE", "account.events"),
		Queue:       getEnv("EMAIL_QUEUE", "account.email.q"),
		MetricsAddr: getEnv("MAILER_METRICS_ADDR", ":9091"),
	}

	cfg.RabbitURL = strings.TrimSpace(os.Getenv("RABBIT_URL"))
	if cfg.RabbitURL == "" {
		return nil, fmt.Errorf("missing required env var: RABBIT_URL")
	}

	var err error
	if cfg.Prefetch, err = getInt("RABBIT_PREFETCH", 10); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = getDuration("MAILER_RETRY_DELAY", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownWait, err = getDuration("SHUTDOWN_WAIT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SMTP, err = loadSMTP(); err != nil {
		return nil, err
	}
	if cfg.SMTP.Host == "" {
		return nil, fmt.Errorf("missing required env var: SMTP_HOST")
	}
	return cfg, nil
}

func loadSMTP() (SMTPConfig, error) {
	s := SMTPConfig{
		Host:     getEnv("SMTP_HOST", ""),
		Username: getEnv("SMTP_USERNAME", ""),
		Password: os.Getenv("SMTP_PASSWORD"),
	}
	s.From = getEnv("SMTP_FROM", s.Username)

	var err error
	if s.Port, err = getInt("SMTP_PORT", 587); err != nil {
		return s, err
	}
	if s.Timeout, err = getDuration("SMTP_TIMEOUT", 10*time.Second); err != nil {
		return s, err
	}
	if s.Insecure, err = getBool("SMTP_INSECURE", false); err != nil {
		return s, err
	}
	return s, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}
