package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	OTP       OTPSettings       `mapstructure:"otp"`
	Password  PasswordSettings  `mapstructure:"password"`
	SMTP      SMTPSettings      `mapstructure:"smtp"`
	Cookie    CookieSettings    `mapstructure:"cookie"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name           string   `mapstructure:"name"`
	Env            string   `mapstructure:"env"`
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	Schema            string        `mapstructure:"schema"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// KafkaSettings configures the event producer. No brokers means events are only logged.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// JWTSettings holds the HMAC secrets and lifetimes for session tokens.
type JWTSettings struct {
	AccessSecret    string        `mapstructure:"access_secret"`
	RefreshSecret   string        `mapstructure:"refresh_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// OTPSettings tunes issuance limits and lockouts for one-time codes.
type OTPSettings struct {
	CodeTTL            time.Duration `mapstructure:"code_ttl"`
	CooldownTTL        time.Duration `mapstructure:"cooldown_ttl"`
	RequestWindow      time.Duration `mapstructure:"request_window"`
	MaxRequests        int           `mapstructure:"max_requests"`
	SpamLockTTL        time.Duration `mapstructure:"spam_lock_ttl"`
	MaxFailedAttempts  int           `mapstructure:"max_failed_attempts"`
	AttemptsTTL        time.Duration `mapstructure:"attempts_ttl"`
	LockTTL            time.Duration `mapstructure:"lock_ttl"`
	LegacyAttemptsKey  bool          `mapstructure:"legacy_attempts_key"`
	RequireResetTicket bool          `mapstructure:"require_reset_ticket"`
	ResetTicketTTL     time.Duration `mapstructure:"reset_ticket_ttl"`
}

// PasswordSettings selects the hashing algorithm for new digests.
type PasswordSettings struct {
	Algorithm  string         `mapstructure:"algorithm"`
	BcryptCost int            `mapstructure:"bcrypt_cost"`
	Argon2     Argon2Settings `mapstructure:"argon2"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// SMTPSettings configures outbound mail. An empty host switches to the logging notifier.
type SMTPSettings struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	From        string        `mapstructure:"from"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

type CookieSettings struct {
	Domain   string `mapstructure:"domain"`
	Path     string `mapstructure:"path"`
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"same_site"`
}

// RateLimitSettings configures the per-IP request limit on the API group.
type RateLimitSettings struct {
	WindowDuration time.Duration `mapstructure:"window_duration"`
	MaxRequests    int           `mapstructure:"max_requests"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AUTH")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.allowed_origins",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.schema",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"jwt.access_secret",
		"jwt.refresh_secret",
		"jwt.access_token_ttl",
		"jwt.refresh_token_ttl",
		"otp.code_ttl",
		"otp.cooldown_ttl",
		"otp.request_window",
		"otp.max_requests",
		"otp.spam_lock_ttl",
		"otp.max_failed_attempts",
		"otp.attempts_ttl",
		"otp.lock_ttl",
		"otp.legacy_attempts_key",
		"otp.require_reset_ticket",
		"otp.reset_ticket_ttl",
		"password.algorithm",
		"password.bcrypt_cost",
		"password.argon2.memory",
		"password.argon2.iterations",
		"password.argon2.parallelism",
		"password.argon2.salt_length",
		"password.argon2.key_length",
		"smtp.host",
		"smtp.port",
		"smtp.username",
		"smtp.password",
		"smtp.from",
		"smtp.send_timeout",
		"cookie.domain",
		"cookie.path",
		"cookie.secure",
		"cookie.same_site",
		"rate_limit.window_duration",
		"rate_limit.max_requests",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.JWT.AccessSecret) == "" {
		return fmt.Errorf("jwt.access_secret is required")
	}
	if strings.TrimSpace(c.JWT.RefreshSecret) == "" {
		return fmt.Errorf("jwt.refresh_secret is required")
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return fmt.Errorf("jwt access and refresh secrets must differ")
	}
	switch strings.ToLower(c.Cookie.SameSite) {
	case "", "strict", "lax", "none":
	default:
		return fmt.Errorf("cookie.same_site must be one of strict, lax, none")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "marketplace-auth")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 6001)
	v.SetDefault("app.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "marketplace")
	v.SetDefault("postgres.password", "marketplace_password")
	v.SetDefault("postgres.database", "marketplace")
	v.SetDefault("postgres.schema", "marketplace")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "marketplace")

	v.SetDefault("jwt.access_secret", "")
	v.SetDefault("jwt.refresh_secret", "")
	v.SetDefault("jwt.access_token_ttl", "15m")
	v.SetDefault("jwt.refresh_token_ttl", "168h")

	v.SetDefault("otp.code_ttl", "300s")
	v.SetDefault("otp.cooldown_ttl", "60s")
	v.SetDefault("otp.request_window", "1h")
	v.SetDefault("otp.max_requests", 2)
	v.SetDefault("otp.spam_lock_ttl", "1h")
	v.SetDefault("otp.max_failed_attempts", 2)
	v.SetDefault("otp.attempts_ttl", "300s")
	v.SetDefault("otp.lock_ttl", "30m")
	v.SetDefault("otp.legacy_attempts_key", true)
	v.SetDefault("otp.require_reset_ticket", true)
	v.SetDefault("otp.reset_ticket_ttl", "10m")

	v.SetDefault("password.algorithm", "bcrypt")
	v.SetDefault("password.bcrypt_cost", 10)
	v.SetDefault("password.argon2.memory", 65536) // 64 MB
	v.SetDefault("password.argon2.iterations", 3)
	v.SetDefault("password.argon2.parallelism", 4)
	v.SetDefault("password.argon2.salt_length", 16)
	v.SetDefault("password.argon2.key_length", 32)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "no-reply@marketplace.local")
	v.SetDefault("smtp.send_timeout", "15s")

	v.SetDefault("cookie.domain", "")
	v.SetDefault("cookie.path", "/")
	v.SetDefault("cookie.secure", true)
	v.SetDefault("cookie.same_site", "strict")

	v.SetDefault("rate_limit.window_duration", "15m")
	v.SetDefault("rate_limit.max_requests", 100)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "marketplace-auth")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "AUTH_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
