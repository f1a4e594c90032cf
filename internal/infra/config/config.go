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
	Session   SessionSettings   `mapstructure:"session"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Password  PasswordSettings  `mapstructure:"password"`
	Reset     ResetSettings     `mapstructure:"reset"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name               string   `mapstructure:"name"`
	Env                string   `mapstructure:"env"`
	Host               string   `mapstructure:"host"`
	Port               int      `mapstructure:"port"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// IsDevelopment reports whether the service runs outside production.
func (s AppSettings) IsDevelopment() bool {
	return s.Env != "production"
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the reset token store connection. A failed ping
// at startup drops the service to the in-memory store.
type RedisSettings struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	DB          int    `mapstructure:"db"`
	Password    string `mapstructure:"password"`
	TLSEnabled  bool   `mapstructure:"tls_enabled"`
	ResetPrefix string `mapstructure:"reset_prefix"`
}

// KafkaSettings configures the auth event producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// SessionSettings governs the signed client token and the reconciliation
// timeouts around it.
type SessionSettings struct {
	Secret         string        `mapstructure:"secret"`
	TTL            time.Duration `mapstructure:"ttl"`
	CookieName     string        `mapstructure:"cookie_name"`
	CookieSecure   bool          `mapstructure:"cookie_secure"`
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
}

// RateLimitSettings configures sliding windows and max attempts per endpoint.
type RateLimitSettings struct {
	WindowDuration           time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts         int           `mapstructure:"login_max_attempts"`
	PasswordResetMaxAttempts int           `mapstructure:"password_reset_max_attempts"`
}

// PasswordSettings configures hashing cost and the acceptance policy for new
// passwords.
type PasswordSettings struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
	MinLength  int `mapstructure:"min_length"`
	MinScore   int `mapstructure:"min_score"`
}

// ResetSettings configures password reset token issuance.
type ResetSettings struct {
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	TokenBytes int           `mapstructure:"token_bytes"`
}

type TelemetrySettings struct {
	ServiceName  string  `mapstructure:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("RECRUIT")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.cors_allowed_origins",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
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
		"redis.reset_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"session.secret",
		"session.ttl",
		"session.cookie_name",
		"session.cookie_secure",
		"session.persist_timeout",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.password_reset_max_attempts",
		"password.bcrypt_cost",
		"password.min_length",
		"password.min_score",
		"reset.token_ttl",
		"reset.token_bytes",
		"telemetry.service_name",
		"telemetry.otlp_endpoint",
		"telemetry.sampling_rate",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "recruitment-auth")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.cors_allowed_origins", []string{"*"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "recruit")
	v.SetDefault("postgres.password", "recruit_password")
	v.SetDefault("postgres.database", "recruitment_portal")
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
	v.SetDefault("redis.reset_prefix", "recruit:password_reset")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "recruitment")
	v.SetDefault("kafka.async", true)

	// The legacy portal secret, kept as the development default so existing
	// local setups keep working. Production deployments override it.
	v.SetDefault("session.secret", "whitehat88-recruitment-secret-key-2025")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.cookie_name", "recruit_session")
	v.SetDefault("session.cookie_secure", false)
	v.SetDefault("session.persist_timeout", "5s")

	v.SetDefault("rate_limit.window_duration", "5m")
	v.SetDefault("rate_limit.login_max_attempts", 5)
	v.SetDefault("rate_limit.password_reset_max_attempts", 3)

	v.SetDefault("password.bcrypt_cost", 12)
	v.SetDefault("password.min_length", 8)
	v.SetDefault("password.min_score", 2)

	v.SetDefault("reset.token_ttl", "1h")
	v.SetDefault("reset.token_bytes", 32)

	v.SetDefault("telemetry.service_name", "recruitment-auth")
	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "RECRUIT_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
