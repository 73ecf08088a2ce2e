package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Dispatcher   DispatcherConfig
	Reservation  ReservationConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Outbox.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SURPRISEBAG_APP_ENV" required:"true"`
	Port         string `envconfig:"SURPRISEBAG_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SURPRISEBAG_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"SURPRISEBAG_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"SURPRISEBAG_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"SURPRISEBAG_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

// ConsoleLogs reports whether logs should use the human readable writer.
func (a AppConfig) ConsoleLogs() bool {
	return strings.EqualFold(a.LogFormat, "console")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"SURPRISEBAG_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SURPRISEBAG_DB_DSN"`
	Driver string `envconfig:"SURPRISEBAG_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SURPRISEBAG_DB_HOST"`
	Port     int    `envconfig:"SURPRISEBAG_DB_PORT" default:"5432"`
	User     string `envconfig:"SURPRISEBAG_DB_USER"`
	Password string `envconfig:"SURPRISEBAG_DB_PASSWORD"`
	Name     string `envconfig:"SURPRISEBAG_DB_NAME"`
	SSLMode  string `envconfig:"SURPRISEBAG_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SURPRISEBAG_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SURPRISEBAG_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SURPRISEBAG_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SURPRISEBAG_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"SURPRISEBAG_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SURPRISEBAG_REDIS_URL"`
	Address      string        `envconfig:"SURPRISEBAG_REDIS_ADDR"`
	Password     string        `envconfig:"SURPRISEBAG_REDIS_PASSWORD"`
	DB           int           `envconfig:"SURPRISEBAG_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SURPRISEBAG_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SURPRISEBAG_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SURPRISEBAG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SURPRISEBAG_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SURPRISEBAG_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SURPRISEBAG_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SURPRISEBAG_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SURPRISEBAG_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SURPRISEBAG_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SURPRISEBAG_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"SURPRISEBAG_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"SURPRISEBAG_PUBSUB_DOMAIN_TOPIC" default:"surprisebag-domain-events"`
	DomainSubscription string `envconfig:"SURPRISEBAG_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"SURPRISEBAG_KAFKA_BROKERS"`
	DomainTopic  string        `envconfig:"SURPRISEBAG_KAFKA_DOMAIN_TOPIC" default:"surprisebag.domain-events"`
	WriteTimeout time.Duration `envconfig:"SURPRISEBAG_KAFKA_WRITE_TIMEOUT" default:"10s"`
}

type OutboxConfig struct {
	Transport      string `envconfig:"SURPRISEBAG_OUTBOX_TRANSPORT" default:"pubsub"`
	BatchSize      int    `envconfig:"SURPRISEBAG_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"SURPRISEBAG_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"SURPRISEBAG_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int    `envconfig:"SURPRISEBAG_OUTBOX_RETENTION_DAYS" default:"30"`
}

func (o OutboxConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(o.Transport)) {
	case OutboxTransportPubSub, OutboxTransportKafka:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvOutboxTransport, OutboxTransportPubSub, OutboxTransportKafka)
	}
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"SURPRISEBAG_CRON_INTERVAL" default:"5m"`
	ReminderWindow time.Duration `envconfig:"SURPRISEBAG_CRON_REMINDER_WINDOW" default:"1h"`
}

type DispatcherConfig struct {
	QueueSize    int           `envconfig:"SURPRISEBAG_DISPATCHER_QUEUE_SIZE" default:"256"`
	Workers      int           `envconfig:"SURPRISEBAG_DISPATCHER_WORKERS" default:"2"`
	WriteTimeout time.Duration `envconfig:"SURPRISEBAG_DISPATCHER_WRITE_TIMEOUT" default:"5s"`
}

type RateLimitConfig struct {
	Window           time.Duration `envconfig:"SURPRISEBAG_RATE_LIMIT_WINDOW" default:"1m"`
	PublicPerWindow  int           `envconfig:"SURPRISEBAG_RATE_LIMIT_PUBLIC" default:"120"`
	APIPerWindow     int           `envconfig:"SURPRISEBAG_RATE_LIMIT_API" default:"120"`
	ReservePerWindow int           `envconfig:"SURPRISEBAG_RATE_LIMIT_RESERVE" default:"10"`
}

type ReservationConfig struct {
	PickupCodeAttempts int `envconfig:"SURPRISEBAG_RESERVATION_PICKUP_CODE_ATTEMPTS" default:"3"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = "file:surprisebag.db?cache=shared"
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range splitDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
