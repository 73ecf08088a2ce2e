package config

// EnvPrefix scopes every variable read by Load.
const EnvPrefix = "SURPRISEBAG"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	OutboxTransportPubSub = "pubsub"
	OutboxTransportKafka  = "kafka"
)

const (
	EnvAppEnv          = "SURPRISEBAG_APP_ENV"
	EnvPort            = "SURPRISEBAG_APP_PORT"
	EnvDBDSN           = "SURPRISEBAG_DB_DSN"
	EnvDBHost          = "SURPRISEBAG_DB_HOST"
	EnvDBUser          = "SURPRISEBAG_DB_USER"
	EnvDBName          = "SURPRISEBAG_DB_NAME"
	EnvUseSQLite       = "SURPRISEBAG_USE_SQLITE"
	EnvRedisURL        = "SURPRISEBAG_REDIS_URL"
	EnvJWTSecret       = "SURPRISEBAG_JWT_SECRET"
	EnvJWTIssuer       = "SURPRISEBAG_JWT_ISSUER"
	EnvKafkaBrokers    = "SURPRISEBAG_KAFKA_BROKERS"
	EnvOutboxTransport = "SURPRISEBAG_OUTBOX_TRANSPORT"
	EnvCronInterval    = "SURPRISEBAG_CRON_INTERVAL"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
