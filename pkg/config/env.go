package config

const (
	EnvPrefix = "FURNIHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv    = "FURNIHUB_APP_ENV"
	EnvPort      = "FURNIHUB_APP_PORT"
	EnvLogLevel  = "FURNIHUB_LOG_LEVEL"
	EnvLogFormat = "FURNIHUB_LOG_FORMAT"

	EnvDBDSN    = "FURNIHUB_DB_DSN"
	EnvDBDriver = "FURNIHUB_DB_DRIVER"
	EnvDBHost   = "FURNIHUB_DB_HOST"
	EnvDBPort   = "FURNIHUB_DB_PORT"
	EnvDBUser   = "FURNIHUB_DB_USER"
	EnvDBPass   = "FURNIHUB_DB_PASSWORD"
	EnvDBName   = "FURNIHUB_DB_NAME"

	EnvRedisURL  = "FURNIHUB_REDIS_URL"
	EnvRedisAddr = "FURNIHUB_REDIS_ADDR"

	EnvAutoMigrate = "FURNIHUB_AUTO_MIGRATE"

	EnvShippingFeePerShop = "FURNIHUB_SHIPPING_FEE_PER_SHOP"
	EnvCurrency           = "FURNIHUB_CURRENCY"

	EnvCheckoutIdempotencyTTL = "FURNIHUB_IDEMPOTENCY_CHECKOUT_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
