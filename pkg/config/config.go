package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/furnihub/marketplace-backend/pkg/enums"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Pricing      PricingConfig
	Idempotency  IdempotencyConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FURNIHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"FURNIHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FURNIHUB_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"FURNIHUB_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"FURNIHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FURNIHUB_DB_DSN"`
	Driver string `envconfig:"FURNIHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FURNIHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"FURNIHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FURNIHUB_DB_USER"`
	LegacyPassword string `envconfig:"FURNIHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"FURNIHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"FURNIHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FURNIHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FURNIHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FURNIHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FURNIHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver is selected. SQLite is for local
// development only.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"FURNIHUB_REDIS_URL"`
	Address      string        `envconfig:"FURNIHUB_REDIS_ADDR"`
	Password     string        `envconfig:"FURNIHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"FURNIHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FURNIHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FURNIHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FURNIHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FURNIHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FURNIHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FURNIHUB_AUTO_MIGRATE" default:"false"`
}

type PricingConfig struct {
	// ShippingFeePerShop is the flat fee charged once per shop in a cart.
	ShippingFeePerShop decimal.Decimal `envconfig:"FURNIHUB_SHIPPING_FEE_PER_SHOP" default:"0"`
	Currency           string          `envconfig:"FURNIHUB_CURRENCY" default:"VND"`
}

func (p PricingConfig) validate() error {
	if p.ShippingFeePerShop.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvShippingFeePerShop)
	}
	if strings.TrimSpace(p.Currency) == "" {
		return fmt.Errorf("%s is required", EnvCurrency)
	}
	if !enums.Currency(p.Currency).IsValid() {
		return fmt.Errorf("%s: unsupported currency %q", EnvCurrency, p.Currency)
	}
	return nil
}

type IdempotencyConfig struct {
	CheckoutTTL time.Duration `envconfig:"FURNIHUB_IDEMPOTENCY_CHECKOUT_TTL" default:"24h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvDBDriver, DBDriverSQLite)
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
