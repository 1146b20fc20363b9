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
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Ledger       LedgerConfig
	Audit        AuditConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Ledger.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env            string        `envconfig:"BACKOFFICE_APP_ENV" required:"true"`
	Port           string        `envconfig:"BACKOFFICE_APP_PORT" required:"true"`
	LogLevel       string        `envconfig:"BACKOFFICE_LOG_LEVEL" default:"info"`
	LogWarnStack   bool          `envconfig:"BACKOFFICE_LOG_WARN_STACK" default:"false"`
	RequestTimeout time.Duration `envconfig:"BACKOFFICE_REQUEST_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"BACKOFFICE_DB_DSN"`

	LegacyHost     string `envconfig:"BACKOFFICE_DB_HOST"`
	LegacyPort     int    `envconfig:"BACKOFFICE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BACKOFFICE_DB_USER"`
	LegacyPassword string `envconfig:"BACKOFFICE_DB_PASSWORD"`
	LegacyName     string `envconfig:"BACKOFFICE_DB_NAME"`
	LegacySSLMode  string `envconfig:"BACKOFFICE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BACKOFFICE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BACKOFFICE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BACKOFFICE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BACKOFFICE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional: with neither URL nor Address set the API runs
// without idempotency caching and order numbers come from the database.
type RedisConfig struct {
	URL          string        `envconfig:"BACKOFFICE_REDIS_URL"`
	Address      string        `envconfig:"BACKOFFICE_REDIS_ADDR"`
	Password     string        `envconfig:"BACKOFFICE_REDIS_PASSWORD"`
	DB           int           `envconfig:"BACKOFFICE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BACKOFFICE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BACKOFFICE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BACKOFFICE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BACKOFFICE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BACKOFFICE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BACKOFFICE_AUTO_MIGRATE" default:"false"`
}

type LedgerConfig struct {
	OrderNumberPrefix   string   `envconfig:"BACKOFFICE_ORDER_NUMBER_PREFIX" default:"ORD-"`
	OrderNumberWidth    int      `envconfig:"BACKOFFICE_ORDER_NUMBER_WIDTH" default:"6"`
	MaxCreateAttempts   int      `envconfig:"BACKOFFICE_ORDER_MAX_CREATE_ATTEMPTS" default:"5"`
	CORSAllowedOrigins  []string `envconfig:"BACKOFFICE_CORS_ALLOWED_ORIGINS" default:"*"`
	IdempotencyRequired bool     `envconfig:"BACKOFFICE_IDEMPOTENCY_REQUIRED" default:"false"`
}

func (l LedgerConfig) validate() error {
	if strings.TrimSpace(l.OrderNumberPrefix) == "" {
		return fmt.Errorf("%s must not be empty", EnvOrderNumberPrefix)
	}
	if l.OrderNumberWidth <= 0 {
		return fmt.Errorf("%s must be positive", EnvOrderNumberWidth)
	}
	if l.MaxCreateAttempts <= 0 {
		return fmt.Errorf("%s must be positive", EnvOrderMaxCreateAttempts)
	}
	return nil
}

type AuditConfig struct {
	LockTTL   time.Duration `envconfig:"BACKOFFICE_AUDIT_LOCK_TTL" default:"10m"`
	BatchSize int           `envconfig:"BACKOFFICE_AUDIT_BATCH_SIZE" default:"500"`
	// ActorID is recorded on ledger_repaired entries.
	ActorID string `envconfig:"BACKOFFICE_AUDIT_ACTOR_ID" default:"00000000-0000-0000-0000-00000000a0d1"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
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
