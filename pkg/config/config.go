package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "SBORKA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SBORKA_DB_DSN"
	EnvDBHost = "SBORKA_DB_HOST"
	EnvDBUser = "SBORKA_DB_USER"
	EnvDBName = "SBORKA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Catalog      CatalogConfig
	Telegram     TelegramConfig
	Worker       WorkerConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SBORKA_APP_ENV" required:"true"`
	Port         string `envconfig:"SBORKA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SBORKA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SBORKA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SBORKA_DB_DSN"`
	Driver string `envconfig:"SBORKA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SBORKA_DB_HOST"`
	LegacyPort     int    `envconfig:"SBORKA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SBORKA_DB_USER"`
	LegacyPassword string `envconfig:"SBORKA_DB_PASSWORD"`
	LegacyName     string `envconfig:"SBORKA_DB_NAME"`
	LegacySSLMode  string `envconfig:"SBORKA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SBORKA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SBORKA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SBORKA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SBORKA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SBORKA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SBORKA_REDIS_ADDR"`
	Password     string        `envconfig:"SBORKA_REDIS_PASSWORD"`
	DB           int           `envconfig:"SBORKA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SBORKA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SBORKA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SBORKA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SBORKA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SBORKA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SBORKA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SBORKA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SBORKA_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SBORKA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SBORKA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SBORKA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SBORKA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SBORKA_ARGON_KEY_LEN" default:"32"`
}

// CatalogConfig tunes the read-side catalog cache. TTLs are short on purpose:
// the cache carries no cross-instance invalidation.
type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"SBORKA_CATALOG_CACHE_TTL" default:"60s"`
}

type TelegramConfig struct {
	BotToken    string `envconfig:"SBORKA_TELEGRAM_BOT_TOKEN"`
	AdminChatID string `envconfig:"SBORKA_TELEGRAM_ADMIN_CHAT_ID"`
	BaseURL     string `envconfig:"SBORKA_TELEGRAM_BASE_URL" default:"https://api.telegram.org"`
}

type WorkerConfig struct {
	PollInterval time.Duration `envconfig:"SBORKA_WORKER_POLL_INTERVAL" default:"5s"`
	BatchSize    int           `envconfig:"SBORKA_WORKER_BATCH_SIZE" default:"20"`
	MaxAttempts  int           `envconfig:"SBORKA_WORKER_MAX_ATTEMPTS" default:"5"`
	BackoffBase  time.Duration `envconfig:"SBORKA_WORKER_BACKOFF_BASE" default:"30s"`
	MetricsAddr  string        `envconfig:"SBORKA_WORKER_METRICS_ADDR" default:":9091"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SBORKA_AUTO_MIGRATE" default:"false"`
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
