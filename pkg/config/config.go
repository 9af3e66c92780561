package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the backend consumes.
const EnvPrefix = "EQUIPTRACK"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvDBDSN  = "EQUIPTRACK_DB_DSN"
	EnvDBHost = "EQUIPTRACK_DB_HOST"
	EnvDBUser = "EQUIPTRACK_DB_USER"
	EnvDBName = "EQUIPTRACK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
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
	Env          string `envconfig:"EQUIPTRACK_APP_ENV" required:"true"`
	Port         string `envconfig:"EQUIPTRACK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"EQUIPTRACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EQUIPTRACK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"EQUIPTRACK_DB_DSN"`

	LegacyHost     string `envconfig:"EQUIPTRACK_DB_HOST"`
	LegacyPort     int    `envconfig:"EQUIPTRACK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"EQUIPTRACK_DB_USER"`
	LegacyPassword string `envconfig:"EQUIPTRACK_DB_PASSWORD"`
	LegacyName     string `envconfig:"EQUIPTRACK_DB_NAME"`
	LegacySSLMode  string `envconfig:"EQUIPTRACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EQUIPTRACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EQUIPTRACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EQUIPTRACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EQUIPTRACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"EQUIPTRACK_REDIS_URL"`
	Address      string        `envconfig:"EQUIPTRACK_REDIS_ADDR"`
	Password     string        `envconfig:"EQUIPTRACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"EQUIPTRACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EQUIPTRACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EQUIPTRACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EQUIPTRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EQUIPTRACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EQUIPTRACK_REDIS_WRITE_TIMEOUT" default:"5s"`
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
