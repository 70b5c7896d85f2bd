// Package config loads cs2elo settings: an embedded default, YAML files on
// top of it, then CS2ELO_* environment variables (a .env file is read
// first when present).
package config

import (
	_ "embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"cs2-elo/rating"
)

//go:embed default.yaml
var defaultYAML []byte

// DefaultYAML returns the built-in configuration file.
func DefaultYAML() []byte {
	return defaultYAML
}

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	Log    LogConfig     `yaml:"log"`
	Rating rating.Config `yaml:"rating"`
	Rater  RaterConfig   `yaml:"rater"`
	Store  StoreConfig   `yaml:"store"`
	Parser ParserConfig  `yaml:"parser"`
	Sheets SheetsConfig  `yaml:"sheets"`
	API    APIConfig     `yaml:"api"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type RaterConfig struct {
	MaxAttempts   int `yaml:"max_attempts"`
	RecentMatches int `yaml:"recent_matches"`
}

type StoreConfig struct {
	Driver   string         `yaml:"driver"`
	Path     string         `yaml:"path"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type ParserConfig struct {
	TradeWindowTicks int `yaml:"trade_window_ticks"`
}

type SheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	URL             string `yaml:"url"`
	SheetName       string `yaml:"sheet_name"`
}

type APIConfig struct {
	Listen      string  `yaml:"listen"`
	SubmitRate  float64 `yaml:"submit_rate"`
	SubmitBurst int     `yaml:"submit_burst"`
}

// Default returns the built-in configuration.
func Default() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		panic(fmt.Sprintf("bad default config: %v", err))
	}
	return cfg
}

// Load builds the configuration from the defaults, each file in order and
// the environment, and validates the result.
func Load(paths ...string) (*Config, error) {
	cfg := Default()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnvFile exports the variables of a dotenv file without overriding
// ones already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return errors.Wrapf(err, "failed to load %s", path)
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"CS2ELO_LOG_LEVEL":          &c.Log.Level,
		"CS2ELO_STORE_DRIVER":       &c.Store.Driver,
		"CS2ELO_STORE_PATH":         &c.Store.Path,
		"CS2ELO_POSTGRES_DSN":       &c.Store.Postgres.DSN,
		"CS2ELO_REDIS_ADDR":         &c.Store.Redis.Addr,
		"CS2ELO_REDIS_PASSWORD":     &c.Store.Redis.Password,
		"CS2ELO_REDIS_PREFIX":       &c.Store.Redis.Prefix,
		"CS2ELO_SHEETS_CREDENTIALS": &c.Sheets.CredentialsFile,
		"CS2ELO_SHEETS_URL":         &c.Sheets.URL,
		"CS2ELO_SHEETS_NAME":        &c.Sheets.SheetName,
		"CS2ELO_API_LISTEN":         &c.API.Listen,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	var result *multierror.Error

	ints := map[string]*int{
		"CS2ELO_REDIS_DB":     &c.Store.Redis.DB,
		"CS2ELO_MAX_ATTEMPTS": &c.Rater.MaxAttempts,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", key, err))
			continue
		}
		*dst = n
	}

	if v, ok := os.LookupEnv("CS2ELO_LOG_JSON"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("CS2ELO_LOG_JSON: %w", err))
		} else {
			c.Log.JSON = b
		}
	}

	return result.ErrorOrNil()
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, fmt.Errorf("log.level: %w", err))
	}

	if err := c.Rating.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	if c.Rater.MaxAttempts < 0 {
		result = multierror.Append(result, fmt.Errorf("rater.max_attempts must not be negative"))
	}
	if c.Rater.RecentMatches < 0 {
		result = multierror.Append(result, fmt.Errorf("rater.recent_matches must not be negative"))
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.Path == "" {
			result = multierror.Append(result, fmt.Errorf("store.path is required for sqlite"))
		}
	case DriverPostgres:
		if c.Store.Postgres.DSN == "" {
			result = multierror.Append(result, fmt.Errorf("store.postgres.dsn is required for postgres"))
		}
	case DriverRedis:
		if c.Store.Redis.Addr == "" {
			result = multierror.Append(result, fmt.Errorf("store.redis.addr is required for redis"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	if c.Parser.TradeWindowTicks < 0 {
		result = multierror.Append(result, fmt.Errorf("parser.trade_window_ticks must not be negative"))
	}

	if c.API.SubmitRate < 0 || c.API.SubmitBurst < 0 {
		result = multierror.Append(result, fmt.Errorf("api.submit_rate and api.submit_burst must not be negative"))
	}

	return result.ErrorOrNil()
}
