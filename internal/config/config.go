package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/greecode/admin-portal/internal/kafka"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config of the service, read from the environment.
type Config struct {
	AppHost  string
	HTTPPort string
	AppEnv   string
	LogLevel string

	// ConcernStore is "postgres" or "memory". Memory mode loses everything on restart.
	ConcernStore string
	SeedDemo     bool

	// SearchServiceURL, when set, receives concerns for indexing (POST /search/index/concern).
	SearchServiceURL string

	KafkaBrokers      []string
	KafkaTopicConcern string

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Session struct {
		KeyPrefix string
		TTL       time.Duration
		Secret    string
		Issuer    string
	}

	Admin struct {
		Email        string
		PasswordHash string
		CodeHash     string
	}
}

// Load reads .env (if present) and the environment. Defaults suit local development.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:           getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:          firstEnv("APP_PORT", "HTTP_PORT", "8098"),
		AppEnv:            getEnv("APP_ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ConcernStore:      strings.ToLower(getEnv("CONCERN_STORE", StoreDriverPostgres)),
		SearchServiceURL:  getEnv("SEARCH_SERVICE_URL", ""),
		KafkaBrokers:      kafka.ParseBrokers(getEnv("KAFKA_BROKERS", "")),
		KafkaTopicConcern: getEnv("KAFKA_TOPIC_CONCERN", "admin.concerns"),
	}
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "admin_portal")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("config: REDIS_DB: %w", err)
	}
	cfg.Redis.DB = redisDB

	cfg.Session.KeyPrefix = getEnv("SESSION_KEY_PREFIX", "admin-portal:")
	cfg.Session.Secret = getEnv("SESSION_SECRET", "")
	cfg.Session.Issuer = getEnv("SESSION_ISSUER", "greecode-admin")
	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "12h"))
	if err != nil {
		return nil, fmt.Errorf("config: SESSION_TTL: %w", err)
	}
	cfg.Session.TTL = ttl

	cfg.Admin.Email = getEnv("ADMIN_EMAIL", "")
	cfg.Admin.PasswordHash = getEnv("ADMIN_PASSWORD_HASH", "")
	cfg.Admin.CodeHash = getEnv("ADMIN_2FA_CODE_HASH", "")

	seed, err := strconv.ParseBool(getEnv("SEED_DEMO", "false"))
	if err != nil {
		return nil, fmt.Errorf("config: SEED_DEMO: %w", err)
	}
	cfg.SeedDemo = seed
	return cfg, nil
}

// Validate checks what every command needs: the concern store.
func (c *Config) Validate() error {
	switch c.ConcernStore {
	case StoreDriverPostgres:
		if c.DB.Host == "" || c.DB.Database == "" {
			return errors.New("config: DB_HOST and DB_DATABASE are required")
		}
		if c.IsProduction() && c.DB.Password == "" {
			return errors.New("config: in production DB_PASSWORD is required")
		}
	case StoreDriverMemory:
		if c.IsProduction() {
			return errors.New("config: CONCERN_STORE=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("config: unknown CONCERN_STORE %q", c.ConcernStore)
	}
	return nil
}

// ValidateAPI additionally checks the session gate settings needed by the api command.
func (c *Config) ValidateAPI() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Admin.Email == "" || c.Admin.PasswordHash == "" || c.Admin.CodeHash == "" {
		return errors.New("config: ADMIN_EMAIL, ADMIN_PASSWORD_HASH and ADMIN_2FA_CODE_HASH are required")
	}
	if len(c.Session.Secret) < 16 {
		return errors.New("config: SESSION_SECRET must be at least 16 characters")
	}
	if c.IsProduction() && c.Redis.Addr == "" {
		return errors.New("config: in production REDIS_ADDR is required")
	}
	return nil
}

// IsProduction is true for APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// DSN is the key=value connection string used by gorm.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

// DatabaseURL is the postgres:// form used by migrations.
func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
