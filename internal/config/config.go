package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"

	GeoProviderNone    = "none"
	GeoProviderIPWhois = "ipwhois"
	GeoProviderMaxMind = "maxmind"
)

type Config struct {
	App      AppConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	URL      URLConfig
	Geo      GeoConfig
	Docs     DocsConfig
	CORS     CORSConfig
}

type AppConfig struct {
	Env     string
	Port    string
	BaseURL string
}

type StoreConfig struct {
	Driver     string
	SQLitePath string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

type URLConfig struct {
	DefaultValidityMinutes int
	ShortCodeLength        int
	MaxAllocationAttempts  int
}

type GeoConfig struct {
	Provider    string
	IPWhoisURL  string
	MaxMindPath string
	Timeout     time.Duration
	CacheTTL    time.Duration
}

// CORSConfig lists the browser origins allowed to call the API. "*" allows any.
type CORSConfig struct {
	AllowedOrigins []string
}

// DocsConfig controls the API documentation endpoints. The Swagger UI is
// only served when both Basic Auth credentials are set.
type DocsConfig struct {
	OpenAPIPath   string
	BasicUser     string
	BasicPassword string
}

func (d DocsConfig) UIEnabled() bool {
	return d.BasicUser != "" && d.BasicPassword != ""
}

func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file (optional, env vars take precedence)
	_ = viper.ReadInConfig()

	cfg := &Config{
		App: AppConfig{
			Env:     viper.GetString("APP_ENV"),
			Port:    viper.GetString("APP_PORT"),
			BaseURL: viper.GetString("APP_BASE_URL"),
		},
		Store: StoreConfig{
			Driver:     viper.GetString("STORE_DRIVER"),
			SQLitePath: viper.GetString("SQLITE_PATH"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetString("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
			MaxConns: viper.GetInt("POSTGRES_MAX_CONNS"),
			MinConns: viper.GetInt("POSTGRES_MIN_CONNS"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			PoolSize: viper.GetInt("REDIS_POOL_SIZE"),
		},
		URL: URLConfig{
			DefaultValidityMinutes: viper.GetInt("URL_DEFAULT_VALIDITY_MINUTES"),
			ShortCodeLength:        viper.GetInt("SHORT_CODE_LENGTH"),
			MaxAllocationAttempts:  viper.GetInt("SHORT_CODE_MAX_ATTEMPTS"),
		},
		Geo: GeoConfig{
			Provider:    viper.GetString("GEO_PROVIDER"),
			IPWhoisURL:  viper.GetString("GEO_IPWHOIS_URL"),
			MaxMindPath: viper.GetString("GEO_MAXMIND_PATH"),
			Timeout:     viper.GetDuration("GEO_TIMEOUT"),
			CacheTTL:    viper.GetDuration("GEO_CACHE_TTL"),
		},
		Docs: DocsConfig{
			OpenAPIPath:   viper.GetString("DOCS_OPENAPI_PATH"),
			BasicUser:     viper.GetString("AUTH_BASIC_USER"),
			BasicPassword: viper.GetString("AUTH_BASIC_PASSWORD"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("APP_PORT", "8080")
	// Empty base URL: short links are built from the request's scheme and host.
	viper.SetDefault("APP_BASE_URL", "")

	viper.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	viper.SetDefault("SQLITE_PATH", "./data/shortlinks.db")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", "5432")
	viper.SetDefault("POSTGRES_USER", "shorturl")
	viper.SetDefault("POSTGRES_PASSWORD", "shorturl")
	viper.SetDefault("POSTGRES_DB", "shorturl")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_MAX_CONNS", 25)
	viper.SetDefault("POSTGRES_MIN_CONNS", 5)

	viper.SetDefault("REDIS_ENABLED", true)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 10)

	viper.SetDefault("URL_DEFAULT_VALIDITY_MINUTES", 30)
	viper.SetDefault("SHORT_CODE_LENGTH", 7)
	viper.SetDefault("SHORT_CODE_MAX_ATTEMPTS", 5)

	viper.SetDefault("GEO_PROVIDER", GeoProviderIPWhois)
	viper.SetDefault("GEO_IPWHOIS_URL", "https://ipwho.is/")
	viper.SetDefault("GEO_MAXMIND_PATH", "./data/GeoLite2-City.mmdb")
	viper.SetDefault("GEO_TIMEOUT", "2s")
	viper.SetDefault("GEO_CACHE_TTL", "24h")

	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("DOCS_OPENAPI_PATH", "./api/openapi.yaml")
}

// splitList parses a comma-separated setting, dropping empty items.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverSQLite, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Geo.Provider {
	case GeoProviderNone, GeoProviderIPWhois, GeoProviderMaxMind:
	default:
		return fmt.Errorf("unknown GEO_PROVIDER %q", c.Geo.Provider)
	}

	if c.URL.DefaultValidityMinutes <= 0 || int64(c.URL.DefaultValidityMinutes) > math.MaxInt64/int64(time.Minute) {
		return fmt.Errorf("URL_DEFAULT_VALIDITY_MINUTES must be positive and fit a duration, got %d", c.URL.DefaultValidityMinutes)
	}
	if c.URL.ShortCodeLength < 3 || c.URL.ShortCodeLength > 20 {
		return fmt.Errorf("SHORT_CODE_LENGTH must be between 3 and 20, got %d", c.URL.ShortCodeLength)
	}
	if c.URL.MaxAllocationAttempts <= 0 {
		return fmt.Errorf("SHORT_CODE_MAX_ATTEMPTS must be positive, got %d", c.URL.MaxAllocationAttempts)
	}

	for _, origin := range c.CORS.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS entry %q must be \"*\" or start with http:// or https://", origin)
		}
	}

	return nil
}

func (c *PostgresConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}
