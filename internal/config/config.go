package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Defaults for values the environment may omit.
const (
	DefaultEnvFile        = ".env"
	DefaultPort           = "5000"
	DefaultStaticDir      = "./dist"
	DefaultOMDBAPIKey     = "omdb-demo-key"
	DefaultOMDBBaseURL    = "https://www.omdbapi.com/"
	DefaultOMDBTestQuery  = "batman"
	DefaultTMDBAPIKey     = "tmdb-demo-key"
	DefaultTMDBBaseURL    = "https://api.themoviedb.org/3"
	DefaultAuthEventsKey  = "list:auth:events"
	DefaultTokenTTL       = 24 * time.Hour
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	generatedSecretLength = 32
)

// MongoConfig holds the MongoDB connection settings.
type MongoConfig struct {
	URI      string `validate:"required"`
	Database string // empty means the database named in URI
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr          string
	Password      string
	AuthEventsKey string `validate:"required_with=Addr"`
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// ServerConfig holds the HTTP listener and static bundle settings.
type ServerConfig struct {
	Host        string
	Port        string `validate:"required,numeric"`
	StaticDir   string `validate:"required"`
	CORSOrigins []string
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// OMDBConfig holds the OMDB upstream settings.
type OMDBConfig struct {
	APIKey    string `validate:"required"`
	BaseURL   string `validate:"required,url"`
	TestQuery string `validate:"required"`
}

// TMDBConfig holds the TMDB upstream settings.
type TMDBConfig struct {
	APIKey  string `validate:"required"`
	BaseURL string `validate:"required,url"`
	// AllowedPaths narrows the pass-through proxy to these path prefixes.
	// Empty means every upstream path is reachable.
	AllowedPaths []string
}

// ProxyConfig configures the SOCKS5 proxy used for outbound API calls.
type ProxyConfig struct {
	UseProxy  bool
	ProxyAddr string `validate:"required_if=UseProxy true"`
}

// AuthConfig holds token settings for the auth routes.
type AuthConfig struct {
	JWTSecret string `validate:"required"`
	// SecretGenerated is set when no JWT_SECRET was supplied and a
	// per-process secret was generated instead.
	SecretGenerated bool
	TokenTTL        time.Duration `validate:"gt=0"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `validate:"oneof=json console"`
}

// AppConfig aggregates all runtime configuration. It is built once by Load
// and never mutated afterwards.
type AppConfig struct {
	Mongo  MongoConfig
	Redis  RedisConfig
	Server ServerConfig
	OMDB   OMDBConfig
	TMDB   TMDBConfig
	Proxy  ProxyConfig
	Auth   AuthConfig
	Log    LogConfig
}

// Load reads configuration from the dotenv file named by ENV_FILE (default
// .env, optional) and the process environment. Environment variables take
// precedence over the file.
func Load() (AppConfig, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	return LoadFile(envFile)
}

// LoadFile is Load with an explicit dotenv path.
func LoadFile(envFile string) (AppConfig, error) {
	k := koanf.New(".")

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := k.Load(file.Provider(envFile), dotenv.Parser()); err != nil {
				return AppConfig{}, fmt.Errorf("failed to load env file %s: %w", envFile, err)
			}
		}
	}

	// Blank variables are skipped so they cannot mask the file or defaults.
	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return AppConfig{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := AppConfig{
		Mongo: MongoConfig{
			URI:      k.String("MONGODB_URI"),
			Database: k.String("MONGODB_DATABASE"),
		},
		Redis: RedisConfig{
			Addr:          k.String("REDIS_ADDR"),
			Password:      k.String("REDIS_PASSWORD"),
			AuthEventsKey: stringWithDefault(k, "REDIS_AUTH_EVENTS_KEY", DefaultAuthEventsKey),
		},
		Server: ServerConfig{
			Host:        k.String("HOST"),
			Port:        stringWithDefault(k, "PORT", DefaultPort),
			StaticDir:   stringWithDefault(k, "STATIC_DIR", DefaultStaticDir),
			CORSOrigins: splitList(stringWithDefault(k, "CORS_ORIGINS", "*")),
		},
		OMDB: OMDBConfig{
			APIKey:    stringWithDefault(k, "OMDB_API_KEY", DefaultOMDBAPIKey),
			BaseURL:   stringWithDefault(k, "OMDB_BASE_URL", DefaultOMDBBaseURL),
			TestQuery: stringWithDefault(k, "OMDB_TEST_QUERY", DefaultOMDBTestQuery),
		},
		TMDB: TMDBConfig{
			APIKey:       stringWithDefault(k, "TMDB_API_KEY", DefaultTMDBAPIKey),
			BaseURL:      stringWithDefault(k, "TMDB_BASE_URL", DefaultTMDBBaseURL),
			AllowedPaths: splitList(k.String("TMDB_ALLOWED_PATHS")),
		},
		Proxy: ProxyConfig{
			UseProxy:  k.Bool("USE_PROXY"),
			ProxyAddr: k.String("PROXY_ADDR"),
		},
		Auth: AuthConfig{
			JWTSecret: k.String("JWT_SECRET"),
			TokenTTL:  DefaultTokenTTL,
		},
		Log: LogConfig{
			Level:  strings.ToLower(stringWithDefault(k, "LOG_LEVEL", DefaultLogLevel)),
			Format: strings.ToLower(stringWithDefault(k, "LOG_FORMAT", DefaultLogFormat)),
		},
	}

	if raw := k.String("JWT_EXPIRES_IN"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return AppConfig{}, fmt.Errorf("invalid JWT_EXPIRES_IN %q: %w", raw, err)
		}
		cfg.Auth.TokenTTL = ttl
	}

	if cfg.Auth.JWTSecret == "" {
		secret, err := generateSecret()
		if err != nil {
			return AppConfig{}, err
		}
		cfg.Auth.JWTSecret = secret
		cfg.Auth.SecretGenerated = true
	}

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and reports the first violation.
func (c AppConfig) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid configuration: %s failed %q", fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("invalid configuration: %w", err)
}

func stringWithDefault(k *koanf.Koanf, key, def string) string {
	if v := strings.TrimSpace(k.String(key)); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func generateSecret() (string, error) {
	b := make([]byte, generatedSecretLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
