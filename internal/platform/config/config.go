package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"nlportal/internal/gateway"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Env             string
	LogLevel        string
	ShutdownTimeout time.Duration
	AdminToken      string
}

// IsDev reports whether the server runs in the local development profile.
func (s Server) IsDev() bool { return s.Env == "dev" }

// Auth configures inbound token verification. When JWKSURL is empty the
// HMAC development verifier is used with DevSigningKey.
type Auth struct {
	JWKSURL       string
	Issuer        string
	Audience      string
	JWKSCacheTTL  time.Duration
	DevSigningKey string
}

// TokenExchange configures the identity provider used for RFC 8693 exchange.
type TokenExchange struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
}

// Enabled reports whether an exchange endpoint is configured.
func (t TokenExchange) Enabled() bool { return t.Endpoint != "" }

// RedisConfig configures the optional messaging backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Channel      string
}

// Ogone holds the payment service provider settings.
type Ogone struct {
	PSPID     string `yaml:"pspId"`
	ShaInKey  string `yaml:"shaInKey"`
	ShaOutKey string `yaml:"shaOutKey"`
	Algorithm string `yaml:"algorithm"`
	URL       string `yaml:"url"`
	Currency  string `yaml:"currency"`
	Language  string `yaml:"language"`
}

// Taken points at the Objecten object type holding portal tasks.
type Taken struct {
	ObjectTypeURL string `yaml:"objectTypeUrl"`
}

// Registries is the on-disk registries file.
type Registries struct {
	Registries map[string]gateway.Config `yaml:"registries"`
	Ogone      Ogone                     `yaml:"ogone"`
	Taken      Taken                     `yaml:"taken"`
}

// Config is the complete process configuration.
type Config struct {
	Server              Server
	Auth                Auth
	TokenExchange       TokenExchange
	Redis               RedisConfig
	ResourceRoot        string
	CaseDefinitionsFile string
	Registries          map[string]gateway.Config
	Ogone               Ogone
	Taken               Taken
}

// Load reads .env (when present), the environment and the registries file
// named by NLPORTAL_REGISTRIES_FILE.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Server: Server{
			Addr:            env("NLPORTAL_ADDR", ":8080"),
			Env:             env("NLPORTAL_ENV", "dev"),
			LogLevel:        env("NLPORTAL_LOG_LEVEL", "info"),
			ShutdownTimeout: envDuration("NLPORTAL_SHUTDOWN_TIMEOUT", 10*time.Second),
			AdminToken:      env("NLPORTAL_ADMIN_TOKEN", ""),
		},
		Auth: Auth{
			JWKSURL:       env("OIDC_JWKS_URL", ""),
			Issuer:        env("OIDC_ISSUER", ""),
			Audience:      env("OIDC_AUDIENCE", ""),
			JWKSCacheTTL:  envDuration("OIDC_JWKS_CACHE_TTL", time.Hour),
			DevSigningKey: env("NLPORTAL_DEV_SIGNING_KEY", ""),
		},
		TokenExchange: TokenExchange{
			Endpoint:     env("TOKEN_EXCHANGE_ENDPOINT", ""),
			ClientID:     env("TOKEN_EXCHANGE_CLIENT_ID", ""),
			ClientSecret: env("TOKEN_EXCHANGE_CLIENT_SECRET", ""),
		},
		Redis: RedisConfig{
			URL:          env("REDIS_URL", ""),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			Channel:      env("REDIS_MESSAGES_CHANNEL", "nlportal:messages"),
		},
		ResourceRoot:        env("NLPORTAL_RESOURCE_ROOT", "."),
		CaseDefinitionsFile: env("NLPORTAL_CASE_DEFINITIONS_FILE", ""),
	}

	if cfg.Auth.JWKSURL == "" && cfg.Auth.DevSigningKey == "" {
		if !cfg.Server.IsDev() {
			return Config{}, fmt.Errorf("OIDC_JWKS_URL is required outside the dev profile")
		}
		cfg.Auth.DevSigningKey = "dev-signing-key-change-in-production"
	}

	path := env("NLPORTAL_REGISTRIES_FILE", "")
	if path == "" {
		return Config{}, fmt.Errorf("NLPORTAL_REGISTRIES_FILE is required")
	}
	regs, err := LoadRegistries(path)
	if err != nil {
		return Config{}, err
	}
	cfg.Registries = regs.Registries
	cfg.Ogone = regs.Ogone
	cfg.Taken = regs.Taken
	return cfg, nil
}

// LoadRegistries reads and validates a registries file. Values of the form
// ${NAME} are expanded from the environment.
func LoadRegistries(path string) (Registries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Registries{}, fmt.Errorf("read registries file: %w", err)
	}
	return ParseRegistries(data)
}

// ParseRegistries decodes registries YAML.
func ParseRegistries(data []byte) (Registries, error) {
	var regs Registries
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &regs); err != nil {
		return Registries{}, fmt.Errorf("parse registries file: %w", err)
	}
	for name, reg := range regs.Registries {
		if strings.TrimSpace(reg.URL) == "" {
			return Registries{}, fmt.Errorf("registry %s: url is required", name)
		}
		reg.Name = name
		regs.Registries[name] = reg
	}
	return regs, nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
