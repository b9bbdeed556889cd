package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	hstrings "hcert/pkg/platform/strings"
)

// Ledger backends.
const (
	LedgerMemory   = "memory"
	LedgerPostgres = "postgres"
	LedgerRedis    = "redis"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Addr      string
	LogLevel  string
	LogFormat string

	DatabaseURL string
	Redis       RedisConfig

	Ledger   LedgerConfig
	Issuance IssuanceConfig
	Signing  SigningConfig

	// ValueSetsFile overlays the built-in value sets when set.
	ValueSetsFile string
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LedgerConfig struct {
	Backend     string
	Prefix      string
	Version     string
	MaxAttempts int
}

type IssuanceConfig struct {
	IssuerCountry    string
	DefaultCountry   string
	DefaultIssuer    string
	SchemaVersion    string
	TimeZone         string
	TestValidity     time.Duration
	RecoveryValidity time.Duration
	MaxConcurrency   int
}

type SigningConfig struct {
	// KeysDir holds <tag>.pem files. Empty generates ephemeral keys.
	KeysDir string
	Tags    []string
}

// FromEnv builds a Config from the environment after loading an optional
// .env file so main stays lean.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	var p parser
	cfg := Config{
		Addr:        p.str("HCERT_ADDR", ":8080"),
		LogLevel:    p.str("HCERT_LOG_LEVEL", "info"),
		LogFormat:   p.str("HCERT_LOG_FORMAT", "json"),
		DatabaseURL: p.str("DATABASE_URL", ""),
		Redis: RedisConfig{
			URL:          p.str("REDIS_URL", ""),
			PoolSize:     p.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Ledger: LedgerConfig{
			Backend:     p.str("HCERT_LEDGER_BACKEND", LedgerMemory),
			Prefix:      p.str("UVCI_PREFIX", "URN:UVCI"),
			Version:     p.str("UVCI_VERSION", "01"),
			MaxAttempts: p.integer("HCERT_LEDGER_MAX_ATTEMPTS", 10),
		},
		Issuance: IssuanceConfig{
			IssuerCountry:    p.str("HCERT_ISSUER_COUNTRY", "GB"),
			DefaultCountry:   p.str("HCERT_DEFAULT_COUNTRY", "GB"),
			DefaultIssuer:    p.str("HCERT_DEFAULT_ISSUER", "NHS Digital"),
			SchemaVersion:    p.str("HCERT_SCHEMA_VERSION", "1.3.0"),
			TimeZone:         p.str("HCERT_TIMEZONE", "Europe/London"),
			TestValidity:     p.duration("HCERT_TEST_VALIDITY", 72*time.Hour),
			RecoveryValidity: p.duration("HCERT_RECOVERY_VALIDITY", 180*24*time.Hour),
			MaxConcurrency:   p.integer("HCERT_MAX_CONCURRENCY", 0),
		},
		Signing: SigningConfig{
			KeysDir: p.str("HCERT_SIGNING_KEYS_DIR", ""),
			Tags:    p.list("HCERT_SIGNING_TAGS", []string{"DSC-ENG-WAL"}),
		},
		ValueSetsFile: p.str("HCERT_VALUESETS_FILE", ""),
	}
	if p.err != nil {
		return Config{}, p.err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Ledger.Backend {
	case LedgerMemory:
	case LedgerPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s ledger", LedgerPostgres)
		}
	case LedgerRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for the %s ledger", LedgerRedis)
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}
	if c.Ledger.MaxAttempts < 1 {
		return fmt.Errorf("HCERT_LEDGER_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// parser reads typed values and keeps the first parse error.
type parser struct {
	err error
}

func (p *parser) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}

func (p *parser) list(key string, def []string) []string {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	return hstrings.SplitList(v, ",")
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
