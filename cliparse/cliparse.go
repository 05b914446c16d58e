package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort              = 8000
	DefaultDatabaseType      = "sqlite"
	DefaultDedupCacheSize    = 100_000
	DefaultDedupCacheTTL     = 24 * time.Hour
	DefaultSendTimeout       = 5 * time.Second
	DefaultVoteRatePerMinute = 5
)

type Config struct {
	Port                 int
	DatabaseURL          string
	DatabaseType         string
	AdminKeySalt         string
	DedupCacheSize       int
	DedupCacheTTL        time.Duration
	BroadcastSendTimeout time.Duration
	VoteRatePerMinute    int
	WSOrigins            []string
}

// LoadEnv reads KEY=value pairs from the given files (".env" when none
// given) into the environment. Variables already set win. Missing files
// are skipped.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var origins string

	fs := flag.NewFlagSet("livepoll", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&origins, "ws-origins", "", "Comma separated origin patterns allowed to open live connections")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")

	// Tuning
	fs.IntVar(&cfg.DedupCacheSize, "cache-size", 0, "Duplicate vote cache capacity")
	fs.DurationVar(&cfg.DedupCacheTTL, "cache-ttl", 0, "Duplicate vote cache horizon")
	fs.DurationVar(&cfg.BroadcastSendTimeout, "send-timeout", 0, "Per-subscriber send timeout")
	fs.IntVar(&cfg.VoteRatePerMinute, "vote-rate", -1, "Votes per minute per connecting address (0 disables)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = DefaultDatabaseType
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q (use sqlite or postgres)", cfg.DatabaseType)
	}

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		cfg.AdminKeySalt = os.Getenv("ADMIN_KEY_SALT")
	}
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}

	var err error
	if cfg.DedupCacheSize == 0 {
		if cfg.DedupCacheSize, err = envInt("DEDUP_CACHE_SIZE", DefaultDedupCacheSize); err != nil {
			return Config{}, err
		}
	}
	if cfg.DedupCacheSize <= 0 {
		return Config{}, errors.New("dedup cache size must be positive")
	}

	if cfg.DedupCacheTTL == 0 {
		if cfg.DedupCacheTTL, err = envDuration("DEDUP_CACHE_TTL", DefaultDedupCacheTTL); err != nil {
			return Config{}, err
		}
	}
	if cfg.BroadcastSendTimeout == 0 {
		if cfg.BroadcastSendTimeout, err = envDuration("BROADCAST_SEND_TIMEOUT", DefaultSendTimeout); err != nil {
			return Config{}, err
		}
	}
	if cfg.DedupCacheTTL <= 0 || cfg.BroadcastSendTimeout <= 0 {
		return Config{}, errors.New("durations must be positive")
	}

	if cfg.VoteRatePerMinute < 0 {
		if cfg.VoteRatePerMinute, err = envInt("VOTE_RATE_PER_MINUTE", DefaultVoteRatePerMinute); err != nil {
			return Config{}, err
		}
	}
	if cfg.VoteRatePerMinute < 0 {
		return Config{}, errors.New("vote rate must not be negative")
	}

	if origins == "" {
		origins = os.Getenv("WS_ALLOWED_ORIGINS")
	}
	cfg.WSOrigins = splitList(origins)

	return cfg, nil
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
