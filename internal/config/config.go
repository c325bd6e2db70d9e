package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	model "github.com/campushire/ranking-backend/internal/models"
)

// Config holds everything the server reads from the environment. XP values and
// movement thresholds are deliberately configuration, not code: the source
// material treats them as tunable constants.
type Config struct {
	Port string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// RedisAddr empty disables the leaderboard page cache.
	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	// Rank table builder.
	RebuildInterval   time.Duration
	RebuildTimeout    time.Duration // per scope, fail-closed
	RebuildWorkers    int
	SnapshotRetention int // periods kept per scope before pruning
	MovementHistory   int // periods of movement records kept

	// Leaderboard query service.
	DefaultLimit  int
	MaxLimit      int
	ContextRadius int // entries either side of the requester

	// Movement message thresholds (absolute delta).
	BigMoveThreshold int

	// XP per event kind. Assessment XP is AssessmentBaseXP plus
	// AssessmentPercentXP scaled by the score percentage in metadata.
	XPValues            map[model.EventKind]int
	AssessmentBaseXP    int
	AssessmentPercentXP int

	// Metrics snapshotted per scope; "xp" is always present and first.
	// Category names (assessments, placements, ...) are valid additions.
	Metrics []string
}

// LoadConfig reads the environment, loading .env first outside production.
func LoadConfig() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		// Missing .env is fine; real env vars still apply.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Port:       envOr("PORT", "8080"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     envOr("DB_HOST", "localhost"),
		DBPort:     envOr("DB_PORT", "5432"),
		DBName:     os.Getenv("DB_NAME"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CacheTTL:      envDurationOr("CACHE_TTL", 5*time.Minute),

		RebuildInterval:   envDurationOr("REBUILD_INTERVAL", time.Hour),
		RebuildTimeout:    envDurationOr("REBUILD_TIMEOUT", 2*time.Minute),
		RebuildWorkers:    envIntOr("REBUILD_WORKERS", 4),
		SnapshotRetention: envIntOr("SNAPSHOT_RETENTION", 8),
		MovementHistory:   envIntOr("MOVEMENT_HISTORY", 8),

		DefaultLimit:  envIntOr("LEADERBOARD_LIMIT", 20),
		MaxLimit:      envIntOr("LEADERBOARD_MAX_LIMIT", 100),
		ContextRadius: envIntOr("CONTEXT_RADIUS", 2),

		BigMoveThreshold: envIntOr("BIG_MOVE_THRESHOLD", 10),

		AssessmentBaseXP:    envIntOr("XP_ASSESSMENT_BASE", 25),
		AssessmentPercentXP: envIntOr("XP_ASSESSMENT_PERCENT", 75),
	}

	cfg.Metrics = []string{model.MetricXP}
	for _, m := range strings.Split(os.Getenv("EXTRA_METRICS"), ",") {
		if m = strings.TrimSpace(m); m != "" && m != model.MetricXP {
			cfg.Metrics = append(cfg.Metrics, m)
		}
	}

	cfg.XPValues = map[model.EventKind]int{
		model.KindBadgeEarned:         envIntOr("XP_BADGE_EARNED", 40),
		model.KindPlacementReported:   envIntOr("XP_PLACEMENT_REPORTED", 100),
		model.KindPlacementVerified30: envIntOr("XP_PLACEMENT_VERIFIED_30", 250),
		model.KindPlacementVerified90: envIntOr("XP_PLACEMENT_VERIFIED_90", 500),
		model.KindPostCreated:         envIntOr("XP_POST_CREATED", 15),
		model.KindPostUpvoted:         envIntOr("XP_POST_UPVOTED", 5),
	}

	if cfg.DBUser == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("missing required database config (DB_USER, DB_NAME)")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
