package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string
	DatabaseURL    string
	AllowedOrigins []string

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	RosterSize   int
	GridWidth    int
	GridHeight   int
	MoveRange    int
	AttackDamage int

	MatchIdleTimeout time.Duration
	ReaperInterval   time.Duration

	Archive ArchiveConfig

	LogLevel string
	LogDev   bool
}

type ArchiveConfig struct {
	Enabled         bool
	Interval        time.Duration
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

var ErrMissingSecret = errors.New("JWT_SECRET environment variable not set")

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "5200")
	v.SetDefault("DATABASE_URL", "sqlite://skirmish.db")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("JWT_ISSUER", "skirmish-server")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("ROSTER_SIZE", 3)
	v.SetDefault("GRID_WIDTH", 16)
	v.SetDefault("GRID_HEIGHT", 10)
	v.SetDefault("MOVE_RANGE", 3)
	v.SetDefault("ATTACK_DAMAGE", 10)
	v.SetDefault("MATCH_IDLE_TIMEOUT", "72h")
	v.SetDefault("REAPER_INTERVAL", "10m")
	v.SetDefault("ARCHIVE_ENABLED", false)
	v.SetDefault("ARCHIVE_INTERVAL", "1m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEV", false)
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:           v.GetString("PORT"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),

		JWTSecret: v.GetString("JWT_SECRET"),
		JWTIssuer: v.GetString("JWT_ISSUER"),
		JWTTTL:    v.GetDuration("JWT_TTL"),

		RosterSize:   v.GetInt("ROSTER_SIZE"),
		GridWidth:    v.GetInt("GRID_WIDTH"),
		GridHeight:   v.GetInt("GRID_HEIGHT"),
		MoveRange:    v.GetInt("MOVE_RANGE"),
		AttackDamage: v.GetInt("ATTACK_DAMAGE"),

		MatchIdleTimeout: v.GetDuration("MATCH_IDLE_TIMEOUT"),
		ReaperInterval:   v.GetDuration("REAPER_INTERVAL"),

		Archive: ArchiveConfig{
			Enabled:         v.GetBool("ARCHIVE_ENABLED"),
			Interval:        v.GetDuration("ARCHIVE_INTERVAL"),
			AccountID:       v.GetString("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     v.GetString("R2_ACCESS_KEY_ID"),
			AccessKeySecret: v.GetString("R2_ACCESS_KEY_SECRET"),
			Bucket:          v.GetString("R2_BUCKET_NAME"),
			CDNBaseURL:      v.GetString("CDN_BASE_URL"),
		},

		LogLevel: v.GetString("LOG_LEVEL"),
		LogDev:   v.GetBool("LOG_DEV"),
	}
	if cfg.JWTSecret == "" {
		return Config{}, ErrMissingSecret
	}
	if cfg.Archive.Enabled && (cfg.Archive.AccountID == "" || cfg.Archive.Bucket == "") {
		return Config{}, errors.New("archive enabled but CLOUDFLARE_ACCOUNT_ID or R2_BUCKET_NAME not set")
	}
	return cfg, nil
}

// NewViper returns a viper instance with defaults applied, for callers that
// want to override keys before FromViper.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
