package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
)

const envPrefix = "CRUMBOT_"

// Load merges the TOML file at path over Defaults, then applies .env and
// CRUMBOT_* overrides. A missing file is not an error. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Wrapf(err, apperrors.ConfigInvalid, "decode %s", path)
		}
	}

	_ = godotenv.Load()

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Bot.ClickRate = getEnvFloat("CLICK_RATE", cfg.Bot.ClickRate)
	cfg.Bot.BuyInterval = getEnvDuration("BUY_INTERVAL", cfg.Bot.BuyInterval)
	cfg.Bot.BonusInterval = getEnvDuration("BONUS_INTERVAL", cfg.Bot.BonusInterval)
	cfg.Bot.RefreshInterval = getEnvDuration("REFRESH_INTERVAL", cfg.Bot.RefreshInterval)
	cfg.Bot.StatsInterval = getEnvDuration("STATS_INTERVAL", cfg.Bot.StatsInterval)
	cfg.Bot.StartDelay = getEnvDuration("START_DELAY", cfg.Bot.StartDelay)
	cfg.Bot.BuyCooldown = getEnvDuration("BUY_COOLDOWN", cfg.Bot.BuyCooldown)
	cfg.Bot.SnapshotMaxAge = getEnvDuration("SNAPSHOT_MAX_AGE", cfg.Bot.SnapshotMaxAge)

	cfg.Window.Titles = getEnvList("WINDOW_TITLES", cfg.Window.Titles)
	cfg.Window.Retries = getEnvInt("WINDOW_RETRIES", cfg.Window.Retries)

	cfg.Vision.Backend = getEnv("VISION_BACKEND", cfg.Vision.Backend)
	cfg.Vision.RemoteAddr = getEnv("VISION_REMOTE_ADDR", cfg.Vision.RemoteAddr)
	cfg.Vision.MatchConfidence = getEnvFloat("MATCH_CONFIDENCE", cfg.Vision.MatchConfidence)
	cfg.Vision.TemplatePath = getEnv("TEMPLATE_PATH", cfg.Vision.TemplatePath)
	cfg.Vision.DebugScreenshots = getEnvBool("DEBUG_SCREENSHOTS", cfg.Vision.DebugScreenshots)

	cfg.Tooltip.Enabled = getEnvBool("TOOLTIP_ENABLED", cfg.Tooltip.Enabled)
	cfg.Tooltip.BatchSize = getEnvInt("TOOLTIP_BATCH_SIZE", cfg.Tooltip.BatchSize)

	cfg.Layout.File = getEnv("LAYOUT_FILE", cfg.Layout.File)
	cfg.Journal.Path = getEnv("JOURNAL_PATH", cfg.Journal.Path)
	cfg.Server.Addr = getEnv("HTTP_ADDR", cfg.Server.Addr)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.File = getEnv("LOG_FILE", cfg.Logging.File)
}

func getEnv(key, def string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(envPrefix + key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(envPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvDuration(key string, def Duration) Duration {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return D(d)
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(envPrefix + key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
