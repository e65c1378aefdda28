// Package config handles bot configuration
package config

import (
	"time"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
)

// Config is read once at startup and never mutated afterwards.
type Config struct {
	Bot     BotConfig     `toml:"bot"`
	Window  WindowConfig  `toml:"window"`
	Vision  VisionConfig  `toml:"vision"`
	Tooltip TooltipConfig `toml:"tooltip"`
	Layout  LayoutConfig  `toml:"layout"`
	Journal JournalConfig `toml:"journal"`
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
}

type BotConfig struct {
	ClickRate       float64  `toml:"click_rate"` // Hz
	BuyInterval     Duration `toml:"buy_interval"`
	BonusInterval   Duration `toml:"bonus_interval"`
	RefreshInterval Duration `toml:"refresh_interval"`
	StatsInterval   Duration `toml:"stats_interval"`
	StartDelay      Duration `toml:"start_delay"`
	SnapshotMaxAge  Duration `toml:"snapshot_max_age"`
	BuyCooldown     Duration `toml:"buy_cooldown"`
	StallAfter      Duration `toml:"stall_after"`
	MainJitter      int      `toml:"main_jitter"`
	FailsafeCorner  int      `toml:"failsafe_corner"`
}

type WindowConfig struct {
	Titles     []string `toml:"titles"`
	Retries    int      `toml:"retries"`
	RetryDelay Duration `toml:"retry_delay"`
	FocusPause Duration `toml:"focus_pause"`
}

type VisionConfig struct {
	Backend          string   `toml:"backend"` // auto, tesseract, remote, none
	RemoteAddr       string   `toml:"remote_addr"`
	Language         string   `toml:"language"`
	MatchConfidence  float64  `toml:"match_confidence"`
	TemplatePath     string   `toml:"template_path"`
	DebugScreenshots bool     `toml:"debug_screenshots"`
	DebugDir         string   `toml:"debug_dir"`
	HashSkipDistance int      `toml:"hash_skip_distance"`
	RemoteTimeout    Duration `toml:"remote_timeout"`
}

type TooltipConfig struct {
	Enabled     bool     `toml:"enabled"`
	Expiry      Duration `toml:"expiry"`
	MinInterval Duration `toml:"min_interval"`
	BatchSize   int      `toml:"batch_size"`
	SettleDelay Duration `toml:"settle_delay"`
}

type LayoutConfig struct {
	File string `toml:"file"`
}

type JournalConfig struct {
	Path       string   `toml:"path"`
	BatchSize  int      `toml:"batch_size"`
	FlushDelay Duration `toml:"flush_delay"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Duration decodes TOML strings like "500ms" or "2s".
type Duration struct {
	time.Duration
}

// D is shorthand for building a Duration literal.
func D(d time.Duration) Duration { return Duration{d} }

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the configuration used when no file or env override is present.
func Defaults() Config {
	return Config{
		Bot: BotConfig{
			ClickRate:       20,
			BuyInterval:     D(2 * time.Second),
			BonusInterval:   D(500 * time.Millisecond),
			RefreshInterval: D(5 * time.Second),
			StatsInterval:   D(30 * time.Second),
			StartDelay:      D(5 * time.Second),
			SnapshotMaxAge:  D(10 * time.Second),
			BuyCooldown:     D(500 * time.Millisecond),
			StallAfter:      D(5 * time.Minute),
			MainJitter:      30,
			FailsafeCorner:  5,
		},
		Window: WindowConfig{
			Titles:     []string{"Cookie Clicker", "cookie clicker"},
			Retries:    5,
			RetryDelay: D(2 * time.Second),
			FocusPause: D(300 * time.Millisecond),
		},
		Vision: VisionConfig{
			Backend:          "auto",
			RemoteAddr:       "",
			Language:         "eng",
			MatchConfidence:  0.75,
			TemplatePath:     "assets/golden_cookie.png",
			DebugDir:         "debug",
			HashSkipDistance: 2,
			RemoteTimeout:    D(2 * time.Second),
		},
		Tooltip: TooltipConfig{
			Enabled:     true,
			Expiry:      D(30 * time.Second),
			MinInterval: D(60 * time.Second),
			BatchSize:   3,
			SettleDelay: D(200 * time.Millisecond),
		},
		Journal: JournalConfig{
			Path:       "crumbot.db",
			BatchSize:  10,
			FlushDelay: D(5 * time.Second),
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Validate rejects configurations the loops cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Bot.ClickRate <= 0:
		return apperrors.New(apperrors.ConfigInvalid, "bot.click_rate must be positive")
	case c.Bot.BuyInterval.Duration <= 0:
		return apperrors.New(apperrors.ConfigInvalid, "bot.buy_interval must be positive")
	case c.Bot.BonusInterval.Duration <= 0:
		return apperrors.New(apperrors.ConfigInvalid, "bot.bonus_interval must be positive")
	case c.Bot.RefreshInterval.Duration <= 0:
		return apperrors.New(apperrors.ConfigInvalid, "bot.refresh_interval must be positive")
	case c.Bot.SnapshotMaxAge.Duration < 0:
		return apperrors.New(apperrors.ConfigInvalid, "bot.snapshot_max_age must not be negative")
	case c.Bot.SnapshotMaxAge.Duration > 0 && c.Bot.SnapshotMaxAge.Duration < c.Bot.RefreshInterval.Duration:
		return apperrors.New(apperrors.ConfigInvalid, "bot.snapshot_max_age must not be shorter than bot.refresh_interval")
	case c.Bot.BuyCooldown.Duration < 0:
		return apperrors.New(apperrors.ConfigInvalid, "bot.buy_cooldown must not be negative")
	case len(c.Window.Titles) == 0:
		return apperrors.New(apperrors.ConfigInvalid, "window.titles must not be empty")
	case c.Window.Retries < 1:
		return apperrors.New(apperrors.ConfigInvalid, "window.retries must be at least 1")
	case c.Vision.MatchConfidence <= 0 || c.Vision.MatchConfidence > 1:
		return apperrors.New(apperrors.ConfigInvalid, "vision.match_confidence must be in (0, 1]")
	case c.Tooltip.BatchSize < 1:
		return apperrors.New(apperrors.ConfigInvalid, "tooltip.batch_size must be at least 1")
	case c.Tooltip.Expiry.Duration <= 0:
		return apperrors.New(apperrors.ConfigInvalid, "tooltip.expiry must be positive")
	}
	switch c.Vision.Backend {
	case "auto", "tesseract", "remote", "none":
	default:
		return apperrors.Newf(apperrors.ConfigInvalid, "vision.backend %q is not one of auto, tesseract, remote, none", c.Vision.Backend)
	}
	if c.Vision.Backend == "remote" && c.Vision.RemoteAddr == "" {
		return apperrors.New(apperrors.ConfigInvalid, "vision.remote_addr is required for the remote backend")
	}
	return nil
}

// ClickInterval converts the click rate into a ticker period.
func (c *Config) ClickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Bot.ClickRate)
}
