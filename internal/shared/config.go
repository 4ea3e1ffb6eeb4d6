package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Library  LibraryConfig  `toml:"library"`
	Database DatabaseConfig `toml:"database"`
	Behavior BehaviorConfig `toml:"behavior"`
	Playback PlaybackConfig `toml:"playback"`
}

// LibraryConfig describes the watched filesystem roots and scan behavior.
type LibraryConfig struct {
	Roots []string `toml:"roots"`
	// SettleSeconds is how long a file's mtime must be in the past before
	// the scanner will hash it. Files newer than this are assumed to still
	// be downloading and are skipped until the next scan.
	SettleSeconds int  `toml:"settle_seconds"`
	Watch         bool `toml:"watch"`
	// WatchRescansPerMinute bounds how often filesystem events may trigger
	// a rescan.
	WatchRescansPerMinute float64 `toml:"watch_rescans_per_minute"`
}

// DatabaseConfig contains catalog database settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// BehaviorConfig holds the tunable constants of the affinity model.
// Defaults are deliberately conservative; the invariants the selection
// engine relies on (bounded affinity, monotonic decay toward neutral,
// asymmetric skip penalty) hold for any sane values here.
type BehaviorConfig struct {
	EarlySkipThreshold float64 `toml:"early_skip_threshold"` // fraction of track
	LateSkipThreshold  float64 `toml:"late_skip_threshold"`
	NearEndThreshold   float64 `toml:"near_end_threshold"`
	CompletedReward    float64 `toml:"completed_reward"`
	EarlySkipPenalty   float64 `toml:"early_skip_penalty"`
	MiddleSkipPenalty  float64 `toml:"middle_skip_penalty"`
	LateSkipReward     float64 `toml:"late_skip_reward"`
	DecayHalfLifeDays  float64 `toml:"decay_half_life_days"`
	MinListenedSeconds float64 `toml:"min_listened_seconds"`
}

// PlaybackConfig holds selection and transport settings.
type PlaybackConfig struct {
	RecentWindow  int     `toml:"recent_window"`
	FloorWeight   float64 `toml:"floor_weight"`
	OpenRetryCap  int     `toml:"open_retry_cap"`
	InitialVolume float64 `toml:"initial_volume"`
	VolumeStep    float64 `toml:"volume_step"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SettleWindow returns the scanner settle window as a [time.Duration].
func (c LibraryConfig) SettleWindow() time.Duration {
	return time.Duration(c.SettleSeconds) * time.Second
}

// DecayHalfLife returns the affinity half-life as a [time.Duration].
func (c BehaviorConfig) DecayHalfLife() time.Duration {
	return time.Duration(c.DecayHalfLifeDays * 24 * float64(time.Hour))
}
