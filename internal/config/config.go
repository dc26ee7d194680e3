package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/jscyril/chiptune_player/internal/emu"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CHIPTUNE_AUDIO_SAMPLE_RATE
const EnvPrefix = "CHIPTUNE"

// Config holds application configuration
type Config struct {
	MusicDirectories []string       `mapstructure:"music_directories"`
	Extensions       []string       `mapstructure:"extensions"`
	Recursive        bool           `mapstructure:"recursive"`
	Audio            AudioConfig    `mapstructure:"audio"`
	Playback         PlaybackConfig `mapstructure:"playback"`
	UI               UIConfig       `mapstructure:"ui"`
	DataDir          string         `mapstructure:"data_dir"`
	LogFile          string         `mapstructure:"log_file"`
	LogLevel         string         `mapstructure:"log_level"`
	KeyBindings      KeyMap         `mapstructure:"key_bindings"`
}

// AudioConfig contains output device settings
type AudioConfig struct {
	SampleRate int           `mapstructure:"sample_rate"`
	Latency    time.Duration `mapstructure:"latency"`
	ByMemory   bool          `mapstructure:"by_memory"`
}

// PlaybackConfig contains the startup values of the playback knobs
type PlaybackConfig struct {
	Shuffle      bool          `mapstructure:"shuffle"`
	Loop         bool          `mapstructure:"loop"`
	FadeOut      bool          `mapstructure:"fade_out"`
	FadeLength   time.Duration `mapstructure:"fade_length"`
	Tempo        float64       `mapstructure:"tempo"`
	StereoDepth  float64       `mapstructure:"stereo_depth"`
	Accurate     bool          `mapstructure:"accurate"`
	EchoDisabled bool          `mapstructure:"echo_disabled"`
}

// UIConfig contains loop and display settings
type UIConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	ErrorLogSize int           `mapstructure:"error_log_size"`
	ErrorTail    int           `mapstructure:"error_tail"`
	ScopeWidth   int           `mapstructure:"scope_width"`
	ScopeHeight  int           `mapstructure:"scope_height"`
}

// KeyMap defines keyboard shortcuts; each action accepts several keys
type KeyMap struct {
	Quit           []string `mapstructure:"quit"`
	NextTrack      []string `mapstructure:"next_track"`
	PrevTrack      []string `mapstructure:"prev_track"`
	NextFile       []string `mapstructure:"next_file"`
	PrevFile       []string `mapstructure:"prev_file"`
	Pause          []string `mapstructure:"pause"`
	SeekForward    []string `mapstructure:"seek_forward"`
	SeekBack       []string `mapstructure:"seek_back"`
	TempoUp        []string `mapstructure:"tempo_up"`
	TempoDown      []string `mapstructure:"tempo_down"`
	Accuracy       []string `mapstructure:"accuracy"`
	StereoEcho     []string `mapstructure:"stereo_echo"`
	EchoDisable    []string `mapstructure:"echo_disable"`
	FadeOut        []string `mapstructure:"fade_out"`
	Loop           []string `mapstructure:"loop"`
	Shuffle        []string `mapstructure:"shuffle"`
	ResetTempoMute []string `mapstructure:"reset"`
}

// DefaultExtensions are the game music formats plus every format a
// built-in backend decodes
func DefaultExtensions() []string {
	return lo.Uniq(append(emu.ChiptuneExtensions(), emu.DefaultRegistry().Extensions()...))
}

// GetDefaultConfig returns default configuration
func GetDefaultConfig() *Config {
	return &Config{
		MusicDirectories: []string{"."},
		Extensions:       DefaultExtensions(),
		Recursive:        false,
		Audio: AudioConfig{
			SampleRate: 44100,
			Latency:    100 * time.Millisecond,
		},
		Playback: PlaybackConfig{
			Shuffle:    true,
			FadeOut:    true,
			FadeLength: 2 * time.Second,
			Tempo:      1.0,
		},
		UI: UIConfig{
			TickInterval: 10 * time.Millisecond,
			ErrorLogSize: 64,
			ErrorTail:    5,
			ScopeWidth:   64,
			ScopeHeight:  8,
		},
		DataDir:  defaultDataDir(),
		LogLevel: "info",
		KeyBindings: KeyMap{
			Quit:           []string{"q", "esc", "ctrl+c"},
			NextTrack:      []string{"right"},
			PrevTrack:      []string{"left"},
			NextFile:       []string{"n"},
			PrevFile:       []string{"p"},
			Pause:          []string{" "},
			SeekForward:    []string{"up"},
			SeekBack:       []string{"down"},
			TempoUp:        []string{"="},
			TempoDown:      []string{"-"},
			Accuracy:       []string{"a"},
			StereoEcho:     []string{"e"},
			EchoDisable:    []string{"d"},
			FadeOut:        []string{"f"},
			Loop:           []string{"l"},
			Shuffle:        []string{"s"},
			ResetTempoMute: []string{"0"},
		},
	}
}

// setDefaults registers every key with viper so env overrides and file
// values merge over them
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("music_directories", c.MusicDirectories)
	v.SetDefault("extensions", c.Extensions)
	v.SetDefault("recursive", c.Recursive)
	v.SetDefault("audio.sample_rate", c.Audio.SampleRate)
	v.SetDefault("audio.latency", c.Audio.Latency.String())
	v.SetDefault("audio.by_memory", c.Audio.ByMemory)
	v.SetDefault("playback.shuffle", c.Playback.Shuffle)
	v.SetDefault("playback.loop", c.Playback.Loop)
	v.SetDefault("playback.fade_out", c.Playback.FadeOut)
	v.SetDefault("playback.fade_length", c.Playback.FadeLength.String())
	v.SetDefault("playback.tempo", c.Playback.Tempo)
	v.SetDefault("playback.stereo_depth", c.Playback.StereoDepth)
	v.SetDefault("playback.accurate", c.Playback.Accurate)
	v.SetDefault("playback.echo_disabled", c.Playback.EchoDisabled)
	v.SetDefault("ui.tick_interval", c.UI.TickInterval.String())
	v.SetDefault("ui.error_log_size", c.UI.ErrorLogSize)
	v.SetDefault("ui.error_tail", c.UI.ErrorTail)
	v.SetDefault("ui.scope_width", c.UI.ScopeWidth)
	v.SetDefault("ui.scope_height", c.UI.ScopeHeight)
	v.SetDefault("data_dir", c.DataDir)
	v.SetDefault("log_file", c.LogFile)
	v.SetDefault("log_level", c.LogLevel)

	k := c.KeyBindings
	v.SetDefault("key_bindings.quit", k.Quit)
	v.SetDefault("key_bindings.next_track", k.NextTrack)
	v.SetDefault("key_bindings.prev_track", k.PrevTrack)
	v.SetDefault("key_bindings.next_file", k.NextFile)
	v.SetDefault("key_bindings.prev_file", k.PrevFile)
	v.SetDefault("key_bindings.pause", k.Pause)
	v.SetDefault("key_bindings.seek_forward", k.SeekForward)
	v.SetDefault("key_bindings.seek_back", k.SeekBack)
	v.SetDefault("key_bindings.tempo_up", k.TempoUp)
	v.SetDefault("key_bindings.tempo_down", k.TempoDown)
	v.SetDefault("key_bindings.accuracy", k.Accuracy)
	v.SetDefault("key_bindings.stereo_echo", k.StereoEcho)
	v.SetDefault("key_bindings.echo_disable", k.EchoDisable)
	v.SetDefault("key_bindings.fade_out", k.FadeOut)
	v.SetDefault("key_bindings.loop", k.Loop)
	v.SetDefault("key_bindings.shuffle", k.Shuffle)
	v.SetDefault("key_bindings.reset", k.ResetTempoMute)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, GetDefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads configuration from path, layered over the defaults and
// under CHIPTUNE_* environment variables. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes configuration to path; the format follows the
// extension (toml, json or yaml)
func SaveConfig(config *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	setDefaults(v, config)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadOrCreate loads config from path or creates default if not exists
func LoadOrCreate(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveConfig(GetDefaultConfig(), path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}
	return LoadConfig(path)
}

// LoadEnvFile loads KEY=value pairs from a .env file into the environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Validate reports every out of range value
func (c *Config) Validate() error {
	var errs []error
	if len(c.Extensions) == 0 {
		errs = append(errs, errors.New("extensions: at least one is required"))
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate: must be positive, got %d", c.Audio.SampleRate))
	}
	if c.Audio.Latency <= 0 {
		errs = append(errs, fmt.Errorf("audio.latency: must be positive, got %v", c.Audio.Latency))
	}
	if c.Playback.Tempo < 0.1 || c.Playback.Tempo > 2.0 {
		errs = append(errs, fmt.Errorf("playback.tempo: must be within 0.1 and 2.0, got %v", c.Playback.Tempo))
	}
	if c.Playback.StereoDepth < 0 || c.Playback.StereoDepth > 0.5 {
		errs = append(errs, fmt.Errorf("playback.stereo_depth: must be within 0 and 0.5, got %v", c.Playback.StereoDepth))
	}
	if c.Playback.FadeLength < 0 {
		errs = append(errs, fmt.Errorf("playback.fade_length: must not be negative, got %v", c.Playback.FadeLength))
	}
	if c.UI.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("ui.tick_interval: must be positive, got %v", c.UI.TickInterval))
	}
	if c.UI.ErrorLogSize <= 0 {
		errs = append(errs, fmt.Errorf("ui.error_log_size: must be positive, got %d", c.UI.ErrorLogSize))
	}
	if c.UI.ScopeWidth <= 0 || c.UI.ScopeHeight <= 0 {
		errs = append(errs, fmt.Errorf("ui.scope: size must be positive, got %dx%d", c.UI.ScopeWidth, c.UI.ScopeHeight))
	}
	return errors.Join(errs...)
}

// LogPath returns the log file, defaulting into the data directory
func (c *Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.DataDir, "player.log")
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	// Check environment variable first
	if path := os.Getenv("CHIPTUNE_PLAYER_CONFIG"); path != "" {
		return path
	}

	// Use XDG config directory if available
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "chiptune-player", "config.toml")
	}

	// Fall back to home directory
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.toml"
	}

	return filepath.Join(home, ".config", "chiptune-player", "config.toml")
}

func defaultDataDir() string {
	if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
		return filepath.Join(xdgState, "chiptune-player")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".local", "state", "chiptune-player")
}
