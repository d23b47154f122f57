// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/bnema/dispool/internal/logger"
)

// Config represents the daemon configuration
type Config struct {
	// Pool configuration
	Pool PoolConfig `mapstructure:"pool"`

	// Control socket configuration
	Socket SocketConfig `mapstructure:"socket"`

	// Display surface configuration, handed to the display adapter
	Display DisplayConfig `mapstructure:"display"`

	// Touch device configuration, handed to the touch adapter
	Touch TouchConfig `mapstructure:"touch"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// PoolConfig bounds the device pool
type PoolConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// SocketConfig locates the control socket
type SocketConfig struct {
	Path string `mapstructure:"path"`
}

// DisplayConfig contains display-surface adapter settings
type DisplayConfig struct {
	VideoMemBytes int    `mapstructure:"video_mem_bytes"` // RAM budget per surface
	Mode          string `mapstructure:"mode"`            // preferred mode, e.g. 640x480-8@60
}

// TouchConfig contains touch adapter settings
type TouchConfig struct {
	DevicePath  string `mapstructure:"device_path"`
	MaxX        int32  `mapstructure:"max_x"`
	MaxY        int32  `mapstructure:"max_y"`
	MaxContacts int    `mapstructure:"max_contacts"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Pool: PoolConfig{
			Capacity: 32,
		},
		Socket: SocketConfig{
			Path: "", // resolved at runtime, see SocketPath
		},
		Display: DisplayConfig{
			VideoMemBytes: 1 * 1024 * 1024,
			Mode:          "640x480-8@60",
		},
		Touch: TouchConfig{
			DevicePath:  "/dev/uinput",
			MaxX:        1024,
			MaxY:        768,
			MaxContacts: 10,
		},
		Logging: LoggingConfig{
			LogLevel: "",
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("dispool")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath("/etc/dispool")
		if home := os.Getenv("HOME"); home != "" {
			viper.AddConfigPath(filepath.Join(home, ".config", "dispool"))
		}
		viper.AddConfigPath(".")
	}

	setDefaults()

	viper.SetEnvPrefix("DISPOOL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error parsing config file: %w", err)
		}
		// No config file is fine, defaults apply
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg = config
	return nil
}

func setDefaults() {
	viper.SetDefault("pool.capacity", DefaultConfig.Pool.Capacity)
	viper.SetDefault("socket.path", DefaultConfig.Socket.Path)
	viper.SetDefault("display.video_mem_bytes", DefaultConfig.Display.VideoMemBytes)
	viper.SetDefault("display.mode", DefaultConfig.Display.Mode)
	viper.SetDefault("touch.device_path", DefaultConfig.Touch.DevicePath)
	viper.SetDefault("touch.max_x", DefaultConfig.Touch.MaxX)
	viper.SetDefault("touch.max_y", DefaultConfig.Touch.MaxY)
	viper.SetDefault("touch.max_contacts", DefaultConfig.Touch.MaxContacts)
	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)
}

// Get returns the current configuration, initializing it if needed
func Get() *Config {
	if cfg == nil {
		if err := Init(); err != nil {
			logger.Warnf("config init failed, using defaults: %v", err)
			defaultCopy := DefaultConfig
			cfg = &defaultCopy
		}
	}
	return cfg
}

// Set replaces the current configuration (used by tests)
func Set(c *Config) {
	cfg = c
}

// SocketPath resolves the control socket path: the configured value if set,
// otherwise a runtime directory appropriate for the current user.
func (c *Config) SocketPath() string {
	if c.Socket.Path != "" {
		return c.Socket.Path
	}
	if os.Geteuid() == 0 {
		return "/run/dispool/control.sock"
	}
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "dispool", "control.sock")
	}
	return filepath.Join(os.TempDir(), "dispool", "control.sock")
}
