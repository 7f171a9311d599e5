package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds persistent settings for both halves of the toolchain:
// assembler defaults (search paths, predefined macros, warning level,
// output path) and the handful of emulator limits that still matter
// once a program is running (§9). Adapted from the teacher's
// Execution/Debugger/Display/Trace/Statistics table, trimmed to the
// sub-tables an assembler-and-emulator pair (rather than an interactive
// debugger) actually consults.
type Config struct {
	// Assembler settings
	Assembler struct {
		IncludePaths   []string          `toml:"include_paths"`
		PredefinedMacros map[string]string `toml:"predefined_macros"`
		WarningLevel   string            `toml:"warning_level"` // none, all, error
		OutputPath     string            `toml:"output_path"`
		DefaultEndian  string            `toml:"default_endian"` // little, big
	} `toml:"assembler"`

	// Execution settings (the one sub-table of the teacher's config
	// that still fits the emulator as-is).
	Execution struct {
		MaxCycles uint64 `toml:"max_cycles"`
		StackSize uint   `toml:"stack_size"`
	} `toml:"execution"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Assembler.IncludePaths = nil
	cfg.Assembler.PredefinedMacros = map[string]string{}
	cfg.Assembler.WarningLevel = "none"
	cfg.Assembler.OutputPath = "a.o"
	cfg.Assembler.DefaultEndian = "little"

	cfg.Execution.MaxCycles = 1000000
	cfg.Execution.StackSize = 65536 // 64KB

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\emu32asm\config.toml
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "emu32asm")

	case "darwin", "linux":
		// macOS/Linux: ~/.config/emu32asm/config.toml
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "emu32asm")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// GetLogPath returns the platform-specific log directory path.
func GetLogPath() string {
	var logDir string

	switch runtime.GOOS {
	case "windows":
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, "emu32asm", "logs")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", "emu32asm", "logs")

	default:
		return "logs"
	}

	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "logs"
	}

	return logDir
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file. A missing file
// is not an error: it yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
