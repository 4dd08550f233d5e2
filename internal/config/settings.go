package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SKETCHPM_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Settings is the user-tunable configuration of sketchpm.
type Settings struct {
	App            AppSettings            `koanf:"app"`
	PackageManager PackageManagerSettings `koanf:"package_manager"`
	Server         ServerSettings         `koanf:"server"`
	Log            LogSettings            `koanf:"log"`
}

// AppSettings controls where application data lives.
type AppSettings struct {
	Identifier string `koanf:"identifier"`
	DataDir    string `koanf:"data_dir"`
}

// PackageManagerSettings selects the external package-manager binary.
type PackageManagerSettings struct {
	Command string `koanf:"command"`
}

// ServerSettings configures the RPC listener.
type ServerSettings struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// LogSettings configures the zap logger.
type LogSettings struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// envSections are the top-level keys environment variables may target.
var envSections = []string{"package_manager", "server", "app", "log"}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() *Settings {
	s := &Settings{}
	applyDefaults(s)
	return s
}

// DefaultConfigFile returns ~/.config/sketchpm/config.yaml (or the platform
// equivalent).
func DefaultConfigFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "sketchpm", "config.yaml"), nil
}

// LoadSettings loads configuration from an optional YAML file, then overrides
// it with environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (SKETCHPM_PACKAGE_MANAGER_COMMAND, SKETCHPM_SERVER_PORT, ...)
//  2. YAML config file
//  3. Hardcoded defaults
//
// An empty path means DefaultConfigFile. A missing file is not an error.
func LoadSettings(path string) (*Settings, error) {
	k := koanf.New(".")

	if path == "" {
		p, err := DefaultConfigFile()
		if err != nil {
			return nil, err
		}
		path = p
	}

	content, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&s)

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// readConfigFile returns nil content when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// envKey maps SKETCHPM_PACKAGE_MANAGER_COMMAND to package_manager.command.
// Variables that do not name a known section are skipped.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range envSections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok && rest != "" {
			return section + "." + rest
		}
	}
	return ""
}

func applyDefaults(s *Settings) {
	if s.App.Identifier == "" {
		s.App.Identifier = DefaultIdentifier
	}
	if s.PackageManager.Command == "" {
		s.PackageManager.Command = "npm"
	}
	if s.Server.Host == "" {
		s.Server.Host = "127.0.0.1"
	}
	if s.Server.Port == 0 {
		s.Server.Port = 7717
	}
	if s.Log.Format == "" {
		s.Log.Format = "console"
	}
}

// Validate checks the settings for errors.
func (s *Settings) Validate() error {
	if s.Server.Port < 0 || s.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", s.Server.Port)
	}
	if s.Log.Format != "json" && s.Log.Format != "console" {
		return fmt.Errorf("log.format must be 'json' or 'console', got %q", s.Log.Format)
	}
	if strings.TrimSpace(s.PackageManager.Command) == "" {
		return fmt.Errorf("package_manager.command must not be blank")
	}
	return nil
}

// AppDirs returns the host-directory collaborator described by the settings.
func (s *Settings) AppDirs() *RealAppDirs {
	return NewRealAppDirs(s.App.Identifier, s.App.DataDir)
}
