// Package config provides configuration management for thinkgo.
//
// Two layers live here. Settings are the kernel's own start-up options (root
// path, multi-app mode, name map, logging) read by Viper from .thinkgo.yml,
// THINKGO_ environment variables and command-line flags. Store is the
// application configuration repository the kernel fills from the files it
// discovers under the config directories, one section per file.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Settings holds the kernel start-up options.
type Settings struct {
	RootPath      string            `mapstructure:"root_path"`
	BasePath      string            `mapstructure:"base_path"`
	AppPath       string            `mapstructure:"app_path"`
	Name          string            `mapstructure:"name"`
	Namespace     string            `mapstructure:"namespace"`
	RootNamespace string            `mapstructure:"root_namespace" validate:"required,excludesall=/"`
	DefaultApp    string            `mapstructure:"default_app" validate:"required,excludesall=/\\"`
	Multi         bool              `mapstructure:"multi"`
	Auto          bool              `mapstructure:"auto"`
	Debug         bool              `mapstructure:"debug"`
	WithEvent     bool              `mapstructure:"with_event"`
	Map           map[string]string `mapstructure:"map"`
	Server        ServerSettings    `mapstructure:"server"`
	Log           LogSettings       `mapstructure:"log"`
}

type ServerSettings struct {
	Addr  string `mapstructure:"addr" validate:"required,hostname_port"`
	Watch bool   `mapstructure:"watch"`
}

type LogSettings struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// SetDefaults registers the default values of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("root_namespace", "app")
	v.SetDefault("default_app", "index")
	v.SetDefault("with_event", true)
	v.SetDefault("server.addr", "127.0.0.1:8000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadSettings unmarshals and validates the settings held by v. A nil v
// uses the global Viper instance.
func LoadSettings(v *viper.Viper) (*Settings, error) {
	if v == nil {
		v = viper.GetViper()
	}
	SetDefaults(v)

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Viper lower-cases map keys; the name map needs the keys as URL segments
	// anyway, so only the nil case is handled here.
	if settings.Map == nil {
		settings.Map = make(map[string]string)
	}

	if err := validateSettings(&settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &settings, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateSettings validates settings values for security and correctness
func validateSettings(settings *Settings) error {
	if err := validate.Struct(settings); err != nil {
		return err
	}

	for field, path := range map[string]string{
		"root_path": settings.RootPath,
		"base_path": settings.BasePath,
		"app_path":  settings.AppPath,
	} {
		if path == "" {
			continue
		}
		if err := validatePath(path); err != nil {
			return fmt.Errorf("invalid %s '%s': %w", field, path, err)
		}
	}

	for segment, name := range settings.Map {
		if strings.Contains(segment, "/") {
			return fmt.Errorf("map key %q must be a single path segment", segment)
		}
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("map key %q has an empty app name", segment)
		}
	}

	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	// Reject dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
