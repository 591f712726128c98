package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/thinkgo/internal/testutils"
)

func TestLoadSettingsDefaults(t *testing.T) {
	settings, err := LoadSettings(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "app", settings.RootNamespace)
	assert.Equal(t, "index", settings.DefaultApp)
	assert.True(t, settings.WithEvent)
	assert.False(t, settings.Multi)
	assert.Equal(t, "127.0.0.1:8000", settings.Server.Addr)
	assert.Equal(t, "info", settings.Log.Level)
	assert.NotNil(t, settings.Map)
}

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(v *viper.Viper)
		expectError string
		check       func(t *testing.T, s *Settings)
	}{
		{
			name: "multi app with name map",
			setup: func(v *viper.Viper) {
				v.Set("multi", true)
				v.Set("auto", true)
				v.Set("map", map[string]string{"blog": "cms", "shop": "store"})
			},
			check: func(t *testing.T, s *Settings) {
				assert.True(t, s.Multi)
				assert.True(t, s.Auto)
				assert.Equal(t, "cms", s.Map["blog"])
			},
		},
		{
			name: "path traversal rejected",
			setup: func(v *viper.Viper) {
				v.Set("root_path", "../../etc")
			},
			expectError: "traversal",
		},
		{
			name: "dangerous character rejected",
			setup: func(v *viper.Viper) {
				v.Set("base_path", "/srv/app;rm")
			},
			expectError: "dangerous character",
		},
		{
			name: "bad log level",
			setup: func(v *viper.Viper) {
				v.Set("log.level", "chatty")
			},
			expectError: "Level",
		},
		{
			name: "bad server address",
			setup: func(v *viper.Viper) {
				v.Set("server.addr", "not an address")
			},
			expectError: "Addr",
		},
		{
			name: "map key with slash",
			setup: func(v *viper.Viper) {
				v.Set("map", map[string]string{"a/b": "x"})
			},
			expectError: "single path segment",
		},
		{
			name: "default app with slash",
			setup: func(v *viper.Viper) {
				v.Set("default_app", "a/b")
			},
			expectError: "DefaultApp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)

			settings, err := LoadSettings(v)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			tt.check(t, settings)
		})
	}
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, validatePath("/srv/www/project"))
	assert.NoError(t, validatePath("relative/dir"))
	assert.Error(t, validatePath("../outside"))
	assert.Error(t, validatePath("/srv/$(whoami)"))

	for _, p := range testutils.SecurityTestCases.PathTraversal {
		assert.Error(t, validatePath(p), p)
	}
	for _, p := range testutils.SecurityTestCases.CommandInjection {
		assert.Error(t, validatePath(p), p)
	}
}
