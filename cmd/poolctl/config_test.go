package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/poolkit/internal/backing"
	"github.com/joshuapare/poolkit/pool/arena"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "poolctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    func(t *testing.T, s settings)
		wantErr string
	}{
		{
			name: "partial file keeps defaults",
			body: "[arena]\nmax_size = 1048576\n",
			want: func(t *testing.T, s settings) {
				assert.Equal(t, 1<<20, s.Arena.MaxSize)
				assert.Equal(t, arena.DefaultConfig.InitialSize, s.Arena.InitialSize)
				assert.InDelta(t, 1.5, s.Arena.GrowthFactor, 1e-9)
				assert.Equal(t, "info", s.Log.Level)
			},
		},
		{
			name: "all keys",
			body: `
[arena]
initial_size = 4096
max_size = 65536
growth_factor = 2.0
source = "heap"

[log]
level = "debug"
file = "poolctl.log"
`,
			want: func(t *testing.T, s settings) {
				cfg, err := s.arenaConfig()
				require.NoError(t, err)
				assert.Equal(t, 4096, cfg.InitialSize)
				assert.Equal(t, 65536, cfg.MaxSize)
				assert.InDelta(t, 2.0, cfg.GrowthFactor, 1e-9)
				assert.Equal(t, backing.Heap, cfg.Source)
				assert.Equal(t, "poolctl.log", s.Log.File)
			},
		},
		{
			name:    "unknown key",
			body:    "[arena]\nmax_sise = 10\n",
			wantErr: "unknown config keys",
		},
		{
			name:    "invalid arena",
			body:    "[arena]\ngrowth_factor = 0.5\n",
			wantErr: "invalid config",
		},
		{
			name:    "unknown source",
			body:    "[arena]\nsource = \"tape\"\n",
			wantErr: "unknown backing source",
		},
		{
			name:    "malformed",
			body:    "[arena\n",
			wantErr: "failed to read config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := loadSettings(writeConfig(t, tt.body))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.want(t, s)
		})
	}
}

func TestLoadSettings_MissingFile(t *testing.T) {
	_, err := loadSettings(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestConfigCommand(t *testing.T) {
	resetGlobals(t)

	output, err := captureOutput(t, runConfig)
	require.NoError(t, err)
	assertContains(t, output, []string{"[arena]", "initial_size = 65536", "source = \"heap\"", "[log]"})
	assertNotContains(t, output, []string{"file ="})

	// The printed configuration loads back unchanged.
	s, err := loadSettings(writeConfig(t, output))
	require.NoError(t, err)
	assert.Equal(t, conf, s)
}

func TestConfigCommand_JSON(t *testing.T) {
	resetGlobals(t)
	jsonOut = true

	output, err := captureOutput(t, runConfig)
	require.NoError(t, err)
	assertJSON(t, output)

	var s settings
	require.NoError(t, json.Unmarshal([]byte(output), &s))
	assert.Equal(t, conf, s)
}
