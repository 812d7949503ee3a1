package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuf-in-toto/layoutdist/metadata"
)

func TestParseConfig(t *testing.T) {
	testCases := []struct {
		name          string
		config        string
		expectedError string
	}{
		{
			name:   "empty config gets defaults",
			config: "{}",
		},
		{
			name: "full config",
			config: `
expiryDays:
  root: 30
  targets: 1
thresholds:
  root: 2
extraRootKeys: 1
targets:
  - path: docs/notes.txt
    source: /tmp/notes.txt
versionConstraints: ">=1.0.0"
`,
		},
		{
			name:          "not yaml",
			config:        "{{",
			expectedError: "failed to unmarshal repository config",
		},
		{
			name: "zero expiry",
			config: `
expiryDays:
  targets: 0
`,
			expectedError: `role "targets" has invalid expiry of 0 days`,
		},
		{
			name: "zero threshold",
			config: `
thresholds:
  root: 0
`,
			expectedError: `role "root" has invalid threshold 0`,
		},
		{
			name:          "negative extra root keys",
			config:        "extraRootKeys: -1",
			expectedError: "extraRootKeys cannot be negative",
		},
		{
			name: "root threshold exceeds key count",
			config: `
thresholds:
  root: 2
`,
			expectedError: "root threshold 2 exceeds the 1 root keys generated",
		},
		{
			name: "target missing source",
			config: `
targets:
  - path: docs/notes.txt
`,
			expectedError: `target "docs/notes.txt" missing source`,
		},
		{
			name: "target path escapes repository",
			config: `
targets:
  - path: ../escape
    source: /tmp/escape
`,
			expectedError: `invalid target path "../escape"`,
		},
		{
			name: "layout missing functionary",
			config: `
layout:
  path: root.layout
`,
			expectedError: "layout missing functionary name",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := parseConfig([]byte(tc.config))
			if tc.expectedError != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, cfg.Thresholds[metadata.RoleTargets])
			assert.NotZero(t, cfg.ExpiryDays[metadata.RoleRoot])
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte("expiryDays:\n  root: 90\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.ExpiryDays[metadata.RoleRoot])
	assert.Equal(t, 7, cfg.ExpiryDays[metadata.RoleTargets])

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read repository config")
}
