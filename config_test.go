package difyaws

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dify.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
region: us-west-2
apiImageTag: 1.2.0
allowAnySysCalls: true
sandboxPythonPackages:
  - requests==2.31.0
consoleEnvironment:
  DB_DATABASE: dify_admin
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "us-west-2", cfg.Region)
	assert.Equal(t, "langgenius/dify-api:1.2.0", cfg.ApiImage())
	assert.True(t, cfg.AllowAnySysCalls)
	assert.Equal(t, "dify_admin", cfg.ConsoleEnvironment["DB_DATABASE"])

	// Unset tags fall back to defaults.
	assert.Equal(t, "langgenius/dify-sandbox:"+DefaultSandboxImageTag, cfg.SandboxImage())
	assert.Equal(t, "langgenius/dify-plugin-daemon:"+DefaultPluginDaemonImageTag, cfg.PluginDaemonImage())
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing region",
			mutate:  func(c *Config) { c.Region = "" },
			wantErr: "region is required",
		},
		{
			name:    "empty override name",
			mutate:  func(c *Config) { c.ConsoleEnvironment = map[string]string{"": "x"} },
			wantErr: "empty variable name",
		},
		{
			name:    "equals in override name",
			mutate:  func(c *Config) { c.ApiEnvironment = map[string]string{"A=B": "x"} },
			wantErr: "contains '='",
		},
		{
			name: "name in both console maps",
			mutate: func(c *Config) {
				c.ConsoleEnvironment = map[string]string{"TOKEN": "x"}
				c.ConsoleSecrets = map[string]string{"TOKEN": "arn:aws:secretsmanager:us-east-1:1:secret:x"}
			},
			wantErr: "both plain and secret",
		},
		{
			name:    "empty secret arn",
			mutate:  func(c *Config) { c.ConsoleSecrets = map[string]string{"TOKEN": ""} },
			wantErr: "empty ARN",
		},
		{
			name:    "quoted sandbox package",
			mutate:  func(c *Config) { c.SandboxPythonPackages = []string{"bad'pkg"} },
			wantErr: "quoting characters",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Region: "us-east-1"}
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestImageRegistryPrefix(t *testing.T) {
	cfg := &Config{Region: "us-east-1", ImageRegistry: "123456789012.dkr.ecr.us-east-1.amazonaws.com/"}
	require.NoError(t, cfg.Validate())

	assert.Equal(t,
		"123456789012.dkr.ecr.us-east-1.amazonaws.com/langgenius/dify-api:"+DefaultApiImageTag,
		cfg.ConsoleImage())
	assert.Equal(t,
		"123456789012.dkr.ecr.us-east-1.amazonaws.com/"+DefaultKnowledgeBaseImage,
		cfg.KnowledgeBaseImageRef())

	// The api service always pulls the public image.
	assert.Equal(t, "langgenius/dify-api:"+DefaultApiImageTag, cfg.ApiImage())
}
