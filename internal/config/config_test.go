package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearAzureEnv makes sure values from the developer's shell do not leak in.
func clearAzureEnv(t *testing.T) {
	t.Helper()
	for _, name := range envBindings {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestConfigPrecedence(t *testing.T) {
	clearAzureEnv(t)

	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yml")
	configContent := []byte(`
azure:
  tenant_id: "tenant-from-file"
  subscription_id: "sub-from-file"
deployment:
  resource_group: "rg-from-file"
  template_file: "main.bicep"
  wait_timeout: "15m"
server:
  host: "127.0.0.1"
  port: 9090
  timeout: "1m"
  log_level: "debug"
`)
	if err := os.WriteFile(configPath, configContent, 0644); err != nil {
		t.Fatal(err)
	}

	// Environment variables should override the config file
	t.Setenv("BICEP_DEPLOYER_SERVER_PORT", "9091")
	t.Setenv("RESOURCE_GROUP", "lab-rg")
	t.Setenv("AZURE_CLIENT_SECRET", "env-secret")

	cfg, err := Load(configPath, filepath.Join(tmpDir, "missing-is-checked-below.env"))
	require.Error(t, err, "explicit env file must exist")
	assert.Nil(t, cfg)

	cfg, err = Load(configPath, "")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9091, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Server.Timeout)
	assert.Equal(t, "tenant-from-file", cfg.Azure.TenantID)
	assert.Equal(t, "env-secret", cfg.Azure.ClientSecret)
	assert.Equal(t, "lab-rg", cfg.Deployment.ResourceGroup)
	assert.Equal(t, 15*time.Minute, cfg.Deployment.WaitTimeout)
}

func TestPrefixedEnvOverridesPlainName(t *testing.T) {
	clearAzureEnv(t)
	t.Setenv("BICEP_DEPLOYER_DEPLOYMENT_RESOURCE_GROUP", "prefixed-rg")
	t.Setenv("RESOURCE_GROUP", "plain-rg")

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, "prefixed-rg", cfg.Deployment.ResourceGroup)
}

func TestEnvFile(t *testing.T) {
	clearAzureEnv(t)

	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, "lab.env")
	content := []byte("AZURE_TENANT_ID=tenant-from-dotenv\nBICEP_FILE=./infra/lab.bicep\n")
	require.NoError(t, os.WriteFile(envPath, content, 0644))

	cfg, err := Load("", envPath)
	require.NoError(t, err)

	assert.Equal(t, "tenant-from-dotenv", cfg.Azure.TenantID)
	assert.Equal(t, "./infra/lab.bicep", cfg.Deployment.TemplateFile)
}

func TestDefaultValues(t *testing.T) {
	clearAzureEnv(t)

	// Load config without any file or env vars
	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "DeploymentName", cfg.Deployment.Name)
	assert.Equal(t, ToolAz, cfg.Deployment.Tool)
	assert.Zero(t, cfg.Deployment.ToolTimeout)
	assert.Zero(t, cfg.Deployment.WaitTimeout)
	assert.Equal(t, LockNone, cfg.Lock.Backend)
	assert.Equal(t, time.Hour, cfg.Lock.TTL)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestConfigFileValidation(t *testing.T) {
	// Test non-existent config file
	_, err := Load("nonexistent.yml", "")
	assert.Error(t, err)

	// Test invalid config file path
	tmpDir := t.TempDir()
	_, err = Load(filepath.Join(tmpDir, "invalid/config.yml"), "")
	assert.Error(t, err)

	// Config path from the environment must exist too
	t.Setenv(ConfigPathEnvVar, filepath.Join(tmpDir, "gone.yml"))
	_, err = Load("", "")
	assert.Error(t, err)
}

func TestInvalidDuration(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yml")
	configContent := []byte(`
deployment:
  tool_timeout: "invalid"
`)
	require.NoError(t, os.WriteFile(configPath, configContent, 0644))

	_, err := Load(configPath, "")
	assert.Error(t, err)
}

func validConfig() *Config {
	cfg := &Config{}
	cfg.Azure.TenantID = "tenant"
	cfg.Azure.ClientID = "client"
	cfg.Azure.ClientSecret = "secret"
	cfg.Azure.SubscriptionID = "sub"
	cfg.Deployment.ResourceGroup = "lab-rg"
	cfg.Deployment.TemplateFile = "main.bicep"
	cfg.Deployment.Name = "DeploymentName"
	cfg.Deployment.Tool = ToolAz
	cfg.Lock.Backend = LockNone
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.Azure.ClientSecret = "" }, wantErr: "azure.client_secret"},
		{name: "missing resource group", mutate: func(c *Config) { c.Deployment.ResourceGroup = " " }, wantErr: "deployment.resource_group"},
		{name: "bad tool", mutate: func(c *Config) { c.Deployment.Tool = "terraform" }, wantErr: "conversion tool"},
		{name: "negative timeout", mutate: func(c *Config) { c.Deployment.WaitTimeout = -time.Second }, wantErr: "negative"},
		{name: "redis without addr", mutate: func(c *Config) { c.Lock.Backend = LockRedis }, wantErr: "redis_addr"},
		{name: "redis with addr", mutate: func(c *Config) { c.Lock.Backend = LockRedis; c.Lock.RedisAddr = "localhost:6379" }},
		{name: "bad lock backend", mutate: func(c *Config) { c.Lock.Backend = "etcd" }, wantErr: "lock backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
