package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/alevsk/bicep-deployer/internal/config"
	"github.com/alevsk/bicep-deployer/internal/types"
)

func TestMainExecute(t *testing.T) {
	rootCmd.SetArgs([]string{"--help"})
	main()
}

func validConfig() *config.Config {
	c := &config.Config{}
	c.Azure.TenantID = "00000000-0000-0000-0000-000000000001"
	c.Azure.ClientID = "00000000-0000-0000-0000-000000000002"
	c.Azure.ClientSecret = "secret"
	c.Azure.SubscriptionID = "00000000-0000-0000-0000-000000000003"
	c.Deployment.ResourceGroup = "lab-rg"
	c.Deployment.TemplateFile = "main.bicep"
	c.Deployment.Name = "DeploymentName"
	c.Deployment.Tool = config.ToolAz
	c.Lock.Backend = config.LockMemory
	c.Lock.TTL = time.Hour
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8080
	c.Server.LogLevel = "info"
	return c
}

func TestServeCmd_PreRun(t *testing.T) {
	cfg = validConfig()
	t.Cleanup(func() {
		for _, name := range []string{"host", "port", "timeout", "log-level"} {
			serveCmd.Flags().Lookup(name).Changed = false
		}
	})

	require.NoError(t, serveCmd.Flags().Set("host", "127.0.0.1"))
	require.NoError(t, serveCmd.Flags().Set("port", "9999"))
	require.NoError(t, serveCmd.Flags().Set("timeout", "5s"))
	require.NoError(t, serveCmd.Flags().Set("log-level", "debug"))
	require.NoError(t, serveCmd.PreRunE(serveCmd, nil))

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "127.0.0.1:9999", cfg.Address())
}

func TestServeCmd_PreRunInvalidTimeout(t *testing.T) {
	cfg = validConfig()
	t.Cleanup(func() { serveCmd.Flags().Lookup("timeout").Changed = false })

	require.NoError(t, serveCmd.Flags().Set("timeout", "soon"))
	assert.Error(t, serveCmd.PreRunE(serveCmd, nil))
}

func TestApplyDeploymentFlags(t *testing.T) {
	cfg = validConfig()
	t.Cleanup(func() {
		for _, name := range []string{"resource-group", "template", "name", "tool"} {
			deployCmd.Flags().Lookup(name).Changed = false
		}
	})

	require.NoError(t, deployCmd.Flags().Set("resource-group", "other-rg"))
	require.NoError(t, deployCmd.Flags().Set("template", "lab/vm.bicep"))
	require.NoError(t, deployCmd.Flags().Set("name", "lab-1"))
	require.NoError(t, deployCmd.Flags().Set("tool", "bicep"))
	applyDeploymentFlags(deployCmd)

	assert.Equal(t, "other-rg", cfg.Deployment.ResourceGroup)
	assert.Equal(t, "lab/vm.bicep", cfg.Deployment.TemplateFile)
	assert.Equal(t, "lab-1", cfg.Deployment.Name)
	assert.Equal(t, "bicep", cfg.Deployment.Tool)
}

func TestBuildApp(t *testing.T) {
	a, err := buildApp(validConfig())
	require.NoError(t, err)
	defer a.Close()

	req := a.deployer.Request()
	assert.Equal(t, "lab-rg", req.ResourceGroup)
	assert.Equal(t, "main.bicep", req.TemplateFile)
	assert.Equal(t, "DeploymentName", req.DeploymentName)
	assert.Equal(t, types.ModeIncremental, req.Mode)

	families, err := a.registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestBuildAppErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"missing secret", func(c *config.Config) { c.Azure.ClientSecret = "" }},
		{"missing resource group", func(c *config.Config) { c.Deployment.ResourceGroup = "" }},
		{"unknown tool", func(c *config.Config) { c.Deployment.Tool = "terraform" }},
		{"unknown lock backend", func(c *config.Config) { c.Lock.Backend = "etcd" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			a, err := buildApp(c)
			assert.Error(t, err)
			assert.Nil(t, a)
		})
	}
}

func TestDeployRejectsUnknownOutput(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("server:\n  log_level: error\n"), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", cfgFile, "--env-file", "", "deploy", "-o", "xml"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		deployOpts.output = "text"
		deployCmd.Flags().Lookup("output").Changed = false
	})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown formatter type: xml")
	assert.Empty(t, out.String())
}

func TestFormatVersion(t *testing.T) {
	info := VersionInfo{Version: "1.2.3", Commit: "abc123", Date: "2026-01-01"}

	plain, err := formatVersion(info, "plain")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3 (built: 2026-01-01 commit: abc123)\n", plain)

	out, err := formatVersion(info, "json")
	require.NoError(t, err)
	var fromJSON VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &fromJSON))
	assert.Equal(t, info, fromJSON)

	out, err = formatVersion(info, "yaml")
	require.NoError(t, err)
	var fromYAML VersionInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &fromYAML))
	assert.Equal(t, info, fromYAML)

	_, err = formatVersion(info, "toml")
	assert.Error(t, err)
}

func TestExitError(t *testing.T) {
	assert.Equal(t, "exit status 1", (&exitError{code: 1}).Error())
}
