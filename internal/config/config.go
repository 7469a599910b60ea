package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ConfigPathEnvVar = "BICEP_DEPLOYER_CONFIG_PATH" // Environment variable for config path
	DefaultEnvFile   = ".env"
)

// Supported conversion tools
const (
	ToolAz    = "az"
	ToolBicep = "bicep"
)

// Supported lock backends
const (
	LockNone   = "none"
	LockMemory = "memory"
	LockRedis  = "redis"
)

// ErrInvalidConfig is returned by Validate for incomplete or inconsistent configuration
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration for the application
type Config struct {
	// Debug enables verbose logging and additional debug information
	Debug bool `mapstructure:"debug"`

	// Azure credentials and subscription
	Azure struct {
		TenantID       string `mapstructure:"tenant_id"`
		ClientID       string `mapstructure:"client_id"`
		ClientSecret   string `mapstructure:"client_secret"`
		SubscriptionID string `mapstructure:"subscription_id"`
	} `mapstructure:"azure"`

	// Deployment describes the single template/resource group pair
	Deployment struct {
		ResourceGroup  string        `mapstructure:"resource_group"`
		TemplateFile   string        `mapstructure:"template_file"`
		Name           string        `mapstructure:"name"`
		Tool           string        `mapstructure:"tool"`
		ToolTimeout    time.Duration `mapstructure:"tool_timeout"`
		WaitTimeout    time.Duration `mapstructure:"wait_timeout"`
		StrictTemplate bool          `mapstructure:"strict_template"`
	} `mapstructure:"deployment"`

	// Lock configuration for serializing deployments per resource group
	Lock struct {
		Backend       string        `mapstructure:"backend"`
		RedisAddr     string        `mapstructure:"redis_addr"`
		RedisPassword string        `mapstructure:"redis_password"`
		RedisDB       int           `mapstructure:"redis_db"`
		TTL           time.Duration `mapstructure:"ttl"`
	} `mapstructure:"lock"`

	// Server configuration
	Server struct {
		Host     string        `mapstructure:"host"`
		Port     int           `mapstructure:"port"`
		Timeout  time.Duration `mapstructure:"timeout"`
		LogLevel string        `mapstructure:"log_level"`
	} `mapstructure:"server"`
}

// envBindings maps config keys to the plain environment variable names the
// service has always been configured with.
var envBindings = map[string]string{
	"azure.tenant_id":           "AZURE_TENANT_ID",
	"azure.client_id":           "AZURE_CLIENT_ID",
	"azure.client_secret":       "AZURE_CLIENT_SECRET",
	"azure.subscription_id":     "AZURE_SUBSCRIPTION_ID",
	"deployment.resource_group": "RESOURCE_GROUP",
	"deployment.template_file":  "BICEP_FILE",
}

// Load initializes and returns the configuration from all sources:
// 1. Command-line flags (highest priority, applied by the caller)
// 2. Environment variables (prefixed with BICEP_DEPLOYER_, or the plain Azure names)
// 3. Configuration file
// 4. Defaults (lowest priority)
//
// envFile is loaded into the process environment before anything is read.
// An empty envFile means ".env" in the current directory, if present.
func Load(configPath, envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	// Check for environment variable config path if not explicitly provided
	if configPath == "" {
		if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
			if _, err := os.Stat(envPath); os.IsNotExist(err) {
				return nil, fmt.Errorf("config file specified in %s not found: %s", ConfigPathEnvVar, envPath)
			}
			configPath = envPath
		}
	} else {
		// Verify explicitly provided config file exists
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
	}
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Read config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config.yml in the current directory
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Read environment variables
	v.SetEnvPrefix("BICEP_DEPLOYER")
	v.AutomaticEnv()
	// Replace dots with underscores in env vars
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, name := range envBindings {
		if err := v.BindEnv(key, "BICEP_DEPLOYER_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), name); err != nil {
			return nil, fmt.Errorf("error binding env %s: %w", name, err)
		}
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		} else if configPath != "" {
			// Only error if config file was explicitly specified
			return nil, fmt.Errorf("specified config file not found: %s", configPath)
		}
		// If no config file was specified, we'll use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func loadEnvFile(envFile string) error {
	if envFile == "" {
		if _, err := os.Stat(DefaultEnvFile); err != nil {
			return nil
		}
		envFile = DefaultEnvFile
	}
	// godotenv.Load never overrides variables that are already set
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("error loading env file %s: %w", envFile, err)
	}
	return nil
}

// setDefaults sets default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	// Deployment defaults
	v.SetDefault("deployment.name", "DeploymentName")
	v.SetDefault("deployment.tool", ToolAz)
	v.SetDefault("deployment.tool_timeout", "0s")
	v.SetDefault("deployment.wait_timeout", "0s")
	v.SetDefault("deployment.strict_template", false)

	// Lock defaults
	v.SetDefault("lock.backend", LockNone)
	v.SetDefault("lock.redis_addr", "localhost:6379")
	v.SetDefault("lock.redis_password", "")
	v.SetDefault("lock.redis_db", 0)
	v.SetDefault("lock.ttl", "1h")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("server.log_level", "info")
}

// Validate checks that everything needed to run a deployment is present.
func (c *Config) Validate() error {
	var missing []string
	required := []struct {
		key   string
		value string
	}{
		{"azure.tenant_id", c.Azure.TenantID},
		{"azure.client_id", c.Azure.ClientID},
		{"azure.client_secret", c.Azure.ClientSecret},
		{"azure.subscription_id", c.Azure.SubscriptionID},
		{"deployment.resource_group", c.Deployment.ResourceGroup},
		{"deployment.template_file", c.Deployment.TemplateFile},
		{"deployment.name", c.Deployment.Name},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}

	switch c.Deployment.Tool {
	case ToolAz, ToolBicep:
	default:
		return fmt.Errorf("%w: unknown conversion tool %q", ErrInvalidConfig, c.Deployment.Tool)
	}

	if c.Deployment.ToolTimeout < 0 || c.Deployment.WaitTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}

	switch c.Lock.Backend {
	case LockNone, LockMemory:
	case LockRedis:
		if c.Lock.RedisAddr == "" {
			return fmt.Errorf("%w: lock.redis_addr is required for the redis lock backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown lock backend %q", ErrInvalidConfig, c.Lock.Backend)
	}

	return nil
}

// Address returns the host:port the API server listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
