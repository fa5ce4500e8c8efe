package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete costctl configuration.
type Config struct {
	Project     string            `mapstructure:"project"`
	Environment string            `mapstructure:"environment"`
	AWS         AWSConfig         `mapstructure:"aws"`
	Resources   ResourcesConfig   `mapstructure:"resources"`
	State       StateConfig       `mapstructure:"state"`
	Output      OutputConfig      `mapstructure:"output"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// AWSConfig contains AWS connection settings.
type AWSConfig struct {
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// ResourcesConfig names the resources the lifecycle commands manage.
type ResourcesConfig struct {
	Stream    StreamConfig    `mapstructure:"stream"`
	Functions FunctionsConfig `mapstructure:"functions"`
	Alarms    AlarmsConfig    `mapstructure:"alarms"`
}

// StreamConfig contains the Kinesis stream settings.
type StreamConfig struct {
	Name         string `mapstructure:"name"`
	ActiveShards int    `mapstructure:"active_shards"`
}

// FunctionsConfig contains the Lambda function set.
type FunctionsConfig struct {
	Names []string `mapstructure:"names"`
}

// AlarmsConfig contains the CloudWatch alarm selection.
type AlarmsConfig struct {
	NamePrefix string `mapstructure:"name_prefix"`
}

// StateConfig contains state snapshot settings.
type StateConfig struct {
	FilePath string `mapstructure:"file_path"`
	S3Bucket string `mapstructure:"s3_bucket"`
	S3Prefix string `mapstructure:"s3_prefix"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Project:     "",
		Environment: "dev",
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Resources: ResourcesConfig{
			Stream: StreamConfig{
				ActiveShards: 2,
			},
		},
		State: StateConfig{
			FilePath: filepath.Join(home, ".costctl", "state.json"),
			S3Prefix: "costctl-state",
		},
		Output: OutputConfig{
			Format: "text",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from file and environment. The config file
// is optional; defaults plus COSTCTL_* environment variables are
// enough for simple setups.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("costctl")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".costctl"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("COSTCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("aws.region", "AWS_REGION", "AWS_DEFAULT_REGION")
	v.BindEnv("aws.profile", "AWS_PROFILE")
	v.BindEnv("logging.level", "LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		// An explicitly requested file must exist; the default search
		// is allowed to come up empty.
		if path != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// Validate checks the fields the lifecycle commands cannot run without.
func (c *Config) Validate() error {
	if c.Project == "" {
		return fmt.Errorf("project is required")
	}
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Resources.Stream.Name == "" {
		return fmt.Errorf("resources.stream.name is required")
	}
	if len(c.Resources.Functions.Names) == 0 {
		return fmt.Errorf("resources.functions.names must list at least one function")
	}
	if c.Resources.Alarms.NamePrefix == "" {
		return fmt.Errorf("resources.alarms.name_prefix is required")
	}
	if c.Resources.Stream.ActiveShards < 1 {
		return fmt.Errorf("resources.stream.active_shards must be at least 1")
	}
	if c.State.FilePath == "" {
		return fmt.Errorf("state.file_path is required")
	}
	return nil
}

// HasS3Backup reports whether S3 state mirroring is configured.
func (c *Config) HasS3Backup() bool {
	return c.State.S3Bucket != ""
}

// ExpandPaths expands ~ in path-valued fields.
func (c *Config) ExpandPaths() error {
	expanded, err := expandPath(c.State.FilePath)
	if err != nil {
		return fmt.Errorf("failed to expand state file path: %w", err)
	}
	c.State.FilePath = expanded
	return nil
}

func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
