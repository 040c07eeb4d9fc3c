package config

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
	"github.com/Cafe137/swarm-chunked-upload/internal/errors"
	"github.com/Cafe137/swarm-chunked-upload/internal/postage"
)

// Config holds the application configuration
type Config struct {
	LogLevel string `yaml:"log_level"`
	Quiet    bool   `yaml:"quiet"`

	BeeURL         string        `yaml:"bee_url"`
	BatchID        string        `yaml:"batch_id"`
	BatchDepth     int           `yaml:"batch_depth"`
	Deferred       bool          `yaml:"deferred"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// PrivateKey is the hex signing key. PrivateKeyParameter names an SSM
	// SecureString holding it instead.
	PrivateKey          string `yaml:"private_key"`
	PrivateKeyParameter string `yaml:"private_key_parameter"`
	StampScheme         string `yaml:"stamp_scheme"`
	StateFile           string `yaml:"state_file"`

	Parallelism  int           `yaml:"parallelism"`
	Retries      int           `yaml:"retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	ContentType  string        `yaml:"content_type"`

	DynamoDBTable string   `yaml:"dynamodb_table"`
	ExportTargets []string `yaml:"export_targets"`
	// ExportTag adds every S3 bucket tagged key=value as an export target.
	ExportTag string `yaml:"export_tag"`
}

// LoadConfig loads configuration from config.yaml, environment variables, or CLI flags
// Priority: CLI flags > Environment variables > config.yaml > defaults
func LoadConfig(configPath string, rootCmd *cobra.Command) (*Config, error) {
	if err := setupViper(configPath, rootCmd); err != nil {
		return nil, err
	}

	return &Config{
		LogLevel:            viper.GetString("log_level"),
		Quiet:               viper.GetBool("quiet"),
		BeeURL:              viper.GetString("bee_url"),
		BatchID:             strings.TrimPrefix(viper.GetString("batch_id"), "0x"),
		BatchDepth:          viper.GetInt("batch_depth"),
		Deferred:            viper.GetBool("deferred"),
		RequestTimeout:      viper.GetDuration("request_timeout"),
		PrivateKey:          strings.TrimPrefix(viper.GetString("private_key"), "0x"),
		PrivateKeyParameter: viper.GetString("private_key_parameter"),
		StampScheme:         viper.GetString("stamp_scheme"),
		StateFile:           viper.GetString("state_file"),
		Parallelism:         viper.GetInt("parallelism"),
		Retries:             viper.GetInt("retries"),
		RetryBackoff:        viper.GetDuration("retry_backoff"),
		ContentType:         viper.GetString("content_type"),
		DynamoDBTable:       viper.GetString("dynamodb_table"),
		ExportTargets:       viper.GetStringSlice("export_targets"),
		ExportTag:           viper.GetString("export_tag"),
	}, nil
}

// setupViper configures Viper with defaults, paths, and bindings
func setupViper(configPath string, rootCmd *cobra.Command) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	setDefaults()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	// STAMP is the variable name older scripts use for the batch id
	if err := viper.BindEnv("batch_id", "BATCH_ID", "STAMP"); err != nil {
		return fmt.Errorf("failed to bind environment: %w", err)
	}

	if rootCmd != nil {
		if err := bindFlags(rootCmd); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// bindFlags maps kebab-case persistent flags onto snake_case keys.
func bindFlags(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()
	for _, key := range viper.AllKeys() {
		flag := flags.Lookup(strings.ReplaceAll(key, "_", "-"))
		if flag == nil {
			continue
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("quiet", false)
	viper.SetDefault("bee_url", "http://localhost:1633")
	viper.SetDefault("batch_id", "")
	viper.SetDefault("batch_depth", 20)
	viper.SetDefault("deferred", true)
	viper.SetDefault("request_timeout", time.Duration(0))
	viper.SetDefault("private_key", "")
	viper.SetDefault("private_key_parameter", "")
	viper.SetDefault("stamp_scheme", postage.SchemeFlat.String())
	viper.SetDefault("state_file", "state.bin")
	viper.SetDefault("parallelism", 8)
	viper.SetDefault("retries", 5)
	viper.SetDefault("retry_backoff", time.Duration(0))
	viper.SetDefault("content_type", "")
	viper.SetDefault("dynamodb_table", "")
	viper.SetDefault("export_targets", []string{"file://chunks"})
	viper.SetDefault("export_tag", "")
}

// SetConfigValue sets a configuration value (used for CLI flags)
func SetConfigValue(key string, value interface{}) {
	viper.Set(key, value)
}

// Validate checks the settings every upload and export needs.
func (c *Config) Validate() error {
	if c.BeeURL == "" {
		return errors.ConfigNotSetError("bee_url")
	}
	if c.BatchID == "" {
		return errors.ConfigNotSetError("batch_id")
	}
	if c.PrivateKey == "" && c.PrivateKeyParameter == "" {
		return errors.ConfigNotSetError("private_key")
	}
	if _, err := c.PostageBatch(); err != nil {
		return err
	}
	if _, err := c.Scheme(); err != nil {
		return err
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", c.Parallelism)
	}
	if c.Retries < 1 {
		return fmt.Errorf("retries must be at least 1, got %d", c.Retries)
	}
	if c.RetryBackoff < 0 || c.RequestTimeout < 0 {
		return fmt.Errorf("durations cannot be negative")
	}
	return nil
}

// PostageBatch parses the configured batch id and depth.
func (c *Config) PostageBatch() (domain.PostageBatch, error) {
	return domain.ParsePostageBatch(c.BatchID, c.BatchDepth)
}

// Scheme parses the configured stamp scheme.
func (c *Config) Scheme() (postage.Scheme, error) {
	return postage.ParseScheme(c.StampScheme)
}

// DecodePrivateKey decodes a hex signing key.
func DecodePrivateKey(key string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(key), "0x"))
	if err != nil {
		return nil, &errors.EncodingError{Field: "private key", Err: err}
	}
	return b, nil
}

// LoadAWSConfig loads AWS SDK configuration
func LoadAWSConfig(ctx context.Context) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return cfg, nil
}

// LoadGCSClient loads Google Cloud Storage client
func LoadGCSClient(ctx context.Context) (*storage.Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to create GCS client: %w", err)
	}
	return client, nil
}
