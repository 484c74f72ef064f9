// Package config provides configuration management for heapquery.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

// SnapshotConfig holds decode/load configuration.
type SnapshotConfig struct {
	// BatchSize is the number of rows per bulk insert batch.
	BatchSize int `mapstructure:"batch_size"`
	// Force rebuilds the companion database even if it already exists.
	Force bool `mapstructure:"force"`
	// WorkDir is where downloaded snapshots and companion databases are kept.
	WorkDir string `mapstructure:"work_dir"`
}

// DatabaseConfig holds storage engine configuration.
// The default engine is an embedded SQLite database stored beside the
// snapshot file; postgres and mysql are available for shared setups.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // sqlite, postgres or mysql
	Path     string `mapstructure:"path"` // sqlite only; empty means "<heap stem>.db3"
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// StorageConfig holds snapshot source configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // local or cos
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`
	Scheme    string `mapstructure:"scheme"`
	LocalPath string `mapstructure:"local_path"`
	// UploadArtifact uploads the produced companion database back to the
	// object store after a successful load (cos only).
	UploadArtifact bool `mapstructure:"upload_artifact"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/heapquery")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file; defaults make the tool fully usable.
		} else if os.IsNotExist(err) {
			// Explicit path that does not exist also falls back to defaults.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("HEAPQUERY")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("snapshot.batch_size", 500)
	v.SetDefault("snapshot.force", false)
	v.SetDefault("snapshot.work_dir", ".")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", ".")

	v.SetDefault("log.level", "info")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite":
		// Path may be empty; it is derived from the snapshot file name.
	case "postgres", "mysql":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required for %s", c.Database.Type)
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required for %s", c.Database.Type)
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Snapshot.BatchSize < 1 {
		return fmt.Errorf("snapshot batch size must be at least 1")
	}

	return nil
}
