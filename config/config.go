// Package config loads settings from (highest priority first):
//
//   - command-line flags
//   - INVENTORY_* environment variables (INVENTORY_SNAPSHOT_DIR for snapshot.dir)
//   - .env file
//   - config file: --config, INVENTORY_CONFIG_FILE or .inventory.yml
//   - defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "INVENTORY"

// DotEnvFile is loaded into the environment if it exists.
// Variables already set in the environment are not overwritten.
var DotEnvFile = ".env"

type MinioConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Access   string `mapstructure:"access"`
	Secret   string `mapstructure:"secret"`
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Prefix   string `mapstructure:"prefix"`
}

type SFTPConfig struct {
	User    string `mapstructure:"user"`
	Host    string `mapstructure:"host"`
	KeyPath string `mapstructure:"key_path"`
	Dir     string `mapstructure:"dir"`
}

type HTTPConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

type SnapshotConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
}

type BackupConfig struct {
	// local directory, e.g. a mounted disk
	Dir   string      `mapstructure:"dir"`
	Minio MinioConfig `mapstructure:"minio"`
	SFTP  SFTPConfig  `mapstructure:"sftp"`
	HTTP  HTTPConfig  `mapstructure:"http"`
}

type Config struct {
	DataFile    string         `mapstructure:"data_file"`
	LogDir      string         `mapstructure:"log_dir"`
	JournalDir  string         `mapstructure:"journal_dir"`
	Verbose     bool           `mapstructure:"verbose"`
	DirectWrite bool           `mapstructure:"direct_write"`
	Snapshot    SnapshotConfig `mapstructure:"snapshot"`
	Backup      BackupConfig   `mapstructure:"backup"`

	// config file that was read, empty if none
	File string `mapstructure:"-"`
}

var defaults = map[string]any{
	"data_file":             "items.dat",
	"log_dir":               "",
	"journal_dir":           "",
	"verbose":               false,
	"direct_write":          false,
	"snapshot.dir":          "snapshots",
	"snapshot.format":       "zst",
	"backup.dir":            "",
	"backup.minio.endpoint": "",
	"backup.minio.access":   "",
	"backup.minio.secret":   "",
	"backup.minio.bucket":   "",
	"backup.minio.region":   "",
	"backup.minio.prefix":   "inventory",
	"backup.sftp.user":      "",
	"backup.sftp.host":      "",
	"backup.sftp.key_path":  "",
	"backup.sftp.dir":       "",
	"backup.http.url":       "",
	"backup.http.api_key":   "",
}

// flag name => config key
var flagKeys = map[string]string{
	"verbose":      "verbose",
	"log-dir":      "log_dir",
	"journal-dir":  "journal_dir",
	"direct-write": "direct_write",
}

// Load reads configuration. cfgFile is optional, as is flags.
// Only flags that were set on the command line override other sources.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if DotEnvFile != "" {
		err := godotenv.Load(DotEnvFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: loading '%s': %w", DotEnvFile, err)
		}
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	explicit := true
	if cfgFile == "" {
		cfgFile = os.Getenv(envPrefix + "_CONFIG_FILE")
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		explicit = false
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".inventory")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.File = v.ConfigFileUsed()
	if c.DataFile == "" {
		return nil, errors.New("config: data_file can't be empty")
	}
	return &c, nil
}
