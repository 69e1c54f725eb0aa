package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// ErrLoadConfig indicates a failure to read or parse the YAML configuration.
var ErrLoadConfig = errors.New("config load failed")

// ErrValidateConfig indicates that the loaded configuration is invalid.
var ErrValidateConfig = errors.New("configuration validation failed")

// Config is the complete configuration of one backup run. It is built once
// at startup and passed into every component; nothing reads it globally.
type Config struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	BackupRootDir   string `mapstructure:"backup_root_dir"   yaml:"backup_root_dir"`
	BackupDirFormat string `mapstructure:"backup_dir_format" yaml:"backup_dir_format"`
	LogDir          string `mapstructure:"log_dir"           yaml:"log_dir"`
	PreDir          string `mapstructure:"pre_dir"           yaml:"pre_dir"`
	PostDir         string `mapstructure:"post_dir"          yaml:"post_dir"`
	StatusFile      string `mapstructure:"status_file"       yaml:"status_file"`

	Compress     bool `mapstructure:"compress"      yaml:"compress"`
	CompressLogs bool `mapstructure:"compress_logs" yaml:"compress_logs"`
	Keep         int  `mapstructure:"keep"          yaml:"keep"`
	Threads      int  `mapstructure:"threads"       yaml:"threads"`

	MySQLUser     string   `mapstructure:"mysql_user"     yaml:"mysql_user"`
	MySQLPassword string   `mapstructure:"mysql_password" yaml:"mysql_password"`
	MySQLHost     string   `mapstructure:"mysql_host"     yaml:"mysql_host"`
	MySQLSocket   string   `mapstructure:"mysql_socket"   yaml:"mysql_socket"`
	MydumperOpts  []string `mapstructure:"mydumper_opts"  yaml:"mydumper_opts,omitempty"`

	MailRcpts []string `mapstructure:"mail_rcpts" yaml:"mail_rcpts,omitempty"`
	MailFrom  string   `mapstructure:"mail_from"  yaml:"mail_from,omitempty"`
	SMTPAddr  string   `mapstructure:"smtp_addr"  yaml:"smtp_addr,omitempty"`

	Vault VaultConfig `mapstructure:"vault" yaml:"vault"`
}

// VaultConfig holds the optional Vault credential source. When enabled, the
// MySQL user and password come from Vault instead of this file.
type VaultConfig struct {
	Enabled  bool   `mapstructure:"enabled"   yaml:"enabled"`
	Address  string `mapstructure:"address"   yaml:"address,omitempty"`
	RoleID   string `mapstructure:"role_id"   yaml:"role_id,omitempty"`
	RoleName string `mapstructure:"role_name" yaml:"role_name,omitempty"`
	KVPath   string `mapstructure:"kv_path"   yaml:"kv_path,omitempty"`
}

// Load reads the configuration from the given YAML file using Viper and
// unmarshals it into the Config struct, then validates it.
func (c *Config) Load(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("enabled", true)
	v.SetDefault("backup_dir_format", "2006-01-02")
	v.SetDefault("threads", 4)
	v.SetDefault("keep", 0)
	v.SetDefault("status_file", "/var/run/mybak.status")
	v.SetDefault("smtp_addr", "localhost:25")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: read config %s: %v", ErrLoadConfig, path, err)
	}

	if err := v.UnmarshalExact(c); err != nil {
		return fmt.Errorf("%w: unmarshal config: %v", ErrLoadConfig, err)
	}

	return c.validate()
}

func (c *Config) validate() error {
	if !c.Enabled {
		// A disabled run never touches the filesystem, so nothing else
		// has to be present.
		return nil
	}
	required := map[string]string{
		"backup_root_dir": c.BackupRootDir,
		"log_dir":         c.LogDir,
		"pre_dir":         c.PreDir,
		"post_dir":        c.PostDir,
	}
	for key, val := range required {
		if val == "" {
			return fmt.Errorf("%w: %s is required", ErrValidateConfig, key)
		}
	}
	if c.MySQLUser == "" && !c.Vault.Enabled {
		return fmt.Errorf("%w: mysql_user is required unless vault is enabled", ErrValidateConfig)
	}
	if c.BackupDirFormat == "" {
		return fmt.Errorf("%w: backup_dir_format must not be empty", ErrValidateConfig)
	}
	if c.Keep < 0 {
		return fmt.Errorf("%w: keep must be >= 0", ErrValidateConfig)
	}
	if c.Threads < 1 {
		return fmt.Errorf("%w: threads must be >= 1", ErrValidateConfig)
	}
	return nil
}
