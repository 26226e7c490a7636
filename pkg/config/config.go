package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	// API settings
	APIHost string `mapstructure:"api_host"`
	APIPort int    `mapstructure:"api_port"`

	// JWT settings
	JWTSecretKey string `mapstructure:"jwt_secret_key"`
	JWTAlgorithm string `mapstructure:"jwt_algorithm"`

	// Store settings
	StoreType string `mapstructure:"store_type"` // "jsonl" or "sqlite"
	StorePath string `mapstructure:"store_path"`
	DBPath    string `mapstructure:"db_path"`

	// Password hashing
	BcryptCost int `mapstructure:"bcrypt_cost"`

	// Optional SSL settings
	SSLCert string `mapstructure:"ssl_cert"`
	SSLKey  string `mapstructure:"ssl_key"`

	// Optional CORS settings
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Development settings
	DevMode bool `mapstructure:"dev_mode"`

	ConfigPath string
}

// IsDevMode reports whether the service runs with development conveniences
// such as verbose gin output.
func (c *Config) IsDevMode() bool {
	return c.DevMode
}

const (
	DefaultAPIHost      = "0.0.0.0"
	DefaultAPIPort      = 3000
	DefaultJWTSecretKey = "secret"
	DefaultJWTAlgorithm = "HS256"
	DefaultStoreType    = "jsonl"
	DefaultStorePath    = "./users.jsonl"
	DefaultDBPath       = "./accountd.sqlite3"
	DefaultBcryptCost   = 10
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("api_host", DefaultAPIHost)
	v.SetDefault("api_port", DefaultAPIPort)
	v.SetDefault("jwt_secret_key", DefaultJWTSecretKey)
	v.SetDefault("jwt_algorithm", DefaultJWTAlgorithm)
	v.SetDefault("store_type", DefaultStoreType)
	v.SetDefault("store_path", DefaultStorePath)
	v.SetDefault("db_path", DefaultDBPath)
	v.SetDefault("bcrypt_cost", DefaultBcryptCost)

	// Allow environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("ACCOUNTD")

	// The service runs with a fully defaulted config when no file is given
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ConfigPath = configPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecretKey == "" {
		return errors.New("jwt_secret_key is required")
	}

	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("jwt_algorithm must be HS256, HS384 or HS512, got %q", c.JWTAlgorithm)
	}

	switch c.StoreType {
	case "jsonl":
		if c.StorePath == "" {
			return errors.New("store_path is required for the jsonl store")
		}
	case "sqlite":
		if c.DBPath == "" {
			return errors.New("db_path is required for the sqlite store")
		}
	default:
		return fmt.Errorf("store_type must be 'jsonl' or 'sqlite', got %q", c.StoreType)
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	// Validate SSL config if provided
	if c.SSLCert != "" || c.SSLKey != "" {
		if c.SSLCert == "" || c.SSLKey == "" {
			return errors.New("both ssl_cert and ssl_key must be provided")
		}
		if _, err := os.Stat(c.SSLCert); os.IsNotExist(err) {
			return fmt.Errorf("ssl_cert does not exist: %s", c.SSLCert)
		}
		if _, err := os.Stat(c.SSLKey); os.IsNotExist(err) {
			return fmt.Errorf("ssl_key does not exist: %s", c.SSLKey)
		}
	}

	return nil
}
