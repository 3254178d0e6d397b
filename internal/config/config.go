// Package config provides types for handling configuration parameters.
package config

import (
	"flag"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config handles server-related constants and parameters.
type Config struct {
	ServerConfig  *ServerConfig
	StorageConfig *StorageConfig
	SecretConfig  *SecretConfig
	ServiceConfig *ServiceConfig
}

// ServerConfig defines default server-related constants and parameters and overwrites them with environment variables.
type ServerConfig struct {
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:":8080"`
	BaseURL       string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	EnableHTTPS   bool   `env:"ENABLE_HTTPS" envDefault:"false"`
	TrustedSubnet string `env:"TRUSTED_SUBNET"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
}

// StorageConfig retrieves storage-related parameters from environment.
type StorageConfig struct {
	FileStoragePath  string `env:"FILE_STORAGE_PATH"`
	DatabaseDSN      string `env:"DATABASE_DSN"`
	RemoteAPIAddress string `env:"REMOTE_API_ADDRESS"`
}

// SecretConfig retrieves ciphering-related parameters from environment.
type SecretConfig struct {
	UserKey string `env:"USER_KEY" envDefault:"jds__63h3_7ds"`
	AuthKey string `env:"AUTH_KEY" envDefault:"DROP_AUTH"`
}

// ServiceConfig retrieves share and room service parameters from environment.
type ServiceConfig struct {
	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"60s"`
	DefaultFileTTL   time.Duration `env:"FILE_TTL" envDefault:"24h"`
	RoomHistoryLimit int           `env:"ROOM_HISTORY_LIMIT" envDefault:"100"`
}

// NewServerConfig sets up a server configuration.
func NewServerConfig() (*ServerConfig, error) {
	cfg := ServerConfig{}
	err := env.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewStorageConfig sets up a storage configuration.
func NewStorageConfig() (*StorageConfig, error) {
	cfg := StorageConfig{}
	err := env.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewSecretConfig sets up a secret configuration.
func NewSecretConfig() (*SecretConfig, error) {
	cfg := SecretConfig{}
	err := env.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewServiceConfig sets up a share and room service configuration.
func NewServiceConfig() (*ServiceConfig, error) {
	cfg := ServiceConfig{}
	err := env.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewDefaultConfiguration sets up a total configuration.
func NewDefaultConfiguration() (*Config, error) {
	serverCfg, err := NewServerConfig()
	if err != nil {
		return nil, err
	}
	storageCfg, err := NewStorageConfig()
	if err != nil {
		return nil, err
	}
	secretCfg, err := NewSecretConfig()
	if err != nil {
		return nil, err
	}
	serviceCfg, err := NewServiceConfig()
	if err != nil {
		return nil, err
	}
	return &Config{
		ServerConfig:  serverCfg,
		StorageConfig: storageCfg,
		SecretConfig:  secretCfg,
		ServiceConfig: serviceCfg,
	}, nil
}

// ParseFlags parses command line arguments and stores them
func (c *Config) ParseFlags() {
	flag.StringVar(&c.ServerConfig.ServerAddress, "a", c.ServerConfig.ServerAddress, "Server address")
	flag.StringVar(&c.ServerConfig.BaseURL, "b", c.ServerConfig.BaseURL, "Base url")
	flag.BoolVar(&c.ServerConfig.EnableHTTPS, "s", c.ServerConfig.EnableHTTPS, "Enable HTTPS")
	flag.StringVar(&c.ServerConfig.TrustedSubnet, "t", c.ServerConfig.TrustedSubnet, "Trusted subnet in CIDR notation")
	flag.StringVar(&c.StorageConfig.FileStoragePath, "f", c.StorageConfig.FileStoragePath, "File storage path")
	flag.StringVar(&c.StorageConfig.DatabaseDSN, "d", c.StorageConfig.DatabaseDSN, "PSQL database DSN")
	flag.StringVar(&c.StorageConfig.RemoteAPIAddress, "r", c.StorageConfig.RemoteAPIAddress, "Remote document store address")
	flag.DurationVar(&c.ServiceConfig.PollInterval, "p", c.ServiceConfig.PollInterval, "Room poll interval")
	flag.Parse()
}
