package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/codingconcepts/env"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	HubConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetPort() string
	GetWSPort() string
	GetWSHost() string
	GetTLSFiles() (certFile, keyFile string, ok bool)
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Hub
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("[config Load] failed to load .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (Config, error) {
	c := mainConfig{}
	sections := []any{&c.EnvVars, &c.Cors, &c.OAuth, &c.Security, &c.Hub}
	for _, section := range sections {
		if err := env.Set(section); err != nil {
			return nil, fmt.Errorf("[config FromEnv] %w", err)
		}
	}
	if err := c.OAuth.validate(); err != nil {
		return nil, fmt.Errorf("[config FromEnv] invalid oauth configuration: %w", err)
	}
	return c, nil
}
