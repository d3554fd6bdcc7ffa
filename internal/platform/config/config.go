// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. Outside production a
local .env file is read first so developers do not need to export every variable.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
*/
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Backend Selectors

const (
	// BackendMemory keeps state inside the running process.
	BackendMemory = "memory"

	// BackendRedis shares state between instances through Redis.
	BackendRedis = "redis"
)

// # Configuration Schema

// Config holds all runtime configuration for the Opsdash API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Cryptographic keys for access token signing
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH,required"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required"`

	// SessionBackend selects where authenticated sessions live ("memory" or "redis").
	SessionBackend string `env:"SESSION_BACKEND" envDefault:"memory"`

	// LoginLimiterBackend selects where failed login counters live ("memory" or "redis").
	LoginLimiterBackend string `env:"LOGIN_LIMITER_BACKEND" envDefault:"memory"`

	// WooCommerce REST API (wc/v3)
	WooAPIURL         string `env:"WOO_API_URL,required"`
	WooConsumerKey    string `env:"WOO_CONSUMER_KEY,required"`
	WooConsumerSecret string `env:"WOO_CONSUMER_SECRET,required"`

	// Object Storage (MinIO / S3-compatible) for the MRP label library
	S3Endpoint  string `env:"S3_ENDPOINT,required"`
	S3AccessKey string `env:"S3_ACCESS_KEY,required"`
	S3SecretKey string `env:"S3_SECRET_KEY,required"`
	S3Bucket    string `env:"S3_BUCKET"   envDefault:"mrp-labels"`
	S3UseSSL    bool   `env:"S3_USE_SSL"  envDefault:"true"`

	// Cross-Origin Resource Sharing
	AllowedOriginSuffix string `env:"ALLOWED_ORIGIN_SUFFIX" envDefault:".internal"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// A missing .env file is the normal case in containers.
	if os.Getenv("ENVIRONMENT") != "production" {
		_ = godotenv.Load()
	}

	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects combinations the env tags cannot express.
func (c *Config) validate() error {
	for name, value := range map[string]string{
		"SESSION_BACKEND":       c.SessionBackend,
		"LOGIN_LIMITER_BACKEND": c.LoginLimiterBackend,
	} {
		if value != BackendMemory && value != BackendRedis {
			return fmt.Errorf("config: %s must be %q or %q, got %q", name, BackendMemory, BackendRedis, value)
		}
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// OriginSuffix returns the host suffix accepted by CORS outside development.
func (c *Config) OriginSuffix() string {
	return c.AllowedOriginSuffix
}
