// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads pulldemo's host configuration — listen address, log
// level, chunk batch size, scope-close lease deadline — from environment
// variables and an optional .env file. Environment/CLI configuration is a
// host-process concern and never leaks into package pull itself (spec §6:
// "No environment variables" scopes the core algebra, not an ambient host).
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds pulldemo's tunables.
type Config struct {
	ListenAddr        string        `mapstructure:"listen_addr" validate:"required,hostname_port|fqdn"`
	LogLevel          string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ChunkBatchSize    int           `mapstructure:"chunk_batch_size" validate:"required,gt=0"`
	LeaseWaitDeadline time.Duration `mapstructure:"lease_wait_deadline" validate:"gt=0"`
}

func defaults() Config {
	return Config{
		ListenAddr:        "127.0.0.1:8080",
		LogLevel:          "info",
		ChunkBatchSize:    64,
		LeaseWaitDeadline: 5 * time.Second,
	}
}

// Load reads .env (if present, ignored if not), then PULLDEMO_-prefixed
// environment variables over the built-in defaults, and validates the
// result.
func Load() (Config, error) {
	_ = godotenv.Load() // optional; absence is not an error

	v := viper.New()
	v.SetEnvPrefix("PULLDEMO")
	v.AutomaticEnv()

	d := defaults()
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("chunk_batch_size", d.ChunkBatchSize)
	v.SetDefault("lease_wait_deadline", d.LeaseWaitDeadline)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
