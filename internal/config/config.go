// Package config loads process configuration from the environment and the
// gameplay balance from an optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"tycooncore/internal/archive"
	"tycooncore/internal/kv"
)

// DefaultSaveKey is the primary key the active save is stored under.
const DefaultSaveKey = "tycoon_save"

// Environment variables:
//
//	TYCOON_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	TYCOON_SQLITE_PATH: path to sqlite file (default ./tycoon.db)
//	TYCOON_POSTGRES_DSN: postgres DSN when driver=postgres
//	TYCOON_QUOTA_BYTES: maximum stored document size (default unlimited)
//	TYCOON_SAVE_KEY: primary save key (default tycoon_save)
//	TYCOON_ARCHIVE_DRIVER: none|fs|s3|memory (default none)
//	TYCOON_ARCHIVE_FS_ROOT: directory for the fs archive
//	TYCOON_ARCHIVE_S3_BUCKET / _REGION / _ENDPOINT / _PATH_STYLE
//	TYCOON_AMQP_URL: forward events to this broker when set
//	TYCOON_AMQP_EXCHANGE: topic exchange name (default tycoon.events)
//	TYCOON_HTTP_ADDR: listen address for tycoond (default :8080)
//	TYCOON_BALANCE_FILE: YAML balance overrides
//	TYCOON_LOG_LEVEL: debug|info|warn|error (default info)
const envPrefix = "TYCOON_"

// AMQP configures the optional event forwarder.
type AMQP struct {
	URL      string
	Exchange string
}

// Config is the resolved process configuration.
type Config struct {
	Storage     kv.Options
	SaveKey     string
	Archive     archive.Options
	AMQP        AMQP
	HTTPAddr    string
	LogLevel    slog.Level
	BalanceFile string
	Balance     Balance
}

// Load resolves configuration from the process environment.
func Load() (Config, error) { return LoadFrom(os.Getenv) }

// LoadFrom resolves configuration using getenv, which lets tests supply a
// fixed environment.
func LoadFrom(getenv func(string) string) (Config, error) {
	env := func(name string) string { return strings.TrimSpace(getenv(envPrefix + name)) }

	cfg := Config{
		Storage: kv.Options{
			Driver:      kv.Driver(env("STORAGE_DRIVER")),
			SQLitePath:  env("SQLITE_PATH"),
			PostgresDSN: env("POSTGRES_DSN"),
		},
		SaveKey: env("SAVE_KEY"),
		Archive: archive.Options{
			Driver: archive.Driver(env("ARCHIVE_DRIVER")),
			FSRoot: env("ARCHIVE_FS_ROOT"),
			S3: archive.S3Config{
				Bucket:    env("ARCHIVE_S3_BUCKET"),
				Region:    env("ARCHIVE_S3_REGION"),
				Endpoint:  env("ARCHIVE_S3_ENDPOINT"),
				PathStyle: strings.EqualFold(env("ARCHIVE_S3_PATH_STYLE"), "true"),
			},
		},
		AMQP: AMQP{
			URL:      env("AMQP_URL"),
			Exchange: env("AMQP_EXCHANGE"),
		},
		HTTPAddr:    env("HTTP_ADDR"),
		BalanceFile: env("BALANCE_FILE"),
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = kv.DriverSQLite
	}
	if cfg.SaveKey == "" {
		cfg.SaveKey = DefaultSaveKey
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if raw := env("QUOTA_BYTES"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("%sQUOTA_BYTES: invalid value %q", envPrefix, raw)
		}
		cfg.Storage.QuotaBytes = n
	}
	level, err := parseLevel(env("LOG_LEVEL"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	balance, err := LoadBalance(cfg.BalanceFile)
	if err != nil {
		return Config{}, err
	}
	cfg.Balance = balance
	return cfg, nil
}

func parseLevel(raw string) (slog.Level, error) {
	if raw == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("%sLOG_LEVEL: %w", envPrefix, err)
	}
	return level, nil
}
