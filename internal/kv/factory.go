// Package kv selects and opens the durable key-value backend for save
// documents.
package kv

import (
	"context"
	"fmt"

	"tycooncore/internal/infra/kv/memory"
	"tycooncore/internal/infra/kv/postgres"
	"tycooncore/internal/infra/kv/sqlite"
	"tycooncore/pkg/domain"
)

// Driver identifies a concrete storage implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// Options configures Open. The zero value opens the default sqlite file.
type Options struct {
	Driver      Driver `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	// QuotaBytes caps a single stored document; zero disables the cap.
	QuotaBytes int `yaml:"quota_bytes"`
}

// Open returns the backend named by opts.Driver, defaulting to sqlite.
func Open(ctx context.Context, opts Options) (domain.KVStore, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverMemory:
		return memory.NewStore(opts.QuotaBytes), nil
	case DriverSQLite:
		s, err := sqlite.NewStore(opts.SQLitePath, opts.QuotaBytes)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := postgres.NewStore(ctx, opts.PostgresDSN, opts.QuotaBytes)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
