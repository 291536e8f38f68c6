// internal/storage/kv/kv.go
package kv

import (
	"context"
	"fmt"

	"github.com/newthinker/signaldeck/internal/config"
	"github.com/newthinker/signaldeck/internal/core"
)

// Backend names accepted in preferences.backend.
const (
	BackendLocalFS = "localfs"
	BackendS3      = "s3"
	BackendRedis   = "redis"
	BackendSQLite  = "sqlite"
	BackendMemory  = "memory"
)

// New creates the storage backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.PreferencesConfig) (Storage, error) {
	switch cfg.Backend {
	case BackendLocalFS, "":
		return NewLocalFS(cfg.Path)
	case BackendS3:
		return NewS3(S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	case BackendRedis:
		return NewRedis(ctx, RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	case BackendSQLite:
		return NewSQLite(ctx, cfg.SQLite.DSN)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown preferences backend %q", cfg.Backend))
	}
}
