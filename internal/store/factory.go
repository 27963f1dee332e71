package store

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/ShayBox/VRC-BAN/internal/config"
	"github.com/ShayBox/VRC-BAN/internal/core"
)

// Store types supported by New.
const (
	TypeMemory = "memory"
	TypeSQLite = "sqlite"
	TypeRedis  = "redis"
)

// New creates the log store selected by the configuration.
func New(ctx context.Context, cfg config.StoreConfig) (core.LogStore, error) {
	switch cfg.Type {
	case "", TypeMemory:
		return NewMemory(), nil
	case TypeSQLite:
		var conf SQLiteConfig
		if err := decode(cfg, &conf); err != nil {
			return nil, err
		}
		return OpenSQLite(ctx, conf)
	case TypeRedis:
		var conf RedisConfig
		if err := decode(cfg, &conf); err != nil {
			return nil, err
		}
		return NewRedis(ctx, conf)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}

func decode(cfg config.StoreConfig, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder for %s store: %w", cfg.Type, err)
	}
	if err := decoder.Decode(cfg.Config); err != nil {
		return fmt.Errorf("failed to decode config for %s store: %w", cfg.Type, err)
	}
	return nil
}
