package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/catalogd/catalogd/internal/backend"
	"github.com/catalogd/catalogd/internal/catalog"
	"github.com/catalogd/catalogd/internal/config"
	"github.com/catalogd/catalogd/internal/query"
	"github.com/catalogd/catalogd/internal/retry"
)

func openStore(ctx context.Context, cfg config.Config) (*catalog.Store, error) {
	b, err := backend.Open(ctx, cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	policy := retry.Policy{MaxAttempts: cfg.RetryAttempts, BaseDelay: cfg.RetryBackoff}
	return catalog.New(b, policy, zap.NewNop()), nil
}

func openEngine(ctx context.Context, cfg config.Config) (*query.Engine, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return query.New(store), nil
}
