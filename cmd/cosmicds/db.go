package main

import (
	"context"
	"fmt"

	"cosmicds/internal/config"
	"cosmicds/internal/store"
	"cosmicds/internal/store/postgres"
	"cosmicds/internal/store/sqlite"
)

func openStore(ctx context.Context, dsn string) (store.Store, error) {
	var st store.Store
	var err error
	switch config.SessionDriver(dsn) {
	case "sqlite":
		st, err = sqlite.New(ctx, dsn)
	case "postgres":
		st, err = postgres.New(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported session dsn: %s", dsn)
	}
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		st.Close(ctx)
		return nil, err
	}
	return st, nil
}
