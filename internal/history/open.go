package history

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-client/internal/domain"
)

// Open returns the store selected by cfg. Driver "none" (or empty) returns a
// nil store and no error. The postgres schema is migrated before use.
func Open(ctx context.Context, cfg domain.HistoryConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		store, err := NewSQLiteStore(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		runner, err := NewMigrationRunner(cfg.DSN, logger)
		if err != nil {
			return nil, err
		}
		upErr := runner.Up(ctx)
		if err := runner.Close(); err != nil && logger != nil {
			logger.WithError(err).Warn("Failed to close migration runner")
		}
		if upErr != nil {
			return nil, upErr
		}
		store, err := NewPostgresStoreFromURL(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported history driver: %s", cfg.Driver)
	}
}
