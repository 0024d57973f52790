package cli

import (
	"context"

	"github.com/pharmaguard-client/internal/domain"
	"github.com/pharmaguard-client/internal/history"
	"github.com/pharmaguard-client/pkg/external"
)

// analysisService returns the analysis client wrapped in the response cache
// when caching is enabled. The returned func releases the shared cache tier.
func (rt *runtime) analysisService(ctx context.Context) (domain.AnalysisService, func(), error) {
	cfg := rt.manager.GetConfig()
	client := external.NewAnalysisClient(cfg.Analysis, rt.logger)
	if !cfg.Cache.Enabled {
		return client, func() {}, nil
	}

	var shared external.PayloadStore
	release := func() {}
	if cfg.Cache.RedisURL != "" {
		store, err := external.NewRedisPayloadStore(ctx, cfg.Cache.RedisURL)
		if err != nil {
			// The memory tier still works without Redis.
			rt.logger.WithError(err).Warn("Shared cache unavailable, using memory cache only")
		} else {
			shared = store
			release = func() {
				if err := store.Close(); err != nil {
					rt.logger.WithError(err).Debug("Failed to close shared cache")
				}
			}
		}
	}
	return external.NewCachingAnalysisService(client, cfg.Cache, shared, rt.logger), release, nil
}

func (rt *runtime) reportService() domain.ReportService {
	return external.NewReportClient(rt.manager.GetConfig().Report, rt.logger)
}

// openHistory returns nil when history is disabled.
func (rt *runtime) openHistory(ctx context.Context) (history.Store, error) {
	return history.Open(ctx, rt.manager.GetConfig().History, rt.logger)
}

func closeHistory(rt *runtime, store history.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		rt.logger.WithError(err).Warn("Failed to close history store")
	}
}
