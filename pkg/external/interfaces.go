package external

import (
	"context"
	"time"

	"github.com/pharmaguard-client/internal/domain"
)

// PayloadStore is a shared cache tier for raw analysis payloads.
type PayloadStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

var (
	_ domain.AnalysisService = (*AnalysisClient)(nil)
	_ domain.AnalysisService = (*CachingAnalysisService)(nil)
	_ domain.ReportService   = (*ReportClient)(nil)
	_ PayloadStore           = (*RedisPayloadStore)(nil)
)
