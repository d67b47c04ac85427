package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/marovi-edu/tuition-api/internal/models"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
)

const dashboardCacheKey = "dashboard:summary"

type dashboardRepository interface {
	Summary(ctx context.Context) (*models.DashboardSummary, error)
}

// DashboardService serves the admin landing-page aggregation, cached in
// Redis for its TTL.
type DashboardService struct {
	repo   dashboardRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(repo dashboardRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &DashboardService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Summary returns the dashboard counters, serving from cache when fresh.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	var cached models.DashboardSummary
	if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	summary, err := s.repo.Summary(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build dashboard summary")
	}
	if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.ttl); err != nil {
		s.logger.Warn("failed to cache dashboard summary", zap.Error(err))
	}
	return summary, nil
}

// Invalidate drops the cached summary. Called after workflow mutations so
// admins see fresh counters.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
