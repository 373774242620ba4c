package coupons

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
	"github.com/angelmondragon/storefront-core/pkg/logger"
	"github.com/angelmondragon/storefront-core/pkg/redis"
)

const activeCacheKey = "coupons:active"

type rejectionRecorder interface {
	CouponRejected(reason string)
}

// Service exposes coupon validation and the public active list.
type Service interface {
	Validate(ctx context.Context, code string, lines []Line, subtotal decimal.Decimal) (*Validation, error)
	Active(ctx context.Context) ([]CouponDTO, error)
	InvalidateActive(ctx context.Context)
}

type ServiceParams struct {
	Repo     Repository
	Cache    redis.Cache
	CacheTTL time.Duration
	Logger   *logger.Logger
	Metrics  rejectionRecorder
	Now      func() time.Time
}

type service struct {
	repo     Repository
	cache    redis.Cache
	cacheTTL time.Duration
	logg     *logger.Logger
	metrics  rejectionRecorder
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     params.Repo,
		cache:    params.Cache,
		cacheTTL: params.CacheTTL,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

// Validate looks up code and runs the engine. Rejections are reported in the
// result, not as errors; errors mean the lookup itself failed.
func (s *service) Validate(ctx context.Context, code string, lines []Line, subtotal decimal.Decimal) (*Validation, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	coupon, err := s.repo.FindByCode(ctx, normalized)
	if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	result := Validate(coupon, lines, subtotal, s.now())
	if !result.Valid {
		if s.metrics != nil {
			s.metrics.CouponRejected(string(result.Reason))
		}
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"coupon_code": normalized,
			"reason":      result.Reason,
		}), "coupon.rejected")
	}
	return &Validation{Coupon: coupon, Result: result}, nil
}

func (s *service) Active(ctx context.Context) ([]CouponDTO, error) {
	now := s.now()
	if cached, ok := s.readCache(ctx); ok {
		return liveAt(cached, now), nil
	}

	rows, err := s.repo.ListActive(ctx, now)
	if err != nil {
		return nil, err
	}

	out := make([]CouponDTO, 0, len(rows))
	for i := range rows {
		if IsUsable(&rows[i], now) {
			out = append(out, ToDTO(rows[i]))
		}
	}
	s.writeCache(ctx, out, now)
	return out, nil
}

// liveAt drops cached entries whose date window closed after they were cached.
func liveAt(coupons []CouponDTO, now time.Time) []CouponDTO {
	out := make([]CouponDTO, 0, len(coupons))
	for _, c := range coupons {
		if c.StartDate != nil && now.Before(*c.StartDate) {
			continue
		}
		if c.EndDate != nil && now.After(*c.EndDate) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// InvalidateActive drops the cached active list, typically after a usage
// count moved. Failures are logged; the TTL bounds staleness anyway.
func (s *service) InvalidateActive(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cache.CacheKey(activeCacheKey)); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "coupon.cache_invalidate_failed")
	}
}

func (s *service) readCache(ctx context.Context) ([]CouponDTO, bool) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cache.CacheKey(activeCacheKey))
	if err != nil {
		if !redis.IsNil(err) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "coupon.cache_read_failed")
		}
		return nil, false
	}
	var out []CouponDTO
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "coupon.cache_decode_failed")
		return nil, false
	}
	return out, true
}

// writeCache stores the list until the configured TTL or the first end date
// in it, whichever comes first.
func (s *service) writeCache(ctx context.Context, coupons []CouponDTO, now time.Time) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	ttl := s.cacheTTL
	for _, c := range coupons {
		if c.EndDate == nil {
			continue
		}
		if left := c.EndDate.Sub(now); left < ttl {
			ttl = left
		}
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	payload, err := json.Marshal(coupons)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.CacheKey(activeCacheKey), string(payload), ttl); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "coupon.cache_write_failed")
	}
}
