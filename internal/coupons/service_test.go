package coupons

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-core/pkg/db/models"
	"github.com/angelmondragon/storefront-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
	"github.com/angelmondragon/storefront-core/pkg/logger"
)

type stubRepo struct {
	coupons    map[string]*models.Coupon
	active     []models.Coupon
	listCalls  int
	increments []uuid.UUID
	findErr    error
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if c, ok := s.coupons[NormalizeCode(code)]; ok {
		return c, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	for _, c := range s.coupons {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
}

func (s *stubRepo) ListActive(ctx context.Context, now time.Time) ([]models.Coupon, error) {
	s.listCalls++
	return s.active, nil
}

func (s *stubRepo) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	s.increments = append(s.increments, id)
	return true, nil
}

type fakeCache struct {
	values  map[string]string
	ttls    map[string]time.Duration
	getErr  error
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeCache) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

func (f *fakeCache) CacheKey(parts ...string) string { return "test:" + parts[0] }

type recordingMetrics struct {
	reasons []string
}

func (r *recordingMetrics) CouponRejected(reason string) { r.reasons = append(r.reasons, reason) }

func newTestService(t *testing.T, repo *stubRepo, cache *fakeCache, rec *recordingMetrics) Service {
	t.Helper()
	params := ServiceParams{
		Repo:     repo,
		CacheTTL: 30 * time.Second,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
		Now:      func() time.Time { return engineNow },
	}
	if cache != nil {
		params.Cache = cache
	}
	if rec != nil {
		params.Metrics = rec
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func TestServiceValidate(t *testing.T) {
	coupon := baseCoupon(enums.DiscountTypePercentage, "10")
	coupon.Code = "SAVE10"
	coupon.MinOrderAmount = decPtr("500")
	repo := &stubRepo{coupons: map[string]*models.Coupon{"SAVE10": coupon}}
	rec := &recordingMetrics{}
	svc := newTestService(t, repo, nil, rec)
	ctx := context.Background()

	v, err := svc.Validate(ctx, "save10", []Line{line("1000", 1)}, decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.True(t, v.Result.Valid)
	assert.Equal(t, coupon, v.Coupon)
	assert.Equal(t, "100.00", v.Result.Discount.StringFixed(2))

	v, err = svc.Validate(ctx, "missing", nil, decimal.Zero)
	require.NoError(t, err)
	assert.Nil(t, v.Coupon)
	assert.Equal(t, ReasonNotFound, v.Result.Reason)

	v, err = svc.Validate(ctx, "SAVE10", []Line{line("100", 1)}, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, ReasonBelowMinimumOrder, v.Result.Reason)

	assert.Equal(t, []string{"not_found", "below_minimum_order"}, rec.reasons)
	assert.Empty(t, repo.increments)
}

func TestServiceValidateErrors(t *testing.T) {
	svc := newTestService(t, &stubRepo{findErr: errors.New("db down")}, nil, nil)

	_, err := svc.Validate(context.Background(), "  ", nil, decimal.Zero)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Validate(context.Background(), "SAVE10", nil, decimal.Zero)
	assert.EqualError(t, err, "db down")
}

func TestServiceActiveUsesCache(t *testing.T) {
	usable := *baseCoupon(enums.DiscountTypeFixed, "50")
	usable.Code = "FIFTY"
	exhausted := *baseCoupon(enums.DiscountTypeFixed, "10")
	exhausted.MaxUses = intPtr(1)
	exhausted.UsedCount = 1

	repo := &stubRepo{active: []models.Coupon{usable, exhausted}}
	cache := newFakeCache()
	svc := newTestService(t, repo, cache, nil)
	ctx := context.Background()

	first, err := svc.Active(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "FIFTY", first[0].Code)

	second, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, first[0].DiscountValue.Equal(second[0].DiscountValue))

	svc.InvalidateActive(ctx)
	assert.Equal(t, []string{"test:coupons:active"}, cache.deleted)

	_, err = svc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}

func TestServiceActiveDropsCouponsThatEndWhileCached(t *testing.T) {
	ending := *baseCoupon(enums.DiscountTypeFixed, "20")
	ending.Code = "LASTCALL"
	end := engineNow.Add(10 * time.Second)
	ending.EndDate = &end
	unbounded := *baseCoupon(enums.DiscountTypeFixed, "5")
	unbounded.Code = "ALWAYS"

	repo := &stubRepo{active: []models.Coupon{ending, unbounded}}
	cache := newFakeCache()
	clock := engineNow
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Cache:    cache,
		CacheTTL: time.Minute,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
		Now:      func() time.Time { return clock },
	})
	require.NoError(t, err)
	ctx := context.Background()

	first, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, 10*time.Second, cache.ttls["test:coupons:active"])

	clock = end.Add(time.Second)
	later, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
	require.Len(t, later, 1)
	assert.Equal(t, "ALWAYS", later[0].Code)
}

func TestServiceActiveFallsBackWhenCacheFails(t *testing.T) {
	repo := &stubRepo{active: []models.Coupon{*baseCoupon(enums.DiscountTypeFixed, "5")}}
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	svc := newTestService(t, repo, cache, nil)

	out, err := svc.Active(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, 1)

	cache.getErr = nil
	cache.values["test:coupons:active"] = "{not json"
	out, err = svc.Active(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, 2, repo.listCalls)
}

func TestServiceActiveWithoutCache(t *testing.T) {
	repo := &stubRepo{active: []models.Coupon{}}
	svc := newTestService(t, repo, nil, nil)

	out, err := svc.Active(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, out)
	payload, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(payload))
	svc.InvalidateActive(context.Background())
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Repo: &stubRepo{}})
	assert.Error(t, err)
}
