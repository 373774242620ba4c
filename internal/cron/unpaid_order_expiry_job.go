package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-core/internal/orders"
	"github.com/angelmondragon/storefront-core/pkg/db/models"
	"github.com/angelmondragon/storefront-core/pkg/enums"
	"github.com/angelmondragon/storefront-core/pkg/logger"
	"github.com/angelmondragon/storefront-core/pkg/outbox"
	"github.com/angelmondragon/storefront-core/pkg/outbox/payloads"
)

const (
	defaultUnpaidOrderTTL   = 24 * time.Hour
	defaultExpiryBatchSize  = 200
	expiryReasonPaymentTime = "payment_timeout"
	systemActorIdentity     = "cron-worker"
	systemActorRole         = "system"
)

type UnpaidOrderExpiryJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Orders    orders.Repository
	Outbox    outbox.Emitter
	TTL       time.Duration
	BatchSize int
	Now       func() time.Time
}

// NewUnpaidOrderExpiryJob cancels online orders whose payment never arrived.
// Cash-on-delivery orders are never touched. Coupon usage for online orders is
// only counted on confirmation, so nothing needs to be released here.
func NewUnpaidOrderExpiryJob(params UnpaidOrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultUnpaidOrderTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &unpaidOrderExpiryJob{
		logg:   params.Logger,
		db:     params.DB,
		orders: params.Orders,
		outbox: params.Outbox,
		ttl:    ttl,
		batch:  batch,
		now:    now,
	}, nil
}

type unpaidOrderExpiryJob struct {
	logg   *logger.Logger
	db     txRunner
	orders orders.Repository
	outbox outbox.Emitter
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *unpaidOrderExpiryJob) Name() string { return "unpaid-order-expiry" }

func (j *unpaidOrderExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.ttl)
	candidates, err := j.orders.ListUnpaidOnlineBefore(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list unpaid orders: %w", err)
	}

	var (
		errs    error
		expired int
	)
	for _, order := range candidates {
		ok, err := j.expire(ctx, order, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if ok {
			expired++
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(candidates),
		"expired":    expired,
	}), "cron.unpaid_orders_expired")
	return errs
}

func (j *unpaidOrderExpiryJob) expire(ctx context.Context, order models.Order, now time.Time) (bool, error) {
	var expired bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := j.orders.WithTx(tx).ExpireUnpaid(ctx, order.ID, now)
		if err != nil || !ok {
			return err
		}
		expired = true
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{Identity: systemActorIdentity, Role: systemActorRole},
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        enums.OrderStatusPending,
				To:          enums.OrderStatusCancelled,
				Reason:      expiryReasonPaymentTime,
			},
		})
	})
	if err != nil {
		return false, err
	}
	if expired {
		j.logg.Info(j.logg.WithOrderID(ctx, order.ID.String()), "cron.order_expired")
	}
	return expired, nil
}
