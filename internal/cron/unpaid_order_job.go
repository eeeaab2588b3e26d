package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/logger"
)

const defaultUnpaidOrderTTL = 2 * time.Hour

type staleOrderExpirer interface {
	ExpireStaleUnpaid(ctx context.Context, cutoff time.Time) (int, error)
}

type UnpaidOrderJobParams struct {
	Logger *logger.Logger
	Orders staleOrderExpirer
	TTL    time.Duration
}

// NewUnpaidOrderJob cancels card orders that stayed unpaid past the TTL and releases their stock.
func NewUnpaidOrderJob(params UnpaidOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultUnpaidOrderTTL
	}
	return &unpaidOrderJob{logg: params.Logger, orders: params.Orders, ttl: ttl, now: time.Now}, nil
}

type unpaidOrderJob struct {
	logg   *logger.Logger
	orders staleOrderExpirer
	ttl    time.Duration
	now    func() time.Time
}

func (j *unpaidOrderJob) Name() string { return "unpaid-order-expiry" }

func (j *unpaidOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	expired, err := j.orders.ExpireStaleUnpaid(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("expire unpaid orders: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"orders_expired": expired,
	}), "unpaid order expiry complete")
	return nil
}
