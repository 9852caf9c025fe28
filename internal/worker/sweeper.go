package worker

import (
	"context"
	"errors"
	"time"

	"github.com/dujiao-next/promoengine/internal/config"
	"github.com/dujiao-next/promoengine/internal/logger"
)

const (
	defaultSweepInterval  = time.Minute
	defaultSweepBatchSize = 100
)

// CartSweeper 批量过期购物车
type CartSweeper interface {
	SweepExpiredCarts(ctx context.Context, now time.Time, limit int) (int, error)
}

// OrderSweeper 批量取消超时订单
type OrderSweeper interface {
	SweepExpiredOrders(ctx context.Context, now time.Time, limit int) (int, error)
}

// Sweeper 周期性补偿过期购物车与超时订单
type Sweeper struct {
	carts     CartSweeper
	orders    OrderSweeper
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewSweeper 创建补偿扫描服务
func NewSweeper(cfg config.CartConfig, carts CartSweeper, orders OrderSweeper) *Sweeper {
	interval := defaultSweepInterval
	if cfg.SweepIntervalSeconds > 0 {
		interval = time.Duration(cfg.SweepIntervalSeconds) * time.Second
	}
	batchSize := defaultSweepBatchSize
	if cfg.SweepBatchSize > 0 {
		batchSize = cfg.SweepBatchSize
	}
	return &Sweeper{
		carts:     carts,
		orders:    orders,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Name 服务名称
func (s *Sweeper) Name() string {
	return "sweeper"
}

// Start 立即扫描一次，之后按间隔循环直到 ctx 取消
func (s *Sweeper) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("sweeper not initialized")
	}
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Stop 停止服务
func (s *Sweeper) Stop(_ context.Context) error {
	return nil
}

// RunOnce 执行一轮扫描
func (s *Sweeper) RunOnce(ctx context.Context) (expiredCarts, canceledOrders int) {
	if s == nil {
		return 0, 0
	}
	now := s.now()
	if s.carts != nil {
		n, err := s.carts.SweepExpiredCarts(ctx, now, s.batchSize)
		if err != nil {
			logger.Warnw("worker_sweep_carts_failed", "error", err)
		}
		expiredCarts = n
	}
	if s.orders != nil {
		n, err := s.orders.SweepExpiredOrders(ctx, now, s.batchSize)
		if err != nil {
			logger.Warnw("worker_sweep_orders_failed", "error", err)
		}
		canceledOrders = n
	}
	if expiredCarts > 0 || canceledOrders > 0 {
		logger.Infow("worker_sweep_done", "expired_carts", expiredCarts, "canceled_orders", canceledOrders)
	}
	return expiredCarts, canceledOrders
}
