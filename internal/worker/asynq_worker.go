package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/dujiao-next/promoengine/internal/logger"
	"github.com/dujiao-next/promoengine/internal/provider"
	"github.com/dujiao-next/promoengine/internal/queue"
	"github.com/dujiao-next/promoengine/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 处理购物车过期与订单超时两类延时任务
type Consumer struct {
	carts  *service.CartService
	orders *service.OrderService
}

// NewConsumer 从容器取出所需服务
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil {
		return &Consumer{}
	}
	return &Consumer{carts: c.CartService, orders: c.OrderService}
}

// Register 注册任务处理函数
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		return
	}
	mux.HandleFunc(queue.TaskCartExpire, c.handleCartExpire)
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel)
}

// handleCartExpire 购物车已被删除时视为完成
func (c *Consumer) handleCartExpire(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.Decode[queue.CartExpirePayload](task)
	if err != nil {
		logger.Warnw("worker_payload_invalid", "type", queue.TaskCartExpire, "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.CartID == 0 || c.carts == nil {
		logger.Debugw("worker_cart_expire_skip", "cart_id", payload.CartID, "service_ready", c.carts != nil)
		return nil
	}
	err = c.carts.ExpireCart(ctx, payload.CartID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrCartNotFound):
		logger.Debugw("worker_cart_expire_cart_gone", "cart_id", payload.CartID)
		return nil
	default:
		logger.Warnw("worker_cart_expire_failed", "cart_id", payload.CartID, "error", err)
		return err
	}
}

// handleOrderTimeoutCancel 订单不存在或读取失败时放弃，扫描补偿会再次处理
func (c *Consumer) handleOrderTimeoutCancel(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.Decode[queue.OrderTimeoutCancelPayload](task)
	if err != nil {
		logger.Warnw("worker_payload_invalid", "type", queue.TaskOrderTimeoutCancel, "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.OrderID == 0 || c.orders == nil {
		logger.Debugw("worker_order_timeout_skip", "order_id", payload.OrderID, "service_ready", c.orders != nil)
		return nil
	}
	_, err = c.orders.TimeoutCancel(ctx, payload.OrderID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrOrderFetchFailed):
		logger.Debugw("worker_order_timeout_abandoned", "order_id", payload.OrderID, "error", err)
		return nil
	default:
		logger.Warnw("worker_order_timeout_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
}
