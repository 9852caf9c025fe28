package queue

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/promoengine/internal/config"
	"github.com/dujiao-next/promoengine/internal/constants"
	"github.com/dujiao-next/promoengine/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	defaultConcurrency = 10
	defaultMaxRetry    = 5
)

// Client 延时任务投递；队列关闭时所有投递均为空操作，由扫描补偿兜底
type Client struct {
	client *asynq.Client
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{client: asynq.NewClient(redisOpt(cfg))}, nil
}

// Enabled 是否真正投递任务
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueueCartExpire 在购物车 TTL 到期时释放其预占
func (c *Client) EnqueueCartExpire(payload CartExpirePayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewCartExpireTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, constants.QueueDefault, delay, taskID(TaskCartExpire, payload.CartID))
}

// EnqueueOrderTimeoutCancel 未支付订单到期自动取消
func (c *Client) EnqueueOrderTimeoutCancel(payload OrderTimeoutCancelPayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewOrderTimeoutCancelTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, constants.QueueCritical, delay, taskID(TaskOrderTimeoutCancel, payload.OrderID))
}

func (c *Client) enqueue(task *asynq.Task, queueName string, delay time.Duration, id string) error {
	if delay < 0 {
		delay = 0
	}
	info, err := c.client.Enqueue(task,
		asynq.Queue(queueName),
		asynq.ProcessIn(delay),
		asynq.TaskID(id),
		asynq.MaxRetry(defaultMaxRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logger.Debugw("queue_enqueue_duplicate", "task_id", id)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Debugw("queue_enqueued", "task_id", info.ID, "type", task.Type(), "queue", info.Queue, "process_at", info.NextProcessAt)
	return nil
}

// BuildServerConfig 生成消费端配置；critical 队列权重高于 default
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency: defaultConcurrency,
		Queues:      map[string]int{constants.QueueDefault: 1, constants.QueueCritical: 2},
		Logger:      logger.S(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Warnw("queue_task_failed", "type", task.Type(), "error", err)
		}),
	}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			serverCfg.Concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			serverCfg.Queues = cfg.Queues
		}
	}
	return redisOpt(cfg), serverCfg
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host, port := "127.0.0.1", 6379
	opt := asynq.RedisClientOpt{}
	if cfg != nil {
		if h := strings.TrimSpace(cfg.Host); h != "" {
			host = h
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		opt.Password = cfg.Password
		opt.DB = cfg.DB
	}
	opt.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	return opt
}
