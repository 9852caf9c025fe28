package worker

import (
	"context"
	"errors"

	"github.com/dujiao-next/promoengine/internal/config"
	"github.com/dujiao-next/promoengine/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 将 asynq 消费端包装为可由 app.Runner 管理的服务
type Service struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewService 队列关闭时返回错误，调用方据此跳过
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	switch {
	case cfg == nil || !cfg.Enabled:
		return nil, errors.New("queue disabled")
	case consumer == nil:
		return nil, errors.New("consumer is nil")
	}
	redisOpt, serverCfg := queue.BuildServerConfig(cfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{server: asynq.NewServer(redisOpt, serverCfg), mux: mux}, nil
}

func (s *Service) Name() string { return "queue-worker" }

// Start 启动消费并阻塞到 ctx 取消，信号由 Runner 统一处理
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("queue worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (s *Service) Stop(_ context.Context) error {
	if s != nil && s.server != nil {
		s.server.Shutdown()
	}
	return nil
}
