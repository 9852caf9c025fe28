package app

import (
	"errors"
	"net"

	"github.com/dujiao-next/promoengine/internal/config"
	"github.com/dujiao-next/promoengine/internal/logger"
	"github.com/dujiao-next/promoengine/internal/provider"
	"github.com/dujiao-next/promoengine/internal/router"
	"github.com/dujiao-next/promoengine/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !validMode(mode) {
		return nil, errors.New("unknown mode: " + mode)
	}

	container := provider.NewContainer(cfg)
	return NewRunner(buildServices(cfg, mode, container)...), nil
}

func buildServices(cfg *config.Config, mode string, container *provider.Container) []Service {
	var services []Service

	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(listenAddr(cfg), engine))
	}

	if mode == ModeAll || mode == ModeWorker {
		// 延时任务依赖队列；扫描补偿不依赖队列，始终启用
		if cfg.Queue.Enabled {
			workerService, err := worker.NewService(&cfg.Queue, worker.NewConsumer(container))
			if err != nil {
				logger.Warnw("app_worker_init_failed", "error", err)
			} else {
				services = append(services, workerService)
			}
		} else {
			logger.Infow("app_worker_skip_queue_disabled", "mode", mode)
		}
		services = append(services, worker.NewSweeper(cfg.Cart, container.CartService, container.OrderService))
	}
	return services
}

func validMode(mode string) bool {
	switch mode {
	case ModeAll, ModeAPI, ModeWorker:
		return true
	default:
		return false
	}
}

func listenAddr(cfg *config.Config) string {
	return net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "addr", listenAddr(opts.Config), "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
