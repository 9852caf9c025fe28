package app

import (
	"os"
	"strings"
	"time"

	"github.com/dujiao-next/promoengine/internal/config"
	"github.com/dujiao-next/promoengine/internal/logger"

	"go.uber.org/zap"
)

// 进程角色：api 只对外提供 HTTP，worker 只处理延时任务与扫描补偿
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options 启动参数；零值字段由 normalizeOptions 补齐
type Options struct {
	Config          *config.Config
	Mode            string
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
}

func normalizeOptions(opts Options) Options {
	opts.Mode = strings.ToLower(strings.TrimSpace(opts.Mode))
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultStopTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.S().With("mode", opts.Mode)
	}
	return opts
}
