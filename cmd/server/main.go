package main

import (
	"flag"
	"os"
	"strings"
	"syscall"

	"github.com/dujiao-next/promoengine/internal/app"
	"github.com/dujiao-next/promoengine/internal/config"
	"github.com/dujiao-next/promoengine/internal/logger"

	"github.com/gin-gonic/gin"
)

var weakSecretMarkers = []string{"change-me", "change-in-production", "your-secret-key"}

func main() {
	mode := flag.String("mode", app.ModeAll, "启动模式: all / api / worker")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	log := logger.S()
	defer func() { _ = logger.Z().Sync() }()

	release := cfg.Server.Mode == "release"
	for name, secret := range map[string]string{"jwt": cfg.JWT.SecretKey, "user_jwt": cfg.UserJWT.SecretKey} {
		if !isWeakSecret(secret) {
			continue
		}
		if release {
			log.Fatalw("weak_jwt_secret", "name", name)
		}
		log.Warnw("weak_jwt_secret", "name", name)
	}
	if release {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.OpenDatabase(cfg); err != nil {
		log.Fatalw("database_init_failed", "error", err)
	}
	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  log,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    *mode,
	}); err != nil {
		log.Errorw("app_exit", "error", err)
		os.Exit(1)
	}
}

// isWeakSecret 长度不足 32 或仍含示例占位符
func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	lower := strings.ToLower(secret)
	for _, marker := range weakSecretMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
