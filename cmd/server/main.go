package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"cuentas/docs" // swagger docs

	"cuentas/internal/auth"
	"cuentas/internal/cache"
	"cuentas/internal/config"
	"cuentas/internal/db"
	"cuentas/internal/handler"
	"cuentas/internal/logger"
	"cuentas/internal/metrics"
	"cuentas/internal/repository"
	"cuentas/internal/router"
	"cuentas/internal/service"
)

// @title Cuentas API
// @version 1.0
// @description Account lifecycle API for the medical records platform: registration, login, updates and cascade deletion.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		zlog.Fatal("database init", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}

	if cfg.ResetDB {
		zlog.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			zlog.Fatal("reset database", zap.Error(err))
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		zlog.Fatal("auto-migrate", zap.Error(err))
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(context.Background()); err != nil {
		zlog.Warn("redis unavailable, account cache disabled until it recovers", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	hasher := auth.NewPasswordHasher(cfg.Argon2Params())
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	store := repository.NewStore(gormDB)
	deleter := service.NewCascadeDeleter(store.Accounts, store, collector, zlog.Named("cascade"))
	accountService, err := service.NewAccountService(store.Accounts, deleter, hasher, cacheClient, collector, zlog.Named("accounts"))
	if err != nil {
		zlog.Fatal("account service init", zap.Error(err))
	}

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		JWT:            jwtService,
		Metrics:        collector,
		Logger:         zlog.Named("http"),
		AuthHandler:    handler.NewAuthHandler(accountService, jwtService),
		AccountHandler: handler.NewAccountHandler(accountService),
		Health: func(c echo.Context) error {
			sqlDB, err := gormDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(c.Request().Context())
		},
	})

	zlog.Info("swagger documentation available", zap.String("url", "http://"+docs.SwaggerInfo.Host+"/swagger/index.html"))

	go func() {
		addr := ":" + cfg.ServerPort
		zlog.Info("server starting", zap.String("addr", addr), zap.String("db_driver", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		zlog.Error("server shutdown", zap.Error(err))
	}
	zlog.Info("server stopped")
}
