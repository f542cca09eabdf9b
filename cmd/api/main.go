package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	httpadp "loan-ledger/internal/adapter/http"
	mw "loan-ledger/internal/adapter/middleware"
	"loan-ledger/internal/adapter/repository/mysql"
	"loan-ledger/internal/config"
	domainLock "loan-ledger/internal/domain/lock"
	"loan-ledger/internal/infrastructure/cache"
	"loan-ledger/internal/infrastructure/db"
	"loan-ledger/internal/infrastructure/lock"
	"loan-ledger/internal/infrastructure/logging"
	ucLoan "loan-ledger/internal/usecase/loan"
	ucPayment "loan-ledger/internal/usecase/payment"
)

func main() {
	cfg := config.Load()
	logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		fatal("invalid config", err)
	}

	gdb, err := db.Open(cfg)
	if err != nil {
		fatal("database", err)
	}
	if cfg.DBAutoMigrate {
		if err := db.Migrate(gdb); err != nil {
			fatal("migrate", err)
		}
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		fatal("redis", err)
	}
	defer rdb.Close()

	var locker domainLock.Locker
	switch cfg.LockBackend {
	case config.LockLocal:
		locker = lock.NewLocalLocker(cfg.LockTimeout)
	default:
		locker = lock.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockTimeout)
	}

	loans := mysql.NewLoanRepository(gdb)
	payments := mysql.NewPaymentRepository(gdb)
	tx := mysql.NewGormUoW(gdb)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Recover(), requestLogger())

	httpadp.Register(e, httpadp.Handlers{
		Health: httpadp.NewHandler(map[string]httpadp.Check{
			"db": func(ctx context.Context) error {
				sqlDB, err := gdb.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
		Loans:    httpadp.NewLoanHandler(ucLoan.NewUsecase(loans, cfg.PageSize)),
		Payments: httpadp.NewPaymentHandler(ucPayment.NewUsecase(loans, payments, tx, locker)),
	}, mw.IdempotencyMiddleware(rdb, cfg.IdempotencyTTL()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.AppPort
	go func() {
		slog.Info("listening", "addr", addr, "db_driver", cfg.DBDriver, "lock_backend", cfg.LockBackend)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "err", err)
	}
	slog.Info("stopped")
}

// requestLogger feeds echo's request log into slog.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"remote_ip", v.RemoteIP,
				"request_id", c.Request().Header.Get(mw.HeaderRequestID),
				"account_id", mw.AccountID(c),
			}
			if v.Error != nil {
				slog.ErrorContext(c.Request().Context(), "request", append(attrs, "err", v.Error)...)
				return nil
			}
			slog.InfoContext(c.Request().Context(), "request", attrs...)
			return nil
		},
	})
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
