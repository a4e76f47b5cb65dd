package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"sacco-workflow/internal/adapter/collaborator"
	httpadp "sacco-workflow/internal/adapter/http"
	idemp "sacco-workflow/internal/adapter/middleware"
	"sacco-workflow/internal/adapter/readmodel"
	"sacco-workflow/internal/adapter/repository/mysql"
	"sacco-workflow/internal/config"
	"sacco-workflow/internal/domain/notify"
	"sacco-workflow/internal/domain/uow"
	"sacco-workflow/internal/domain/workflow"
	"sacco-workflow/internal/infrastructure/cache"
	"sacco-workflow/internal/infrastructure/db"
	"sacco-workflow/internal/infrastructure/metrics"
	"sacco-workflow/internal/logger"
	"sacco-workflow/internal/usecase/engine"
	"sacco-workflow/pkg/id"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logger.Error("read .env", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	logger.Initialize(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	def, err := workflow.Load(cfg.WorkflowFile)
	if err != nil {
		logger.Error("workflow definition", "file", cfg.WorkflowFile, "error", err)
		os.Exit(1)
	}
	logger.Info("workflow loaded", "order", string(def.ApprovalOrder), "stages", len(def.Active()))

	gdb, err := openDB(cfg)
	if err != nil {
		logger.Error("database", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		logger.Error("database handle", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Error("redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	repos := uow.Repos{
		Applications: mysql.NewApplicationRepository(gdb),
		Decisions:    mysql.NewDecisionRepository(gdb),
		Repayments:   mysql.NewRepaymentRepository(gdb),
	}

	var notifier notify.Service = collaborator.NewLogNotifier()
	if len(cfg.KafkaBrokers) > 0 {
		kn := collaborator.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaNotifyTopic, id.NewID32)
		defer kn.Close()
		notifier = kn
		logger.Info("notifications: kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaNotifyTopic)
	}

	m := metrics.New()
	uc := engine.NewUsecase(repos, mysql.NewGormUoW(gdb), def,
		collaborator.NewLedgerClient(cfg.LedgerBaseURL, cfg.CollaboratorTimeout()),
		notifier,
		engine.WithPendingSource(readmodel.NewPendingCache(rdb, repos.Applications, cfg.PendingCacheTTL())),
		engine.WithRecorder(m),
		engine.WithCollaboratorTimeout(cfg.CollaboratorTimeout()),
	)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Logger(), middleware.Recover())

	httpadp.RegisterRoutes(e, httpadp.Routes{
		Health: httpadp.NewHandler(map[string]httpadp.Check{
			"db":    sqlDB.PingContext,
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
		Loans:       httpadp.NewLoanHandler(uc),
		Approvals:   httpadp.NewApprovalHandler(uc),
		Servicing:   httpadp.NewServicingHandler(uc),
		Metrics:     m.Handler(),
		Idempotency: idemp.IdempotencyMiddleware(rdb, cfg.IdempotencyTTL()),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.AppPort
	go func() {
		logger.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	var (
		gdb *gorm.DB
		err error
	)
	switch cfg.DBDriver {
	case config.DriverSQLite:
		gdb, err = db.OpenSQLite(cfg.SQLitePath)
	default:
		gdb, err = db.OpenGorm(cfg.MySQLDSN())
	}
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(gdb); err != nil {
			return nil, err
		}
	}
	return gdb, nil
}
