package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/pictech-gateway/internal/auth"
	"github.com/example/pictech-gateway/internal/config"
	"github.com/example/pictech-gateway/internal/handlers"
	"github.com/example/pictech-gateway/internal/logging"
	"github.com/example/pictech-gateway/internal/pictech"
	"github.com/example/pictech-gateway/internal/poller"
	"github.com/example/pictech-gateway/internal/repository"
	"github.com/example/pictech-gateway/internal/storage"
	"github.com/example/pictech-gateway/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db := initDatabase(ctx, cfg.DatabaseDSN, logger)
	repo := repository.NewTaskRepository(db, logger)
	if err := repo.AutoMigrate(ctx); err != nil {
		logger.Fatal("auto migrate failed", zap.Error(err))
	}

	redisCtx, redisCancel := context.WithTimeout(ctx, 5*time.Second)
	defer redisCancel()
	redisClient := initRedis(redisCtx, cfg.RedisAddr, logger)

	store := initStore(ctx, cfg, logger)

	vendor, err := pictech.NewClient(cfg.Vendor, logger)
	if err != nil {
		logger.Fatal("invalid vendor configuration", zap.Error(err))
	}
	endpoints := vendor.Endpoints()
	remover := poller.New(
		vendor,
		poller.Endpoints{Submit: endpoints.BackgroundSubmit, Query: endpoints.BackgroundQuery},
		cfg.Polling,
		poller.NewHTTPDownloader(nil),
		store,
		logger,
	)

	cache := usecase.NewRedisCache(redisClient)
	uc := usecase.NewImageUseCase(vendor, remover, repo, cache, store, cfg.UploadDir, logger)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: buildRouter(cfg, uc, logger),
	}

	logger.Info("PicTech gateway listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("vendor", cfg.Vendor.BaseURL),
		zap.Duration("poll_interval", remover.Config().Interval),
		zap.Int("poll_max_attempts", remover.Config().MaxAttempts),
	)
	if err := serveHTTPServer(server, cfg.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func buildRouter(cfg config.Config, svc handlers.ImageService, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.MaxMultipartMemory = handlers.MaxUploadSize

	handlers.RegisterRoutes(router, svc, handlers.Options{
		UploadDir:      cfg.UploadDir,
		AllowedOrigins: cfg.AllowedOrigins,
		Middleware:     []gin.HandlerFunc{auth.Middleware(cfg.JWTSecret, cfg.JWTAudience)},
	})
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	httpLogger := logger.Named("http")
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(started)),
		}
		if last := c.Errors.Last(); last != nil {
			fields = append(fields, zap.Error(last.Err))
			if op, ok := logging.OperationOf(last.Err); ok {
				fields = append(fields, zap.String("operation", op))
			}
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			httpLogger.Warn("request failed", fields...)
			return
		}
		httpLogger.Info("request handled", fields...)
	}
}

func initDatabase(ctx context.Context, dsn string, zapLogger *zap.Logger) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		zapLogger.Fatal("failed to access db handle", zap.Error(err))
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		zapLogger.Fatal("database ping failed", zap.Error(err))
	}

	return db
}

func initRedis(ctx context.Context, addr string, zapLogger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	return client
}

// initStore writes results locally and, when object storage is configured,
// mirrors them to the bucket.
func initStore(ctx context.Context, cfg config.Config, zapLogger *zap.Logger) storage.Store {
	local := storage.NewLocalStore()
	if cfg.ObjectStorage == nil {
		return local
	}
	mirror, err := storage.NewMinioStore(ctx, *cfg.ObjectStorage)
	if err != nil {
		zapLogger.Fatal("object storage unavailable", zap.Error(err), zap.String("endpoint", cfg.ObjectStorage.Endpoint))
	}
	zapLogger.Info("mirroring results to object storage",
		zap.String("endpoint", cfg.ObjectStorage.Endpoint),
		zap.String("bucket", cfg.ObjectStorage.Bucket),
	)
	return storage.NewTee(zapLogger, local, mirror)
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

// serveHTTPServerWithOptions serves until the server fails or a signal
// arrives, then drains in-flight requests for up to shutdownTimeout. A nil
// listener means ListenAndServe; a nil signalCh means SIGINT/SIGTERM.
func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	sigCh := signalCh
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigCh = ch
	}

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
