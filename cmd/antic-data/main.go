package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/igmahardika/antic-sub002/internal/config"
	"github.com/igmahardika/antic-sub002/internal/database"
	httpapi "github.com/igmahardika/antic-sub002/internal/http"
	"github.com/igmahardika/antic-sub002/internal/ingest"
	"github.com/igmahardika/antic-sub002/internal/logger"
	"github.com/igmahardika/antic-sub002/internal/repository"
	"github.com/igmahardika/antic-sub002/internal/service"
	"github.com/igmahardika/antic-sub002/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "antic-data")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Redis 不可用时统计直算，不影响主流程
	var kv store.KV
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("Redis unavailable, stats cache disabled", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			kv = store.NewRedisKV(redisClient)
		}
	}

	var db *sql.DB
	var incidentsRepo repository.IncidentsRepo
	var sessionsRepo repository.UploadSessionsRepo
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for antic-data")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		}
	}
	if db != nil {
		incidentsRepo = repository.NewPostgresIncidentsRepo(db)
		sessionsRepo = repository.NewPostgresUploadSessionsRepo(db)
	} else {
		// DB 未就绪：内存 repo 支持联测，重启后数据丢失
		incidentsRepo = repository.NewMemoryIncidentsRepo()
		sessionsRepo = repository.NewMemoryUploadSessionsRepo()
	}

	caps := ingest.Caps{
		TotalMinutes: cfg.Import.TotalCapMinutes,
		PauseMinutes: cfg.Import.PauseCapMinutes,
	}

	importSvc := service.NewImportService(incidentsRepo, sessionsRepo, caps, cfg.Import.ChunkSize, log)
	incidentSvc := service.NewIncidentService(incidentsRepo, log)
	recalcSvc := service.NewRecalcService(incidentsRepo, caps, cfg.Import.ChunkSize, log)
	statsSvc := service.NewStatsService(incidentsRepo, kv, log)

	router := httpapi.NewRouter(log)
	router.RegisterHealth()
	router.RegisterIncidentRoutes(
		httpapi.NewIncidentHandler(importSvc, incidentSvc, recalcSvc, statsSvc, log),
		httpapi.NewUploadsHandler(importSvc, statsSvc, log),
	)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("server stopped unexpectedly", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
