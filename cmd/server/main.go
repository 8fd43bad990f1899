package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradearena/internal/agents"
	"tradearena/internal/auth"
	"tradearena/internal/config"
	cronrunner "tradearena/internal/cron"
	"tradearena/internal/db"
	"tradearena/internal/handler"
	"tradearena/internal/live"
	"tradearena/internal/logger"
	"tradearena/internal/match"
	"tradearena/internal/pipeline"
	gormrepository "tradearena/internal/repository/gorm"
	"tradearena/internal/service"
	"tradearena/internal/warroom"
)

func main() {
	cfgPath := os.Getenv("TA_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("TA_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	registry := agents.Default()
	liveManager := live.NewManager(logger, cfg.Live.ConnBuffer)
	machine := &match.StateMachine{
		Budgets: match.Budgets{
			Draft:      cfg.Match.DraftBudget,
			Analysis:   cfg.Match.AnalysisBudget,
			Hypothesis: cfg.Match.HypothesisBudget,
			Battle:     cfg.Match.BattleBudget,
		},
	}

	matchService := &service.MatchService{
		Repo:     store,
		Registry: registry,
		Pipeline: &pipeline.Runner{Registry: registry, Logger: logger, MaxWorkers: cfg.Pipeline.MaxWorkers},
		Machine:  machine,
		Windows:  &match.WindowTracker{Total: cfg.Match.WindowCount},
		Guard:    match.NewGuard(),
		Live:     liveManager,
		Logger:   logger,
	}
	liveService := &service.LiveService{Repo: store, Live: liveManager, Logger: logger}
	liveService.CloseStale(context.Background())
	warRoomService := &service.WarRoomService{
		Repo:   store,
		Seq:    &warroom.Sequencer{Repo: store, Gen: warroom.ScriptGenerator{}, Logger: logger},
		Live:   liveManager,
		Logger: logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(auth.RequireBearerMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	matchHandler := &handler.MatchHandler{Service: matchService}
	matchHandler.Register(engine)
	liveHandler := &handler.LiveHandler{Service: liveService, Live: liveManager, Logger: logger}
	liveHandler.Register(engine)
	warRoomHandler := &handler.WarRoomHandler{Service: warRoomService}
	warRoomHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		if _, err := cronRunner.Add("live_gc", cfg.Cron.LiveGC, func(ctx context.Context) {
			liveService.GC()
		}); err != nil {
			logger.Warn("cron register live gc failed", zap.Error(err))
		}
		if _, err := cronRunner.Add("expiry_sweep", cfg.Cron.ExpirySweep, func(ctx context.Context) {
			matchService.ExpireSweep(ctx, time.Now().UTC(), cfg.Cron.SweepLimit)
		}); err != nil {
			logger.Warn("cron register expiry sweep failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	liveManager.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Arena-User")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
