// Command engine runs the HTTP process: wires config, market data
// collection, the LLM client, the profile store and the gin API
// together, then serves until SIGINT/SIGTERM, following the
// koshedutech-binance-trading-app main.go bootstrap/graceful-shutdown
// shape (signal.Notify on SIGINT/SIGTERM, a bounded shutdown context,
// http.Server.Shutdown).
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/kpizzy812/futures-scenario-engine/api"
	"github.com/kpizzy812/futures-scenario-engine/auth"
	"github.com/kpizzy812/futures-scenario-engine/collector"
	"github.com/kpizzy812/futures-scenario-engine/config"
	"github.com/kpizzy812/futures-scenario-engine/engine"
	"github.com/kpizzy812/futures-scenario-engine/logger"
	"github.com/kpizzy812/futures-scenario-engine/mcp"
	"github.com/kpizzy812/futures-scenario-engine/metrics"
	"github.com/kpizzy812/futures-scenario-engine/ratelimit"
	"github.com/kpizzy812/futures-scenario-engine/store"
)

func main() {
	cfg := config.Load()

	level := zerolog.InfoLevel
	if os.Getenv("DEBUG") != "" {
		level = zerolog.DebugLevel
	}
	logger.Configure(cfg.JSONLogs, level)
	metrics.Init()

	limiters := ratelimit.NewRegistry(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	primary := collector.NewBinanceProvider(cfg.Provider.BinanceAPIKey, cfg.Provider.BinanceAPISecret)
	secondary := collector.NewBybitProvider(cfg.Provider.BybitAPIKey, cfg.Provider.BybitAPISecret)
	liqFeed := collector.NewLiquidationFeed()
	coll := collector.New(primary, secondary, liqFeed, cfg.Provider.FearGreedURL, limiters)

	aiClient, err := mcp.NewClientForProvider(cfg.AI.Provider, cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
	if err != nil {
		log.Fatalf("engine: failed to build AI client: %v", err)
	}

	eng := engine.New(coll, aiClient, engine.StructureConfig{
		SwingMinSeparation: cfg.Pipeline.SwingMinSeparation,
		LookbackIntraday:   cfg.Pipeline.LookbackIntraday,
		LookbackDaily:      cfg.Pipeline.LookbackDaily,
	}, cfg.Pipeline.MaxScenariosDefault, cfg.Pipeline.RequestDeadline, cfg.Pipeline.LLMSemaphoreSize, cfg.Pipeline.LLMAcquireTimeout)

	db, err := sql.Open("sqlite", cfg.Server.SQLitePath)
	if err != nil {
		log.Fatalf("engine: failed to open sqlite at %s: %v", cfg.Server.SQLitePath, err)
	}
	defer db.Close()

	profiles, err := store.NewProfileStore(db)
	if err != nil {
		log.Fatalf("engine: failed to init profile store: %v", err)
	}

	issuer := auth.NewIssuer(cfg.Server.JWTSecret)

	srv := api.NewServer(eng, profiles, issuer)
	if !cfg.JSONLogs {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	srv.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("engine: server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("error shutting down server: %v", err)
	}
}
