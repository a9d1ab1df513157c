package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/glancehq/glance-backend/internal/clients/redis"
	"github.com/glancehq/glance-backend/internal/clients/screenpipe"
	"github.com/glancehq/glance-backend/internal/db"
	"github.com/glancehq/glance-backend/internal/handlers"
	"github.com/glancehq/glance-backend/internal/logger"
	"github.com/glancehq/glance-backend/internal/repos"
	"github.com/glancehq/glance-backend/internal/server"
	"github.com/glancehq/glance-backend/internal/services"
	"github.com/glancehq/glance-backend/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// SQLite (optional, cycle audit trail only)
	var cycleRecordRepo repos.CycleRecordRepo
	sqliteService, err := db.NewSQLiteService(log)
	if err != nil {
		log.Warn("SQLite init failed, cycle history disabled", "error", err)
	} else if err := sqliteService.AutoMigrateAll(); err != nil {
		log.Warn("SQLite migration failed, cycle history disabled", "error", err)
	} else {
		cycleRecordRepo = repos.NewCycleRecordRepo(sqliteService.DB(), log)
	}

	// Redis (optional, cleaning cache only)
	kv, err := redis.NewKV(log)
	if err != nil {
		log.Warn("Redis unavailable, running without cleaning cache", "error", err)
		kv = nil
	} else {
		defer kv.Close()
	}

	// Services
	log.Info("Setting up services from main...")
	llmClient, err := services.NewLLMClient(log)
	if err != nil {
		log.Error("Could not init LLMClient", "error", err)
		os.Exit(1)
	}
	denylist := utils.LoadDenylist(utils.GetEnv("SETTINGS_PATH", "settings.yaml", log), log)
	spClient := screenpipe.NewClient(log)
	threadStore := services.NewThreadStore(log)
	cleaner := services.NewCleaner(log, llmClient)
	cleanCache := services.NewCleanCache(log, kv, cleaner)
	suggester := services.NewSuggester(log, llmClient)
	confirmBus := services.NewConfirmBus(log)
	actionService := services.NewActionService(log, llmClient, threadStore, confirmBus)
	scheduler := services.NewScheduler(log, threadStore, denylist, suggester, actionService, confirmBus, cycleRecordRepo)
	ingestor := services.NewIngestor(log, spClient, cleanCache, threadStore, denylist)

	// Handlers
	suggestionHandler := handlers.NewSuggestionHandler(confirmBus, scheduler)
	threadHandler := handlers.NewThreadHandler(threadStore, cleanCache, denylist)
	cycleHandler := handlers.NewCycleHandler(cycleRecordRepo)

	router := server.NewRouter(server.RouterConfig{
		Log:               log,
		SuggestionHandler: suggestionHandler,
		ThreadHandler:     threadHandler,
		CycleHandler:      cycleHandler,
	})

	addr := utils.GetEnv("HTTP_ADDR", ":8090", log)
	httpServer := &http.Server{Addr: addr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ingestor.Start(gctx)
	})
	g.Go(func() error {
		return scheduler.Start(gctx)
	})
	g.Go(func() error {
		log.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")
		return httpServer.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		log.Error("Shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("Shutdown complete")
}
