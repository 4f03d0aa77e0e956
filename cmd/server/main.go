package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/handlers"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/kv"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/logger"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/repositories"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/services"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/snapshot"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/utils"
)

// application bundles the server's long-lived dependencies
type application struct {
	config   *utils.Config
	logger   *logger.Logger
	handlers *handlers.Handlers
}

func main() {
	ctx := context.Background()
	log := logger.NewStdLogger()

	cfg := utils.LoadConfig()

	repo, err := repositories.NewDBRepository(cfg)
	if err != nil {
		log.Error(fmt.Errorf("failed to initialize repository: %w", err))
		return
	}
	defer repo.Close()

	store, err := kv.OpenSQLite(cfg.Cache.Path)
	if err != nil {
		log.Error(fmt.Errorf("failed to open local snapshot store: %w", err))
		return
	}
	defer store.Close()

	cache := snapshot.New(store, cfg.Cache.TTL)
	ingestor := services.NewIngestor(repo, cache, log, cfg.Ingest.ExpectedSheets)
	inbox := services.NewInbox(repo)

	// Cold start: a fresh local snapshot skips remote I/O entirely; a failed
	// remote fetch leaves the empty-state upload prompt and is not fatal
	if err := ingestor.Start(ctx); err != nil {
		log.Errorf("cold start fetch failed, continuing with empty dataset: %v", err)
	}

	app := &application{
		config:   cfg,
		logger:   log,
		handlers: handlers.New(log, ingestor, inbox, cfg.Inbox.PageSize),
	}

	addr := ":" + cfg.App.Port
	log.Infof("Starting server on %s (env: %s)", addr, cfg.App.Env)
	if err := http.ListenAndServe(addr, app.routes()); err != nil && err != http.ErrServerClosed {
		log.Error(fmt.Errorf("server failed: %w", err))
	}
}
