package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"relatorio-ocorrencias/internal/backend"
	"relatorio-ocorrencias/internal/config"
	"relatorio-ocorrencias/internal/db"
	"relatorio-ocorrencias/internal/export"
	"relatorio-ocorrencias/internal/handlers"
	"relatorio-ocorrencias/internal/models"
	"relatorio-ocorrencias/internal/session"

	"github.com/gorilla/csrf"
	gorillahandlers "github.com/gorilla/handlers"
)

const sweepInterval = 10 * time.Minute

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	ctx := context.Background()

	// The export audit is optional: without DATABASE_URL the portal runs on
	// the backend alone.
	var auditor export.Auditor
	var history handlers.ExportHistory
	if cfg.AuditEnabled() {
		if err := db.Connect(ctx, cfg.DatabaseURL); err != nil {
			log.Printf("WARNING: Export audit disabled: %v", err)
		}
		if db.Enabled() {
			defer db.Close()
			if err := db.RunMigrations(ctx); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
			auditor = models.ExportLog{}
			history = models.ExportLog{}
		}
	}

	handlers.SetConfig(cfg)
	handlers.InitTemplates()

	client := backend.New(cfg.BackendURL, cfg.BackendTimeout)
	store := session.NewStore(client, session.DefaultIdleTimeout)
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			if n := store.Sweep(); n > 0 {
				cfg.Debugf("Dropped %d idle sessions", n)
			}
		}
	}()

	dash := handlers.NewDashboardHandler(client)
	filtered := handlers.NewFilteredHandler(store, client, export.NewFlow(client, auditor), history)
	if err := filtered.AnchorError(); err != nil {
		log.Printf("ERROR: Filtered report disabled: %v", err)
	}
	router := handlers.NewRouter(cfg.SessionSecret, cfg.SecureCookies, dash, filtered)

	protect := csrf.Protect(cfg.CSRFKey,
		csrf.Secure(cfg.SecureCookies),
		csrf.Path("/"),
		csrf.FieldName("csrf_token"),
	)
	handler := gorillahandlers.RecoveryHandler(gorillahandlers.PrintRecoveryStack(cfg.Debug))(protect(router))
	handler = gorillahandlers.LoggingHandler(os.Stdout, handler)

	addr := ":" + cfg.Port
	log.Printf("Relatório de ocorrências listening on %s (backend %s)", addr, cfg.BackendURL)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
