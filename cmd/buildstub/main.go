package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vyvo/iobuilds/pkg/buildstub"
	"github.com/vyvo/iobuilds/pkg/config"
)

func main() {
	cfg, err := config.LoadStub()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var store buildstub.Store = buildstub.NewMemStore()
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		pg, err := buildstub.NewPostgresStore(dsn)
		if err != nil {
			log.Fatalf("buildstub postgres init failed: %v", err)
		}
		defer func() {
			if err := pg.Close(); err != nil {
				log.Printf("buildstub postgres close error: %v", err)
			}
		}()
		store = pg
	}

	srv := buildstub.NewServer(store, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("buildstub shutdown error: %v", err)
		}
	}()

	for _, name := range cfg.ProjectNames() {
		log.Printf("project %s -> %s", name, buildstub.ProjectGUID(name))
	}
	log.Printf("buildstub listening on %s", cfg.ListenAddr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("buildstub failed: %v", err)
	}
}
