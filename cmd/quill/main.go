package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/quill-chat/quill/internal/config"
	"github.com/quill-chat/quill/internal/logger"
	"github.com/quill-chat/quill/internal/setup"
)

func main() {
	var configFolder string
	flag.StringVar(&configFolder, "config_folder", "config", "path to folder with configs")
	flag.Parse()

	cfg := config.MustLoad(configFolder)
	logger.Initialize(cfg.Public.Log.Level, cfg.Public.Log.JSON)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := setup.SetupDependencies(ctx, cfg)
	if err != nil {
		logger.Log.Error("setup failed", "error", err)
		os.Exit(1)
	}
	defer deps.Cleanup()

	srv := &http.Server{
		Addr:    cfg.Public.Api.Addr,
		Handler: deps.Handler.Routes(),
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	logger.Log.Info("quill listening", "addr", cfg.Public.Api.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
