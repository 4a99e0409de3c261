package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"rag-web-qa/internal/api"
	"rag-web-qa/internal/app"
	"rag-web-qa/internal/config"
	"rag-web-qa/internal/logging"
	"rag-web-qa/internal/metrics"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, addr string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/rag/config.yaml if not provided)")
	flag.StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger := app.NewLogger(cfg)
	m := metrics.New()
	a, err := app.Build(cfg, logger, m)
	if err != nil {
		log.Fatalf("failed to assemble components: %v", err)
	}
	defer a.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.NewHandler(a.Service, logger.WithPrefix("api"), m).Register(e)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", logging.Fields{"addr": cfg.Server.Addr})
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", logging.Fields{"error": err})
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", logging.Fields{"error": err})
	}
	logger.Info("stopped", nil)
}
