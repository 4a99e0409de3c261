package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"rag-web-qa/internal/app"
	"rag-web-qa/internal/config"
	"rag-web-qa/internal/logging"
	"rag-web-qa/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, logPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/rag/config.yaml if not provided)")
	flag.StringVar(&logPath, "log", "rag.log", "File to write logs to while the TUI owns the terminal")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "Usage: rag [--config=config.yaml] [--log=rag.log] [url]")
		flag.PrintDefaults()
	}
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

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}
	defer f.Close()
	logger := logging.NewWithLogger("rag", logging.ParseLevel(cfg.Log.Level), log.New(f, "", log.LstdFlags))

	a, err := app.Build(cfg, logger, nil)
	if err != nil {
		log.Fatalf("failed to assemble components: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := tui.New(ctx, a.Service, flag.Arg(0))
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
