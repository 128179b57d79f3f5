package main

import (
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/hamed0406/mindsprobe/internal/config"
	"github.com/hamed0406/mindsprobe/internal/httpapi"
	"github.com/hamed0406/mindsprobe/internal/logging"
	"github.com/hamed0406/mindsprobe/internal/repo/memory"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	store := memory.New()
	// the probe lists tables of this integration
	store.AddDatabase(cfg.ExternalDB, "ticker", "trades")

	api := httpapi.NewServer(logger, store, cfg.MockToken)

	logger.Info("mock_listen",
		zap.String("addr", cfg.MockAddr),
		zap.Bool("auth", cfg.MockToken != ""),
		zap.String("external_db", cfg.ExternalDB),
	)
	if err := http.ListenAndServe(cfg.MockAddr, api.Router()); err != nil {
		log.Fatal(err)
	}
}
