package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chaintable/internal/audit"
	"chaintable/internal/config"
	"chaintable/internal/coordinator"
	"chaintable/internal/logging"
	"chaintable/internal/settle"
	"chaintable/internal/store"
	"chaintable/internal/token"
	httptransport "chaintable/internal/transport/http"

	"github.com/rs/zerolog/log"
)

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal().Err(err).Msg("load server config failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	aud, err := audit.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("audit log init failed")
	}
	defer aud.Close()

	issuer, err := token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("token issuer init failed")
	}

	var ledger settle.Ledger
	ledger, err = settle.NewEthLedger(cfg.RPCEndpoint, cfg.OperatorKey, cfg.ContractAddress, cfg.ChainID)
	if err != nil {
		log.Warn().Err(err).Msg("on-chain settlement unavailable; running offline")
		ledger = settle.OfflineLedger{}
	}
	bridge := settle.NewBridge(ledger, aud, cfg.SettleAttempts, cfg.SettleBackoff)

	st := store.New(cfg.SessionTimeout)
	coord := coordinator.New(st, issuer, bridge, aud, cfg)
	coord.StartJanitor(ctx, cfg.SweepInterval)

	limiter := httptransport.NewRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	r := httptransport.NewRouter(coord, cfg, limiter)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
