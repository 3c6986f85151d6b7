// Command matchd runs the in-process limit-order-book matching engine
// behind the order-placement wire server, plus an admin HTTP endpoint
// for metrics and a human-readable book dump.
package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"

	"talaria/internal/config"
	"talaria/internal/logging"
	"talaria/internal/matching"
	"talaria/internal/metrics"
	"talaria/internal/net"
)

func main() {
	configFile := flag.String("config", "", "path to a config file (optional)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.LogLevel)

	engine := matching.New(cfg.Match.ArenaCapacity)
	srv := net.New(cfg.Match.Address, cfg.Match.Port, engine)

	m := metrics.New()
	adminServer := &http.Server{Addr: cfg.Metrics.Address, Handler: m.Router(srv.BookDump)}

	go func() {
		log.Info().Str("address", cfg.Metrics.Address).Msg("admin server listening")
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("admin server failed")
		}
	}()

	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Error().Err(err).Msg("matchd server failed")
		}
	}()

	<-ctx.Done()
	adminServer.Shutdown(context.Background())
}
