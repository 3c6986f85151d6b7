// Command ingestd runs a supervised market-data ingest session: it
// reconnects with exponential backoff whenever a session closes, since
// the session state machine itself performs no reconnection.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"talaria/internal/config"
	"talaria/internal/ingest"
	"talaria/internal/logging"
	"talaria/internal/matching"
	"talaria/internal/metrics"
	"talaria/internal/notify"
	"talaria/internal/tick"
	"talaria/internal/venue"
)

const (
	minReconnectDelay = 1 * time.Second
	maxReconnectDelay = 30 * time.Second
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
	m := metrics.New()

	normalizer := venue.Normalizer{
		PriceTick: tick.MustNew(cfg.Ingest.PriceTick),
		SizeTick:  tick.MustNew(cfg.Ingest.SizeTick),
	}

	port := notify.NewPort()
	go consume(port, m)

	fetcher := ingest.NewHTTPSnapshotFetcher(cfg.Ingest.SnapshotURL, nil)

	delay := minReconnectDelay
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		transport := ingest.NewWSTransport(cfg.Ingest.WebsocketURL)
		session := ingest.NewSession(transport, normalizer, fetcher, port, log)

		err := session.Run(ctx)
		if err == nil {
			return // ctx canceled: clean shutdown
		}

		m.SessionReconnects.Inc()
		log.Error().Err(err).Dur("retry_in", delay).Msg("ingest session closed, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// consume drains the notification port and updates observability state.
// A real deployment would forward these onto a downstream sink (a
// message bus, a local book mirror); here it only counts them.
func consume(port *notify.Port, m *metrics.Metrics) {
	for {
		n, ok := port.Recv()
		if !ok {
			return
		}
		m.NotificationsEmitted.Inc()
		switch n.Kind {
		case notify.KindTrade:
			m.TradesMatched.Inc()
		case notify.KindLimitUpdates:
			for _, u := range n.LimitUpdates {
				if u.Side == matching.Bid {
					m.BestBid.Set(float64(u.Price))
				} else {
					m.BestAsk.Set(float64(u.Price))
				}
			}
		}
	}
}
