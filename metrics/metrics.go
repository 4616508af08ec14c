package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/htc101524/BoardGameMondays-sub002/events"
)

var (
	BetsPlaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wager_bets_placed_total",
			Help: "Total bets accepted by the ledger",
		},
	)

	CoinsStaked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wager_coins_staked_total",
			Help: "Total coins staked across all bets",
		},
	)

	OddsSheetsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wager_odds_sheets_generated_total",
			Help: "Total odds sheets generated",
		},
	)

	SessionsResolved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wager_sessions_resolved_total",
			Help: "Total sessions settled",
		},
	)

	CoinsPaidOut = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wager_coins_paid_out_total",
			Help: "Total coins recorded for payout",
		},
	)

	CreditRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wager_credit_retries_total",
			Help: "Total payout credits delivered by the retry worker",
		},
	)
)

// Init registers the wagering metrics with the default registry
func Init() {
	prometheus.MustRegister(
		BetsPlaced,
		CoinsStaked,
		OddsSheetsGenerated,
		SessionsResolved,
		CoinsPaidOut,
		CreditRetries,
	)
}

// SubscribeToEvents wires the counters to the event bus so the services stay
// free of metrics plumbing.
func SubscribeToEvents(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBetPlaced, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.BetPlacedEvent); ok {
			BetsPlaced.Inc()
			CoinsStaked.Add(float64(e.Amount))
		}
	})

	bus.Subscribe(events.EventTypeOddsGenerated, func(ctx context.Context, event events.Event) {
		OddsSheetsGenerated.Inc()
	})

	bus.Subscribe(events.EventTypeSessionResolved, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.SessionResolvedEvent); ok {
			SessionsResolved.Inc()
			CoinsPaidOut.Add(float64(e.TotalPaidOut))
		}
	})

	bus.Subscribe(events.EventTypeCreditRetried, func(ctx context.Context, event events.Event) {
		CreditRetries.Inc()
	})
}

// HealthFunc reports whether a dependency is reachable
type HealthFunc func(ctx context.Context) error

// StartServer serves /metrics and /healthz on its own port, in its own
// goroutine. The caller shuts it down with the returned server.
func StartServer(port string, healthFn HealthFunc) *http.Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if err := healthFn(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Metrics server failed")
		}
	}()

	return srv
}
