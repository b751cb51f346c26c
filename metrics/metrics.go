package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"coinpool/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	BetsPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinpool_bets_placed_total",
			Help: "Total bets accepted into the open pool",
		},
		[]string{"side"},
	)

	StakeVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinpool_stake_volume_total",
			Help: "Total stake amount accepted into the open pool",
		},
		[]string{"side"},
	)

	Settlements = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coinpool_settlements_total",
			Help: "Total pool settlements",
		},
	)

	ProfitDelta = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coinpool_profit_delta_total",
			Help: "Cumulative operator profit recorded by settlements",
		},
	)

	BalanceChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinpool_balance_changes_total",
			Help: "Total balance mutations by transaction type",
		},
		[]string{"type"},
	)

	RequestsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinpool_requests_resolved_total",
			Help: "Deposit and withdrawal requests leaving the pending state",
		},
		[]string{"kind", "status"},
	)

	AccountsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coinpool_accounts_created_total",
			Help: "Total accounts created",
		},
	)
)

// Init registers all collectors with the default registry
func Init() {
	prometheus.MustRegister(BetsPlaced)
	prometheus.MustRegister(StakeVolume)
	prometheus.MustRegister(Settlements)
	prometheus.MustRegister(ProfitDelta)
	prometheus.MustRegister(BalanceChanges)
	prometheus.MustRegister(RequestsResolved)
	prometheus.MustRegister(AccountsCreated)
}

// Observe wires the collectors to the event bus so counters move with the
// committed ledger rather than with repository internals
func Observe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBetPlaced, func(ctx context.Context, event events.Event) {
		e := event.(events.BetPlacedEvent)
		BetsPlaced.WithLabelValues(string(e.Side)).Inc()
		StakeVolume.WithLabelValues(string(e.Side)).Add(float64(e.Amount))
	})

	bus.Subscribe(events.EventTypePoolSettled, func(ctx context.Context, event events.Event) {
		e := event.(events.PoolSettledEvent)
		Settlements.Inc()
		if e.ProfitDelta > 0 {
			ProfitDelta.Add(float64(e.ProfitDelta))
		}
	})

	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, event events.Event) {
		e := event.(events.BalanceChangeEvent)
		BalanceChanges.WithLabelValues(string(e.TransactionType)).Inc()
	})

	bus.Subscribe(events.EventTypeRequestResolved, func(ctx context.Context, event events.Event) {
		e := event.(events.RequestResolvedEvent)
		RequestsResolved.WithLabelValues(string(e.Kind), string(e.Status)).Inc()
	})

	bus.Subscribe(events.EventTypeAccountCreated, func(ctx context.Context, event events.Event) {
		AccountsCreated.Inc()
	})
}

// HealthFunc reports whether a dependency is reachable
type HealthFunc func(ctx context.Context) error

// StartServer starts a small HTTP server serving /metrics and /healthz in
// a background goroutine and returns it for shutdown
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
			log.WithError(err).WithField("port", port).Error("Metrics server stopped")
		}
	}()

	return srv
}
