package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parity_bot/internal/modules/config"
	"parity_bot/pkg/logger"
)

// Metrics — счётчики бота для Prometheus.
type Metrics struct {
	BarsAdmitted   *prometheus.CounterVec // labels: symbol
	SignalsEmitted *prometheus.CounterVec // labels: symbol
	SignalsDropped prometheus.Counter
	PollErrors     prometheus.Counter
	EngineErrors   prometheus.Counter
	BarCloseDur    prometheus.Histogram

	reg *prometheus.Registry
}

func NewMetrics() *Metrics {
	m := &Metrics{
		BarsAdmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parity_bars_admitted_total",
			Help: "Bar closes admitted by the gate",
		}, []string{"symbol"}),
		SignalsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parity_signals_total",
			Help: "Long signals emitted by the engine",
		}, []string{"symbol"}),
		SignalsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parity_signals_dropped_total",
			Help: "Signals dropped due to full out channel",
		}),
		PollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parity_poll_errors_total",
			Help: "Feed poll/fetch errors",
		}),
		EngineErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parity_engine_errors_total",
			Help: "Engine precondition violations (broken upstream series)",
		}),
		BarCloseDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "parity_bar_close_duration_seconds",
			Help:    "Engine bar-close processing duration",
			Buckets: prometheus.DefBuckets,
		}),
		reg: prometheus.NewRegistry(),
	}

	m.reg.MustRegister(
		m.BarsAdmitted,
		m.SignalsEmitted,
		m.SignalsDropped,
		m.PollErrors,
		m.EngineErrors,
		m.BarCloseDur,
	)
	return m
}

// Serve поднимает /metrics на админском порту.
func (m *Metrics) Serve(ctx context.Context, cfg *config.Config) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.AdminPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server: %v", err)
		}
	}()
	return srv
}
