package service

import (
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	feedsvc "parity_bot/internal/modules/binance_feed/service"
	"parity_bot/internal/models"
	"parity_bot/internal/modules/config"
	"parity_bot/internal/modules/metrics"
	"parity_bot/pkg/logger"
)

type ServiceNotifier interface {
	SendService(ctx context.Context, format string, args ...any)
}

// Hub гоняет допущенные закрытия баров через движок и отдаёт сигналы
// наружу, не блокируясь на потребителе.
type Hub struct {
	cfg    *config.Config
	n      ServiceNotifier
	out    chan<- models.Signal
	engine *Engine
	m      *metrics.Metrics

	mu         sync.Mutex
	ready      map[string]bool
	readyCnt   int
	warmupDone bool
}

func NewHub(cfg *config.Config, n ServiceNotifier, out chan<- models.Signal, engine *Engine, m *metrics.Metrics) *Hub {
	return &Hub{
		cfg:    cfg,
		n:      n,
		out:    out,
		engine: engine,
		m:      m,
		ready:  make(map[string]bool),
	}
}

func (h *Hub) OnBarClose(ctx context.Context, bc feedsvc.BarClose) {
	span := opentracing.GlobalTracer().StartSpan("on_bar_close")
	span.SetTag("symbol", bc.Symbol)
	span.SetTag("tf", h.engine.tf)
	defer span.Finish()

	start := time.Now()
	sig, ok, err := h.engine.OnBarClose(bc.Symbol, bc.TF, bc.M1, bc.CloseMs)
	h.m.BarCloseDur.Observe(time.Since(start).Seconds())

	if err != nil {
		// сломанная серия — баг фида, об этом надо кричать
		h.m.EngineErrors.Inc()
		span.SetTag("error", true)
		logger.Error("engine %s: %v", bc.Symbol, err)
		if h.n != nil && h.cfg.Telegram.NotifyFailures {
			h.n.SendService(ctx, "ENGINE FAIL\n%s: %v", bc.Symbol, err)
		}
		return
	}

	h.maybeWarmupNotify(ctx, bc.Symbol)

	if !ok {
		return
	}

	h.m.SignalsEmitted.WithLabelValues(bc.Symbol).Inc()
	logger.Info("SIGNAL LONG symbol=%s entry=%.6f trig=%.6f confirm_ms=%d delta=%.2f thr=%.2f",
		sig.Symbol, sig.EntryPrice, sig.TriggerPrice, sig.ConfirmTimeMs, sig.DeltaValue, sig.DeltaThreshold)

	select {
	case h.out <- sig:
	default:
		h.m.SignalsDropped.Inc()
		logger.Warn("signal channel full, drop %s LONG @ %.6f", sig.Symbol, sig.EntryPrice)
		if h.n != nil && h.cfg.Telegram.NotifyFailures {
			h.n.SendService(ctx, "⚠️ signal channel full, drop %s LONG @ %.6f", sig.Symbol, sig.EntryPrice)
		}
	}
}

func (h *Hub) maybeWarmupNotify(ctx context.Context, symbol string) {
	if !h.engine.IsReady(symbol) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ready[symbol] {
		return
	}
	h.ready[symbol] = true
	h.readyCnt++
	logger.Info("warmup ready %s (%d/%d)", symbol, h.readyCnt, len(h.cfg.Symbols))

	if !h.warmupDone && h.readyCnt >= len(h.cfg.Symbols) {
		h.warmupDone = true
		if h.n != nil {
			h.n.SendService(ctx, "✅ Warmup finished: %d/%d ready, ждём сигналы",
				h.readyCnt, len(h.cfg.Symbols))
		}
	}
}
