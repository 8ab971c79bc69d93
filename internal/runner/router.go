package runner

import (
	"context"
	"sync"

	"parity_bot/internal/helper"
	"parity_bot/internal/models"
	"parity_bot/internal/modules/config"
	strategysvc "parity_bot/internal/modules/strategy/service"
	"parity_bot/pkg/logger"
)

type Notifier interface {
	Send(ctx context.Context, key, msg string)
	SendService(ctx context.Context, format string, args ...any)
}

// KlineSource — узкий срез фид-клиента для ATR-подсказки.
type KlineSource interface {
	Klines(symbol, interval string, limit int) ([]models.Candle, error)
}

// Router — граница с исполнением: дедуп сигналов по confirm_time_ms,
// расчёт SL/TP-подсказки и уведомление. Сам ордер — забота внешнего
// коллаборатора, сюда он не входит.
type Router struct {
	cfg      *config.Config
	n        Notifier
	feed     KlineSource
	interval string

	mu          sync.Mutex
	lastConfirm map[string]int64 // symbol -> последний confirm_time_ms
}

func NewRouter(cfg *config.Config, n Notifier, feed KlineSource) (*Router, error) {
	interval, err := helper.ToBinanceInterval(cfg.Timeframe)
	if err != nil {
		return nil, err
	}
	return &Router{
		cfg:         cfg,
		n:           n,
		feed:        feed,
		interval:    interval,
		lastConfirm: make(map[string]int64),
	}, nil
}

// seen — дедуп: один и тот же confirm_time_ms на символ второй раз не
// обрабатываем (защита от двойного выстрела при перезапуске потока).
func (r *Router) seen(symbol string, confirmMs int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.lastConfirm[symbol]; ok && prev == confirmMs {
		return true
	}
	r.lastConfirm[symbol] = confirmMs
	return false
}

func (r *Router) OnSignal(ctx context.Context, sig models.Signal) {
	if r.seen(sig.Symbol, sig.ConfirmTimeMs) {
		logger.Info("dedupe ignored symbol=%s confirm_ms=%d", sig.Symbol, sig.ConfirmTimeMs)
		return
	}

	logger.Info("SIGNAL %s symbol=%s entry=%.6f tf=%s confirm_ms=%d",
		sig.Side, sig.Symbol, sig.EntryPrice, sig.Timeframe, sig.ConfirmTimeMs)

	atrVal, atrOK := r.atrHint(sig.Symbol)
	sl, tp, riskOK := calcSLTPLong(sig.EntryPrice, atrVal, atrOK, r.cfg.Risk.SLAtrMult, r.cfg.Risk.TPAtrMult)

	if r.cfg.Telegram.NotifyEntry {
		msg := formatEntry(sig, sl, tp, riskOK)
		r.n.Send(ctx, "entry:"+sig.Symbol, msg)
	}
}

// atrHint — ATR(14) по свежей закрытой серии; последний бар из klines ещё
// открыт и отбрасывается.
func (r *Router) atrHint(symbol string) (float64, bool) {
	klines, err := r.feed.Klines(symbol, r.interval, 250)
	if err != nil {
		logger.Warn("atr hint fetch %s: %v", symbol, err)
		return 0, false
	}
	if len(klines) <= 50 {
		return 0, false
	}
	return strategysvc.ATRLast(klines[:len(klines)-1], 14)
}

func calcSLTPLong(entry, atr float64, atrOK bool, slMult, tpMult float64) (sl, tp float64, ok bool) {
	if !atrOK || atr <= 0 {
		return 0, 0, false
	}
	return entry - atr*slMult, entry + atr*tpMult, true
}
