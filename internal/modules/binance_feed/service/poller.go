package service

import (
	"context"
	"time"

	"parity_bot/internal/helper"
	"parity_bot/internal/models"
	"parity_bot/internal/modules/config"
	"parity_bot/internal/modules/metrics"
	"parity_bot/pkg/logger"
)

// BarClose — допущенное гейтом закрытие бара таймфрейма: закрытая серия,
// минутное окно под ней и момент закрытия. Это вход стратегии.
type BarClose struct {
	Symbol string
	TF     []models.Candle // закрытые свечи, последняя — свежезакрытый бар
	M1     []models.Candle // минутки, заканчиваются не позже закрытия бара
	// CloseMs = closeTime последнего бара + 1: момент, когда бар
	// гарантированно закрыт.
	CloseMs int64
}

// Poller опрашивает klines по списку символов и отдаёт в out ровно одно
// событие на закрытие бара на символ.
type Poller struct {
	cfg      *config.Config
	client   *Client
	gate     *Gate
	m        *metrics.Metrics
	interval string
	out      chan<- BarClose
}

func NewPoller(cfg *config.Config, client *Client, gate *Gate, m *metrics.Metrics, out chan<- BarClose) (*Poller, error) {
	interval, err := helper.ToBinanceInterval(cfg.Timeframe)
	if err != nil {
		return nil, err
	}
	return &Poller{
		cfg:      cfg,
		client:   client,
		gate:     gate,
		m:        m,
		interval: interval,
		out:      out,
	}, nil
}

func (p *Poller) m1Limit() int {
	n := p.cfg.Strategy.VolumeDeltaWindowMin + 10
	if n < 200 {
		n = 200
	}
	if n > 1000 {
		n = 1000
	}
	return n
}

// Run — основной цикл опроса. Ошибки по одному символу не валят цикл.
func (p *Poller) Run(ctx context.Context) {
	symbols := p.client.ValidateSymbols(p.cfg.Symbols)
	logger.Info("feed poller running: venue=%s interval=%s symbols=%v",
		p.cfg.Feed.Venue, p.interval, symbols)

	tick := time.Duration(p.cfg.Feed.PollSeconds * float64(time.Second))
	if tick <= 0 {
		tick = 5 * time.Second
	}

	for {
		for _, sym := range symbols {
			if ctx.Err() != nil {
				return
			}
			if err := p.PollSymbol(ctx, sym); err != nil {
				p.m.PollErrors.Inc()
				logger.Error("poll %s: %v", sym, err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(tick):
		}
	}
}

// PollSymbol тянет серию, отбрасывает ещё открытый бар, прогоняет закрытие
// через гейт и собирает минутное окно. nil без события — нового бара нет.
func (p *Poller) PollSymbol(ctx context.Context, symbol string) error {
	klines, err := p.client.Klines(symbol, p.interval, p.cfg.Feed.Limit)
	if err != nil {
		return err
	}
	if len(klines) < 3 {
		return nil
	}

	// последний элемент — ещё открытый бар, закрытый — предпоследний
	lastClosed := klines[len(klines)-2]
	if !p.gate.Admit(symbol, lastClosed.CloseTime) {
		return nil
	}
	p.m.BarsAdmitted.WithLabelValues(symbol).Inc()
	logger.Info("bar close %s %s closeMs=%d", symbol, p.interval, lastClosed.CloseTime)

	closed := klines[:len(klines)-1]

	m1, err := p.client.Klines(symbol, "1m", p.m1Limit())
	if err != nil {
		// водяной знак уже сдвинут, бар потерян — как и в проде,
		// реплеев у гейта нет
		return err
	}
	cut := make([]models.Candle, 0, len(m1))
	for _, c := range m1 {
		if c.CloseTime <= lastClosed.CloseTime {
			cut = append(cut, c)
		}
	}
	if len(cut) < 10 {
		return nil
	}

	bc := BarClose{
		Symbol:  symbol,
		TF:      closed,
		M1:      cut,
		CloseMs: lastClosed.CloseTime + 1,
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.out <- bc:
	}
	return nil
}
