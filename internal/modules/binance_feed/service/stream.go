package service

import (
	"context"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"parity_bot/internal/modules/config"
	"parity_bot/pkg/logger"
)

// Streamer — WS-вариант транспорта: слушаем kline-стрим и на каждом
// подтверждённом закрытии дёргаем REST-путь поллера. Серию и минутки всё
// равно собирает REST, стрим нужен только как будильник закрытия — так
// гейт и движок не зависят от транспорта.
type Streamer struct {
	cfg    *config.Config
	poller *Poller
	dialer *websocket.Dialer
}

func NewStreamer(cfg *config.Config, poller *Poller) *Streamer {
	return &Streamer{
		cfg:    cfg,
		poller: poller,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

func (s *Streamer) wsBase() string {
	if strings.ToLower(s.cfg.Feed.Venue) == "usdm" {
		return "wss://fstream.binance.com"
	}
	return "wss://stream.binance.com:9443"
}

func (s *Streamer) streamURL(symbols []string) string {
	parts := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		parts = append(parts, strings.ToLower(sym)+"@kline_"+s.poller.interval)
	}
	return s.wsBase() + "/stream?streams=" + strings.Join(parts, "/")
}

// Run — connect/read loop с переподключением.
func (s *Streamer) Run(ctx context.Context) {
	symbols := s.poller.client.ValidateSymbols(s.cfg.Symbols)
	if len(symbols) == 0 {
		logger.Error("ws stream: empty symbol list after validation")
		return
	}
	url := s.streamURL(symbols)

	for ctx.Err() == nil {
		logger.Info("ws connect %d symbols interval=%s", len(symbols), s.poller.interval)
		conn, _, err := s.dialer.DialContext(ctx, url, nil)
		if err != nil {
			logger.Error("ws dial: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		s.readLoop(ctx, conn)
		_ = conn.Close()
	}
}

func (s *Streamer) readLoop(ctx context.Context, conn *websocket.Conn) {
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("ws read: %v", err)
			}
			return
		}

		var frame struct {
			Data struct {
				Symbol string `json:"s"`
				Kline  struct {
					CloseTime int64 `json:"T"`
					Closed    bool  `json:"x"`
				} `json:"k"`
			} `json:"data"`
		}
		if err := sonic.Unmarshal(msg, &frame); err != nil {
			continue
		}
		if !frame.Data.Kline.Closed || frame.Data.Symbol == "" {
			continue // ждём закрытую свечу
		}

		if err := s.poller.PollSymbol(ctx, frame.Data.Symbol); err != nil {
			s.poller.m.PollErrors.Inc()
			logger.Error("ws poll %s: %v", frame.Data.Symbol, err)
		}
	}
}
