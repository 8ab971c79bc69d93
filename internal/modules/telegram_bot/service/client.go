package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"parity_bot/internal/modules/config"
	"parity_bot/pkg/logger"
)

// Notifier — пассивные уведомления: никаких команд и кнопок, только
// исходящие сообщения с троттлингом по ключу.
type Notifier interface {
	Send(ctx context.Context, key, msg string)
	SendService(ctx context.Context, format string, args ...any)
}

// Telegram ...
type Telegram struct {
	bot *tgbot.BotAPI
	cfg *config.Config

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewTelegram(cfg *config.Config) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:      b,
		cfg:      cfg,
		lastSent: make(map[string]time.Time),
	}, nil
}

// throttled — не чаще одного сообщения на ключ за throttle_seconds.
func (t *Telegram) throttled(key string) bool {
	sec := t.cfg.Telegram.ThrottleSeconds
	if sec <= 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.lastSent[key]; ok && time.Since(last) < time.Duration(sec)*time.Second {
		return true
	}
	t.lastSent[key] = time.Now()
	return false
}

func (t *Telegram) Send(_ context.Context, key, msg string) {
	if t == nil || t.bot == nil || t.cfg.Telegram.ChatID == 0 {
		return
	}
	if t.throttled(key) {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.cfg.Telegram.ChatID, msg)); err != nil {
		logger.Error("telegram send failed key=%s: %v", key, err)
	}
}

func (t *Telegram) SendService(ctx context.Context, format string, args ...any) {
	t.Send(ctx, "service", fmt.Sprintf(format, args...))
}

// Startup — стартовое сообщение, один раз.
func (t *Telegram) Startup(ctx context.Context) {
	if !t.cfg.Telegram.NotifyStartup {
		return
	}
	t.Send(ctx, "startup", fmt.Sprintf(
		"BOT ONLINE\nTF: %s\nSymbols: %s",
		t.cfg.Timeframe, strings.Join(t.cfg.Symbols, ", "),
	))
}

// Stdout — фолбэк, когда телеграм выключен.
type Stdout struct{}

func (Stdout) Send(_ context.Context, key, msg string) {
	logger.Info("[notify:%s] %s", key, msg)
}

func (s Stdout) SendService(ctx context.Context, format string, args ...any) {
	s.Send(ctx, "service", fmt.Sprintf(format, args...))
}
