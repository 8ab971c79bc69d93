package service

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"parity_bot/internal/models"
	"parity_bot/internal/modules/config"
	"parity_bot/pkg/logger"
)

const exchangeInfoTTL = time.Hour

// Client — REST-клиент binance klines. Venue spot/usdm: металлы типа
// XAGUSDT есть только на фьючах, на споте будет HTTP 400.
type Client struct {
	cfg  *config.Config
	http *http.Client

	mu      sync.Mutex
	valid   map[string]struct{}
	validTS time.Time
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) venue() string {
	return strings.ToLower(strings.TrimSpace(c.cfg.Feed.Venue))
}

func (c *Client) apiBase() string {
	if c.cfg.Feed.APIBase != "" {
		return strings.TrimRight(c.cfg.Feed.APIBase, "/")
	}
	if c.venue() == "usdm" {
		return "https://fapi.binance.com"
	}
	return "https://api.binance.com"
}

func (c *Client) klinePath() string {
	if c.venue() == "usdm" {
		return "/fapi/v1/klines"
	}
	return "/api/v3/klines"
}

func (c *Client) exchangeInfoPath() string {
	if c.venue() == "usdm" {
		return "/fapi/v1/exchangeInfo"
	}
	return "/api/v3/exchangeInfo"
}

func (c *Client) fetch(rawURL string) ([]byte, error) {
	resp, err := c.http.Get(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "http get")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if resp.StatusCode != http.StatusOK {
		snippet := body
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		return nil, errors.Errorf("HTTP %d url=%s body=%s", resp.StatusCode, rawURL, snippet)
	}
	return body, nil
}

// Klines — закрытые и текущая свечи по символу, максимум 1000.
func (c *Client) Klines(symbol, interval string, limit int) ([]models.Candle, error) {
	if limit > 1000 {
		limit = 1000
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", fmt.Sprintf("%d", limit))

	body, err := c.fetch(c.apiBase() + c.klinePath() + "?" + q.Encode())
	if err != nil {
		return nil, errors.Wrapf(err, "fetch klines %s %s", symbol, interval)
	}
	return ParseKlines(body)
}

func (c *Client) validSymbols(force bool) (map[string]struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !force && c.valid != nil && time.Since(c.validTS) < exchangeInfoTTL {
		return c.valid, nil
	}

	body, err := c.fetch(c.apiBase() + c.exchangeInfoPath())
	if err != nil {
		return nil, errors.Wrap(err, "fetch exchangeInfo")
	}

	var info struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
			Status string `json:"status"`
		} `json:"symbols"`
	}
	if err := sonic.Unmarshal(body, &info); err != nil {
		return nil, errors.Wrap(err, "decode exchangeInfo")
	}

	set := make(map[string]struct{}, len(info.Symbols))
	for _, s := range info.Symbols {
		switch strings.ToUpper(s.Status) {
		case "TRADING", "PRE_TRADING", "PENDING_TRADING":
			set[s.Symbol] = struct{}{}
		}
	}
	c.valid = set
	c.validTS = time.Now()
	return set, nil
}

// ValidateSymbols отфильтровывает символы, которых нет на выбранном venue.
// Если exchangeInfo недоступен — пропускаем всех, лучше чем стоять.
func (c *Client) ValidateSymbols(symbols []string) []string {
	valid, err := c.validSymbols(false)
	if err != nil {
		logger.Warn("exchangeInfo fetch failed, skipping symbol validation: %v", err)
		return symbols
	}
	ok := make([]string, 0, len(symbols))
	bad := make([]string, 0)
	for _, s := range symbols {
		if _, found := valid[s]; found {
			ok = append(ok, s)
		} else {
			bad = append(bad, s)
		}
	}
	if len(bad) > 0 {
		hint := ""
		if c.venue() == "spot" {
			hint = " (hint: metals like XAGUSDT/XAUUSDT are futures, set feed.venue=usdm)"
		}
		logger.Error("invalid binance symbols for venue=%s: %v%s", c.venue(), bad, hint)
	}
	return ok
}
