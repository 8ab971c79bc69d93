package helper

import (
	"fmt"
	"strings"
)

// NormTF приводит таймфрейм к нижнему регистру binance-формата:
// "M15"/"15m"/"candle15m" -> "15m".
func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "60m", "1h":
		return "1h"
	}
	if iv, err := ToBinanceInterval(s); err == nil {
		return iv
	}
	return s
}

// ToBinanceInterval принимает и MT5-стиль ("M15","H1","D1") и
// binance-стиль ("15m","1h") и возвращает binance-интервал.
func ToBinanceInterval(tf string) (string, error) {
	s := strings.TrimSpace(tf)
	if s == "" {
		return "", fmt.Errorf("timeframe is required")
	}
	u := strings.ToUpper(s)
	if len(u) >= 2 && isDigits(u[1:]) {
		switch u[0] {
		case 'M':
			return strings.TrimLeft(u[1:], "0") + "m", nil
		case 'H':
			return strings.TrimLeft(u[1:], "0") + "h", nil
		case 'D':
			return strings.TrimLeft(u[1:], "0") + "d", nil
		case 'W':
			return strings.TrimLeft(u[1:], "0") + "w", nil
		}
	}
	l := strings.ToLower(s)
	if len(l) >= 2 && isDigits(l[:len(l)-1]) {
		switch l[len(l)-1] {
		case 'm', 'h', 'd', 'w':
			return strings.TrimLeft(l[:len(l)-1], "0") + l[len(l)-1:], nil
		}
	}
	return "", fmt.Errorf("unsupported timeframe: %q", tf)
}

// TFSeconds — длительность таймфрейма в секундах.
func TFSeconds(tf string) (int64, error) {
	iv, err := ToBinanceInterval(tf)
	if err != nil {
		return 0, err
	}
	n := int64(0)
	for _, r := range iv[:len(iv)-1] {
		n = n*10 + int64(r-'0')
	}
	if n <= 0 {
		return 0, fmt.Errorf("unsupported timeframe: %q", tf)
	}
	switch iv[len(iv)-1] {
	case 'm':
		return n * 60, nil
	case 'h':
		return n * 3600, nil
	case 'd':
		return n * 86400, nil
	case 'w':
		return n * 604800, nil
	}
	return 0, fmt.Errorf("unsupported timeframe: %q", tf)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
