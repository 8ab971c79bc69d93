package service

import (
	"testing"

	"parity_bot/internal/models"
)

func minuteBars(pairs ...[2]float64) []models.Candle {
	out := make([]models.Candle, 0, len(pairs))
	for i, p := range pairs {
		c := models.Candle{
			Open:      p[0],
			Close:     p[0],
			Volume:    p[1],
			OpenTime:  int64(i) * 60_000,
			CloseTime: int64(i+1)*60_000 - 1,
		}
		if p[0] < 0 { // знак open кодирует направление свечи
			c.Open = -p[0]
			c.Close = -p[0] - 1
		} else {
			c.Close = p[0] + 1
		}
		out = append(out, c)
	}
	return out
}

func TestVolumeDeltaProxy(t *testing.T) {
	// up(10), down(4), up(6) -> 10 - 4 + 6 = 12
	m1 := minuteBars([2]float64{100, 10}, [2]float64{-100, 4}, [2]float64{100, 6})

	if got := volumeDeltaProxy(m1, 10); got != 12 {
		t.Fatalf("delta = %v, want 12", got)
	}
	// окно 2 минуты: -4 + 6 = 2
	if got := volumeDeltaProxy(m1, 2); got != 2 {
		t.Fatalf("delta window=2 = %v, want 2", got)
	}
}

func TestVolumeDeltaDojiCountsUp(t *testing.T) {
	// close == open считается покупкой
	m1 := []models.Candle{{Open: 100, Close: 100, Volume: 5, CloseTime: 1}}
	if got := volumeDeltaProxy(m1, 1); got != 5 {
		t.Fatalf("doji delta = %v, want +5", got)
	}
}

func TestVolumeDeltaEmptyWindow(t *testing.T) {
	if got := volumeDeltaProxy(nil, 60); got != 0 {
		t.Fatalf("empty window delta = %v, want 0", got)
	}
}
