package service

import (
	"math"

	"parity_bot/internal/models"
)

// Индикаторы считаются по всей серии на каждом закрытии бара:
// полный пересчёт, без инкрементального состояния.

// rollingMax — скользящий максимум за period баров (включая текущий).
// Пока окно не набралось, берём максимум по доступному префиксу.
func rollingMax(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		lo := i - period + 1
		if lo < 0 {
			lo = 0
		}
		m := xs[lo]
		for _, v := range xs[lo+1 : i+1] {
			if v > m {
				m = v
			}
		}
		out[i] = m
	}
	return out
}

func rollingMin(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		lo := i - period + 1
		if lo < 0 {
			lo = 0
		}
		m := xs[lo]
		for _, v := range xs[lo+1 : i+1] {
			if v < m {
				m = v
			}
		}
		out[i] = m
	}
	return out
}

// ema — рекурсивная EMA со span=length без bias-коррекции:
// alpha = 2/(length+1), value[0] = src[0].
func ema(src []float64, length int) []float64 {
	out := make([]float64, len(src))
	if len(src) == 0 {
		return out
	}
	alpha := 2.0 / (float64(length) + 1.0)
	out[0] = src[0]
	for i := 1; i < len(src); i++ {
		out[i] = alpha*src[i] + (1-alpha)*out[i-1]
	}
	return out
}

// rma — сглаживание Уайлдера: alpha = 1/length.
func rma(src []float64, length int) []float64 {
	out := make([]float64, len(src))
	if len(src) == 0 {
		return out
	}
	alpha := 1.0 / float64(length)
	out[0] = src[0]
	for i := 1; i < len(src); i++ {
		out[i] = alpha*src[i] + (1-alpha)*out[i-1]
	}
	return out
}

// trueRange — max(|h-l|, |h-prevC|, |l-prevC|); для первого бара prevC нет,
// остаётся h-l.
func trueRange(cs []models.Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		tr := c.High - c.Low
		if i > 0 {
			pc := cs[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(c.High-pc), math.Abs(c.Low-pc)))
		}
		out[i] = tr
	}
	return out
}

func atr(cs []models.Candle, length int) []float64 {
	return rma(trueRange(cs), length)
}

// ATRLast — последнее значение ATR(length) по закрытой серии.
// Используется раннером для SL/TP-подсказки.
func ATRLast(cs []models.Candle, length int) (float64, bool) {
	if len(cs) < 2 || length <= 0 {
		return 0, false
	}
	a := atr(cs, length)
	return a[len(a)-1], true
}

// donchianLocation — позиция close внутри канала [donLo, donHi] в [0,1];
// при нулевом диапазоне (флет) ровно 0.5.
func donchianLocation(closes, donHi, donLo []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		rng := donHi[i] - donLo[i]
		if rng > 0 {
			out[i] = (closes[i] - donLo[i]) / rng
		} else {
			out[i] = 0.5
		}
	}
	return out
}
