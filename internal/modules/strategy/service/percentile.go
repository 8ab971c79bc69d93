package service

import (
	"math"
	"sort"
)

// deltaHistory — ограниченная история дельта-прокси на символ.
// Переполнение вытесняет самое старое значение.
type deltaHistory struct {
	buf []float64
	cap int
}

func newDeltaHistory(capacity int) *deltaHistory {
	return &deltaHistory{
		buf: make([]float64, 0, capacity),
		cap: capacity,
	}
}

func (h *deltaHistory) Append(v float64) {
	if len(h.buf) >= h.cap {
		h.buf = h.buf[1:]
	}
	h.buf = append(h.buf, v)
}

func (h *deltaHistory) Len() int { return len(h.buf) }

// Percentile — rank-й перцентиль (0..100) с линейной интерполяцией между
// порядковыми статистиками: idx = rank/100*(n-1), целая часть — нижнее
// значение, дробная — вес верхнего. Пустая история — порога нет (ok=false),
// гейт обязан считаться проваленным, а не падать.
func (h *deltaHistory) Percentile(rank float64) (float64, bool) {
	n := len(h.buf)
	if n == 0 {
		return 0, false
	}
	sorted := make([]float64, n)
	copy(sorted, h.buf)
	sort.Float64s(sorted)

	if n == 1 {
		return sorted[0], true
	}
	idx := rank / 100.0 * float64(n-1)
	lo := int(math.Floor(idx))
	if lo >= n-1 {
		return sorted[n-1], true
	}
	frac := idx - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo]), true
}
