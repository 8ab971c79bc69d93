package service

import "parity_bot/internal/models"

// volumeDeltaProxy — знаковая сумма минутных объёмов за хвост окна:
// свеча закрылась вверх (close >= open) — плюс объём, вниз — минус.
// Дешёвый прокси нетто-давления покупок/продаж. Пустое окно даёт 0.
func volumeDeltaProxy(m1 []models.Candle, windowMinutes int) float64 {
	n := windowMinutes
	if len(m1) < n {
		n = len(m1)
	}
	if n <= 0 {
		return 0
	}
	sum := 0.0
	for _, c := range m1[len(m1)-n:] {
		if c.Close >= c.Open {
			sum += c.Volume
		} else {
			sum -= c.Volume
		}
	}
	return sum
}
