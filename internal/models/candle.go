package models

import "fmt"

// Candle — закрытая свеча OHLCV. Времена в миллисекундах эпохи,
// CloseTime строго возрастает внутри серии.
type Candle struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	OpenTime  int64
	CloseTime int64
}

// ValidateSeries проверяет монотонность CloseTime. Нарушение — баг
// апстрима (фида), поэтому это ошибка, а не тихий no-op.
func ValidateSeries(cs []Candle) error {
	for i := 1; i < len(cs); i++ {
		if cs[i].CloseTime <= cs[i-1].CloseTime {
			return fmt.Errorf("candle series not monotonic: close[%d]=%d <= close[%d]=%d",
				i, cs[i].CloseTime, i-1, cs[i-1].CloseTime)
		}
	}
	return nil
}
