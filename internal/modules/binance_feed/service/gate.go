package service

import "sync"

// Gate — фильтр закрытий баров: на символ пропускается только строго
// более позднее закрытие, и ровно один раз. Дубликаты и реплеи после
// рестарта фида молча отбрасываются. Водяной знак двигается только
// вперёд, пути назад нет.
type Gate struct {
	mu   sync.Mutex
	last map[string]int64 // symbol -> последний допущенный closeMs
}

func NewGate() *Gate {
	return &Gate{last: make(map[string]int64)}
}

// Admit возвращает true и двигает водяной знак, только если closeMs
// строго больше последнего допущенного для символа.
func (g *Gate) Admit(symbol string, closeMs int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.last[symbol]; ok && closeMs <= prev {
		return false
	}
	g.last[symbol] = closeMs
	return true
}

// Last — последний допущенный closeMs (для диагностики).
func (g *Gate) Last(symbol string) (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.last[symbol]
	return v, ok
}
