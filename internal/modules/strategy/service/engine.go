package service

import (
	"fmt"
	"math"
	"sync"

	"parity_bot/internal/helper"
	"parity_bot/internal/models"
	"parity_bot/internal/modules/config"
)

// pivotRef — последний подтверждённый pivot-low. Перезаписывается каждым
// новым пивотом, в том числе не давшим сетап: дивергенция всегда меряется
// от самого свежего.
type pivotRef struct {
	Price float64
	Osc   float64
	Bar   int
}

// armedSetup — взведённый лонг-сетап (фаза Armed). nil в symbolState
// означает Idle.
type armedSetup struct {
	Trigger float64 // rolling highest-high на баре взвода
	Pivot   float64
	Bar     int
}

type symbolState struct {
	lastPivot    *pivotRef
	lastEntryBar int
	hasEntry     bool
	setup        *armedSetup
	deltaHist    *deltaHistory
	ready        bool
}

// Engine — long-only движок паритета с Pine-индикатором: подтверждённые
// pivot-low, бычья дивергенция по money-flow осциллятору, дельта-гейт и
// BOS-подтверждение. Один вызов OnBarClose на одно допущенное закрытие бара.
type Engine struct {
	tf  string
	cfg config.StrategyConfig

	mu    sync.Mutex
	state map[string]*symbolState
}

func NewEngine(cfg *config.Config) *Engine {
	return &Engine{
		tf:    helper.NormTF(cfg.Timeframe),
		cfg:   cfg.Strategy,
		state: make(map[string]*symbolState),
	}
}

func (e *Engine) Name() string { return "pine_parity" }

func (e *Engine) get(symbol string) *symbolState {
	if st, ok := e.state[symbol]; ok {
		return st
	}
	st := &symbolState{
		deltaHist: newDeltaHistory(e.cfg.PercentileLookback),
	}
	e.state[symbol] = st
	return st
}

func (e *Engine) minNeed() int {
	n := e.cfg.DonchianLength
	if m := 2*e.cfg.PivotLength + 2; m > n {
		n = m
	}
	if n < 50 {
		n = 50
	}
	return n
}

// IsReady — символ прогрет (истории хватает для индикаторов).
func (e *Engine) IsReady(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.state[symbol]
	return ok && st.ready
}

// OnBarClose обрабатывает одно закрытие бара таймфрейма.
// tfCandles — закрытые свечи по возрастанию, последняя — только что
// закрывшийся бар; m1 — минутки, заканчивающиеся не позже его закрытия.
// Ошибка означает баг апстрима (сломанная серия), а не "нет сигнала".
func (e *Engine) OnBarClose(symbol string, tfCandles, m1 []models.Candle, barCloseMs int64) (models.Signal, bool, error) {
	if err := models.ValidateSeries(tfCandles); err != nil {
		return models.Signal{}, false, fmt.Errorf("tf series %s: %w", symbol, err)
	}
	if err := models.ValidateSeries(m1); err != nil {
		return models.Signal{}, false, fmt.Errorf("m1 series %s: %w", symbol, err)
	}
	if e.cfg.UseVolumeDeltaGate && len(m1) == 0 {
		return models.Signal{}, false, fmt.Errorf("m1 series %s: empty window while delta gate is on", symbol)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.get(symbol)

	// прогрев: мало истории — тихий no-op, не ошибка
	if len(tfCandles) < e.minNeed() {
		return models.Signal{}, false, nil
	}
	st.ready = true

	opens := make([]float64, len(tfCandles))
	highs := make([]float64, len(tfCandles))
	lows := make([]float64, len(tfCandles))
	closes := make([]float64, len(tfCandles))
	vols := make([]float64, len(tfCandles))
	oscSrc := make([]float64, len(tfCandles))
	for k, c := range tfCandles {
		opens[k] = c.Open
		highs[k] = c.High
		lows[k] = c.Low
		closes[k] = c.Close
		vols[k] = c.Volume
		oscSrc[k] = (c.Close - c.Open) * c.Volume
	}

	donHi := rollingMax(highs, e.cfg.DonchianLength)
	donLo := rollingMin(lows, e.cfg.DonchianLength)
	loc := donchianLocation(closes, donHi, donLo)
	osc := ema(oscSrc, e.cfg.OscillatorLength)
	atr14 := atr(tfCandles, 14)
	hhPivot := rollingMax(highs, e.cfg.PivotLength)

	deltaVal := volumeDeltaProxy(m1, e.cfg.VolumeDeltaWindowMin)

	var (
		deltaThr float64
		thrOK    bool
	)
	if e.cfg.UseDynamicPercentile {
		// свежее наблюдение участвует в распределении, которое гейтит
		// его же. Так считает индикатор, поэтому так считаем и мы
		st.deltaHist.Append(deltaVal)
		deltaThr, thrOK = st.deltaHist.Percentile(e.cfg.PercentileRank)
	} else {
		deltaThr, thrOK = e.cfg.StaticDeltaThreshold, true
	}
	gateOK := !e.cfg.UseVolumeDeltaGate || (thrOK && deltaVal >= deltaThr)

	i := len(tfCandles) - 1

	canEnter := func() bool {
		if e.cfg.CooldownBars <= 0 || !st.hasEntry {
			return true
		}
		return i-st.lastEntryBar >= e.cfg.CooldownBars
	}

	var fired *armedSetup

	if piv, ok := confirmedPivotLow(lows, i, e.cfg.PivotLength, e.cfg.PivotLength); ok {
		plPrice := lows[piv]
		plOsc := osc[piv]
		nearLower := loc[piv] <= e.cfg.ExtremeBandPct

		bullDiv := false
		strengthOK := false
		if prev := st.lastPivot; prev != nil {
			bullDiv = plPrice <= prev.Price && plOsc > prev.Osc
			safePrev := math.Max(math.Abs(prev.Osc), 1e-9)
			oscChange := (plOsc - prev.Osc) / safePrev * 100.0
			strengthOK = e.cfg.MinDivergenceStrength <= 0 || oscChange >= e.cfg.MinDivergenceStrength
		}

		if e.cfg.LongOnly && nearLower && bullDiv && strengthOK && canEnter() {
			st.setup = &armedSetup{
				Trigger: hhPivot[i],
				Pivot:   plPrice,
				Bar:     i,
			}
			if e.cfg.Mode() == models.EntryRaw && e.cfg.TradeAllDivergences && gateOK {
				fired = st.setup
				st.setup = nil
			}
		}

		st.lastPivot = &pivotRef{Price: plPrice, Osc: plOsc, Bar: piv}
	}

	if fired == nil && e.cfg.Mode() == models.EntryConfirm && st.setup != nil {
		if i-st.setup.Bar > e.cfg.MaxWaitBars {
			// сетап протух, тихо сбрасываем
			st.setup = nil
		} else {
			trigOK := closes[i] > opens[i]
			if e.cfg.UseBreakoutConfirm {
				buf := atr14[i] * e.cfg.BreakoutAtrBufferMul
				trigOK = closes[i] > st.setup.Trigger+buf
			}
			if trigOK && gateOK && canEnter() && e.cfg.TradeAllDivergences {
				fired = st.setup
				st.setup = nil
			}
		}
	}

	if fired == nil {
		return models.Signal{}, false, nil
	}

	st.lastEntryBar = i
	st.hasEntry = true

	return models.Signal{
		Symbol:         symbol,
		Side:           models.SideLong,
		EntryPrice:     closes[i],
		ConfirmTimeMs:  barCloseMs - 1,
		PivotPrice:     fired.Pivot,
		TriggerPrice:   fired.Trigger,
		DeltaGateOK:    gateOK,
		DeltaValue:     deltaVal,
		DeltaThreshold: deltaThr,
		Timeframe:      e.tf,
	}, true, nil
}

// Dump — состояние символа для логов.
func (e *Engine) Dump(symbol string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.state[symbol]
	if !ok {
		return "pine_parity: no state"
	}
	out := fmt.Sprintf("pine_parity[%s] ready=%v hist=%d", symbol, st.ready, st.deltaHist.Len())
	if st.lastPivot != nil {
		out += fmt.Sprintf(" lastPL=%.6f@%d osc=%.4f", st.lastPivot.Price, st.lastPivot.Bar, st.lastPivot.Osc)
	}
	if st.setup != nil {
		out += fmt.Sprintf(" armed trig=%.6f@%d", st.setup.Trigger, st.setup.Bar)
	}
	if st.hasEntry {
		out += fmt.Sprintf(" lastEntry=%d", st.lastEntryBar)
	}
	return out
}
