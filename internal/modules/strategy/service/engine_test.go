package service

import (
	"testing"

	"parity_bot/internal/models"
	"parity_bot/internal/modules/config"
)

const testSymbol = "BTCUSDT"

func testCfg(t *testing.T, mut func(*config.StrategyConfig)) *config.Config {
	t.Helper()
	sc := config.StrategyConfig{
		DonchianLength:        5,
		PivotLength:           2,
		OscillatorLength:      14,
		ExtremeBandPct:        0.15,
		TradeAllDivergences:   true,
		LongOnly:              true,
		EntryMode:             "confirm",
		MinDivergenceStrength: 0,
		CooldownBars:          0,
		UseVolumeDeltaGate:    false,
		VolumeDeltaWindowMin:  60,
		UseDynamicPercentile:  false,
		PercentileLookback:    100,
		PercentileRank:        75,
		StaticDeltaThreshold:  0,
		UseBreakoutConfirm:    true,
		BreakoutAtrBufferMul:  0.10,
		MaxWaitBars:           30,
	}
	if mut != nil {
		mut(&sc)
	}
	if err := sc.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &config.Config{
		Timeframe: "15m",
		Symbols:   []string{testSymbol},
		Strategy:  sc,
	}
}

type bar struct{ o, h, l, c, v float64 }

func flatBars(n int) []bar {
	out := make([]bar, n)
	for i := range out {
		out[i] = bar{100, 100, 100, 100, 10}
	}
	return out
}

func toSeries(bars []bar) []models.Candle {
	const tfMs = 900_000
	out := make([]models.Candle, len(bars))
	for i, b := range bars {
		out[i] = models.Candle{
			Open:      b.o,
			High:      b.h,
			Low:       b.l,
			Close:     b.c,
			Volume:    b.v,
			OpenTime:  int64(i) * tfMs,
			CloseTime: int64(i+1)*tfMs - 1,
		}
	}
	return out
}

func monoMinutes(n int, up bool, vol float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		c := models.Candle{
			Open:      100,
			High:      101,
			Low:       99,
			Close:     101,
			Volume:    vol,
			OpenTime:  int64(i) * 60_000,
			CloseTime: int64(i+1)*60_000 - 1,
		}
		if !up {
			c.Close = 99
		}
		out[i] = c
	}
	return out
}

// divergenceBars — 70 баров: флет 100, первый pivot-low на 53, второй
// (дивергентный, в нижней зоне канала) на 60. Подтверждения на 55 и 62.
func divergenceBars() []bar {
	bars := flatBars(70)
	bars[53] = bar{o: 100, h: 100, l: 95, c: 99, v: 500}
	bars[60] = bar{o: 100, h: 100, l: 94, c: 94.5, v: 10}
	return bars
}

// drive прогоняет серию через движок по одному закрытию, как это делает
// поллер, и собирает сигналы.
func drive(t *testing.T, e *Engine, cs []models.Candle, m1For func(i int) []models.Candle) []models.Signal {
	t.Helper()
	var out []models.Signal
	for i := 49; i < len(cs); i++ {
		var m1 []models.Candle
		if m1For != nil {
			m1 = m1For(i)
		}
		sig, ok, err := e.OnBarClose(testSymbol, cs[:i+1], m1, cs[i].CloseTime+1)
		if err != nil {
			t.Fatalf("bar %d: unexpected error: %v", i, err)
		}
		if ok {
			out = append(out, sig)
		}
	}
	return out
}

func TestEngineWarmupSilence(t *testing.T) {
	e := NewEngine(testCfg(t, nil))
	cs := toSeries(flatBars(49))

	sig, ok, err := e.OnBarClose(testSymbol, cs, nil, cs[48].CloseTime+1)
	if err != nil {
		t.Fatalf("warm-up must not error: %v", err)
	}
	if ok {
		t.Fatalf("warm-up must not signal: %+v", sig)
	}
	if e.IsReady(testSymbol) {
		t.Fatalf("symbol must not be ready during warm-up")
	}
}

func TestEngineConfirmBreakout(t *testing.T) {
	bars := divergenceBars()
	bars[63] = bar{o: 100, h: 103.5, l: 100, c: 103, v: 10} // пробой триггера
	cs := toSeries(bars)

	e := NewEngine(testCfg(t, nil))
	sigs := drive(t, e, cs, nil)

	if len(sigs) != 1 {
		t.Fatalf("got %d signals, want exactly 1", len(sigs))
	}
	sig := sigs[0]
	if sig.Side != models.SideLong || sig.Symbol != testSymbol {
		t.Fatalf("unexpected signal identity: %+v", sig)
	}
	if sig.EntryPrice != 103 {
		t.Fatalf("entry = %v, want breakout close 103", sig.EntryPrice)
	}
	if sig.TriggerPrice != 100 {
		t.Fatalf("trigger = %v, want 100", sig.TriggerPrice)
	}
	if sig.PivotPrice != 94 {
		t.Fatalf("pivot = %v, want 94", sig.PivotPrice)
	}
	if want := cs[63].CloseTime; sig.ConfirmTimeMs != want {
		t.Fatalf("confirm_ms = %d, want barCloseMs-1 = %d", sig.ConfirmTimeMs, want)
	}
	if sig.Timeframe != "15m" {
		t.Fatalf("tf = %q, want 15m", sig.Timeframe)
	}
}

func TestEngineConfirmNeedsBuffer(t *testing.T) {
	// закрытие ровно на триггере не пробой: нужен close > trig + ATR*buf
	bars := divergenceBars()
	bars[63] = bar{o: 100, h: 100.05, l: 100, c: 100.05, v: 10}
	cs := toSeries(bars)

	e := NewEngine(testCfg(t, nil))
	if sigs := drive(t, e, cs, nil); len(sigs) != 0 {
		t.Fatalf("close below trigger+buffer fired %d signals", len(sigs))
	}
}

func TestEngineRawImmediacy(t *testing.T) {
	cs := toSeries(divergenceBars())

	e := NewEngine(testCfg(t, func(sc *config.StrategyConfig) {
		sc.EntryMode = "raw"
	}))
	sigs := drive(t, e, cs, nil)

	if len(sigs) != 1 {
		t.Fatalf("got %d signals, want 1", len(sigs))
	}
	// в raw входим на баре подтверждения пивота (62), без пробоя
	if want := cs[62].CloseTime; sigs[0].ConfirmTimeMs != want {
		t.Fatalf("confirm_ms = %d, want %d (bar 62)", sigs[0].ConfirmTimeMs, want)
	}
	if sigs[0].EntryPrice != 100 {
		t.Fatalf("entry = %v, want close of bar 62", sigs[0].EntryPrice)
	}
}

func TestEngineSetupExpiry(t *testing.T) {
	// сетап взведён на 62, пробой только на 67 — при max_wait=3 сетап
	// протухает на 66 и пробой уже никого не интересует
	bars := divergenceBars()
	bars[67] = bar{o: 100, h: 103.5, l: 100, c: 103, v: 10}
	cs := toSeries(bars)

	e := NewEngine(testCfg(t, func(sc *config.StrategyConfig) {
		sc.MaxWaitBars = 3
	}))
	if sigs := drive(t, e, cs, nil); len(sigs) != 0 {
		t.Fatalf("expired setup fired %d signals", len(sigs))
	}
}

// cooldownBars — вторая дивергенция (подтверждение на 67, вход на 62)
// блокируется при cooldown=10 и проходит при cooldown=5.
func TestEngineCooldown(t *testing.T) {
	bars := divergenceBars()
	bars[65] = bar{o: 100, h: 100, l: 93.5, c: 94, v: 10}

	cases := []struct {
		name     string
		cooldown int
		want     int
	}{
		{"blocks_within_window", 10, 1},
		{"allows_at_boundary", 5, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEngine(testCfg(t, func(sc *config.StrategyConfig) {
				sc.EntryMode = "raw"
				sc.CooldownBars = tc.cooldown
			}))
			sigs := drive(t, e, toSeries(bars), nil)
			if len(sigs) != tc.want {
				t.Fatalf("cooldown=%d: got %d signals, want %d", tc.cooldown, len(sigs), tc.want)
			}
		})
	}
}

func TestEngineEqualPivotPriceCountsAsDivergence(t *testing.T) {
	// цена пивота равна предыдущей, осциллятор строго выше — при
	// min_divergence_strength_pct=0 это валидная бычья дивергенция
	bars := flatBars(70)
	bars[53] = bar{o: 100, h: 100, l: 95, c: 99, v: 500}
	bars[60] = bar{o: 100, h: 100, l: 95, c: 95.5, v: 10}
	cs := toSeries(bars)

	e := NewEngine(testCfg(t, func(sc *config.StrategyConfig) {
		sc.EntryMode = "raw"
	}))
	if sigs := drive(t, e, cs, nil); len(sigs) != 1 {
		t.Fatalf("equal-price divergence: got %d signals, want 1", len(sigs))
	}
}

func TestEngineDeltaGateDynamic(t *testing.T) {
	cs := toSeries(divergenceBars())

	mut := func(sc *config.StrategyConfig) {
		sc.EntryMode = "raw"
		sc.UseVolumeDeltaGate = true
		sc.UseDynamicPercentile = true
	}

	t.Run("blocks_on_weak_delta", func(t *testing.T) {
		e := NewEngine(testCfg(t, mut))
		// история из сильных положительных дельт, на баре дивергенции
		// дельта отрицательная — порог не взят
		sigs := drive(t, e, cs, func(i int) []models.Candle {
			return monoMinutes(60, i != 62, 100)
		})
		if len(sigs) != 0 {
			t.Fatalf("failed gate fired %d signals", len(sigs))
		}
	})

	t.Run("passes_on_equal_threshold", func(t *testing.T) {
		e := NewEngine(testCfg(t, mut))
		// дельта стабильна: перцентиль равен самому значению, gate
		// проходит по >=
		sigs := drive(t, e, cs, func(int) []models.Candle {
			return monoMinutes(60, true, 100)
		})
		if len(sigs) != 1 {
			t.Fatalf("got %d signals, want 1", len(sigs))
		}
		sig := sigs[0]
		if !sig.DeltaGateOK {
			t.Fatalf("delta gate must pass")
		}
		if sig.DeltaValue != 6000 || sig.DeltaThreshold != 6000 {
			t.Fatalf("delta=%v thr=%v, want 6000/6000", sig.DeltaValue, sig.DeltaThreshold)
		}
	})
}

func TestEngineDeterminism(t *testing.T) {
	bars := divergenceBars()
	bars[63] = bar{o: 100, h: 103.5, l: 100, c: 103, v: 10}
	cs := toSeries(bars)

	a := drive(t, NewEngine(testCfg(t, nil)), cs, nil)
	b := drive(t, NewEngine(testCfg(t, nil)), cs, nil)

	if len(a) != len(b) {
		t.Fatalf("runs diverge: %d vs %d signals", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("signal %d differs:\n%+v\n%+v", i, a[i], b[i])
		}
	}
}

func TestEngineMalformedSeries(t *testing.T) {
	e := NewEngine(testCfg(t, nil))

	cs := toSeries(flatBars(60))
	cs[30].CloseTime = cs[29].CloseTime // сломанная монотонность

	if _, _, err := e.OnBarClose(testSymbol, cs, nil, cs[59].CloseTime+1); err == nil {
		t.Fatalf("non-monotonic series must error")
	}
}

func TestEngineEmptyMinutesWithGateOn(t *testing.T) {
	e := NewEngine(testCfg(t, func(sc *config.StrategyConfig) {
		sc.UseVolumeDeltaGate = true
	}))
	cs := toSeries(flatBars(60))

	if _, _, err := e.OnBarClose(testSymbol, cs, nil, cs[59].CloseTime+1); err == nil {
		t.Fatalf("empty m1 window with gate on must error")
	}
}
