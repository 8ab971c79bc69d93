package models

// Side как в раннере: пока только лонги.
type Side string

const (
	SideNone Side = ""
	SideLong Side = "LONG"
)

// EntryMode — как входим после дивергенции.
type EntryMode string

const (
	EntryRaw     EntryMode = "raw"     // вход на баре дивергенции
	EntryConfirm EntryMode = "confirm" // ждём пробой триггера (BOS)
)

// Signal — подтверждённый сигнал на вход, один на закрытие бара.
type Signal struct {
	Symbol     string
	Side       Side
	EntryPrice float64

	// ConfirmTimeMs = закрытие бара минус 1мс: сигнал принадлежит
	// моменту до открытия следующего бара.
	ConfirmTimeMs int64

	PivotPrice   float64
	TriggerPrice float64

	DeltaGateOK    bool
	DeltaValue     float64
	DeltaThreshold float64

	Timeframe string
}
