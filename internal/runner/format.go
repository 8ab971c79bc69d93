package runner

import (
	"fmt"

	"parity_bot/internal/models"
)

func formatEntry(sig models.Signal, sl, tp float64, riskOK bool) string {
	msg := fmt.Sprintf(
		"ENTRY\n%s %s tf=%s\nEntry: %.5f\nPivot: %.5f\nTrig:  %.5f",
		sig.Symbol, sig.Side, sig.Timeframe, sig.EntryPrice, sig.PivotPrice, sig.TriggerPrice,
	)
	if riskOK {
		msg += fmt.Sprintf("\nSL:    %.5f\nTP:    %.5f", sl, tp)
	}
	gate := "fail"
	if sig.DeltaGateOK {
		gate = "ok"
	}
	msg += fmt.Sprintf("\nDelta: %.2f (thr %.2f, gate %s)", sig.DeltaValue, sig.DeltaThreshold, gate)
	return msg
}
