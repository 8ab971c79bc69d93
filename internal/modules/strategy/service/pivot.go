package service

// confirmedPivotLow ищет подтверждённый pivot-low на баре i-right.
// Кандидат обязан быть СТРОГИМ единственным минимумом в симметричном окне
// из left+right+1 баров — два бара с одинаковым минимумом пивот ломают.
// Детекция всегда отстаёт на right баров, поэтому пивот не перерисовывается.
func confirmedPivotLow(lows []float64, i, left, right int) (int, bool) {
	if i < left+right {
		return 0, false
	}
	piv := i - right
	w0 := piv - left
	w1 := piv + right
	if w0 < 0 || w1 >= len(lows) {
		return 0, false
	}

	mn := lows[w0]
	cnt := 0
	for _, v := range lows[w0 : w1+1] {
		if v < mn {
			mn = v
		}
	}
	for _, v := range lows[w0 : w1+1] {
		if v == mn {
			cnt++
		}
	}
	if lows[piv] != mn || cnt != 1 {
		return 0, false
	}
	return piv, true
}
