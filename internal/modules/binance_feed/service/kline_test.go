package service

import "testing"

func TestParseKlines(t *testing.T) {
	raw := []byte(`[
		[1700000000000,"100.5","101.0","99.5","100.8","123.45",1700000899999,"0",10,"0","0","0"],
		[1700000900000,"100.8","102.0","100.1","101.2","67.89",1700001799999,"0",11,"0","0","0"]
	]`)

	cs, err := ParseKlines(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cs) != 2 {
		t.Fatalf("got %d candles, want 2", len(cs))
	}
	c := cs[0]
	if c.OpenTime != 1700000000000 || c.CloseTime != 1700000899999 {
		t.Fatalf("times = %d/%d", c.OpenTime, c.CloseTime)
	}
	if c.Open != 100.5 || c.High != 101.0 || c.Low != 99.5 || c.Close != 100.8 || c.Volume != 123.45 {
		t.Fatalf("unexpected OHLCV: %+v", c)
	}
}

func TestParseKlinesShortRow(t *testing.T) {
	raw := []byte(`[[1700000000000,"100.5","101.0"]]`)
	if _, err := ParseKlines(raw); err == nil {
		t.Fatalf("short row must error")
	}
}

func TestParseKlinesBadPrice(t *testing.T) {
	raw := []byte(`[[1700000000000,"abc","101.0","99.5","100.8","1.0",1700000899999]]`)
	if _, err := ParseKlines(raw); err == nil {
		t.Fatalf("garbage price must error")
	}
}
