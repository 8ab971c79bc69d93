package service

import (
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"parity_bot/internal/models"
)

// ParseKlines разбирает ответ /klines: массив строк вида
// [openTime, "o", "h", "l", "c", "vol", closeTime, ...].
// Времена приходят числами, цены и объёмы — строками.
func ParseKlines(raw []byte) ([]models.Candle, error) {
	var rows [][]interface{}
	if err := sonic.Unmarshal(raw, &rows); err != nil {
		return nil, errors.Wrap(err, "decode klines")
	}

	out := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			return nil, errors.Errorf("kline row too short: %d fields", len(row))
		}
		openTime, err := asInt64(row[0])
		if err != nil {
			return nil, errors.Wrap(err, "kline open time")
		}
		closeTime, err := asInt64(row[6])
		if err != nil {
			return nil, errors.Wrap(err, "kline close time")
		}

		var c models.Candle
		c.OpenTime = openTime
		c.CloseTime = closeTime
		for k, dst := range []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume} {
			v, err := asFloat(row[k+1])
			if err != nil {
				return nil, errors.Wrapf(err, "kline field %d", k+1)
			}
			*dst = v
		}
		out = append(out, c)
	}
	return out, nil
}

func asInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case int64:
		return t, nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	}
	return 0, errors.Errorf("unexpected type %T", v)
}

func asFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(t, 64)
	}
	return 0, errors.Errorf("unexpected type %T", v)
}
