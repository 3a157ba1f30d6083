package moex

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/camuig/autotrader/internal/marketdata"
)

const (
	board     = "TQBR"
	pageSize  = 500
	dayCandle = "24"
)

var moscow = time.FixedZone("MSK", 3*60*60)

type candlesResponse struct {
	Candles table `json:"candles"`
}

// Bars pages through daily TQBR candles for the ticker.
func (c *Client) Bars(ctx context.Context, symbol string, from, to time.Time) ([]marketdata.Bar, error) {
	path := fmt.Sprintf("/iss/engines/stock/markets/shares/boards/%s/securities/%s/candles.json", board, symbol)

	var bars []marketdata.Bar
	for start := 0; ; start += pageSize {
		var resp candlesResponse
		err := c.get(ctx, path, map[string]string{
			"from":     from.Format(time.DateOnly),
			"till":     to.Format(time.DateOnly),
			"interval": dayCandle,
			"start":    strconv.Itoa(start),
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("candles %s: %w", symbol, err)
		}

		page, err := parseCandles(resp.Candles)
		if err != nil {
			return nil, fmt.Errorf("candles %s: %w", symbol, err)
		}
		bars = append(bars, page...)

		if len(resp.Candles.Data) < pageSize {
			break
		}
	}

	if len(bars) == 0 {
		return nil, marketdata.ErrNoData
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func parseCandles(t table) ([]marketdata.Bar, error) {
	idx := t.index()
	for _, col := range []string{"open", "close", "high", "low", "volume", "begin"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("unexpected candle columns: %v", t.Columns)
		}
	}

	bars := make([]marketdata.Bar, 0, len(t.Data))
	for _, row := range t.Data {
		if len(row) != len(t.Columns) {
			continue
		}
		begin, _ := row[idx["begin"]].(string)
		at, err := time.ParseInLocation(time.DateTime, begin, moscow)
		if err != nil {
			continue
		}
		closePrice := toFloat64(row[idx["close"]])
		if closePrice == 0 {
			continue
		}
		bars = append(bars, marketdata.Bar{
			Time:   at,
			Open:   toFloat64(row[idx["open"]]),
			High:   toFloat64(row[idx["high"]]),
			Low:    toFloat64(row[idx["low"]]),
			Close:  closePrice,
			Volume: toFloat64(row[idx["volume"]]),
		})
	}
	return bars, nil
}
