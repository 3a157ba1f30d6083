package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
)

// Yahoo reads the public chart endpoint. The library has no context support,
// so a cancelled ctx only stops iteration between bars.
type Yahoo struct{}

func NewYahoo() *Yahoo {
	return &Yahoo{}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

func (y *Yahoo) Bars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&from),
		End:      datetime.New(&to),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)

	var bars []Bar
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b := iter.Bar()
		closePrice, _ := b.Close.Float64()
		if closePrice == 0 {
			continue
		}
		open, _ := b.Open.Float64()
		high, _ := b.High.Float64()
		low, _ := b.Low.Float64()
		bars = append(bars, Bar{
			Time:   time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: float64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return sortBars(bars), nil
}
