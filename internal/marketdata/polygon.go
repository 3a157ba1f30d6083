package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
)

type Polygon struct {
	client *polygon.Client
}

func NewPolygon(apiKey string) (*Polygon, error) {
	if apiKey == "" {
		return nil, errors.New("polygon api key is required")
	}
	return &Polygon{client: polygon.New(apiKey)}, nil
}

func (p *Polygon) Name() string {
	return "polygon"
}

func (p *Polygon) Bars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithLimit(5000)

	iter := p.client.ListAggs(ctx, params)

	var bars []Bar
	for iter.Next() {
		agg := iter.Item()
		bars = append(bars, Bar{
			Time:   time.Time(agg.Timestamp),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("polygon aggregates %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return sortBars(bars), nil
}
