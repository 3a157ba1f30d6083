package tinkoff

import (
	"context"
	"time"

	pb "github.com/russianinvestments/invest-api-go-sdk/proto"

	"github.com/camuig/autotrader/internal/marketdata"
)

// Bars serves daily exchange candles, so the connector doubles as a
// marketdata.Provider for MOEX symbols.
func (c *Connector) Bars(ctx context.Context, symbol string, from, to time.Time) ([]marketdata.Bar, error) {
	client, err := c.conn()
	if err != nil {
		return nil, err
	}

	inst, err := c.bySymbol(client, symbol)
	if err != nil {
		return nil, err
	}

	resp, err := client.NewMarketDataServiceClient().GetCandles(
		inst.UID,
		pb.CandleInterval_CANDLE_INTERVAL_DAY,
		from, to,
		pb.GetCandlesRequest_CANDLE_SOURCE_EXCHANGE,
		0,
	)
	if err != nil {
		return nil, wrap("get candles "+symbol, err)
	}

	candles := resp.GetCandles()
	if len(candles) == 0 {
		return nil, marketdata.ErrNoData
	}

	bars := make([]marketdata.Bar, 0, len(candles))
	for _, cd := range candles {
		bars = append(bars, marketdata.Bar{
			Time:   cd.GetTime().AsTime(),
			Open:   cd.GetOpen().ToFloat(),
			High:   cd.GetHigh().ToFloat(),
			Low:    cd.GetLow().ToFloat(),
			Close:  cd.GetClose().ToFloat(),
			Volume: float64(cd.GetVolume()),
		})
	}
	return bars, nil
}
