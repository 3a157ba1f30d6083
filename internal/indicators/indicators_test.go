package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rising(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSMA(t *testing.T) {
	v, err := SMA([]float64{102, 105, 106, 108, 110, 111, 113, 114, 116, 118}, 5)
	require.NoError(t, err)
	// 111+113+114+116+118 = 572
	assert.InDelta(t, 114.4, v, 1e-9)

	_, err = SMA([]float64{1, 2}, 5)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestEMASeriesConvergesOnFlatInput(t *testing.T) {
	series := EMASeries(flat(30, 42), 12)
	require.Len(t, series, 30)
	for _, v := range series {
		assert.InDelta(t, 42, v, 1e-9)
	}
}

func TestEMAWeightsRecentValues(t *testing.T) {
	values := append(flat(20, 10), 20)
	ema, err := EMA(values, 3)
	require.NoError(t, err)
	// alpha = 0.5, one step from 10 toward 20
	assert.InDelta(t, 15, ema, 1e-9)
}

func TestRSI(t *testing.T) {
	up, err := RSI(rising(20, 100, 1), 14)
	require.NoError(t, err)
	assert.InDelta(t, 100, up, 1e-9)

	down, err := RSI(rising(20, 100, -1), 14)
	require.NoError(t, err)
	assert.InDelta(t, 0, down, 1e-9)

	still, err := RSI(flat(20, 100), 14)
	require.NoError(t, err)
	assert.InDelta(t, 50, still, 1e-9)

	// alternating +2 / -1 gives gains 14 and losses 7 over 14 changes
	closes := []float64{100}
	for i := 0; i < 14; i++ {
		if i%2 == 0 {
			closes = append(closes, closes[len(closes)-1]+2)
		} else {
			closes = append(closes, closes[len(closes)-1]-1)
		}
	}
	mixed, err := RSI(closes, 14)
	require.NoError(t, err)
	assert.InDelta(t, 100-100/(1+2.0), mixed, 1e-9)

	_, err = RSI(rising(10, 1, 1), 14)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestMACDSignOnTrend(t *testing.T) {
	up, err := MACD(rising(60, 100, 1), 12, 26, 9)
	require.NoError(t, err)
	assert.Greater(t, up.MACD, 0.0)

	down, err := MACD(rising(60, 200, -1), 12, 26, 9)
	require.NoError(t, err)
	assert.Less(t, down.MACD, 0.0)

	_, err = MACD(rising(20, 1, 1), 12, 26, 9)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestBollinger(t *testing.T) {
	b, err := Bollinger(flat(20, 50), 20, 2)
	require.NoError(t, err)
	assert.InDelta(t, 50, b.Middle, 1e-9)
	assert.InDelta(t, 50, b.Upper, 1e-9)
	assert.InDelta(t, 0.5, b.PctB, 1e-9)

	closes := append(flat(19, 50), 60)
	b, err = Bollinger(closes, 20, 2)
	require.NoError(t, err)
	assert.Greater(t, b.Upper, b.Middle)
	assert.Less(t, b.Lower, b.Middle)
	assert.Greater(t, b.PctB, 0.8)
}

func TestATR(t *testing.T) {
	high := []float64{10, 11, 12, 11, 12, 13}
	low := []float64{8, 9, 10, 9, 10, 11}
	closes := []float64{9, 10, 11, 10, 11, 12}

	atr, err := ATR(high, low, closes, 3)
	require.NoError(t, err)
	// true ranges of the last three bars: 2, 2, 2
	assert.InDelta(t, 2, atr, 1e-9)

	_, err = ATR(high, low, closes[:2], 3)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestTrueRangeUsesPreviousClose(t *testing.T) {
	assert.InDelta(t, 10, trueRange(110, 100, 104), 1e-9)
	assert.InDelta(t, 15, trueRange(110, 100, 95), 1e-9)
}

func TestVWAP(t *testing.T) {
	v, err := VWAP([]float64{12, 22}, []float64{8, 18}, []float64{10, 20}, []float64{100, 300})
	require.NoError(t, err)
	// typical prices 10 and 20 weighted 1:3
	assert.InDelta(t, 17.5, v, 1e-9)

	_, err = VWAP([]float64{1}, []float64{1}, []float64{1}, []float64{0})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestPctChange(t *testing.T) {
	v, err := PctChange([]float64{100, 105, 110}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 10, v, 1e-9)

	_, err = PctChange([]float64{100}, 1)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestOverall(t *testing.T) {
	assert.Equal(t, Bullish, Overall(4, 2))
	assert.Equal(t, Neutral, Overall(3, 2))
	assert.Equal(t, Bearish, Overall(0, 2))
	assert.Equal(t, Neutral, Overall(0, 0))
}

func TestComputeUptrend(t *testing.T) {
	n := 60
	closes := rising(n, 100, 1)
	s := Series{
		Open:   rising(n, 99.5, 1),
		High:   rising(n, 101, 1),
		Low:    rising(n, 99, 1),
		Close:  closes,
		Volume: flat(n, 1000),
	}

	snap, err := Compute("AAPL", s, nil)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", snap.Symbol)
	assert.InDelta(t, 159, snap.Price, 1e-9)
	require.NotNil(t, snap.RSI)
	assert.Equal(t, "OVERBOUGHT", snap.RSISignal)
	assert.Equal(t, Bullish, snap.EMATrend)
	require.NotNil(t, snap.SMA50)
	require.NotNil(t, snap.ATR)
	assert.InDelta(t, 2, *snap.ATR, 1e-9)
	require.NotNil(t, snap.Change20D)

	assert.ElementsMatch(t, []string{"MACD_BULLISH", "ABOVE_MOVING_AVERAGES", "EMA_BULLISH"}, snap.BullishSignals)
	assert.ElementsMatch(t, []string{"RSI_OVERBOUGHT", "BB_OVERBOUGHT"}, snap.BearishSignals)
	// a lead of one is not enough
	assert.Equal(t, Neutral, snap.Overall)
}

func TestComputeRespectsDisabledGroups(t *testing.T) {
	n := 30
	s := Series{Open: flat(n, 10), High: flat(n, 11), Low: flat(n, 9), Close: flat(n, 10), Volume: flat(n, 5)}

	snap, err := Compute("X", s, func(name string) bool { return name != GroupRSI && name != GroupATR })
	require.NoError(t, err)
	assert.Nil(t, snap.RSI)
	assert.Nil(t, snap.ATR)
	assert.NotNil(t, snap.SMA20)
	assert.Nil(t, snap.SMA50)
}

func TestComputeNeedsHistory(t *testing.T) {
	_, err := Compute("X", Series{Close: flat(5, 1)}, nil)
	assert.ErrorIs(t, err, ErrInsufficientData)
}
