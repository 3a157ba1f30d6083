// Package indicators computes technical indicators over daily bars.
package indicators

import (
	"errors"
	"math"
)

var ErrInsufficientData = errors.New("insufficient data")

// SMA is the mean of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 || len(values) < period {
		return 0, ErrInsufficientData
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), nil
}

// EMASeries seeds with the first value and smooths with alpha = 2/(period+1),
// so every position carries a value.
func EMASeries(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

func EMA(values []float64, period int) (float64, error) {
	if period <= 0 || len(values) < period {
		return 0, ErrInsufficientData
	}
	series := EMASeries(values, period)
	return series[len(series)-1], nil
}

// RSI uses simple averages of gains and losses over the last period changes.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 || len(closes) < period+1 {
		return 0, ErrInsufficientData
	}
	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		if gain == 0 {
			return 50, nil
		}
		return 100, nil
	}
	rs := gain / loss
	return 100 - 100/(1+rs), nil
}

type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

func MACD(closes []float64, fast, slow, signal int) (MACDResult, error) {
	if len(closes) < slow {
		return MACDResult{}, ErrInsufficientData
	}
	f := EMASeries(closes, fast)
	s := EMASeries(closes, slow)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = f[i] - s[i]
	}
	sig := EMASeries(line, signal)
	last := len(line) - 1
	return MACDResult{
		MACD:      line[last],
		Signal:    sig[last],
		Histogram: line[last] - sig[last],
	}, nil
}

type BollingerResult struct {
	Lower  float64 `json:"lower"`
	Middle float64 `json:"middle"`
	Upper  float64 `json:"upper"`
	PctB   float64 `json:"pct_b"`
}

// Bollinger uses the sample standard deviation of the window.
func Bollinger(closes []float64, period int, width float64) (BollingerResult, error) {
	if period < 2 || len(closes) < period {
		return BollingerResult{}, ErrInsufficientData
	}
	mid, _ := SMA(closes, period)
	var ss float64
	for _, v := range closes[len(closes)-period:] {
		ss += (v - mid) * (v - mid)
	}
	sd := math.Sqrt(ss / float64(period-1))

	r := BollingerResult{Lower: mid - width*sd, Middle: mid, Upper: mid + width*sd, PctB: 0.5}
	if r.Upper != r.Lower {
		r.PctB = (closes[len(closes)-1] - r.Lower) / (r.Upper - r.Lower)
	}
	return r, nil
}

// ATR averages the true range of the last period bars.
func ATR(high, low, closes []float64, period int) (float64, error) {
	n := len(closes)
	if period <= 0 || n < period+1 || len(high) != n || len(low) != n {
		return 0, ErrInsufficientData
	}
	var sum float64
	for i := n - period; i < n; i++ {
		sum += trueRange(high[i], low[i], closes[i-1])
	}
	return sum / float64(period), nil
}

func trueRange(high, low, prevClose float64) float64 {
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}

// VWAP is cumulative typical price weighted by volume over the whole series.
func VWAP(high, low, closes, volume []float64) (float64, error) {
	n := len(closes)
	if n == 0 || len(high) != n || len(low) != n || len(volume) != n {
		return 0, ErrInsufficientData
	}
	var pv, vol float64
	for i := 0; i < n; i++ {
		tp := (high[i] + low[i] + closes[i]) / 3
		pv += tp * volume[i]
		vol += volume[i]
	}
	if vol == 0 {
		return 0, ErrInsufficientData
	}
	return pv / vol, nil
}

// PctChange is the percent move from n bars back to the last bar.
func PctChange(closes []float64, n int) (float64, error) {
	if n <= 0 || len(closes) < n+1 {
		return 0, ErrInsufficientData
	}
	prev := closes[len(closes)-1-n]
	if prev == 0 {
		return 0, ErrInsufficientData
	}
	return (closes[len(closes)-1] - prev) / prev * 100, nil
}

// Round2 rounds to cents for display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
