// Package marketdata fetches daily bars for the watchlist through an ordered
// provider chain and turns them into indicator snapshots.
package marketdata

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/camuig/autotrader/internal/indicators"
)

// ErrNoData is returned by providers that answered but had no bars.
var ErrNoData = errors.New("no bars returned")

type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Provider returns daily bars, oldest first.
type Provider interface {
	Name() string
	Bars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error)
}

// HeadlineSource optionally supplies recent news titles per symbol.
type HeadlineSource interface {
	Headlines(ctx context.Context, symbols []string) (map[string][]string, error)
}

// Source gathers indicator snapshots for the watchlist in one pass.
type Source interface {
	Gather(ctx context.Context, symbols []string) *Result
}

// Result holds what was gathered. A symbol appears in Snapshots or Errors,
// never both.
type Result struct {
	Snapshots map[string]indicators.Snapshot `json:"snapshots"`
	Errors    map[string]string              `json:"errors,omitempty"`
	Headlines map[string][]string            `json:"headlines,omitempty"`
}

// Symbols lists the symbols with usable data, sorted.
func (r *Result) Symbols() []string {
	out := make([]string, 0, len(r.Snapshots))
	for s := range r.Snapshots {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func sortBars(bars []Bar) []Bar {
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars
}

func toSeries(bars []Bar) indicators.Series {
	s := indicators.Series{
		Open:   make([]float64, len(bars)),
		High:   make([]float64, len(bars)),
		Low:    make([]float64, len(bars)),
		Close:  make([]float64, len(bars)),
		Volume: make([]float64, len(bars)),
	}
	for i, b := range bars {
		s.Open[i], s.High[i], s.Low[i], s.Close[i], s.Volume[i] = b.Open, b.High, b.Low, b.Close, b.Volume
	}
	return s
}
