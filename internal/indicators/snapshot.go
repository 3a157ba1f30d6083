package indicators

const (
	Bullish = "BULLISH"
	Bearish = "BEARISH"
	Neutral = "NEUTRAL"
)

// Indicator group names accepted in trading.indicators.
const (
	GroupRSI            = "rsi"
	GroupMACD           = "macd"
	GroupMovingAverages = "moving_averages"
	GroupBollinger      = "bollinger_bands"
	GroupVolume         = "volume"
	GroupPriceAction    = "price_action"
	GroupVWAP           = "vwap"
	GroupATR            = "atr"
)

// MinBars is the shortest history worth analysing.
const MinBars = 14

// Series is OHLCV history, oldest first, all slices the same length.
type Series struct {
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

func (s Series) Len() int {
	return len(s.Close)
}

// Snapshot is the per-symbol summary handed to the model. Optional values are
// nil when history was too short or the group is disabled.
type Snapshot struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`

	RSI       *float64         `json:"rsi,omitempty"`
	RSISignal string           `json:"rsi_signal,omitempty"`
	MACD      *MACDResult      `json:"macd,omitempty"`
	MACDTrend string           `json:"macd_trend,omitempty"`
	SMA20     *float64         `json:"sma_20,omitempty"`
	SMA50     *float64         `json:"sma_50,omitempty"`
	EMA12     *float64         `json:"ema_12,omitempty"`
	EMA26     *float64         `json:"ema_26,omitempty"`
	EMATrend  string           `json:"ema_trend,omitempty"`
	Bollinger *BollingerResult `json:"bollinger,omitempty"`
	BBSignal  string           `json:"bb_signal,omitempty"`

	Volume       float64  `json:"volume,omitempty"`
	AvgVolume20  *float64 `json:"avg_volume_20,omitempty"`
	VolumeRatio  *float64 `json:"volume_ratio,omitempty"`
	VolumeSignal string   `json:"volume_signal,omitempty"`

	Change1D  *float64 `json:"change_1d_pct,omitempty"`
	Change5D  *float64 `json:"change_5d_pct,omitempty"`
	Change20D *float64 `json:"change_20d_pct,omitempty"`

	VWAP          *float64 `json:"vwap,omitempty"`
	VWAPDeviation *float64 `json:"vwap_deviation_pct,omitempty"`
	ATR           *float64 `json:"atr,omitempty"`
	ATRPct        *float64 `json:"atr_pct,omitempty"`
	Volatility    string   `json:"volatility,omitempty"`

	BullishSignals []string `json:"bullish_signals"`
	BearishSignals []string `json:"bearish_signals"`
	Overall        string   `json:"overall_signal"`
}

func ptr(v float64) *float64 {
	return &v
}

// Compute builds a snapshot from history. enabled reports whether an
// indicator group should be calculated; nil enables everything.
func Compute(symbol string, s Series, enabled func(string) bool) (Snapshot, error) {
	if s.Len() < MinBars {
		return Snapshot{}, ErrInsufficientData
	}
	if enabled == nil {
		enabled = func(string) bool { return true }
	}

	closes := s.Close
	last := closes[len(closes)-1]
	snap := Snapshot{Symbol: symbol, Price: last}

	if enabled(GroupRSI) {
		if v, err := RSI(closes, 14); err == nil {
			snap.RSI = ptr(Round2(v))
			snap.RSISignal = rsiSignal(v)
		}
	}

	if enabled(GroupMACD) {
		if m, err := MACD(closes, 12, 26, 9); err == nil {
			snap.MACD = &m
			switch {
			case m.MACD > m.Signal && m.Histogram > 0:
				snap.MACDTrend = Bullish
			case m.MACD < m.Signal && m.Histogram < 0:
				snap.MACDTrend = Bearish
			default:
				snap.MACDTrend = Neutral
			}
		}
	}

	if enabled(GroupMovingAverages) {
		if v, err := SMA(closes, 20); err == nil {
			snap.SMA20 = ptr(v)
		}
		if v, err := SMA(closes, 50); err == nil {
			snap.SMA50 = ptr(v)
		}
		e12 := EMASeries(closes, 12)
		e26 := EMASeries(closes, 26)
		snap.EMA12 = ptr(e12[len(e12)-1])
		snap.EMA26 = ptr(e26[len(e26)-1])
		snap.EMATrend = Bearish
		if *snap.EMA12 > *snap.EMA26 {
			snap.EMATrend = Bullish
		}
	}

	if enabled(GroupBollinger) {
		if b, err := Bollinger(closes, 20, 2); err == nil {
			snap.Bollinger = &b
			snap.BBSignal = bbSignal(b.PctB)
		}
	}

	if enabled(GroupVolume) && len(s.Volume) == len(closes) {
		snap.Volume = s.Volume[len(s.Volume)-1]
		if avg, err := SMA(s.Volume, 20); err == nil {
			ratio := 1.0
			if avg > 0 {
				ratio = snap.Volume / avg
			}
			snap.AvgVolume20 = ptr(avg)
			snap.VolumeRatio = ptr(Round2(ratio))
			snap.VolumeSignal = volumeSignal(ratio)
		}
	}

	if enabled(GroupPriceAction) {
		if v, err := PctChange(closes, 1); err == nil {
			snap.Change1D = ptr(Round2(v))
		}
		if v, err := PctChange(closes, 5); err == nil {
			snap.Change5D = ptr(Round2(v))
		}
		if v, err := PctChange(closes, 20); err == nil {
			snap.Change20D = ptr(Round2(v))
		}
	}

	if enabled(GroupVWAP) {
		if v, err := VWAP(s.High, s.Low, closes, s.Volume); err == nil && v > 0 {
			snap.VWAP = ptr(v)
			snap.VWAPDeviation = ptr(Round2((last - v) / v * 100))
		}
	}

	if enabled(GroupATR) {
		if v, err := ATR(s.High, s.Low, closes, 14); err == nil && last > 0 {
			pct := v / last * 100
			snap.ATR = ptr(v)
			snap.ATRPct = ptr(Round2(pct))
			snap.Volatility = volatility(pct)
		}
	}

	snap.BullishSignals, snap.BearishSignals = signals(snap)
	snap.Overall = Overall(len(snap.BullishSignals), len(snap.BearishSignals))
	return snap, nil
}

func rsiSignal(v float64) string {
	switch {
	case v >= 70:
		return "OVERBOUGHT"
	case v <= 30:
		return "OVERSOLD"
	case v >= 60:
		return Bullish
	case v <= 40:
		return Bearish
	}
	return Neutral
}

func bbSignal(pctB float64) string {
	switch {
	case pctB >= 1:
		return "OVERBOUGHT"
	case pctB <= 0:
		return "OVERSOLD"
	case pctB > 0.8:
		return "UPPER_BAND"
	case pctB < 0.2:
		return "LOWER_BAND"
	}
	return Neutral
}

func volumeSignal(ratio float64) string {
	switch {
	case ratio > 2:
		return "VERY_HIGH"
	case ratio > 1.5:
		return "HIGH"
	case ratio < 0.5:
		return "LOW"
	}
	return "NORMAL"
}

func volatility(atrPct float64) string {
	switch {
	case atrPct > 5:
		return "VERY_HIGH"
	case atrPct > 3:
		return "HIGH"
	case atrPct > 1.5:
		return "MODERATE"
	}
	return "LOW"
}

func signals(s Snapshot) (bull, bear []string) {
	bull, bear = []string{}, []string{}

	switch s.RSISignal {
	case "OVERSOLD":
		bull = append(bull, "RSI_OVERSOLD")
	case "OVERBOUGHT":
		bear = append(bear, "RSI_OVERBOUGHT")
	case Bullish:
		bull = append(bull, "RSI_BULLISH")
	case Bearish:
		bear = append(bear, "RSI_BEARISH")
	}

	switch s.MACDTrend {
	case Bullish:
		bull = append(bull, "MACD_BULLISH")
	case Bearish:
		bear = append(bear, "MACD_BEARISH")
	}

	if s.SMA20 != nil && s.SMA50 != nil {
		switch {
		case s.Price > *s.SMA20 && s.Price > *s.SMA50:
			bull = append(bull, "ABOVE_MOVING_AVERAGES")
		case s.Price < *s.SMA20 && s.Price < *s.SMA50:
			bear = append(bear, "BELOW_MOVING_AVERAGES")
		}
	}
	switch s.EMATrend {
	case Bullish:
		bull = append(bull, "EMA_BULLISH")
	case Bearish:
		bear = append(bear, "EMA_BEARISH")
	}

	switch s.BBSignal {
	case "OVERSOLD", "LOWER_BAND":
		bull = append(bull, "BB_OVERSOLD")
	case "OVERBOUGHT", "UPPER_BAND":
		bear = append(bear, "BB_OVERBOUGHT")
	}

	// high volume confirms whichever side already leads
	if s.VolumeSignal == "HIGH" || s.VolumeSignal == "VERY_HIGH" {
		switch {
		case len(bull) > len(bear):
			bull = append(bull, "HIGH_VOLUME_CONFIRM")
		case len(bear) > len(bull):
			bear = append(bear, "HIGH_VOLUME_CONFIRM")
		}
	}
	return bull, bear
}

// Overall needs a lead of two signals to call a direction.
func Overall(bullish, bearish int) string {
	switch {
	case bullish > bearish+1:
		return Bullish
	case bearish > bullish+1:
		return Bearish
	}
	return Neutral
}
