package ai

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
)

var strategyPrompts = map[string]string{
	"momentum": `You are an aggressive momentum trader who enters trends early and rides them.

Trade in the direction of the prevailing trend. Favour breakouts above resistance that come with
strong volume, and exit quickly once momentum fades (MACD rolling over, volume drying up).

Signals you act on:
- RSI above 50 and rising
- MACD bullish crossover
- Price above VWAP with above-average volume
- Price breaking above the 20-day SMA

Avoid stocks in downtrends and low-volume breakouts. Size up when momentum is strong. Take profits at 8-10%.`,

	"mean_reversion": `You are a patient mean reversion trader who buys fear and sells greed.

Prices revert to their moving averages. Buy oversold stocks sitting on support and sell overbought
stocks pressing into resistance. Wait for extreme readings.

Signals you act on:
- RSI below 30
- Price at or below the lower Bollinger Band
- Capitulation volume after a sharp drop

Avoid falling knives without support and do not fight strong trends. Target a return to the 20-day SMA.`,

	"contrarian": `You are a contrarian trader who profits from crowd psychology extremes.

Be fearful when others are greedy and greedy when others are fearful. Fade overreactions and look at
names the crowd has abandoned while the technical damage is already priced in.

Signals you act on:
- Sharp declines on news that does not change the business
- Volume exhaustion after panic selling
- RSI divergence at market tops

Avoid buying what everyone already owns and never catch a falling knife without confirmation.`,

	"balanced": `You are an expert stock trader combining several strategies for consistent returns.

Principles: preserve capital first, consider the risk/reward of every trade (at least 2:1), base every
decision on the indicators provided and follow the rules below consistently.

Approach:
1. Review the portfolio and cash position.
2. Read the indicators of each symbol (RSI, MACD, moving averages, Bollinger Bands, VWAP, ATR).
3. Look for a confluence of bullish or bearish signals.
4. Consider the overall market tone before individual names.

No trade is better than a bad trade.`,
}

// Strategies lists the accepted strategy names.
func Strategies() []string {
	names := make([]string, 0, len(strategyPrompts))
	for name := range strategyPrompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	schemaOnce sync.Once
	schemaText string
)

// ResponseSchema is the JSON schema of Response, embedded in the system prompt.
func ResponseSchema() string {
	schemaOnce.Do(func() {
		r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
		data, err := json.MarshalIndent(r.Reflect(&Response{}), "", "  ")
		if err != nil {
			return
		}
		schemaText = string(data)
	})
	return schemaText
}

// SystemPrompt returns the prompt for strategy, falling back to balanced.
func SystemPrompt(strategy string) string {
	base, ok := strategyPrompts[strategy]
	if !ok {
		base = strategyPrompts["balanced"]
	}

	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("\n\nOUTPUT FORMAT:\n")
	sb.WriteString("Respond with a single JSON object and nothing else. It must validate against this schema:\n")
	sb.WriteString(ResponseSchema())
	sb.WriteString("\nconfidence is a number between 0 and 1. If no trade is worth making return an empty trades array.")
	return sb.String()
}

// BuildUserPrompt renders the account, positions and per-symbol indicators.
func BuildUserPrompt(mc *MarketContext) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "CURRENT DATE/TIME: %s\n\n", mc.Now.Format("2006-01-02 15:04 MST"))

	acct := mc.Account
	sb.WriteString("## Portfolio\n")
	fmt.Fprintf(&sb, "Cash: %.2f / Buying power: %.2f / Portfolio value: %.2f\n\n",
		acct.Cash, acct.BuyingPower, acct.PortfolioValue)

	if len(mc.Positions) > 0 {
		sb.WriteString("### Open positions\n")
		for _, p := range mc.Positions {
			fmt.Fprintf(&sb, "- %s: %g shares @ %.2f (current %.2f, P&L %+.2f / %+.2f%%)\n",
				p.Symbol, p.Quantity, p.AvgEntryPrice, p.CurrentPrice, p.UnrealizedPL, p.UnrealizedPLPct*100)
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No open positions (100% cash).\n\n")
	}

	symbols := make([]string, 0, len(mc.Snapshots))
	for s := range mc.Snapshots {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	sb.WriteString("## Watchlist analysis\n")
	sb.WriteString("| Symbol | Price | RSI | MACD | EMA trend | BB | Vol ratio | 1d% | 5d% | 20d% | VWAP dev% | ATR% | Signals | Overall |\n")
	sb.WriteString("|---|---|---|---|---|---|---|---|---|---|---|---|---|---|\n")
	for _, s := range symbols {
		snap := mc.Snapshots[s]
		fmt.Fprintf(&sb, "| %s | %.2f | %s | %s | %s | %s | %s | %s | %s | %s | %s | %s | +%d/-%d | %s |\n",
			s, snap.Price, opt(snap.RSI), orDash(snap.MACDTrend), orDash(snap.EMATrend), orDash(snap.BBSignal),
			opt(snap.VolumeRatio), opt(snap.Change1D), opt(snap.Change5D), opt(snap.Change20D),
			opt(snap.VWAPDeviation), opt(snap.ATRPct),
			len(snap.BullishSignals), len(snap.BearishSignals), snap.Overall)
	}
	sb.WriteString("\n")

	hasNews := false
	for _, s := range symbols {
		news := mc.Headlines[s]
		if len(news) == 0 {
			continue
		}
		if !hasNews {
			sb.WriteString("## Headlines (24h)\n")
			hasNews = true
		}
		fmt.Fprintf(&sb, "### %s\n", s)
		for _, n := range news {
			fmt.Fprintf(&sb, "- %s\n", n)
		}
	}
	if hasNews {
		sb.WriteString("\n")
	}

	maxValue := acct.PortfolioValue * mc.MaxPositionPct / 100
	sb.WriteString("## Rules\n")
	fmt.Fprintf(&sb, "1. Maximum position size is %.1f%% of the portfolio (%.2f).\n", mc.MaxPositionPct, maxValue)
	fmt.Fprintf(&sb, "2. Only recommend trades with confidence of at least %.2f.\n", mc.MinConfidence)
	fmt.Fprintf(&sb, "3. Set stop_loss_price about %.1f%% below entry and take_profit_price about %.1f%% above entry.\n",
		mc.DefaultStopLossPct, mc.DefaultTakeProfitPct)
	fmt.Fprintf(&sb, "4. At most %d more trades are allowed today.\n", mc.TradesLeftToday)
	sb.WriteString("5. SELL only symbols listed under open positions.\n")
	sb.WriteString("\nAnalyse the data and answer with the JSON object.")

	return sb.String()
}

func opt(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
