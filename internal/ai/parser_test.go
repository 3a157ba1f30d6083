package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseObject(t *testing.T) {
	resp, err := ParseResponse(`{"analysis_summary":"risk-on","trades":[
		{"action":"BUY","symbol":"NVDA","quantity":3,"order_type":"limit","limit_price":120.5,"confidence":0.8},
		{"action":"hold","symbol":"spy","confidence":0.9}
	],"risk_assessment":"MEDIUM"}`)
	require.NoError(t, err)
	assert.Equal(t, "risk-on", resp.AnalysisSummary)
	assert.Equal(t, "MEDIUM", resp.RiskAssessment)
	require.Len(t, resp.Trades, 2)
	assert.Equal(t, "limit", resp.Trades[0].OrderType)
	assert.Equal(t, ActionHold, resp.Trades[1].Action)
	assert.Equal(t, "SPY", resp.Trades[1].Symbol)
	assert.Equal(t, "market", resp.Trades[1].OrderType)
}

func TestParseResponseTolerantForms(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		trades int
	}{
		{"code fence", "```json\n{\"analysis_summary\":\"x\",\"trades\":[]}\n```", 0},
		{"think tags", "<think>hmm, maybe AAPL {}</think>\n{\"trades\":[{\"action\":\"SELL\",\"symbol\":\"AAPL\",\"confidence\":0.9}]}", 1},
		{"bare array", `[{"action":"BUY","symbol":"AMD","confidence":0.75}]`, 1},
		{"single trade", `{"action":"BUY","symbol":"AMD","confidence":0.75}`, 1},
		{"prose around object", "Here you go:\n{\"analysis_summary\":\"ok\",\"trades\":[]}\nGood luck.", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse(tt.input)
			require.NoError(t, err)
			assert.Len(t, resp.Trades, tt.trades)
		})
	}
}

func TestParseResponseNormalizes(t *testing.T) {
	resp, err := ParseResponse(`{"trades":[
		{"action":"buy","symbol":" msft ","confidence":85},
		{"action":"SHORT","symbol":"TSLA","confidence":0.9},
		{"action":"BUY","symbol":"","confidence":0.9},
		{"action":"SELL","symbol":"QQQ","order_type":"limit","confidence":0.7},
		{"action":"BUY","symbol":"NVDA","confidence":150},
		{"action":"BUY","symbol":"AMD","confidence":-0.2}
	]}`)
	require.NoError(t, err)
	require.Len(t, resp.Trades, 2, "out of range confidences are dropped")

	assert.Equal(t, "MSFT", resp.Trades[0].Symbol)
	assert.InDelta(t, 0.85, resp.Trades[0].Confidence, 1e-9)
	assert.Equal(t, "market", resp.Trades[1].OrderType, "limit without a price falls back to market")
}

func TestParseResponseRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "no json here", "{}", `{"foo":1}`, "<think>only thinking</think>"} {
		_, err := ParseResponse(input)
		require.Error(t, err, input)
		assert.Equal(t, ClassMalformed, Classify(err), input)
	}
}

func TestActionableFiltersHoldAndLowConfidence(t *testing.T) {
	resp := &Response{Trades: []Recommendation{
		{Symbol: "A", Action: ActionBuy, Confidence: 0.85},
		{Symbol: "B", Action: ActionHold, Confidence: 0.99},
		{Symbol: "C", Action: ActionSell, Confidence: 0.69},
		{Symbol: "D", Action: ActionSell, Confidence: 0.70},
	}}
	got := resp.Actionable(0.70)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Symbol)
	assert.Equal(t, "D", got[1].Symbol)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"service unavailable", &openai.APIError{HTTPStatusCode: 503, Message: "UNAVAILABLE"}, ClassTransient},
		{"overloaded", &openai.APIError{HTTPStatusCode: 529, Message: "Overloaded"}, ClassTransient},
		{"rate limit", &openai.APIError{HTTPStatusCode: 429, Message: "Rate limit reached"}, ClassTransient},
		{"daily quota", &openai.APIError{HTTPStatusCode: 429, Message: "You exceeded your current quota, please check your plan and billing details"}, ClassQuota},
		{"resource exhausted quota", errors.New("RESOURCE_EXHAUSTED: Quota exceeded for metric generate_content_requests_per_day"), ClassQuota},
		{"resource exhausted burst", errors.New("RESOURCE_EXHAUSTED: try again later"), ClassTransient},
		{"unauthorized", &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}, ClassAuth},
		{"forbidden request", &openai.RequestError{HTTPStatusCode: 403, Err: errors.New("denied")}, ClassAuth},
		{"bad request", &openai.APIError{HTTPStatusCode: 400, Message: "invalid model"}, ClassPermanent},
		{"deadline", fmt.Errorf("chat completion: %w", context.DeadlineExceeded), ClassTransient},
		{"canceled", context.Canceled, ClassPermanent},
		{"wrapped unavailable", fmt.Errorf("chat completion: %w", errors.New("upstream UNAVAILABLE")), ClassTransient},
		{"malformed", &parseError{text: "?"}, ClassMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
	assert.Equal(t, Class(""), Classify(nil))
}
