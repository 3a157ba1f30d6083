package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var thinkTagRegex = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinkTags removes reasoning-model <think> blocks from the response.
func StripThinkTags(text string) string {
	return strings.TrimSpace(thinkTagRegex.ReplaceAllString(text, ""))
}

type parseError struct {
	text string
}

func (e *parseError) Error() string {
	return fmt.Sprintf("unparseable model response: %.200s", e.text)
}

// ParseResponse parses the model output into a Response.
// Handles: the response object, a bare array of trades, markdown code fences
// and JSON embedded in prose.
func ParseResponse(text string) (*Response, error) {
	cleaned := StripThinkTags(text)

	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return nil, &parseError{text: text}
	}

	if resp, ok := decode(cleaned); ok {
		return resp, nil
	}

	// Try extracting the outermost object, then the outermost array
	if i, j := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); i >= 0 && j > i {
		if resp, ok := decode(cleaned[i : j+1]); ok {
			return resp, nil
		}
	}
	if i, j := strings.Index(cleaned, "["), strings.LastIndex(cleaned, "]"); i >= 0 && j > i {
		if resp, ok := decode(cleaned[i : j+1]); ok {
			return resp, nil
		}
	}

	return nil, &parseError{text: cleaned}
}

func decode(s string) (*Response, bool) {
	if strings.HasPrefix(s, "[") {
		var trades []Recommendation
		if err := json.Unmarshal([]byte(s), &trades); err != nil {
			return nil, false
		}
		resp := &Response{Trades: trades}
		normalize(resp)
		return resp, true
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &keys); err != nil {
		return nil, false
	}

	var resp Response
	_, hasTrades := keys["trades"]
	_, hasSummary := keys["analysis_summary"]
	switch {
	case hasTrades || hasSummary:
		if err := json.Unmarshal([]byte(s), &resp); err != nil {
			return nil, false
		}
	case keys["action"] != nil && keys["symbol"] != nil:
		var single Recommendation
		if err := json.Unmarshal([]byte(s), &single); err != nil {
			return nil, false
		}
		resp.Trades = []Recommendation{single}
	default:
		return nil, false
	}

	normalize(&resp)
	return &resp, true
}

// normalize upper-cases symbols and actions and rescales percent confidences.
// Trades with an unknown action, no symbol or a confidence outside [0,1] are dropped.
func normalize(resp *Response) {
	kept := resp.Trades[:0]
	for _, t := range resp.Trades {
		t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
		t.Action = Action(strings.ToUpper(strings.TrimSpace(string(t.Action))))
		t.OrderType = strings.ToLower(strings.TrimSpace(t.OrderType))
		if t.Symbol == "" {
			continue
		}
		switch t.Action {
		case ActionBuy, ActionSell, ActionHold:
		default:
			continue
		}
		if t.Confidence > 1 && t.Confidence <= 100 {
			t.Confidence /= 100
		}
		if t.Confidence < 0 || t.Confidence > 1 {
			continue
		}
		if t.OrderType != "limit" || t.LimitPrice <= 0 {
			t.OrderType = "market"
		}
		kept = append(kept, t)
	}
	resp.Trades = kept
}
