// Package moex reads daily candles and site news from the Moscow Exchange ISS
// API. No credentials are needed.
package moex

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/camuig/autotrader/internal/logger"
)

const DefaultBaseURL = "https://iss.moex.com"

type Client struct {
	http   *resty.Client
	logger *logger.Logger
	now    func() time.Time
}

func NewClient(baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:   resty.New().SetBaseURL(baseURL).SetTimeout(30 * time.Second),
		logger: log.Component("moex"),
		now:    time.Now,
	}
}

func (c *Client) Name() string {
	return "moex"
}

// table is the ISS columnar block: column names plus positional rows.
type table struct {
	Columns []string        `json:"columns"`
	Data    [][]interface{} `json:"data"`
}

func (t table) index() map[string]int {
	idx := make(map[string]int, len(t.Columns))
	for i, col := range t.Columns {
		idx[col] = i
	}
	return idx
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("iss.meta", "off").
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("MOEX ISS returned status %d", resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("parse ISS response: %w", err)
	}
	return nil
}

func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
