package alpaca

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/camuig/autotrader/internal/broker"
)

type orderRequest struct {
	Symbol        string      `json:"symbol"`
	Qty           string      `json:"qty"`
	Side          string      `json:"side"`
	Type          string      `json:"type"`
	TimeInForce   string      `json:"time_in_force"`
	LimitPrice    string      `json:"limit_price,omitempty"`
	ClientOrderID string      `json:"client_order_id"`
	OrderClass    string      `json:"order_class,omitempty"`
	TakeProfit    *priceLeg   `json:"take_profit,omitempty"`
	StopLoss      *stopLegDTO `json:"stop_loss,omitempty"`
}

type priceLeg struct {
	LimitPrice string `json:"limit_price"`
}

type stopLegDTO struct {
	StopPrice string `json:"stop_price"`
}

type orderDTO struct {
	ID             string           `json:"id"`
	ClientOrderID  string           `json:"client_order_id"`
	Symbol         string           `json:"symbol"`
	Side           string           `json:"side"`
	Type           string           `json:"type"`
	Qty            decimal.Decimal  `json:"qty"`
	LimitPrice     *decimal.Decimal `json:"limit_price"`
	FilledQty      decimal.Decimal  `json:"filled_qty"`
	FilledAvgPrice *decimal.Decimal `json:"filled_avg_price"`
	Status         string           `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	Legs           []orderDTO       `json:"legs"`
}

func (c *Connector) PlaceMarketOrder(ctx context.Context, symbol string, qty float64, side broker.Side) (*broker.Order, error) {
	return c.submit(ctx, orderRequest{
		Symbol:      symbol,
		Qty:         formatQty(qty),
		Side:        string(side),
		Type:        "market",
		TimeInForce: "day",
	})
}

func (c *Connector) PlaceLimitOrder(ctx context.Context, symbol string, qty float64, side broker.Side, limitPrice float64) (*broker.Order, error) {
	if limitPrice <= 0 {
		return nil, fmt.Errorf("limit price must be positive, got %.4f", limitPrice)
	}
	return c.submit(ctx, orderRequest{
		Symbol:      symbol,
		Qty:         formatQty(qty),
		Side:        string(side),
		Type:        "limit",
		TimeInForce: "day",
		LimitPrice:  formatPrice(limitPrice),
	})
}

func (c *Connector) submit(ctx context.Context, body orderRequest) (*broker.Order, error) {
	if q, err := decimal.NewFromString(body.Qty); err != nil || !q.IsPositive() {
		return nil, fmt.Errorf("%s: quantity must be positive", body.Symbol)
	}
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	body.ClientOrderID = newClientOrderID()
	var dto orderDTO
	if err := do(req.SetBody(body), http.MethodPost, "/v2/orders", &dto); err != nil {
		if errors.Is(err, broker.ErrConnection) {
			// the gateway may have failed after Alpaca accepted the order
			if order, lerr := c.orderByClientID(ctx, body.ClientOrderID); lerr == nil {
				c.logger.Warn("order accepted despite transport error",
					"symbol", body.Symbol, "client_order_id", body.ClientOrderID, "error", err)
				return order, nil
			}
		}
		return nil, fmt.Errorf("submit %s %s: %w", body.Side, body.Symbol, err)
	}
	order := dto.toOrder()
	return &order, nil
}

func (c *Connector) orderByClientID(ctx context.Context, clientID string) (*broker.Order, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var dto orderDTO
	req.SetQueryParam("client_order_id", clientID)
	if err := do(req, http.MethodGet, "/v2/orders:by_client_order_id", &dto); err != nil {
		return nil, fmt.Errorf("get order by client id %s: %w", clientID, err)
	}
	order := dto.toOrder()
	return &order, nil
}

func (c *Connector) GetOrder(ctx context.Context, id string) (*broker.Order, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var dto orderDTO
	if err := do(req.SetPathParam("id", id), http.MethodGet, "/v2/orders/{id}", &dto); err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	order := dto.toOrder()
	return &order, nil
}

func (c *Connector) CancelOrder(ctx context.Context, id string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	if err := do(req.SetPathParam("id", id), http.MethodDelete, "/v2/orders/{id}", nil); err != nil {
		return fmt.Errorf("cancel order %s: %w", id, err)
	}
	return nil
}

// PlaceProtection submits a one-cancels-other exit: a take-profit limit and a
// stop-loss stop for the same quantity.
func (c *Connector) PlaceProtection(ctx context.Context, p broker.Protection) (*broker.ProtectionOrders, error) {
	if p.StopLoss <= 0 || p.TakeProfit <= 0 {
		return nil, fmt.Errorf("%s: oco exit needs both stop loss and take profit", p.Symbol)
	}
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	body := orderRequest{
		Symbol:        p.Symbol,
		Qty:           formatQty(p.Quantity),
		Side:          string(p.Side),
		Type:          "limit",
		TimeInForce:   "gtc",
		ClientOrderID: newClientOrderID(),
		OrderClass:    "oco",
		TakeProfit:    &priceLeg{LimitPrice: formatPrice(p.TakeProfit)},
		StopLoss:      &stopLegDTO{StopPrice: formatPrice(p.StopLoss)},
	}

	var dto orderDTO
	if err := do(req.SetBody(body), http.MethodPost, "/v2/orders", &dto); err != nil {
		return nil, fmt.Errorf("submit oco %s: %w", p.Symbol, err)
	}

	out := &broker.ProtectionOrders{TakeProfitID: dto.ID}
	for _, leg := range dto.Legs {
		if leg.Type == "stop" || leg.Type == "stop_limit" {
			out.StopLossID = leg.ID
		}
	}
	return out, nil
}

func (d orderDTO) toOrder() broker.Order {
	o := broker.Order{
		ID:        d.ID,
		ClientID:  d.ClientOrderID,
		Symbol:    d.Symbol,
		Side:      broker.Side(d.Side),
		Type:      broker.OrderType(d.Type),
		Quantity:  d.Qty.InexactFloat64(),
		FilledQty: d.FilledQty.InexactFloat64(),
		Status:    mapStatus(d.Status),
		CreatedAt: d.CreatedAt,
	}
	if d.LimitPrice != nil {
		o.LimitPrice = d.LimitPrice.InexactFloat64()
	}
	if d.FilledAvgPrice != nil {
		o.FilledPrice = d.FilledAvgPrice.InexactFloat64()
	}
	return o
}

func mapStatus(s string) broker.OrderStatus {
	switch s {
	case "filled":
		return broker.StatusFilled
	case "partially_filled":
		return broker.StatusPartiallyFilled
	case "rejected":
		return broker.StatusRejected
	case "canceled", "expired", "replaced", "done_for_day":
		return broker.StatusCanceled
	default:
		return broker.StatusSubmitted
	}
}

func formatQty(qty float64) string {
	return decimal.NewFromFloat(qty).Truncate(9).String()
}

func formatPrice(price float64) string {
	return decimal.NewFromFloat(price).Round(2).String()
}
