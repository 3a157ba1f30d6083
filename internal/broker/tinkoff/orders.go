package tinkoff

import (
	"context"
	"fmt"
	"math"

	"github.com/russianinvestments/invest-api-go-sdk/investgo"
	pb "github.com/russianinvestments/invest-api-go-sdk/proto"

	"github.com/camuig/autotrader/internal/broker"
)

func (c *Connector) PlaceMarketOrder(ctx context.Context, symbol string, qty float64, side broker.Side) (*broker.Order, error) {
	return c.placeOrder(symbol, qty, side, broker.OrderTypeMarket, 0)
}

func (c *Connector) PlaceLimitOrder(ctx context.Context, symbol string, qty float64, side broker.Side, limitPrice float64) (*broker.Order, error) {
	if limitPrice <= 0 {
		return nil, fmt.Errorf("limit price must be positive, got %.4f", limitPrice)
	}
	return c.placeOrder(symbol, qty, side, broker.OrderTypeLimit, limitPrice)
}

func (c *Connector) placeOrder(symbol string, qty float64, side broker.Side, orderType broker.OrderType, limitPrice float64) (*broker.Order, error) {
	client, err := c.conn()
	if err != nil {
		return nil, err
	}

	inst, err := c.bySymbol(client, symbol)
	if err != nil {
		return nil, err
	}

	lots := CalculateLots(qty, inst.Lot)
	if lots < 1 {
		return nil, fmt.Errorf("%s: %.0f shares is less than one lot of %d", symbol, qty, inst.Lot)
	}

	req := &investgo.PostOrderRequest{
		InstrumentId: inst.UID,
		Quantity:     lots,
		Direction:    direction(side),
		AccountId:    c.accountID(client),
		OrderType:    pb.OrderType_ORDER_TYPE_MARKET,
		OrderId:      investgo.CreateUid(),
	}
	if orderType == broker.OrderTypeLimit {
		req.OrderType = pb.OrderType_ORDER_TYPE_LIMIT
		req.Price = toQuotation(limitPrice)
	}

	var resp *investgo.PostOrderResponse
	if c.cfg.Sandbox {
		resp, err = client.NewSandboxServiceClient().PostSandboxOrder(req)
	} else {
		resp, err = client.NewOrdersServiceClient().PostOrder(req)
	}
	if err != nil {
		return nil, wrap(fmt.Sprintf("%s order %s", side, symbol), err)
	}

	order := &broker.Order{
		ID:         resp.GetOrderId(),
		ClientID:   req.OrderId,
		Symbol:     symbol,
		Side:       side,
		Type:       orderType,
		Quantity:   float64(lots * inst.Lot),
		LimitPrice: limitPrice,
		Status:     mapStatus(resp.GetExecutionReportStatus()),
		FilledQty:  float64(resp.GetLotsExecuted() * inst.Lot),
		CreatedAt:  c.now(),
	}
	if ep := resp.GetExecutedOrderPrice(); ep != nil {
		order.FilledPrice = ep.ToFloat()
	}

	c.orders.Store(order.ID, *order)
	return order, nil
}

// GetOrder looks the id up among active orders and falls back to the state
// recorded when this process placed it.
func (c *Connector) GetOrder(ctx context.Context, id string) (*broker.Order, error) {
	client, err := c.conn()
	if err != nil {
		return nil, err
	}

	cached, known := c.orders.Load(id)

	if !c.cfg.Sandbox {
		resp, err := client.NewOrdersServiceClient().GetOrders(c.accountID(client))
		if err != nil {
			return nil, wrap("get orders", err)
		}
		for _, st := range resp.GetOrders() {
			if st.GetOrderId() != id {
				continue
			}
			order := broker.Order{ID: id, Status: mapStatus(st.GetExecutionReportStatus())}
			if known {
				order = cached.(broker.Order)
				order.Status = mapStatus(st.GetExecutionReportStatus())
			}
			lot := int64(1)
			if inst, err := c.byUID(client, st.GetInstrumentUid()); err == nil {
				order.Symbol = inst.Ticker
				lot = inst.Lot
			}
			order.FilledQty = float64(st.GetLotsExecuted() * lot)
			if ap := st.GetAveragePositionPrice(); ap != nil {
				order.FilledPrice = ap.ToFloat()
			}
			c.orders.Store(id, order)
			return &order, nil
		}
	}

	if !known {
		return nil, broker.ErrOrderNotFound
	}
	order := cached.(broker.Order)
	return &order, nil
}

func (c *Connector) CancelOrder(ctx context.Context, id string) error {
	client, err := c.conn()
	if err != nil {
		return err
	}
	if c.cfg.Sandbox {
		return broker.ErrUnsupported
	}

	if _, err := client.NewOrdersServiceClient().CancelOrder(c.accountID(client), id); err != nil {
		return wrap("cancel order "+id, err)
	}

	if cached, ok := c.orders.Load(id); ok {
		order := cached.(broker.Order)
		order.Status = broker.StatusCanceled
		c.orders.Store(id, order)
	}
	return nil
}

// CalculateLots converts a share quantity into whole lots.
func CalculateLots(shares float64, lot int64) int64 {
	if lot < 1 {
		lot = 1
	}
	if shares <= 0 {
		return 0
	}
	return int64(math.Floor(shares / float64(lot)))
}

func direction(side broker.Side) pb.OrderDirection {
	if side == broker.SideSell {
		return pb.OrderDirection_ORDER_DIRECTION_SELL
	}
	return pb.OrderDirection_ORDER_DIRECTION_BUY
}

func mapStatus(s pb.OrderExecutionReportStatus) broker.OrderStatus {
	switch s {
	case pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_FILL:
		return broker.StatusFilled
	case pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_PARTIALLYFILL:
		return broker.StatusPartiallyFilled
	case pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_REJECTED:
		return broker.StatusRejected
	case pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_CANCELLED:
		return broker.StatusCanceled
	default:
		return broker.StatusSubmitted
	}
}

func toQuotation(value float64) *pb.Quotation {
	units := int64(value)
	nano := int32(math.Round((value - float64(units)) * 1e9))
	return &pb.Quotation{Units: units, Nano: nano}
}
