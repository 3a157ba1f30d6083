package tinkoff

import (
	"context"
	"fmt"

	"github.com/russianinvestments/invest-api-go-sdk/investgo"
	pb "github.com/russianinvestments/invest-api-go-sdk/proto"

	"github.com/camuig/autotrader/internal/broker"
)

// PlaceProtection posts good-till-cancel stop orders. The sandbox has no stop
// order service.
func (c *Connector) PlaceProtection(ctx context.Context, p broker.Protection) (*broker.ProtectionOrders, error) {
	client, err := c.conn()
	if err != nil {
		return nil, err
	}
	if c.cfg.Sandbox {
		return nil, broker.ErrUnsupported
	}

	inst, err := c.bySymbol(client, p.Symbol)
	if err != nil {
		return nil, err
	}
	lots := CalculateLots(p.Quantity, inst.Lot)
	if lots < 1 {
		return nil, fmt.Errorf("%s: protection quantity below one lot", p.Symbol)
	}

	out := &broker.ProtectionOrders{}
	if p.StopLoss > 0 {
		id, err := c.postStop(client, inst.UID, lots, p.Side, p.StopLoss, pb.StopOrderType_STOP_ORDER_TYPE_STOP_LOSS)
		if err != nil {
			return nil, wrap("place stop loss", err)
		}
		out.StopLossID = id
	}
	if p.TakeProfit > 0 {
		id, err := c.postStop(client, inst.UID, lots, p.Side, p.TakeProfit, pb.StopOrderType_STOP_ORDER_TYPE_TAKE_PROFIT)
		if err != nil {
			c.cancelStop(client, out.StopLossID)
			return nil, wrap("place take profit", err)
		}
		out.TakeProfitID = id
	}
	return out, nil
}

func (c *Connector) postStop(client *investgo.Client, uid string, lots int64, side broker.Side, price float64, kind pb.StopOrderType) (string, error) {
	dir := pb.StopOrderDirection_STOP_ORDER_DIRECTION_SELL
	if side == broker.SideBuy {
		dir = pb.StopOrderDirection_STOP_ORDER_DIRECTION_BUY
	}

	resp, err := client.NewStopOrdersServiceClient().PostStopOrder(&investgo.PostStopOrderRequest{
		InstrumentId:   uid,
		Quantity:       lots,
		StopPrice:      toQuotation(price),
		Direction:      dir,
		AccountId:      c.accountID(client),
		ExpirationType: pb.StopOrderExpirationType_STOP_ORDER_EXPIRATION_TYPE_GOOD_TILL_CANCEL,
		StopOrderType:  kind,
		OrderID:        investgo.CreateUid(),
	})
	if err != nil {
		return "", err
	}
	return resp.GetStopOrderId(), nil
}

func (c *Connector) cancelStop(client *investgo.Client, id string) {
	if id == "" {
		return
	}
	if _, err := client.NewStopOrdersServiceClient().CancelStopOrder(c.accountID(client), id); err != nil {
		c.logger.Error("cancel stop order", "order_id", id, "error", err)
	}
}
