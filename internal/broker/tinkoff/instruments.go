package tinkoff

import (
	"fmt"

	"github.com/russianinvestments/invest-api-go-sdk/investgo"
)

type instrument struct {
	Ticker string
	UID    string
	Lot    int64
}

func (c *Connector) remember(inst *instrument) {
	c.instruments.Store("uid:"+inst.UID, inst)
	c.instruments.Store("ticker:"+inst.Ticker, inst)
}

func (c *Connector) byUID(client *investgo.Client, uid string) (*instrument, error) {
	if cached, ok := c.instruments.Load("uid:" + uid); ok {
		return cached.(*instrument), nil
	}

	resp, err := client.NewInstrumentsServiceClient().InstrumentByUid(uid)
	if err != nil {
		return nil, wrap("instrument by uid "+uid, err)
	}

	info := resp.GetInstrument()
	inst := &instrument{Ticker: info.GetTicker(), UID: uid, Lot: int64(info.GetLot())}
	if inst.Lot < 1 {
		inst.Lot = 1
	}
	c.remember(inst)
	return inst, nil
}

// bySymbol resolves a ticker, preferring an exact ticker match among the
// search results.
func (c *Connector) bySymbol(client *investgo.Client, ticker string) (*instrument, error) {
	if cached, ok := c.instruments.Load("ticker:" + ticker); ok {
		return cached.(*instrument), nil
	}

	resp, err := client.NewInstrumentsServiceClient().FindInstrument(ticker)
	if err != nil {
		return nil, wrap("find instrument "+ticker, err)
	}

	found := resp.GetInstruments()
	if len(found) == 0 {
		return nil, fmt.Errorf("instrument not found: %s", ticker)
	}

	uid := found[0].GetUid()
	for _, inst := range found {
		if inst.GetTicker() == ticker {
			uid = inst.GetUid()
			break
		}
	}

	inst, err := c.byUID(client, uid)
	if err != nil {
		return nil, err
	}
	c.instruments.Store("ticker:"+ticker, inst)
	return inst, nil
}
