package binance

import (
	"context"
	"net/url"
)

// ExchangeInfo 拉取交易规则（过滤器）。symbol 可为空表示全量。
func (c *Client) ExchangeInfo(ctx context.Context, symbol string) (*ExchangeInfoResponse, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	out := &ExchangeInfoResponse{}
	if err := c.get(ctx, "/fapi/v1/exchangeInfo", q, false, out); err != nil {
		return nil, err
	}
	return out, nil
}

// TickerPrice 最新成交价
func (c *Client) TickerPrice(ctx context.Context, symbol string) (TickerPrice, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	var out TickerPrice
	if err := c.get(ctx, "/fapi/v1/ticker/price", q, false, &out); err != nil {
		return TickerPrice{}, err
	}
	return out, nil
}
