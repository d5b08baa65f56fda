package binance

import (
	"context"
	"net/url"
)

// CreateOrderParams POST /fapi/v1/order 的参数。
// 字符串字段留空表示不发送该参数（交易所对不同订单类型的参数组合有校验）。
type CreateOrderParams struct {
	Symbol           string
	Side             string // BUY / SELL
	PositionSide     string // LONG / SHORT
	Type             string // LIMIT / MARKET / STOP_MARKET / TAKE_PROFIT_MARKET
	TimeInForce      string // LIMIT 单需要（GTC）
	Quantity         string // 已按 stepSize 格式化
	Price            string // 已按 tickSize 格式化
	StopPrice        string // 触发价（STOP_MARKET / TAKE_PROFIT_MARKET）
	ClosePosition    bool   // 触发后全量平仓
	NewClientOrderID string
}

// CreateOrder 下单（单次 RPC，不在客户端内重试）
func (c *Client) CreateOrder(ctx context.Context, p CreateOrderParams) (*OrderResponse, error) {
	q := url.Values{}
	q.Set("symbol", p.Symbol)
	q.Set("side", p.Side)
	q.Set("type", p.Type)
	if p.PositionSide != "" {
		q.Set("positionSide", p.PositionSide)
	}
	if p.TimeInForce != "" {
		q.Set("timeInForce", p.TimeInForce)
	}
	if p.Quantity != "" {
		q.Set("quantity", p.Quantity)
	}
	if p.Price != "" {
		q.Set("price", p.Price)
	}
	if p.StopPrice != "" {
		q.Set("stopPrice", p.StopPrice)
	}
	if p.ClosePosition {
		q.Set("closePosition", "true")
	}
	if p.NewClientOrderID != "" {
		q.Set("newClientOrderId", p.NewClientOrderID)
	}

	out := &OrderResponse{}
	if err := c.post(ctx, "/fapi/v1/order", q, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CancelAllOpenOrders 按 symbol 撤掉全部挂单
func (c *Client) CancelAllOpenOrders(ctx context.Context, symbol string) error {
	q := url.Values{}
	q.Set("symbol", symbol)
	return c.delete(ctx, "/fapi/v1/allOpenOrders", q, nil)
}
