package binance

import (
	"context"
	"net/url"
	"strconv"
)

// Balances 账户各资产余额（签名接口）
func (c *Client) Balances(ctx context.Context) ([]AssetBalance, error) {
	var out []AssetBalance
	if err := c.get(ctx, "/fapi/v2/balance", nil, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PositionRisk 持仓报告。双向持仓模式下同一 symbol 返回 LONG/SHORT 两条。
func (c *Client) PositionRisk(ctx context.Context, symbol string) ([]PositionRisk, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	var out []PositionRisk
	if err := c.get(ctx, "/fapi/v2/positionRisk", q, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetLeverage 设置某交易对的杠杆倍数
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) (*LeverageResponse, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("leverage", strconv.Itoa(leverage))
	out := &LeverageResponse{}
	if err := c.post(ctx, "/fapi/v1/leverage", q, out); err != nil {
		return nil, err
	}
	return out, nil
}
