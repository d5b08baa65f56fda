package binance

import "fmt"

// APIError Binance 标准错误应答（{"code":-2019,"msg":"Margin is insufficient."}）
type APIError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance api error: code=%d msg=%s", e.Code, e.Msg)
}

// IsAuthError 鉴权类错误（key 无效 / 签名错误 / IP 白名单）。
// 这类错误重试没有意义，调用方应当停止主循环。
func (e *APIError) IsAuthError() bool {
	switch e.Code {
	case -1022, -2014, -2015:
		return true
	}
	return false
}

// ExchangeInfoResponse GET /fapi/v1/exchangeInfo（只取需要的字段）
type ExchangeInfoResponse struct {
	Symbols []SymbolInfo `json:"symbols"`
}

// SymbolInfo 交易对元信息与过滤器
type SymbolInfo struct {
	Symbol  string         `json:"symbol"`
	Status  string         `json:"status"`
	Filters []SymbolFilter `json:"filters"`
}

// SymbolFilter 过滤器按 filterType 区分，不按下标取
//（Binance 不保证 filters 的顺序）。
type SymbolFilter struct {
	FilterType  string `json:"filterType"`
	TickSize    string `json:"tickSize"`    // PRICE_FILTER
	StepSize    string `json:"stepSize"`    // LOT_SIZE
	Notional    string `json:"notional"`    // MIN_NOTIONAL（USDT-M 字段名）
	MinNotional string `json:"minNotional"` // 兼容旧字段名
}

// AssetBalance GET /fapi/v2/balance 的单条记录
type AssetBalance struct {
	Asset            string `json:"asset"`
	Balance          string `json:"balance"`
	AvailableBalance string `json:"availableBalance"`
}

// PositionRisk GET /fapi/v2/positionRisk 的单条记录。
// 双向持仓模式下同一 symbol 会返回 LONG/SHORT 两条。
type PositionRisk struct {
	Symbol       string `json:"symbol"`
	PositionSide string `json:"positionSide"`
	PositionAmt  string `json:"positionAmt"`
	EntryPrice   string `json:"entryPrice"`
	MarkPrice    string `json:"markPrice"`
}

// TickerPrice GET /fapi/v1/ticker/price
type TickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// OrderResponse POST /fapi/v1/order 的应答
type OrderResponse struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Status        string `json:"status"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
}

// LeverageResponse POST /fapi/v1/leverage 的应答
type LeverageResponse struct {
	Symbol   string `json:"symbol"`
	Leverage int    `json:"leverage"`
}
