package domain

import "github.com/shopspring/decimal"

// SymbolConstraints 交易所对单个交易对的下单约束。
// 每次定价/下单前重新拉取（不跨周期缓存），一次拉取内不可变。
type SymbolConstraints struct {
	Symbol       string
	PriceStep    decimal.Decimal // PRICE_FILTER.tickSize
	QuantityStep decimal.Decimal // LOT_SIZE.stepSize
	MinNotional  decimal.Decimal // MIN_NOTIONAL.notional
}
