package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side 订单方向（Binance 合约语义）
type Side string

const (
	SideBuy  Side = "BUY"  // 买入
	SideSell Side = "SELL" // 卖出
)

// PositionSide 持仓方向（双向持仓模式下 LONG / SHORT 独立核算）
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"  // 多头
	PositionSideShort PositionSide = "SHORT" // 空头
)

// CloseSide 返回平掉该方向仓位所用的订单方向（平多=SELL，平空=BUY）
func (ps PositionSide) CloseSide() Side {
	if ps == PositionSideLong {
		return SideSell
	}
	return SideBuy
}

// OrderType 订单类型
type OrderType string

const (
	OrderTypeLimit            OrderType = "LIMIT"              // 限价单
	OrderTypeMarket           OrderType = "MARKET"             // 市价单
	OrderTypeStopMarket       OrderType = "STOP_MARKET"        // 止损市价单
	OrderTypeTakeProfitMarket OrderType = "TAKE_PROFIT_MARKET" // 止盈市价单
)

// OrderIntent 一次下单意图。
// 瞬态构造：提交后只保留在本周期台账里，周期结束即丢弃，不做持久化。
type OrderIntent struct {
	Symbol        string
	Side          Side
	PositionSide  PositionSide
	Type          OrderType
	Price         decimal.Decimal // 限价/触发价（已按 tick 对齐）
	Quantity      decimal.Decimal // 数量（已按 step 对齐；closePosition 单可为零）
	ClosePosition bool            // 触发后全量平掉该方向仓位（止损/止盈单）
	ClientOrderID string          // newClientOrderId，用于日志与台账关联
}

// OrderAck 交易所对一次下单的应答
type OrderAck struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Status        string
	SubmittedAt   time.Time
}
