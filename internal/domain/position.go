package domain

import "github.com/shopspring/decimal"

// PositionState 单个交易对在双向持仓模式下的持仓快照。
// 每个轮询周期从交易所持仓报告重建一次；缺失的方向记为零。
type PositionState struct {
	Symbol        string
	LongQuantity  decimal.Decimal // 多头持仓量（绝对值，>= 0）
	ShortQuantity decimal.Decimal // 空头持仓量（绝对值，>= 0）
}

// IsFlat 两个方向都没有持仓
func (p PositionState) IsFlat() bool {
	return p.LongQuantity.IsZero() && p.ShortQuantity.IsZero()
}

// IsStraddle 两个方向都有持仓（完整对锁）
func (p PositionState) IsStraddle() bool {
	return p.LongQuantity.IsPositive() && p.ShortQuantity.IsPositive()
}

// OneSided 返回唯一有持仓的方向；两边都有或都没有时 ok=false
func (p PositionState) OneSided() (PositionSide, decimal.Decimal, bool) {
	longOpen := p.LongQuantity.IsPositive()
	shortOpen := p.ShortQuantity.IsPositive()
	switch {
	case longOpen && !shortOpen:
		return PositionSideLong, p.LongQuantity, true
	case shortOpen && !longOpen:
		return PositionSideShort, p.ShortQuantity, true
	default:
		return "", decimal.Zero, false
	}
}
