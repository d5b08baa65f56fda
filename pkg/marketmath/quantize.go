package marketmath

import "github.com/shopspring/decimal"

// RoundDownStep 把 value 向下对齐到 step 的整数倍。
//
// 约定：
// - 永远不向上取整：向上会突破预期风险或 tick 对齐（交易所直接拒单）。
// - 用 decimal 而不是 float64：0.001 这类步长在二进制浮点下不精确，
//   累计误差足以让数量偏出 LOT_SIZE。
// - step <= 0 视为“无约束”，原值返回。
func RoundDownStep(value, step decimal.Decimal) decimal.Decimal {
	if step.Sign() <= 0 {
		return value
	}
	return value.Div(step).Floor().Mul(step)
}

// AlignedToStep 判断 value 是否恰好是 step 的整数倍
func AlignedToStep(value, step decimal.Decimal) bool {
	if step.Sign() <= 0 {
		return true
	}
	return value.Mod(step).IsZero()
}
