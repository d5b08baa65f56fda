package services

import (
	"errors"
	"fmt"
)

// ErrMarketDataUnavailable 交易对不存在或过滤器缺字段
var ErrMarketDataUnavailable = errors.New("market data unavailable")

// ErrAccountDataUnavailable 账户应答里没有目标资产
var ErrAccountDataUnavailable = errors.New("account data unavailable")

// OrderRejectedError 一次下单/撤单被交易所拒绝。
// 不应终止主循环：由控制器决定本周期如何降级。
type OrderRejectedError struct {
	Op     string // place_limit / place_protective / close_market / cancel_all / set_leverage
	Reason error
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("order rejected: op=%s reason=%v", e.Op, e.Reason)
}

func (e *OrderRejectedError) Unwrap() error { return e.Reason }
