package services

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gohedge/internal/domain"
	"github.com/betbot/gohedge/pkg/marketmath"
)

var sizerLog = logrus.WithField("component", "sizer")

// BalanceProvider 可用余额来源
type BalanceProvider interface {
	GetAvailableBalance(ctx context.Context, asset string) (decimal.Decimal, error)
}

// ConstraintsProvider 下单约束来源
type ConstraintsProvider interface {
	GetConstraints(ctx context.Context, symbol string) (domain.SymbolConstraints, error)
}

// PositionSizer 按风险预算计算下单数量。
//
// 公式：
//   riskAmount  = balance * riskPercent / 100
//   rawQuantity = riskAmount * leverage / price
//   quantity    = roundDown(rawQuantity, stepSize)
// quantity * price < minNotional 时返回 0 —— 这是正常结果
//（余额太小或价格太高），不是错误。
type PositionSizer struct {
	account     BalanceProvider
	market      ConstraintsProvider
	quoteAsset  string
}

func NewPositionSizer(account BalanceProvider, market ConstraintsProvider, quoteAsset string) *PositionSizer {
	if quoteAsset == "" {
		quoteAsset = "USDT"
	}
	return &PositionSizer{account: account, market: market, quoteAsset: quoteAsset}
}

// Size 返回对齐后的下单数量；非零返回值保证满足 minNotional 和 stepSize。
// 上游数据失败直接返回错误，调用方按"本周期不交易"降级。
func (s *PositionSizer) Size(ctx context.Context, symbol string, price decimal.Decimal, riskPercent, leverage decimal.Decimal) (decimal.Decimal, error) {
	if price.Sign() <= 0 {
		sizerLog.Warnf("⚠️ 非法价格 %s，跳过本周期", price)
		return decimal.Zero, nil
	}

	constraints, err := s.market.GetConstraints(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := s.account.GetAvailableBalance(ctx, s.quoteAsset)
	if err != nil {
		return decimal.Zero, err
	}

	riskAmount := balance.Mul(riskPercent).Div(decimal.NewFromInt(100))
	rawQuantity := riskAmount.Mul(leverage).Div(price)
	quantity := marketmath.RoundDownStep(rawQuantity, constraints.QuantityStep)

	notional := quantity.Mul(price)
	if notional.LessThan(constraints.MinNotional) {
		sizerLog.Warnf("⚠️ 名义价值不足: %s < %s（balance=%s, raw=%s），本周期不开仓",
			notional.StringFixed(2), constraints.MinNotional, balance, rawQuantity)
		return decimal.Zero, nil
	}

	sizerLog.Infof("📐 仓位计算: balance=%s risk=%s%% lev=%sx price=%s -> qty=%s (notional=%s)",
		balance, riskPercent, leverage, price, quantity, notional.StringFixed(2))
	return quantity, nil
}
