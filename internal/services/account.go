package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gohedge/internal/domain"
	"github.com/betbot/gohedge/internal/exchange/binance"
)

var accountLog = logrus.WithField("component", "account")

// AccountService 账户余额与持仓快照。
// 交易所是持仓/余额的唯一事实来源：每个周期重新拉取，本地不落任何状态。
type AccountService struct {
	client *binance.Client
}

func NewAccountService(client *binance.Client) *AccountService {
	return &AccountService{client: client}
}

// GetAvailableBalance 某资产的可用余额。
// 应答里没有该资产时返回 ErrAccountDataUnavailable。
func (s *AccountService) GetAvailableBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	balances, err := s.client.Balances(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "balances")
	}
	for _, b := range balances {
		if b.Asset != asset {
			continue
		}
		v, err := decimal.NewFromString(b.AvailableBalance)
		if err != nil {
			return decimal.Zero, errors.Wrapf(ErrAccountDataUnavailable, "bad availableBalance %q", b.AvailableBalance)
		}
		return v, nil
	}
	accountLog.Warnf("⚠️ 余额应答里没有资产 %s", asset)
	return decimal.Zero, errors.Wrapf(ErrAccountDataUnavailable, "asset %s not in balance response", asset)
}

// GetPositionState 按方向聚合持仓量（绝对值）。缺失的方向记为零。
func (s *AccountService) GetPositionState(ctx context.Context, symbol string) (domain.PositionState, error) {
	positions, err := s.client.PositionRisk(ctx, symbol)
	if err != nil {
		return domain.PositionState{}, errors.Wrap(err, "positionRisk")
	}

	state := domain.PositionState{Symbol: symbol}
	for _, p := range positions {
		if p.Symbol != symbol {
			continue
		}
		amt, err := decimal.NewFromString(p.PositionAmt)
		if err != nil {
			accountLog.Warnf("⚠️ 非法 positionAmt %q（side=%s），按 0 处理", p.PositionAmt, p.PositionSide)
			continue
		}
		switch domain.PositionSide(p.PositionSide) {
		case domain.PositionSideLong:
			state.LongQuantity = amt.Abs()
		case domain.PositionSideShort:
			state.ShortQuantity = amt.Abs()
		}
	}
	return state, nil
}
