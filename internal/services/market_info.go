package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gohedge/internal/domain"
	"github.com/betbot/gohedge/internal/exchange/binance"
)

var marketLog = logrus.WithField("component", "market_info")

// MarketInfoService 拉取交易对的下单约束（tick / step / 最小名义价值）。
//
// 参考行为：每次调用都重新拉取，不做跨周期缓存 —— 约束极少变化，
// 但缓存失效策略不值当，轮询频率也低。内部不重试，由调用方决定。
type MarketInfoService struct {
	client *binance.Client
}

func NewMarketInfoService(client *binance.Client) *MarketInfoService {
	return &MarketInfoService{client: client}
}

// GetConstraints 拉取并解析 symbol 的过滤器。
// 找不到交易对、或必需过滤器缺字段时返回 ErrMarketDataUnavailable。
func (s *MarketInfoService) GetConstraints(ctx context.Context, symbol string) (domain.SymbolConstraints, error) {
	info, err := s.client.ExchangeInfo(ctx, symbol)
	if err != nil {
		return domain.SymbolConstraints{}, errors.Wrap(err, "exchangeInfo")
	}

	for _, si := range info.Symbols {
		if si.Symbol != symbol {
			continue
		}
		return parseConstraints(si)
	}
	marketLog.Warnf("⚠️ exchangeInfo 里找不到交易对 %s", symbol)
	return domain.SymbolConstraints{}, errors.Wrapf(ErrMarketDataUnavailable, "symbol %s not found", symbol)
}

// parseConstraints 按 filterType 取过滤器（Binance 不保证 filters 顺序）
func parseConstraints(si binance.SymbolInfo) (domain.SymbolConstraints, error) {
	sc := domain.SymbolConstraints{Symbol: si.Symbol}

	var havePrice, haveLot, haveNotional bool
	for _, f := range si.Filters {
		switch f.FilterType {
		case "PRICE_FILTER":
			v, err := decimal.NewFromString(f.TickSize)
			if err != nil || v.Sign() <= 0 {
				return domain.SymbolConstraints{}, errors.Wrapf(ErrMarketDataUnavailable, "bad tickSize %q", f.TickSize)
			}
			sc.PriceStep = v
			havePrice = true
		case "LOT_SIZE":
			v, err := decimal.NewFromString(f.StepSize)
			if err != nil || v.Sign() <= 0 {
				return domain.SymbolConstraints{}, errors.Wrapf(ErrMarketDataUnavailable, "bad stepSize %q", f.StepSize)
			}
			sc.QuantityStep = v
			haveLot = true
		case "MIN_NOTIONAL":
			// U 本位合约用 notional 字段；现货老接口叫 minNotional
			raw := f.Notional
			if raw == "" {
				raw = f.MinNotional
			}
			v, err := decimal.NewFromString(raw)
			if err != nil {
				return domain.SymbolConstraints{}, errors.Wrapf(ErrMarketDataUnavailable, "bad notional %q", raw)
			}
			sc.MinNotional = v
			haveNotional = true
		}
	}

	if !havePrice || !haveLot || !haveNotional {
		return domain.SymbolConstraints{}, errors.Wrapf(ErrMarketDataUnavailable,
			"symbol %s missing filters (price=%v lot=%v notional=%v)", si.Symbol, havePrice, haveLot, haveNotional)
	}
	return sc, nil
}
