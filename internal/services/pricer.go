package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gohedge/internal/exchange/binance"
)

var pricerLog = logrus.WithField("component", "pricer")

// PriceService 入场定价：优先用 bookTicker 流里的新鲜中间价，
// 流断开或快照过期时退回 REST ticker。
type PriceService struct {
	client *binance.Client
	stream *PriceStream // 可为 nil（纯 REST 模式）
	maxAge time.Duration
}

func NewPriceService(client *binance.Client, stream *PriceStream, maxAge time.Duration) *PriceService {
	if maxAge <= 0 {
		maxAge = 3 * time.Second
	}
	return &PriceService{client: client, stream: stream, maxAge: maxAge}
}

// GetPrice 返回当前定价
func (s *PriceService) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if s.stream != nil {
		if mid, ok := s.stream.Latest(s.maxAge); ok {
			return mid, nil
		}
		pricerLog.Debugf("流式价格不可用，退回 REST ticker: %s", symbol)
	}

	ticker, err := s.client.TickerPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "ticker price")
	}
	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "bad ticker price %q", ticker.Price)
	}
	return price, nil
}
