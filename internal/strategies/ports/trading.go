package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/betbot/gohedge/internal/domain"
)

// Shared, small interfaces for strategies to depend on (avoid per-strategy duplication).

type ConstraintsGetter interface {
	GetConstraints(ctx context.Context, symbol string) (domain.SymbolConstraints, error)
}

type BalanceGetter interface {
	GetAvailableBalance(ctx context.Context, asset string) (decimal.Decimal, error)
}

type PositionStateGetter interface {
	GetPositionState(ctx context.Context, symbol string) (domain.PositionState, error)
}

type Sizer interface {
	Size(ctx context.Context, symbol string, price decimal.Decimal, riskPercent, leverage decimal.Decimal) (decimal.Decimal, error)
}

type PriceGetter interface {
	// GetPrice 返回入场定价（流式新鲜价或 REST ticker）
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type LimitPlacer interface {
	PlaceLimit(ctx context.Context, symbol string, side domain.Side, positionSide domain.PositionSide, price, quantity decimal.Decimal) (*domain.OrderAck, error)
}

type ProtectivePlacer interface {
	PlaceProtective(ctx context.Context, symbol string, side domain.Side, positionSide domain.PositionSide, triggerPrice decimal.Decimal, kind domain.OrderType) (*domain.OrderAck, error)
}

type MarketCloser interface {
	CloseMarket(ctx context.Context, symbol string, positionSide domain.PositionSide, quantity decimal.Decimal) (*domain.OrderAck, error)
}

type OrderCanceler interface {
	CancelAllOpenOrders(ctx context.Context, symbol string) error
}

type LeverageSetter interface {
	SetLeverage(ctx context.Context, symbol string, leverage int) error
}

// Composite convenience interfaces.

type OrderGateway interface {
	LimitPlacer
	ProtectivePlacer
	MarketCloser
	OrderCanceler
	LeverageSetter
}
