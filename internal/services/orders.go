package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gohedge/internal/domain"
	"github.com/betbot/gohedge/internal/exchange/binance"
	"github.com/betbot/gohedge/pkg/marketmath"
)

var orderLog = logrus.WithField("component", "order_gateway")

// OrderGateway 下单/撤单网关。
//
// 每个操作都是单次 RPC：不在这里重试，重试/退避策略属于控制器。
// 被拒绝的操作包成 OrderRejectedError 返回，绝不 panic、绝不杀循环。
type OrderGateway struct {
	client *binance.Client
	market ConstraintsProvider
	dryRun bool
}

func NewOrderGateway(client *binance.Client, market ConstraintsProvider, dryRun bool) *OrderGateway {
	return &OrderGateway{client: client, market: market, dryRun: dryRun}
}

// newClientOrderID 生成可关联日志/台账的客户端订单号
func newClientOrderID(tag string) string {
	return "gh-" + tag + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// PlaceLimit 挂 GTC 限价单。价格先按 tickSize 向下对齐再提交。
func (g *OrderGateway) PlaceLimit(ctx context.Context, symbol string, side domain.Side, positionSide domain.PositionSide, price, quantity decimal.Decimal) (*domain.OrderAck, error) {
	constraints, err := g.market.GetConstraints(ctx, symbol)
	if err != nil {
		return nil, &OrderRejectedError{Op: "place_limit", Reason: err}
	}
	alignedPrice := marketmath.RoundDownStep(price, constraints.PriceStep)

	intent := domain.OrderIntent{
		Symbol:        symbol,
		Side:          side,
		PositionSide:  positionSide,
		Type:          domain.OrderTypeLimit,
		Price:         alignedPrice,
		Quantity:      quantity,
		ClientOrderID: newClientOrderID("lim"),
	}
	return g.submit(ctx, "place_limit", intent, binance.CreateOrderParams{
		Symbol:           symbol,
		Side:             string(side),
		PositionSide:     string(positionSide),
		Type:             string(domain.OrderTypeLimit),
		TimeInForce:      "GTC",
		Quantity:         quantity.String(),
		Price:            alignedPrice.String(),
		NewClientOrderID: intent.ClientOrderID,
	})
}

// PlaceProtective 挂保护单（STOP_MARKET / TAKE_PROFIT_MARKET）。
// 一律 closePosition=true：触发后全量平掉该方向，不管名义数量。
func (g *OrderGateway) PlaceProtective(ctx context.Context, symbol string, side domain.Side, positionSide domain.PositionSide, triggerPrice decimal.Decimal, kind domain.OrderType) (*domain.OrderAck, error) {
	constraints, err := g.market.GetConstraints(ctx, symbol)
	if err != nil {
		return nil, &OrderRejectedError{Op: "place_protective", Reason: err}
	}
	alignedTrigger := marketmath.RoundDownStep(triggerPrice, constraints.PriceStep)

	intent := domain.OrderIntent{
		Symbol:        symbol,
		Side:          side,
		PositionSide:  positionSide,
		Type:          kind,
		Price:         alignedTrigger,
		ClosePosition: true,
		ClientOrderID: newClientOrderID("prt"),
	}
	return g.submit(ctx, "place_protective", intent, binance.CreateOrderParams{
		Symbol:           symbol,
		Side:             string(side),
		PositionSide:     string(positionSide),
		Type:             string(kind),
		StopPrice:        alignedTrigger.String(),
		ClosePosition:    true,
		NewClientOrderID: intent.ClientOrderID,
	})
}

// CloseMarket 市价平掉某方向的既有仓位
func (g *OrderGateway) CloseMarket(ctx context.Context, symbol string, positionSide domain.PositionSide, quantity decimal.Decimal) (*domain.OrderAck, error) {
	intent := domain.OrderIntent{
		Symbol:        symbol,
		Side:          positionSide.CloseSide(),
		PositionSide:  positionSide,
		Type:          domain.OrderTypeMarket,
		Quantity:      quantity,
		ClientOrderID: newClientOrderID("cls"),
	}
	return g.submit(ctx, "close_market", intent, binance.CreateOrderParams{
		Symbol:           symbol,
		Side:             string(intent.Side),
		PositionSide:     string(positionSide),
		Type:             string(domain.OrderTypeMarket),
		Quantity:         quantity.String(),
		NewClientOrderID: intent.ClientOrderID,
	})
}

// CancelAllOpenOrders 撤掉 symbol 的全部挂单
func (g *OrderGateway) CancelAllOpenOrders(ctx context.Context, symbol string) error {
	if g.dryRun {
		orderLog.Infof("🧪 [dry-run] cancel_all symbol=%s", symbol)
		return nil
	}
	if err := g.client.CancelAllOpenOrders(ctx, symbol); err != nil {
		return &OrderRejectedError{Op: "cancel_all", Reason: err}
	}
	orderLog.Infof("🧹 已撤掉 %s 全部挂单", symbol)
	return nil
}

// SetLeverage 设置杠杆（进程启动时调用一次）
func (g *OrderGateway) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	if g.dryRun {
		orderLog.Infof("🧪 [dry-run] set_leverage symbol=%s leverage=%d", symbol, leverage)
		return nil
	}
	if _, err := g.client.SetLeverage(ctx, symbol, leverage); err != nil {
		return &OrderRejectedError{Op: "set_leverage", Reason: err}
	}
	orderLog.Infof("⚙️ 杠杆已设置: %s %dx", symbol, leverage)
	return nil
}

// submit 提交一笔订单。dry-run 模式只打日志并返回合成应答。
func (g *OrderGateway) submit(ctx context.Context, op string, intent domain.OrderIntent, params binance.CreateOrderParams) (*domain.OrderAck, error) {
	if g.dryRun {
		orderLog.Infof("🧪 [dry-run] %s %s %s/%s type=%s price=%s qty=%s closePosition=%v clientId=%s",
			op, intent.Symbol, intent.Side, intent.PositionSide, intent.Type,
			intent.Price, intent.Quantity, intent.ClosePosition, intent.ClientOrderID)
		return &domain.OrderAck{
			ClientOrderID: intent.ClientOrderID,
			Symbol:        intent.Symbol,
			Status:        "DRY_RUN",
			SubmittedAt:   time.Now(),
		}, nil
	}

	resp, err := g.client.CreateOrder(ctx, params)
	if err != nil {
		orderLog.Errorf("❌ %s 被拒绝: %s %s/%s price=%s qty=%s err=%v",
			op, intent.Symbol, intent.Side, intent.PositionSide, intent.Price, intent.Quantity, err)
		return nil, &OrderRejectedError{Op: op, Reason: err}
	}

	orderLog.Infof("✅ %s 已提交: %s %s/%s type=%s price=%s qty=%s orderId=%d status=%s",
		op, intent.Symbol, intent.Side, intent.PositionSide, intent.Type,
		intent.Price, intent.Quantity, resp.OrderID, resp.Status)
	return &domain.OrderAck{
		OrderID:       resp.OrderID,
		ClientOrderID: resp.ClientOrderID,
		Symbol:        resp.Symbol,
		Status:        resp.Status,
		SubmittedAt:   time.Now(),
	}, nil
}
