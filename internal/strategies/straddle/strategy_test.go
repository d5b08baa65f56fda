package straddle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betbot/gohedge/internal/domain"
	"github.com/betbot/gohedge/internal/exchange/binance"
	"github.com/betbot/gohedge/internal/strategies/common"
)

func durationOf(d time.Duration) common.Duration {
	return common.Duration{Duration: d}
}

// fakeAccount 按调用顺序回放持仓状态。
// 默认耗尽后重复最后一个；loop=true 时循环回放（多周期 Run 测试用）。
type fakeAccount struct {
	states []domain.PositionState
	err    error
	loop   bool
	calls  int
}

func (f *fakeAccount) GetPositionState(_ context.Context, symbol string) (domain.PositionState, error) {
	if f.err != nil {
		return domain.PositionState{}, f.err
	}
	i := f.calls
	f.calls++
	if f.loop {
		i = i % len(f.states)
	} else if i >= len(f.states) {
		i = len(f.states) - 1
	}
	st := f.states[i]
	st.Symbol = symbol
	return st, nil
}

type fakeSizer struct {
	quantity decimal.Decimal
	err      error
	calls    int
}

func (f *fakeSizer) Size(context.Context, string, decimal.Decimal, decimal.Decimal, decimal.Decimal) (decimal.Decimal, error) {
	f.calls++
	return f.quantity, f.err
}

type fakePricer struct {
	price decimal.Decimal
	calls int
}

func (f *fakePricer) GetPrice(context.Context, string) (decimal.Decimal, error) {
	f.calls++
	return f.price, nil
}

// fakeGateway 记录全部网关调用，可按类型注入失败。
// Run 测试在独立 goroutine 里驱动策略，计数读取走加锁访问器。
type fakeGateway struct {
	mu          sync.Mutex
	limits      []domain.OrderIntent
	protectives []domain.OrderIntent
	closes      int
	cancels     int
	leverages   int

	limitErr      error
	protectiveErr error
	closeErr      error
	cancelErr     error
}

func (f *fakeGateway) PlaceLimit(_ context.Context, symbol string, side domain.Side, ps domain.PositionSide, price, qty decimal.Decimal) (*domain.OrderAck, error) {
	if f.limitErr != nil {
		return nil, f.limitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, domain.OrderIntent{Symbol: symbol, Side: side, PositionSide: ps, Price: price, Quantity: qty})
	return &domain.OrderAck{OrderID: int64(len(f.limits)), Status: "NEW"}, nil
}

func (f *fakeGateway) PlaceProtective(_ context.Context, symbol string, side domain.Side, ps domain.PositionSide, trigger decimal.Decimal, kind domain.OrderType) (*domain.OrderAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.protectives = append(f.protectives, domain.OrderIntent{Symbol: symbol, Side: side, PositionSide: ps, Type: kind, Price: trigger})
	if f.protectiveErr != nil {
		return nil, f.protectiveErr
	}
	return &domain.OrderAck{OrderID: int64(100 + len(f.protectives)), Status: "NEW"}, nil
}

func (f *fakeGateway) CloseMarket(context.Context, string, domain.PositionSide, decimal.Decimal) (*domain.OrderAck, error) {
	if f.closeErr != nil {
		return nil, f.closeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return &domain.OrderAck{OrderID: 200, Status: "FILLED"}, nil
}

func (f *fakeGateway) CancelAllOpenOrders(context.Context, string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return nil
}

func (f *fakeGateway) SetLeverage(context.Context, string, int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leverages++
	return nil
}

func (f *fakeGateway) protectiveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.protectives)
}

func (f *fakeGateway) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

func flat() domain.PositionState {
	return domain.PositionState{}
}

func straddled(qty string) domain.PositionState {
	q := decimal.RequireFromString(qty)
	return domain.PositionState{LongQuantity: q, ShortQuantity: q}
}

func longOnly(qty string) domain.PositionState {
	return domain.PositionState{LongQuantity: decimal.RequireFromString(qty)}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := Config{
		CheckInterval: durationOf(time.Millisecond),
		SettleTimeout: durationOf(20 * time.Millisecond),
		ErrorBackoff:  durationOf(time.Millisecond),
	}
	if err := cfg.Defaults(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return cfg
}

func newTestStrategy(t *testing.T, cfg Config, account *fakeAccount, sizer *fakeSizer, gw *fakeGateway) *Strategy {
	t.Helper()
	return New(cfg, account, sizer, &fakePricer{price: decimal.NewFromInt(50000)}, gw, nil)
}

func TestCycleBothLegsFilledPlacesProtection(t *testing.T) {
	cfg := testConfig(t)
	account := &fakeAccount{states: []domain.PositionState{flat(), straddled("0.02")}}
	sizer := &fakeSizer{quantity: decimal.RequireFromString("0.02")}
	gw := &fakeGateway{}
	s := newTestStrategy(t, cfg, account, sizer, gw)

	report, err := s.runCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle error: %v", err)
	}
	if report.Outcome != OutcomeProtected {
		t.Fatalf("outcome = %s, want %s", report.Outcome, OutcomeProtected)
	}
	if len(gw.limits) != 2 {
		t.Fatalf("limit legs = %d, want 2", len(gw.limits))
	}
	if len(gw.protectives) != 4 {
		t.Fatalf("protective orders = %d, want 4", len(gw.protectives))
	}
	if gw.closes != 0 || gw.cancels != 0 {
		t.Fatalf("unexpected reconcile calls: closes=%d cancels=%d", gw.closes, gw.cancels)
	}

	// 双腿必须同价同量且方向相反
	if gw.limits[0].Side != domain.SideBuy || gw.limits[0].PositionSide != domain.PositionSideLong {
		t.Fatalf("first leg = %+v, want BUY/LONG", gw.limits[0])
	}
	if gw.limits[1].Side != domain.SideSell || gw.limits[1].PositionSide != domain.PositionSideShort {
		t.Fatalf("second leg = %+v, want SELL/SHORT", gw.limits[1])
	}
	if !gw.limits[0].Price.Equal(gw.limits[1].Price) || !gw.limits[0].Quantity.Equal(gw.limits[1].Quantity) {
		t.Fatalf("legs differ: %+v vs %+v", gw.limits[0], gw.limits[1])
	}
}

func TestCycleProtectiveTriggerPrices(t *testing.T) {
	cfg := testConfig(t)
	account := &fakeAccount{states: []domain.PositionState{flat(), straddled("0.02")}}
	gw := &fakeGateway{}
	s := newTestStrategy(t, cfg, account, &fakeSizer{quantity: decimal.RequireFromString("0.02")}, gw)

	if _, err := s.runCycle(context.Background()); err != nil {
		t.Fatalf("cycle error: %v", err)
	}

	// entry=50000 sl=0.5% tp=0.55%
	want := map[string]string{
		"STOP_MARKET/LONG":         "49750",
		"TAKE_PROFIT_MARKET/LONG":  "50275",
		"STOP_MARKET/SHORT":        "50250",
		"TAKE_PROFIT_MARKET/SHORT": "49725",
	}
	got := map[string]string{}
	for _, o := range gw.protectives {
		got[fmt.Sprintf("%s/%s", o.Type, o.PositionSide)] = o.Price.String()
		// 保护单方向必须是对应仓位的平仓方向
		if o.Side != o.PositionSide.CloseSide() {
			t.Fatalf("protective %s/%s uses side %s", o.Type, o.PositionSide, o.Side)
		}
	}
	for key, price := range want {
		if got[key] != price {
			t.Fatalf("%s trigger = %s, want %s (all: %v)", key, got[key], price, got)
		}
	}
}

func TestCycleOneLegFilledReconciles(t *testing.T) {
	cfg := testConfig(t)
	account := &fakeAccount{states: []domain.PositionState{flat(), longOnly("0.02")}}
	gw := &fakeGateway{}
	s := newTestStrategy(t, cfg, account, &fakeSizer{quantity: decimal.RequireFromString("0.02")}, gw)

	report, err := s.runCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle error: %v", err)
	}
	if report.Outcome != OutcomeReconciled {
		t.Fatalf("outcome = %s, want %s", report.Outcome, OutcomeReconciled)
	}
	if gw.closes != 1 {
		t.Fatalf("market closes = %d, want 1", gw.closes)
	}
	if gw.cancels != 1 {
		t.Fatalf("cancel-alls = %d, want 1", gw.cancels)
	}
	if len(gw.protectives) != 0 {
		t.Fatalf("protectives = %d, want 0", len(gw.protectives))
	}
}

func TestCycleNoFillCancelsLeftovers(t *testing.T) {
	cfg := testConfig(t)
	account := &fakeAccount{states: []domain.PositionState{flat(), flat()}}
	gw := &fakeGateway{}
	s := newTestStrategy(t, cfg, account, &fakeSizer{quantity: decimal.RequireFromString("0.02")}, gw)

	report, err := s.runCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle error: %v", err)
	}
	if report.Outcome != OutcomeNoFill {
		t.Fatalf("outcome = %s, want %s", report.Outcome, OutcomeNoFill)
	}
	if gw.cancels != 1 {
		t.Fatalf("cancel-alls = %d, want 1", gw.cancels)
	}
	if len(gw.protectives) != 0 || gw.closes != 0 {
		t.Fatalf("unexpected calls: protectives=%d closes=%d", len(gw.protectives), gw.closes)
	}
}

func TestCycleNoFillWithCancelDisabled(t *testing.T) {
	cfg := testConfig(t)
	off := false
	cfg.CancelUnfilled = &off
	account := &fakeAccount{states: []domain.PositionState{flat(), flat()}}
	gw := &fakeGateway{}
	s := newTestStrategy(t, cfg, account, &fakeSizer{quantity: decimal.RequireFromString("0.02")}, gw)

	report, err := s.runCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle error: %v", err)
	}
	if report.Outcome != OutcomeNoFill {
		t.Fatalf("outcome = %s, want %s", report.Outcome, OutcomeNoFill)
	}
	if gw.cancels != 0 {
		t.Fatalf("cancel-alls = %d, want 0 (cancel_unfilled=false)", gw.cancels)
	}
}

func TestCycleIdleWhenPositionExists(t *testing.T) {
	cfg := testConfig(t)
	for _, state := range []domain.PositionState{straddled("0.02"), longOnly("0.01")} {
		account := &fakeAccount{states: []domain.PositionState{state}}
		sizer := &fakeSizer{quantity: decimal.RequireFromString("0.02")}
		pricer := &fakePricer{price: decimal.NewFromInt(50000)}
		gw := &fakeGateway{}
		s := New(cfg, account, sizer, pricer, gw, nil)

		report, err := s.runCycle(context.Background())
		if err != nil {
			t.Fatalf("cycle error: %v", err)
		}
		if report.Outcome != OutcomeIdle {
			t.Fatalf("outcome = %s, want %s", report.Outcome, OutcomeIdle)
		}
		// 有持仓时不许有任何市场/下单动作
		if pricer.calls != 0 || sizer.calls != 0 {
			t.Fatalf("idle cycle touched pricing: pricer=%d sizer=%d", pricer.calls, sizer.calls)
		}
		if len(gw.limits) != 0 || len(gw.protectives) != 0 || gw.closes != 0 || gw.cancels != 0 {
			t.Fatalf("idle cycle touched gateway: %+v", gw)
		}
	}
}

func TestCycleZeroQuantitySkipsPlacement(t *testing.T) {
	cfg := testConfig(t)
	account := &fakeAccount{states: []domain.PositionState{flat()}}
	gw := &fakeGateway{}
	s := newTestStrategy(t, cfg, account, &fakeSizer{quantity: decimal.Zero}, gw)

	report, err := s.runCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle error: %v", err)
	}
	if report.Outcome != OutcomeNoTrade {
		t.Fatalf("outcome = %s, want %s", report.Outcome, OutcomeNoTrade)
	}
	if len(gw.limits) != 0 {
		t.Fatalf("limits = %d, want 0", len(gw.limits))
	}
}

func TestCycleSizerFailureDegradesToNoTrade(t *testing.T) {
	cfg := testConfig(t)
	account := &fakeAccount{states: []domain.PositionState{flat()}}
	gw := &fakeGateway{}
	s := newTestStrategy(t, cfg, account, &fakeSizer{err: fmt.Errorf("balance fetch failed")}, gw)

	report, err := s.runCycle(context.Background())
	if err != nil {
		t.Fatalf("sizer failure must not fail the cycle: %v", err)
	}
	if report.Outcome != OutcomeNoTrade {
		t.Fatalf("outcome = %s, want %s", report.Outcome, OutcomeNoTrade)
	}
}

func TestCycleLegFailureFallsThroughToVerify(t *testing.T) {
	// 两腿都提交失败 + 仓位保持 flat：应走 no-fill 分支而不是报错
	cfg := testConfig(t)
	account := &fakeAccount{states: []domain.PositionState{flat(), flat()}}
	gw := &fakeGateway{limitErr: fmt.Errorf("rejected")}
	s := newTestStrategy(t, cfg, account, &fakeSizer{quantity: decimal.RequireFromString("0.02")}, gw)

	report, err := s.runCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle error: %v", err)
	}
	if report.Outcome != OutcomeNoFill {
		t.Fatalf("outcome = %s, want %s", report.Outcome, OutcomeNoFill)
	}
	// 没有成功提交任何订单时不需要撤单
	if gw.cancels != 0 {
		t.Fatalf("cancel-alls = %d, want 0", gw.cancels)
	}
}

func TestCycleProtectFailureIsFatalForCycle(t *testing.T) {
	cfg := testConfig(t)
	account := &fakeAccount{states: []domain.PositionState{flat(), straddled("0.02")}}
	gw := &fakeGateway{protectiveErr: fmt.Errorf("would immediately trigger")}
	s := newTestStrategy(t, cfg, account, &fakeSizer{quantity: decimal.RequireFromString("0.02")}, gw)

	report, err := s.runCycle(context.Background())
	if err == nil {
		t.Fatalf("expected cycle error when protection cannot be placed")
	}
	if report.Outcome != OutcomeError {
		t.Fatalf("outcome = %s, want %s", report.Outcome, OutcomeError)
	}
}

func TestCycleHaltedByCircuitBreaker(t *testing.T) {
	cfg := testConfig(t)
	account := &fakeAccount{states: []domain.PositionState{flat()}}
	gw := &fakeGateway{}
	s := newTestStrategy(t, cfg, account, &fakeSizer{quantity: decimal.RequireFromString("0.02")}, gw)
	s.Breaker().Halt()

	report, err := s.runCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle error: %v", err)
	}
	if report.Outcome != OutcomeHalted {
		t.Fatalf("outcome = %s, want %s", report.Outcome, OutcomeHalted)
	}
	if account.calls != 0 || len(gw.limits) != 0 {
		t.Fatalf("halted cycle still did work: account=%d limits=%d", account.calls, len(gw.limits))
	}
}

// eventually 轮询直到条件成立或超时
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("条件超时未满足: %s", msg)
}

func TestRunSurvivesProtectFailureAndTripsBreaker(t *testing.T) {
	cfg := Config{
		CheckInterval:        durationOf(time.Millisecond),
		SettleTimeout:        durationOf(5 * time.Millisecond),
		ErrorBackoff:         durationOf(time.Millisecond),
		MaxConsecutiveErrors: 2,
	}
	if err := cfg.Defaults(); err != nil {
		t.Fatalf("defaults: %v", err)
	}

	// 每个周期：空仓 -> 双腿成交 -> 保护单失败。周期必须失败但循环必须活着。
	account := &fakeAccount{states: []domain.PositionState{flat(), straddled("0.02")}, loop: true}
	gw := &fakeGateway{protectiveErr: fmt.Errorf("would immediately trigger")}
	s := newTestStrategy(t, cfg, account, &fakeSizer{quantity: decimal.RequireFromString("0.02")}, gw)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// 至少撑过两个失败周期（每周期第一张保护单就失败）
	eventually(t, 2*time.Second, func() bool { return gw.protectiveCount() >= 2 }, "保护单至少尝试两次")

	// 连续两次周期失败后熔断跳闸，但进程不退出
	eventually(t, 2*time.Second, func() bool { return s.Breaker().Halted() }, "熔断器应当跳闸")
	select {
	case err := <-done:
		t.Fatalf("循环不该自行退出: %v", err)
	default:
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("退出原因 = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("取消后循环未退出")
	}

	// 退出清理：尽力撤掉全部挂单
	if gw.cancelCount() < 1 {
		t.Fatalf("退出时应当撤单, cancels=%d", gw.cancelCount())
	}
}

func TestRunAbortsOnAuthError(t *testing.T) {
	cfg := testConfig(t)
	cfg.CheckInterval = durationOf(time.Millisecond)
	cfg.ErrorBackoff = durationOf(time.Millisecond)

	account := &fakeAccount{err: &binance.APIError{Code: -2015, Msg: "Invalid API-key, IP, or permissions for action."}}
	gw := &fakeGateway{}
	s := newTestStrategy(t, cfg, account, &fakeSizer{quantity: decimal.RequireFromString("0.02")}, gw)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case err := <-done:
		var apiErr *binance.APIError
		if !errors.As(err, &apiErr) || !apiErr.IsAuthError() {
			t.Fatalf("退出原因 = %v, want auth APIError", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("鉴权错误应当立即终止循环，而不是退避重试")
	}

	// 即便异常退出也要尽力撤单
	if gw.cancelCount() < 1 {
		t.Fatalf("退出时应当撤单, cancels=%d", gw.cancelCount())
	}
}

func TestStatusReflectsLastCycle(t *testing.T) {
	cfg := testConfig(t)
	account := &fakeAccount{states: []domain.PositionState{flat(), straddled("0.02")}}
	gw := &fakeGateway{}
	s := newTestStrategy(t, cfg, account, &fakeSizer{quantity: decimal.RequireFromString("0.02")}, gw)

	if _, ok := s.Status(); ok {
		t.Fatalf("status should be empty before any cycle")
	}

	report, err := s.runCycle(context.Background())
	s.setLastReport(report, err)

	got, ok := s.Status()
	if !ok {
		t.Fatalf("status missing after cycle")
	}
	if got.Outcome != OutcomeProtected {
		t.Fatalf("status outcome = %s, want %s", got.Outcome, OutcomeProtected)
	}
}
