package straddle

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gohedge/internal/domain"
	"github.com/betbot/gohedge/internal/exchange/binance"
	"github.com/betbot/gohedge/internal/execution"
	"github.com/betbot/gohedge/internal/risk"
	"github.com/betbot/gohedge/internal/strategies/ports"
)

var log = logrus.WithField("strategy", ID)

// CycleOutcome 一个周期的终态
type CycleOutcome string

const (
	OutcomeHalted     CycleOutcome = "halted"     // 熔断中，跳过开仓
	OutcomeIdle       CycleOutcome = "idle"       // 已有持仓，本周期不动
	OutcomeNoTrade    CycleOutcome = "no_trade"   // 风险预算不足 / 数据不可用，数量为 0
	OutcomeProtected  CycleOutcome = "protected"  // 两腿成交，4 张保护单已挂
	OutcomeReconciled CycleOutcome = "reconciled" // 单腿成交，已市价平掉 + 撤单
	OutcomeNoFill     CycleOutcome = "no_fill"    // 两腿都没成交
	OutcomeError      CycleOutcome = "error"      // 周期异常（退避后重试）
)

// CycleReport 周期结果（控制面流水 + 状态接口用）
type CycleReport struct {
	StartedAt       time.Time
	Outcome         CycleOutcome
	Price           decimal.Decimal
	Quantity        decimal.Decimal
	LongQuantity    decimal.Decimal
	ShortQuantity   decimal.Decimal
	OrdersSubmitted int
	Err             string
}

// CycleRecorder 周期流水落地（控制面）。nil recorder 表示不落
type CycleRecorder interface {
	RecordCycle(ctx context.Context, report CycleReport) error
}

// Strategy 对锁开仓的生命周期控制器。
//
// 单线程协作式轮询：一次只跑一个周期，周期内严格串行，
// 中断只在循环边界被观察到。状态机（每周期）：
//
//	idle-check -> size -> place -> settle-wait -> verify -> {protect | reconcile | no-fill} -> sleep
//
// 每一步失败的降级策略各不相同，见 runCycle。
type Strategy struct {
	Config

	account  ports.PositionStateGetter
	sizer    ports.Sizer
	pricer   ports.PriceGetter
	gateway  ports.OrderGateway
	breaker  *risk.CircuitBreaker
	recorder CycleRecorder

	mu         sync.Mutex
	lastReport *CycleReport
}

// New 创建策略。cfg 需已经 Defaults + Validate。
func New(cfg Config, account ports.PositionStateGetter, sizer ports.Sizer, pricer ports.PriceGetter, gateway ports.OrderGateway, recorder CycleRecorder) *Strategy {
	return &Strategy{
		Config:   cfg,
		account:  account,
		sizer:    sizer,
		pricer:   pricer,
		gateway:  gateway,
		breaker:  risk.NewCircuitBreaker(risk.CircuitBreakerConfig{MaxConsecutiveErrors: cfg.MaxConsecutiveErrors}),
		recorder: recorder,
	}
}

// Breaker 暴露断路器（控制面 / 人工介入用）
func (s *Strategy) Breaker() *risk.CircuitBreaker { return s.breaker }

// Status 最近一个周期的结果快照
func (s *Strategy) Status() (CycleReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReport == nil {
		return CycleReport{}, false
	}
	return *s.lastReport, true
}

// Initialize 进程启动时设置一次杠杆
func (s *Strategy) Initialize(ctx context.Context) error {
	if err := s.gateway.SetLeverage(ctx, s.Symbol, s.Leverage); err != nil {
		return errors.Wrap(err, "set leverage")
	}
	return nil
}

// Run 主循环。只在 ctx 取消或遇到永久性错误（鉴权失败）时返回。
// 退出前尽力撤掉全部挂单 —— 停掉的机器人不应该留下挂单。
func (s *Strategy) Run(ctx context.Context) error {
	log.Infof("🚀 straddle 启动: symbol=%s lev=%dx risk=%.2f%% sl=%.2f%% tp=%.2f%% interval=%s",
		s.Symbol, s.Leverage, s.RiskPercent, s.StopLossPercent, s.TakeProfitPercent, s.CheckInterval.Duration)

	if err := s.Initialize(ctx); err != nil {
		return err
	}

	defer s.cleanup()

	for {
		report, err := s.runCycle(ctx)
		s.setLastReport(report, err)
		s.record(report, err)

		switch {
		case err == nil:
			s.breaker.OnSuccess()
			if !s.sleep(ctx, s.CheckInterval.Duration) {
				return ctx.Err()
			}

		case ctx.Err() != nil:
			return ctx.Err()

		case isPermanentError(err):
			// 鉴权类错误重试没有意义，再跑下去只会刷无效请求
			log.Errorf("🛑 永久性错误，停止主循环: %v", err)
			return err

		default:
			s.breaker.OnError()
			log.Errorf("💥 周期异常: %v（退避 %s）", err, s.ErrorBackoff.Duration)
			if !s.sleep(ctx, s.ErrorBackoff.Duration) {
				return ctx.Err()
			}
		}
	}
}

// runCycle 执行一个完整周期。返回的 error 表示"周期失败"——
// 由 Run 决定退避，绝不在这里终止进程。
func (s *Strategy) runCycle(ctx context.Context) (CycleReport, error) {
	// 台账随周期创建：开始时间与订单记录共用同一来源
	ledger := execution.NewCycleLedger()
	report := CycleReport{StartedAt: ledger.StartedAt()}

	if err := s.breaker.AllowTrading(); err != nil {
		log.Warnf("⛔ 熔断中，跳过开仓（需要人工 Resume）")
		report.Outcome = OutcomeHalted
		return report, nil
	}

	// 1. idle-check：有任何持仓就不动（既有对锁由保护单被动管理）
	state, err := s.account.GetPositionState(ctx, s.Symbol)
	if err != nil {
		report.Outcome = OutcomeError
		return report, errors.Wrap(err, "position check")
	}
	report.LongQuantity = state.LongQuantity
	report.ShortQuantity = state.ShortQuantity
	if !state.IsFlat() {
		log.Debugf("💤 已有持仓 long=%s short=%s，本周期跳过", state.LongQuantity, state.ShortQuantity)
		report.Outcome = OutcomeIdle
		return report, nil
	}

	// 2. size：取价 + 按风险预算算数量
	price, err := s.pricer.GetPrice(ctx, s.Symbol)
	if err != nil {
		report.Outcome = OutcomeError
		return report, errors.Wrap(err, "get price")
	}
	report.Price = price

	quantity, err := s.sizer.Size(ctx, s.Symbol, price, s.riskPercentDec, s.leverageDec)
	if err != nil {
		// 行情/账户数据失败降级为"本周期不交易"，循环继续
		log.Warnf("⚠️ 仓位计算失败，按 0 处理: %v", err)
		report.Outcome = OutcomeNoTrade
		return report, nil
	}
	if quantity.IsZero() {
		report.Outcome = OutcomeNoTrade
		return report, nil
	}
	report.Quantity = quantity

	// 3. place：同价同量双腿限价（对锁入场）
	log.Infof("🎯 开仓: price=%s qty=%s（双腿限价）", price, quantity)
	s.placeLeg(ctx, ledger, domain.SideBuy, domain.PositionSideLong, price, quantity)
	s.placeLeg(ctx, ledger, domain.SideSell, domain.PositionSideShort, price, quantity)
	report.OrdersSubmitted = ledger.SubmittedCount()

	// 4+5. settle-wait + verify：有界退避轮询直到截止时间。
	// 两腿都确认成交就提前退出；否则以截止时的状态为准分支。
	verified, err := s.awaitFills(ctx)
	if err != nil {
		report.Outcome = OutcomeError
		return report, errors.Wrap(err, "verify fills")
	}
	report.LongQuantity = verified.LongQuantity
	report.ShortQuantity = verified.ShortQuantity

	switch {
	case verified.IsStraddle():
		// protect：这是唯一按周期级失败处理的分支 ——
		// 没有保护单的裸对锁是最坏的风险状态
		if err := s.protect(ctx, price); err != nil {
			report.Outcome = OutcomeError
			return report, errors.Wrap(err, "protect")
		}
		log.Infof("🛡️ 对锁已建立并保护: long=%s short=%s entry=%s", verified.LongQuantity, verified.ShortQuantity, price)
		report.Outcome = OutcomeProtected
		return report, nil

	default:
		if side, qty, ok := verified.OneSided(); ok {
			// reconcile：单腿敞口必须立刻拆掉
			log.Warnf("⚠️ 部分成交: %s=%s，市价平掉并撤单", side, qty)
			if err := s.reconcile(ctx, side, qty); err != nil {
				report.Outcome = OutcomeError
				return report, err
			}
			report.Outcome = OutcomeReconciled
			return report, nil
		}

		// no-fill：两腿都没成交。残留挂单可能在下个周期
		// 被二次成交形成无保护仓位，默认显式撤掉。
		log.Infof("🌀 两腿均未成交（已提交 %d 笔）", ledger.SubmittedCount())
		if *s.CancelUnfilled && ledger.SubmittedCount() > 0 {
			if err := s.gateway.CancelAllOpenOrders(ctx, s.Symbol); err != nil {
				log.Warnf("⚠️ 撤残留挂单失败: %v", err)
			}
		}
		report.Outcome = OutcomeNoFill
		return report, nil
	}
}

// placeLeg 提交一条腿。失败只记日志不终止周期：
// 单腿失败产生的单边敞口会被 verify 的 reconcile 分支兜住。
func (s *Strategy) placeLeg(ctx context.Context, ledger *execution.CycleLedger, side domain.Side, positionSide domain.PositionSide, price, quantity decimal.Decimal) {
	ack, err := s.gateway.PlaceLimit(ctx, s.Symbol, side, positionSide, price, quantity)
	ledger.Record(domain.OrderIntent{
		Symbol:       s.Symbol,
		Side:         side,
		PositionSide: positionSide,
		Type:         domain.OrderTypeLimit,
		Price:        price,
		Quantity:     quantity,
	}, ack, err)
	if err != nil {
		log.Errorf("❌ %s/%s 腿提交失败: %v", side, positionSide, err)
	}
}

// awaitFills 在 SettleTimeout 窗口内轮询持仓状态（500ms 起步指数退避）。
// 两腿成交即刻推进，慢成交也最多等到截止，不盲等固定时长。
func (s *Strategy) awaitFills(ctx context.Context) (domain.PositionState, error) {
	deadline := time.Now().Add(s.SettleTimeout.Duration)
	wait := 500 * time.Millisecond

	var state domain.PositionState
	for {
		remaining := time.Until(deadline)
		step := wait
		if remaining < step {
			step = remaining
		}
		if step > 0 {
			if !s.sleep(ctx, step) {
				return state, ctx.Err()
			}
		}

		var err error
		state, err = s.account.GetPositionState(ctx, s.Symbol)
		if err != nil {
			return state, err
		}
		if state.IsStraddle() {
			return state, nil
		}
		if time.Now().After(deadline) {
			return state, nil
		}
		wait *= 2
	}
}

// protect 给两条腿各挂止损 + 止盈（closePosition 触发单）。
// 任何一张失败立即向上抛：这一步失败留下的是没有保护的裸对锁。
func (s *Strategy) protect(ctx context.Context, entryPrice decimal.Decimal) error {
	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	slFrac := s.slPercentDec.Div(hundred)
	tpFrac := s.tpPercentDec.Div(hundred)

	orders := []struct {
		side    domain.Side
		pos     domain.PositionSide
		trigger decimal.Decimal
		kind    domain.OrderType
	}{
		// LONG 腿：下方止损，上方止盈
		{domain.SideSell, domain.PositionSideLong, entryPrice.Mul(one.Sub(slFrac)), domain.OrderTypeStopMarket},
		{domain.SideSell, domain.PositionSideLong, entryPrice.Mul(one.Add(tpFrac)), domain.OrderTypeTakeProfitMarket},
		// SHORT 腿：镜像
		{domain.SideBuy, domain.PositionSideShort, entryPrice.Mul(one.Add(slFrac)), domain.OrderTypeStopMarket},
		{domain.SideBuy, domain.PositionSideShort, entryPrice.Mul(one.Sub(tpFrac)), domain.OrderTypeTakeProfitMarket},
	}

	for _, o := range orders {
		if _, err := s.gateway.PlaceProtective(ctx, s.Symbol, o.side, o.pos, o.trigger, o.kind); err != nil {
			return errors.Wrapf(err, "%s %s @%s", o.kind, o.pos, o.trigger)
		}
	}
	log.Infof("✅ 保护单已全部挂好（4 张 closePosition 触发单）")
	return nil
}

// reconcile 市价平掉已成交的单腿，再撤掉对侧残留挂单
func (s *Strategy) reconcile(ctx context.Context, side domain.PositionSide, quantity decimal.Decimal) error {
	if _, err := s.gateway.CloseMarket(ctx, s.Symbol, side, quantity); err != nil {
		return errors.Wrap(err, "close filled leg")
	}
	if err := s.gateway.CancelAllOpenOrders(ctx, s.Symbol); err != nil {
		return errors.Wrap(err, "cancel remaining")
	}
	log.Infof("✅ 单边敞口已拆除: side=%s qty=%s", side, quantity)
	return nil
}

// cleanup 退出前尽力撤单。循环 ctx 已取消，这里用独立的短超时 ctx。
func (s *Strategy) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.gateway.CancelAllOpenOrders(ctx, s.Symbol); err != nil {
		log.Errorf("❌ 退出清理失败（可能留有挂单！）: %v", err)
		return
	}
	log.Infof("👋 已撤掉全部挂单，干净退出")
}

// sleep 可被 ctx 打断的睡眠；返回 false 表示 ctx 已取消
func (s *Strategy) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Strategy) setLastReport(report CycleReport, err error) {
	if err != nil {
		report.Err = err.Error()
	}
	s.mu.Lock()
	s.lastReport = &report
	s.mu.Unlock()
}

func (s *Strategy) record(report CycleReport, err error) {
	if s.recorder == nil {
		return
	}
	if err != nil {
		report.Err = err.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if recErr := s.recorder.RecordCycle(ctx, report); recErr != nil {
		log.Warnf("⚠️ 周期流水落地失败: %v", recErr)
	}
}

// isPermanentError 鉴权类错误（key 失效/签名错误/IP 白名单）不值得重试
func isPermanentError(err error) bool {
	var apiErr *binance.APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsAuthError()
	}
	return false
}
