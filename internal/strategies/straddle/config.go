package straddle

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betbot/gohedge/internal/strategies/common"
)

const ID = "straddle"

// Config 对锁开仓策略配置。
// 标准策略配置：yaml/json 双标签，Defaults 填默认值，Validate 严格校验。
type Config struct {
	Symbol     string `yaml:"symbol" json:"symbol"`
	QuoteAsset string `yaml:"quote_asset" json:"quote_asset"`

	Leverage          int     `yaml:"leverage" json:"leverage"`
	RiskPercent       float64 `yaml:"risk_percent" json:"risk_percent"`
	StopLossPercent   float64 `yaml:"stop_loss_percent" json:"stop_loss_percent"`
	TakeProfitPercent float64 `yaml:"take_profit_percent" json:"take_profit_percent"`

	// CheckInterval 主轮询间隔；SettleTimeout 下单后等待成交确认的截止窗口；
	// ErrorBackoff 周期异常后的退避时长。
	CheckInterval common.Duration `yaml:"check_interval" json:"check_interval"`
	SettleTimeout common.Duration `yaml:"settle_timeout" json:"settle_timeout"`
	ErrorBackoff  common.Duration `yaml:"error_backoff" json:"error_backoff"`

	// PriceMaxAge 流式价格的最大可用年龄，超过则退回 REST ticker
	PriceMaxAge common.Duration `yaml:"price_max_age" json:"price_max_age"`

	// CancelUnfilled 两腿都没成交时是否显式撤掉残留挂单。
	// 残留挂单可能在下个周期被二次成交形成无保护仓位，默认撤掉。
	CancelUnfilled *bool `yaml:"cancel_unfilled" json:"cancel_unfilled"`

	// MaxConsecutiveErrors 连续失败周期熔断阈值（<=0 关闭）
	MaxConsecutiveErrors int64 `yaml:"max_consecutive_errors" json:"max_consecutive_errors"`

	// 由 Defaults 从上面的 float 字段换算好的 decimal（内部计算统一走 decimal）
	riskPercentDec decimal.Decimal
	slPercentDec   decimal.Decimal
	tpPercentDec   decimal.Decimal
	leverageDec    decimal.Decimal
}

func (c *Config) GetName() string { return ID }

// Defaults 填默认值并预换算 decimal 字段
func (c *Config) Defaults() error {
	if c.Symbol == "" {
		c.Symbol = "BTCUSDT"
	}
	if c.QuoteAsset == "" {
		c.QuoteAsset = "USDT"
	}
	if c.Leverage == 0 {
		c.Leverage = 100
	}
	if c.RiskPercent == 0 {
		c.RiskPercent = 1
	}
	if c.StopLossPercent == 0 {
		c.StopLossPercent = 0.5
	}
	if c.TakeProfitPercent == 0 {
		c.TakeProfitPercent = 0.55
	}
	if c.CheckInterval.Duration == 0 {
		c.CheckInterval.Duration = 10 * time.Second
	}
	if c.SettleTimeout.Duration == 0 {
		c.SettleTimeout.Duration = 5 * time.Second
	}
	if c.ErrorBackoff.Duration == 0 {
		c.ErrorBackoff.Duration = 30 * time.Second
	}
	if c.PriceMaxAge.Duration == 0 {
		c.PriceMaxAge.Duration = 3 * time.Second
	}
	if c.CancelUnfilled == nil {
		v := true
		c.CancelUnfilled = &v
	}

	c.riskPercentDec = decimal.NewFromFloat(c.RiskPercent)
	c.slPercentDec = decimal.NewFromFloat(c.StopLossPercent)
	c.tpPercentDec = decimal.NewFromFloat(c.TakeProfitPercent)
	c.leverageDec = decimal.NewFromInt(int64(c.Leverage))
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config 不能为空")
	}
	if c.Symbol == "" {
		return fmt.Errorf("symbol 不能为空")
	}
	if c.Leverage < 1 || c.Leverage > 125 {
		return fmt.Errorf("leverage 必须在 [1, 125]: %d", c.Leverage)
	}
	if c.RiskPercent <= 0 || c.RiskPercent > 100 {
		return fmt.Errorf("risk_percent 必须在 (0, 100]: %v", c.RiskPercent)
	}
	if c.StopLossPercent <= 0 {
		return fmt.Errorf("stop_loss_percent 必须 > 0: %v", c.StopLossPercent)
	}
	if c.TakeProfitPercent <= 0 {
		return fmt.Errorf("take_profit_percent 必须 > 0: %v", c.TakeProfitPercent)
	}
	if c.StopLossPercent >= 100 || c.TakeProfitPercent >= 100 {
		return fmt.Errorf("止损/止盈百分比必须 < 100")
	}
	return nil
}
