package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/betbot/gohedge/internal/strategies/straddle"
)

// ExchangeConfig 交易所接入配置。
// 密钥只从环境变量读取（BINANCE_API_KEY / BINANCE_API_SECRET），不进配置文件。
type ExchangeConfig struct {
	APIKey       string `yaml:"-"`
	APISecret    string `yaml:"-"`
	Testnet      bool   `yaml:"testnet" json:"testnet"`
	BaseURL      string `yaml:"base_url" json:"base_url"`             // 为空则按 testnet 选默认地址
	StreamURL    string `yaml:"stream_url" json:"stream_url"`         // 行情 WS 地址，为空同上
	RecvWindowMs int64  `yaml:"recv_window_ms" json:"recv_window_ms"` // 签名请求的 recvWindow
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// ControlPlaneConfig 控制面配置（状态接口 + 周期流水）
type ControlPlaneConfig struct {
	Listen string `yaml:"listen" json:"listen"` // 为空则不启动
	DBPath string `yaml:"db_path" json:"db_path"`
}

// Config 应用配置
type Config struct {
	Exchange     ExchangeConfig     `yaml:"exchange" json:"exchange"`
	Straddle     straddle.Config    `yaml:"straddle" json:"straddle"`
	Log          LogConfig          `yaml:"log" json:"log"`
	ControlPlane ControlPlaneConfig `yaml:"control_plane" json:"control_plane"`
	DryRun       bool               `yaml:"dry_run" json:"dry_run"` // 纸交易：只打日志不真下单
}

// LoadFromFile 从 YAML 文件加载配置，再套用环境变量覆盖。
// filePath 为空时只用环境变量和默认值。
func LoadFromFile(filePath string) (*Config, error) {
	cfg := &Config{}

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败 %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides 环境变量优先级高于配置文件
func applyEnvOverrides(cfg *Config) {
	cfg.Exchange.APIKey = getEnv("BINANCE_API_KEY", cfg.Exchange.APIKey)
	cfg.Exchange.APISecret = getEnv("BINANCE_API_SECRET", cfg.Exchange.APISecret)
	if v := os.Getenv("BINANCE_TESTNET"); v != "" {
		cfg.Exchange.Testnet = parseBool(v, cfg.Exchange.Testnet)
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		cfg.DryRun = parseBool(v, cfg.DryRun)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SYMBOL"); v != "" {
		cfg.Straddle.Symbol = v
	}
}

// Validate 校验并填充默认值
func (c *Config) Validate() error {
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		return fmt.Errorf("缺少 API 密钥：请设置 BINANCE_API_KEY / BINANCE_API_SECRET")
	}
	if c.Exchange.RecvWindowMs <= 0 {
		c.Exchange.RecvWindowMs = 5000
	}
	if c.Exchange.BaseURL == "" {
		if c.Exchange.Testnet {
			c.Exchange.BaseURL = "https://testnet.binancefuture.com"
		} else {
			c.Exchange.BaseURL = "https://fapi.binance.com"
		}
	}
	if c.Exchange.StreamURL == "" {
		if c.Exchange.Testnet {
			c.Exchange.StreamURL = "wss://stream.binancefuture.com"
		} else {
			c.Exchange.StreamURL = "wss://fstream.binance.com"
		}
	}
	c.Exchange.BaseURL = strings.TrimSuffix(c.Exchange.BaseURL, "/")
	c.Exchange.StreamURL = strings.TrimSuffix(c.Exchange.StreamURL, "/")

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 5
	}

	if c.ControlPlane.Listen != "" && c.ControlPlane.DBPath == "" {
		c.ControlPlane.DBPath = "data/cycles.db"
	}

	if err := c.Straddle.Defaults(); err != nil {
		return err
	}
	return c.Straddle.Validate()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return b
}
