package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	controlplane "github.com/betbot/gohedge/internal/controlplane/server"
	"github.com/betbot/gohedge/internal/exchange/binance"
	"github.com/betbot/gohedge/internal/services"
	"github.com/betbot/gohedge/internal/strategies/straddle"
	"github.com/betbot/gohedge/pkg/config"
	"github.com/betbot/gohedge/pkg/logger"
	"github.com/betbot/gohedge/pkg/shutdown"
)

func firstExistingFile(paths ...string) (string, bool) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

func main() {
	configPath := flag.String("config", "", "配置文件路径（YAML）")
	dryRun := flag.Bool("dry-run", false, "纸交易模式：只打日志不真下单")
	flag.Parse()

	// .env 可选：本地开发用，不存在就忽略
	_ = godotenv.Load()

	if err := logger.InitDefault(); err != nil {
		panic(fmt.Sprintf("初始化日志失败: %v", err))
	}

	path := *configPath
	if path == "" {
		if p, ok := firstExistingFile("yml/config.yaml", "yml/config.yml"); ok {
			path = p
			logrus.Infof("使用默认配置文件: %s", p)
		} else {
			logrus.Warnf("未指定配置文件，将使用环境变量和默认值")
		}
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		logrus.Errorf("加载配置失败: %v", err)
		os.Exit(1)
	}
	if *dryRun {
		cfg.DryRun = true
	}

	// 使用配置重新初始化日志（文件输出 + 轮转）
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		logrus.Errorf("重新初始化日志失败: %v", err)
		os.Exit(1)
	}

	logrus.Info("🚀 启动对锁开仓机器人...")
	if cfg.DryRun {
		logrus.Warnf("📝 纸交易模式已启用：不会进行真实交易，订单信息仅记录在日志中")
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	shutdownMgr := shutdown.NewManager()

	// 交易所客户端与服务
	client := binance.NewClient(binance.Options{
		BaseURL:      cfg.Exchange.BaseURL,
		APIKey:       cfg.Exchange.APIKey,
		APISecret:    cfg.Exchange.APISecret,
		RecvWindowMs: cfg.Exchange.RecvWindowMs,
	})
	marketInfo := services.NewMarketInfoService(client)
	account := services.NewAccountService(client)
	sizer := services.NewPositionSizer(account, marketInfo, cfg.Straddle.QuoteAsset)
	gateway := services.NewOrderGateway(client, marketInfo, cfg.DryRun)

	// 行情：WS bookTicker 为主，REST ticker 兜底
	stream := services.NewPriceStream(cfg.Exchange.StreamURL, cfg.Straddle.Symbol)
	stream.Start()
	shutdownMgr.OnShutdown(func(ctx context.Context) { stream.Stop() })
	pricer := services.NewPriceService(client, stream, cfg.Straddle.PriceMaxAge.Duration)

	// 控制面（可选）：周期流水 + 状态接口 + 断路器人工介入
	var recorder straddle.CycleRecorder
	var cpServer *controlplane.Server
	if cfg.ControlPlane.Listen != "" {
		cpServer, err = controlplane.New(controlplane.Config{
			Addr:   cfg.ControlPlane.Listen,
			DBPath: cfg.ControlPlane.DBPath,
		}, nil)
		if err != nil {
			logrus.Errorf("控制面初始化失败: %v", err)
			os.Exit(1)
		}
		recorder = cpServer
	}

	strategy := straddle.New(cfg.Straddle, account, sizer, pricer, gateway, recorder)

	if cpServer != nil {
		cpServer.SetStatus(strategy)
		httpSrv := &http.Server{Addr: cpServer.Addr(), Handler: cpServer.Router()}
		go func() {
			logrus.Infof("📊 控制面已启动: listen=%s", cpServer.Addr())
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logrus.Errorf("控制面服务异常: %v", err)
			}
		}()
		shutdownMgr.OnShutdown(func(ctx context.Context) {
			_ = httpSrv.Shutdown(ctx)
			_ = cpServer.Close()
		})
	}

	// 策略主循环
	errCh := make(chan error, 1)
	go func() { errCh <- strategy.Run(rootCtx) }()

	logrus.Info("✅ 机器人已启动，按 Ctrl+C 停止")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		logrus.Infof("收到停止信号 %s，正在关闭...", sig)
		rootCancel()
		// 等策略退出（含退出前撤单清理）
		select {
		case <-errCh:
		case <-time.After(30 * time.Second):
			logrus.Warnf("等待策略退出超时")
		}

	case err := <-errCh:
		if err != nil && rootCtx.Err() == nil {
			logrus.Errorf("策略已停止: %v", err)
			exitCode = 1
		}
		rootCancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	shutdownMgr.Shutdown(shutdownCtx)

	logrus.Info("✅ 机器人已停止")
	os.Exit(exitCode)
}
