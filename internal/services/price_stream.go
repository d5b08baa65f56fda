package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var streamLog = logrus.WithField("component", "price_stream")

// PriceStream 订阅 Binance U 本位合约的 bookTicker 流，缓存最新一档盘口。
// 数据源：wss://fstream.binance.com（testnet 为 wss://stream.binancefuture.com）。
//
// 控制器优先用这里的新鲜中间价做入场定价，过期（或流断开）时退回 REST ticker。
type PriceStream struct {
	baseURL string // wss://fstream.binance.com
	symbol  string // 小写，如 "btcusdt"

	mu        sync.RWMutex
	bestBid   decimal.Decimal
	bestAsk   decimal.Decimal
	updatedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	connMu sync.Mutex
	conn   *websocket.Conn
}

func NewPriceStream(baseURL, symbol string) *PriceStream {
	ctx, cancel := context.WithCancel(context.Background())
	return &PriceStream{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		symbol:  strings.ToLower(strings.TrimSpace(symbol)),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (p *PriceStream) Start() {
	go p.run()
}

func (p *PriceStream) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.connMu.Lock()
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	p.connMu.Unlock()
}

// Latest 返回最新中间价。盘口缺失或快照老于 maxAge 时 ok=false。
func (p *PriceStream) Latest(maxAge time.Duration) (decimal.Decimal, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.bestBid.Sign() <= 0 || p.bestAsk.Sign() <= 0 {
		return decimal.Zero, false
	}
	if maxAge > 0 && time.Since(p.updatedAt) > maxAge {
		return decimal.Zero, false
	}
	mid := p.bestBid.Add(p.bestAsk).Div(decimal.NewFromInt(2))
	return mid, true
}

func (p *PriceStream) run() {
	wsURL := p.baseURL + "/ws/" + p.symbol + "@bookTicker"

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
		conn, _, err := dialer.Dial(wsURL, nil)
		if err != nil {
			streamLog.Warnf("连接 bookTicker 流失败: %v", err)
			select {
			case <-time.After(2 * time.Second):
				continue
			case <-p.ctx.Done():
				return
			}
		}

		p.connMu.Lock()
		p.conn = conn
		p.connMu.Unlock()

		streamLog.Infof("✅ bookTicker 流已连接: %s", p.symbol)

		if err := p.readLoop(conn); err != nil {
			streamLog.Warnf("bookTicker readLoop 退出: %v", err)
		}

		p.connMu.Lock()
		if p.conn == conn {
			p.conn = nil
		}
		_ = conn.Close()
		p.connMu.Unlock()

		select {
		case <-time.After(1 * time.Second):
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *PriceStream) readLoop(conn *websocket.Conn) error {
	type bookTicker struct {
		Symbol  string `json:"s"`
		BidPx   string `json:"b"`
		AskPx   string `json:"a"`
		EventTs int64  `json:"E"`
	}

	for {
		select {
		case <-p.ctx.Done():
			return p.ctx.Err()
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var bt bookTicker
		if err := json.Unmarshal(msg, &bt); err != nil {
			continue
		}
		bid, err1 := decimal.NewFromString(bt.BidPx)
		ask, err2 := decimal.NewFromString(bt.AskPx)
		if err1 != nil || err2 != nil {
			continue
		}

		p.mu.Lock()
		p.bestBid = bid
		p.bestAsk = ask
		p.updatedAt = time.Now()
		p.mu.Unlock()
	}
}
