package execution

import (
	"sync"
	"time"

	"github.com/betbot/gohedge/internal/domain"
)

// CycleLedger 单个周期内的订单台账。
//
// 本地不维护持久订单簿（交易所是事实来源），但一个周期内必须能回答
// “我刚才提交了什么”：对账分支和日志都要用。台账随周期创建、
// 随周期丢弃，从不落盘。
type CycleLedger struct {
	mu      sync.Mutex
	startAt time.Time
	entries []LedgerEntry
}

// LedgerEntry 一笔已提交的订单意图
type LedgerEntry struct {
	Intent      domain.OrderIntent
	Ack         *domain.OrderAck // 提交失败时为 nil
	SubmittedAt time.Time
	Err         error
}

// NewCycleLedger 开始一个新周期的台账
func NewCycleLedger() *CycleLedger {
	return &CycleLedger{startAt: time.Now()}
}

// Record 记录一次提交（无论成败）
func (l *CycleLedger) Record(intent domain.OrderIntent, ack *domain.OrderAck, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LedgerEntry{
		Intent:      intent,
		Ack:         ack,
		SubmittedAt: time.Now(),
		Err:         err,
	})
}

// Entries 返回台账快照（拷贝）
func (l *CycleLedger) Entries() []LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// SubmittedCount 成功提交的笔数
func (l *CycleLedger) SubmittedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.Err == nil {
			n++
		}
	}
	return n
}

// StartedAt 周期开始时间
func (l *CycleLedger) StartedAt() time.Time { return l.startAt }
