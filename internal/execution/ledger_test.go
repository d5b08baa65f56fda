package execution

import (
	"fmt"
	"testing"
	"time"

	"github.com/betbot/gohedge/internal/domain"
)

func TestCycleLedger_RecordAndCount(t *testing.T) {
	before := time.Now()
	l := NewCycleLedger()
	if start := l.StartedAt(); start.Before(before) || start.After(time.Now()) {
		t.Fatalf("StartedAt 应当是创建时刻: %v", start)
	}
	if got := l.SubmittedCount(); got != 0 {
		t.Fatalf("空台账 SubmittedCount got=%d", got)
	}

	l.Record(domain.OrderIntent{Symbol: "BTCUSDT", Side: domain.SideBuy}, &domain.OrderAck{OrderID: 1}, nil)
	l.Record(domain.OrderIntent{Symbol: "BTCUSDT", Side: domain.SideSell}, nil, fmt.Errorf("rejected"))

	if got := l.SubmittedCount(); got != 1 {
		t.Fatalf("SubmittedCount got=%d want=1", got)
	}
	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries got=%d want=2", len(entries))
	}
	if entries[0].Ack == nil || entries[0].Ack.OrderID != 1 {
		t.Fatalf("第一笔应当带 ack")
	}
	if entries[1].Err == nil {
		t.Fatalf("第二笔应当带错误")
	}

	// Entries 返回拷贝，修改不影响台账
	entries[0].Ack = nil
	if l.Entries()[0].Ack == nil {
		t.Fatalf("Entries 应当返回拷贝")
	}
}
