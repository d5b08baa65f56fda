package server

import (
	"context"
	"fmt"
	"time"

	"github.com/betbot/gohedge/internal/strategies/straddle"
)

// CycleRow cycles 表的一行（价格/数量按字符串存取，保精度）
type CycleRow struct {
	ID              int64  `json:"id"`
	StartedAt       string `json:"started_at"`
	Outcome         string `json:"outcome"`
	Price           string `json:"price"`
	Quantity        string `json:"quantity"`
	LongQty         string `json:"long_qty"`
	ShortQty        string `json:"short_qty"`
	OrdersSubmitted int    `json:"orders_submitted"`
	Error           string `json:"error,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// RecordCycle 把一个周期的结果落进 cycles 表（策略侧的 CycleRecorder）
func (s *Server) RecordCycle(ctx context.Context, report straddle.CycleReport) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO cycles (started_at, outcome, price, quantity, long_qty, short_qty, orders_submitted, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		string(report.Outcome),
		report.Price.String(),
		report.Quantity.String(),
		report.LongQuantity.String(),
		report.ShortQuantity.String(),
		report.OrdersSubmitted,
		report.Err,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}
	return nil
}

func (s *Server) listCycles(ctx context.Context, limit int) ([]CycleRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at, outcome, price, quantity, long_qty, short_qty, orders_submitted, COALESCE(error, ''), created_at
FROM cycles ORDER BY id DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	out := []CycleRow{}
	for rows.Next() {
		var r CycleRow
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Outcome, &r.Price, &r.Quantity, &r.LongQty, &r.ShortQty, &r.OrdersSubmitted, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
