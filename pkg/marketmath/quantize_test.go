package marketmath

import (
	"testing"
	"testing/quick"

	"github.com/shopspring/decimal"
)

func TestRoundDownStep_Exact(t *testing.T) {
	cases := []struct {
		value string
		step  string
		want  string
	}{
		{"0.0234", "0.001", "0.023"},
		{"0.02", "0.001", "0.02"},
		{"50000.37", "0.1", "50000.3"},
		{"0.0002", "0.001", "0"},
		{"1.999999", "0.5", "1.5"},
		{"7", "1", "7"},
		// step <= 0 表示无约束
		{"1.2345", "0", "1.2345"},
	}
	for _, c := range cases {
		v := decimal.RequireFromString(c.value)
		s := decimal.RequireFromString(c.step)
		got := RoundDownStep(v, s)
		if !got.Equal(decimal.RequireFromString(c.want)) {
			t.Fatalf("RoundDownStep(%s, %s) got=%s want=%s", c.value, c.step, got, c.want)
		}
	}
}

// **Property 1: 结果不超过原值，且是 step 的整数倍，且幂等**
func TestProperty_RoundDownStep(t *testing.T) {
	property := func(valueMilli int64, stepExp uint8) bool {
		// 输入域约束：value ∈ [0, ~9.2e15 / 1000]，step ∈ {1, 0.1, ..., 0.000001}
		if valueMilli < 0 {
			valueMilli = -valueMilli
		}
		value := decimal.New(valueMilli, -3)
		step := decimal.New(1, -int32(stepExp%7))

		got := RoundDownStep(value, step)

		// 不向上取整
		if got.GreaterThan(value) {
			return false
		}
		// 恰好是 step 的整数倍
		if !AlignedToStep(got, step) {
			return false
		}
		// 幂等
		if !RoundDownStep(got, step).Equal(got) {
			return false
		}
		// 误差不超过一个 step
		if value.Sub(got).GreaterThanOrEqual(step) {
			return false
		}
		return true
	}
	if err := quick.Check(property, &quick.Config{MaxCount: 2000}); err != nil {
		t.Fatalf("property failed: %v", err)
	}
}

func TestAlignedToStep(t *testing.T) {
	if !AlignedToStep(decimal.RequireFromString("0.021"), decimal.RequireFromString("0.001")) {
		t.Fatalf("0.021 应当对齐到 0.001")
	}
	if AlignedToStep(decimal.RequireFromString("0.0215"), decimal.RequireFromString("0.001")) {
		t.Fatalf("0.0215 不应当对齐到 0.001")
	}
}
