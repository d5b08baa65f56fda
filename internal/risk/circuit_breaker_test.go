package risk

import "testing"

func TestCircuitBreaker_TripsOnConsecutiveErrors(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxConsecutiveErrors: 3})

	if err := cb.AllowTrading(); err != nil {
		t.Fatalf("初始状态应当允许交易: %v", err)
	}

	cb.OnError()
	cb.OnError()
	if err := cb.AllowTrading(); err != nil {
		t.Fatalf("2 次连续失败不应熔断: %v", err)
	}

	cb.OnError()
	if err := cb.AllowTrading(); err != ErrCircuitBreakerOpen {
		t.Fatalf("3 次连续失败应当熔断, got=%v", err)
	}
	if !cb.Halted() {
		t.Fatalf("熔断后 Halted 应为 true")
	}

	cb.Resume()
	if err := cb.AllowTrading(); err != nil {
		t.Fatalf("Resume 后应当允许交易: %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsCounter(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxConsecutiveErrors: 2})
	cb.OnError()
	cb.OnSuccess()
	cb.OnError()
	if err := cb.AllowTrading(); err != nil {
		t.Fatalf("成功后计数应清零: %v", err)
	}
}

func TestCircuitBreaker_DisabledThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxConsecutiveErrors: 0})
	for i := 0; i < 100; i++ {
		cb.OnError()
	}
	if err := cb.AllowTrading(); err != nil {
		t.Fatalf("阈值 <= 0 表示关闭限制: %v", err)
	}
}

func TestCircuitBreaker_NilSafe(t *testing.T) {
	var cb *CircuitBreaker
	cb.OnError()
	cb.OnSuccess()
	if err := cb.AllowTrading(); err != nil {
		t.Fatalf("nil 断路器应当放行: %v", err)
	}
	if cb.Halted() {
		t.Fatalf("nil 断路器不应处于熔断")
	}
}
