package middleware

import (
	"testing"
)

func TestAttemptLimiter_CooldownAfterFailures(t *testing.T) {
	limiter := &AttemptLimiter{}
	key := "share_pwd:abc:127.0.0.1"

	// 阈值内的失败不触发冷却
	for i := 0; i < attemptMax-1; i++ {
		limiter.RecordFailure(key)
		if result := limiter.Check(key); !result.Allowed {
			t.Fatalf("第 %d 次失败后不应冷却", i+1)
		}
	}

	// 达到阈值进入冷却
	limiter.RecordFailure(key)
	result := limiter.Check(key)
	if result.Allowed {
		t.Fatal("达到失败阈值后应进入冷却")
	}
	if result.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, 应为正值", result.RetryAfter)
	}

	// 其他键不受影响
	if result := limiter.Check("share_pwd:other:127.0.0.1"); !result.Allowed {
		t.Error("不同键不应互相影响")
	}

	// 成功后重置
	limiter.Reset(key)
	if result := limiter.Check(key); !result.Allowed {
		t.Error("Reset 后应允许尝试")
	}
}
