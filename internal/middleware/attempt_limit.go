package middleware

import (
	"sync"
	"time"
)

// ==================== AttemptLimiter 口令尝试限流器 ====================

// AttemptLimiter 口令尝试限流器
// 防止外部访问者对分享口令做穷举，连续失败后进入冷却
type AttemptLimiter struct {
	entries sync.Map // key -> *attemptEntry
}

// attemptEntry 尝试记录
type attemptEntry struct {
	failures     int
	windowStart  time.Time
	blockedUntil time.Time
	mu           sync.Mutex
}

// 全局限流器实例
var globalAttemptLimiter = &AttemptLimiter{}

// GetAttemptLimiter 获取全局限流器
func GetAttemptLimiter() *AttemptLimiter {
	return globalAttemptLimiter
}

// 默认策略：1 分钟窗口内 5 次失败，冷却 5 分钟
const (
	attemptWindow   = time.Minute
	attemptMax      = 5
	attemptCooldown = 5 * time.Minute
)

// AttemptResult 检查结果
type AttemptResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Check 检查是否允许再次尝试
// key: 限流键，如 "share_pwd:{token前缀}:{ip}"
func (l *AttemptLimiter) Check(key string) AttemptResult {
	actual, _ := l.entries.LoadOrStore(key, &attemptEntry{})
	entry := actual.(*attemptEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	if now.Before(entry.blockedUntil) {
		return AttemptResult{
			Allowed:    false,
			RetryAfter: entry.blockedUntil.Sub(now),
		}
	}
	return AttemptResult{Allowed: true}
}

// RecordFailure 记录一次失败，超过阈值进入冷却
func (l *AttemptLimiter) RecordFailure(key string) {
	actual, _ := l.entries.LoadOrStore(key, &attemptEntry{})
	entry := actual.(*attemptEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	if now.Sub(entry.windowStart) > attemptWindow {
		entry.windowStart = now
		entry.failures = 0
	}
	entry.failures++
	if entry.failures >= attemptMax {
		entry.blockedUntil = now.Add(attemptCooldown)
	}
}

// Reset 成功后清除记录
func (l *AttemptLimiter) Reset(key string) {
	l.entries.Delete(key)
}
