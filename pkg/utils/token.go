package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateTokenValue 生成 URL 安全的随机令牌值
// n 为随机字节数，编码后长度约为 n*4/3
func GenerateTokenValue(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("生成随机令牌失败: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MaskToken 令牌脱敏，仅保留前缀用于列表展示与日志
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:8] + "****"
}
