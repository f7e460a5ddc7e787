package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// NewAPIClient 创建统一配置的 Resty 客户端
// 对外 HTTP 调用（AI 生成等）都走这里，超时与 UA 保持一致
func NewAPIClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "Adboard-Go-App/1.0")
}
