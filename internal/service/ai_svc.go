package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"adboard_dev_v1_202601/internal/model"
	"adboard_dev_v1_202601/internal/repository"
	"adboard_dev_v1_202601/pkg/utils"
)

// ==================== 配置 ====================

// AIConfig AI 服务配置
type AIConfig struct {
	ApiKey    string
	TextModel string
}

// ==================== 服务 ====================

// AIService 洞察生成服务，基于 Gemini 文本模型
type AIService struct {
	Config       *AIConfig
	client       *resty.Client
	snapshotRepo repository.SnapshotRepository
}

// NewAIService 创建 AI 服务
func NewAIService(cfg *AIConfig, snapshotRepo repository.SnapshotRepository) *AIService {
	// 固定模型配置
	if cfg.TextModel == "" {
		cfg.TextModel = "gemini-3-flash"
	}

	return &AIService{
		Config:       cfg,
		client:       utils.NewAPIClient(60 * time.Second),
		snapshotRepo: snapshotRepo,
	}
}

// ==================== 洞察生成 ====================

// insightGenerateResult 模型输出结构（要求 JSON-only 输出）
type insightGenerateResult struct {
	Summary         string   `json:"summary"`
	Highlights      []string `json:"highlights"`
	Recommendations []struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"recommendations"`
}

// BuildInsightsForDomain 为单个内容域生成洞察
// 返回一条面板洞察（必有）加零到多条建议洞察，全部处于待审状态
func (s *AIService) BuildInsightsForDomain(ctx context.Context, retailerID int64, domain string, periodStart, periodEnd time.Time) ([]model.Insight, error) {
	if s.Config.ApiKey == "" {
		return nil, fmt.Errorf("Gemini API Key 未配置")
	}

	metricsJSON := "{}"
	if snapshot, err := s.snapshotRepo.GetByScope(ctx, retailerID, domain, periodStart); err == nil && len(snapshot.Metrics) > 0 {
		metricsJSON = string(snapshot.Metrics)
	}

	prompt := fmt.Sprintf(`You are an advertising performance analyst for a retail media dashboard.

Section: %s
Period: %s to %s
Aggregated metrics (JSON): %s

Write a concise performance insight panel for this section.

Output Format (JSON only, no markdown):
{
  "summary": "2-3 sentence performance summary",
  "highlights": ["notable change 1", "notable change 2"],
  "recommendations": [
    {"title": "short action title", "body": "1-2 sentence actionable recommendation"}
  ]
}`, domain, periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"), metricsJSON)

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		s.Config.TextModel, s.Config.ApiKey)

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]interface{}{{"text": prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
		},
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		SetResult(&geminiResp).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("Gemini API 错误 [%d]: %s", resp.StatusCode(), resp.String())
	}
	if len(geminiResp.Candidates) == 0 {
		return nil, fmt.Errorf("无生成结果")
	}

	// 提取 JSON 文本
	var jsonText string
	for _, candidate := range geminiResp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				jsonText = part.Text
				break
			}
		}
	}

	var result insightGenerateResult
	if err := json.Unmarshal([]byte(jsonText), &result); err != nil {
		return nil, fmt.Errorf("解析生成结果失败: %v, raw: %s", err, jsonText)
	}

	return s.toInsights(retailerID, domain, periodStart, periodEnd, &result)
}

// toInsights 把模型输出转成洞察记录
func (s *AIService) toInsights(retailerID int64, domain string, periodStart, periodEnd time.Time, result *insightGenerateResult) ([]model.Insight, error) {
	panelContent, err := json.Marshal(map[string]interface{}{
		"summary":    result.Summary,
		"highlights": result.Highlights,
	})
	if err != nil {
		return nil, err
	}

	insights := []model.Insight{
		{
			RetailerID:  retailerID,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			Domain:      domain,
			Kind:        model.InsightKindPanel,
			Status:      model.InsightStatusPending,
			Title:       fmt.Sprintf("%s 表现洞察", domain),
			Content:     panelContent,
		},
	}

	for _, rec := range result.Recommendations {
		content, err := json.Marshal(map[string]string{"body": rec.Body})
		if err != nil {
			continue
		}
		insights = append(insights, model.Insight{
			RetailerID:  retailerID,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			Domain:      domain,
			Kind:        model.InsightKindRecommendation,
			Status:      model.InsightStatusPending,
			Title:       rec.Title,
			Content:     content,
		})
	}

	return insights, nil
}
