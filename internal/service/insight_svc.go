package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"adboard_dev_v1_202601/internal/model"
	"adboard_dev_v1_202601/internal/repository"
)

// ==================== 服务实现 ====================

// InsightService 洞察审批服务
type InsightService struct {
	insightRepo repository.InsightRepository
}

// NewInsightService 创建洞察服务
func NewInsightService(insightRepo repository.InsightRepository) *InsightService {
	return &InsightService{insightRepo: insightRepo}
}

// Approve 审批通过
func (s *InsightService) Approve(ctx context.Context, id int64, reviewerID int64) (*model.Insight, error) {
	return s.review(ctx, id, model.InsightStatusApproved, reviewerID)
}

// Reject 审批拒绝
func (s *InsightService) Reject(ctx context.Context, id int64, reviewerID int64) (*model.Insight, error) {
	return s.review(ctx, id, model.InsightStatusRejected, reviewerID)
}

// review 审批状态可反复改写，最终态以最后一次审批为准
func (s *InsightService) review(ctx context.Context, id int64, status string, reviewerID int64) (*model.Insight, error) {
	if _, err := s.insightRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInsightNotFound
		}
		return nil, err
	}
	if err := s.insightRepo.UpdateStatus(ctx, id, status, reviewerID); err != nil {
		return nil, err
	}
	return s.insightRepo.GetByID(ctx, id)
}

// ==================== 错误定义 ====================

var (
	ErrInsightNotFound = errors.New("洞察不存在")
)
