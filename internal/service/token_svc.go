package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"adboard_dev_v1_202601/internal/api/dto"
	"adboard_dev_v1_202601/internal/model"
	"adboard_dev_v1_202601/internal/repository"
	"adboard_dev_v1_202601/pkg/utils"
)

// 分享会话有效期
const shareSessionTTL = 24 * time.Hour

// ==================== 功能开关错误 ====================

// FeatureDisabledError 功能未开启错误，携带开关名供前端给出可操作提示
type FeatureDisabledError struct {
	Flag string
}

func (e *FeatureDisabledError) Error() string {
	return fmt.Sprintf("零售商功能未开启: %s", e.Flag)
}

// ==================== 服务实现 ====================

// TokenService 访问令牌签发与分享视图校验
type TokenService struct {
	tokenRepo    repository.AccessTokenRepository
	retailerRepo repository.RetailerRepository
	reportRepo   repository.ReportRepository
	insightRepo  repository.InsightRepository
	snapshotRepo repository.SnapshotRepository

	shareBaseURL string
}

// NewTokenService 创建令牌服务
func NewTokenService(
	tokenRepo repository.AccessTokenRepository,
	retailerRepo repository.RetailerRepository,
	reportRepo repository.ReportRepository,
	insightRepo repository.InsightRepository,
	snapshotRepo repository.SnapshotRepository,
	shareBaseURL string,
) *TokenService {
	return &TokenService{
		tokenRepo:    tokenRepo,
		retailerRepo: retailerRepo,
		reportRepo:   reportRepo,
		insightRepo:  insightRepo,
		snapshotRepo: snapshotRepo,
		shareBaseURL: shareBaseURL,
	}
}

// ==================== 签发 ====================

// Issue 签发访问令牌
// 令牌类型取显式指定值，缺省按作用域推导：锁定报告为 report_access，
// 否则为 live_data。功能开关缺失一律拒绝（fail-closed）。同作用域旧令牌自动停用。
func (s *TokenService) Issue(ctx context.Context, req *dto.IssueTokenRequest, issuerID int64) (*dto.IssueTokenResponse, error) {
	retailer, err := s.retailerRepo.GetByID(ctx, req.RetailerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRetailerNotFound
		}
		return nil, err
	}
	if !retailer.Features.CanAccessShareview {
		return nil, &FeatureDisabledError{Flag: model.FeatureCanAccessShareview}
	}

	// 类型确定：显式指定优先，但必须与报告作用域一致
	tokenType := model.TokenTypeLiveData
	if req.ReportID != nil {
		tokenType = model.TokenTypeReportAccess
	}
	if req.TokenType != "" {
		if !model.IsValidTokenType(req.TokenType) {
			return nil, fmt.Errorf("非法的令牌类型: %s", req.TokenType)
		}
		if req.TokenType != tokenType {
			if req.ReportID != nil {
				return nil, errors.New("锁定报告的令牌类型必须为 report_access")
			}
			return nil, errors.New("report_access 令牌必须锁定报告")
		}
		tokenType = req.TokenType
	}

	if tokenType == model.TokenTypeReportAccess {
		if !retailer.Features.EnableReports {
			return nil, &FeatureDisabledError{Flag: model.FeatureEnableReports}
		}
		report, err := s.reportRepo.GetByID(ctx, *req.ReportID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrReportNotFound
			}
			return nil, err
		}
		if report.RetailerID != req.RetailerID {
			return nil, errors.New("报告不属于该零售商")
		}
	} else if !retailer.Features.EnableLiveData {
		return nil, &FeatureDisabledError{Flag: model.FeatureEnableLiveData}
	}

	value, err := utils.GenerateTokenValue(48)
	if err != nil {
		return nil, err
	}

	var passwordHash string
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		passwordHash = string(hash)
	}

	var expiresAt *time.Time
	if req.ExpiresInDays > 0 {
		t := time.Now().AddDate(0, 0, req.ExpiresInDays)
		expiresAt = &t
	}

	token := &model.AccessToken{
		RetailerID:   req.RetailerID,
		Token:        value,
		TokenType:    tokenType,
		ReportID:     req.ReportID,
		PasswordHash: passwordHash,
		ExpiresAt:    expiresAt,
		IsActive:     true,
		CreatedBy:    issuerID,
	}
	if err := s.tokenRepo.IssueExclusive(ctx, token); err != nil {
		return nil, err
	}

	log.Printf("[Token] 零售商 %d 签发 %s 令牌 %s", req.RetailerID, tokenType, token.Masked())

	// 明文只在签发响应里出现一次
	return &dto.IssueTokenResponse{
		ID:        token.ID,
		Token:     value,
		TokenType: tokenType,
		ShareURL:  fmt.Sprintf("%s/share/%s", s.shareBaseURL, value),
		ExpiresAt: expiresAt,
	}, nil
}

// List 令牌列表（脱敏）
func (s *TokenService) List(ctx context.Context, req *dto.ListTokensRequest) (*dto.ListTokensResponse, error) {
	tokens, total, err := s.tokenRepo.List(ctx, repository.TokenFilter{
		RetailerID: req.RetailerID,
		TokenType:  req.TokenType,
		ActiveOnly: req.ActiveOnly,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.ListTokensResponse{Total: total, Items: make([]dto.TokenVO, 0, len(tokens))}
	for i := range tokens {
		t := &tokens[i]
		resp.Items = append(resp.Items, dto.TokenVO{
			ID:          t.ID,
			RetailerID:  t.RetailerID,
			TokenMasked: t.Masked(),
			TokenType:   t.TokenType,
			ReportID:    t.ReportID,
			HasPassword: t.HasPassword(),
			ExpiresAt:   t.ExpiresAt,
			IsActive:    t.IsActive,
			CreatedAt:   t.CreatedAt,
		})
	}
	return resp, nil
}

// Revoke 停用单个令牌（逻辑停用，保留审计记录）
func (s *TokenService) Revoke(ctx context.Context, id int64) error {
	if _, err := s.tokenRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTokenNotFound
		}
		return err
	}
	return s.tokenRepo.DeactivateByID(ctx, id)
}

// RevokeByRetailer 批量停用零售商的令牌，tokenType 为空时全部停用
func (s *TokenService) RevokeByRetailer(ctx context.Context, retailerID int64, tokenType string) error {
	if tokenType != "" && !model.IsValidTokenType(tokenType) {
		return fmt.Errorf("非法的令牌类型: %s", tokenType)
	}
	return s.tokenRepo.DeactivateByRetailer(ctx, retailerID, tokenType)
}

// ==================== 校验与分享视图 ====================

// ResolveShareView 校验令牌并组装外部只读视图
// 校验顺序：存在性 → 活跃 → 过期 → 功能开关 → 口令 → 作用域可见性
func (s *TokenService) ResolveShareView(ctx context.Context, tokenValue, sessionID string) (*dto.ShareViewVO, error) {
	token, err := s.resolveToken(ctx, tokenValue)
	if err != nil {
		return nil, err
	}

	retailer, err := s.retailerRepo.GetByID(ctx, token.RetailerID)
	if err != nil {
		return nil, ErrAccessNotAvailable
	}
	// 开关实时复查：签发后被关闭的零售商立即失去访问
	if !retailer.Features.CanAccessShareview {
		return nil, ErrAccessNotAvailable
	}

	if token.HasPassword() && !s.hasValidSession(tokenValue, sessionID) {
		return nil, ErrPasswordRequired
	}

	// 作用域以 report_id 为准；类型字段不一致时仅告警
	if token.ReportID != nil {
		if token.TokenType != model.TokenTypeReportAccess {
			log.Printf("[Token] 令牌 %s 类型 %s 与报告作用域不一致，按报告处理", token.Masked(), token.TokenType)
		}
		return s.buildReportView(ctx, token, retailer)
	}
	return s.buildLiveView(ctx, retailer)
}

// VerifyPassword 口令质询，通过后返回会话标识
func (s *TokenService) VerifyPassword(ctx context.Context, tokenValue, password string) (string, error) {
	token, err := s.resolveToken(ctx, tokenValue)
	if err != nil {
		return "", err
	}
	if !token.HasPassword() {
		return "", errors.New("该令牌未设置口令")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(token.PasswordHash), []byte(password)); err != nil {
		return "", ErrPasswordInvalid
	}

	sessionID := uuid.NewString()
	utils.SetCacheWithTTL(sessionKey(tokenValue, sessionID), true, shareSessionTTL)
	return sessionID, nil
}

// ==================== 内部方法 ====================

func (s *TokenService) resolveToken(ctx context.Context, tokenValue string) (*model.AccessToken, error) {
	token, err := s.tokenRepo.GetByValue(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	if !token.IsActive {
		return nil, ErrTokenNotFound
	}
	// 过期惰性判定，不做后台清扫
	if token.IsExpired(time.Now()) {
		return nil, ErrTokenExpired
	}
	return token, nil
}

func (s *TokenService) hasValidSession(tokenValue, sessionID string) bool {
	if sessionID == "" {
		return false
	}
	_, ok := utils.GetCache(sessionKey(tokenValue, sessionID))
	return ok
}

func sessionKey(tokenValue, sessionID string) string {
	return "share_sess:" + tokenValue + ":" + sessionID
}

// buildReportView 报告作用域视图：冻结配置 + 报告周期快照 + 已审批洞察
func (s *TokenService) buildReportView(ctx context.Context, token *model.AccessToken, retailer *model.Retailer) (*dto.ShareViewVO, error) {
	// 报告能力同样实时复查，签发后被关闭立即失去访问
	if !retailer.Features.EnableReports {
		return nil, ErrAccessNotAvailable
	}

	report, err := s.reportRepo.GetByID(ctx, *token.ReportID)
	if err != nil {
		return nil, ErrAccessNotAvailable
	}
	if !report.IsPublished() || report.IsArchived || report.HiddenFromRetailer {
		return nil, ErrAccessNotAvailable
	}

	// 冻结配置优先；历史数据未冻结时退回零售商实时配置
	visibility := report.Visibility
	if !visibility.IsFrozen() {
		visibility = retailer.FreezeVisibility()
	}

	view := &dto.ShareViewVO{
		Mode:           model.TokenTypeReportAccess,
		RetailerID:     retailer.ID,
		ReportID:       &report.ID,
		Title:          report.Title,
		PeriodStart:    report.PeriodStart.Format("2006-01-02"),
		PeriodEnd:      report.PeriodEnd.Format("2006-01-02"),
		VisibleTabs:    visibility.VisibleTabs,
		VisibleMetrics: visibility.VisibleMetrics,
		KeywordFilters: visibility.KeywordFilters,
		Domains:        []dto.ShareDomainVO{},
		Insights:       []dto.ShareInsightVO{},
	}

	for _, d := range report.Domains {
		domainVO := dto.ShareDomainVO{Domain: d.Domain}
		if snapshot, err := s.snapshotRepo.GetByScope(ctx, report.RetailerID, d.Domain, report.PeriodStart); err == nil {
			var metrics interface{}
			if json.Unmarshal(snapshot.Metrics, &metrics) == nil {
				domainVO.Metrics = metrics
			}
		}
		view.Domains = append(view.Domains, domainVO)

		if !report.IncludeInsights || d.AIInsightID == nil {
			continue
		}
		insight, err := s.insightRepo.GetByID(ctx, *d.AIInsightID)
		if err != nil {
			continue
		}
		// 需审批时仅透出已审批内容
		if report.InsightsRequireApproval && insight.Status != model.InsightStatusApproved {
			continue
		}
		var content interface{}
		_ = json.Unmarshal(insight.Content, &content)
		view.Insights = append(view.Insights, dto.ShareInsightVO{
			Domain:  d.Domain,
			Title:   insight.Title,
			Content: content,
		})
	}

	return view, nil
}

// buildLiveView 实时作用域视图：零售商当前配置 + 当月快照
func (s *TokenService) buildLiveView(ctx context.Context, retailer *model.Retailer) (*dto.ShareViewVO, error) {
	if !retailer.Features.EnableLiveData {
		return nil, ErrAccessNotAvailable
	}

	view := &dto.ShareViewVO{
		Mode:           model.TokenTypeLiveData,
		RetailerID:     retailer.ID,
		VisibleTabs:    retailer.Display.VisibleTabs,
		VisibleMetrics: retailer.Display.VisibleMetrics,
		KeywordFilters: retailer.Display.KeywordFilters,
		Domains:        []dto.ShareDomainVO{},
		Insights:       []dto.ShareInsightVO{},
	}

	now := time.Now()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	snapshots, err := s.snapshotRepo.ListByRetailerPeriod(ctx, retailer.ID, periodStart)
	if err != nil {
		return view, nil
	}
	for i := range snapshots {
		var metrics interface{}
		if json.Unmarshal(snapshots[i].Metrics, &metrics) != nil {
			continue
		}
		view.Domains = append(view.Domains, dto.ShareDomainVO{
			Domain:  snapshots[i].Domain,
			Metrics: metrics,
		})
	}
	return view, nil
}

// ==================== 错误定义 ====================

var (
	ErrTokenNotFound      = errors.New("令牌不存在或已停用")
	ErrTokenExpired       = errors.New("令牌已过期")
	ErrAccessNotAvailable = errors.New("当前内容不可访问")
	ErrPasswordRequired   = errors.New("需要口令")
	ErrPasswordInvalid    = errors.New("口令错误")
)
