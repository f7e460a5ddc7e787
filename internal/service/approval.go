package service

import (
	"adboard_dev_v1_202601/internal/model"
)

// ==================== 审批门 ====================
// 两条独立轴线：数据审批（以发布状态为信号）与洞察审批（逐条检查已链接的洞察）。
// 纯内存计算，不触库，便于在发布流程与详情接口中复用。

// ApprovalState 审批门计算结果
type ApprovalState struct {
	DataApproved     bool
	InsightsApproved bool
	// 仍处于待审/已拒状态的内容域（按报告内容域顺序）
	PendingInsights []string
}

// Ready 两条轴线都通过
func (s ApprovalState) Ready() bool {
	return s.DataApproved && s.InsightsApproved
}

// EvaluateApproval 计算报告当前的审批门状态
// insights 以洞察ID为键，未链接洞察的内容域不参与洞察轴判定
func EvaluateApproval(report *model.Report, insights map[int64]*model.Insight) ApprovalState {
	state := ApprovalState{
		DataApproved:     report.IsPublished(),
		InsightsApproved: true,
		PendingInsights:  []string{},
	}

	// 不含洞察或不要求审批时，洞察轴直接通过
	if !report.IncludeInsights || !report.InsightsRequireApproval {
		return state
	}

	for _, d := range report.Domains {
		if d.AIInsightID == nil {
			continue
		}
		insight, ok := insights[*d.AIInsightID]
		if !ok || insight.Status != model.InsightStatusApproved {
			state.InsightsApproved = false
			state.PendingInsights = append(state.PendingInsights, d.Domain)
		}
	}
	return state
}

// ShouldAutoApprove 创建时计算是否自动发布
// 数据需审批时一律手工；含洞察且洞察需审批时也必须走人工
func ShouldAutoApprove(features model.FeatureSet, includeInsights, insightsRequireApproval bool) bool {
	if features.DataRequiresApproval {
		return false
	}
	if includeInsights && insightsRequireApproval {
		return false
	}
	return true
}
