package model

import (
	"database/sql"
	"database/sql/driver"
	"testing"
)

// JSON 列字段在模型里按值嵌入（Retailer.Features、Report.Visibility），
// 驱动拿到的是值而非指针，Value 必须挂在值接收者上才会被识别
var (
	_ driver.Valuer = FeatureSet{}
	_ driver.Valuer = DisplayConfig{}
	_ driver.Valuer = VisibilityConfig{}

	_ sql.Scanner = (*FeatureSet)(nil)
	_ sql.Scanner = (*DisplayConfig)(nil)
	_ sql.Scanner = (*VisibilityConfig)(nil)
)

func TestVisibilityConfig_ValueScanRoundTrip(t *testing.T) {
	original := VisibilityConfig{
		VisibleTabs:     []string{"overview", "keywords"},
		VisibleMetrics:  []string{"impressions"},
		KeywordFilters:  []string{"brand"},
		FeaturesEnabled: map[string]bool{FeatureEnableReports: true},
	}

	raw, err := original.Value()
	if err != nil {
		t.Fatalf("Value() 失败: %v", err)
	}

	var restored VisibilityConfig
	if err := restored.Scan(raw); err != nil {
		t.Fatalf("Scan() 失败: %v", err)
	}
	if len(restored.VisibleTabs) != 2 || restored.VisibleTabs[0] != "overview" {
		t.Errorf("VisibleTabs = %v", restored.VisibleTabs)
	}
	if !restored.FeaturesEnabled[FeatureEnableReports] {
		t.Error("FeaturesEnabled 丢失")
	}
	if !restored.IsFrozen() {
		t.Error("有内容的配置应判定为已冻结")
	}
}

func TestFeatureSet_ScanNilYieldsZero(t *testing.T) {
	var features FeatureSet
	if err := features.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) 失败: %v", err)
	}
	if features.EnableReports || features.CanAccessShareview {
		t.Error("NULL 列应解码为全关的零值")
	}
}
