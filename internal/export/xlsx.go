package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dutyops-dev/duty-roster/backend/internal/scheduler"
)

const (
	sheetSchedule  = "Schedule"
	sheetFairness  = "Fairness Report"
	sheetSummary   = "Summary Metrics"
	sheetDecisions = "Decision Log"
	sheetMetadata  = "Metadata"
)

// XLSX 生成多工作表的 Excel 文件：
// 排班总表、公平性报告、汇总指标、决策日志和元信息各占一张表
func (m *Manager) XLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSchedule); err != nil {
		return nil, fmt.Errorf("重命名排班表失败: %w", err)
	}
	if err := m.writeScheduleSheet(f); err != nil {
		return nil, err
	}
	if err := m.writeFairnessSheets(f); err != nil {
		return nil, err
	}
	if err := m.writeDecisionSheet(f); err != nil {
		return nil, err
	}
	if err := m.writeMetadataSheet(f); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("写出 XLSX 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *Manager) writeScheduleSheet(f *excelize.File) error {
	rows := make([][]any, 0, len(m.result.Rows)+1)
	rows = append(rows, toAnyRow(m.result.Headers()))
	for _, row := range m.result.TabularRows() {
		rows = append(rows, toAnyRow(row))
	}
	return writeSheet(f, sheetSchedule, rows)
}

func (m *Manager) writeFairnessSheets(f *excelize.File) error {
	report := m.result.FairnessReport
	if report == nil {
		return nil
	}

	rows := [][]any{{
		"Engineer", "weekendCount", "oncallCount", "earlyCount",
		"chatCount", "appointmentsCount", "totalWorkDays", "leaveDays",
	}}
	for _, name := range m.result.Metadata.Engineers {
		stats := report.EngineerStats[name]
		rows = append(rows, []any{
			name, stats.WeekendCount, stats.OnCallCount, stats.EarlyCount,
			stats.ChatCount, stats.AppointmentsCount, stats.TotalWorkDays, stats.LeaveDays,
		})
	}
	if _, err := f.NewSheet(sheetFairness); err != nil {
		return fmt.Errorf("创建公平性报告表失败: %w", err)
	}
	if err := writeSheet(f, sheetFairness, rows); err != nil {
		return err
	}

	summary := [][]any{
		{"Metric", "Value"},
		{"Equity Score", report.EquityScore},
		{"Max-Min Delta (OnCall)", report.MaxMinDeltas[string(scheduler.RoleOnCall)]},
		{"Max-Min Delta (Weekend)", report.MaxMinDeltas[string(scheduler.RoleWeekend)]},
		{"Max-Min Delta (Early)", report.MaxMinDeltas[string(scheduler.RoleEarly)]},
		{"Max-Min Delta (Chat)", report.MaxMinDeltas[string(scheduler.RoleChat)]},
		{"Max-Min Delta (Appointments)", report.MaxMinDeltas[string(scheduler.RoleAppointments)]},
	}
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("创建汇总指标表失败: %w", err)
	}
	return writeSheet(f, sheetSummary, summary)
}

func (m *Manager) writeDecisionSheet(f *excelize.File) error {
	if len(m.result.DecisionLog) == 0 {
		return nil
	}

	rows := [][]any{{
		"date", "decisionType", "affectedEngineers", "reason", "alternativesConsidered", "timestamp",
	}}
	for _, entry := range m.result.DecisionLog {
		rows = append(rows, []any{
			entry.Date,
			entry.Type,
			strings.Join(entry.Affected, ", "),
			entry.Reason,
			strings.Join(entry.Alternatives, ", "),
			entry.Timestamp.Format(time.RFC3339),
		})
	}
	if _, err := f.NewSheet(sheetDecisions); err != nil {
		return fmt.Errorf("创建决策日志表失败: %w", err)
	}
	return writeSheet(f, sheetDecisions, rows)
}

func (m *Manager) writeMetadataSheet(f *excelize.File) error {
	meta := m.result.Metadata
	rows := [][]any{
		{"Property", "Value"},
		{"Schema Version", meta.SchemaVersion},
		{"Generation Timestamp", meta.GeneratedAt.Format(time.RFC3339)},
		{"Engineer Count", meta.EngineerCount},
		{"Weeks", meta.Weeks},
		{"Start Date", meta.StartDate.Format(time.DateOnly)},
		{"End Date", meta.EndDate.Format(time.DateOnly)},
		{"Total Days", meta.TotalDays},
	}

	// 配置项按键名排序，保证同样的输入产出同样的文件
	keys := make([]string, 0, len(meta.Configuration))
	for key := range meta.Configuration {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		rows = append(rows, []any{"Config: " + key, fmt.Sprintf("%v", meta.Configuration[key])})
	}

	if _, err := f.NewSheet(sheetMetadata); err != nil {
		return fmt.Errorf("创建元信息表失败: %w", err)
	}
	return writeSheet(f, sheetMetadata, rows)
}

func writeSheet(f *excelize.File, sheet string, rows [][]any) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("计算单元格坐标失败: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("写入 %s 第 %d 行失败: %w", sheet, i+1, err)
		}
	}
	return nil
}

func toAnyRow(fields []string) []any {
	row := make([]any, len(fields))
	for i, field := range fields {
		row[i] = field
	}
	return row
}
