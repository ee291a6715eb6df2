// Package export 把调度结果序列化成对外交付的文件格式。
// JSON 是规范形态，CSV 和 XLSX 都从同一份结果导出，保证三种格式内容一致。
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dutyops-dev/duty-roster/backend/internal/scheduler"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat 解析用户提交的格式名
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("不支持的导出格式: %s", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

func (f Format) Extension() string {
	return "." + string(f)
}

// Manager 包装一次生成结果，按需导出各种格式
type Manager struct {
	result *scheduler.Result
}

func NewManager(result *scheduler.Result) *Manager {
	return &Manager{result: result}
}

// Export 按格式分派
func (m *Manager) Export(format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return m.CSV()
	case FormatXLSX:
		return m.XLSX()
	default:
		return m.JSON()
	}
}

// JSON 生成规范 JSON：顶层键固定，时间戳 RFC 3339，日期只保留年月日
func (m *Manager) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(m.envelope(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化导出 JSON 失败: %w", err)
	}
	return data, nil
}

func (m *Manager) envelope() map[string]any {
	meta := m.result.Metadata
	return map[string]any{
		"schemaVersion": meta.SchemaVersion,
		"metadata": map[string]any{
			"generationTimestamp": meta.GeneratedAt.Format(time.RFC3339),
			"configuration":       meta.Configuration,
			"engineers":           meta.Engineers,
			"engineerCount":       meta.EngineerCount,
			"weeks":               meta.Weeks,
			"startDate":           meta.StartDate.Format(time.DateOnly),
			"endDate":             meta.EndDate.Format(time.DateOnly),
			"totalDays":           meta.TotalDays,
			"schemaVersion":       meta.SchemaVersion,
		},
		"schedule": map[string]any{
			"headers": m.result.Headers(),
			"rows":    m.result.TabularRows(),
		},
		"fairnessReport":      m.result.FairnessReport,
		"fairnessInsights":    m.result.FairnessInsights,
		"decisionLog":         m.result.DecisionLog,
		"weekendCompensation": m.result.Compensations,
		"violationSummary":    m.result.Violations,
	}
}

// CSV 生成带 UTF-8 BOM 的 CSV。前四行是 # 注释形式的元信息，
// 之后按 RFC 4180 输出，所有字段一律加引号
func (m *Manager) CSV() ([]byte, error) {
	meta := m.result.Metadata

	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	fmt.Fprintf(&buf, "# Schema Version: %s\n", meta.SchemaVersion)
	fmt.Fprintf(&buf, "# Generated: %s\n", meta.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&buf, "# Configuration: %d engineers, %d weeks\n", meta.EngineerCount, meta.Weeks)
	fmt.Fprintf(&buf, "# Date Range: %s to %s\n",
		meta.StartDate.Format(time.DateOnly), meta.EndDate.Format(time.DateOnly))

	writeQuotedRecord(&buf, m.result.Headers())
	for _, row := range m.result.TabularRows() {
		writeQuotedRecord(&buf, row)
	}
	return buf.Bytes(), nil
}

// writeQuotedRecord 输出一行全引号字段。encoding/csv 只在必要时加引号，
// 而这里的格式要求每个字段都带引号，所以自己拼
func writeQuotedRecord(buf *bytes.Buffer, record []string) {
	for i, field := range record {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
}

// Filename 生成带配置、规模、日期范围和生成时间的文件名，
// 形如 schedule_default_6eng_2wk_20240107-20240120_20240115_093000.csv
func (m *Manager) Filename(format Format, configName string) string {
	if configName == "" {
		configName = "default"
	}
	meta := m.result.Metadata
	base := fmt.Sprintf("schedule_%s_%deng_%dwk_%s-%s_%s",
		configName,
		meta.EngineerCount,
		meta.Weeks,
		meta.StartDate.Format("20060102"),
		meta.EndDate.Format("20060102"),
		meta.GeneratedAt.Format("20060102_150405"),
	)
	return base + format.Extension()
}
