package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dutyops-dev/duty-roster/backend/internal/scheduler"
)

func testResult(t *testing.T) *scheduler.Result {
	t.Helper()
	s, err := scheduler.New(&scheduler.Parameters{
		Engineers:   []string{"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank"},
		StartSunday: time.Date(2024, time.January, 7, 0, 0, 0, 0, time.UTC),
		Weeks:       1,
	})
	require.NoError(t, err)
	result, err := s.Generate()
	require.NoError(t, err)
	return result
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"", FormatJSON, false},
		{"CSV", FormatCSV, false},
		{" xlsx ", FormatXLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if tt.wantErr {
			require.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		require.Equal(t, tt.want, got)
	}
}

func TestJSONEnvelope(t *testing.T) {
	m := NewManager(testResult(t))
	data, err := m.JSON()
	require.NoError(t, err)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(data, &envelope))

	for _, key := range []string{
		"schemaVersion", "metadata", "schedule", "fairnessReport",
		"fairnessInsights", "decisionLog", "weekendCompensation", "violationSummary",
	} {
		require.Contains(t, envelope, key)
	}
	require.Equal(t, "2.0", envelope["schemaVersion"])

	meta := envelope["metadata"].(map[string]any)
	require.Equal(t, "2024-01-07", meta["startDate"])
	require.Equal(t, "2024-01-13", meta["endDate"])
	require.Equal(t, float64(6), meta["engineerCount"])
	require.Equal(t, float64(7), meta["totalDays"])

	schedule := envelope["schedule"].(map[string]any)
	headers := schedule["headers"].([]any)
	require.Equal(t, "Date", headers[0])
	require.Len(t, headers, 8+3*6)
	require.Len(t, schedule["rows"].([]any), 7)

	report := envelope["fairnessReport"].(map[string]any)
	stats := report["engineerStats"].(map[string]any)
	require.Len(t, stats, 6)
	require.Contains(t, stats, "Alice")

	require.NotEmpty(t, envelope["decisionLog"].([]any))
	require.Len(t, envelope["weekendCompensation"].([]any), 1)
}

func TestCSVFormat(t *testing.T) {
	m := NewManager(testResult(t))
	data, err := m.CSV()
	require.NoError(t, err)

	content := string(data)
	require.True(t, strings.HasPrefix(content, "\ufeff"))

	lines := strings.Split(strings.TrimRight(strings.TrimPrefix(content, "\ufeff"), "\n"), "\n")
	require.Len(t, lines, 4+1+7) // 注释、表头、七天

	require.Equal(t, "# Schema Version: 2.0", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "# Generated: "))
	require.Equal(t, "# Configuration: 6 engineers, 1 weeks", lines[2])
	require.Equal(t, "# Date Range: 2024-01-07 to 2024-01-13", lines[3])

	require.True(t, strings.HasPrefix(lines[4], `"Date","Day","WeekIndex"`))

	fieldCount := 8 + 3*6
	for _, line := range lines[4:] {
		require.True(t, strings.HasPrefix(line, `"`), "line %q", line)
		require.True(t, strings.HasSuffix(line, `"`), "line %q", line)
		require.Equal(t, fieldCount, strings.Count(line, `","`)+1, "line %q", line)
	}
}

func TestWriteQuotedRecord(t *testing.T) {
	var buf bytes.Buffer
	writeQuotedRecord(&buf, []string{`He said "hi"`, "a,b", ""})
	require.Equal(t, `"He said ""hi""","a,b",""`+"\n", buf.String())
}

func TestXLSXWorkbook(t *testing.T) {
	m := NewManager(testResult(t))
	data, err := m.XLSX()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{
		sheetSchedule, sheetFairness, sheetSummary, sheetDecisions, sheetMetadata,
	}, f.GetSheetList())

	rows, err := f.GetRows(sheetSchedule)
	require.NoError(t, err)
	require.Len(t, rows, 8)
	require.Equal(t, "Date", rows[0][0])
	require.Equal(t, "2024-01-07", rows[1][0])

	engineer, err := f.GetCellValue(sheetFairness, "A2")
	require.NoError(t, err)
	require.Equal(t, "Alice", engineer)

	metric, err := f.GetCellValue(sheetSummary, "A2")
	require.NoError(t, err)
	require.Equal(t, "Equity Score", metric)

	version, err := f.GetCellValue(sheetMetadata, "B2")
	require.NoError(t, err)
	require.Equal(t, "2.0", version)
}

func TestExportDispatch(t *testing.T) {
	m := NewManager(testResult(t))

	data, err := m.Export(FormatCSV)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("\xef\xbb\xbf")))

	data, err = m.Export(FormatJSON)
	require.NoError(t, err)
	require.True(t, json.Valid(data))
}

func TestFilename(t *testing.T) {
	m := NewManager(&scheduler.Result{Metadata: scheduler.Metadata{
		GeneratedAt:   time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC),
		EngineerCount: 6,
		Weeks:         2,
		StartDate:     time.Date(2024, time.January, 7, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC),
	}})

	require.Equal(t,
		"schedule_default_6eng_2wk_20240107-20240120_20240115_093000.csv",
		m.Filename(FormatCSV, ""))
	require.Equal(t,
		"schedule_summer_6eng_2wk_20240107-20240120_20240115_093000.xlsx",
		m.Filename(FormatXLSX, "summer"))
}
