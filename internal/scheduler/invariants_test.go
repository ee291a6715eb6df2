package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var checkerRoster = []string{"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank"}

// healthyRows 构造一周无违规的排班行作为各检查的基准
func healthyRows(t *testing.T) []Row {
	t.Helper()

	s, err := New(&Parameters{
		Engineers:   checkerRoster,
		StartSunday: date(2024, time.January, 7),
		Weeks:       1,
	})
	require.NoError(t, err)
	result, err := s.Generate()
	require.NoError(t, err)
	return result.Rows
}

func TestCheckAllCleanSchedule(t *testing.T) {
	rows := healthyRows(t)
	checker := NewInvariantChecker(checkerRoster)
	require.Empty(t, checker.CheckAll(rows, nil, date(2024, time.January, 7), 1))
}

func TestCheckNoOnCallWeekends(t *testing.T) {
	rows := healthyRows(t)
	rows[6].OnCall = "Alice" // 周六

	checker := NewInvariantChecker(checkerRoster)
	violations := checker.CheckAll(rows, nil, date(2024, time.January, 7), 1)

	require.NotEmpty(t, violations)
	found := findViolation(violations, ViolationNoOnCallWeekends)
	require.NotNil(t, found)
	require.Equal(t, SeverityError, found.Severity)
	require.Contains(t, found.Engineers, "Alice")
	require.Contains(t, found.Dates, "2024-01-13")
}

func TestCheckStatusFieldIntegrity(t *testing.T) {
	t.Run("engineer name in a status cell", func(t *testing.T) {
		rows := healthyRows(t)
		rows[1].Engineers[0].Status = "Bob"

		checker := NewInvariantChecker(checkerRoster)
		violations := checker.CheckAll(rows, nil, date(2024, time.January, 7), 1)

		found := findViolation(violations, ViolationStatusFieldIntegrity)
		require.NotNil(t, found)
		require.Equal(t, SeverityError, found.Severity)
	})

	t.Run("unknown status value", func(t *testing.T) {
		rows := healthyRows(t)
		rows[1].Engineers[0].Status = "SICK"

		checker := NewInvariantChecker(checkerRoster)
		violations := checker.CheckAll(rows, nil, date(2024, time.January, 7), 1)
		require.NotNil(t, findViolation(violations, ViolationStatusFieldIntegrity))
	})
}

func TestCheckEngineerFieldIntegrity(t *testing.T) {
	t.Run("time string leaked into a role column", func(t *testing.T) {
		rows := healthyRows(t)
		rows[1].Early2 = "06:45-15:45"

		checker := NewInvariantChecker(checkerRoster)
		violations := checker.CheckAll(rows, nil, date(2024, time.January, 7), 1)

		found := findViolation(violations, ViolationEngineerFieldIntegrity)
		require.NotNil(t, found)
		require.Contains(t, found.Message, "06:45-15:45")
	})

	t.Run("unknown engineer name", func(t *testing.T) {
		rows := healthyRows(t)
		rows[1].Chat = "Mallory"

		checker := NewInvariantChecker(checkerRoster)
		violations := checker.CheckAll(rows, nil, date(2024, time.January, 7), 1)
		require.NotNil(t, findViolation(violations, ViolationEngineerFieldIntegrity))
	})
}

func TestCheckDoubleBooking(t *testing.T) {
	t.Run("oncall doubling as first early slot is exempt", func(t *testing.T) {
		rows := healthyRows(t)
		for _, row := range rows {
			if isWeekday(row.Date) {
				require.Equal(t, row.OnCall, row.Early1)
			}
		}
		checker := NewInvariantChecker(checkerRoster)
		violations := checker.CheckAll(rows, nil, date(2024, time.January, 7), 1)
		require.Nil(t, findViolation(violations, ViolationDoubleBooking))
	})

	t.Run("same engineer in two role columns", func(t *testing.T) {
		rows := healthyRows(t)
		rows[1].Appointments = rows[1].Chat

		checker := NewInvariantChecker(checkerRoster)
		violations := checker.CheckAll(rows, nil, date(2024, time.January, 7), 1)

		found := findViolation(violations, ViolationDoubleBooking)
		require.NotNil(t, found)
		require.Equal(t, SeverityError, found.Severity)
		require.Contains(t, found.Engineers, rows[1].Chat)
	})
}

func TestCheckLeaveExclusivity(t *testing.T) {
	rows := healthyRows(t)
	leave := []LeaveRecord{{Engineer: rows[1].Chat, Date: rows[1].Date}}

	checker := NewInvariantChecker(checkerRoster)
	violations := checker.CheckAll(rows, leave, date(2024, time.January, 7), 1)

	found := findViolation(violations, ViolationLeaveExclusivity)
	require.NotNil(t, found)
	require.Equal(t, SeverityError, found.Severity)
	require.Contains(t, found.Engineers, rows[1].Chat)
}

func TestCheckDateContinuity(t *testing.T) {
	t.Run("gap in dates", func(t *testing.T) {
		rows := healthyRows(t)
		rows[3].Date = rows[3].Date.AddDate(0, 0, 1)

		checker := NewInvariantChecker(checkerRoster)
		violations := checker.CheckAll(rows, nil, date(2024, time.January, 7), 1)
		require.NotNil(t, findViolation(violations, ViolationDateContinuity))
	})

	t.Run("wrong row count", func(t *testing.T) {
		rows := healthyRows(t)

		checker := NewInvariantChecker(checkerRoster)
		violations := checker.CheckAll(rows[:6], nil, date(2024, time.January, 7), 1)

		found := findViolation(violations, ViolationDateContinuity)
		require.NotNil(t, found)
		require.Contains(t, found.Message, "expected 7 rows")
	})
}

func TestCheckFairness(t *testing.T) {
	newReport := func(oncallCounts map[string]int) *FairnessReport {
		stats := make(map[string]EngineerStats, len(checkerRoster))
		for _, name := range checkerRoster {
			stats[name] = EngineerStats{Name: name, OnCallCount: oncallCounts[name]}
		}
		return &FairnessReport{EngineerStats: stats}
	}

	checker := NewInvariantChecker(checkerRoster)

	t.Run("delta within one passes", func(t *testing.T) {
		report := newReport(map[string]int{"Alice": 2, "Bob": 1, "Charlie": 1, "Diana": 1, "Eve": 1, "Frank": 1})
		require.Empty(t, checker.CheckFairness(report))
	})

	t.Run("delta of two warns", func(t *testing.T) {
		report := newReport(map[string]int{"Alice": 2})
		violations := checker.CheckFairness(report)
		require.Len(t, violations, 1)
		require.Equal(t, ViolationFairnessDistribution, violations[0].Kind)
		require.Equal(t, SeverityWarning, violations[0].Severity)
	})

	t.Run("delta above two escalates to error", func(t *testing.T) {
		report := newReport(map[string]int{"Alice": 3})
		violations := checker.CheckFairness(report)
		require.Len(t, violations, 1)
		require.Equal(t, SeverityError, violations[0].Severity)
	})

	t.Run("nil report is ignored", func(t *testing.T) {
		require.Empty(t, checker.CheckFairness(nil))
	})
}

func TestSummarizeViolations(t *testing.T) {
	violations := []Violation{
		{Kind: ViolationDoubleBooking, Severity: SeverityError, Message: "double booked"},
		{Kind: ViolationFairnessDistribution, Severity: SeverityWarning, Message: "uneven"},
		{Kind: ViolationFairnessDistribution, Severity: SeverityError, Message: "very uneven"},
	}

	summary := SummarizeViolations(violations)

	require.Equal(t, 3, summary.Total)
	require.Equal(t, 2, summary.BySeverity[SeverityError])
	require.Equal(t, 1, summary.BySeverity[SeverityWarning])
	require.Equal(t, 2, summary.ByKind[ViolationFairnessDistribution])
	require.Equal(t, []string{"double booked", "very uneven"}, summary.Critical)
	require.Len(t, summary.Violations, 3)

	t.Run("empty input yields an empty summary", func(t *testing.T) {
		summary := SummarizeViolations(nil)
		require.Equal(t, 0, summary.Total)
		require.Empty(t, summary.Critical)
		require.NotNil(t, summary.Violations)
	})
}

func findViolation(violations []Violation, kind string) *Violation {
	for i := range violations {
		if violations[i].Kind == kind {
			return &violations[i]
		}
	}
	return nil
}
