package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newDailyRun(t *testing.T, mutate func(*Parameters)) *run {
	t.Helper()

	params := &Parameters{
		Engineers:   []string{"Alice", "Bob", "Charlie", "Diana", "Eve"},
		StartSunday: date(2024, time.January, 7),
		Weeks:       1,
	}
	if mutate != nil {
		mutate(params)
	}

	s, err := New(params)
	require.NoError(t, err)
	r, err := newRun(s.params)
	require.NoError(t, err)
	return r
}

func entriesOfType(log *decisionLog, decisionType string) []DecisionEntry {
	var matched []DecisionEntry
	for _, entry := range log.entries {
		if entry.Type == decisionType {
			matched = append(matched, entry)
		}
	}
	return matched
}

func TestAssignRoleSelection(t *testing.T) {
	r := newDailyRun(t, nil)
	monday := date(2024, time.January, 8)

	selected := r.assignRole(monday, 1, []string{"Alice", "Bob", "Charlie", "Diana", "Eve"}, RoleChat, roleAssignmentType(RoleChat))

	// 第 1 天的轮换位置让 Eve 回绕到最前
	require.Equal(t, "Eve", selected)
	require.Equal(t, 1.0, r.tracker.Count("Eve", RoleChat))

	entries := entriesOfType(r.log, "chat_assignment")
	require.Len(t, entries, 1)
	require.Equal(t, []string{"Eve"}, entries[0].Affected)
	require.Equal(t, "2024-01-08", entries[0].Date)
	require.Contains(t, entries[0].Reason, "fairness weighting")
	require.Contains(t, entries[0].Reason, "fairness weight 1.0 applied")
	require.Equal(t, []string{"Alice", "Bob", "Charlie"}, entries[0].Alternatives)
}

func TestAssignRoleEmptyPool(t *testing.T) {
	r := newDailyRun(t, nil)
	monday := date(2024, time.January, 8)

	selected := r.assignRole(monday, 1, nil, RoleChat, roleAssignmentType(RoleChat))
	require.Empty(t, selected)

	entries := entriesOfType(r.log, "chat_assignment_failure")
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Reason, "No engineers available")
	require.Equal(t, []string{"Manual assignment required"}, entries[0].Alternatives)
	require.Empty(t, entries[0].Affected)
}

func TestHandleUnavailability(t *testing.T) {
	r := newDailyRun(t, nil)
	monday := date(2024, time.January, 8)

	available := r.handleUnavailability(monday, RoleChat,
		[]string{"Alice", "Bob", "Charlie", "Diana"},
		[]string{"Alice", "Charlie"})

	require.Equal(t, []string{"Bob", "Diana"}, available)

	entries := entriesOfType(r.log, "chat_unavailability_handling")
	require.Len(t, entries, 1)
	require.ElementsMatch(t, []string{"Alice", "Charlie"}, entries[0].Affected)
	require.Contains(t, entries[0].Alternatives[0], "Bob")
	require.Contains(t, entries[0].Alternatives[0], "Diana")
}

func TestAlternativesAfter(t *testing.T) {
	order := []string{"Alice", "Bob", "Charlie", "Diana", "Eve"}

	t.Run("takes the next three", func(t *testing.T) {
		require.Equal(t, []string{"Charlie", "Diana", "Eve"}, alternativesAfter(order, "Bob", 3))
	})

	t.Run("wraps around without repeating the selected", func(t *testing.T) {
		require.Equal(t, []string{"Alice", "Bob", "Charlie"}, alternativesAfter(order, "Eve", 3))
	})

	t.Run("unknown selected yields nothing", func(t *testing.T) {
		require.Empty(t, alternativesAfter(order, "Mallory", 3))
	})

	t.Run("single candidate yields nothing", func(t *testing.T) {
		require.Empty(t, alternativesAfter([]string{"Alice"}, "Alice", 3))
	})

	t.Run("short order yields fewer than the limit", func(t *testing.T) {
		require.Equal(t, []string{"Bob", "Charlie"}, alternativesAfter(order[:3], "Alice", 3))
	})
}

func TestAssignOnCall(t *testing.T) {
	monday := date(2024, time.January, 8)
	friday := date(2024, time.January, 12)

	t.Run("avoids the current weekend worker", func(t *testing.T) {
		r := newDailyRun(t, nil)
		pool := []string{"Alice", "Bob", "Charlie", "Diana", "Eve"}

		selected := r.assignOnCall(monday, 1, 0, pool)

		require.NotEqual(t, "Alice", selected)
		entries := entriesOfType(r.log, DecisionEnhancedOnCall)
		require.Len(t, entries, 1)
		require.Equal(t, []string{selected}, entries[0].Affected)
		require.Contains(t, entries[0].Reason, "avoided weekend workers: Alice")
	})

	t.Run("friday also avoids next week's worker", func(t *testing.T) {
		r := newDailyRun(t, nil)
		pool := []string{"Alice", "Bob", "Charlie", "Diana", "Eve"}

		selected := r.assignOnCall(friday, 5, 0, pool)

		require.NotEqual(t, "Alice", selected)
		require.NotEqual(t, "Bob", selected)
		entries := entriesOfType(r.log, DecisionEnhancedOnCall)
		require.Len(t, entries, 1)
		require.Contains(t, entries[0].Reason, "avoided weekend workers: Alice, Bob")
	})

	t.Run("falls back to the full pool when only weekend workers remain", func(t *testing.T) {
		r := newDailyRun(t, nil)

		selected := r.assignOnCall(monday, 1, 0, []string{"Alice"})

		require.Equal(t, "Alice", selected)
		entries := entriesOfType(r.log, DecisionEnhancedOnCall)
		require.Len(t, entries, 1)
		require.Contains(t, entries[0].Reason, "fallback used")
		require.Contains(t, entries[0].Reason, "no non-weekend options available")
		require.Equal(t, []string{"Alice"}, entries[0].Affected)
	})

	t.Run("no avoidance note when weekend workers are not candidates", func(t *testing.T) {
		r := newDailyRun(t, nil)

		selected := r.assignOnCall(monday, 1, 0, []string{"Charlie", "Diana"})

		require.NotEmpty(t, selected)
		entries := entriesOfType(r.log, DecisionEnhancedOnCall)
		require.Len(t, entries, 1)
		require.NotContains(t, entries[0].Reason, "avoided")
	})

	t.Run("empty pool records a failure", func(t *testing.T) {
		r := newDailyRun(t, nil)

		selected := r.assignOnCall(monday, 1, 0, nil)

		require.Empty(t, selected)
		entries := entriesOfType(r.log, "oncall_assignment_failure")
		require.Len(t, entries, 1)
		require.Contains(t, entries[0].Reason, "No engineers available")
	})
}

func TestSelectBackfill(t *testing.T) {
	monday := date(2024, time.January, 8)

	t.Run("selects rested engineers outside the expected set", func(t *testing.T) {
		r := newDailyRun(t, func(p *Parameters) {
			p.Engineers = []string{"Alice", "Bob", "Charlie", "Diana"}
		})
		leaveToday := map[string]bool{"Bob": true}

		selected := r.selectBackfill(monday, 1, []string{"Alice"}, leaveToday, 2)

		require.ElementsMatch(t, []string{"Charlie", "Diana"}, selected)
		require.NotContains(t, selected, "Alice")
		require.NotContains(t, selected, "Bob")

		entries := entriesOfType(r.log, DecisionEnhancedBackfill)
		require.Len(t, entries, 1)
		require.Equal(t, selected, entries[0].Affected)
		require.Contains(t, entries[0].Reason, "fairness weighting")
	})

	t.Run("limited candidates are capped at availability", func(t *testing.T) {
		r := newDailyRun(t, func(p *Parameters) {
			p.Engineers = []string{"Alice", "Bob", "Charlie", "Diana"}
		})
		leaveToday := map[string]bool{"Bob": true, "Charlie": true}

		selected := r.selectBackfill(monday, 1, []string{"Alice"}, leaveToday, 3)
		require.Equal(t, []string{"Diana"}, selected)
	})

	t.Run("no candidates records a failure", func(t *testing.T) {
		r := newDailyRun(t, func(p *Parameters) {
			p.Engineers = []string{"Alice", "Bob", "Charlie", "Diana"}
		})

		selected := r.selectBackfill(monday, 1, []string{"Alice", "Bob", "Charlie", "Diana"}, nil, 1)

		require.Empty(t, selected)
		entries := entriesOfType(r.log, DecisionBackfillFailure)
		require.Len(t, entries, 1)
		require.Contains(t, entries[0].Reason, "No backfill candidates available")
		require.Equal(t, []string{"Manual assignment required"}, entries[0].Alternatives)
	})
}

func TestEnsureCoverage(t *testing.T) {
	monday := date(2024, time.January, 8)

	t.Run("backfill restores the weekday minimum", func(t *testing.T) {
		r := newDailyRun(t, nil)
		leaveToday := map[string]bool{"Bob": true, "Charlie": true}

		working := r.ensureCoverage(monday, 1, []string{"Alice", "Bob", "Charlie"}, []string{"Alice"}, leaveToday)

		require.Len(t, working, 3)
		require.Contains(t, working, "Alice")
		require.Empty(t, entriesOfType(r.log, DecisionLeaveCoverageWarning))
	})

	t.Run("warns when still short after backfill", func(t *testing.T) {
		r := newDailyRun(t, func(p *Parameters) {
			p.Engineers = []string{"Alice", "Bob", "Charlie", "Diana"}
		})
		leaveToday := map[string]bool{"Bob": true, "Charlie": true}

		working := r.ensureCoverage(monday, 1, []string{"Alice", "Bob", "Charlie"}, []string{"Alice"}, leaveToday)

		require.Equal(t, []string{"Alice", "Diana"}, working)
		warnings := entriesOfType(r.log, DecisionLeaveCoverageWarning)
		require.Len(t, warnings, 1)
		require.Contains(t, warnings[0].Reason, "Insufficient coverage")
	})
}

func TestAssignDayWeekday(t *testing.T) {
	r := newDailyRun(t, func(p *Parameters) {
		p.Engineers = []string{"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank"}
	})
	monday := date(2024, time.January, 8)

	row := r.assignDay(monday, 1)

	// 第 0 周值班人 Alice 走 Pattern A，上周值班人 Frank 周一不在岗
	require.Equal(t, "Alice", row.Chat)
	require.Equal(t, "Bob", row.OnCall)
	require.Equal(t, row.OnCall, row.Early1)
	require.Equal(t, "Charlie", row.Early2)
	require.Equal(t, "Diana", row.Appointments)
	require.Equal(t, []string{"Eve"}, row.Tickets)
	require.Equal(t, 0, row.WeekIndex)
	require.Equal(t, "Mon", row.Day)

	statuses := map[string]string{}
	shifts := map[string]string{}
	for _, cell := range row.Engineers {
		statuses[cell.Name] = cell.Status
		shifts[cell.Name] = cell.Shift
	}
	require.Equal(t, StatusOff, statuses["Frank"])
	require.Equal(t, StatusWork, statuses["Alice"])
	require.Equal(t, ShiftEarly, shifts["Bob"])
	require.Equal(t, ShiftEarly, shifts["Charlie"])
	require.Equal(t, ShiftStandard, shifts["Alice"])
	require.Empty(t, shifts["Frank"])
	require.Empty(t, r.conflicts)
}

func TestAssignDayWeekend(t *testing.T) {
	t.Run("quiet weekend has no roles", func(t *testing.T) {
		r := newDailyRun(t, func(p *Parameters) {
			p.Engineers = []string{"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank"}
		})
		saturday := date(2024, time.January, 13)

		row := r.assignDay(saturday, 6)

		require.Empty(t, row.OnCall)
		require.Empty(t, row.Chat)
		require.Empty(t, row.Early1)
		require.Empty(t, row.Appointments)
		require.Empty(t, r.log.entries)

		statuses := map[string]string{}
		shifts := map[string]string{}
		for _, cell := range row.Engineers {
			statuses[cell.Name] = cell.Status
			shifts[cell.Name] = cell.Shift
		}
		require.Equal(t, StatusWork, statuses["Alice"])
		require.Equal(t, ShiftWeekend, shifts["Alice"])
		require.Equal(t, StatusOff, statuses["Bob"])
	})

	t.Run("early slots filled when enabled", func(t *testing.T) {
		r := newDailyRun(t, func(p *Parameters) {
			p.Engineers = []string{"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank"}
			p.EarlyOnWeekends = true
		})
		saturday := date(2024, time.January, 13)

		row := r.assignDay(saturday, 6)

		require.Equal(t, "Alice", row.Early1)
		require.Empty(t, row.Early2)

		entries := entriesOfType(r.log, DecisionWeekendEarly)
		require.Len(t, entries, 1)
		require.Equal(t, []string{"Alice"}, entries[0].Affected)
		require.Equal(t, RoleWeights[RoleEarly], r.tracker.Count("Alice", RoleEarly))

		for _, cell := range row.Engineers {
			if cell.Name == "Alice" {
				require.Equal(t, ShiftEarly, cell.Shift)
			}
		}
	})
}

func TestAssignDayLeave(t *testing.T) {
	monday := date(2024, time.January, 8)
	r := newDailyRun(t, func(p *Parameters) {
		p.Engineers = []string{"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank"}
		p.Leave = []LeaveRecord{{Engineer: "Alice", Date: monday, Reason: "annual leave"}}
	})

	row := r.assignDay(monday, 1)

	exclusions := entriesOfType(r.log, DecisionLeaveExclusion)
	require.Len(t, exclusions, 1)
	require.Equal(t, []string{"Alice"}, exclusions[0].Affected)

	require.NotEqual(t, "Alice", row.Chat)
	require.NotEqual(t, "Alice", row.OnCall)
	require.NotEqual(t, "Alice", row.Early2)
	require.NotEqual(t, "Alice", row.Appointments)
	require.NotContains(t, row.Tickets, "Alice")

	for _, cell := range row.Engineers {
		if cell.Name == "Alice" {
			require.Equal(t, StatusLeave, cell.Status)
			require.Empty(t, cell.Shift)
		}
	}
}

func TestCheckDayConflicts(t *testing.T) {
	r := newDailyRun(t, nil)
	monday := date(2024, time.January, 8)

	t.Run("oncall doubling as first early slot is allowed", func(t *testing.T) {
		row := Row{Date: monday, OnCall: "Alice", Early1: "Alice", Chat: "Bob"}
		r.conflicts = nil
		r.checkDayConflicts(&row, map[string]bool{"Alice": true, "Bob": true})
		require.Empty(t, r.conflicts)
	})

	t.Run("detects other double bookings", func(t *testing.T) {
		row := Row{Date: monday, Chat: "Bob", Appointments: "Bob"}
		r.conflicts = nil
		r.checkDayConflicts(&row, map[string]bool{"Bob": true})
		require.Len(t, r.conflicts, 1)
		require.Equal(t, ViolationDoubleBooking, r.conflicts[0].Kind)
	})

	t.Run("detects assignments outside the working set", func(t *testing.T) {
		row := Row{Date: monday, Chat: "Eve"}
		r.conflicts = nil
		r.checkDayConflicts(&row, map[string]bool{"Alice": true})
		require.Len(t, r.conflicts, 1)
		require.Equal(t, ViolationEngineerFieldIntegrity, r.conflicts[0].Kind)
	})

	t.Run("detects weekend oncall", func(t *testing.T) {
		saturday := date(2024, time.January, 13)
		row := Row{Date: saturday, OnCall: "Alice"}
		r.conflicts = nil
		r.checkDayConflicts(&row, map[string]bool{"Alice": true})
		require.Len(t, r.conflicts, 1)
		require.Equal(t, ViolationNoOnCallWeekends, r.conflicts[0].Kind)
	})
}
