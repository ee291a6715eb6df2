package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkerForWeekPlainRotation(t *testing.T) {
	rotation := []string{"Alice", "Bob", "Charlie"}
	w := newWeekendScheduler(rotation, 0, false, NewFairnessTracker(rotation, 0))

	require.Equal(t, "Alice", w.workerForWeek(0))
	require.Equal(t, "Bob", w.workerForWeek(1))
	require.Equal(t, "Charlie", w.workerForWeek(2))
	require.Equal(t, "Alice", w.workerForWeek(3))
	// 第 -1 周回绕到轮换末尾
	require.Equal(t, "Charlie", w.workerForWeek(-1))
}

func TestWorkerForWeekFairnessWeighted(t *testing.T) {
	rotation := []string{"Alice", "Bob", "Charlie"}
	tracker := NewFairnessTracker(rotation, 0)
	w := newWeekendScheduler(rotation, 0, true, tracker)

	// 第 0 周：无历史，加权顺序等于轮换顺序
	require.Equal(t, "Alice", w.workerForWeek(0))
	require.Equal(t, RoleWeights[RoleWeekend], tracker.Count("Alice", RoleWeekend))

	// 第 1 周：Alice 负载最高排到最后，顺序变为 [Bob, Charlie, Alice]，取下标 1
	require.Equal(t, "Charlie", w.workerForWeek(1))

	t.Run("selection is memoized", func(t *testing.T) {
		require.Equal(t, "Alice", w.workerForWeek(0))
		require.Equal(t, RoleWeights[RoleWeekend], tracker.Count("Alice", RoleWeekend))
		require.Equal(t, 1, tracker.WeekendCount("Alice"))
	})

	t.Run("negative weeks use plain rotation and never track", func(t *testing.T) {
		before := tracker.Count("Charlie", RoleWeekend)
		require.Equal(t, "Charlie", w.workerForWeek(-1))
		require.Equal(t, before, tracker.Count("Charlie", RoleWeekend))
	})
}

func TestWorksToday(t *testing.T) {
	rotation := []string{"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank"}
	w := newWeekendScheduler(rotation, 0, false, NewFairnessTracker(rotation, 0))
	start := date(2024, time.January, 7) // 周日，第 0 周值班人 Alice，上周值班人 Frank

	days := map[time.Weekday]time.Time{
		time.Sunday:    date(2024, time.January, 7),
		time.Monday:    date(2024, time.January, 8),
		time.Tuesday:   date(2024, time.January, 9),
		time.Wednesday: date(2024, time.January, 10),
		time.Thursday:  date(2024, time.January, 11),
		time.Friday:    date(2024, time.January, 12),
		time.Saturday:  date(2024, time.January, 13),
	}

	t.Run("current weekend worker follows pattern A", func(t *testing.T) {
		want := map[time.Weekday]bool{
			time.Sunday: false, time.Monday: true, time.Tuesday: true,
			time.Wednesday: true, time.Thursday: true, time.Friday: false, time.Saturday: true,
		}
		for wd, d := range days {
			require.Equal(t, want[wd], w.worksToday("Alice", d, start), "weekday %s", wd)
		}
	})

	t.Run("previous weekend worker follows pattern B", func(t *testing.T) {
		want := map[time.Weekday]bool{
			time.Sunday: true, time.Monday: false, time.Tuesday: true,
			time.Wednesday: true, time.Thursday: true, time.Friday: true, time.Saturday: false,
		}
		for wd, d := range days {
			require.Equal(t, want[wd], w.worksToday("Frank", d, start), "weekday %s", wd)
		}
	})

	t.Run("everyone else works weekdays only", func(t *testing.T) {
		for wd, d := range days {
			require.Equal(t, isWeekday(d), w.worksToday("Charlie", d, start), "weekday %s", wd)
		}
	})

	t.Run("pattern A wins when one engineer holds both patterns", func(t *testing.T) {
		solo := newWeekendScheduler([]string{"Alice"}, 0, false, NewFairnessTracker([]string{"Alice"}, 0))
		require.False(t, solo.worksToday("Alice", days[time.Friday], start))
		require.False(t, solo.worksToday("Alice", days[time.Sunday], start))
		require.True(t, solo.worksToday("Alice", days[time.Saturday], start))
		require.True(t, solo.worksToday("Alice", days[time.Monday], start))
	})
}

func TestCompensationRecords(t *testing.T) {
	start := date(2024, time.January, 7)

	t.Run("single week emits only the pattern A record", func(t *testing.T) {
		rotation := []string{"Alice", "Bob"}
		w := newWeekendScheduler(rotation, 0, false, NewFairnessTracker(rotation, 0))

		records := w.compensationRecords(start, 1)
		require.Len(t, records, 1)
		require.Equal(t, "Alice", records[0].Engineer)
		require.Equal(t, "A", records[0].Pattern)
		require.Equal(t, date(2024, time.January, 13), records[0].WeekendDate)
		require.Equal(t, []time.Time{date(2024, time.January, 12)}, records[0].CompDates)
	})

	t.Run("later weeks emit B before A", func(t *testing.T) {
		rotation := []string{"Alice", "Bob"}
		w := newWeekendScheduler(rotation, 0, false, NewFairnessTracker(rotation, 0))

		records := w.compensationRecords(start, 2)
		require.Len(t, records, 3)

		require.Equal(t, "A", records[0].Pattern)
		require.Equal(t, "Alice", records[0].Engineer)

		// 第 1 周：先补上周值班人的 B 记录，再写本周的 A 记录
		require.Equal(t, "B", records[1].Pattern)
		require.Equal(t, "Alice", records[1].Engineer)
		require.Equal(t, date(2024, time.January, 14), records[1].WeekendDate)
		require.Equal(t, []time.Time{date(2024, time.January, 15)}, records[1].CompDates)

		require.Equal(t, "A", records[2].Pattern)
		require.Equal(t, "Bob", records[2].Engineer)
		require.Equal(t, date(2024, time.January, 20), records[2].WeekendDate)
		require.Equal(t, []time.Time{date(2024, time.January, 19)}, records[2].CompDates)
	})

	t.Run("same engineer on adjoining patterns merges into A+B", func(t *testing.T) {
		rotation := []string{"Alice"}
		w := newWeekendScheduler(rotation, 0, false, NewFairnessTracker(rotation, 0))

		records := w.compensationRecords(start, 2)
		require.Len(t, records, 2)

		merged := records[1]
		require.Equal(t, "A+B", merged.Pattern)
		require.Equal(t, "Alice", merged.Engineer)
		require.Equal(t, date(2024, time.January, 14), merged.WeekendDate)
		require.Equal(t, []time.Time{
			date(2024, time.January, 15), // 周一（B）
			date(2024, time.January, 19), // 周五（A）
		}, merged.CompDates)
	})
}
