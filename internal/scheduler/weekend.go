package scheduler

import "time"

// weekendScheduler 维护种子化的周末轮换。
// 每周的选择在首次询问时确定并缓存，公平性加权模式下选择会计入 tracker，
// 因此询问顺序必须与日期循环一致，负的周序号永远走纯轮换且不计入。
type weekendScheduler struct {
	rotation []string
	seed     int
	weighted bool
	tracker  *FairnessTracker
	selected map[int]string
}

func newWeekendScheduler(rotation []string, seed int, weighted bool, tracker *FairnessTracker) *weekendScheduler {
	return &weekendScheduler{
		rotation: rotation,
		seed:     seed,
		weighted: weighted,
		tracker:  tracker,
		selected: make(map[int]string),
	}
}

// workerForWeek 返回第 week 周的周末值班人
func (w *weekendScheduler) workerForWeek(week int) string {
	if len(w.rotation) == 0 {
		return ""
	}
	if name, ok := w.selected[week]; ok {
		return name
	}

	n := len(w.rotation)
	var name string
	if week < 0 || !w.weighted {
		name = w.rotation[pythonMod(week, n)]
	} else {
		order := w.tracker.FairnessWeightedOrder(w.rotation, RoleWeekend, w.seed, 0)
		name = order[pythonMod(week, n)]
		w.tracker.Track(name, RoleWeekend, RoleWeights[RoleWeekend])
	}

	w.selected[week] = name
	return name
}

// worksToday 判断某位工程师当天是否应当在岗。
// 本周值班人走 Pattern A（周一至周四加周六），上周值班人走 Pattern B
// （周日、周二至周五，周日义务顺延到下一个日历周），其余人周一至周五。
// 同一人同时命中两种模式时 Pattern A 优先。
func (w *weekendScheduler) worksToday(engineer string, d, startSunday time.Time) bool {
	week := weekIndexOf(startSunday, d)
	current := w.workerForWeek(week)
	previous := w.workerForWeek(week - 1)

	wd := d.Weekday()
	if engineer == current {
		// Pattern A: Mon,Tue,Wed,Thu,Sat
		return wd == time.Monday || wd == time.Tuesday || wd == time.Wednesday ||
			wd == time.Thursday || wd == time.Saturday
	}
	if engineer == previous {
		// Pattern B: Sun,Tue,Wed,Thu,Fri
		return wd == time.Sunday || wd == time.Tuesday || wd == time.Wednesday ||
			wd == time.Thursday || wd == time.Friday
	}
	return isWeekday(d)
}

// compensationRecords 汇总全部周的调休记录。
// Pattern A 换当周周五，Pattern B 换当周周一（只在第 1 周起存在）；
// 同一人连续两个周末被选中时，当周的 B、A 两条记录就地合并为 "A+B"
func (w *weekendScheduler) compensationRecords(startSunday time.Time, weeks int) []CompensationRecord {
	records := make([]CompensationRecord, 0, weeks*2)

	for week := 0; week < weeks; week++ {
		weekStart := startSunday.AddDate(0, 0, week*7)

		if week >= 1 {
			records = append(records, CompensationRecord{
				Engineer:    w.workerForWeek(week - 1),
				WeekendDate: weekStart, // 本周周日
				CompDates:   []time.Time{weekStart.AddDate(0, 0, 1)},
				Pattern:     "B",
			})
		}

		a := CompensationRecord{
			Engineer:    w.workerForWeek(week),
			WeekendDate: weekStart.AddDate(0, 0, 6), // 本周周六
			CompDates:   []time.Time{weekStart.AddDate(0, 0, 5)},
			Pattern:     "A",
		}

		if last := len(records) - 1; last >= 0 &&
			records[last].Pattern == "B" &&
			records[last].Engineer == a.Engineer &&
			records[last].WeekendDate.Equal(weekStart) {
			records[last].Pattern = "A+B"
			records[last].CompDates = append(records[last].CompDates, a.CompDates...)
			continue
		}
		records = append(records, a)
	}
	return records
}
