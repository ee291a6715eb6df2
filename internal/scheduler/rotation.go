package scheduler

import (
	"errors"
	"time"
)

// DateOnly 把时间截断到 UTC 零点，排班内部只关心日期
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NearestPreviousSunday 返回 d 当天或之前最近的星期日
func NearestPreviousSunday(d time.Time) time.Time {
	d = DateOnly(d)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// BuildRotation 把名册向左旋转 seed mod n 位，名册为空时返回错误
func BuildRotation(roster []string, seed int) ([]string, error) {
	n := len(roster)
	if n == 0 {
		return nil, errors.New("名册不能为空")
	}

	k := pythonMod(seed, n)
	rotated := make([]string, 0, n)
	rotated = append(rotated, roster[k:]...)
	rotated = append(rotated, roster[:k]...)
	return rotated, nil
}

// pythonMod 取模并保证结果非负，周序号为负时轮换才能正确回绕
func pythonMod(a, n int) int {
	return ((a % n) + n) % n
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// daysBetween 返回两个日期之间相差的天数（to - from）
func daysBetween(from, to time.Time) int {
	return int(DateOnly(to).Sub(DateOnly(from)) / (24 * time.Hour))
}

// weekIndexOf 返回 d 相对于起始星期日所属的周序号，起始周为 0
func weekIndexOf(startSunday, d time.Time) int {
	return floorDiv(daysBetween(startSunday, d), 7)
}

// isWeekday 判断是否为工作日（周一至周五）
func isWeekday(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// rotationPosition 计算某位工程师在指定角色轮换中的当日位置，作为选择的决定性排序键
func rotationPosition(roster []string, name string, seed, dayIdx int) int {
	n := len(roster)
	if n == 0 {
		return 0
	}
	base := 0
	for i, e := range roster {
		if e == name {
			base = i
			break
		}
	}
	return pythonMod(base+seed+dayIdx, n)
}

// rotationOrder 按当日轮换位置对候选人稳定排序，不考虑公平性
func rotationOrder(roster []string, candidates []string, seed, dayIdx int) []string {
	ordered := append([]string(nil), candidates...)
	stableSortBy(ordered, func(name string) int {
		return rotationPosition(roster, name, seed, dayIdx)
	})
	return ordered
}
