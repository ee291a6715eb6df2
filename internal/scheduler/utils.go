package scheduler

import "sort"

// stableSortBy 按 key 升序稳定排序，key 相同的保持原有相对顺序
func stableSortBy(names []string, key func(string) int) {
	sort.SliceStable(names, func(i, j int) bool {
		return key(names[i]) < key(names[j])
	})
}

// sortByFloat 按 key 升序稳定排序浮点键
func sortByFloat(names []string, key func(string) float64) {
	sort.SliceStable(names, func(i, j int) bool {
		return key(names[i]) < key(names[j])
	})
}

// removeOne 删除切片中第一个等于 name 的元素
func removeOne(names []string, name string) []string {
	for i, e := range names {
		if e == name {
			return append(names[:i:i], names[i+1:]...)
		}
	}
	return names
}
