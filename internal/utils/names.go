package utils

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// 工程师姓名清洗与查重。校验消息是对外契约，使用英文

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	periodRun     = regexp.MustCompile(`\.{2,}`)
	apostrophes   = regexp.MustCompile("[‘’`]")
	hyphens       = regexp.MustCompile("[–—−]")
	// 字母（含变音、西里尔、汉字）、空格、连字符、撇号和句点
	validNameChars = regexp.MustCompile(`^[a-zA-ZÀ-ÿĀ-žА-я\x{4e00}-\x{9fff}\s\-'.]+$`)
)

// NormalizeName 统一姓名写法：去首尾空白、NFC 归一、
// 折叠连续空白和句点、统一各种撇号与连字符
func NormalizeName(name string) string {
	if name == "" {
		return ""
	}

	name = strings.TrimSpace(name)
	name = norm.NFC.String(name)
	name = whitespaceRun.ReplaceAllString(name, " ")
	name = periodRun.ReplaceAllString(name, ".")
	name = apostrophes.ReplaceAllString(name, "'")
	name = hyphens.ReplaceAllString(name, "-")

	return name
}

// NameSimilarity 返回 0.0 到 1.0 的相似度，1.0 表示完全相同。
// 比较前先转小写，按编辑距离折算
func NameSimilarity(name1, name2 string) float64 {
	if name1 == "" || name2 == "" {
		return 0.0
	}

	n1 := strings.ToLower(strings.TrimSpace(name1))
	n2 := strings.ToLower(strings.TrimSpace(name2))
	if n1 == n2 {
		return 1.0
	}

	r1, r2 := []rune(n1), []rune(n2)
	maxLen := len(r1)
	if len(r2) > maxLen {
		maxLen = len(r2)
	}
	if maxLen == 0 {
		return 0.0
	}

	return float64(maxLen-levenshtein(r1, r2)) / float64(maxLen)
}

func levenshtein(s1, s2 []rune) int {
	if len(s1) < len(s2) {
		s1, s2 = s2, s1
	}
	if len(s2) == 0 {
		return len(s1)
	}

	previous := make([]int, len(s2)+1)
	current := make([]int, len(s2)+1)
	for j := range previous {
		previous[j] = j
	}

	for i, c1 := range s1 {
		current[0] = i + 1
		for j, c2 := range s2 {
			cost := 0
			if c1 != c2 {
				cost = 1
			}
			current[j+1] = min(previous[j+1]+1, min(current[j]+1, previous[j]+cost))
		}
		previous, current = current, previous
	}

	return previous[len(s2)]
}

// NameValidation 单个姓名的校验结果
type NameValidation struct {
	Valid      bool
	Normalized string
	Warnings   []string
	Errors     []string
}

// ValidateName 校验并归一单个姓名
func ValidateName(name string) NameValidation {
	if strings.TrimSpace(name) == "" {
		return NameValidation{Errors: []string{"Name cannot be empty"}}
	}

	normalized := NormalizeName(name)
	if normalized == "" {
		return NameValidation{Errors: []string{"Name is empty after normalization"}}
	}

	var errors, warnings []string

	if !validNameChars.MatchString(normalized) {
		errors = append(errors, "Name contains invalid characters. Use only letters, spaces, hyphens, apostrophes, and periods")
	}

	length := len([]rune(normalized))
	if length > 100 {
		errors = append(errors, "Name is too long (maximum 100 characters)")
	} else if length > 50 {
		warnings = append(warnings, "Name is quite long - consider using a shorter version")
	}

	if normalized != strings.TrimSpace(name) {
		warnings = append(warnings, "Name was normalized (whitespace or Unicode characters adjusted)")
	}

	if length > 3 {
		switch {
		case isAllUpper(normalized):
			warnings = append(warnings, "Name is all uppercase - consider proper capitalization")
		case isAllLower(normalized):
			warnings = append(warnings, "Name is all lowercase - consider proper capitalization")
		}
	}

	if hasRepeatedRun(normalized, 3) {
		warnings = append(warnings, "Name contains repeated characters - please verify spelling")
	}

	return NameValidation{
		Valid:      len(errors) == 0,
		Normalized: normalized,
		Warnings:   warnings,
		Errors:     errors,
	}
}

// isAllUpper 至少含一个有大小写的字母且全部为大写
func isAllUpper(s string) bool {
	return hasCased(s) && s == strings.ToUpper(s)
}

func isAllLower(s string) bool {
	return hasCased(s) && s == strings.ToLower(s)
}

func hasCased(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) || unicode.IsLower(r) {
			return true
		}
	}
	return false
}

// hasRepeatedRun 检测连续 n 个相同字符。regexp 不支持反向引用，手写扫描
func hasRepeatedRun(s string, n int) bool {
	var last rune
	run := 0
	for _, r := range s {
		if r == last {
			run++
			if run >= n {
				return true
			}
		} else {
			last = r
			run = 1
		}
	}
	return false
}

type DuplicatePair struct {
	First  string
	Second string
}

type SimilarPair struct {
	First      string
	Second     string
	Similarity float64
}

// DuplicateAnalysis 名单查重结果，配对里保留原始输入写法
type DuplicateAnalysis struct {
	ExactDuplicates []DuplicatePair
	SimilarNames    []SimilarPair
	CaseOnlyMatches []DuplicatePair
}

// AnalyzeNameDuplicates 两两比较归一后的姓名：
// 完全相同、大小写不同和相似度超过 0.8 的分别归类
func AnalyzeNameDuplicates(names []string) DuplicateAnalysis {
	analysis := DuplicateAnalysis{}
	normalized := make([]string, len(names))
	for i, name := range names {
		normalized[i] = NormalizeName(name)
	}

	for i := 0; i < len(normalized); i++ {
		for j := i + 1; j < len(normalized); j++ {
			n1, n2 := normalized[i], normalized[j]
			if n1 == "" || n2 == "" {
				continue
			}

			if strings.EqualFold(n1, n2) {
				if n1 == n2 {
					analysis.ExactDuplicates = append(analysis.ExactDuplicates, DuplicatePair{names[i], names[j]})
				} else {
					analysis.CaseOnlyMatches = append(analysis.CaseOnlyMatches, DuplicatePair{names[i], names[j]})
				}
				continue
			}

			if similarity := NameSimilarity(n1, n2); similarity > 0.8 {
				analysis.SimilarNames = append(analysis.SimilarNames, SimilarPair{names[i], names[j], similarity})
			}
		}
	}

	return analysis
}

// SuggestNames 给疑似拼错的姓名找最接近的候选，最多三个
func SuggestNames(name string, validNames []string) []string {
	if name == "" || len(validNames) == 0 {
		return nil
	}

	normalized := NormalizeName(name)
	type scored struct {
		name       string
		similarity float64
	}

	candidates := make([]scored, 0, len(validNames))
	for _, valid := range validNames {
		if similarity := NameSimilarity(normalized, valid); similarity > 0.6 {
			candidates = append(candidates, scored{valid, similarity})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})

	suggestions := make([]string, 0, 3)
	for _, c := range candidates {
		suggestions = append(suggestions, c.name)
		if len(suggestions) == 3 {
			break
		}
	}
	return suggestions
}
