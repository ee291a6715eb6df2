package utils

import "fmt"

// RosterValidation 整份名册的校验结果
type RosterValidation struct {
	Valid           bool              `json:"valid"`
	Errors          []string          `json:"errors"`
	Warnings        []string          `json:"warnings"`
	NormalizedNames []string          `json:"normalizedNames"`
	Duplicates      DuplicateAnalysis `json:"-"`
}

// ValidateEngineerNames 逐个校验姓名并做名单级查重。
// 人数上下限由调度器负责，这里只管姓名本身
func ValidateEngineerNames(names []string) RosterValidation {
	result := RosterValidation{
		Errors:          []string{},
		Warnings:        []string{},
		NormalizedNames: make([]string, 0, len(names)),
	}

	for i, name := range names {
		nv := ValidateName(name)
		if !nv.Valid {
			for _, msg := range nv.Errors {
				result.Errors = append(result.Errors, fmt.Sprintf("Engineer %d: %s", i+1, msg))
			}
		}
		for _, msg := range nv.Warnings {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Engineer %d: %s", i+1, msg))
		}
		result.NormalizedNames = append(result.NormalizedNames, nv.Normalized)
	}

	result.Duplicates = AnalyzeNameDuplicates(names)
	for _, pair := range result.Duplicates.ExactDuplicates {
		result.Errors = append(result.Errors, fmt.Sprintf("Duplicate names: '%s' and '%s'", pair.First, pair.Second))
	}
	for _, pair := range result.Duplicates.CaseOnlyMatches {
		result.Errors = append(result.Errors, fmt.Sprintf("Names differ only by case: '%s' and '%s'", pair.First, pair.Second))
	}
	for _, pair := range result.Duplicates.SimilarNames {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Very similar names: '%s' and '%s' (%.1f%% similar)", pair.First, pair.Second, pair.Similarity*100))
	}

	result.Valid = len(result.Errors) == 0
	return result
}
