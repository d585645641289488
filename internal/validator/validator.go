package validator

import (
	"fmt"
	"time"

	"github.com/nhstools/datagovernor/internal/dataset"
	"github.com/nhstools/datagovernor/internal/rules"
	"github.com/nhstools/datagovernor/pkg/models"
)

// ValidateColumn runs a column's rule set and returns per-rule detail. An
// error raised while evaluating one rule is recorded as a failed entry and
// never aborts the remaining rules.
func ValidateColumn(col *dataset.Column, rs []rules.Rule, totalRows int) models.ColumnValidation {
	result := models.ColumnValidation{
		Column:      col.Name,
		RulesTested: []string{},
		RulesPassed: []string{},
		RulesFailed: []models.FailedRule{},
	}

	for _, r := range rs {
		name := r.Kind.String()
		result.RulesTested = append(result.RulesTested, name)

		unexpected, denominator, err := evaluate(col, r, totalRows)
		switch {
		case err != nil:
			result.RulesFailed = append(result.RulesFailed, models.FailedRule{
				Rule:  name,
				Error: err.Error(),
			})
		case unexpected == 0:
			result.RulesPassed = append(result.RulesPassed, name)
		default:
			count := unexpected
			percent := 0.0
			if denominator > 0 {
				percent = float64(unexpected) / float64(denominator) * 100
			}
			result.RulesFailed = append(result.RulesFailed, models.FailedRule{
				Rule:              name,
				UnexpectedCount:   &count,
				UnexpectedPercent: &percent,
			})
		}
	}

	if len(result.RulesTested) > 0 {
		result.PassPercentage = float64(len(result.RulesPassed)) / float64(len(result.RulesTested)) * 100
	}
	return result
}

// evaluate returns the number of values violating the rule and the population
// the failure percentage is taken over. Match rules are measured against the
// non-null subset; everything else against the full row count.
func evaluate(col *dataset.Column, r rules.Rule, totalRows int) (unexpected, denominator int, err error) {
	switch r.Kind {
	case rules.NotNull:
		return col.NullCount(), totalRows, nil

	case rules.Unique:
		return len(col.Values) - col.DistinctCount(), totalRows, nil

	case rules.MinLength:
		// Nulls measure as empty strings, so a null fails any positive minimum.
		short := 0
		for _, v := range col.Values {
			if len(v) < r.Length {
				short++
			}
		}
		return short, totalRows, nil

	case rules.MaxLength:
		long := 0
		for _, v := range col.Values {
			if len(v) > r.Length {
				long++
			}
		}
		return long, totalRows, nil

	case rules.InList:
		allowed := make(map[string]bool, len(r.Allowed))
		for _, a := range r.Allowed {
			allowed[a] = true
		}
		invalid := 0
		for _, v := range col.Values {
			if v != "" && !allowed[v] {
				invalid++
			}
		}
		return invalid, totalRows, nil

	case rules.MatchRegex:
		if r.Pattern == nil {
			return 0, 0, fmt.Errorf("match_regex rule on column %s has no pattern", col.Name)
		}
		invalid, nonNull := 0, 0
		for _, v := range col.Values {
			if v == "" {
				continue
			}
			nonNull++
			if !r.Pattern.MatchString(v) {
				invalid++
			}
		}
		return invalid, nonNull, nil

	case rules.MatchTimeFormat:
		if r.Layout == "" {
			return 0, 0, fmt.Errorf("match_time_format rule on column %s has no layout", col.Name)
		}
		invalid, nonNull := 0, 0
		for _, v := range col.Values {
			if v == "" {
				continue
			}
			nonNull++
			if _, perr := time.Parse(r.Layout, v); perr != nil {
				invalid++
			}
		}
		return invalid, nonNull, nil

	default:
		return 0, 0, fmt.Errorf("unsupported rule kind %d on column %s", r.Kind, col.Name)
	}
}
