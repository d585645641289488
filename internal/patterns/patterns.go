package patterns

import (
	"regexp"
	"strings"
)

// Level is one tier of the NHS data security classification model.
type Level struct {
	Name        string
	Description string
	Handling    string
	Examples    []string
	RiskScore   int
}

// Library holds the fixed lookup tables shared by classification and
// validation: named field lists, value-shaped pattern matchers, anchored
// format validators and the ordered classification level table. It is
// immutable after construction.
type Library struct {
	PIIFields         []string
	ClinicalFields    []string
	ValuePatterns     map[string]*regexp.Regexp
	FormatPatterns    map[string]*regexp.Regexp
	OperationalFields map[string]bool

	levels []Level
}

// Default builds the standard library used across the toolkit.
func Default() *Library {
	return &Library{
		PIIFields: []string{
			"first_name", "last_name", "date_of_birth", "address", "postcode",
			"phone_number", "email", "nhs_number", "patient_id",
		},
		ClinicalFields: []string{
			"diagnosis", "condition", "medication", "test_type", "result",
			"blood_type", "primary_diagnosis", "secondary_diagnosis", "notes",
		},
		ValuePatterns: map[string]*regexp.Regexp{
			"nhs_number":  regexp.MustCompile(`\d{3}[-\s]?\d{3}[-\s]?\d{4}`),
			"uk_postcode": regexp.MustCompile(`[A-Z]{1,2}[0-9][A-Z0-9]? ?[0-9][A-Z]{2}`),
			"uk_phone":    regexp.MustCompile(`(?:(?:\+|00)44|0)(?:\d\s?){9,10}`),
			"email":       regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
			"date":        regexp.MustCompile(`\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{4}[-/]\d{1,2}[-/]\d{1,2}`),
		},
		FormatPatterns: map[string]*regexp.Regexp{
			"nhs_number":  regexp.MustCompile(`^\d{3}[-\s]?\d{3}[-\s]?\d{4}$`),
			"uk_postcode": regexp.MustCompile(`^[A-Z]{1,2}[0-9][A-Z0-9]? ?[0-9][A-Z]{2}$`),
			"uk_phone":    regexp.MustCompile(`^(?:(?:\+|00)44|0)(?:\d\s?){9,10}$`),
			"iso_date":    regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
			"email":       regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`),
			"nhs_email":   regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.nhs\.uk$`),
		},
		OperationalFields: map[string]bool{
			"created_at": true,
			"updated_at": true,
			"staff_id":   true,
			"department": true,
			"trust_name": true,
		},
		levels: []Level{
			{
				Name:        "PUBLIC",
				Description: "Information that can be made public without restrictions",
				Handling:    "No special handling required",
				Examples:    []string{"Public health information", "Service locations", "General guidance"},
				RiskScore:   0,
			},
			{
				Name:        "INTERNAL",
				Description: "Non-sensitive information for internal use only",
				Handling:    "Can be shared with NHS staff but not externally",
				Examples:    []string{"Internal procedures", "Staff directories", "Non-sensitive operational data"},
				RiskScore:   1,
			},
			{
				Name:        "CONFIDENTIAL",
				Description: "Sensitive information with limited access",
				Handling:    "Access restricted to authorized personnel with legitimate need",
				Examples:    []string{"De-identified patient data", "Staff records", "Business sensitive information"},
				RiskScore:   2,
			},
			{
				Name:        "RESTRICTED",
				Description: "Highly sensitive personal or clinical information",
				Handling:    "Strict access controls, encryption required, audit logging mandatory",
				Examples:    []string{"Patient identifiable data", "Health records", "Special category data"},
				RiskScore:   3,
			},
		},
	}
}

// Levels returns the classification levels in ascending risk order.
func (l *Library) Levels() []Level {
	return l.levels
}

// LevelByName looks up a classification level by its name.
func (l *Library) LevelByName(name string) (Level, bool) {
	for _, lvl := range l.levels {
		if lvl.Name == name {
			return lvl, true
		}
	}
	return Level{}, false
}

// LevelByScore returns the first level (in ascending defined order) carrying
// the given risk score. This ordering is the tiebreak for dataset rollups.
func (l *Library) LevelByScore(score int) (Level, bool) {
	for _, lvl := range l.levels {
		if lvl.RiskScore == score {
			return lvl, true
		}
	}
	return Level{}, false
}

// IsPIIField reports whether a column name names a PII field.
func (l *Library) IsPIIField(columnName string) bool {
	return containsAny(columnName, l.PIIFields)
}

// IsClinicalField reports whether a column name names clinical data.
func (l *Library) IsClinicalField(columnName string) bool {
	return containsAny(columnName, l.ClinicalFields)
}

// IsOperationalField reports whether a column name is exactly one of the
// operational metadata fields.
func (l *Library) IsOperationalField(columnName string) bool {
	return l.OperationalFields[strings.ToLower(columnName)]
}

func containsAny(columnName string, fields []string) bool {
	lower := strings.ToLower(columnName)
	for _, f := range fields {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}
