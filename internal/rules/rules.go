package rules

import (
	"regexp"
	"strings"

	"github.com/nhstools/datagovernor/internal/patterns"
)

// Kind enumerates the closed set of supported validation rules. There is no
// string-keyed dispatch: a rule outside this set cannot be constructed.
type Kind int

const (
	NotNull Kind = iota
	Unique
	MinLength
	MaxLength
	InList
	MatchRegex
	MatchTimeFormat
)

func (k Kind) String() string {
	switch k {
	case NotNull:
		return "not_null"
	case Unique:
		return "unique"
	case MinLength:
		return "min_length"
	case MaxLength:
		return "max_length"
	case InList:
		return "in_list"
	case MatchRegex:
		return "match_regex"
	case MatchTimeFormat:
		return "match_time_format"
	default:
		return "unknown"
	}
}

// Rule is one validation rule with its kind-specific parameter.
type Rule struct {
	Kind    Kind
	Length  int            // MinLength, MaxLength
	Allowed []string       // InList
	Pattern *regexp.Regexp // MatchRegex
	Layout  string         // MatchTimeFormat, a Go time layout
}

// NotNullRule requires zero null values.
func NotNullRule() Rule { return Rule{Kind: NotNull} }

// UniqueRule requires zero duplicate values.
func UniqueRule() Rule { return Rule{Kind: Unique} }

// MinLengthRule requires no value shorter than n characters.
func MinLengthRule(n int) Rule { return Rule{Kind: MinLength, Length: n} }

// MaxLengthRule requires no value longer than n characters.
func MaxLengthRule(n int) Rule { return Rule{Kind: MaxLength, Length: n} }

// InListRule requires every non-null value to be one of the allowed values.
func InListRule(allowed ...string) Rule { return Rule{Kind: InList, Allowed: allowed} }

// MatchRegexRule requires every non-null value to match the pattern.
func MatchRegexRule(pattern *regexp.Regexp) Rule { return Rule{Kind: MatchRegex, Pattern: pattern} }

// MatchTimeFormatRule requires every non-null value to parse under the layout.
func MatchTimeFormatRule(layout string) Rule { return Rule{Kind: MatchTimeFormat, Layout: layout} }

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

// ForDataset resolves the validation rules applicable to a dataset, keyed on
// substrings in its file name. Common timestamp rules apply to every dataset;
// the orchestrator skips rules whose target column is absent from the table.
func ForDataset(fileName string, lib *patterns.Library) map[string][]Rule {
	rules := map[string][]Rule{
		"created_at": {NotNullRule(), MatchTimeFormatRule(timestampLayout)},
		"updated_at": {MatchTimeFormatRule(timestampLayout)},
	}

	var family map[string][]Rule
	switch {
	case strings.Contains(fileName, "demographics"):
		family = map[string][]Rule{
			"patient_id":    {NotNullRule(), UniqueRule()},
			"nhs_number":    {NotNullRule(), UniqueRule(), MatchRegexRule(lib.FormatPatterns["nhs_number"])},
			"first_name":    {NotNullRule(), MinLengthRule(1)},
			"last_name":     {NotNullRule(), MinLengthRule(1)},
			"date_of_birth": {NotNullRule(), MatchRegexRule(lib.FormatPatterns["iso_date"])},
			"gender":        {NotNullRule(), InListRule("Male", "Female", "Other", "Unknown")},
			"postcode":      {NotNullRule(), MatchRegexRule(lib.FormatPatterns["uk_postcode"])},
			"phone_number":  {NotNullRule()},
			"email":         {MatchRegexRule(lib.FormatPatterns["email"])},
			"blood_type":    {InListRule("A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-")},
		}
	case strings.Contains(fileName, "medical_records"):
		family = map[string][]Rule{
			"record_id":           {NotNullRule(), UniqueRule()},
			"patient_id":          {NotNullRule()},
			"nhs_number":          {NotNullRule(), MatchRegexRule(lib.FormatPatterns["nhs_number"])},
			"visit_date":          {NotNullRule(), MatchTimeFormatRule(dateLayout)},
			"trust_name":          {NotNullRule()},
			"department":          {NotNullRule()},
			"primary_diagnosis":   {NotNullRule()},
			"attending_physician": {NotNullRule()},
		}
	case strings.Contains(fileName, "lab_results"):
		family = map[string][]Rule{
			"result_id":  {NotNullRule(), UniqueRule()},
			"record_id":  {NotNullRule()},
			"patient_id": {NotNullRule()},
			"nhs_number": {NotNullRule(), MatchRegexRule(lib.FormatPatterns["nhs_number"])},
			"test_type":  {NotNullRule()},
			"test_date":  {NotNullRule(), MatchTimeFormatRule(dateLayout)},
			"result":     {NotNullRule()},
		}
	case strings.Contains(fileName, "consent"):
		family = map[string][]Rule{
			"consent_id":    {NotNullRule(), UniqueRule()},
			"patient_id":    {NotNullRule()},
			"nhs_number":    {NotNullRule(), MatchRegexRule(lib.FormatPatterns["nhs_number"])},
			"consent_type":  {NotNullRule()},
			"consent_given": {NotNullRule()},
			"recorded_date": {NotNullRule(), MatchTimeFormatRule(dateLayout)},
		}
	case strings.Contains(fileName, "staff"):
		family = map[string][]Rule{
			"staff_id":   {NotNullRule(), UniqueRule()},
			"first_name": {NotNullRule()},
			"last_name":  {NotNullRule()},
			"job_title":  {NotNullRule()},
			"department": {NotNullRule()},
			"trust_name": {NotNullRule()},
			"nhs_email":  {NotNullRule(), MatchRegexRule(lib.FormatPatterns["nhs_email"]), UniqueRule()},
		}
	case strings.Contains(fileName, "audit"):
		family = map[string][]Rule{
			"log_id":        {NotNullRule(), UniqueRule()},
			"timestamp":     {NotNullRule(), MatchTimeFormatRule(timestampLayout)},
			"staff_id":      {NotNullRule()},
			"action":        {NotNullRule()},
			"resource_type": {NotNullRule()},
			"resource_id":   {NotNullRule()},
			"authorized":    {NotNullRule()},
		}
	}

	for column, rs := range family {
		rules[column] = rs
	}
	return rules
}
