package models

// ColumnClassification holds the sensitivity assessment of a single column.
type ColumnClassification struct {
	ColumnName     string   `json:"column_name"`
	IsPII          bool     `json:"is_pii"`
	IsClinical     bool     `json:"is_clinical"`
	ContainsPII    bool     `json:"contains_pii"`
	PIITypes       []string `json:"pii_types"`
	Classification string   `json:"classification"`
	RiskScore      int      `json:"risk_score"`
	Handling       string   `json:"handling_requirements"`
}

// ClassificationReport is the persisted result of classifying one dataset.
type ClassificationReport struct {
	FileName              string                 `json:"file_name"`
	RecordCount           int                    `json:"record_count"`
	ColumnCount           int                    `json:"column_count"`
	ClassifiedAt          string                 `json:"classified_at"`
	ClassificationID      string                 `json:"classification_id"`
	Columns               []ColumnClassification `json:"columns"`
	OverallClassification string                 `json:"overall_classification"`
	OverallRiskScore      int                    `json:"overall_risk_score"`
	Handling              string                 `json:"handling_requirements"`
	ClassificationCounts  map[string]int         `json:"classification_counts"`
	PIIDensity            float64                `json:"pii_density"`
	Error                 string                 `json:"error,omitempty"`
	Status                string                 `json:"status,omitempty"`
}

// FailedRule records one rule that a column did not satisfy. Either the
// count/percentage pair or Error is set, never both.
type FailedRule struct {
	Rule              string   `json:"rule"`
	UnexpectedCount   *int     `json:"unexpected_count,omitempty"`
	UnexpectedPercent *float64 `json:"unexpected_percent,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// ColumnValidation is the outcome of running a column's rule set.
type ColumnValidation struct {
	Column         string       `json:"column"`
	RulesTested    []string     `json:"rules_tested"`
	RulesPassed    []string     `json:"rules_passed"`
	RulesFailed    []FailedRule `json:"rules_failed"`
	PassPercentage float64      `json:"pass_percentage"`
}

// ValueCount pairs a raw column value with its occurrence count.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnProfile holds descriptive statistics for one column. The numeric
// extras apply to number columns, the length extras to text-like columns;
// pointers are nil when the column is entirely null.
type ColumnProfile struct {
	DataType         string       `json:"data_type"`
	Count            int          `json:"count"`
	NullCount        int          `json:"null_count"`
	NullPercentage   float64      `json:"null_percentage"`
	UniqueCount      int          `json:"unique_count"`
	UniquePercentage float64      `json:"unique_percentage"`
	Min              *float64     `json:"min,omitempty"`
	Max              *float64     `json:"max,omitempty"`
	Mean             *float64     `json:"mean,omitempty"`
	Median           *float64     `json:"median,omitempty"`
	Std              *float64     `json:"std,omitempty"`
	MinLength        *int         `json:"min_length,omitempty"`
	MaxLength        *int         `json:"max_length,omitempty"`
	MeanLength       *float64     `json:"mean_length,omitempty"`
	FrequentValues   []ValueCount `json:"frequent_values,omitempty"`
}

// DatasetProfile collects the column profiles of one dataset.
type DatasetProfile struct {
	FileName    string                   `json:"file_name"`
	RecordCount int                      `json:"record_count"`
	ColumnCount int                      `json:"column_count"`
	ProfiledAt  string                   `json:"profiled_at"`
	ProfileID   string                   `json:"profile_id"`
	Columns     map[string]ColumnProfile `json:"columns"`
}

// QualityScore aggregates per-column validation outcomes into dimension
// scores and one weighted overall score. A dimension score is nil when no
// column tested a rule mapping to that dimension.
type QualityScore struct {
	OverallScore    float64             `json:"overall_score"`
	DimensionScores map[string]*float64 `json:"dimension_scores"`
	Interpretation  string              `json:"score_interpretation"`
	Weights         map[string]float64  `json:"weighted_dimensions"`
}

// QualityReport is the persisted result of a validation run over one dataset.
type QualityReport struct {
	FileName         string             `json:"file_name"`
	ValidationID     string             `json:"validation_id"`
	ValidatedAt      string             `json:"validated_at"`
	RecordCount      int                `json:"record_count"`
	ColumnCount      int                `json:"column_count"`
	ColumnsValidated int                `json:"columns_validated"`
	ColumnResults    []ColumnValidation `json:"column_results"`
	Profile          *DatasetProfile    `json:"data_profile,omitempty"`
	QualityScore     *QualityScore      `json:"quality_score,omitempty"`
	Error            string             `json:"error,omitempty"`
	Status           string             `json:"status,omitempty"`
}

// DatasetScoreSummary is one dataset's entry in a batch quality summary.
type DatasetScoreSummary struct {
	OverallScore    *float64            `json:"overall_score,omitempty"`
	Interpretation  string              `json:"interpretation,omitempty"`
	DimensionScores map[string]*float64 `json:"dimension_scores,omitempty"`
	Error           string              `json:"error,omitempty"`
	Status          string              `json:"status,omitempty"`
}

// QualitySummary aggregates a batch validation run over a directory.
type QualitySummary struct {
	TotalDatasets         int                            `json:"total_datasets"`
	SuccessfulDatasets    int                            `json:"successful_datasets"`
	ValidationDate        string                         `json:"validation_date"`
	Datasets              map[string]DatasetScoreSummary `json:"datasets"`
	AverageQualityScore   *float64                       `json:"average_quality_score,omitempty"`
	OverallInterpretation string                         `json:"overall_interpretation,omitempty"`
}

// ClassificationSummary aggregates a batch classification run.
type ClassificationSummary struct {
	TotalDatasets      int               `json:"total_datasets"`
	SuccessfulDatasets int               `json:"successful_datasets"`
	ClassificationDate string            `json:"classification_date"`
	LevelCounts        map[string]int    `json:"classification_summary"`
	AveragePIIDensity  *float64          `json:"average_pii_density,omitempty"`
	Errors             map[string]string `json:"errors,omitempty"`
}
