package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nhstools/datagovernor/internal/classifier"
	"github.com/nhstools/datagovernor/internal/dataset"
	"github.com/nhstools/datagovernor/internal/patterns"
	"github.com/nhstools/datagovernor/internal/profiler"
	"github.com/nhstools/datagovernor/internal/rules"
	"github.com/nhstools/datagovernor/internal/scorer"
	"github.com/nhstools/datagovernor/internal/validator"
	"github.com/nhstools/datagovernor/pkg/models"
	"github.com/sirupsen/logrus"
)

const timestampLayout = "2006-01-02 15:04:05"

// Monitor orchestrates validation, profiling and classification runs over
// the datasets of a directory and persists the resulting reports.
type Monitor struct {
	DataDir    string
	OutputDir  string
	Library    *patterns.Library
	Classifier *classifier.Classifier
	Logger     *logrus.Logger
}

// New creates a monitor writing its reports under outputDir.
func New(dataDir, outputDir string, lib *patterns.Library, cls *classifier.Classifier, logger *logrus.Logger) *Monitor {
	return &Monitor{
		DataDir:    dataDir,
		OutputDir:  outputDir,
		Library:    lib,
		Classifier: cls,
		Logger:     logger,
	}
}

// ValidateDataset validates one dataset against its resolved rules, profiles
// every column, scores the outcome and persists the report. A failure to load
// the dataset is itself persisted as an error artifact.
func (m *Monitor) ValidateDataset(fileName string) (*models.QualityReport, error) {
	ds, err := dataset.Load(m.DataDir, fileName)
	if err != nil {
		report := &models.QualityReport{
			FileName:     fileName,
			ValidationID: uuid.NewString(),
			ValidatedAt:  time.Now().Format(timestampLayout),
			Error:        err.Error(),
			Status:       "failed",
		}
		if werr := m.writeJSON(baseName(fileName)+"_quality_error.json", report); werr != nil {
			m.Logger.Warningf("Failed to persist error artifact for %s: %v", fileName, werr)
		}
		return report, err
	}

	ruleSet := rules.ForDataset(fileName, m.Library)

	// Columns are validated in table order; rules for absent columns are
	// silently skipped.
	var results []models.ColumnValidation
	for i := range ds.Columns {
		col := &ds.Columns[i]
		rs, ok := ruleSet[col.Name]
		if !ok {
			continue
		}
		results = append(results, validator.ValidateColumn(col, rs, ds.RecordCount))
	}

	report := &models.QualityReport{
		FileName:         fileName,
		ValidationID:     uuid.NewString(),
		ValidatedAt:      time.Now().Format(timestampLayout),
		RecordCount:      ds.RecordCount,
		ColumnCount:      ds.ColumnCount(),
		ColumnsValidated: len(results),
		ColumnResults:    results,
		Profile:          profiler.ProfileDataset(ds),
		QualityScore:     scorer.Score(results),
	}

	if err := m.writeJSON(baseName(fileName)+"_quality.json", report); err != nil {
		return report, err
	}
	m.Logger.Infof("Validation complete for %s: overall score %.1f", fileName, report.QualityScore.OverallScore)
	return report, nil
}

// ValidateAll validates every CSV in the data directory. One dataset's
// failure is recorded and the batch continues; failed datasets are excluded
// from the summary averages.
func (m *Monitor) ValidateAll() (*models.QualitySummary, error) {
	files, err := dataset.List(m.DataDir)
	if err != nil {
		return nil, err
	}
	m.Logger.Infof("Found %d CSV files to validate in %s", len(files), m.DataDir)

	summary := &models.QualitySummary{
		TotalDatasets:  len(files),
		ValidationDate: time.Now().Format(timestampLayout),
		Datasets:       make(map[string]models.DatasetScoreSummary, len(files)),
	}

	scoreSum := 0.0
	for _, file := range files {
		report, err := m.ValidateDataset(file)
		if err != nil {
			m.Logger.Errorf("Error validating %s: %v", file, err)
			summary.Datasets[file] = models.DatasetScoreSummary{
				Error:  err.Error(),
				Status: "failed",
			}
			continue
		}

		score := report.QualityScore.OverallScore
		summary.Datasets[file] = models.DatasetScoreSummary{
			OverallScore:    &score,
			Interpretation:  report.QualityScore.Interpretation,
			DimensionScores: report.QualityScore.DimensionScores,
		}
		summary.SuccessfulDatasets++
		scoreSum += score
	}

	if summary.SuccessfulDatasets > 0 {
		avg := scoreSum / float64(summary.SuccessfulDatasets)
		summary.AverageQualityScore = &avg
		summary.OverallInterpretation = scorer.Interpret(avg)
	}

	if err := m.writeJSON("quality_summary.json", summary); err != nil {
		return summary, err
	}
	m.Logger.Infof("Validation complete for %d/%d datasets", summary.SuccessfulDatasets, summary.TotalDatasets)
	return summary, nil
}

// ClassifyDataset classifies one dataset and persists the report.
func (m *Monitor) ClassifyDataset(fileName string) (*models.ClassificationReport, error) {
	ds, err := dataset.Load(m.DataDir, fileName)
	if err != nil {
		report := &models.ClassificationReport{
			FileName:         fileName,
			ClassifiedAt:     time.Now().Format(timestampLayout),
			ClassificationID: uuid.NewString(),
			Error:            err.Error(),
			Status:           "failed",
		}
		if werr := m.writeJSON(baseName(fileName)+"_classification_error.json", report); werr != nil {
			m.Logger.Warningf("Failed to persist error artifact for %s: %v", fileName, werr)
		}
		return report, err
	}

	report := m.Classifier.ClassifyDataset(ds)
	if err := m.writeJSON(baseName(fileName)+"_classification.json", report); err != nil {
		return report, err
	}
	m.Logger.Infof("Classification complete for %s: %s", fileName, report.OverallClassification)
	return report, nil
}

// ClassifyAll classifies every CSV in the data directory and writes a
// directory-level summary of level counts and average PII density.
func (m *Monitor) ClassifyAll() (*models.ClassificationSummary, error) {
	files, err := dataset.List(m.DataDir)
	if err != nil {
		return nil, err
	}
	m.Logger.Infof("Found %d CSV files to classify in %s", len(files), m.DataDir)

	summary := &models.ClassificationSummary{
		TotalDatasets:      len(files),
		ClassificationDate: time.Now().Format(timestampLayout),
		LevelCounts:        make(map[string]int),
	}
	for _, level := range m.Library.Levels() {
		summary.LevelCounts[level.Name] = 0
	}

	densitySum := 0.0
	for _, file := range files {
		report, err := m.ClassifyDataset(file)
		if err != nil {
			m.Logger.Errorf("Error classifying %s: %v", file, err)
			if summary.Errors == nil {
				summary.Errors = make(map[string]string)
			}
			summary.Errors[file] = err.Error()
			continue
		}
		summary.LevelCounts[report.OverallClassification]++
		summary.SuccessfulDatasets++
		densitySum += report.PIIDensity
	}

	if summary.SuccessfulDatasets > 0 {
		avg := densitySum / float64(summary.SuccessfulDatasets)
		summary.AveragePIIDensity = &avg
	}

	if err := m.writeJSON("classification_summary.json", summary); err != nil {
		return summary, err
	}
	m.Logger.Infof("Classification complete for %d/%d datasets", summary.SuccessfulDatasets, summary.TotalDatasets)
	return summary, nil
}

// writeJSON persists a report under the output directory, creating it on
// first use.
func (m *Monitor) writeJSON(name string, v interface{}) error {
	if err := os.MkdirAll(m.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", m.OutputDir, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}
	path := filepath.Join(m.OutputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func baseName(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}
