package utils

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nhstools/datagovernor/pkg/models"
	"github.com/sirupsen/logrus"
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("DATAGOV_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	logger.Infof("Logging configured with level: %s", level)
	return logger
}

// LoadEnvironmentVariables loads environment variables from a .env file if
// one exists. Every setting has a default, so a missing file is fine.
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) {
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
	}

	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Error loading %s file: %v", envFile, err)
		} else {
			logger.Infof("Loaded environment variables from %s", envFile)
		}
	} else {
		logger.Infof("No %s file found, using existing environment variables", envFile)
	}

	if logger.Level == logrus.DebugLevel {
		for _, env := range os.Environ() {
			if strings.HasPrefix(env, "DATAGOV_") {
				parts := strings.SplitN(env, "=", 2)
				if len(parts) == 2 {
					logger.Debugf("%s=%s", parts[0], parts[1])
				}
			}
		}
	}
}

// GetEnvInt gets an integer value from environment variable
func GetEnvInt(varName string, defaultValue int) int {
	value := os.Getenv(varName)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// GetEnvInt64 gets an int64 value from environment variable
func GetEnvInt64(varName string, defaultValue int64) int64 {
	value := os.Getenv(varName)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// PrintQualitySummary prints a summary of a batch validation run
func PrintQualitySummary(summary *models.QualitySummary) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("DATA QUALITY VALIDATION SUMMARY")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Total datasets processed: %d\n", summary.TotalDatasets)
	fmt.Printf("Successfully validated datasets: %d\n", summary.SuccessfulDatasets)
	fmt.Printf("Failed datasets: %d\n", summary.TotalDatasets-summary.SuccessfulDatasets)

	if summary.AverageQualityScore != nil {
		fmt.Printf("Average quality score: %.1f (%s)\n", *summary.AverageQualityScore, summary.OverallInterpretation)
	}

	names := make([]string, 0, len(summary.Datasets))
	for name := range summary.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nPer-dataset scores:")
	for _, name := range names {
		entry := summary.Datasets[name]
		if entry.OverallScore != nil {
			fmt.Printf("  - %s: %.1f (%s)\n", name, *entry.OverallScore, entry.Interpretation)
		} else {
			fmt.Printf("  - %s: FAILED (%s)\n", name, entry.Error)
		}
	}

	fmt.Println(strings.Repeat("=", 50))
}

// PrintClassificationSummary prints a summary of a batch classification run
func PrintClassificationSummary(summary *models.ClassificationSummary) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("DATA CLASSIFICATION SUMMARY")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Total datasets processed: %d\n", summary.TotalDatasets)
	fmt.Printf("Successfully classified datasets: %d\n", summary.SuccessfulDatasets)
	fmt.Printf("Failed datasets: %d\n", summary.TotalDatasets-summary.SuccessfulDatasets)

	if summary.AveragePIIDensity != nil {
		fmt.Printf("Average PII density: %.1f%%\n", *summary.AveragePIIDensity)
	}

	levels := make([]string, 0, len(summary.LevelCounts))
	for level := range summary.LevelCounts {
		levels = append(levels, level)
	}
	sort.Strings(levels)

	fmt.Println("\nDatasets per classification level:")
	for _, level := range levels {
		fmt.Printf("  - %s: %d\n", level, summary.LevelCounts[level])
	}

	if len(summary.Errors) > 0 {
		fmt.Println("\nFailed datasets:")
		names := make([]string, 0, len(summary.Errors))
		for name := range summary.Errors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  - %s: %s\n", name, summary.Errors[name])
		}
	}

	fmt.Println(strings.Repeat("=", 50))
}

// PrintQualityReport prints the validation outcome for one dataset
func PrintQualityReport(report *models.QualityReport) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Printf("QUALITY REPORT: %s\n", report.FileName)
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Records: %d | Columns: %d | Columns validated: %d\n",
		report.RecordCount, report.ColumnCount, report.ColumnsValidated)

	if report.QualityScore != nil {
		fmt.Printf("Overall score: %.1f (%s)\n", report.QualityScore.OverallScore, report.QualityScore.Interpretation)

		dimensions := make([]string, 0, len(report.QualityScore.DimensionScores))
		for dimension := range report.QualityScore.DimensionScores {
			dimensions = append(dimensions, dimension)
		}
		sort.Strings(dimensions)
		for _, dimension := range dimensions {
			score := report.QualityScore.DimensionScores[dimension]
			if score != nil {
				fmt.Printf("  - %s: %.1f\n", dimension, *score)
			} else {
				fmt.Printf("  - %s: not measured\n", dimension)
			}
		}
	}

	for _, result := range report.ColumnResults {
		if len(result.RulesFailed) == 0 {
			continue
		}
		fmt.Printf("\nColumn %s failed %d rule(s):\n", result.Column, len(result.RulesFailed))
		for _, failed := range result.RulesFailed {
			if failed.Error != "" {
				fmt.Printf("  - %s: error: %s\n", failed.Rule, failed.Error)
			} else {
				fmt.Printf("  - %s: %d unexpected (%.1f%%)\n", failed.Rule, *failed.UnexpectedCount, *failed.UnexpectedPercent)
			}
		}
	}

	fmt.Println(strings.Repeat("=", 50))
}

// PrintClassificationReport prints the classification outcome for one dataset
func PrintClassificationReport(report *models.ClassificationReport) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Printf("CLASSIFICATION REPORT: %s\n", report.FileName)
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Overall classification: %s (risk score %d)\n", report.OverallClassification, report.OverallRiskScore)
	fmt.Printf("PII density: %.1f%%\n", report.PIIDensity)
	fmt.Printf("Handling: %s\n", report.Handling)

	fmt.Println("\nColumns:")
	for _, column := range report.Columns {
		marker := ""
		if column.ContainsPII {
			marker = " [PII: " + strings.Join(column.PIITypes, ", ") + "]"
		}
		fmt.Printf("  - %s: %s%s\n", column.ColumnName, column.Classification, marker)
	}

	fmt.Println(strings.Repeat("=", 50))
}
