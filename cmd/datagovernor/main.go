package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nhstools/datagovernor/internal/classifier"
	"github.com/nhstools/datagovernor/internal/compliance"
	"github.com/nhstools/datagovernor/internal/generator"
	"github.com/nhstools/datagovernor/internal/lineage"
	"github.com/nhstools/datagovernor/internal/monitor"
	"github.com/nhstools/datagovernor/internal/patterns"
	"github.com/nhstools/datagovernor/internal/utils"
	"github.com/nhstools/datagovernor/pkg/models"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		dataDir   string
		outputDir string
		envFile   string
		logLevel  string
	)

	var logger *logrus.Logger

	rootCmd := &cobra.Command{
		Use:   "datagovernor",
		Short: "A data governance toolkit for NHS-style healthcare datasets",
		Long: `NHS Data Governor

A Go toolkit that generates synthetic healthcare datasets and runs
governance checks over them: sensitivity classification, quality
validation, lineage tracking and GDPR compliance analysis.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = utils.SetupLogging(logLevel)
			utils.LoadEnvironmentVariables(envFile, logger)

			if !cmd.Flags().Changed("data-dir") {
				if env := os.Getenv("DATAGOV_DATA_DIR"); env != "" {
					dataDir = env
				}
			}
			if !cmd.Flags().Changed("output-dir") {
				if env := os.Getenv("DATAGOV_OUTPUT_DIR"); env != "" {
					outputDir = env
				}
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "data", "Directory holding the CSV datasets")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for report artifacts (default: subdirectories of the data directory)")
	rootCmd.PersistentFlags().StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")

	resolveOutput := func(subdir string) string {
		if outputDir != "" {
			return outputDir
		}
		return filepath.Join(dataDir, subdir)
	}

	var (
		patientCount int
		seed         int64
	)
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic NHS datasets",
		Run: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("patients") {
				patientCount = utils.GetEnvInt("DATAGOV_PATIENTS", patientCount)
			}
			if !cmd.Flags().Changed("seed") {
				seed = utils.GetEnvInt64("DATAGOV_SEED", seed)
			}

			gen := generator.New(patientCount, dataDir, logger)
			if seed != 0 {
				gen.Seed(seed)
			}
			if err := gen.GenerateAll(); err != nil {
				logger.Errorf("Data generation failed: %v", err)
				os.Exit(1)
			}
		},
	}
	generateCmd.Flags().IntVarP(&patientCount, "patients", "p", 1000, "Number of patients to generate")
	generateCmd.Flags().Int64VarP(&seed, "seed", "s", 0, "Random seed for reproducible output (0 uses a time-based seed)")

	var (
		classifyFile string
		classifySeed int64
		fullScan     bool
	)
	classifyCmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify dataset columns by sensitivity",
		Run: func(cmd *cobra.Command, args []string) {
			cls := classifier.New(patterns.Default(), logger)
			cls.FullScan = fullScan
			if cmd.Flags().Changed("seed") {
				cls.Seed(classifySeed)
			}
			mon := monitor.New(dataDir, resolveOutput("classified"), patterns.Default(), cls, logger)

			if classifyFile != "" {
				report, err := mon.ClassifyDataset(classifyFile)
				if err != nil {
					logger.Errorf("Classification failed: %v", err)
					os.Exit(1)
				}
				utils.PrintClassificationReport(report)
				return
			}

			summary, err := mon.ClassifyAll()
			if err != nil {
				logger.Errorf("Classification failed: %v", err)
				os.Exit(1)
			}
			utils.PrintClassificationSummary(summary)
			if summary.SuccessfulDatasets < summary.TotalDatasets {
				os.Exit(1)
			}
		},
	}
	classifyCmd.Flags().StringVarP(&classifyFile, "file", "f", "", "Classify a single dataset instead of the whole directory")
	classifyCmd.Flags().Int64Var(&classifySeed, "seed", 0, "Random seed for value sampling")
	classifyCmd.Flags().BoolVar(&fullScan, "full-scan", false, "Scan every value instead of sampling")

	var validateFile string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate, profile and score dataset quality",
		Run: func(cmd *cobra.Command, args []string) {
			lib := patterns.Default()
			mon := monitor.New(dataDir, resolveOutput("quality"), lib, classifier.New(lib, logger), logger)

			if validateFile != "" {
				report, err := mon.ValidateDataset(validateFile)
				if err != nil {
					logger.Errorf("Validation failed: %v", err)
					os.Exit(1)
				}
				utils.PrintQualityReport(report)
				return
			}

			summary, err := mon.ValidateAll()
			if err != nil {
				logger.Errorf("Validation failed: %v", err)
				os.Exit(1)
			}
			utils.PrintQualitySummary(summary)
			if summary.SuccessfulDatasets < summary.TotalDatasets {
				os.Exit(1)
			}
		},
	}
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "Validate a single dataset instead of the whole directory")

	var impactDataset string
	lineageCmd := &cobra.Command{
		Use:   "lineage",
		Short: "Track dataset relationships and generate lineage artifacts",
		Run: func(cmd *cobra.Command, args []string) {
			tracker := lineage.New(dataDir, resolveOutput("lineage"), logger)

			if impactDataset != "" {
				relationships, err := tracker.DetectRelationships()
				if err != nil {
					logger.Errorf("Relationship detection failed: %v", err)
					os.Exit(1)
				}
				graph := lineage.BuildGraph(relationships)
				if _, err := tracker.ImpactAnalysis(graph, impactDataset); err != nil {
					logger.Errorf("Impact analysis failed: %v", err)
					os.Exit(1)
				}
				return
			}

			if _, err := tracker.GenerateDocumentation(); err != nil {
				logger.Errorf("Lineage documentation failed: %v", err)
				os.Exit(1)
			}
		},
	}
	lineageCmd.Flags().StringVar(&impactDataset, "impact", "", "Run an impact analysis for one dataset only")

	complianceCmd := &cobra.Command{
		Use:   "compliance",
		Short: "Run GDPR compliance checks over the datasets",
		Run: func(cmd *cobra.Command, args []string) {
			mgr := compliance.New(dataDir, resolveOutput("compliance"), logger)
			assessment, err := mgr.RunAssessment()
			if err != nil {
				logger.Errorf("Compliance assessment failed: %v", err)
				os.Exit(1)
			}
			if assessment.OverallStatus != "Compliant" {
				os.Exit(1)
			}
		},
	}

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Print the latest validation and classification summaries",
		Run: func(cmd *cobra.Command, args []string) {
			found := false

			var quality models.QualitySummary
			qualityPath := filepath.Join(resolveOutput("quality"), "quality_summary.json")
			if err := readJSON(qualityPath, &quality); err != nil {
				logger.Warningf("No quality summary at %s, run validate first", qualityPath)
			} else {
				utils.PrintQualitySummary(&quality)
				found = true
			}

			var classification models.ClassificationSummary
			classificationPath := filepath.Join(resolveOutput("classified"), "classification_summary.json")
			if err := readJSON(classificationPath, &classification); err != nil {
				logger.Warningf("No classification summary at %s, run classify first", classificationPath)
			} else {
				utils.PrintClassificationSummary(&classification)
				found = true
			}

			if !found {
				os.Exit(1)
			}
		},
	}

	rootCmd.AddCommand(generateCmd, classifyCmd, validateCmd, lineageCmd, complianceCmd, reportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
