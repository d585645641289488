package classifier

import (
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/nhstools/datagovernor/internal/dataset"
	"github.com/nhstools/datagovernor/internal/patterns"
	"github.com/nhstools/datagovernor/pkg/models"
	"github.com/sirupsen/logrus"
)

// DefaultSampleSize bounds the number of non-null values scanned for PII
// patterns per column.
const DefaultSampleSize = 100

// Classifier assigns sensitivity classifications to columns and datasets.
//
// Pattern scanning runs over a bounded random sample of each column, so a
// sparse PII-bearing column can classify differently across runs. Seed pins
// the sample for reproducibility; FullScan disables sampling entirely.
type Classifier struct {
	Library    *patterns.Library
	Logger     *logrus.Logger
	SampleSize int
	FullScan   bool

	rng *rand.Rand
}

// New creates a classifier with the default sample size and a time-seeded
// sampler.
func New(lib *patterns.Library, logger *logrus.Logger) *Classifier {
	return &Classifier{
		Library:    lib,
		Logger:     logger,
		SampleSize: DefaultSampleSize,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed pins the sampling source so classification runs are reproducible.
func (c *Classifier) Seed(seed int64) {
	c.rng = rand.New(rand.NewSource(seed))
}

// ClassifyColumn classifies one column from its name and a sample of its
// values.
func (c *Classifier) ClassifyColumn(name string, values []string) models.ColumnClassification {
	isPII := c.Library.IsPIIField(name)
	isClinical := c.Library.IsClinicalField(name)

	piiTypes := make(map[string]bool)
	for _, v := range c.sample(values) {
		for kind, pattern := range c.Library.ValuePatterns {
			if pattern.MatchString(v) {
				piiTypes[kind] = true
			}
		}
	}
	containsPII := len(piiTypes) > 0

	var levelName string
	switch {
	case isClinical || (isPII && containsPII):
		levelName = "RESTRICTED"
	case isPII || containsPII:
		levelName = "CONFIDENTIAL"
	case c.Library.IsOperationalField(name):
		levelName = "INTERNAL"
	default:
		levelName = "PUBLIC"
	}
	level, _ := c.Library.LevelByName(levelName)

	kinds := make([]string, 0, len(piiTypes))
	for k := range piiTypes {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	return models.ColumnClassification{
		ColumnName:     name,
		IsPII:          isPII,
		IsClinical:     isClinical,
		ContainsPII:    containsPII,
		PIITypes:       kinds,
		Classification: level.Name,
		RiskScore:      level.RiskScore,
		Handling:       level.Handling,
	}
}

// ClassifyDataset classifies every column and rolls the results up to a
// dataset-level classification: the level of the highest-risk column wins,
// ties resolved by the level table's ascending order.
func (c *Classifier) ClassifyDataset(ds *dataset.Dataset) *models.ClassificationReport {
	report := &models.ClassificationReport{
		FileName:             ds.FileName,
		RecordCount:          ds.RecordCount,
		ColumnCount:          ds.ColumnCount(),
		ClassifiedAt:         time.Now().Format("2006-01-02 15:04:05"),
		ClassificationID:     uuid.NewString(),
		Columns:              make([]models.ColumnClassification, 0, ds.ColumnCount()),
		ClassificationCounts: make(map[string]int),
	}

	highest := 0
	piiColumns := 0
	for i := range ds.Columns {
		col := &ds.Columns[i]
		cc := c.ClassifyColumn(col.Name, col.Values)
		report.Columns = append(report.Columns, cc)
		report.ClassificationCounts[cc.Classification]++
		if cc.RiskScore > highest {
			highest = cc.RiskScore
		}
		if cc.IsPII || cc.ContainsPII {
			piiColumns++
		}
	}

	if level, ok := c.Library.LevelByScore(highest); ok {
		report.OverallClassification = level.Name
		report.OverallRiskScore = level.RiskScore
		report.Handling = level.Handling
	}
	if ds.ColumnCount() > 0 {
		report.PIIDensity = float64(piiColumns) / float64(ds.ColumnCount()) * 100
	}

	c.Logger.Debugf("Classified %s as %s (pii density %.1f%%)",
		ds.FileName, report.OverallClassification, report.PIIDensity)
	return report
}

// sample draws up to SampleSize non-null values uniformly without
// replacement. FullScan returns every non-null value.
func (c *Classifier) sample(values []string) []string {
	nonNull := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			nonNull = append(nonNull, v)
		}
	}
	if c.FullScan || len(nonNull) <= c.SampleSize {
		return nonNull
	}

	picked := make([]string, c.SampleSize)
	for i, idx := range c.rng.Perm(len(nonNull))[:c.SampleSize] {
		picked[i] = nonNull[idx]
	}
	return picked
}
