package profiler

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nhstools/datagovernor/internal/dataset"
	"github.com/nhstools/datagovernor/pkg/models"
)

const topValues = 5

// ProfileColumn computes descriptive statistics for one column. Number
// columns get numeric summary stats, text-like columns get length stats and
// their most frequent values; boolean columns get the base counts only.
func ProfileColumn(col *dataset.Column, totalRows int) models.ColumnProfile {
	profile := models.ColumnProfile{
		DataType:    col.Kind.String(),
		Count:       len(col.Values),
		NullCount:   col.NullCount(),
		UniqueCount: col.DistinctCount(),
	}
	if totalRows > 0 {
		profile.NullPercentage = float64(profile.NullCount) / float64(totalRows) * 100
		profile.UniquePercentage = float64(profile.UniqueCount) / float64(totalRows) * 100
	}

	switch col.Kind {
	case dataset.KindNumber:
		addNumericStats(&profile, col)
	case dataset.KindString, dataset.KindDate:
		addStringStats(&profile, col)
	}
	return profile
}

// ProfileDataset profiles every column of a dataset.
func ProfileDataset(ds *dataset.Dataset) *models.DatasetProfile {
	profile := &models.DatasetProfile{
		FileName:    ds.FileName,
		RecordCount: ds.RecordCount,
		ColumnCount: ds.ColumnCount(),
		ProfiledAt:  time.Now().Format("2006-01-02 15:04:05"),
		ProfileID:   uuid.NewString(),
		Columns:     make(map[string]models.ColumnProfile, ds.ColumnCount()),
	}
	for i := range ds.Columns {
		col := &ds.Columns[i]
		profile.Columns[col.Name] = ProfileColumn(col, ds.RecordCount)
	}
	return profile
}

func addNumericStats(profile *models.ColumnProfile, col *dataset.Column) {
	var nums []float64
	for _, v := range col.Values {
		if v == "" {
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			nums = append(nums, f)
		}
	}
	if len(nums) == 0 {
		return
	}

	sort.Float64s(nums)
	min, max := nums[0], nums[len(nums)-1]

	sum := 0.0
	for _, f := range nums {
		sum += f
	}
	mean := sum / float64(len(nums))
	median := medianOf(nums)

	profile.Min = &min
	profile.Max = &max
	profile.Mean = &mean
	profile.Median = &median

	if len(nums) > 1 {
		variance := 0.0
		for _, f := range nums {
			variance += (f - mean) * (f - mean)
		}
		std := math.Sqrt(variance / float64(len(nums)-1))
		profile.Std = &std
	} else {
		zero := 0.0
		profile.Std = &zero
	}
}

func addStringStats(profile *models.ColumnProfile, col *dataset.Column) {
	if col.NullCount() == len(col.Values) {
		// All-null text columns get no length stats.
		return
	}

	// Nulls measure as empty strings.
	minLen, maxLen := len(col.Values[0]), len(col.Values[0])
	total := 0
	for _, v := range col.Values {
		l := len(v)
		if l < minLen {
			minLen = l
		}
		if l > maxLen {
			maxLen = l
		}
		total += l
	}
	meanLen := float64(total) / float64(len(col.Values))

	profile.MinLength = &minLen
	profile.MaxLength = &maxLen
	profile.MeanLength = &meanLen
	profile.FrequentValues = frequentValues(col, topValues)
}

// frequentValues returns the top n most frequent non-null values, ties broken
// by first appearance in the column.
func frequentValues(col *dataset.Column, n int) []models.ValueCount {
	counts := make(map[string]int)
	var order []string
	for _, v := range col.Values {
		if v == "" {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}

	firstSeen := make(map[string]int, len(order))
	for i, v := range order {
		firstSeen[v] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})

	if len(order) > n {
		order = order[:n]
	}
	out := make([]models.ValueCount, len(order))
	for i, v := range order {
		out[i] = models.ValueCount{Value: v, Count: counts[v]}
	}
	return out
}

func medianOf(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
