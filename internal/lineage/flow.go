package lineage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nhstools/datagovernor/internal/dataset"
)

// AccessStats counts access events for one grouping key.
type AccessStats struct {
	AccessCount int     `json:"access_count"`
	Percentage  float64 `json:"percentage"`
}

// StaffAccess counts access events for one staff member.
type StaffAccess struct {
	StaffName   string  `json:"staff_name"`
	AccessCount int     `json:"access_count"`
	Percentage  float64 `json:"percentage"`
}

// AccessPath is a recurring sequence of action:resource steps.
type AccessPath struct {
	Path      []string `json:"path"`
	Frequency int      `json:"frequency"`
}

// FlowAnalysis summarizes how data moves through systems based on the
// access audit logs.
type FlowAnalysis struct {
	AnalysisID        string                 `json:"analysis_id"`
	AnalysisDate      string                 `json:"analysis_date"`
	FileAnalyzed      string                 `json:"file_analyzed"`
	TotalAccessEvents int                    `json:"total_access_events"`
	ResourceTypes     map[string]AccessStats `json:"resource_types"`
	StaffAccess       map[string]StaffAccess `json:"staff_access"`
	TemporalPatterns  map[int]AccessStats    `json:"temporal_patterns"`
	AccessPaths       []AccessPath           `json:"access_paths"`
}

type auditEvent struct {
	timestamp    time.Time
	staffID      string
	staffName    string
	action       string
	resourceType string
}

// AnalyzeDataFlow derives access patterns from the audit log dataset and
// persists them as data_flow_analysis.json.
func (t *Tracker) AnalyzeDataFlow(auditFile string) (*FlowAnalysis, error) {
	ds, err := dataset.Load(t.DataDir, auditFile)
	if err != nil {
		return nil, err
	}

	events, err := auditEvents(ds)
	if err != nil {
		return nil, err
	}

	analysis := &FlowAnalysis{
		AnalysisID:        uuid.NewString(),
		AnalysisDate:      time.Now().Format(timestampLayout),
		FileAnalyzed:      auditFile,
		TotalAccessEvents: len(events),
		ResourceTypes:     make(map[string]AccessStats),
		StaffAccess:       make(map[string]StaffAccess),
		TemporalPatterns:  make(map[int]AccessStats),
		AccessPaths:       []AccessPath{},
	}
	if len(events) == 0 {
		return analysis, t.writeJSON("data_flow_analysis.json", analysis)
	}
	total := float64(len(events))

	resourceCounts := make(map[string]int)
	hourCounts := make(map[int]int)
	for _, ev := range events {
		resourceCounts[ev.resourceType]++
		hourCounts[ev.timestamp.Hour()]++
	}
	for resource, count := range resourceCounts {
		analysis.ResourceTypes[resource] = AccessStats{
			AccessCount: count,
			Percentage:  float64(count) / total * 100,
		}
	}
	for hour, count := range hourCounts {
		analysis.TemporalPatterns[hour] = AccessStats{
			AccessCount: count,
			Percentage:  float64(count) / total * 100,
		}
	}

	type staffCount struct {
		id    string
		name  string
		count int
	}
	staffCounts := make(map[string]*staffCount)
	for _, ev := range events {
		sc, ok := staffCounts[ev.staffID]
		if !ok {
			sc = &staffCount{id: ev.staffID, name: ev.staffName}
			staffCounts[ev.staffID] = sc
		}
		sc.count++
	}
	ranked := make([]*staffCount, 0, len(staffCounts))
	for _, sc := range staffCounts {
		ranked = append(ranked, sc)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > 10 {
		ranked = ranked[:10]
	}
	for _, sc := range ranked {
		analysis.StaffAccess[sc.id] = StaffAccess{
			StaffName:   sc.name,
			AccessCount: sc.count,
			Percentage:  float64(sc.count) / total * 100,
		}
	}

	analysis.AccessPaths = commonAccessPaths(events)

	if err := t.writeJSON("data_flow_analysis.json", analysis); err != nil {
		return analysis, err
	}
	t.Logger.Infof("Data flow analysis complete: %d access events", len(events))
	return analysis, nil
}

func auditEvents(ds *dataset.Dataset) ([]auditEvent, error) {
	columns := make(map[string]*dataset.Column, 5)
	for _, name := range []string{"timestamp", "staff_id", "staff_name", "action", "resource_type"} {
		col, ok := ds.Column(name)
		if !ok {
			return nil, fmt.Errorf("audit log %s is missing column %q", ds.FileName, name)
		}
		columns[name] = col
	}

	events := make([]auditEvent, 0, ds.RecordCount)
	for i := 0; i < ds.RecordCount; i++ {
		ts, err := time.Parse(timestampLayout, columns["timestamp"].Values[i])
		if err != nil {
			return nil, fmt.Errorf("parsing audit timestamp on row %d: %w", i+1, err)
		}
		events = append(events, auditEvent{
			timestamp:    ts,
			staffID:      columns["staff_id"].Values[i],
			staffName:    columns["staff_name"].Values[i],
			action:       columns["action"].Values[i],
			resourceType: columns["resource_type"].Values[i],
		})
	}
	return events, nil
}

// commonAccessPaths finds the ten most frequent action:resource sequences of
// length 2 to 4 across per-staff access histories.
func commonAccessPaths(events []auditEvent) []AccessPath {
	byStaff := make(map[string][]auditEvent)
	for _, ev := range events {
		byStaff[ev.staffID] = append(byStaff[ev.staffID], ev)
	}

	pathCounts := make(map[string]int)
	for _, history := range byStaff {
		sort.Slice(history, func(i, j int) bool {
			return history[i].timestamp.Before(history[j].timestamp)
		})
		steps := make([]string, len(history))
		for i, ev := range history {
			steps[i] = ev.action + ":" + ev.resourceType
		}
		for _, length := range []int{2, 3, 4} {
			for i := 0; i+length <= len(steps); i++ {
				pathCounts[strings.Join(steps[i:i+length], "\x00")]++
			}
		}
	}

	keys := make([]string, 0, len(pathCounts))
	for key := range pathCounts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if pathCounts[keys[i]] != pathCounts[keys[j]] {
			return pathCounts[keys[i]] > pathCounts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > 10 {
		keys = keys[:10]
	}

	paths := make([]AccessPath, 0, len(keys))
	for _, key := range keys {
		paths = append(paths, AccessPath{
			Path:      strings.Split(key, "\x00"),
			Frequency: pathCounts[key],
		})
	}
	return paths
}
