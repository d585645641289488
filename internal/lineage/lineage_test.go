package lineage

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return New(t.TempDir(), filepath.Join(t.TempDir(), "lineage"), logger)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

func TestDetectRelationshipsMergesStandardFirst(t *testing.T) {
	tr := newTestTracker(t)
	writeFile(t, tr.DataDir, "patient_demographics.csv",
		"patient_id,first_name\n1,Al\n2,Sam\n3,Kim\n")
	writeFile(t, tr.DataDir, "patient_medical_records.csv",
		"record_id,patient_id\nr1,1\nr2,1\nr3,2\n")

	relationships, err := tr.DetectRelationships()
	if err != nil {
		t.Fatalf("Detection failed: %v", err)
	}
	if len(relationships) == 0 {
		t.Fatal("Expected at least one relationship")
	}

	// The standard table entry for this pair wins over detection
	first := relationships[0]
	if first.SourceDataset != "patient_demographics" || first.TargetDataset != "patient_medical_records" {
		t.Errorf("Unexpected first relationship: %+v", first)
	}
	if first.DetectionMethod != "standard" {
		t.Errorf("Expected standard detection method, got %s", first.DetectionMethod)
	}

	if _, err := os.Stat(filepath.Join(tr.OutputDir, "dataset_relationships.json")); err != nil {
		t.Errorf("Expected relationships artifact on disk: %v", err)
	}
}

func TestDetectRelationshipsStandardRequiresBothDatasets(t *testing.T) {
	tr := newTestTracker(t)
	writeFile(t, tr.DataDir, "patient_demographics.csv", "patient_id,first_name\n1,Al\n")

	relationships, err := tr.DetectRelationships()
	if err != nil {
		t.Fatalf("Detection failed: %v", err)
	}
	for _, rel := range relationships {
		if rel.DetectionMethod == "standard" {
			t.Errorf("Standard relationship emitted with one side missing: %+v", rel)
		}
	}
}

func TestDetectPairKeysAndDirection(t *testing.T) {
	tr := newTestTracker(t)
	// orders.customer_id repeats, customers.customer_id is unique
	writeFile(t, tr.DataDir, "customers.csv",
		"customer_id,name,created_at\nc1,Al,2024-01-01 00:00:00\nc2,Sam,2024-01-01 00:00:00\n")
	writeFile(t, tr.DataDir, "orders.csv",
		"order_id,customer_id,created_at\no1,c1,2024-01-01 00:00:00\no2,c1,2024-01-01 00:00:00\no3,c2,2024-01-01 00:00:00\n")

	relationships, err := tr.DetectRelationships()
	if err != nil {
		t.Fatalf("Detection failed: %v", err)
	}

	var found *Relationship
	for i, rel := range relationships {
		if rel.SourceDataset == "customers" && rel.TargetDataset == "orders" {
			found = &relationships[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("Expected customers -> orders relationship, got %+v", relationships)
	}
	if !reflect.DeepEqual(found.JoiningFields, []string{"customer_id"}) {
		t.Errorf("Expected customer_id join, utility columns excluded; got %v", found.JoiningFields)
	}
	// Source side has the higher distinct count, so it is primary
	if found.RelationshipType != "primary" {
		t.Errorf("Expected primary relationship, got %s", found.RelationshipType)
	}
	if found.DetectionMethod != "automatic" {
		t.Errorf("Expected automatic detection, got %s", found.DetectionMethod)
	}
}

func sampleRelationships() []Relationship {
	return []Relationship{
		{SourceDataset: "a", RelationshipType: "primary", TargetDataset: "b", JoiningFields: []string{"id"}},
		{SourceDataset: "b", RelationshipType: "primary", TargetDataset: "c", JoiningFields: []string{"id"}},
		{SourceDataset: "c", RelationshipType: "referenced_by", TargetDataset: "d", JoiningFields: []string{"ref"}},
	}
}

func TestBuildGraphNodeOrder(t *testing.T) {
	lg := BuildGraph(sampleRelationships())
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(lg.Nodes, want) {
		t.Errorf("Expected first-appearance node order %v, got %v", want, lg.Nodes)
	}
}

func TestMermaidDiagram(t *testing.T) {
	tr := newTestTracker(t)
	lg := BuildGraph(sampleRelationships())

	code, err := tr.MermaidDiagram(lg)
	if err != nil {
		t.Fatalf("Diagram failed: %v", err)
	}
	if !strings.HasPrefix(code, "graph TD\n") {
		t.Error("Expected a top-down Mermaid graph")
	}
	if !strings.Contains(code, "N0[a]") || !strings.Contains(code, "N3[d]") {
		t.Errorf("Expected node declarations in diagram:\n%s", code)
	}
	if !strings.Contains(code, "N0 ==>|id| N1") {
		t.Errorf("Expected thick arrow for primary relationship:\n%s", code)
	}
	if !strings.Contains(code, "N2 -.->|ref| N3") {
		t.Errorf("Expected dotted arrow for referenced_by relationship:\n%s", code)
	}

	if _, err := os.Stat(filepath.Join(tr.OutputDir, "lineage_diagram.mmd")); err != nil {
		t.Errorf("Expected diagram artifact on disk: %v", err)
	}
}

func TestCircularDatasets(t *testing.T) {
	acyclic := BuildGraph(sampleRelationships())
	if groups := acyclic.CircularDatasets(); len(groups) != 0 {
		t.Errorf("Expected no cycles, got %v", groups)
	}

	cyclic := BuildGraph([]Relationship{
		{SourceDataset: "a", TargetDataset: "b"},
		{SourceDataset: "b", TargetDataset: "c"},
		{SourceDataset: "c", TargetDataset: "a"},
		{SourceDataset: "c", TargetDataset: "d"},
	})
	groups := cyclic.CircularDatasets()
	if len(groups) != 1 {
		t.Fatalf("Expected one cyclic group, got %v", groups)
	}
	if !reflect.DeepEqual(groups[0], []string{"a", "b", "c"}) {
		t.Errorf("Expected sorted cycle members, got %v", groups[0])
	}
}

func TestImpactAnalysisLevels(t *testing.T) {
	tr := newTestTracker(t)
	lg := BuildGraph(sampleRelationships())

	analysis, err := tr.ImpactAnalysis(lg, "a")
	if err != nil {
		t.Fatalf("Impact analysis failed: %v", err)
	}
	if analysis.DownstreamDependencies != 3 {
		t.Errorf("Expected 3 downstream datasets, got %d", analysis.DownstreamDependencies)
	}
	if analysis.UpstreamDependencies != 0 {
		t.Errorf("Expected no upstream datasets, got %d", analysis.UpstreamDependencies)
	}

	levels := make(map[string]string, len(analysis.DownstreamDatasets))
	for _, entry := range analysis.DownstreamDatasets {
		levels[entry.Dataset] = entry.ImpactLevel
	}
	if levels["b"] != "High" || levels["c"] != "Medium" || levels["d"] != "Low" {
		t.Errorf("Unexpected impact levels: %v", levels)
	}
	if analysis.ImpactSummary.HighImpact != 1 || analysis.ImpactSummary.MediumImpact != 1 || analysis.ImpactSummary.LowImpact != 1 {
		t.Errorf("Unexpected impact summary: %+v", analysis.ImpactSummary)
	}

	// b sits on every downstream path, making it the critical hop
	if len(analysis.CriticalPath) != 1 || analysis.CriticalPath[0].Dataset != "b" {
		t.Errorf("Unexpected critical path: %+v", analysis.CriticalPath)
	}
	if analysis.CriticalPath[0].Dependencies != 3 {
		t.Errorf("Expected b on 3 paths, got %d", analysis.CriticalPath[0].Dependencies)
	}

	if _, err := os.Stat(filepath.Join(tr.OutputDir, "a_impact_analysis.json")); err != nil {
		t.Errorf("Expected impact artifact on disk: %v", err)
	}
}

func TestImpactAnalysisUpstreamPaths(t *testing.T) {
	tr := newTestTracker(t)
	lg := BuildGraph(sampleRelationships())

	analysis, err := tr.ImpactAnalysis(lg, "c")
	if err != nil {
		t.Fatalf("Impact analysis failed: %v", err)
	}
	if analysis.UpstreamDependencies != 2 {
		t.Errorf("Expected 2 upstream datasets, got %d", analysis.UpstreamDependencies)
	}

	for _, entry := range analysis.UpstreamDatasets {
		if entry.Dataset == "a" {
			// The path reads from the upstream source to the analyzed node
			if !reflect.DeepEqual(entry.Path, []string{"a", "b", "c"}) {
				t.Errorf("Unexpected upstream path: %v", entry.Path)
			}
			if entry.DependencyLevel != "Medium" {
				t.Errorf("Expected medium dependency at distance 2, got %s", entry.DependencyLevel)
			}
		}
	}
}

func TestImpactAnalysisUnknownDataset(t *testing.T) {
	tr := newTestTracker(t)
	lg := BuildGraph(sampleRelationships())

	if _, err := tr.ImpactAnalysis(lg, "nonexistent"); err == nil {
		t.Error("Expected an error for an unknown dataset")
	}
}

func TestGenerateDocumentation(t *testing.T) {
	tr := newTestTracker(t)
	writeFile(t, tr.DataDir, "patient_demographics.csv",
		"patient_id,first_name\n1,Al\n2,Sam\n")
	writeFile(t, tr.DataDir, "patient_medical_records.csv",
		"record_id,patient_id\nr1,1\nr2,2\n")

	doc, err := tr.GenerateDocumentation()
	if err != nil {
		t.Fatalf("Documentation failed: %v", err)
	}
	if len(doc.Datasets) != 2 {
		t.Errorf("Expected 2 datasets documented, got %v", doc.Datasets)
	}
	if doc.MermaidDiagram == "" {
		t.Error("Expected embedded Mermaid diagram")
	}

	for _, name := range []string{
		"comprehensive_lineage_documentation.json",
		"data_lineage_documentation.md",
		"dataset_relationships.json",
		"lineage_diagram.mmd",
	} {
		if _, err := os.Stat(filepath.Join(tr.OutputDir, name)); err != nil {
			t.Errorf("Expected artifact %s on disk: %v", name, err)
		}
	}
}
