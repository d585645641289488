package lineage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nhstools/datagovernor/internal/dataset"
	"github.com/sirupsen/logrus"
	"github.com/yourbasic/graph"
)

const timestampLayout = "2006-01-02 15:04:05"

// Relationship links two datasets over their shared joining fields.
type Relationship struct {
	SourceDataset    string   `json:"source_dataset"`
	RelationshipType string   `json:"relationship_type"`
	TargetDataset    string   `json:"target_dataset"`
	JoiningFields    []string `json:"joining_fields"`
	Description      string   `json:"description"`
	DetectionMethod  string   `json:"detection_method"`
}

// standardRelationships encode the expected join structure of the generated
// datasets. Detection confirms them and picks up anything beyond this table.
var standardRelationships = []Relationship{
	{
		SourceDataset:    "patient_demographics",
		RelationshipType: "primary",
		TargetDataset:    "patient_medical_records",
		JoiningFields:    []string{"patient_id", "nhs_number"},
		Description:      "Patient demographics are the primary reference for medical records",
	},
	{
		SourceDataset:    "patient_demographics",
		RelationshipType: "primary",
		TargetDataset:    "patient_lab_results",
		JoiningFields:    []string{"patient_id", "nhs_number"},
		Description:      "Patient demographics are the primary reference for lab results",
	},
	{
		SourceDataset:    "patient_demographics",
		RelationshipType: "primary",
		TargetDataset:    "patient_consent_records",
		JoiningFields:    []string{"patient_id", "nhs_number"},
		Description:      "Patient demographics are the primary reference for consent records",
	},
	{
		SourceDataset:    "patient_medical_records",
		RelationshipType: "primary",
		TargetDataset:    "patient_lab_results",
		JoiningFields:    []string{"record_id"},
		Description:      "Medical records are the primary reference for associated lab results",
	},
	{
		SourceDataset:    "nhs_staff_records",
		RelationshipType: "referenced_by",
		TargetDataset:    "data_access_audit_logs",
		JoiningFields:    []string{"staff_id"},
		Description:      "Staff records are referenced by audit logs for access tracking",
	},
}

// Tracker maps dataset relationships and derives lineage artifacts from them.
type Tracker struct {
	DataDir   string
	OutputDir string
	Logger    *logrus.Logger
}

// New creates a lineage tracker writing its artifacts under outputDir.
func New(dataDir, outputDir string, logger *logrus.Logger) *Tracker {
	return &Tracker{DataDir: dataDir, OutputDir: outputDir, Logger: logger}
}

// DetectRelationships loads every CSV in the data directory and derives
// relationships from shared key-like columns, merged with the standard
// relationship table. The result is persisted as dataset_relationships.json.
func (t *Tracker) DetectRelationships() ([]Relationship, error) {
	files, err := dataset.List(t.DataDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		t.Logger.Warningf("No CSV files found in %s", t.DataDir)
		return nil, nil
	}

	var names []string
	datasets := make(map[string]*dataset.Dataset, len(files))
	for _, file := range files {
		ds, err := dataset.Load(t.DataDir, file)
		if err != nil {
			t.Logger.Errorf("Error loading %s: %v", file, err)
			continue
		}
		name := strings.TrimSuffix(file, filepath.Ext(file))
		names = append(names, name)
		datasets[name] = ds
	}

	var detected []Relationship
	for _, sourceName := range names {
		for _, targetName := range names {
			if sourceName == targetName {
				continue
			}
			rel, ok := t.detectPair(sourceName, targetName, datasets[sourceName], datasets[targetName])
			if ok {
				detected = append(detected, rel)
			}
		}
	}

	// Standard relationships take precedence; detected pairs fill the gaps.
	var final []Relationship
	for _, std := range standardRelationships {
		if _, ok := datasets[std.SourceDataset]; !ok {
			continue
		}
		if _, ok := datasets[std.TargetDataset]; !ok {
			continue
		}
		std.DetectionMethod = "standard"
		final = append(final, std)
	}
	for _, rel := range detected {
		known := false
		for _, existing := range final {
			if rel.SourceDataset == existing.SourceDataset && rel.TargetDataset == existing.TargetDataset {
				known = true
				break
			}
		}
		if !known {
			final = append(final, rel)
		}
	}

	if err := t.writeJSON("dataset_relationships.json", final); err != nil {
		return final, err
	}
	t.Logger.Infof("Detected %d dataset relationships", len(final))
	return final, nil
}

// utilityColumns are shared by every table and never indicate a join.
var utilityColumns = map[string]bool{"created_at": true, "updated_at": true}

// detectPair reports the relationship between two datasets, keyed on shared
// columns where at least one side is more than half unique.
func (t *Tracker) detectPair(sourceName, targetName string, source, target *dataset.Dataset) (Relationship, bool) {
	targetCols := make(map[string]*dataset.Column, len(target.Columns))
	for i := range target.Columns {
		targetCols[target.Columns[i].Name] = &target.Columns[i]
	}

	var keys []string
	var firstSource, firstTarget int
	for i := range source.Columns {
		srcCol := &source.Columns[i]
		if utilityColumns[srcCol.Name] {
			continue
		}
		tgtCol, ok := targetCols[srcCol.Name]
		if !ok {
			continue
		}

		sourceRatio := 0.0
		if source.RecordCount > 0 {
			sourceRatio = float64(srcCol.DistinctCount()) / float64(source.RecordCount)
		}
		targetRatio := 0.0
		if target.RecordCount > 0 {
			targetRatio = float64(tgtCol.DistinctCount()) / float64(target.RecordCount)
		}
		if sourceRatio > 0.5 || targetRatio > 0.5 {
			if len(keys) == 0 {
				firstSource = srcCol.DistinctCount()
				firstTarget = tgtCol.DistinctCount()
			}
			keys = append(keys, srcCol.Name)
		}
	}

	if len(keys) == 0 {
		return Relationship{}, false
	}

	// Direction follows cardinality of the first shared key.
	relType := "referenced_by"
	if firstSource >= firstTarget {
		relType = "primary"
	}
	return Relationship{
		SourceDataset:    sourceName,
		RelationshipType: relType,
		TargetDataset:    targetName,
		JoiningFields:    keys,
		Description:      fmt.Sprintf("Detected relationship based on common fields: %s", strings.Join(keys, ", ")),
		DetectionMethod:  "automatic",
	}, true
}

// Graph is a directed lineage graph over dataset names. Nodes are indexed in
// first-appearance order so diagram identifiers stay stable.
type Graph struct {
	Nodes []string

	index map[string]int
	g     *graph.Mutable
	edges map[[2]int]Relationship
}

// BuildGraph constructs a lineage graph from relationships.
func BuildGraph(relationships []Relationship) *Graph {
	index := make(map[string]int)
	var nodes []string
	add := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		i := len(nodes)
		index[name] = i
		nodes = append(nodes, name)
		return i
	}
	for _, rel := range relationships {
		add(rel.SourceDataset)
		add(rel.TargetDataset)
	}

	g := graph.New(len(nodes))
	edges := make(map[[2]int]Relationship, len(relationships))
	for _, rel := range relationships {
		s, d := index[rel.SourceDataset], index[rel.TargetDataset]
		g.AddCost(s, d, 1)
		edges[[2]int{s, d}] = rel
	}

	return &Graph{Nodes: nodes, index: index, g: g, edges: edges}
}

// CircularDatasets reports groups of datasets whose relationships form a
// cycle. A healthy lineage graph returns nothing.
func (lg *Graph) CircularDatasets() [][]string {
	var groups [][]string
	for _, component := range graph.StrongComponents(lg.g) {
		if len(component) < 2 {
			continue
		}
		names := make([]string, 0, len(component))
		for _, v := range component {
			names = append(names, lg.Nodes[v])
		}
		sort.Strings(names)
		groups = append(groups, names)
	}
	return groups
}

// MermaidDiagram renders the lineage graph as Mermaid code and persists it
// as lineage_diagram.mmd.
func (t *Tracker) MermaidDiagram(lg *Graph) (string, error) {
	var b strings.Builder
	b.WriteString("graph TD\n")
	for i, node := range lg.Nodes {
		fmt.Fprintf(&b, "    N%d[%s]\n", i, node)
	}

	for s := range lg.Nodes {
		lg.g.Visit(s, func(d int, _ int64) bool {
			rel := lg.edges[[2]int{s, d}]
			arrow := "-->"
			switch rel.RelationshipType {
			case "primary":
				arrow = "==>"
			case "referenced_by":
				arrow = "-.->"
			}
			if len(rel.JoiningFields) > 0 {
				fmt.Fprintf(&b, "    N%d %s|%s| N%d\n", s, arrow, strings.Join(rel.JoiningFields, ", "), d)
			} else {
				fmt.Fprintf(&b, "    N%d %s N%d\n", s, arrow, d)
			}
			return false
		})
	}

	code := b.String()
	path := filepath.Join(t.OutputDir, "lineage_diagram.mmd")
	if err := os.MkdirAll(t.OutputDir, 0o755); err != nil {
		return code, fmt.Errorf("creating output directory %s: %w", t.OutputDir, err)
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return code, fmt.Errorf("writing %s: %w", path, err)
	}
	t.Logger.Infof("Generated Mermaid diagram: %s", path)
	return code, nil
}

// ImpactEdge is one hop along a dependency path.
type ImpactEdge struct {
	Source        string   `json:"source"`
	Target        string   `json:"target"`
	Relationship  string   `json:"relationship"`
	JoiningFields []string `json:"joining_fields"`
}

// ImpactEntry describes one dataset reachable from (or reaching) the
// analyzed dataset. ImpactLevel is set downstream, DependencyLevel upstream.
type ImpactEntry struct {
	Dataset         string       `json:"dataset"`
	Path            []string     `json:"path"`
	Edges           []ImpactEdge `json:"edges"`
	Distance        int          `json:"distance"`
	ImpactLevel     string       `json:"impact_level,omitempty"`
	DependencyLevel string       `json:"dependency_level,omitempty"`
}

// ImpactSummary counts downstream dependencies per impact level.
type ImpactSummary struct {
	HighImpact   int `json:"high_impact"`
	MediumImpact int `json:"medium_impact"`
	LowImpact    int `json:"low_impact"`
}

// CriticalDataset is one entry of the critical path.
type CriticalDataset struct {
	Dataset      string `json:"dataset"`
	ImpactLevel  string `json:"impact_level"`
	Dependencies int    `json:"dependencies"`
}

// ImpactAnalysis reports what a change to one dataset would touch.
type ImpactAnalysis struct {
	AnalysisID             string            `json:"analysis_id"`
	AnalysisDate           string            `json:"analysis_date"`
	Dataset                string            `json:"dataset"`
	DownstreamDependencies int               `json:"downstream_dependencies"`
	UpstreamDependencies   int               `json:"upstream_dependencies"`
	DownstreamDatasets     []ImpactEntry     `json:"downstream_datasets"`
	UpstreamDatasets       []ImpactEntry     `json:"upstream_datasets"`
	ImpactSummary          ImpactSummary     `json:"impact_summary"`
	CriticalPath           []CriticalDataset `json:"critical_path"`
}

// ImpactAnalysis walks the lineage graph both ways from the named dataset
// and persists <dataset>_impact_analysis.json.
func (t *Tracker) ImpactAnalysis(lg *Graph, datasetName string) (*ImpactAnalysis, error) {
	start, ok := lg.index[datasetName]
	if !ok {
		return nil, fmt.Errorf("dataset %q not found in lineage graph", datasetName)
	}

	downstream := lg.reachable(start, false)
	upstream := lg.reachable(start, true)
	for i := range downstream {
		downstream[i].ImpactLevel = levelForDistance(downstream[i].Distance)
	}
	for i := range upstream {
		upstream[i].DependencyLevel = levelForDistance(upstream[i].Distance)
	}

	analysis := &ImpactAnalysis{
		AnalysisID:             uuid.NewString(),
		AnalysisDate:           time.Now().Format(timestampLayout),
		Dataset:                datasetName,
		DownstreamDependencies: len(downstream),
		UpstreamDependencies:   len(upstream),
		DownstreamDatasets:     downstream,
		UpstreamDatasets:       upstream,
		CriticalPath:           criticalPath(downstream),
	}
	for _, entry := range downstream {
		switch entry.ImpactLevel {
		case "High":
			analysis.ImpactSummary.HighImpact++
		case "Medium":
			analysis.ImpactSummary.MediumImpact++
		default:
			analysis.ImpactSummary.LowImpact++
		}
	}

	if err := t.writeJSON(datasetName+"_impact_analysis.json", analysis); err != nil {
		return analysis, err
	}
	t.Logger.Infof("Impact analysis for %s complete", datasetName)
	return analysis, nil
}

func levelForDistance(distance int) string {
	switch distance {
	case 1:
		return "High"
	case 2:
		return "Medium"
	default:
		return "Low"
	}
}

// reachable runs a BFS from start, following edges forward or in reverse,
// and records the shortest path to every reached node.
func (lg *Graph) reachable(start int, reverse bool) []ImpactEntry {
	dir := lg.g
	if reverse {
		dir = graph.New(lg.g.Order())
		for s := range lg.Nodes {
			lg.g.Visit(s, func(d int, _ int64) bool {
				dir.AddCost(d, s, 1)
				return false
			})
		}
	}

	parent := make(map[int]int)
	queue := []int{start}
	var order []int
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		dir.Visit(v, func(w int, _ int64) bool {
			if w == start {
				return false
			}
			if _, seen := parent[w]; seen {
				return false
			}
			parent[w] = v
			order = append(order, w)
			queue = append(queue, w)
			return false
		})
	}

	entries := make([]ImpactEntry, 0, len(order))
	for _, v := range order {
		var path []int
		for u := v; u != start; u = parent[u] {
			path = append([]int{u}, path...)
		}
		path = append([]int{start}, path...)
		if reverse {
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
		}

		names := make([]string, len(path))
		for i, n := range path {
			names[i] = lg.Nodes[n]
		}
		edges := make([]ImpactEdge, 0, len(path)-1)
		for i := 0; i < len(path)-1; i++ {
			rel := lg.edges[[2]int{path[i], path[i+1]}]
			edges = append(edges, ImpactEdge{
				Source:        names[i],
				Target:        names[i+1],
				Relationship:  rel.RelationshipType,
				JoiningFields: rel.JoiningFields,
			})
		}

		target := names[len(names)-1]
		if reverse {
			target = names[0]
		}
		entries = append(entries, ImpactEntry{
			Dataset:  target,
			Path:     names,
			Edges:    edges,
			Distance: len(path) - 1,
		})
	}
	return entries
}

// criticalPath ranks the high impact downstream datasets by how many other
// downstream paths run through them, keeping the top three.
func criticalPath(downstream []ImpactEntry) []CriticalDataset {
	var high []ImpactEntry
	for _, entry := range downstream {
		if entry.ImpactLevel == "High" {
			high = append(high, entry)
		}
	}
	if len(high) == 0 {
		return []CriticalDataset{}
	}

	counts := make(map[string]int, len(high))
	for _, entry := range high {
		for _, other := range downstream {
			for _, node := range other.Path {
				if node == entry.Dataset {
					counts[entry.Dataset]++
					break
				}
			}
		}
	}
	sort.SliceStable(high, func(i, j int) bool {
		return counts[high[i].Dataset] > counts[high[j].Dataset]
	})
	if len(high) > 3 {
		high = high[:3]
	}

	critical := make([]CriticalDataset, 0, len(high))
	for _, entry := range high {
		critical = append(critical, CriticalDataset{
			Dataset:      entry.Dataset,
			ImpactLevel:  entry.ImpactLevel,
			Dependencies: counts[entry.Dataset],
		})
	}
	return critical
}

// Documentation bundles every lineage artifact into one record.
type Documentation struct {
	DocumentationID string                     `json:"documentation_id"`
	CreatedDate     string                     `json:"created_date"`
	Title           string                     `json:"title"`
	Version         string                     `json:"version"`
	Datasets        []string                   `json:"datasets"`
	Relationships   []Relationship             `json:"relationships"`
	MermaidDiagram  string                     `json:"mermaid_diagram"`
	CircularGroups  [][]string                 `json:"circular_dependencies,omitempty"`
	FlowAnalysis    *FlowAnalysis              `json:"flow_analysis,omitempty"`
	ImpactAnalyses  map[string]*ImpactAnalysis `json:"impact_analyses"`
}

// GenerateDocumentation runs the full lineage pipeline: detection, diagram,
// flow analysis over the audit logs and an impact analysis per dataset. The
// bundle is persisted both as JSON and as a readable markdown summary.
func (t *Tracker) GenerateDocumentation() (*Documentation, error) {
	relationships, err := t.DetectRelationships()
	if err != nil {
		return nil, err
	}

	lg := BuildGraph(relationships)
	mermaid, err := t.MermaidDiagram(lg)
	if err != nil {
		return nil, err
	}

	doc := &Documentation{
		DocumentationID: uuid.NewString(),
		CreatedDate:     time.Now().Format(timestampLayout),
		Title:           "NHS Data Governance - Data Lineage Documentation",
		Version:         "1.0",
		Datasets:        lg.Nodes,
		Relationships:   relationships,
		MermaidDiagram:  mermaid,
		CircularGroups:  lg.CircularDatasets(),
		ImpactAnalyses:  make(map[string]*ImpactAnalysis, len(lg.Nodes)),
	}
	for _, group := range doc.CircularGroups {
		t.Logger.Warningf("Circular lineage detected: %s", strings.Join(group, ", "))
	}

	if flow, err := t.AnalyzeDataFlow("data_access_audit_logs.csv"); err != nil {
		t.Logger.Warningf("Skipping data flow analysis: %v", err)
	} else {
		doc.FlowAnalysis = flow
	}

	for _, name := range lg.Nodes {
		analysis, err := t.ImpactAnalysis(lg, name)
		if err != nil {
			t.Logger.Errorf("Error analyzing impact of %s: %v", name, err)
			continue
		}
		doc.ImpactAnalyses[name] = analysis
	}

	if err := t.writeJSON("comprehensive_lineage_documentation.json", doc); err != nil {
		return doc, err
	}
	if err := t.writeMarkdown(doc); err != nil {
		return doc, err
	}
	t.Logger.Info("Comprehensive lineage documentation complete")
	return doc, nil
}

func (t *Tracker) writeMarkdown(doc *Documentation) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	fmt.Fprintf(&b, "Version: %s | Created: %s\n\n", doc.Version, doc.CreatedDate)

	b.WriteString("## Datasets\n\n")
	for _, name := range doc.Datasets {
		fmt.Fprintf(&b, "- %s\n", name)
	}

	b.WriteString("\n## Dataset Relationships\n\n")
	b.WriteString("| Source Dataset | Relationship | Target Dataset | Joining Fields |\n")
	b.WriteString("|---------------|-------------|---------------|---------------|\n")
	for _, rel := range doc.Relationships {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			rel.SourceDataset, rel.RelationshipType, rel.TargetDataset, strings.Join(rel.JoiningFields, ", "))
	}

	b.WriteString("\n## Data Lineage Diagram\n\n")
	fmt.Fprintf(&b, "```mermaid\n%s\n```\n\n", doc.MermaidDiagram)

	if doc.FlowAnalysis != nil {
		b.WriteString("## Data Flow Summary\n\n")
		fmt.Fprintf(&b, "Total access events: %d\n\n", doc.FlowAnalysis.TotalAccessEvents)
		b.WriteString("### Resource Access Distribution\n\n")
		b.WriteString("| Resource Type | Access Count | Percentage |\n")
		b.WriteString("|--------------|-------------|------------|\n")
		resources := make([]string, 0, len(doc.FlowAnalysis.ResourceTypes))
		for resource := range doc.FlowAnalysis.ResourceTypes {
			resources = append(resources, resource)
		}
		sort.Strings(resources)
		for _, resource := range resources {
			stats := doc.FlowAnalysis.ResourceTypes[resource]
			fmt.Fprintf(&b, "| %s | %d | %.1f%% |\n", resource, stats.AccessCount, stats.Percentage)
		}
	}

	b.WriteString("\n## Impact Summary\n\n")
	for _, name := range doc.Datasets {
		analysis, ok := doc.ImpactAnalyses[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", name)
		fmt.Fprintf(&b, "- Downstream dependencies: %d\n", analysis.DownstreamDependencies)
		fmt.Fprintf(&b, "- Upstream dependencies: %d\n", analysis.UpstreamDependencies)
		fmt.Fprintf(&b, "- High impact dependencies: %d\n", analysis.ImpactSummary.HighImpact)
		fmt.Fprintf(&b, "- Medium impact dependencies: %d\n", analysis.ImpactSummary.MediumImpact)
		fmt.Fprintf(&b, "- Low impact dependencies: %d\n\n", analysis.ImpactSummary.LowImpact)
	}

	path := filepath.Join(t.OutputDir, "data_lineage_documentation.md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (t *Tracker) writeJSON(name string, v interface{}) error {
	if err := os.MkdirAll(t.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", t.OutputDir, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}
	path := filepath.Join(t.OutputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
