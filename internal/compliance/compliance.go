package compliance

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nhstools/datagovernor/internal/dataset"
	"github.com/sirupsen/logrus"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

// GDPRPrinciples are the six processing principles of UK GDPR Article 5.
var GDPRPrinciples = map[string]string{
	"lawfulness":                "Processing must be lawful, fair and transparent",
	"purpose_limitation":        "Data collected for specified, explicit and legitimate purposes",
	"data_minimisation":         "Data adequate, relevant and limited to what is necessary",
	"accuracy":                  "Data accurate and kept up to date",
	"storage_limitation":        "Data kept in identifiable form only as long as necessary",
	"integrity_confidentiality": "Data processed securely with protection against unauthorized processing",
}

// LawfulBases are the Article 6 grounds for processing personal data.
var LawfulBases = map[string]string{
	"consent":              "The data subject has given consent",
	"contract":             "Processing necessary for contract with data subject",
	"legal_obligation":     "Processing necessary for compliance with legal obligation",
	"vital_interests":      "Processing necessary to protect vital interests",
	"public_task":          "Processing necessary for task in public interest",
	"legitimate_interests": "Processing necessary for legitimate interests",
}

// SpecialCategoryConditions are the Article 9 conditions relevant to health data.
var SpecialCategoryConditions = map[string]string{
	"explicit_consent":            "Explicit consent for special category data",
	"employment":                  "Processing necessary for employment obligations",
	"vital_interests":             "Protect vital interests when subject cannot consent",
	"legitimate_activities":       "Processing by not-for-profit bodies",
	"public_data":                 "Data manifestly made public by the data subject",
	"legal_claims":                "Processing necessary for legal claims",
	"substantial_public_interest": "Processing necessary for reasons of substantial public interest",
	"health_social_care":          "Processing necessary for healthcare or social care",
	"public_health":               "Processing necessary for public health",
	"archiving":                   "Processing necessary for archiving in the public interest",
}

// DataSubjectRights are the rights individuals hold over their data.
var DataSubjectRights = map[string]string{
	"information":         "Right to be informed about collection and use of data",
	"access":              "Right to access and receive copy of personal data",
	"rectification":       "Right to have inaccurate data rectified",
	"erasure":             "Right to have personal data erased (right to be forgotten)",
	"restrict_processing": "Right to restrict processing of personal data",
	"data_portability":    "Right to obtain and reuse personal data",
	"object":              "Right to object to processing",
	"automated_decisions": "Rights related to automated decision making and profiling",
}

// Manager runs GDPR compliance checks over the generated datasets.
type Manager struct {
	DataDir   string
	OutputDir string
	Logger    *logrus.Logger
}

// New creates a compliance manager writing its reports under outputDir.
func New(dataDir, outputDir string, logger *logrus.Logger) *Manager {
	return &Manager{DataDir: dataDir, OutputDir: outputDir, Logger: logger}
}

// ConsentTypeStats counts consent outcomes for one consent type.
type ConsentTypeStats struct {
	Consented   int     `json:"consented"`
	Declined    int     `json:"declined"`
	Total       int     `json:"total"`
	ConsentRate float64 `json:"consent_rate"`
}

// ConsentReport is the persisted outcome of a consent records analysis.
type ConsentReport struct {
	ReportID              string                      `json:"report_id"`
	ReportDate            string                      `json:"report_date"`
	FileAnalyzed          string                      `json:"file_analyzed"`
	TotalConsentRecords   int                         `json:"total_consent_records"`
	UniquePatients        int                         `json:"unique_patients"`
	ConsentByType         map[string]ConsentTypeStats `json:"consent_by_type"`
	ExpiredConsentRecords int                         `json:"expired_consent_records"`
	ExpiredPercentage     float64                     `json:"expired_percentage"`
	ComplianceStatus      string                      `json:"compliance_status"`
	Recommendations       []string                    `json:"recommendations"`
	Error                 string                      `json:"error,omitempty"`
	Status                string                      `json:"status,omitempty"`
}

// AnalyzeConsent checks the consent records dataset for expired consent and
// low uptake, and persists consent_compliance_report.json. Failures produce
// a consent_compliance_error.json artifact instead.
func (m *Manager) AnalyzeConsent(consentFile string) (*ConsentReport, error) {
	report, err := m.analyzeConsent(consentFile)
	if err != nil {
		errReport := &ConsentReport{Error: err.Error(), Status: "failed"}
		if werr := m.writeJSON("consent_compliance_error.json", errReport); werr != nil {
			m.Logger.Warningf("Failed to persist error artifact: %v", werr)
		}
		return errReport, err
	}
	if err := m.writeJSON("consent_compliance_report.json", report); err != nil {
		return report, err
	}
	m.Logger.Infof("Consent compliance analysis complete: %s", report.ComplianceStatus)
	return report, nil
}

func (m *Manager) analyzeConsent(consentFile string) (*ConsentReport, error) {
	ds, err := dataset.Load(m.DataDir, consentFile)
	if err != nil {
		return nil, err
	}

	patientCol, ok := ds.Column("patient_id")
	if !ok {
		return nil, fmt.Errorf("%s is missing column %q", consentFile, "patient_id")
	}
	typeCol, ok := ds.Column("consent_type")
	if !ok {
		return nil, fmt.Errorf("%s is missing column %q", consentFile, "consent_type")
	}
	givenCol, ok := ds.Column("consent_given")
	if !ok {
		return nil, fmt.Errorf("%s is missing column %q", consentFile, "consent_given")
	}
	expiryCol, ok := ds.Column("consent_expiry_date")
	if !ok {
		return nil, fmt.Errorf("%s is missing column %q", consentFile, "consent_expiry_date")
	}

	report := &ConsentReport{
		ReportID:            uuid.NewString(),
		ReportDate:          time.Now().Format(timestampLayout),
		FileAnalyzed:        consentFile,
		TotalConsentRecords: ds.RecordCount,
		UniquePatients:      patientCol.DistinctCount(),
		ConsentByType:       make(map[string]ConsentTypeStats),
		Recommendations:     []string{},
	}

	today := time.Now().Truncate(24 * time.Hour)
	for i := 0; i < ds.RecordCount; i++ {
		given, err := strconv.ParseBool(givenCol.Values[i])
		if err != nil {
			return nil, fmt.Errorf("parsing consent_given on row %d: %w", i+1, err)
		}
		stats := report.ConsentByType[typeCol.Values[i]]
		if given {
			stats.Consented++
		} else {
			stats.Declined++
		}
		stats.Total++
		report.ConsentByType[typeCol.Values[i]] = stats

		expiry, err := time.Parse(dateLayout, expiryCol.Values[i])
		if err != nil {
			return nil, fmt.Errorf("parsing consent_expiry_date on row %d: %w", i+1, err)
		}
		if expiry.Before(today) {
			report.ExpiredConsentRecords++
		}
	}

	for consentType, stats := range report.ConsentByType {
		if stats.Total > 0 {
			stats.ConsentRate = float64(stats.Consented) / float64(stats.Total) * 100
		}
		report.ConsentByType[consentType] = stats
	}
	if ds.RecordCount > 0 {
		report.ExpiredPercentage = float64(report.ExpiredConsentRecords) / float64(ds.RecordCount) * 100
	}

	report.ComplianceStatus = "Compliant"
	if report.ExpiredConsentRecords > 0 {
		report.ComplianceStatus = "Non-Compliant"
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Renew %d expired consent records as soon as possible.", report.ExpiredConsentRecords))
	}

	var lowConsent []string
	for consentType, stats := range report.ConsentByType {
		if stats.ConsentRate < 50.0 {
			lowConsent = append(lowConsent, consentType)
		}
	}
	if len(lowConsent) > 0 {
		sort.Strings(lowConsent)
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Review consent collection process for: %s.", strings.Join(lowConsent, ", ")))
	}

	return report, nil
}

func (m *Manager) writeJSON(name string, v interface{}) error {
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
