package compliance

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return New(t.TempDir(), filepath.Join(t.TempDir(), "compliance"), logger)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

const consentHeader = "consent_id,patient_id,consent_type,consent_given,consent_expiry_date\n"

func TestAnalyzeConsentCompliant(t *testing.T) {
	m := newTestManager(t)
	writeFile(t, m.DataDir, "patient_consent_records.csv", consentHeader+
		"c1,p1,Data Processing for Medical Care,true,2099-01-01\n"+
		"c2,p2,Data Processing for Medical Care,true,2099-01-01\n"+
		"c3,p1,Research Participation,false,2099-01-01\n"+
		"c4,p2,Research Participation,true,2099-01-01\n")

	report, err := m.AnalyzeConsent("patient_consent_records.csv")
	if err != nil {
		t.Fatalf("Consent analysis failed: %v", err)
	}
	if report.ComplianceStatus != "Compliant" {
		t.Errorf("Expected Compliant, got %s", report.ComplianceStatus)
	}
	if report.TotalConsentRecords != 4 || report.UniquePatients != 2 {
		t.Errorf("Unexpected totals: %d records, %d patients", report.TotalConsentRecords, report.UniquePatients)
	}

	care := report.ConsentByType["Data Processing for Medical Care"]
	if care.Consented != 2 || care.Declined != 0 || care.ConsentRate != 100.0 {
		t.Errorf("Unexpected care consent stats: %+v", care)
	}
	research := report.ConsentByType["Research Participation"]
	if research.Consented != 1 || research.Declined != 1 || research.ConsentRate != 50.0 {
		t.Errorf("Unexpected research consent stats: %+v", research)
	}

	if _, err := os.Stat(filepath.Join(m.OutputDir, "consent_compliance_report.json")); err != nil {
		t.Errorf("Expected consent report artifact on disk: %v", err)
	}
}

func TestAnalyzeConsentExpiredRecords(t *testing.T) {
	m := newTestManager(t)
	writeFile(t, m.DataDir, "patient_consent_records.csv", consentHeader+
		"c1,p1,Data Processing for Medical Care,true,2020-01-01\n"+
		"c2,p2,Data Processing for Medical Care,true,2099-01-01\n")

	report, err := m.AnalyzeConsent("patient_consent_records.csv")
	if err != nil {
		t.Fatalf("Consent analysis failed: %v", err)
	}
	if report.ComplianceStatus != "Non-Compliant" {
		t.Errorf("Expected Non-Compliant with expired consent, got %s", report.ComplianceStatus)
	}
	if report.ExpiredConsentRecords != 1 || report.ExpiredPercentage != 50.0 {
		t.Errorf("Unexpected expiry stats: %d records, %.1f%%", report.ExpiredConsentRecords, report.ExpiredPercentage)
	}
	if len(report.Recommendations) == 0 || !strings.Contains(report.Recommendations[0], "Renew 1 expired consent") {
		t.Errorf("Expected renewal recommendation, got %v", report.Recommendations)
	}
}

func TestAnalyzeConsentLowUptakeRecommendation(t *testing.T) {
	m := newTestManager(t)
	writeFile(t, m.DataDir, "patient_consent_records.csv", consentHeader+
		"c1,p1,Research Participation,false,2099-01-01\n"+
		"c2,p2,Research Participation,false,2099-01-01\n"+
		"c3,p3,Research Participation,true,2099-01-01\n")

	report, err := m.AnalyzeConsent("patient_consent_records.csv")
	if err != nil {
		t.Fatalf("Consent analysis failed: %v", err)
	}
	if report.ComplianceStatus != "Compliant" {
		t.Errorf("Low uptake alone does not breach compliance, got %s", report.ComplianceStatus)
	}
	found := false
	for _, rec := range report.Recommendations {
		if strings.Contains(rec, "Review consent collection process for: Research Participation") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected low-uptake recommendation, got %v", report.Recommendations)
	}
}

func TestAnalyzeConsentMissingFileWritesErrorArtifact(t *testing.T) {
	m := newTestManager(t)

	report, err := m.AnalyzeConsent("patient_consent_records.csv")
	if err == nil {
		t.Fatal("Expected an error for a missing file")
	}
	if report.Status != "failed" || report.Error == "" {
		t.Errorf("Expected failed error report, got %+v", report)
	}
	if _, err := os.Stat(filepath.Join(m.OutputDir, "consent_compliance_error.json")); err != nil {
		t.Errorf("Expected error artifact on disk: %v", err)
	}
}

func TestGenerateDPIADefaultActivities(t *testing.T) {
	m := newTestManager(t)

	dpia, err := m.GenerateDPIA(nil)
	if err != nil {
		t.Fatalf("DPIA generation failed: %v", err)
	}
	if len(dpia.ProcessingActivities) != len(defaultActivities) {
		t.Errorf("Expected %d assessed activities, got %d", len(defaultActivities), len(dpia.ProcessingActivities))
	}
	if dpia.OverallRiskLevel != "Medium" {
		t.Errorf("Expected medium overall risk for default activities, got %s", dpia.OverallRiskLevel)
	}
	if !dpia.Approved {
		t.Error("Expected approval below high risk")
	}

	research := dpia.ProcessingActivities["Research use of anonymized data"]
	if research.LegalBasis != "Consent" {
		t.Errorf("Expected consent basis for research, got %s", research.LegalBasis)
	}
	if research.DataVolume != "High" {
		t.Errorf("Expected high volume for research, got %s", research.DataVolume)
	}

	if _, err := os.Stat(filepath.Join(m.OutputDir, "data_protection_impact_assessment.json")); err != nil {
		t.Errorf("Expected DPIA artifact on disk: %v", err)
	}
}

func TestGenerateDPIAHighRiskWithholdsApproval(t *testing.T) {
	m := newTestManager(t)

	dpia, err := m.GenerateDPIA([]string{"Processing of patient medical records"})
	if err != nil {
		t.Fatalf("DPIA generation failed: %v", err)
	}
	if dpia.OverallRiskLevel != "High" {
		t.Errorf("Expected high risk, got %s", dpia.OverallRiskLevel)
	}
	if dpia.Approved {
		t.Error("Expected approval withheld at high risk")
	}

	found := false
	for _, rec := range dpia.Recommendations {
		if rec == "Consult with ICO before proceeding" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected ICO consultation recommendation, got %v", dpia.Recommendations)
	}

	activity := dpia.ProcessingActivities["Processing of patient medical records"]
	if activity.DataSensitivity != "High" || activity.DataSubjects != "Vulnerable" {
		t.Errorf("Unexpected activity assessment: %+v", activity)
	}
	if activity.ResidualRisk != "Medium" {
		t.Errorf("Expected medium residual risk after mitigation, got %s", activity.ResidualRisk)
	}
}

const auditHeader = "log_id,timestamp,staff_id,staff_name,action,authorized\n"

func TestAnalyzeAccessAuditCompliant(t *testing.T) {
	m := newTestManager(t)
	writeFile(t, m.DataDir, "data_access_audit_logs.csv", auditHeader+
		"l1,2024-06-01 09:00:00,s1,Jane Doe,VIEW,true\n"+
		"l2,2024-06-01 14:00:00,s2,Sam Poe,UPDATE,true\n")

	report, err := m.AnalyzeAccessAudit("data_access_audit_logs.csv")
	if err != nil {
		t.Fatalf("Access analysis failed: %v", err)
	}
	if report.ComplianceStatus != "Compliant" {
		t.Errorf("Expected Compliant, got %s", report.ComplianceStatus)
	}
	if report.UnauthorizedCount != 0 || report.UnauthorizedRate != 0 {
		t.Errorf("Unexpected unauthorized stats: %+v", report)
	}
	if len(report.Recommendations) != 0 {
		t.Errorf("Expected no recommendations, got %v", report.Recommendations)
	}
}

func TestAnalyzeAccessAuditUnauthorizedAndLateHours(t *testing.T) {
	m := newTestManager(t)
	writeFile(t, m.DataDir, "data_access_audit_logs.csv", auditHeader+
		"l1,2024-06-01 09:00:00,s1,Jane Doe,VIEW,true\n"+
		"l2,2024-06-01 23:30:00,s2,Sam Poe,VIEW,false\n"+
		"l3,2024-06-02 02:00:00,s2,Sam Poe,EXPORT,false\n"+
		"l4,2024-06-02 10:00:00,s1,Jane Doe,VIEW,true\n")

	report, err := m.AnalyzeAccessAudit("data_access_audit_logs.csv")
	if err != nil {
		t.Fatalf("Access analysis failed: %v", err)
	}
	if report.ComplianceStatus != "Non-Compliant" {
		t.Errorf("Expected Non-Compliant, got %s", report.ComplianceStatus)
	}
	if report.UnauthorizedCount != 2 || report.UnauthorizedRate != 50.0 {
		t.Errorf("Unexpected unauthorized stats: %d at %.1f%%", report.UnauthorizedCount, report.UnauthorizedRate)
	}
	if report.LateHourAccessCount != 2 || report.LateHourAccessRate != 50.0 {
		t.Errorf("Unexpected late-hour stats: %d at %.1f%%", report.LateHourAccessCount, report.LateHourAccessRate)
	}

	if len(report.UnauthorizedDetails) != 1 || report.UnauthorizedDetails[0].StaffName != "Sam Poe" {
		t.Errorf("Unexpected unauthorized details: %+v", report.UnauthorizedDetails)
	}
	if report.UnauthorizedDetails[0].UnauthorizedCount != 2 {
		t.Errorf("Expected 2 unauthorized events for Sam Poe, got %d", report.UnauthorizedDetails[0].UnauthorizedCount)
	}

	// VIEW leads the action ranking
	if len(report.AccessByAction) == 0 || report.AccessByAction[0].Action != "VIEW" || report.AccessByAction[0].Count != 3 {
		t.Errorf("Unexpected action ranking: %+v", report.AccessByAction)
	}

	if len(report.Recommendations) != 2 {
		t.Fatalf("Expected unauthorized and late-hour recommendations, got %v", report.Recommendations)
	}
	if !strings.Contains(report.Recommendations[0], "Investigate 2 unauthorized access attempts") {
		t.Errorf("Unexpected first recommendation: %s", report.Recommendations[0])
	}
	if !strings.Contains(report.Recommendations[1], "late hours (10 PM - 5 AM)") {
		t.Errorf("Unexpected second recommendation: %s", report.Recommendations[1])
	}
}

func TestAnalyzeAccessAuditHoursAreAscending(t *testing.T) {
	m := newTestManager(t)
	writeFile(t, m.DataDir, "data_access_audit_logs.csv", auditHeader+
		"l1,2024-06-01 15:00:00,s1,Jane Doe,VIEW,true\n"+
		"l2,2024-06-01 03:00:00,s1,Jane Doe,VIEW,true\n"+
		"l3,2024-06-01 09:00:00,s1,Jane Doe,VIEW,true\n")

	report, err := m.AnalyzeAccessAudit("data_access_audit_logs.csv")
	if err != nil {
		t.Fatalf("Access analysis failed: %v", err)
	}
	hours := make([]int, len(report.AccessByHour))
	for i, hc := range report.AccessByHour {
		hours[i] = hc.Hour
	}
	if len(hours) != 3 || hours[0] != 3 || hours[1] != 9 || hours[2] != 15 {
		t.Errorf("Expected hours [3 9 15], got %v", hours)
	}
}

func TestRunAssessmentComposesComponents(t *testing.T) {
	m := newTestManager(t)
	writeFile(t, m.DataDir, "patient_consent_records.csv", consentHeader+
		"c1,p1,Data Processing for Medical Care,true,2099-01-01\n")
	writeFile(t, m.DataDir, "data_access_audit_logs.csv", auditHeader+
		"l1,2024-06-01 09:00:00,s1,Jane Doe,VIEW,false\n")

	assessment, err := m.RunAssessment()
	if err != nil {
		t.Fatalf("Assessment failed: %v", err)
	}
	if assessment.Components["consent_management"].Status != "Compliant" {
		t.Errorf("Unexpected consent component: %+v", assessment.Components["consent_management"])
	}
	if assessment.Components["data_protection_impact"].Status != "Compliant" {
		t.Errorf("Unexpected DPIA component: %+v", assessment.Components["data_protection_impact"])
	}
	if assessment.Components["access_controls"].Status != "Non-Compliant" {
		t.Errorf("Unexpected access component: %+v", assessment.Components["access_controls"])
	}

	if assessment.OverallStatus != "Non-Compliant" {
		t.Errorf("Expected Non-Compliant overall, got %s", assessment.OverallStatus)
	}
	found := false
	for _, finding := range assessment.KeyFindings {
		if finding == "Access Controls requires immediate attention" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected access controls finding, got %v", assessment.KeyFindings)
	}

	if _, err := os.Stat(filepath.Join(m.OutputDir, "overall_compliance_assessment.json")); err != nil {
		t.Errorf("Expected assessment artifact on disk: %v", err)
	}
}

func TestRunAssessmentMissingInputsMarkUnknown(t *testing.T) {
	m := newTestManager(t)

	assessment, err := m.RunAssessment()
	if err != nil {
		t.Fatalf("Assessment should survive missing inputs: %v", err)
	}
	if assessment.Components["consent_management"].Status != "Unknown" {
		t.Errorf("Expected Unknown consent component, got %s", assessment.Components["consent_management"].Status)
	}
	if assessment.Components["access_controls"].Status != "Unknown" {
		t.Errorf("Expected Unknown access component, got %s", assessment.Components["access_controls"].Status)
	}
	// The DPIA needs no input files and still assesses
	if assessment.Components["data_protection_impact"].Status != "Compliant" {
		t.Errorf("Expected Compliant DPIA component, got %s", assessment.Components["data_protection_impact"].Status)
	}
	if assessment.OverallStatus != "Compliant" {
		t.Errorf("Unknown components do not breach compliance, got %s", assessment.OverallStatus)
	}
}
