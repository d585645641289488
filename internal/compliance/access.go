package compliance

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nhstools/datagovernor/internal/dataset"
)

// UnauthorizedAccess counts unauthorized events for one staff member.
type UnauthorizedAccess struct {
	StaffName         string `json:"staff_name"`
	UnauthorizedCount int    `json:"unauthorized_count"`
}

// ActionCount counts access events for one action.
type ActionCount struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// HourCount counts access events in one hour of the day.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// AccessReport is the persisted outcome of an access audit analysis.
type AccessReport struct {
	ReportID            string               `json:"report_id"`
	ReportDate          string               `json:"report_date"`
	FileAnalyzed        string               `json:"file_analyzed"`
	TotalAccessRecords  int                  `json:"total_access_records"`
	AuthorizedCount     int                  `json:"authorized_count"`
	UnauthorizedCount   int                  `json:"unauthorized_count"`
	UnauthorizedRate    float64              `json:"unauthorized_rate"`
	UnauthorizedDetails []UnauthorizedAccess `json:"unauthorized_details"`
	LateHourAccessCount int                  `json:"late_hour_access_count"`
	LateHourAccessRate  float64              `json:"late_hour_access_rate"`
	AccessByAction      []ActionCount        `json:"access_by_action"`
	AccessByHour        []HourCount          `json:"access_by_hour"`
	ComplianceStatus    string               `json:"compliance_status"`
	Recommendations     []string             `json:"recommendations"`
	Error               string               `json:"error,omitempty"`
	Status              string               `json:"status,omitempty"`
}

// lateHours span 10 PM to 5 AM, when legitimate access is rare.
var lateHours = map[int]bool{22: true, 23: true, 0: true, 1: true, 2: true, 3: true, 4: true}

// AnalyzeAccessAudit checks the audit log dataset for unauthorized and
// out-of-hours access and persists access_compliance_report.json. Failures
// produce an access_compliance_error.json artifact instead.
func (m *Manager) AnalyzeAccessAudit(auditFile string) (*AccessReport, error) {
	report, err := m.analyzeAccessAudit(auditFile)
	if err != nil {
		errReport := &AccessReport{Error: err.Error(), Status: "failed"}
		if werr := m.writeJSON("access_compliance_error.json", errReport); werr != nil {
			m.Logger.Warningf("Failed to persist error artifact: %v", werr)
		}
		return errReport, err
	}
	if err := m.writeJSON("access_compliance_report.json", report); err != nil {
		return report, err
	}
	m.Logger.Infof("Access compliance analysis complete: %s", report.ComplianceStatus)
	return report, nil
}

func (m *Manager) analyzeAccessAudit(auditFile string) (*AccessReport, error) {
	ds, err := dataset.Load(m.DataDir, auditFile)
	if err != nil {
		return nil, err
	}

	timestampCol, ok := ds.Column("timestamp")
	if !ok {
		return nil, fmt.Errorf("%s is missing column %q", auditFile, "timestamp")
	}
	staffNameCol, ok := ds.Column("staff_name")
	if !ok {
		return nil, fmt.Errorf("%s is missing column %q", auditFile, "staff_name")
	}
	actionCol, ok := ds.Column("action")
	if !ok {
		return nil, fmt.Errorf("%s is missing column %q", auditFile, "action")
	}
	authorizedCol, ok := ds.Column("authorized")
	if !ok {
		return nil, fmt.Errorf("%s is missing column %q", auditFile, "authorized")
	}

	report := &AccessReport{
		ReportID:           uuid.NewString(),
		ReportDate:         time.Now().Format(timestampLayout),
		FileAnalyzed:       auditFile,
		TotalAccessRecords: ds.RecordCount,
		Recommendations:    []string{},
	}

	unauthorizedByStaff := make(map[string]int)
	actionCounts := make(map[string]int)
	hourCounts := make(map[int]int)
	for i := 0; i < ds.RecordCount; i++ {
		authorized, err := strconv.ParseBool(authorizedCol.Values[i])
		if err != nil {
			return nil, fmt.Errorf("parsing authorized on row %d: %w", i+1, err)
		}
		if authorized {
			report.AuthorizedCount++
		} else {
			report.UnauthorizedCount++
			unauthorizedByStaff[staffNameCol.Values[i]]++
		}

		ts, err := time.Parse(timestampLayout, timestampCol.Values[i])
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp on row %d: %w", i+1, err)
		}
		hourCounts[ts.Hour()]++
		if lateHours[ts.Hour()] {
			report.LateHourAccessCount++
		}

		actionCounts[actionCol.Values[i]]++
	}

	if ds.RecordCount > 0 {
		report.UnauthorizedRate = float64(report.UnauthorizedCount) / float64(ds.RecordCount) * 100
		report.LateHourAccessRate = float64(report.LateHourAccessCount) / float64(ds.RecordCount) * 100
	}

	report.UnauthorizedDetails = topUnauthorized(unauthorizedByStaff, 10)
	report.AccessByAction = topActions(actionCounts, 10)
	for hour := 0; hour < 24; hour++ {
		if count, ok := hourCounts[hour]; ok {
			report.AccessByHour = append(report.AccessByHour, HourCount{Hour: hour, Count: count})
		}
	}

	report.ComplianceStatus = "Compliant"
	if report.UnauthorizedCount > 0 {
		report.ComplianceStatus = "Non-Compliant"
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Investigate %d unauthorized access attempts and implement stricter access controls.", report.UnauthorizedCount))
	}
	if report.LateHourAccessCount > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Review %d access attempts during late hours (10 PM - 5 AM) to ensure they are legitimate.", report.LateHourAccessCount))
	}

	return report, nil
}

func topUnauthorized(counts map[string]int, limit int) []UnauthorizedAccess {
	details := make([]UnauthorizedAccess, 0, len(counts))
	for name, count := range counts {
		details = append(details, UnauthorizedAccess{StaffName: name, UnauthorizedCount: count})
	}
	sort.Slice(details, func(i, j int) bool {
		if details[i].UnauthorizedCount != details[j].UnauthorizedCount {
			return details[i].UnauthorizedCount > details[j].UnauthorizedCount
		}
		return details[i].StaffName < details[j].StaffName
	})
	if len(details) > limit {
		details = details[:limit]
	}
	return details
}

func topActions(counts map[string]int, limit int) []ActionCount {
	actions := make([]ActionCount, 0, len(counts))
	for action, count := range counts {
		actions = append(actions, ActionCount{Action: action, Count: count})
	}
	sort.Slice(actions, func(i, j int) bool {
		if actions[i].Count != actions[j].Count {
			return actions[i].Count > actions[j].Count
		}
		return actions[i].Action < actions[j].Action
	})
	if len(actions) > limit {
		actions = actions[:limit]
	}
	return actions
}
