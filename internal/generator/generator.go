package generator

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jaswdr/faker/v2"
	"github.com/sirupsen/logrus"
)

const timestampLayout = "2006-01-02 15:04:05"

var nhsTrusts = []string{
	"London North West University Healthcare NHS Trust",
	"Manchester University NHS Foundation Trust",
	"University Hospitals Birmingham NHS Foundation Trust",
	"Leeds Teaching Hospitals NHS Trust",
	"Oxford University Hospitals NHS Foundation Trust",
	"Newcastle upon Tyne Hospitals NHS Foundation Trust",
	"University College London Hospitals NHS Foundation Trust",
	"Guy's and St Thomas' NHS Foundation Trust",
	"Cambridge University Hospitals NHS Foundation Trust",
}

var departments = []string{
	"Emergency Care", "Cardiology", "Neurology", "Oncology",
	"Pediatrics", "Surgery", "Orthopedics", "Obstetrics",
	"Gynecology", "Psychiatry", "Radiology", "Pathology",
}

var conditions = []string{
	"Hypertension", "Type 2 Diabetes", "Asthma", "Coronary Artery Disease",
	"COPD", "Arthritis", "Depression", "Anxiety", "Hypothyroidism",
	"Hyperlipidemia", "Obesity", "Chronic Kidney Disease", "None",
}

var medications = []string{
	"Amlodipine", "Lisinopril", "Metformin", "Atorvastatin", "Albuterol",
	"Levothyroxine", "Omeprazole", "Sertraline", "Paracetamol",
	"Ibuprofen", "Aspirin", "Gabapentin", "None",
}

var bloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

var consentTypes = []string{
	"Data Processing for Medical Care",
	"Share Data with Other NHS Trusts",
	"Research Use of Anonymized Data",
	"Contact for Clinical Trials",
	"Receive Health Newsletters",
}

var jobTitles = []string{
	"General Practitioner", "Consultant", "Nurse", "Specialist Nurse",
	"Radiographer", "Pharmacist", "Physiotherapist", "Healthcare Assistant",
	"Administrator", "Receptionist", "Hospital Porter", "Laboratory Technician",
}

var auditActions = []string{
	"View Patient Record", "Update Patient Demographics", "View Test Results",
	"Add Medical Notes", "Prescribe Medication", "Download Medical History",
	"Edit Patient Consent", "Schedule Appointment", "Cancel Appointment",
}

var clinicalSystems = []string{
	"Electronic Health Record", "Patient Portal", "Laboratory System", "Pharmacy System",
}

var labTestTypes = []string{
	"Complete Blood Count", "Comprehensive Metabolic Panel",
	"Lipid Panel", "Thyroid Panel", "Urinalysis",
	"HbA1c", "COVID-19 PCR", "Blood Culture",
}

// Generator produces synthetic patient, staff and audit CSV datasets that
// exercise the governance toolchain without touching real records. All six
// tables share identifiers so cross-dataset joins hold up.
type Generator struct {
	Patients  int
	OutputDir string
	Faker     faker.Faker
	Logger    *logrus.Logger

	rng *rand.Rand
	now time.Time
}

// New creates a generator for the given patient count writing under outputDir.
func New(patients int, outputDir string, logger *logrus.Logger) *Generator {
	return &Generator{
		Patients:  patients,
		OutputDir: outputDir,
		Faker:     faker.New(),
		Logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now(),
	}
}

// Seed makes subsequent generation deterministic for the given seed.
func (g *Generator) Seed(seed int64) {
	g.rng = rand.New(rand.NewSource(seed))
	g.Faker = faker.NewWithSeedInt64(seed)
}

type patientRef struct {
	id        string
	nhsNumber string
}

type recordRef struct {
	id        string
	patientID string
	nhsNumber string
	visitDate time.Time
	physician string
}

type staffRef struct {
	id   string
	name string
}

// GenerateAll produces all six datasets in dependency order so that every
// foreign reference points at a generated row.
func (g *Generator) GenerateAll() error {
	g.Logger.Infof("Generating synthetic NHS data for %d patients", g.Patients)

	patients, err := g.generateDemographics()
	if err != nil {
		return err
	}
	records, err := g.generateMedicalRecords(patients)
	if err != nil {
		return err
	}
	if err := g.generateLabResults(records); err != nil {
		return err
	}
	if err := g.generateConsentRecords(patients); err != nil {
		return err
	}
	staff, err := g.generateStaffRecords()
	if err != nil {
		return err
	}
	if err := g.generateAuditLogs(patients, staff); err != nil {
		return err
	}

	g.Logger.Info("Data generation complete")
	return nil
}

func (g *Generator) generateDemographics() ([]patientRef, error) {
	header := []string{
		"patient_id", "nhs_number", "first_name", "last_name", "date_of_birth",
		"gender", "address", "postcode", "phone_number", "email", "blood_type",
		"registered_gp", "emergency_contact", "emergency_contact_phone",
		"created_at", "updated_at",
	}

	refs := make([]patientRef, 0, g.Patients)
	rows := make([][]string, 0, g.Patients)
	for i := 0; i < g.Patients; i++ {
		gender := g.pick([]string{"Male", "Female"})
		var firstName string
		if gender == "Male" {
			firstName = g.Faker.Person().FirstNameMale()
		} else {
			firstName = g.Faker.Person().FirstNameFemale()
		}
		lastName := g.Faker.Person().LastName()
		now := g.now.Format(timestampLayout)

		ref := patientRef{id: g.Faker.UUID().V4(), nhsNumber: g.nhsNumber()}
		refs = append(refs, ref)
		rows = append(rows, []string{
			ref.id,
			ref.nhsNumber,
			firstName,
			lastName,
			g.dateOfBirth(),
			gender,
			g.Faker.Address().Address(),
			g.ukPostcode(),
			g.Faker.Phone().Number(),
			g.Faker.Internet().Email(),
			g.pick(bloodTypes),
			g.Faker.Person().Name() + " MD",
			g.Faker.Person().Name(),
			g.Faker.Phone().Number(),
			now,
			now,
		})
	}

	if err := g.writeCSV("patient_demographics.csv", header, rows); err != nil {
		return nil, err
	}
	return refs, nil
}

func (g *Generator) generateMedicalRecords(patients []patientRef) ([]recordRef, error) {
	header := []string{
		"record_id", "patient_id", "nhs_number", "visit_date", "trust_name",
		"department", "primary_diagnosis", "secondary_diagnosis", "notes",
		"attending_physician", "medication_prescribed", "follow_up_required",
		"follow_up_date", "created_at", "updated_at",
	}

	var refs []recordRef
	var rows [][]string
	for _, patient := range patients {
		// Between 1 and 5 visits per patient.
		for n := g.rng.Intn(5) + 1; n > 0; n-- {
			visitDate := g.dateWithin(3 * 365)
			diagnosis := g.pick(conditions)
			physician := g.Faker.Person().Name() + " MD"

			secondary := ""
			if g.rng.Float64() > 0.5 {
				secondary = g.pick(conditions)
			}
			followUpDate := ""
			if g.rng.Float64() > 0.5 {
				followUpDate = visitDate.AddDate(0, 0, g.rng.Intn(77)+14).Format("2006-01-02")
			}
			visitStamp := visitDate.Format(timestampLayout)

			ref := recordRef{
				id:        g.Faker.UUID().V4(),
				patientID: patient.id,
				nhsNumber: patient.nhsNumber,
				visitDate: visitDate,
				physician: physician,
			}
			refs = append(refs, ref)
			rows = append(rows, []string{
				ref.id,
				ref.patientID,
				ref.nhsNumber,
				visitDate.Format("2006-01-02"),
				g.pick(nhsTrusts),
				g.pick(departments),
				diagnosis,
				secondary,
				g.medicalNote(diagnosis),
				physician,
				g.pick(medications),
				strconv.FormatBool(g.rng.Intn(2) == 1),
				followUpDate,
				visitStamp,
				visitStamp,
			})
		}
	}

	if err := g.writeCSV("patient_medical_records.csv", header, rows); err != nil {
		return nil, err
	}
	return refs, nil
}

func (g *Generator) generateLabResults(records []recordRef) error {
	header := []string{
		"result_id", "record_id", "patient_id", "nhs_number", "test_type",
		"test_date", "result", "abnormal_flag", "ordering_physician",
		"lab_name", "created_at", "updated_at",
	}

	var rows [][]string
	for _, record := range records {
		// 70% of visits produce lab work, 1 to 3 tests each.
		if g.rng.Float64() >= 0.7 {
			continue
		}
		for n := g.rng.Intn(3) + 1; n > 0; n-- {
			testType := g.pick(labTestTypes)
			result, err := g.labResultPayload(testType)
			if err != nil {
				return err
			}

			abnormal := false
			if g.rng.Float64() < 0.2 {
				abnormal = g.rng.Intn(2) == 1
			}
			now := g.now.Format(timestampLayout)

			rows = append(rows, []string{
				g.Faker.UUID().V4(),
				record.id,
				record.patientID,
				record.nhsNumber,
				testType,
				record.visitDate.Format("2006-01-02"),
				result,
				strconv.FormatBool(abnormal),
				record.physician,
				g.pick([]string{"Royal", "University", "Central", "General"}) + " Hospital Laboratory",
				now,
				now,
			})
		}
	}

	return g.writeCSV("patient_lab_results.csv", header, rows)
}

func (g *Generator) labResultPayload(testType string) (string, error) {
	var payload map[string]string
	switch testType {
	case "Complete Blood Count":
		payload = map[string]string{
			"WBC":        fmt.Sprintf("%.1f x10^9/L", g.uniform(4.0, 11.0)),
			"RBC":        fmt.Sprintf("%.1f x10^12/L", g.uniform(4.0, 5.5)),
			"Hemoglobin": fmt.Sprintf("%.1f g/dL", g.uniform(12.0, 17.0)),
			"Hematocrit": fmt.Sprintf("%.1f%%", g.uniform(36.0, 50.0)),
			"Platelets":  fmt.Sprintf("%.0f x10^9/L", g.uniform(150.0, 450.0)),
		}
	case "Lipid Panel":
		payload = map[string]string{
			"Total Cholesterol": fmt.Sprintf("%.0f mg/dL", g.uniform(130.0, 250.0)),
			"LDL":               fmt.Sprintf("%.0f mg/dL", g.uniform(70.0, 160.0)),
			"HDL":               fmt.Sprintf("%.0f mg/dL", g.uniform(35.0, 80.0)),
			"Triglycerides":     fmt.Sprintf("%.0f mg/dL", g.uniform(40.0, 200.0)),
		}
	default:
		payload = map[string]string{
			"value":           fmt.Sprintf("%.1f", g.uniform(0.5, 10.0)),
			"unit":            g.pick([]string{"mmol/L", "mg/dL", "U/L", "%"}),
			"reference_range": fmt.Sprintf("%.1f-%.1f", g.uniform(0.1, 5.0), g.uniform(5.1, 15.0)),
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling %s result: %w", testType, err)
	}
	return string(data), nil
}

func (g *Generator) generateConsentRecords(patients []patientRef) error {
	header := []string{
		"consent_id", "patient_id", "nhs_number", "consent_type",
		"consent_given", "recorded_date", "recorded_by",
		"consent_expiry_date", "created_at", "updated_at",
	}

	var rows [][]string
	for _, patient := range patients {
		for _, consentType := range consentTypes {
			// Consent to direct care is near universal, the optional
			// types vary per patient.
			probability := 0.85
			if consentType != "Data Processing for Medical Care" {
				probability = g.uniform(0.3, 0.7)
			}
			recordedDate := g.dateWithin(365)
			recordedStamp := recordedDate.Format(timestampLayout)

			rows = append(rows, []string{
				g.Faker.UUID().V4(),
				patient.id,
				patient.nhsNumber,
				consentType,
				strconv.FormatBool(g.rng.Float64() < probability),
				recordedDate.Format("2006-01-02"),
				g.Faker.Person().Name(),
				recordedDate.AddDate(0, 0, 365*2).Format("2006-01-02"),
				recordedStamp,
				recordedStamp,
			})
		}
	}

	return g.writeCSV("patient_consent_records.csv", header, rows)
}

func (g *Generator) generateStaffRecords() ([]staffRef, error) {
	header := []string{
		"staff_id", "first_name", "last_name", "job_title", "department",
		"trust_name", "nhs_email", "phone_extension", "start_date",
		"access_level", "created_at", "updated_at",
	}

	// One staff member per ten patients.
	count := g.Patients / 10
	if count == 0 {
		count = 1
	}

	refs := make([]staffRef, 0, count)
	rows := make([][]string, 0, count)
	for i := 0; i < count; i++ {
		trust := g.pick(nhsTrusts)
		firstName := g.Faker.Person().FirstName()
		lastName := g.Faker.Person().LastName()
		now := g.now.Format(timestampLayout)

		ref := staffRef{id: g.Faker.UUID().V4(), name: firstName + " " + lastName}
		refs = append(refs, ref)
		rows = append(rows, []string{
			ref.id,
			firstName,
			lastName,
			g.pick(jobTitles),
			g.pick(departments),
			trust,
			nhsEmail(firstName, lastName, trust),
			fmt.Sprintf("x%d", g.rng.Intn(9000)+1000),
			g.dateWithin(10 * 365).Format("2006-01-02"),
			g.pick([]string{"Basic", "Standard", "Elevated", "Admin"}),
			now,
			now,
		})
	}

	if err := g.writeCSV("nhs_staff_records.csv", header, rows); err != nil {
		return nil, err
	}
	return refs, nil
}

func (g *Generator) generateAuditLogs(patients []patientRef, staff []staffRef) error {
	header := []string{
		"log_id", "timestamp", "staff_id", "staff_name", "action",
		"resource_type", "resource_id", "nhs_number", "ip_address",
		"system", "authorized", "access_reason", "created_at",
	}

	// Three access events per patient on average, 5% of them unauthorized.
	count := g.Patients * 3
	rows := make([][]string, 0, count)
	for i := 0; i < count; i++ {
		patient := patients[g.rng.Intn(len(patients))]
		member := staff[g.rng.Intn(len(staff))]
		accessTime := g.timeWithin(30 * 24 * time.Hour)
		authorized := g.rng.Float64() > 0.05

		reason := "Clinical Care"
		if !authorized {
			reason = "Unauthorized Access"
		}
		stamp := accessTime.Format(timestampLayout)

		rows = append(rows, []string{
			g.Faker.UUID().V4(),
			stamp,
			member.id,
			member.name,
			g.pick(auditActions),
			"Patient Record",
			patient.id,
			patient.nhsNumber,
			g.Faker.Internet().Ipv4(),
			g.pick(clinicalSystems),
			strconv.FormatBool(authorized),
			reason,
			stamp,
		})
	}

	return g.writeCSV("data_access_audit_logs.csv", header, rows)
}

var noteTemplates = []string{
	"Patient presents with symptoms of %s. Physical examination reveals %s. Recommended %s.",
	"Follow-up appointment for %s. Patient reports %s. Continue with current treatment plan.",
	"Initial consultation for %s. Patient history includes %s. Prescribed %s.",
	"Routine check-up. Patient diagnosed with %s. Lab work ordered to monitor condition.",
	"Emergency admission for acute %s. Patient stabilized and admitted for observation.",
}

var (
	noteFindings = []string{
		"elevated blood pressure", "normal vital signs", "irregular heartbeat",
		"wheezing", "tenderness in abdomen", "joint inflammation",
		"normal range of motion", "limited mobility", "clear lungs",
	}
	noteTreatments = []string{
		"lifestyle modifications", "medication adjustment", "follow-up in 3 months",
		"physical therapy", "dietary changes", "increased physical activity",
		"stress management techniques", "regular monitoring", "specialist referral",
	}
	noteSymptoms = []string{
		"improvement", "no change", "worsening symptoms",
		"side effects from medication", "good response to treatment",
		"occasional pain", "difficulty sleeping", "increased fatigue",
	}
	noteHistories = []string{
		"family history of similar conditions", "no significant prior issues",
		"previous surgery", "allergies to multiple medications",
		"recurrent infections", "smoking history", "recent travel",
	}
	noteMedications = []string{
		"antibiotics", "pain management", "anti-inflammatory medication",
		"blood pressure medication", "insulin", "antidepressants",
		"cholesterol-lowering medication", "corticosteroids",
	}
)

// medicalNote fills one of the note templates for the diagnosis.
func (g *Generator) medicalNote(diagnosis string) string {
	switch g.rng.Intn(len(noteTemplates)) {
	case 0:
		return fmt.Sprintf(noteTemplates[0], diagnosis, g.pick(noteFindings), g.pick(noteTreatments))
	case 1:
		return fmt.Sprintf(noteTemplates[1], diagnosis, g.pick(noteSymptoms))
	case 2:
		return fmt.Sprintf(noteTemplates[2], diagnosis, g.pick(noteHistories), g.pick(noteMedications))
	case 3:
		return fmt.Sprintf(noteTemplates[3], diagnosis)
	default:
		return fmt.Sprintf(noteTemplates[4], diagnosis)
	}
}

// nhsNumber produces a plausible 3-3-4 digit NHS number. No checksum, the
// value only needs to satisfy the format patterns.
func (g *Generator) nhsNumber() string {
	return fmt.Sprintf("%d-%d-%d", g.rng.Intn(600)+400, g.rng.Intn(900)+100, g.rng.Intn(9000)+1000)
}

// ukPostcode synthesizes an outward/inward UK postcode pair. The faker has no
// en_GB locale, so the format comes straight from the seeded rng.
func (g *Generator) ukPostcode() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	area := string(letters[g.rng.Intn(len(letters))])
	if g.rng.Intn(2) == 1 {
		area += string(letters[g.rng.Intn(len(letters))])
	}
	return fmt.Sprintf("%s%d %d%c%c", area, g.rng.Intn(9)+1, g.rng.Intn(10),
		letters[g.rng.Intn(len(letters))], letters[g.rng.Intn(len(letters))])
}

// nhsEmail derives a trust-abbreviated nhs.uk address from a staff name.
func nhsEmail(firstName, lastName, trust string) string {
	var abbr strings.Builder
	for _, word := range strings.Fields(trust) {
		switch word {
		case "NHS", "Foundation", "Trust", "University":
			continue
		}
		abbr.WriteByte(word[0])
	}
	return fmt.Sprintf("%s.%s@%s.nhs.uk",
		strings.ToLower(firstName), strings.ToLower(lastName), strings.ToLower(abbr.String()))
}

func (g *Generator) dateOfBirth() string {
	return g.now.AddDate(0, 0, -g.rng.Intn(100*365)).Format("2006-01-02")
}

// dateWithin returns a date up to maxDays in the past, truncated to midnight.
func (g *Generator) dateWithin(maxDays int) time.Time {
	d := g.now.AddDate(0, 0, -g.rng.Intn(maxDays))
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

// timeWithin returns a timestamp up to max in the past.
func (g *Generator) timeWithin(max time.Duration) time.Time {
	return g.now.Add(-time.Duration(g.rng.Int63n(int64(max))))
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) pick(values []string) string {
	return values[g.rng.Intn(len(values))]
}

func (g *Generator) writeCSV(name string, header []string, rows [][]string) error {
	if err := os.MkdirAll(g.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", g.OutputDir, err)
	}

	path := filepath.Join(g.OutputDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing %s header: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}

	g.Logger.Infof("Generated %d rows: %s", len(rows), path)
	return nil
}
