package synthetic

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// csvHeader is the unified column set across all lines. Columns that do
// not apply to a line are left zero or empty, matching the merged frame
// the training pipeline consumes.
var csvHeader = []string{
	"claim_id", "policy_id", "policy_type", "claim_amount", "policy_limit",
	"policy_deductible", "policy_annual_premium", "incident_severity",
	"policy_inception_date", "claim_date", "report_date",
	"days_since_policy_inception", "report_delay_days",
	"insured_age", "insured_gender", "insured_education", "insured_occupation",
	"county", "payment_method", "num_prior_claims", "incident_hour",
	"police_report_available", "is_fraudulent", "incident_type",
	"bodily_injuries", "witnesses", "vehicle_type", "garage_id",
	"diagnosis_code", "treatment_type", "hospital_id",
	"property_type", "damage_cause", "assessor_id",
	"reserve_amount",
}

// WriteCSV writes the dataset to path. Any failure aborts the whole
// write; a partial file is removed.
func WriteCSV(path string, rows []*Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset file: %w", err)
	}

	w := csv.NewWriter(f)

	write := func() error {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
		for _, row := range rows {
			if err := w.Write(row.record()); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	}

	if err := write(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write dataset: %w", err)
	}

	return f.Close()
}

// ReadCSV loads a dataset written by WriteCSV.
func ReadCSV(path string) ([]*Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}
	if len(records[0]) != len(csvHeader) {
		return nil, fmt.Errorf("unexpected column count: got %d, want %d", len(records[0]), len(csvHeader))
	}

	rows := make([]*Row, 0, len(records)-1)
	for i, record := range records[1:] {
		row, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func (r *Row) record() []string {
	return []string{
		strconv.Itoa(r.ClaimID),
		strconv.Itoa(r.PolicyID),
		r.PolicyType,
		strconv.Itoa(r.ClaimAmount),
		strconv.Itoa(r.PolicyLimit),
		strconv.Itoa(r.PolicyDeductible),
		strconv.Itoa(r.PolicyAnnualPremium),
		r.IncidentSeverity,
		r.PolicyInceptionDate,
		r.ClaimDate,
		r.ReportDate,
		strconv.Itoa(r.DaysSincePolicyInception),
		strconv.Itoa(r.ReportDelayDays),
		strconv.Itoa(r.InsuredAge),
		r.InsuredGender,
		r.InsuredEducation,
		r.InsuredOccupation,
		r.County,
		r.PaymentMethod,
		strconv.Itoa(r.NumPriorClaims),
		strconv.Itoa(r.IncidentHour),
		r.PoliceReportAvailable,
		strconv.Itoa(r.IsFraudulent),
		r.IncidentType,
		strconv.Itoa(r.BodilyInjuries),
		strconv.Itoa(r.Witnesses),
		r.VehicleType,
		strconv.Itoa(r.GarageID),
		r.DiagnosisCode,
		r.TreatmentType,
		strconv.Itoa(r.HospitalID),
		r.PropertyType,
		r.DamageCause,
		strconv.Itoa(r.AssessorID),
		strconv.Itoa(r.ReserveAmount),
	}
}

func parseRecord(record []string) (*Row, error) {
	if len(record) != len(csvHeader) {
		return nil, fmt.Errorf("unexpected field count: got %d, want %d", len(record), len(csvHeader))
	}

	atoi := func(s string) (int, error) {
		if s == "" {
			return 0, nil
		}
		return strconv.Atoi(s)
	}

	var row Row
	var err error

	ints := []struct {
		dst *int
		idx int
	}{
		{&row.ClaimID, 0}, {&row.PolicyID, 1}, {&row.ClaimAmount, 3},
		{&row.PolicyLimit, 4}, {&row.PolicyDeductible, 5}, {&row.PolicyAnnualPremium, 6},
		{&row.DaysSincePolicyInception, 11}, {&row.ReportDelayDays, 12},
		{&row.InsuredAge, 13}, {&row.NumPriorClaims, 19}, {&row.IncidentHour, 20},
		{&row.IsFraudulent, 22}, {&row.BodilyInjuries, 24}, {&row.Witnesses, 25},
		{&row.GarageID, 27}, {&row.HospitalID, 30}, {&row.AssessorID, 33},
		{&row.ReserveAmount, 34},
	}
	for _, f := range ints {
		if *f.dst, err = atoi(record[f.idx]); err != nil {
			return nil, fmt.Errorf("column %s: %w", csvHeader[f.idx], err)
		}
	}

	row.PolicyType = record[2]
	row.IncidentSeverity = record[7]
	row.PolicyInceptionDate = record[8]
	row.ClaimDate = record[9]
	row.ReportDate = record[10]
	row.InsuredGender = record[14]
	row.InsuredEducation = record[15]
	row.InsuredOccupation = record[16]
	row.County = record[17]
	row.PaymentMethod = record[18]
	row.PoliceReportAvailable = record[21]
	row.IncidentType = record[23]
	row.VehicleType = record[26]
	row.DiagnosisCode = record[28]
	row.TreatmentType = record[29]
	row.PropertyType = record[31]
	row.DamageCause = record[32]

	return &row, nil
}
