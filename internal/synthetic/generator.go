// Package synthetic generates reproducible synthetic claim datasets for
// model development and benchmarking. A single seeded random source
// drives the whole run, so identical configuration yields an identical
// dataset.
package synthetic

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Row is one generated claim record.
type Row struct {
	ClaimID                  int
	PolicyID                 int
	PolicyType               string
	ClaimAmount              int
	PolicyLimit              int
	PolicyDeductible         int
	PolicyAnnualPremium      int
	IncidentSeverity         string
	PolicyInceptionDate      string
	ClaimDate                string
	ReportDate               string
	DaysSincePolicyInception int
	ReportDelayDays          int
	InsuredAge               int
	InsuredGender            string
	InsuredEducation         string
	InsuredOccupation        string
	County                   string
	PaymentMethod            string
	NumPriorClaims           int
	IncidentHour             int
	PoliceReportAvailable    string
	IsFraudulent             int
	IncidentType             string

	// Auto line
	BodilyInjuries int
	Witnesses      int
	VehicleType    string
	GarageID       int

	// Health line
	DiagnosisCode string
	TreatmentType string
	HospitalID    int

	// Property line
	PropertyType string
	DamageCause  string
	AssessorID   int

	ReserveAmount int
}

// Config controls a generation run.
type Config struct {
	SamplesPerType int
	StartDate      time.Time
	EndDate        time.Time
	Seed           int64
}

// DefaultConfig returns the standard benchmark configuration.
func DefaultConfig() Config {
	return Config{
		SamplesPerType: 3000,
		StartDate:      time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC),
		Seed:           42,
	}
}

// Generator produces synthetic claim datasets.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// NewGenerator creates a generator with its own seeded random stream.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

const fraudRate = 0.05

var policyTypes = []string{"auto", "health", "property"}

type lineParams struct {
	minClaim float64
	maxClaim float64
	scale    float64

	limitMultLow  float64
	limitMultHigh float64
	maxLimit      int

	deductibles       []int
	deductibleWeights []float64
}

var lines = map[string]lineParams{
	"auto": {
		minClaim: 50_000, maxClaim: 1_000_000, scale: 100_000,
		limitMultLow: 1.5, limitMultHigh: 4.0, maxLimit: 2_000_000,
		deductibles:       []int{0, 5_000, 10_000, 20_000},
		deductibleWeights: []float64{0.05, 0.45, 0.35, 0.15},
	},
	"health": {
		minClaim: 10_000, maxClaim: 500_000, scale: 50_000,
		limitMultLow: 1.5, limitMultHigh: 6.0, maxLimit: 5_000_000,
		deductibles:       []int{0, 2_000, 5_000, 10_000},
		deductibleWeights: []float64{0.2, 0.5, 0.25, 0.05},
	},
	"property": {
		minClaim: 100_000, maxClaim: 5_000_000, scale: 500_000,
		limitMultLow: 2.0, limitMultHigh: 8.0, maxLimit: 20_000_000,
		deductibles:       []int{0, 10_000, 25_000, 50_000},
		deductibleWeights: []float64{0.02, 0.3, 0.4, 0.28},
	},
}

var (
	counties = []string{
		"Nairobi", "Mombasa", "Nakuru", "Kisumu", "Turkana",
		"Kiambu", "Kilifi", "Uasin Gishu", "Kakamega", "Bungoma",
		"Nyeri", "Machakos", "Kisii", "Meru", "Eldoret",
	}
	countyWeights = []float64{
		0.25, 0.10, 0.08, 0.06, 0.03,
		0.07, 0.05, 0.06, 0.05, 0.04,
		0.03, 0.04, 0.03, 0.03, 0.04,
	}

	autoIncidents       = []string{"single_vehicle_collision", "multi_vehicle_collision", "parked_vehicle", "boda_boda_collision"}
	autoIncidentWeights = []float64{0.5, 0.3, 0.1, 0.1}
	healthIncidents     = []string{"emergency_visit", "surgery", "hospitalization"}
	propertyIncidents   = []string{"fire", "flood", "theft", "burglary"}
	propertyWeights     = []float64{0.5, 0.2, 0.2, 0.1}

	paymentMethods = []string{"mpesa", "bank_transfer", "cash"}
	paymentWeights = []float64{0.62, 0.31, 0.07}

	severities      = []string{"minor", "major", "total_loss"}
	severityWeights = []float64{0.68, 0.27, 0.05}

	genders          = []string{"male", "female", "other"}
	genderWeights    = []float64{0.47, 0.47, 0.06}
	educations       = []string{"high_school", "bachelors", "masters"}
	educationWeights = []float64{0.5, 0.35, 0.15}
	occupations      = []string{"sales", "tech", "manual_labor", "farmer", "driver"}
)

// Generate produces the full dataset: all three lines, normal and fraud
// rows combined, shuffled, with global claim and policy ids assigned.
func (g *Generator) Generate() ([]*Row, error) {
	if g.cfg.SamplesPerType <= 0 {
		return nil, fmt.Errorf("samples per type must be positive, got %d", g.cfg.SamplesPerType)
	}
	if !g.cfg.EndDate.After(g.cfg.StartDate) {
		return nil, fmt.Errorf("end date must be after start date")
	}

	var all []*Row
	for _, ptype := range policyTypes {
		all = append(all, g.generateLine(ptype)...)
	}

	// Global identifiers after the per-line shuffles.
	for i, row := range all {
		row.ClaimID = i + 1
		row.PolicyID = intRange(g.rng, 100_000, 999_999)
	}

	return all, nil
}

func (g *Generator) generateLine(ptype string) []*Row {
	params := lines[ptype]

	normalSamples := int(float64(g.cfg.SamplesPerType) * (1 - fraudRate))
	fraudSamples := g.cfg.SamplesPerType - normalSamples

	normal := make([]*Row, normalSamples)
	for i := 0; i < normalSamples; i++ {
		normal[i] = g.generateNormalRow(ptype, params)
	}

	// Fraud rows derive from a sampled subset of normal rows.
	fraud := make([]*Row, 0, fraudSamples)
	for _, idx := range g.rng.Perm(normalSamples)[:fraudSamples] {
		fraud = append(fraud, g.deriveFraudRow(ptype, normal[idx]))
	}

	combined := append(normal, fraud...)
	g.rng.Shuffle(len(combined), func(i, j int) {
		combined[i], combined[j] = combined[j], combined[i]
	})

	return combined
}

func (g *Generator) generateNormalRow(ptype string, params lineParams) *Row {
	rng := g.rng

	amount := gammaSample(rng, 2.0, params.scale)
	amount = clamp(amount, params.minClaim, params.maxClaim)
	claimAmount := roundNearest(amount, 100)

	// Policy limit scales with the claim, bounded per line.
	limitMult := uniformRange(rng, params.limitMultLow, params.limitMultHigh)
	limit := roundNearest(clamp(float64(claimAmount)*limitMult, params.minClaim, params.maxClaim*8), 100)
	limit = int(clamp(float64(max(100_000, limit)), 0, float64(params.maxLimit)))

	deductible := weightedInt(rng, params.deductibles, params.deductibleWeights)

	// Premiums priced against the limit.
	premiumRaw := float64(limit) * uniformRange(rng, 0.006, 0.02)
	if premiumRaw < 3000 {
		premiumRaw = 3000
	}
	premium := roundNearest(premiumRaw, 500)

	severity := weightedString(rng, severities, severityWeights)

	// Inception 0-6 years before the end of the window.
	yearsBack := rng.Intn(6)
	daysBack := rng.Intn(365)
	inception := g.cfg.EndDate.AddDate(-yearsBack, 0, -daysBack)

	// Claim date after inception, within the window.
	startForClaim := g.cfg.StartDate
	if inception.After(startForClaim) {
		startForClaim = inception
	}
	daysPossible := int(g.cfg.EndDate.Sub(startForClaim).Hours() / 24)
	claimDate := startForClaim
	if daysPossible > 0 {
		claimDate = startForClaim.AddDate(0, 0, rng.Intn(daysPossible+1))
	}

	reportDelay := rng.Intn(15)
	reportDate := claimDate.AddDate(0, 0, reportDelay)

	row := &Row{
		PolicyType:               ptype,
		ClaimAmount:              claimAmount,
		PolicyLimit:              limit,
		PolicyDeductible:         deductible,
		PolicyAnnualPremium:      premium,
		IncidentSeverity:         severity,
		PolicyInceptionDate:      inception.Format("2006-01-02"),
		ClaimDate:                claimDate.Format("2006-01-02"),
		ReportDate:               reportDate.Format("2006-01-02"),
		DaysSincePolicyInception: int(claimDate.Sub(inception).Hours() / 24),
		ReportDelayDays:          reportDelay,
		InsuredAge:               intRange(rng, 18, 75),
		InsuredGender:            weightedString(rng, genders, genderWeights),
		InsuredEducation:         weightedString(rng, educations, educationWeights),
		InsuredOccupation:        choiceString(rng, occupations),
		County:                   weightedString(rng, counties, countyWeights),
		PaymentMethod:            weightedString(rng, paymentMethods, paymentWeights),
		NumPriorClaims:           poissonSample(rng, 0.6),
		IncidentHour:             rng.Intn(24),
		PoliceReportAvailable:    weightedString(rng, []string{"yes", "no"}, []float64{0.75, 0.25}),
		IsFraudulent:             0,
	}

	switch ptype {
	case "auto":
		row.BodilyInjuries = weightedInt(rng, []int{0, 1, 2}, []float64{0.75, 0.20, 0.05})
		row.Witnesses = weightedInt(rng, []int{0, 1, 2, 3}, []float64{0.15, 0.35, 0.35, 0.15})
		row.VehicleType = weightedString(rng, []string{"saloon", "suv", "pickup", "matatu"}, []float64{0.45, 0.2, 0.15, 0.2})
		row.IncidentType = weightedString(rng, autoIncidents, autoIncidentWeights)
		row.GarageID = intRange(rng, 200, 999)
	case "health":
		row.DiagnosisCode = choiceString(rng, []string{"D123", "H456", "M789", "S234"})
		row.TreatmentType = weightedString(rng, []string{"surgery", "consultation", "medication"}, []float64{0.2, 0.5, 0.3})
		row.HospitalID = intRange(rng, 1000, 1999)
		row.IncidentType = choiceString(rng, healthIncidents)
	case "property":
		row.PropertyType = weightedString(rng, []string{"residential", "commercial"}, []float64{0.8, 0.2})
		row.DamageCause = weightedString(rng, propertyIncidents, propertyWeights)
		row.IncidentType = row.DamageCause
		row.AssessorID = intRange(rng, 3000, 3999)
	}

	row.ReserveAmount = CalculateReserve(rng, row)

	return row
}

// deriveFraudRow builds a fraudulent record from a normal one: inflate
// the amount within the policy limit, degrade the evidence trail, and
// cut the reserve to model investigation holdback.
func (g *Generator) deriveFraudRow(ptype string, base *Row) *Row {
	rng := g.rng

	row := *base
	row.IsFraudulent = 1

	// Inflate claim amount, capped at the policy limit.
	inflated := roundNearest(float64(base.ClaimAmount)*uniformRange(rng, 1.25, 1.9), 100)
	if inflated > base.PolicyLimit {
		inflated = base.PolicyLimit
	}
	if inflated < base.ClaimAmount {
		inflated = roundNearest(float64(base.ClaimAmount)*1.2, 100)
	}
	row.ClaimAmount = inflated

	row.PoliceReportAvailable = weightedString(rng, []string{"no", "?"}, []float64{0.85, 0.15})
	row.ReportDelayDays = intRange(rng, 7, 90)
	if claimDate, err := time.Parse("2006-01-02", row.ClaimDate); err == nil {
		row.ReportDate = claimDate.AddDate(0, 0, row.ReportDelayDays).Format("2006-01-02")
	}
	row.NumPriorClaims = base.NumPriorClaims + intRange(rng, 1, 4)

	// Unknown out-of-range providers show up in a slice of fraud rows.
	switch ptype {
	case "health":
		if rng.Float64() < 0.18 {
			row.HospitalID = intRange(rng, 3000, 9999)
		}
	case "auto":
		if rng.Float64() < 0.12 {
			row.GarageID = intRange(rng, 10_000, 99_999)
		}
	case "property":
		if rng.Float64() < 0.12 {
			row.AssessorID = intRange(rng, 10_000, 99_999)
		}
	}

	// Reserve recomputed on the inflated amount, then held back further
	// pending investigation.
	row.ReserveAmount = CalculateReserve(rng, &row)
	held := float64(row.ReserveAmount) * uniformRange(rng, 0.25, 0.60)
	if held < 0 {
		held = 0
	}
	row.ReserveAmount = roundNearest(held, 100)

	return &row
}

// CalculateReserve computes the initial reserve for a generated row.
// The reserve starts from a severity fraction of the claim, is adjusted
// for policy tenure and prior claims, reduced by the deductible, capped
// by the policy limit and the claim itself, and jittered.
func CalculateReserve(rng *rand.Rand, row *Row) int {
	claim := float64(row.ClaimAmount)
	deductible := float64(row.PolicyDeductible)
	limit := float64(row.PolicyLimit)
	if limit <= 0 {
		limit = math.Max(claim, 1.0)
	}

	baseFrac := 0.75
	switch row.IncidentSeverity {
	case "minor":
		baseFrac = 0.5
	case "major":
		baseFrac = 0.8
	case "total_loss":
		baseFrac = 1.0
	}

	typeFactor := 1.0
	if row.PolicyType == "health" {
		typeFactor = 0.9
	}

	reserve := baseFrac * claim * typeFactor

	// Very new policies carry extra uncertainty.
	if row.DaysSincePolicyInception < 30 {
		reserve *= 1.10
	} else if row.DaysSincePolicyInception < 180 {
		reserve *= 1.03
	}

	switch {
	case row.NumPriorClaims >= 3:
		reserve *= 1.08
	case row.NumPriorClaims == 2:
		reserve *= 1.05
	case row.NumPriorClaims == 1:
		reserve *= 1.02
	}

	reserve = math.Max(0.0, reserve-deductible)
	reserve = math.Min(reserve, limit)

	if row.IsFraudulent == 1 {
		reserve *= uniformRange(rng, 0.30, 0.65)
	} else {
		reserve *= uniformRange(rng, 0.95, 1.08)
	}

	reserve *= 1.0 + uniformRange(rng, -0.08, 0.08)

	reserve = math.Max(0.0, math.Min(reserve, claim))

	// Claims with evidence keep a minimal reserve.
	if row.IsFraudulent == 0 && claim >= 10_000 && reserve < 0.05*claim {
		reserve = 0.05 * claim
	}

	return roundNearest(reserve, 100)
}
