// Package risk scores applicants and derives the eligibility decision and
// interest rate. Evaluate is pure: the same record always yields the same
// result, and missing numbers count as zero.
package risk

import (
	"math"
	"strings"

	"github.com/Dan9191/loanflow/internal/models"
)

const (
	baseRate     = 8.5
	ratePerPoint = 0.05

	minScore = 0
	maxScore = 100
)

type tier struct {
	match  func(v float64) bool
	points int
}

// First matching tier wins.
var creditTiers = []tier{
	{func(v float64) bool { return v >= 760 }, 10},
	{func(v float64) bool { return v >= 700 }, 25},
	{func(v float64) bool { return v >= 650 }, 45},
	{func(float64) bool { return true }, 70},
}

var dtiTiers = []tier{
	{func(v float64) bool { return v <= 0.25 }, 5},
	{func(v float64) bool { return v <= 0.35 }, 15},
	{func(v float64) bool { return v <= 0.50 }, 35},
	{func(float64) bool { return true }, 55},
}

var employmentPoints = map[string]int{
	"SALARIED":      5,
	"SELF_EMPLOYED": 15,
	"STUDENT":       25,
}

const unknownEmploymentPoints = 35

// Evaluate computes DTI, risk score, decision and rate for rec
func Evaluate(rec models.ApplicantRecord) models.Evaluation {
	income := floatOrZero(rec.MonthlyIncome)
	debt := floatOrZero(rec.MonthlyDebt)
	credit := intOrZero(rec.CreditScore)

	dti := DTI(income, debt)

	score := lookup(creditTiers, float64(credit)) +
		lookup(dtiTiers, dti) +
		employmentScore(rec.EmploymentType)
	score = clamp(score, minScore, maxScore)

	return models.Evaluation{
		DTI:          dti,
		RiskScore:    score,
		Decision:     decide(credit, dti),
		InterestRate: Rate(score),
	}
}

// DTI returns debt/income, or 1.0 when income is not positive
func DTI(income, debt float64) float64 {
	if income <= 0 {
		return 1.0
	}
	return debt / income
}

// Rate converts a risk score into an annual rate rounded to one decimal,
// half away from zero for the positive range used here.
func Rate(score int) float64 {
	r := baseRate + float64(score)*ratePerPoint
	return math.Floor(r*10+0.5) / 10
}

// REJECT is checked before REVIEW.
func decide(credit int, dti float64) models.Decision {
	switch {
	case credit < 600 || dti > 0.60:
		return models.DecisionReject
	case credit < 680 || dti > 0.45:
		return models.DecisionReview
	default:
		return models.DecisionEligible
	}
}

func employmentScore(s string) int {
	if p, ok := employmentPoints[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return p
	}
	return unknownEmploymentPoints
}

func lookup(tiers []tier, v float64) int {
	for _, t := range tiers {
		if t.match(v) {
			return t.points
		}
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floatOrZero(p *float64) float64 {
	if p == nil || math.IsNaN(*p) {
		return 0
	}
	return *p
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
