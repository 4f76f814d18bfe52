package models

import "time"

// LoanStatus is the lifecycle state of a credit application
type LoanStatus string

const (
	StatusSubmitted LoanStatus = "SUBMITTED"
	StatusApproved  LoanStatus = "APPROVED"
	StatusRejected  LoanStatus = "REJECTED"
)

// ParseLoanStatus reports whether s names a known status
func ParseLoanStatus(s string) (LoanStatus, bool) {
	switch st := LoanStatus(s); st {
	case StatusSubmitted, StatusApproved, StatusRejected:
		return st, true
	}
	return "", false
}

// Terminal reports whether no further transition is allowed from s
func (s LoanStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Decision is the eligibility outcome computed at creation
type Decision string

const (
	DecisionEligible Decision = "ELIGIBLE"
	DecisionReview   Decision = "REVIEW"
	DecisionReject   Decision = "REJECT"
)

// ApplicantRecord is the raw applicant input. Numeric fields are pointers so
// that an absent value can be told apart from zero before normalization.
type ApplicantRecord struct {
	FullName       string   `json:"fullName"`
	Amount         *float64 `json:"amount"`
	Tenure         *int     `json:"tenure"`
	MonthlyIncome  *float64 `json:"monthlyIncome"`
	MonthlyDebt    *float64 `json:"monthlyDebt"`
	CreditScore    *int     `json:"creditScore"`
	EmploymentType string   `json:"employmentType"`
	Purpose        string   `json:"purpose"`
}

// Evaluation holds the computed analytics of an applicant
type Evaluation struct {
	DTI          float64  `json:"dti"`
	RiskScore    int      `json:"riskScore"`
	Decision     Decision `json:"eligibilityDecision"`
	InterestRate float64  `json:"interestRate"`
}

// LoanApplication represents a credit application in the system.
// DTI, RiskScore, EligibilityDecision and InterestRate never change after creation.
type LoanApplication struct {
	ID                  int64      `json:"id"`
	UserID              int64      `json:"userId"`
	FullName            string     `json:"fullName"`
	Amount              float64    `json:"amount"`
	Tenure              int        `json:"tenure"`
	MonthlyIncome       float64    `json:"monthlyIncome"`
	MonthlyDebt         float64    `json:"monthlyDebt"`
	CreditScore         int        `json:"creditScore"`
	EmploymentType      string     `json:"employmentType"`
	Purpose             string     `json:"purpose"`
	DTI                 float64    `json:"dti"`
	RiskScore           int        `json:"riskScore"`
	EligibilityDecision Decision   `json:"eligibilityDecision"`
	InterestRate        float64    `json:"interestRate"`
	Status              LoanStatus `json:"status"`
	HMAC                string     `json:"hmac"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// LoanQuery selects a page of applications
type LoanQuery struct {
	Page      int
	Size      int
	SortBy    string
	Direction string
	Status    LoanStatus // empty means any
	UserID    int64      // zero means any owner
}

// LoanPage is one page of applications
type LoanPage struct {
	Content       []LoanApplication `json:"content"`
	Page          int               `json:"page"`
	Size          int               `json:"size"`
	TotalElements int64             `json:"totalElements"`
	TotalPages    int               `json:"totalPages"`
}
