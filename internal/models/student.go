package models

import (
	"strings"
	"time"
)

type GuardianDetails struct {
	FatherName  string `json:"father_name"`
	FatherPhone string `json:"father_phone"`
	MotherName  string `json:"mother_name"`
	MotherPhone string `json:"mother_phone"`
}

type BankDetails struct {
	AccountHolder string `json:"account_holder"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	BranchCode    string `json:"branch_code"`
}

// Masked hides everything but the last four digits of the account number.
func (b BankDetails) Masked() BankDetails {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, b.AccountNumber)
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	b.AccountNumber = "**** **** **** " + digits
	return b
}

// StudentProfile holds enrollment facts supplied by the identity provider
// and banking details owned by the student.
type StudentProfile struct {
	ID                 string          `json:"id" db:"id"`
	FirstName          string          `json:"first_name" db:"first_name"`
	LastName           string          `json:"last_name" db:"last_name"`
	StudentNumber      string          `json:"student_number" db:"student_number"`
	Email              string          `json:"email" db:"email"`
	University         string          `json:"university" db:"university"`
	Course             string          `json:"course" db:"course"`
	YearOfStudy        int             `json:"year_of_study" db:"year_of_study"`
	ResidentialAddress string          `json:"residential_address" db:"residential_address"`
	Guardians          GuardianDetails `json:"guardians" db:"guardians"`
	BankDetails        *BankDetails    `json:"bank_details,omitempty" db:"bank_details"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

func (p StudentProfile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// StudentSummary is one row of the reviewer directory.
type StudentSummary struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	StudentNumber   string            `json:"student_number"`
	University      string            `json:"university"`
	Course          string            `json:"course"`
	Status          ApplicationStatus `json:"status"`
	StatusLabel     string            `json:"status_label"`
	ProgressPercent int               `json:"progress_percent"`
	DocumentCount   int               `json:"document_count"`
	PendingReview   int               `json:"pending_review"`
}
