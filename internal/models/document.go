package models

import (
	"time"

	"github.com/samber/lo"
)

type DocumentKind string

const (
	KindApplicationForm   DocumentKind = "srf_form"
	KindAcceptanceLetter  DocumentKind = "acceptance_letter"
	KindMatricCertificate DocumentKind = "matric_certificate"
	KindFeeStructure      DocumentKind = "fee_structure"
	KindAccountStatement  DocumentKind = "account_statement"
	KindAcademicResults   DocumentKind = "academic_results"
	KindProofOfPayment    DocumentKind = "proof_of_payment"
	KindIdentification    DocumentKind = "identification"
)

type Cadence string

const (
	CadenceOneTime   Cadence = "one_time"
	CadenceRecurring Cadence = "recurring"
)

const (
	// MaxRecurringPerYear caps recurring kinds at one upload per quarter.
	MaxRecurringPerYear = 4
	MaxOneTime          = 1
)

// KindInfo describes one entry of the document catalog.
type KindInfo struct {
	Kind         DocumentKind `json:"kind"`
	Label        string       `json:"label"`
	Cadence      Cadence      `json:"cadence"`
	MaxActive    int          `json:"max_active"`
	Core         bool         `json:"core"`
	ReviewerOnly bool         `json:"reviewer_only"`
}

var catalog = []KindInfo{
	{Kind: KindApplicationForm, Label: "SRF Application Form", Cadence: CadenceOneTime, MaxActive: MaxOneTime, Core: true},
	{Kind: KindAcceptanceLetter, Label: "University Acceptance Letter", Cadence: CadenceOneTime, MaxActive: MaxOneTime, Core: true},
	{Kind: KindMatricCertificate, Label: "Matric Certificate", Cadence: CadenceOneTime, MaxActive: MaxOneTime, Core: true},
	{Kind: KindFeeStructure, Label: "Fee Structure", Cadence: CadenceRecurring, MaxActive: MaxRecurringPerYear},
	{Kind: KindAccountStatement, Label: "Account Statement", Cadence: CadenceRecurring, MaxActive: MaxRecurringPerYear},
	{Kind: KindAcademicResults, Label: "Academic Results", Cadence: CadenceRecurring, MaxActive: MaxRecurringPerYear},
	{Kind: KindProofOfPayment, Label: "Proof of Payment (Admin)", Cadence: CadenceOneTime, MaxActive: MaxOneTime, ReviewerOnly: true},
	{Kind: KindIdentification, Label: "Identification Document", Cadence: CadenceOneTime, MaxActive: MaxOneTime},
}

var catalogIndex = lo.KeyBy(catalog, func(k KindInfo) DocumentKind { return k.Kind })

// Catalog returns a copy of every recognized document kind in display order.
func Catalog() []KindInfo {
	out := make([]KindInfo, len(catalog))
	copy(out, catalog)
	return out
}

// CoreKinds returns the kinds that drive the registration progress metric.
func CoreKinds() []DocumentKind {
	return lo.FilterMap(catalog, func(k KindInfo, _ int) (DocumentKind, bool) {
		return k.Kind, k.Core
	})
}

func ParseDocumentKind(s string) (DocumentKind, error) {
	kind := DocumentKind(s)
	if _, ok := catalogIndex[kind]; !ok {
		return "", ErrInvalidKind
	}
	return kind, nil
}

func (k DocumentKind) String() string {
	return string(k)
}

func (k DocumentKind) Info() (KindInfo, bool) {
	info, ok := catalogIndex[k]
	return info, ok
}

func (k DocumentKind) Label() string {
	if info, ok := catalogIndex[k]; ok {
		return info.Label
	}
	return string(k)
}

func (k DocumentKind) IsRecurring() bool {
	return catalogIndex[k].Cadence == CadenceRecurring
}

func (k DocumentKind) MaxActive() int {
	if info, ok := catalogIndex[k]; ok {
		return info.MaxActive
	}
	return 0
}

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewVerified ReviewStatus = "verified"
	ReviewRejected ReviewStatus = "rejected"
)

func (s ReviewStatus) String() string {
	return string(s)
}

func IsValidReviewStatus(status string) bool {
	switch ReviewStatus(status) {
	case ReviewPending, ReviewVerified, ReviewRejected:
		return true
	default:
		return false
	}
}

// DocumentRecord is a single submitted file. Quarter and Year are set for
// recurring kinds only.
type DocumentRecord struct {
	ID          string       `json:"id" db:"id"`
	StudentID   string       `json:"student_id" db:"student_id"`
	Kind        DocumentKind `json:"kind" db:"kind"`
	FileName    string       `json:"file_name" db:"file_name"`
	MimeType    string       `json:"mime_type" db:"mime_type"`
	Size        int64        `json:"size" db:"size"`
	StorageKey  string       `json:"-" db:"storage_key"`
	Status      ReviewStatus `json:"status" db:"status"`
	Quarter     int          `json:"quarter,omitempty" db:"quarter"`
	Year        int          `json:"year,omitempty" db:"year"`
	SubmittedBy string       `json:"submitted_by" db:"submitted_by"`
	SubmittedAt time.Time    `json:"submitted_at" db:"submitted_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// QuarterOf maps a calendar month onto its quarter, ceil(month/3).
func QuarterOf(t time.Time) int {
	return (int(t.Month()) + 2) / 3
}
