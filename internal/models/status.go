package models

import "time"

type ApplicationStatus string

const (
	AppStatusPendingSubmission ApplicationStatus = "pending_submission"
	AppStatusSubmitted         ApplicationStatus = "submitted"
	AppStatusUnderReview       ApplicationStatus = "under_review"
	AppStatusApproved          ApplicationStatus = "approved"
	AppStatusActionRequired    ApplicationStatus = "action_required"
	AppStatusMoreInfoNeeded    ApplicationStatus = "more_info_needed"
)

var appStatusOrder = []ApplicationStatus{
	AppStatusPendingSubmission,
	AppStatusSubmitted,
	AppStatusUnderReview,
	AppStatusApproved,
	AppStatusActionRequired,
	AppStatusMoreInfoNeeded,
}

var appStatusLabels = map[ApplicationStatus]string{
	AppStatusPendingSubmission: "Pending Submission",
	AppStatusSubmitted:         "Submitted",
	AppStatusUnderReview:       "Under Review",
	AppStatusApproved:          "Approved",
	AppStatusActionRequired:    "Action Required",
	AppStatusMoreInfoNeeded:    "More Info Needed",
}

func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	status := ApplicationStatus(s)
	if _, ok := appStatusLabels[status]; !ok {
		return "", ErrInvalidAppStatus
	}
	return status, nil
}

func (s ApplicationStatus) String() string {
	return string(s)
}

func (s ApplicationStatus) Label() string {
	return appStatusLabels[s]
}

// Rank is the position of s in the fixed status order. The three terminal
// outcomes share the last stage.
func (s ApplicationStatus) Rank() int {
	for i, st := range appStatusOrder {
		if st == s {
			if i > 3 {
				return 3
			}
			return i
		}
	}
	return -1
}

// IsOutcome reports whether s is one of the reviewer decisions.
func (s ApplicationStatus) IsOutcome() bool {
	return s.Rank() == 3
}

type StatusRecord struct {
	StudentID string            `json:"student_id"`
	Status    ApplicationStatus `json:"status"`
	Label     string            `json:"label"`
	UpdatedBy string            `json:"updated_by,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}
