package models

type DocumentSubmittedEvent struct {
	RecordID    string `json:"record_id"`
	StudentID   string `json:"student_id"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
	Quarter     int    `json:"quarter,omitempty"`
	Year        int    `json:"year,omitempty"`
	Superseded  int    `json:"superseded"`
	SubmittedBy string `json:"submitted_by"`
	Timestamp   int64  `json:"timestamp"`
}

type DocumentReviewedEvent struct {
	RecordID   string `json:"record_id"`
	StudentID  string `json:"student_id"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	ReviewerID string `json:"reviewer_id"`
	Timestamp  int64  `json:"timestamp"`
}

// ReviewDecisionMessage arrives on the review queue from an external review desk.
type ReviewDecisionMessage struct {
	RecordID   string `json:"record_id"`
	Status     string `json:"status"`
	ReviewerID string `json:"reviewer_id"`
}
