package models

// Data Transfer Objects

type UploadDocumentRequest struct {
	StudentID string `json:"student_id"`
	Kind      string `json:"kind"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	Size      int64  `json:"size"`
	Content   []byte `json:"-"`
}

type SubmitDocumentResponse struct {
	Record     DocumentRecord `json:"record"`
	Superseded []string       `json:"superseded,omitempty"`
}

type UpdateReviewStatusRequest struct {
	Status string `json:"status"`
}

type UpdateApplicationStatusRequest struct {
	Status string `json:"status"`
}

type EnrollmentRequest struct {
	FirstName          string          `json:"first_name"`
	LastName           string          `json:"last_name"`
	StudentNumber      string          `json:"student_number"`
	Email              string          `json:"email"`
	University         string          `json:"university"`
	Course             string          `json:"course"`
	YearOfStudy        int             `json:"year_of_study"`
	ResidentialAddress string          `json:"residential_address"`
	Guardians          GuardianDetails `json:"guardians"`
}

type ProgressReport struct {
	CompletedCore int            `json:"completed_core"`
	TotalCore     int            `json:"total_core"`
	Percent       int            `json:"percent"`
	Missing       []DocumentKind `json:"missing"`
}

type ChecklistItem struct {
	Kind      DocumentKind `json:"kind"`
	Label     string       `json:"label"`
	Cadence   Cadence      `json:"cadence"`
	Core      bool         `json:"core"`
	Count     int          `json:"count"`
	MaxActive int          `json:"max_active"`
	CanUpload bool         `json:"can_upload"`
}

type ProgressResponse struct {
	StudentID string          `json:"student_id"`
	Progress  ProgressReport  `json:"progress"`
	Checklist []ChecklistItem `json:"checklist"`
}

type NotificationsResponse struct {
	Notifications []Notification `json:"notifications"`
	Unread        int            `json:"unread"`
}

type AskRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Text           string `json:"text"`
}

type AskResponse struct {
	ConversationID string      `json:"conversation_id"`
	Question       ChatMessage `json:"question"`
	Reply          ChatMessage `json:"reply"`
}
