package models

type Role string

const (
	RoleStudent  Role = "student"
	RoleReviewer Role = "reviewer"
	// RoleSystem is used by the identity provider to push enrollment facts.
	RoleSystem Role = "system"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleStudent, RoleReviewer, RoleSystem:
		return Role(s), true
	default:
		return "", false
	}
}

// Identity is the trusted caller supplied by the identity provider. For
// students UserID is the student id.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

func (i Identity) IsReviewer() bool {
	return i.Role == RoleReviewer
}

// CanAccessStudent reports whether the caller may read studentID's data.
func (i Identity) CanAccessStudent(studentID string) bool {
	if i.IsReviewer() {
		return true
	}
	return i.Role == RoleStudent && i.UserID == studentID
}
