package service

import (
	"time"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
)

// TaskRunner executes fire-and-forget work such as blob cleanup and event
// publishing. Submit reports whether the task was accepted.
type TaskRunner interface {
	Submit(task func()) bool
}

type goroutineRunner struct{}

// NewGoroutineRunner runs every task on its own goroutine.
func NewGoroutineRunner() TaskRunner {
	return goroutineRunner{}
}

func (goroutineRunner) Submit(task func()) bool {
	go task()
	return true
}

func authenticated(identity models.Identity) error {
	if identity.UserID == "" {
		return models.ErrUnauthenticated
	}
	return nil
}

// authorizeStudent lets the student and reviewers through.
func authorizeStudent(identity models.Identity, studentID string) error {
	if err := authenticated(identity); err != nil {
		return err
	}
	if !identity.CanAccessStudent(studentID) {
		return models.ErrForbidden
	}
	return nil
}

// authorizeSelf lets only the student through.
func authorizeSelf(identity models.Identity, studentID string) error {
	if err := authenticated(identity); err != nil {
		return err
	}
	if identity.Role != models.RoleStudent || identity.UserID != studentID {
		return models.ErrForbidden
	}
	return nil
}

func requireReviewer(identity models.Identity) error {
	if err := authenticated(identity); err != nil {
		return err
	}
	if !identity.IsReviewer() {
		return models.ErrForbidden
	}
	return nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
