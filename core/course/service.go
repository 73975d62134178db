package course

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/notification"
	"github.com/trezcool/elimu/core/user"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("course not found")
	ErrEnrollmentNotFound = core.NewNotFoundError("enrollment not found")
	ErrAlreadyEnrolled    = core.NewInvalidStateError("already enrolled in this course")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		// CreateEnrollment returns ErrAlreadyEnrolled if the student is enrolled in the course already.
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, studentID, courseID string) (Enrollment, error)
	}

	UserLookup interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo     Repository
		users    UserLookup
		notifier notification.Notifier
		validate *validator.Validate
	}
)

func NewService(repo Repository, users UserLookup, notifier notification.Notifier, validate *validator.Validate) *Service {
	return &Service{repo: repo, users: users, notifier: notifier, validate: validate}
}

// Create adds a course. Instructors own what they create; admins may assign any instructor.
func (svc *Service) Create(ctx context.Context, principal user.Principal, nc NewCourse) (Course, error) {
	switch {
	case principal.IsInstructor():
		nc.CreatedBy = principal.UserID
	case principal.IsAdmin():
		if nc.CreatedBy == "" {
			nc.CreatedBy = principal.UserID
		} else if err := svc.checkInstructor(ctx, nc.CreatedBy); err != nil {
			return Course{}, err
		}
	default:
		return Course{}, core.NewPermissionError("only instructors can create courses")
	}

	nc.Title = core.CleanString(nc.Title)
	nc.DifficultyLevel = core.CleanString(nc.DifficultyLevel)
	if err := svc.validate.Struct(nc); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateCourse(ctx, Course{
		ID:              uuid.NewString(),
		Title:           nc.Title,
		Description:     nc.Description,
		DifficultyLevel: nc.DifficultyLevel,
		CreatedBy:       nc.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (svc *Service) checkInstructor(ctx context.Context, id string) error {
	usr, err := svc.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return core.NewFieldError("created_by", "the selected user does not exist")
		}
		return err
	}
	if usr.Principal().Role != user.RoleInstructor {
		return core.NewFieldError("created_by", "the selected user is not an instructor")
	}
	return nil
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

// Enroll registers the acting student in a course, then notifies and emails them.
func (svc *Service) Enroll(ctx context.Context, principal user.Principal, courseID string) (Enrollment, error) {
	if !principal.IsStudent() {
		return Enrollment{}, core.NewPermissionError("only students can enroll in courses")
	}
	c, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	e, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		ID:        uuid.NewString(),
		StudentID: principal.UserID,
		CourseID:  c.ID,
		Status:    EnrollmentActive,
		Progress:  decimal.Zero,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Enrollment{}, err
	}

	msg := fmt.Sprintf("You have successfully enrolled in %s.", c.Title)
	svc.notifier.Notify(ctx, principal.UserID, msg, notification.TypeEnrollment)
	svc.notifier.SendEmail(ctx, principal.UserID, notification.TypeEnrollment, "Course Enrollment Confirmation",
		fmt.Sprintf("Hello %s,\n\n%s\n\nThank you for joining our platform!", principal.DisplayName(), msg))
	return e, nil
}

// IsEnrolled reports whether the student holds an active or completed enrollment in the course.
func (svc *Service) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	e, err := svc.repo.GetEnrollment(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, ErrEnrollmentNotFound) {
			return false, nil
		}
		return false, err
	}
	return e.Status != EnrollmentDropped, nil
}
