package assessment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/notification"
	"github.com/trezcool/elimu/core/user"
)

var (
	// errors
	ErrNotFound            = core.NewNotFoundError("assessment not found")
	ErrSubmissionNotFound  = core.NewNotFoundError("submission not found")
	ErrDuplicateSubmission = core.NewDuplicateSubmissionError("you have already submitted this assessment")
	ErrNotEnrolled         = core.NewNotEnrolledError("you are not enrolled in this course")
	ErrNotCourseOwner      = core.NewPermissionError("only the course instructor can manage its assessments")
)

type (
	Repository interface {
		CreateAssessment(ctx context.Context, a Assessment) (Assessment, error)
		GetAssessment(ctx context.Context, id string) (Assessment, error)
		// CreateSubmission returns ErrDuplicateSubmission when the student already submitted the assessment.
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		SetScore(ctx context.Context, id string, score int, at time.Time) (Submission, error)
	}

	CourseLookup interface {
		GetCourse(ctx context.Context, id string) (course.Course, error)
		IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
	}

	Service struct {
		repo     Repository
		courses  CourseLookup
		notifier notification.Notifier
		validate *validator.Validate
		now      func() time.Time
	}
)

func NewService(repo Repository, courses CourseLookup, notifier notification.Notifier, validate *validator.Validate) *Service {
	return &Service{
		repo:     repo,
		courses:  courses,
		notifier: notifier,
		validate: validate,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (svc *Service) checkCourseOwner(ctx context.Context, principal user.Principal, courseID string) error {
	if !principal.IsAdmin() && !principal.IsInstructor() {
		return ErrNotCourseOwner
	}
	c, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return core.NewFieldError("course", "the selected course does not exist")
		}
		return err
	}
	if !principal.CanManage(c.CreatedBy) {
		return ErrNotCourseOwner
	}
	return nil
}

// Create adds an assessment to a course owned by the acting instructor.
func (svc *Service) Create(ctx context.Context, principal user.Principal, na NewAssessment) (Assessment, error) {
	na.Title = core.CleanString(na.Title)
	if err := svc.validate.Struct(na); err != nil {
		return Assessment{}, err
	}
	if err := svc.checkCourseOwner(ctx, principal, na.CourseID); err != nil {
		return Assessment{}, err
	}
	return svc.repo.CreateAssessment(ctx, Assessment{
		ID:        uuid.NewString(),
		CourseID:  na.CourseID,
		Title:     na.Title,
		DueDate:   na.DueDate.UTC(),
		MaxScore:  na.MaxScore,
		CreatedBy: principal.UserID,
		CreatedAt: svc.now(),
	})
}

// Submit stores the acting student's answer to an assessment. One submission per student and assessment.
func (svc *Service) Submit(ctx context.Context, principal user.Principal, assessmentID string, ns NewSubmission) (Submission, error) {
	if !principal.IsStudent() {
		return Submission{}, core.NewPermissionError("only students can submit assessments")
	}
	if err := svc.validate.Struct(ns); err != nil {
		return Submission{}, err
	}
	a, err := svc.repo.GetAssessment(ctx, assessmentID)
	if err != nil {
		return Submission{}, err
	}
	enrolled, err := svc.courses.IsEnrolled(ctx, principal.UserID, a.CourseID)
	if err != nil {
		return Submission{}, err
	}
	if !enrolled {
		return Submission{}, ErrNotEnrolled
	}
	return svc.repo.CreateSubmission(ctx, Submission{
		ID:           uuid.NewString(),
		AssessmentID: a.ID,
		StudentID:    principal.UserID,
		Content:      ns.Content,
		SubmittedAt:  svc.now(),
	})
}

// ParseScore reads a manual grade: a whole number within 0..maxScore.
func ParseScore(raw string, maxScore int) (int, error) {
	d, err := decimal.NewFromString(core.CleanString(raw))
	if err != nil {
		return 0, core.NewFieldError("score", "score must be a number")
	}
	if !d.IsInteger() {
		return 0, core.NewFieldError("score", "score must be a whole number")
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(int64(maxScore))) {
		return 0, core.NewFieldError("score", fmt.Sprintf("score must be between 0 and %d", maxScore))
	}
	return int(d.IntPart()), nil
}

// Grade sets the score of a submission. Only the instructor owning the assessment's course, or an admin, may grade.
func (svc *Service) Grade(ctx context.Context, principal user.Principal, submissionID, rawScore string) (Submission, error) {
	s, err := svc.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	a, err := svc.repo.GetAssessment(ctx, s.AssessmentID)
	if err != nil {
		return Submission{}, err
	}
	if err = svc.checkCourseOwner(ctx, principal, a.CourseID); err != nil {
		return Submission{}, err
	}
	score, err := ParseScore(rawScore, a.MaxScore)
	if err != nil {
		return Submission{}, err
	}
	if s, err = svc.repo.SetScore(ctx, s.ID, score, svc.now()); err != nil {
		return Submission{}, err
	}

	svc.notifier.Notify(ctx, s.StudentID,
		fmt.Sprintf("Your submission for %s has been graded: %d/%d.", a.Title, score, a.MaxScore),
		notification.TypeAssessment)
	return s, nil
}

// GetSubmission returns a submission to its student, the course owner or an admin.
func (svc *Service) GetSubmission(ctx context.Context, principal user.Principal, id string) (Submission, error) {
	s, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if principal.IsStudent() && s.StudentID == principal.UserID {
		return s, nil
	}
	a, err := svc.repo.GetAssessment(ctx, s.AssessmentID)
	if err != nil {
		return Submission{}, err
	}
	if svc.checkCourseOwner(ctx, principal, a.CourseID) != nil {
		return Submission{}, ErrSubmissionNotFound
	}
	return s, nil
}
