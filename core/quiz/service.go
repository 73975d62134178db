package quiz

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/notification"
	"github.com/trezcool/elimu/core/user"
)

var (
	// errors
	ErrNotFound            = core.NewNotFoundError("quiz not found")
	ErrSubmissionNotFound  = core.NewNotFoundError("quiz submission not found")
	ErrDuplicateSubmission = core.NewDuplicateSubmissionError("you have already submitted this quiz")
	ErrNotEnrolled         = core.NewNotEnrolledError("you are not enrolled in this course")
	ErrNotCourseOwner      = core.NewPermissionError("only the course instructor can manage its quizzes")
)

type (
	Repository interface {
		// CreateQuiz stores q with its questions and answers.
		CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		// GetQuiz returns the quiz with its questions and answers in authoring order.
		GetQuiz(ctx context.Context, id string) (Quiz, error)
		// UpdateQuiz saves the quiz fields; with replaceQuestions, existing questions are deleted and q.Questions stored.
		UpdateQuiz(ctx context.Context, q Quiz, replaceQuestions bool) (Quiz, error)

		// CreateSubmission stores s with its answers. Returns ErrDuplicateSubmission when the student
		// already has a submission for the quiz.
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		HasSubmission(ctx context.Context, studentID, quizID string) (bool, error)
	}

	CourseLookup interface {
		GetCourse(ctx context.Context, id string) (course.Course, error)
		IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
	}

	Service struct {
		repo     Repository
		tx       core.Transactor
		courses  CourseLookup
		notifier notification.Notifier
		validate *validator.Validate
		metrics  core.Metrics
	}
)

func NewService(
	repo Repository,
	tx core.Transactor,
	courses CourseLookup,
	notifier notification.Notifier,
	validate *validator.Validate,
	metrics core.Metrics,
) *Service {
	if metrics == nil {
		metrics = core.NopMetrics{}
	}
	return &Service{
		repo:     repo,
		tx:       tx,
		courses:  courses,
		notifier: notifier,
		validate: validate,
		metrics:  metrics,
	}
}

// canManageCourse fails unless principal is an admin or the instructor owning the course.
func (svc *Service) canManageCourse(ctx context.Context, principal user.Principal, courseID string) error {
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

func buildQuestions(quizID string, nqs []NewQuestion) []Question {
	questions := make([]Question, 0, len(nqs))
	for i, nq := range nqs {
		qn := Question{
			ID:       uuid.NewString(),
			QuizID:   quizID,
			Text:     core.CleanString(nq.Text),
			Position: i,
			Answers:  make([]Answer, 0, len(nq.Answers)),
		}
		for j, na := range nq.Answers {
			qn.Answers = append(qn.Answers, Answer{
				ID:         uuid.NewString(),
				QuestionID: qn.ID,
				Text:       core.CleanString(na.Text),
				IsCorrect:  na.IsCorrect,
				Position:   j,
			})
		}
		questions = append(questions, qn)
	}
	return questions
}

// CreateQuiz adds a quiz to a course owned by the acting instructor. Questions are validated before any write.
func (svc *Service) CreateQuiz(ctx context.Context, principal user.Principal, nq NewQuiz) (Quiz, error) {
	nq.Title = core.CleanString(nq.Title)
	if err := svc.validate.Struct(nq); err != nil {
		return Quiz{}, err
	}
	if err := svc.canManageCourse(ctx, principal, nq.CourseID); err != nil {
		return Quiz{}, err
	}

	now := time.Now().UTC()
	q := Quiz{
		ID:          uuid.NewString(),
		CourseID:    nq.CourseID,
		Title:       nq.Title,
		Description: nq.Description,
		CreatedBy:   principal.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	q.Questions = buildQuestions(q.ID, nq.Questions)

	var created Quiz
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = svc.repo.CreateQuiz(ctx, q)
		return err
	})
	return created, err
}

// UpdateQuiz edits a quiz of a course owned by the acting instructor.
func (svc *Service) UpdateQuiz(ctx context.Context, principal user.Principal, id string, uq UpdateQuiz) (Quiz, error) {
	if uq.Title != nil {
		title := core.CleanString(*uq.Title)
		uq.Title = &title
	}
	if err := svc.validate.Struct(uq); err != nil {
		return Quiz{}, err
	}
	q, err := svc.repo.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	if err = svc.canManageCourse(ctx, principal, q.CourseID); err != nil {
		return Quiz{}, err
	}

	if uq.Title != nil {
		q.Title = *uq.Title
	}
	if uq.Description != nil {
		q.Description = *uq.Description
	}
	replace := len(uq.Questions) > 0
	if replace {
		q.Questions = buildQuestions(q.ID, uq.Questions)
	}
	q.UpdatedAt = time.Now().UTC()

	var updated Quiz
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = svc.repo.UpdateQuiz(ctx, q, replace)
		return err
	})
	return updated, err
}

// GetQuiz returns a quiz. Only its course owner and admins see which answers are correct; see Quiz.Redacted.
func (svc *Service) GetQuiz(ctx context.Context, principal user.Principal, id string) (Quiz, error) {
	if !principal.IsAuthenticated() {
		return Quiz{}, core.ErrPermissionDenied
	}
	q, err := svc.repo.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	if svc.canManageCourse(ctx, principal, q.CourseID) != nil {
		q = q.Redacted()
	}
	return q, nil
}

// Submit grades and stores the acting student's answers to a quiz. A student submits a quiz once.
func (svc *Service) Submit(ctx context.Context, principal user.Principal, quizID string, ns NewSubmission) (Submission, error) {
	if !principal.IsStudent() {
		return Submission{}, core.NewPermissionError("only students can submit quizzes")
	}
	if err := svc.validate.Struct(ns); err != nil {
		return Submission{}, err
	}
	q, err := svc.repo.GetQuiz(ctx, quizID)
	if err != nil {
		return Submission{}, err
	}

	enrolled, err := svc.courses.IsEnrolled(ctx, principal.UserID, q.CourseID)
	if err != nil {
		return Submission{}, err
	}
	if !enrolled {
		return Submission{}, ErrNotEnrolled
	}
	exists, err := svc.repo.HasSubmission(ctx, principal.UserID, q.ID)
	if err != nil {
		return Submission{}, err
	}
	if exists {
		return Submission{}, ErrDuplicateSubmission
	}

	res, err := Grade(q, ns.Answers)
	if err != nil {
		return Submission{}, err
	}

	s := Submission{
		ID:          uuid.NewString(),
		StudentID:   principal.UserID,
		QuizID:      q.ID,
		Score:       res.Score,
		Percentage:  res.Percentage,
		Passed:      res.Passed,
		SubmittedAt: time.Now().UTC(),
		Answers:     make([]StudentAnswer, 0, len(ns.Answers)),
	}
	for _, in := range ns.Answers {
		s.Answers = append(s.Answers, StudentAnswer{
			ID:               uuid.NewString(),
			SubmissionID:     s.ID,
			QuestionID:       in.QuestionID,
			SelectedAnswerID: in.SelectedAnswerID,
		})
	}

	// the unique (student, quiz) constraint settles concurrent submissions the pre-check let through
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		s, err = svc.repo.CreateSubmission(ctx, s)
		return err
	})
	if err != nil {
		return Submission{}, err
	}

	svc.metrics.QuizSubmitted(s.Passed)
	svc.notifier.Notify(ctx, principal.UserID,
		fmt.Sprintf("You scored %d/%d (%.2f%%) on %s.", res.Score, res.Total, res.Percentage, q.Title),
		notification.TypeQuiz)
	return s, nil
}

// GetSubmission returns a quiz submission to its student, the course owner or an admin.
func (svc *Service) GetSubmission(ctx context.Context, principal user.Principal, id string) (Submission, error) {
	s, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if principal.IsStudent() && s.StudentID == principal.UserID {
		return s, nil
	}
	q, err := svc.repo.GetQuiz(ctx, s.QuizID)
	if err != nil {
		return Submission{}, err
	}
	if svc.canManageCourse(ctx, principal, q.CourseID) != nil {
		return Submission{}, ErrSubmissionNotFound
	}
	return s, nil
}
