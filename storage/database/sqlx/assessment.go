package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/assessment"
)

const (
	assessmentColumns = `id, course_id, title, due_date, max_score, created_by, created_at`
	submissionColumns = `id, assessment_id, student_id, content, score, submitted_at, graded_at`
)

type assessmentRepository struct {
	repo
}

var _ assessment.Repository = (*assessmentRepository)(nil)

func NewAssessmentRepository(db *sqlx.DB) assessment.Repository {
	return &assessmentRepository{repo{db: db}}
}

func (r *assessmentRepository) CreateAssessment(ctx context.Context, a assessment.Assessment) (assessment.Assessment, error) {
	q := `INSERT INTO assessments (` + assessmentColumns + `)
		VALUES (:id, :course_id, :title, :due_date, :max_score, :created_by, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(ctx), q, a); err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "inserting assessment")
	}
	return a, nil
}

func (r *assessmentRepository) GetAssessment(ctx context.Context, id string) (assessment.Assessment, error) {
	if !validID(id) {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	var a assessment.Assessment
	if err := r.exec(ctx).GetContext(ctx, &a, `SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, id); err != nil {
		return assessment.Assessment{}, trapNoRowsErr(err, assessment.ErrNotFound, "getting assessment")
	}
	return a, nil
}

func (r *assessmentRepository) CreateSubmission(ctx context.Context, s assessment.Submission) (assessment.Submission, error) {
	q := `INSERT INTO submissions (` + submissionColumns + `)
		VALUES (:id, :assessment_id, :student_id, :content, :score, :submitted_at, :graded_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(ctx), q, s); err != nil {
		if uniqueConstraint(err) == "submissions_assessment_student_key" {
			return assessment.Submission{}, assessment.ErrDuplicateSubmission
		}
		return assessment.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return s, nil
}

func (r *assessmentRepository) GetSubmission(ctx context.Context, id string) (assessment.Submission, error) {
	if !validID(id) {
		return assessment.Submission{}, assessment.ErrSubmissionNotFound
	}
	var s assessment.Submission
	if err := r.exec(ctx).GetContext(ctx, &s, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id); err != nil {
		return assessment.Submission{}, trapNoRowsErr(err, assessment.ErrSubmissionNotFound, "getting submission")
	}
	return s, nil
}

func (r *assessmentRepository) SetScore(ctx context.Context, id string, score int, at time.Time) (assessment.Submission, error) {
	if !validID(id) {
		return assessment.Submission{}, assessment.ErrSubmissionNotFound
	}
	var s assessment.Submission
	q := `UPDATE submissions SET score = $1, graded_at = $2 WHERE id = $3 RETURNING ` + submissionColumns
	if err := r.exec(ctx).GetContext(ctx, &s, q, score, at, id); err != nil {
		return assessment.Submission{}, trapNoRowsErr(err, assessment.ErrSubmissionNotFound, "grading submission")
	}
	return s, nil
}
