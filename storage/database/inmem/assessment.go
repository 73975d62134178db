package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/elimu/core/assessment"
)

type assessmentRepository struct {
	db *DB
}

var _ assessment.Repository = (*assessmentRepository)(nil)

func NewAssessmentRepository(db *DB) assessment.Repository {
	return &assessmentRepository{db: db}
}

func (repo *assessmentRepository) CreateAssessment(ctx context.Context, a assessment.Assessment) (assessment.Assessment, error) {
	defer repo.db.lock(ctx)()
	repo.db.assessments[a.ID] = a
	return a, nil
}

func (repo *assessmentRepository) GetAssessment(ctx context.Context, id string) (assessment.Assessment, error) {
	defer repo.db.lock(ctx)()
	if a, ok := repo.db.assessments[id]; ok {
		return a, nil
	}
	return assessment.Assessment{}, assessment.ErrNotFound
}

func (repo *assessmentRepository) CreateSubmission(ctx context.Context, s assessment.Submission) (assessment.Submission, error) {
	defer repo.db.lock(ctx)()
	for _, existing := range repo.db.submissions {
		if existing.StudentID == s.StudentID && existing.AssessmentID == s.AssessmentID {
			return assessment.Submission{}, assessment.ErrDuplicateSubmission
		}
	}
	repo.db.submissions[s.ID] = s
	return s, nil
}

func (repo *assessmentRepository) GetSubmission(ctx context.Context, id string) (assessment.Submission, error) {
	defer repo.db.lock(ctx)()
	if s, ok := repo.db.submissions[id]; ok {
		return s, nil
	}
	return assessment.Submission{}, assessment.ErrSubmissionNotFound
}

func (repo *assessmentRepository) SetScore(ctx context.Context, id string, score int, at time.Time) (assessment.Submission, error) {
	defer repo.db.lock(ctx)()
	s, ok := repo.db.submissions[id]
	if !ok {
		return assessment.Submission{}, assessment.ErrSubmissionNotFound
	}
	s.Score = &score
	s.GradedAt = &at
	repo.db.submissions[id] = s
	return s, nil
}
