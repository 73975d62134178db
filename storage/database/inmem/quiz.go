package inmemdb

import (
	"context"

	"github.com/trezcool/elimu/core/quiz"
)

type quizRepository struct {
	db *DB
}

var _ quiz.Repository = (*quizRepository)(nil)

func NewQuizRepository(db *DB) quiz.Repository {
	return &quizRepository{db: db}
}

func copyQuestions(questions []quiz.Question) []quiz.Question {
	cp := make([]quiz.Question, len(questions))
	for i, qn := range questions {
		qn.Answers = append([]quiz.Answer(nil), qn.Answers...)
		cp[i] = qn
	}
	return cp
}

func (repo *quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	defer repo.db.lock(ctx)()
	q.Questions = copyQuestions(q.Questions)
	repo.db.quizzes[q.ID] = q
	return q, nil
}

func (repo *quizRepository) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	defer repo.db.lock(ctx)()
	q, ok := repo.db.quizzes[id]
	if !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	q.Questions = copyQuestions(q.Questions)
	return q, nil
}

func (repo *quizRepository) UpdateQuiz(ctx context.Context, q quiz.Quiz, replaceQuestions bool) (quiz.Quiz, error) {
	defer repo.db.lock(ctx)()
	orig, ok := repo.db.quizzes[q.ID]
	if !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	if replaceQuestions {
		orig.Questions = copyQuestions(q.Questions)
		repo.pruneAnswers(q.ID, orig.Questions)
	}
	orig.Title = q.Title
	orig.Description = q.Description
	orig.UpdatedAt = q.UpdatedAt
	repo.db.quizzes[q.ID] = orig

	orig.Questions = copyQuestions(orig.Questions)
	return orig, nil
}

// pruneAnswers drops the student answers of quizID that no longer reference one of its questions.
func (repo *quizRepository) pruneAnswers(quizID string, questions []quiz.Question) {
	kept := make(map[string]bool, len(questions))
	for _, qn := range questions {
		kept[qn.ID] = true
	}
	for id, s := range repo.db.quizSubmissions {
		if s.QuizID != quizID {
			continue
		}
		answers := make([]quiz.StudentAnswer, 0, len(s.Answers))
		for _, a := range s.Answers {
			if kept[a.QuestionID] {
				answers = append(answers, a)
			}
		}
		s.Answers = answers
		repo.db.quizSubmissions[id] = s
	}
}

func (repo *quizRepository) CreateSubmission(ctx context.Context, s quiz.Submission) (quiz.Submission, error) {
	defer repo.db.lock(ctx)()
	for _, existing := range repo.db.quizSubmissions {
		if existing.StudentID == s.StudentID && existing.QuizID == s.QuizID {
			return quiz.Submission{}, quiz.ErrDuplicateSubmission
		}
	}
	s.Answers = append([]quiz.StudentAnswer(nil), s.Answers...)
	repo.db.quizSubmissions[s.ID] = s
	return s, nil
}

func (repo *quizRepository) GetSubmission(ctx context.Context, id string) (quiz.Submission, error) {
	defer repo.db.lock(ctx)()
	if s, ok := repo.db.quizSubmissions[id]; ok {
		s.Answers = append([]quiz.StudentAnswer(nil), s.Answers...)
		return s, nil
	}
	return quiz.Submission{}, quiz.ErrSubmissionNotFound
}

func (repo *quizRepository) HasSubmission(ctx context.Context, studentID, quizID string) (bool, error) {
	defer repo.db.lock(ctx)()
	for _, s := range repo.db.quizSubmissions {
		if s.StudentID == studentID && s.QuizID == quizID {
			return true, nil
		}
	}
	return false, nil
}
