package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/quiz"
)

const quizColumns = `id, course_id, title, description, created_by, created_at, updated_at`

type quizRepository struct {
	repo
}

var _ quiz.Repository = (*quizRepository)(nil)

func NewQuizRepository(db *sqlx.DB) quiz.Repository {
	return &quizRepository{repo{db: db}}
}

func insertQuestions(ctx context.Context, exec core.DBExecutor, questions []quiz.Question) error {
	for _, qn := range questions {
		if _, err := sqlx.NamedExecContext(ctx, exec,
			`INSERT INTO questions (id, quiz_id, text, position) VALUES (:id, :quiz_id, :text, :position)`, qn); err != nil {
			return errors.Wrap(err, "inserting question")
		}
		for _, a := range qn.Answers {
			if _, err := sqlx.NamedExecContext(ctx, exec,
				`INSERT INTO answers (id, question_id, text, is_correct, position)
				VALUES (:id, :question_id, :text, :is_correct, :position)`, a); err != nil {
				return errors.Wrap(err, "inserting answer")
			}
		}
	}
	return nil
}

// CreateQuiz must run inside a transaction (see core.Transactor) to store the quiz atomically.
func (r *quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	exec := r.exec(ctx)
	if _, err := sqlx.NamedExecContext(ctx, exec,
		`INSERT INTO quizzes (`+quizColumns+`)
		VALUES (:id, :course_id, :title, :description, :created_by, :created_at, :updated_at)`, q); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	if err := insertQuestions(ctx, exec, q.Questions); err != nil {
		return quiz.Quiz{}, err
	}
	return q, nil
}

func (r *quizRepository) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	if !validID(id) {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	exec := r.exec(ctx)

	var q quiz.Quiz
	if err := exec.GetContext(ctx, &q, `SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id); err != nil {
		return quiz.Quiz{}, trapNoRowsErr(err, quiz.ErrNotFound, "getting quiz")
	}

	var questions []quiz.Question
	if err := exec.SelectContext(ctx, &questions,
		`SELECT id, quiz_id, text, position FROM questions WHERE quiz_id = $1 ORDER BY position`, id); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "getting questions")
	}
	var answers []quiz.Answer
	if err := exec.SelectContext(ctx, &answers,
		`SELECT a.id, a.question_id, a.text, a.is_correct, a.position
		FROM answers a JOIN questions qn ON qn.id = a.question_id
		WHERE qn.quiz_id = $1 ORDER BY qn.position, a.position`, id); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "getting answers")
	}

	byQuestion := make(map[string][]quiz.Answer, len(questions))
	for _, a := range answers {
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], a)
	}
	q.Questions = make([]quiz.Question, 0, len(questions))
	for _, qn := range questions {
		qn.Answers = byQuestion[qn.ID]
		if qn.Answers == nil {
			qn.Answers = []quiz.Answer{}
		}
		q.Questions = append(q.Questions, qn)
	}
	return q, nil
}

// UpdateQuiz must run inside a transaction when replaceQuestions is set.
func (r *quizRepository) UpdateQuiz(ctx context.Context, q quiz.Quiz, replaceQuestions bool) (quiz.Quiz, error) {
	if !validID(q.ID) {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	exec := r.exec(ctx)
	res, err := exec.ExecContext(ctx,
		`UPDATE quizzes SET title = $1, description = $2, updated_at = $3 WHERE id = $4`,
		q.Title, q.Description, q.UpdatedAt, q.ID)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "updating quiz")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	if replaceQuestions {
		if _, err = exec.ExecContext(ctx, `DELETE FROM questions WHERE quiz_id = $1`, q.ID); err != nil {
			return quiz.Quiz{}, errors.Wrap(err, "deleting questions")
		}
		if err = insertQuestions(ctx, exec, q.Questions); err != nil {
			return quiz.Quiz{}, err
		}
	}
	return r.GetQuiz(ctx, q.ID)
}

// CreateSubmission must run inside a transaction to store the submission and its answers atomically.
func (r *quizRepository) CreateSubmission(ctx context.Context, s quiz.Submission) (quiz.Submission, error) {
	exec := r.exec(ctx)
	if _, err := sqlx.NamedExecContext(ctx, exec,
		`INSERT INTO quiz_submissions (id, student_id, quiz_id, score, percentage, passed, submitted_at)
		VALUES (:id, :student_id, :quiz_id, :score, :percentage, :passed, :submitted_at)`, s); err != nil {
		if uniqueConstraint(err) == "quiz_submissions_student_quiz_key" {
			return quiz.Submission{}, quiz.ErrDuplicateSubmission
		}
		return quiz.Submission{}, errors.Wrap(err, "inserting quiz submission")
	}
	for _, a := range s.Answers {
		if _, err := sqlx.NamedExecContext(ctx, exec,
			`INSERT INTO student_answers (id, submission_id, question_id, selected_answer_id)
			VALUES (:id, :submission_id, :question_id, :selected_answer_id)`, a); err != nil {
			return quiz.Submission{}, errors.Wrap(err, "inserting student answer")
		}
	}
	return s, nil
}

func (r *quizRepository) GetSubmission(ctx context.Context, id string) (quiz.Submission, error) {
	if !validID(id) {
		return quiz.Submission{}, quiz.ErrSubmissionNotFound
	}
	exec := r.exec(ctx)

	var s quiz.Submission
	if err := exec.GetContext(ctx, &s,
		`SELECT id, student_id, quiz_id, score, percentage, passed, submitted_at FROM quiz_submissions WHERE id = $1`,
		id); err != nil {
		return quiz.Submission{}, trapNoRowsErr(err, quiz.ErrSubmissionNotFound, "getting quiz submission")
	}
	s.Answers = make([]quiz.StudentAnswer, 0)
	if err := exec.SelectContext(ctx, &s.Answers,
		`SELECT sa.id, sa.submission_id, sa.question_id, sa.selected_answer_id
		FROM student_answers sa JOIN questions qn ON qn.id = sa.question_id
		WHERE sa.submission_id = $1 ORDER BY qn.position`, id); err != nil {
		return quiz.Submission{}, errors.Wrap(err, "getting student answers")
	}
	return s, nil
}

func (r *quizRepository) HasSubmission(ctx context.Context, studentID, quizID string) (bool, error) {
	if !validID(studentID) || !validID(quizID) {
		return false, nil
	}
	var exists bool
	err := r.exec(ctx).GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM quiz_submissions WHERE student_id = $1 AND quiz_id = $2)`, studentID, quizID)
	return exists, errors.Wrap(err, "checking quiz submission")
}
