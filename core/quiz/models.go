package quiz

import "time"

type Quiz struct {
	ID          string     `json:"id" db:"id"`
	CourseID    string     `json:"course" db:"course_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	CreatedBy   string     `json:"created_by" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	Questions   []Question `json:"questions" db:"-"`

	redacted bool
}

type Question struct {
	ID       string   `json:"id" db:"id"`
	QuizID   string   `json:"-" db:"quiz_id"`
	Text     string   `json:"text" db:"text"`
	Position int      `json:"-" db:"position"`
	Answers  []Answer `json:"answers" db:"-"`
}

type Answer struct {
	ID         string `json:"id" db:"id"`
	QuestionID string `json:"-" db:"question_id"`
	Text       string `json:"text" db:"text"`
	IsCorrect  bool   `json:"is_correct" db:"is_correct"`
	Position   int    `json:"-" db:"position"`
}

// Submission is a student's one-time, auto-graded answer set for a quiz.
type Submission struct {
	ID          string          `json:"id" db:"id"`
	StudentID   string          `json:"student" db:"student_id"`
	QuizID      string          `json:"quiz" db:"quiz_id"`
	Score       int             `json:"score" db:"score"`
	Percentage  float64         `json:"percentage" db:"percentage"`
	Passed      bool            `json:"passed" db:"passed"`
	SubmittedAt time.Time       `json:"submitted_at" db:"submitted_at"`
	Answers     []StudentAnswer `json:"answers" db:"-"`
}

type StudentAnswer struct {
	ID               string  `json:"-" db:"id"`
	SubmissionID     string  `json:"-" db:"submission_id"`
	QuestionID       string  `json:"question" db:"question_id"`
	SelectedAnswerID *string `json:"selected_answer" db:"selected_answer_id"`
}

type NewAnswer struct {
	Text      string `json:"text" validate:"required,max=255"`
	IsCorrect bool   `json:"is_correct"`
}

// NewQuestion must carry exactly 4 answers, exactly one of them correct.
type NewQuestion struct {
	Text    string      `json:"text" validate:"required"`
	Answers []NewAnswer `json:"answers" validate:"dive"`
}

type NewQuiz struct {
	CourseID    string        `json:"course" validate:"required"`
	Title       string        `json:"title" validate:"required,max=255"`
	Description string        `json:"description"`
	Questions   []NewQuestion `json:"questions" validate:"dive"`
}

// UpdateQuiz changes the non-nil fields. Non-empty Questions replace all existing questions.
type UpdateQuiz struct {
	Title       *string       `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string       `json:"description"`
	Questions   []NewQuestion `json:"questions" validate:"dive"`
}

// AnswerInput is one entry of a submitted answer set; a nil SelectedAnswerID leaves the question unanswered.
type AnswerInput struct {
	QuestionID       string  `json:"question" validate:"required"`
	SelectedAnswerID *string `json:"selected_answer"`
}

type NewSubmission struct {
	Answers []AnswerInput `json:"answers" validate:"dive"`
}

// Redacted returns a copy of q that does not reveal correct answers.
func (q Quiz) Redacted() Quiz {
	questions := make([]Question, len(q.Questions))
	for i, qn := range q.Questions {
		answers := make([]Answer, len(qn.Answers))
		for j, a := range qn.Answers {
			a.IsCorrect = false
			answers[j] = a
		}
		qn.Answers = answers
		questions[i] = qn
	}
	q.Questions = questions
	q.redacted = true
	return q
}

func (q Quiz) IsRedacted() bool { return q.redacted }
