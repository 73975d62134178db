package assessment

import "time"

type Assessment struct {
	ID        string    `json:"id" db:"id"`
	CourseID  string    `json:"course" db:"course_id"`
	Title     string    `json:"title" db:"title"`
	DueDate   time.Time `json:"due_date" db:"due_date"`
	MaxScore  int       `json:"max_score" db:"max_score"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Submission is a student's free-text answer to an assessment, graded by hand.
type Submission struct {
	ID           string     `json:"id" db:"id"`
	AssessmentID string     `json:"assessment" db:"assessment_id"`
	StudentID    string     `json:"student" db:"student_id"`
	Content      string     `json:"content" db:"content"`
	Score        *int       `json:"score" db:"score"`
	SubmittedAt  time.Time  `json:"submitted_at" db:"submitted_at"`
	GradedAt     *time.Time `json:"graded_at" db:"graded_at"`
}

type NewAssessment struct {
	CourseID string    `json:"course" validate:"required"`
	Title    string    `json:"title" validate:"required,max=255"`
	DueDate  time.Time `json:"due_date" validate:"required"`
	MaxScore int       `json:"max_score" validate:"gt=0"`
}

type NewSubmission struct {
	Content string `json:"content" validate:"required"`
}
