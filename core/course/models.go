package course

import (
	"time"

	"github.com/shopspring/decimal"
)

type Course struct {
	ID              string    `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Description     string    `json:"description" db:"description"`
	DifficultyLevel string    `json:"difficulty_level" db:"difficulty_level"`
	CreatedBy       string    `json:"created_by" db:"created_by"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

type Enrollment struct {
	ID        string           `json:"id" db:"id"`
	StudentID string           `json:"student" db:"student_id"`
	CourseID  string           `json:"course" db:"course_id"`
	Status    EnrollmentStatus `json:"status" db:"status"`
	Progress  decimal.Decimal  `json:"progress" db:"progress"` // percentage
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

type NewCourse struct {
	Title           string `json:"title" validate:"required,max=255"`
	Description     string `json:"description" validate:"required"`
	DifficultyLevel string `json:"difficulty_level" validate:"required,max=50"`
	// CreatedBy is honoured for admins only; instructors always own what they create.
	CreatedBy string `json:"created_by"`
}
