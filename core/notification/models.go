package notification

import "time"

// Type categorizes a notification.
type Type string

const (
	TypeGeneral     Type = "General"
	TypeEnrollment  Type = "Enrollment"
	TypeSponsorship Type = "Sponsorship"
	TypeQuiz        Type = "Quiz"
	TypeAssessment  Type = "Assessment"
)

type Notification struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Message   string    `json:"message" db:"message"`
	Type      Type      `json:"notification_type" db:"notification_type"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EmailLog struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Subject   string    `json:"subject" db:"subject"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
