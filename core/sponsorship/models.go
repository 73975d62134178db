package sponsorship

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status of a Sponsorship. Pending moves once to Approved or Rejected; both are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

func (s Status) IsTerminal() bool { return s != StatusPending }

// Sponsor is the funding account of a user in the sponsor group.
// FundsProvided is only ever decreased, and never below zero.
type Sponsor struct {
	ID            string          `json:"id" db:"id"`
	UserID        string          `json:"user" db:"user_id"`
	CompanyName   string          `json:"company_name" db:"company_name"`
	FundsProvided decimal.Decimal `json:"funds_provided" db:"funds_provided"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

type Sponsorship struct {
	ID          string          `json:"id" db:"id"`
	SponsorID   string          `json:"sponsor" db:"sponsor_id"`
	StudentID   string          `json:"student" db:"student_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Status      Status          `json:"status" db:"status"`
	Utilization decimal.Decimal `json:"utilization" db:"utilization"` // percentage of Amount consumed, 0-100
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

type NewSponsor struct {
	UserID        string          `json:"user" validate:"required"`
	CompanyName   string          `json:"company_name" validate:"required,max=255"`
	FundsProvided decimal.Decimal `json:"funds_provided" validate:"money_gte0"`
}

// Application is a student's request for funds from a sponsor.
type Application struct {
	SponsorID string          `json:"sponsor" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"money"`
}

// Funding is a sponsor's immediate grant to a student.
type Funding struct {
	StudentID string          `json:"student" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"money"`
}

// Decision approves or rejects a pending sponsorship. Without an Amount, approval grants the requested amount.
type Decision struct {
	Status Status           `json:"status" validate:"required,oneof=approved rejected"`
	Amount *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,money"`
}

// QueryFilter applies AND operation on its non-empty fields.
type QueryFilter struct {
	SponsorID string
	StudentID string
	Status    Status
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
