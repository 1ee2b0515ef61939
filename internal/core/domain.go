package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Weekly  PaymentType = "weekly"
	Monthly PaymentType = "monthly"
)

const (
	StatusPending  IncomeStatus = "pending"
	StatusReceived IncomeStatus = "received"
)

const (
	TaskTodo  TaskStatus = "todo"
	TaskDoing TaskStatus = "doing"
	TaskDone  TaskStatus = "done"
)

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// AutoChargeMarkerPrefix tags expenses created by the billing processor.
// The marker is persisted in Expense.RawInput and must stay stable: the
// duplicate-materialization check matches on it exactly.
const AutoChargeMarkerPrefix = "[Auto] "

type (
	PaymentType  string
	IncomeStatus string
	TaskStatus   string
	TaskPriority string

	// Company is an income source with a recurring pay cycle.
	// ExpectedAmount is per cycle: per week for weekly companies, per
	// month for monthly ones. PaymentDay is 1-31 for monthly companies
	// and 1-7 (1=Monday) for weekly ones; zero means unset.
	Company struct {
		ID             int64
		Name           string
		PaymentType    PaymentType
		PaymentDay     int
		ExpectedAmount int64 // whole VND
		Color          string
		CreatedAt      time.Time
	}

	// Income is a single expected or received payment from a company.
	// Period holds the month or week identifier wire format ("2025-01"
	// or "2025-W03"). PaymentDate, when set, takes precedence over
	// Period for month-membership tests.
	Income struct {
		ID           int64
		CompanyID    int64
		Period       string
		PaymentDate  *time.Time
		Amount       int64 // whole VND
		Status       IncomeStatus
		ReceivedDate *time.Time
		Note         string
		CreatedAt    time.Time
	}

	// Expense is a one-time spend. RawInput preserves the user's
	// original free-form text, or the auto-charge marker for expenses
	// materialized from subscriptions.
	Expense struct {
		ID          int64
		Category    string
		Amount      int64 // whole VND
		Description string
		RawInput    string
		Date        time.Time
		CreatedAt   time.Time
	}

	// Subscription is a recurring monthly charge. Deactivation is a
	// soft toggle so history stays intact while future materialization
	// stops.
	Subscription struct {
		ID         int64
		Name       string
		Amount     int64 // whole VND
		BillingDay int   // 1-31, clamped to month length when charged
		Category   string
		IsActive   bool
		Color      string
		CreatedAt  time.Time
	}

	// Task is a kanban board card. SortOrder positions it within its
	// status column.
	Task struct {
		ID          int64
		Title       string
		Description string
		Status      TaskStatus
		Priority    TaskPriority
		DueDate     *time.Time
		Color       string
		SortOrder   int
		CompanyID   *int64
		CreatedAt   time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidPaymentType = errors.New("invalid payment type")
	ErrInvalidPaymentDay  = errors.New("invalid payment day")
	ErrInvalidBillingDay  = errors.New("invalid billing day")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrZeroDate           = errors.New("date cannot be zero")
)

// AutoChargeMarker returns the reserved RawInput value identifying the
// materialized charge for a subscription.
func AutoChargeMarker(subscriptionName string) string {
	return AutoChargeMarkerPrefix + subscriptionName
}

// IsAutoCharge reports whether an expense was materialized from a
// subscription rather than entered by hand.
func (e Expense) IsAutoCharge() bool {
	return strings.HasPrefix(e.RawInput, AutoChargeMarkerPrefix)
}

func (c Company) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.ExpectedAmount < 0 {
		return ErrInvalidAmount
	}
	switch c.PaymentType {
	case Weekly:
		if c.PaymentDay < 0 || c.PaymentDay > 7 {
			return ErrInvalidPaymentDay
		}
	case Monthly:
		if c.PaymentDay < 0 || c.PaymentDay > 31 {
			return ErrInvalidPaymentDay
		}
	default:
		return ErrInvalidPaymentType
	}
	return nil
}

func (i Income) Validate() error {
	if i.CompanyID <= 0 {
		return errors.New("income must reference a company")
	}
	if IsWeekPeriod(i.Period) {
		if _, err := ParseWeekPeriod(WeekPeriod(i.Period)); err != nil {
			return err
		}
	} else {
		if _, err := ParseMonthPeriod(MonthPeriod(i.Period)); err != nil {
			return err
		}
	}
	if i.Amount <= 0 {
		return ErrInvalidAmount
	}
	switch i.Status {
	case StatusPending, StatusReceived:
	default:
		return ErrInvalidStatus
	}
	return nil
}

func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (s Subscription) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if s.Amount <= 0 {
		return ErrInvalidAmount
	}
	if s.BillingDay < 1 || s.BillingDay > 31 {
		return ErrInvalidBillingDay
	}
	if strings.TrimSpace(s.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("empty title")
	}
	switch t.Status {
	case TaskTodo, TaskDoing, TaskDone:
	default:
		return ErrInvalidStatus
	}
	switch t.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return ErrInvalidPriority
	}
	return nil
}
