package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"finboard/internal/core"
)

const dateLayout = "2006-01-02"

// idParam reads the {id} route parameter.
func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

// --- companies ---

type companyRequest struct {
	Name           string `json:"name"`
	PaymentType    string `json:"paymentType"`
	PaymentDay     int    `json:"paymentDay"`
	ExpectedAmount int64  `json:"expectedAmount"`
	Color          string `json:"color"`
}

func (req companyRequest) toDomain(id int64) core.Company {
	return core.Company{
		ID:             id,
		Name:           req.Name,
		PaymentType:    core.PaymentType(req.PaymentType),
		PaymentDay:     req.PaymentDay,
		ExpectedAmount: req.ExpectedAmount,
		Color:          req.Color,
	}
}

type companyResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	PaymentType    string `json:"paymentType"`
	PaymentDay     int    `json:"paymentDay"`
	ExpectedAmount int64  `json:"expectedAmount"`
	Color          string `json:"color"`
	CreatedAt      string `json:"createdAt"`
}

func toCompanyResponse(c core.Company) companyResponse {
	return companyResponse{
		ID:             c.ID,
		Name:           c.Name,
		PaymentType:    string(c.PaymentType),
		PaymentDay:     c.PaymentDay,
		ExpectedAmount: c.ExpectedAmount,
		Color:          c.Color,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
	}
}

func toCompanyResponses(companies []core.Company) []companyResponse {
	out := make([]companyResponse, 0, len(companies))
	for _, c := range companies {
		out = append(out, toCompanyResponse(c))
	}
	return out
}

// --- incomes ---

type incomeRequest struct {
	CompanyID    int64   `json:"companyId"`
	Period       string  `json:"period"`
	PaymentDate  *string `json:"paymentDate"`
	Amount       int64   `json:"amount"`
	Status       string  `json:"status"`
	ReceivedDate *string `json:"receivedDate"`
	Note         string  `json:"note"`
}

func (req incomeRequest) toDomain(id int64) (core.Income, error) {
	paymentDate, err := parseOptionalDate(req.PaymentDate)
	if err != nil {
		return core.Income{}, err
	}
	receivedDate, err := parseOptionalDate(req.ReceivedDate)
	if err != nil {
		return core.Income{}, err
	}
	status := req.Status
	if status == "" {
		status = string(core.StatusPending)
	}
	return core.Income{
		ID:           id,
		CompanyID:    req.CompanyID,
		Period:       req.Period,
		PaymentDate:  paymentDate,
		Amount:       req.Amount,
		Status:       core.IncomeStatus(status),
		ReceivedDate: receivedDate,
		Note:         req.Note,
	}, nil
}

type incomeResponse struct {
	ID           int64   `json:"id"`
	CompanyID    int64   `json:"companyId"`
	Period       string  `json:"period"`
	PaymentDate  *string `json:"paymentDate"`
	Amount       int64   `json:"amount"`
	Status       string  `json:"status"`
	ReceivedDate *string `json:"receivedDate"`
	Note         string  `json:"note"`
	CreatedAt    string  `json:"createdAt"`
}

func toIncomeResponse(in core.Income) incomeResponse {
	return incomeResponse{
		ID:           in.ID,
		CompanyID:    in.CompanyID,
		Period:       in.Period,
		PaymentDate:  formatOptionalDate(in.PaymentDate),
		Amount:       in.Amount,
		Status:       string(in.Status),
		ReceivedDate: formatOptionalDate(in.ReceivedDate),
		Note:         in.Note,
		CreatedAt:    in.CreatedAt.Format(time.RFC3339),
	}
}

func toIncomeResponses(incomes []core.Income) []incomeResponse {
	out := make([]incomeResponse, 0, len(incomes))
	for _, in := range incomes {
		out = append(out, toIncomeResponse(in))
	}
	return out
}

// --- expenses ---

type expenseRequest struct {
	Category    string `json:"category"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	RawInput    string `json:"rawInput"`
	Date        string `json:"date"`
}

func (req expenseRequest) toDomain(id int64) (core.Expense, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		ID:          id,
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
		RawInput:    req.RawInput,
		Date:        date,
	}, nil
}

type expenseResponse struct {
	ID          int64  `json:"id"`
	Category    string `json:"category"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	RawInput    string `json:"rawInput"`
	Date        string `json:"date"`
	AutoCharge  bool   `json:"autoCharge"`
	CreatedAt   string `json:"createdAt"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Category:    e.Category,
		Amount:      e.Amount,
		Description: e.Description,
		RawInput:    e.RawInput,
		Date:        e.Date.Format(dateLayout),
		AutoCharge:  e.IsAutoCharge(),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
}

func toExpenseResponses(expenses []core.Expense) []expenseResponse {
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	return out
}

// --- subscriptions ---

type subscriptionRequest struct {
	Name       string `json:"name"`
	Amount     int64  `json:"amount"`
	BillingDay int    `json:"billingDay"`
	Category   string `json:"category"`
	IsActive   *bool  `json:"isActive"`
	Color      string `json:"color"`
}

func (req subscriptionRequest) toDomain(id int64) core.Subscription {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return core.Subscription{
		ID:         id,
		Name:       req.Name,
		Amount:     req.Amount,
		BillingDay: req.BillingDay,
		Category:   req.Category,
		IsActive:   active,
		Color:      req.Color,
	}
}

type subscriptionResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Amount     int64  `json:"amount"`
	BillingDay int    `json:"billingDay"`
	Category   string `json:"category"`
	IsActive   bool   `json:"isActive"`
	Color      string `json:"color"`
	CreatedAt  string `json:"createdAt"`
}

func toSubscriptionResponse(s core.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:         s.ID,
		Name:       s.Name,
		Amount:     s.Amount,
		BillingDay: s.BillingDay,
		Category:   s.Category,
		IsActive:   s.IsActive,
		Color:      s.Color,
		CreatedAt:  s.CreatedAt.Format(time.RFC3339),
	}
}

func toSubscriptionResponses(subs []core.Subscription) []subscriptionResponse {
	out := make([]subscriptionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, toSubscriptionResponse(s))
	}
	return out
}

// --- tasks ---

type taskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"dueDate"`
	Color       string  `json:"color"`
	CompanyID   *int64  `json:"companyId"`
}

func (req taskRequest) toDomain(id int64) (core.Task, error) {
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		return core.Task{}, err
	}
	status := req.Status
	if status == "" {
		status = string(core.TaskTodo)
	}
	priority := req.Priority
	if priority == "" {
		priority = string(core.PriorityMedium)
	}
	return core.Task{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Status:      core.TaskStatus(status),
		Priority:    core.TaskPriority(priority),
		DueDate:     dueDate,
		Color:       req.Color,
		CompanyID:   req.CompanyID,
	}, nil
}

type taskResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"dueDate"`
	Color       string  `json:"color"`
	SortOrder   int     `json:"sortOrder"`
	CompanyID   *int64  `json:"companyId"`
	CreatedAt   string  `json:"createdAt"`
}

func toTaskResponse(t core.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     formatOptionalDate(t.DueDate),
		Color:       t.Color,
		SortOrder:   t.SortOrder,
		CompanyID:   t.CompanyID,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

func toTaskResponses(tasks []core.Task) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	return out
}
