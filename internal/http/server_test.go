package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"finboard/internal/parser"
	"finboard/internal/services"
	"finboard/internal/storage"
)

var testNow = time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC)

type stubParser struct {
	result parser.Result
	err    error
}

func (p stubParser) Parse(ctx context.Context, input string, now time.Time) (parser.Result, error) {
	return p.result, p.err
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	records := services.NewRecordService(repo, nil)
	t.Cleanup(func() { records.Close() })

	s := NewServer(Options{
		Addr:    ":0",
		Records: records,
		Repo:    repo,
		Parser: stubParser{result: parser.Result{
			Description: "lunch", Amount: 50000, Category: "Food", Date: "2025-09-15",
		}},
	})
	s.now = func() time.Time { return testNow }
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	if env.Error != "" {
		t.Fatalf("unexpected error in envelope: %s", env.Error)
	}
	if dst != nil {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	if rec := doJSON(t, s, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
}

func TestCompanyLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/companies", companyRequest{
		Name: "Acme", PaymentType: "monthly", PaymentDay: 15,
		ExpectedAmount: 15_000_000, Color: "#ff0000",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	var created companyResponse
	decodeData(t, rec, &created)
	if created.ID == 0 || created.Name != "Acme" {
		t.Fatalf("created = %+v", created)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/companies", nil)
	var list []companyResponse
	decodeData(t, rec, &list)
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}

	rec = doJSON(t, s, http.MethodPut, fmt.Sprintf("/api/companies/%d", created.ID), companyRequest{
		Name: "Acme Corp", PaymentType: "monthly", PaymentDay: 20, ExpectedAmount: 16_000_000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/companies/%d", created.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}

	if rec := doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/companies/%d", created.ID), nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
}

func TestCompanyValidationRejected(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/companies", companyRequest{
		Name: "", PaymentType: "monthly",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty name = %d, want 422", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/companies", companyRequest{
		Name: "Acme", PaymentType: "fortnightly",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad payment type = %d, want 422", rec.Code)
	}
}

func TestIncomeToggle(t *testing.T) {
	s := newTestServer(t)

	var company companyResponse
	decodeData(t, doJSON(t, s, http.MethodPost, "/api/companies", companyRequest{
		Name: "Acme", PaymentType: "weekly", ExpectedAmount: 3_500_000,
	}), &company)

	rec := doJSON(t, s, http.MethodPost, "/api/incomes", incomeRequest{
		CompanyID: company.ID, Period: "2025-W38", Amount: 3_500_000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create income = %d: %s", rec.Code, rec.Body.String())
	}
	var income incomeResponse
	decodeData(t, rec, &income)
	if income.Status != "pending" {
		t.Fatalf("default status = %q", income.Status)
	}

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/incomes/%d/toggle", income.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle = %d: %s", rec.Code, rec.Body.String())
	}
	var toggled incomeResponse
	decodeData(t, rec, &toggled)
	if toggled.Status != "received" || toggled.ReceivedDate == nil {
		t.Fatalf("toggled = %+v", toggled)
	}
}

func TestExpenseCreateAndListByMonth(t *testing.T) {
	s := newTestServer(t)

	for _, date := range []string{"2025-09-10", "2025-08-31"} {
		rec := doJSON(t, s, http.MethodPost, "/api/expenses", expenseRequest{
			Category: "Food", Amount: 50_000, Description: "meal " + date, Date: date,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
		}
	}

	// Default month comes from the server clock (September 2025).
	var list []expenseResponse
	decodeData(t, doJSON(t, s, http.MethodGet, "/api/expenses", nil), &list)
	if len(list) != 1 || list[0].Date != "2025-09-10" {
		t.Fatalf("september list = %+v", list)
	}

	decodeData(t, doJSON(t, s, http.MethodGet, "/api/expenses?month=2025-08", nil), &list)
	if len(list) != 1 || list[0].Date != "2025-08-31" {
		t.Fatalf("august list = %+v", list)
	}

	if rec := doJSON(t, s, http.MethodGet, "/api/expenses?month=bogus", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad month = %d, want 400", rec.Code)
	}
}

func TestExpenseValidationRejected(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/expenses", expenseRequest{
		Category: "Food", Amount: 0, Description: "free lunch", Date: "2025-09-10",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("zero amount = %d, want 422", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/expenses", expenseRequest{
		Category: "Food", Amount: 100, Description: "lunch", Date: "10/09/2025",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d, want 400", rec.Code)
	}
}

func TestParseExpense(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/expenses/parse", parseExpenseRequest{Input: "lunch 50k"})
	if rec.Code != http.StatusOK {
		t.Fatalf("parse = %d: %s", rec.Code, rec.Body.String())
	}
	var result parser.Result
	decodeData(t, rec, &result)
	if result.Amount != 50000 || result.Category != "Food" {
		t.Fatalf("result = %+v", result)
	}

	if rec := doJSON(t, s, http.MethodPost, "/api/expenses/parse", parseExpenseRequest{}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty input = %d, want 400", rec.Code)
	}
}

func TestParseExpenseUnconfigured(t *testing.T) {
	s := newTestServer(t)
	s.parser = nil

	rec := doJSON(t, s, http.MethodPost, "/api/expenses/parse", parseExpenseRequest{Input: "x"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured parse = %d, want 503", rec.Code)
	}
}

func TestParseExpenseModelFailure(t *testing.T) {
	s := newTestServer(t)
	s.parser = stubParser{err: fmt.Errorf("%w: gibberish", parser.ErrInvalidResult)}

	rec := doJSON(t, s, http.MethodPost, "/api/expenses/parse", parseExpenseRequest{Input: "???"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("model failure = %d, want 422", rec.Code)
	}
}

func TestSubscriptionToggle(t *testing.T) {
	s := newTestServer(t)

	var sub subscriptionResponse
	decodeData(t, doJSON(t, s, http.MethodPost, "/api/subscriptions", subscriptionRequest{
		Name: "Netflix", Amount: 260_000, BillingDay: 15, Category: "Entertainment",
	}), &sub)
	if !sub.IsActive {
		t.Fatal("subscriptions default to active")
	}

	if rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/subscriptions/%d/toggle", sub.ID), nil); rec.Code != http.StatusNoContent {
		t.Fatalf("toggle = %d", rec.Code)
	}

	var list []subscriptionResponse
	decodeData(t, doJSON(t, s, http.MethodGet, "/api/subscriptions", nil), &list)
	if len(list) != 1 || list[0].IsActive {
		t.Fatalf("list after toggle = %+v", list)
	}
}

func TestTaskMove(t *testing.T) {
	s := newTestServer(t)

	var task taskResponse
	decodeData(t, doJSON(t, s, http.MethodPost, "/api/tasks", taskRequest{Title: "write report"}), &task)
	if task.Status != "todo" || task.Priority != "medium" {
		t.Fatalf("defaults = %+v", task)
	}

	rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/tasks/%d/move", task.ID), moveTaskRequest{
		Status: "doing", SortOrder: 0,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("move = %d: %s", rec.Code, rec.Body.String())
	}

	var list []taskResponse
	decodeData(t, doJSON(t, s, http.MethodGet, "/api/tasks", nil), &list)
	if len(list) != 1 || list[0].Status != "doing" {
		t.Fatalf("list after move = %+v", list)
	}

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/tasks/%d/move", task.ID), moveTaskRequest{
		Status: "archived", SortOrder: 0,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status = %d, want 400", rec.Code)
	}
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)

	var company companyResponse
	decodeData(t, doJSON(t, s, http.MethodPost, "/api/companies", companyRequest{
		Name: "Acme", PaymentType: "monthly", ExpectedAmount: 15_000_000,
	}), &company)
	doJSON(t, s, http.MethodPost, "/api/expenses", expenseRequest{
		Category: "Food", Amount: 150_000, Description: "groceries", Date: "2025-09-10",
	})

	rec := doJSON(t, s, http.MethodGet, "/api/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard = %d: %s", rec.Code, rec.Body.String())
	}
	var overview struct {
		Month         string `json:"month"`
		Expected      int64  `json:"expected"`
		Spending      int64  `json:"spending"`
	}
	decodeData(t, rec, &overview)
	if overview.Month != "2025-09" {
		t.Errorf("month = %q", overview.Month)
	}
	if overview.Expected != 15_000_000 {
		t.Errorf("expected total = %d", overview.Expected)
	}
	if overview.Spending != 150_000 {
		t.Errorf("spending total = %d", overview.Spending)
	}

	if rec := doJSON(t, s, http.MethodGet, "/api/dashboard?month=2025-13", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid month = %d, want 400", rec.Code)
	}
}

func TestDashboardCacheInvalidatedByWrites(t *testing.T) {
	s := newTestServer(t)

	var before struct {
		Spending int64 `json:"spending"`
	}
	decodeData(t, doJSON(t, s, http.MethodGet, "/api/dashboard", nil), &before)
	if before.Spending != 0 {
		t.Fatalf("fresh spending = %d", before.Spending)
	}

	doJSON(t, s, http.MethodPost, "/api/expenses", expenseRequest{
		Category: "Food", Amount: 99_000, Description: "dinner", Date: "2025-09-15",
	})

	var after struct {
		Spending int64 `json:"spending"`
	}
	decodeData(t, doJSON(t, s, http.MethodGet, "/api/dashboard", nil), &after)
	if after.Spending != 99_000 {
		t.Errorf("spending after write = %d, want 99000 (stale cache?)", after.Spending)
	}
}

func TestNotFoundMapsTo404(t *testing.T) {
	s := newTestServer(t)

	if rec := doJSON(t, s, http.MethodPost, "/api/incomes/999/toggle", nil); rec.Code != http.StatusNotFound {
		t.Errorf("toggle missing income = %d, want 404", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodDelete, "/api/expenses/999", nil); rec.Code != http.StatusNotFound {
		t.Errorf("delete missing expense = %d, want 404", rec.Code)
	}
}
