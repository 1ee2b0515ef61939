package http

import (
	"net/http"

	"finboard/internal/core"
)

// handleListExpenses returns the expenses for one calendar month,
// defaulting to the current one.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	month := core.MonthPeriodOf(s.now())
	if v := r.URL.Query().Get("month"); v != "" {
		month = core.MonthPeriod(v)
	}

	start, end, err := core.MonthRange(month)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	expenses, err := s.repo.ListExpenses(r.Context(), start, end)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toExpenseResponses(expenses))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	expense, err := req.toDomain(0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.records.CreateExpense(r.Context(), expense)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	created, err := s.repo.GetExpense(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard()
	respondJSON(w, http.StatusCreated, toExpenseResponse(created))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	expense, err := req.toDomain(id)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.records.UpdateExpense(r.Context(), expense); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard()
	respondJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.records.DeleteExpense(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard()
	w.WriteHeader(http.StatusNoContent)
}

type parseExpenseRequest struct {
	Input string `json:"input"`
}

// handleParseExpense extracts a structured draft from free-form text.
// The draft is returned, not saved; the client reviews it first.
func (s *Server) handleParseExpense(w http.ResponseWriter, r *http.Request) {
	if s.parser == nil {
		respondError(w, http.StatusServiceUnavailable, "expense parsing is not configured")
		return
	}

	var req parseExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Input == "" {
		respondError(w, http.StatusBadRequest, "input is required")
		return
	}

	result, err := s.parser.Parse(r.Context(), req.Input, s.now())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
