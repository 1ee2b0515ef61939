package http

import "net/http"

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	incomes, err := s.repo.ListIncomes(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toIncomeResponses(incomes))
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	income, err := req.toDomain(0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := income.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	created, err := s.repo.CreateIncome(r.Context(), income)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard()
	respondJSON(w, http.StatusCreated, toIncomeResponse(created))
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	income, err := req.toDomain(id)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := income.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	if err := s.repo.UpdateIncome(r.Context(), income); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard()
	respondJSON(w, http.StatusOK, toIncomeResponse(income))
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.repo.DeleteIncome(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard()
	w.WriteHeader(http.StatusNoContent)
}

// handleToggleIncome flips pending/received and stamps or clears the
// received date.
func (s *Server) handleToggleIncome(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	income, err := s.repo.ToggleIncomeStatus(r.Context(), id, s.now())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard()
	respondJSON(w, http.StatusOK, toIncomeResponse(income))
}
