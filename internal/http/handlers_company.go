package http

import "net/http"

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.repo.ListCompanies(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCompanyResponses(companies))
}

func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	company := req.toDomain(0)
	if err := company.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	created, err := s.repo.CreateCompany(r.Context(), company)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard()
	respondJSON(w, http.StatusCreated, toCompanyResponse(created))
}

func (s *Server) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req companyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	company := req.toDomain(id)
	if err := company.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	if err := s.repo.UpdateCompany(r.Context(), company); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard()
	respondJSON(w, http.StatusOK, toCompanyResponse(company))
}

func (s *Server) handleDeleteCompany(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.repo.DeleteCompany(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard()
	w.WriteHeader(http.StatusNoContent)
}
