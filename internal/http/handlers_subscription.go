package http

import "net/http"

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.repo.ListSubscriptions(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toSubscriptionResponses(subs))
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub := req.toDomain(0)
	if err := sub.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	created, err := s.repo.CreateSubscription(r.Context(), sub)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard()
	respondJSON(w, http.StatusCreated, toSubscriptionResponse(created))
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req subscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub := req.toDomain(id)
	if err := sub.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	if err := s.repo.UpdateSubscription(r.Context(), sub); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard()
	respondJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.repo.DeleteSubscription(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard()
	w.WriteHeader(http.StatusNoContent)
}

// handleToggleSubscription flips the activation switch that controls
// future billing.
func (s *Server) handleToggleSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.repo.ToggleSubscriptionActive(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard()
	w.WriteHeader(http.StatusNoContent)
}
