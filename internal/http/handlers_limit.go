package http

import (
	"net/http"

	"ledgerbook/internal/core"
	"ledgerbook/internal/services"
)

type setLimitRequest struct {
	Amount services.AmountText `json:"amount"`
}

func (s *Server) handleLimitStatus(w http.ResponseWriter, r *http.Request) {
	user, errResp := RequireUser(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	status, err := s.deps.Limits.Status(r.Context(), user)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewJSONResponse().Payload(status).Write(w)
}

func (s *Server) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	user, errResp := RequireUser(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	var req setLimitRequest
	if errResp := DecodeJSONBody(w, r, &req); errResp != nil {
		errResp.Write(w)
		return
	}
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	limit, err := s.deps.Limits.Set(r.Context(), user, amount)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewJSONResponse().Payload(map[string]any{"limit": limit}).Write(w)
}

func (s *Server) handleClearLimit(w http.ResponseWriter, r *http.Request) {
	user, errResp := RequireUser(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	if err := s.deps.Limits.Clear(r.Context(), user); err != nil {
		FromError(err).Write(w)
		return
	}
	NewJSONResponse().Payload(map[string]any{"cleared": true}).Write(w)
}
