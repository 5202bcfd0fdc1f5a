package http

import (
	"net/http"

	"ledgerbook/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	user, errResp := RequireUser(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	month, err := ParseMonthParam(r.URL.Query().Get("month"))
	if err != nil {
		FromError(err).Write(w)
		return
	}
	view, err := s.deps.Ledger.List(r.Context(), user, month)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewJSONResponse().Payload(view).Write(w)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	user, errResp := RequireUser(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	var in services.TransactionInput
	if errResp := DecodeJSONBody(w, r, &in); errResp != nil {
		errResp.Write(w)
		return
	}
	in.Description = sanitizeInput(in.Description)
	in.Category = sanitizeInput(in.Category)

	tx, err := s.deps.Ledger.Add(r.Context(), user, in)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewJSONResponse().Payload(map[string]any{"transaction": tx}).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user, errResp := RequireUser(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	month, err := ParseMonthParam(r.URL.Query().Get("month"))
	if err != nil || month == "" {
		BadRequestError("month must be YYYY-MM").Write(w)
		return
	}
	id := r.PathValue("id")
	if err := s.deps.Ledger.Delete(r.Context(), user, month, id); err != nil {
		FromError(err).Write(w)
		return
	}
	NewJSONResponse().Payload(map[string]any{"deleted": id}).Write(w)
}

func (s *Server) handleSearchTransactions(w http.ResponseWriter, r *http.Request) {
	user, errResp := RequireUser(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	filter, err := ParseSearchFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	txs, err := s.deps.Ledger.Search(r.Context(), user, filter)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewJSONResponse().Payload(map[string]any{"transactions": txs, "count": len(txs)}).Write(w)
}

func (s *Server) handleResetMonth(w http.ResponseWriter, r *http.Request) {
	user, errResp := RequireUser(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	month, err := ParseMonthParam(r.URL.Query().Get("month"))
	if err != nil || month == "" {
		BadRequestError("month must be YYYY-MM").Write(w)
		return
	}
	removed, err := s.deps.Ledger.ResetMonth(r.Context(), user, month)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewJSONResponse().Payload(map[string]any{"month": month, "removed": removed}).Write(w)
}
