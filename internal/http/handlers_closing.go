package http

import (
	"context"
	"net/http"

	applog "ledgerbook/internal/log"
	"ledgerbook/internal/services"
)

type (
	closeDayRequest struct {
		Date string `json:"date"`
	}

	closeMonthRequest struct {
		Month string `json:"month"`
	}

	boundaryRequest struct {
		// ConfirmMonthClose is nil when the client has not been asked yet.
		ConfirmMonthClose *bool `json:"confirmMonthClose"`
	}
)

func (s *Server) handleCloseDay(w http.ResponseWriter, r *http.Request) {
	user, errResp := RequireUser(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	var req closeDayRequest
	if errResp := DecodeJSONBody(w, r, &req); errResp != nil {
		errResp.Write(w)
		return
	}
	date, err := ParseDateParam(req.Date)
	if err != nil {
		FromError(err).Write(w)
		return
	}

	res, err := s.deps.Closing.CloseDay(r.Context(), user, date)
	if err != nil {
		s.logFailure(r, "Day close failed", err, applog.OpCloseDay)
		FromError(err).Write(w)
		return
	}
	applog.FromContext(r.Context()).LogClose(r.Context(), applog.OpCloseDay, user, res.Date.String(), string(res.Outcome), res.Removed, res.DegradedClock)
	NewJSONResponse().Payload(res).Write(w)
}

func (s *Server) handleCloseMonth(w http.ResponseWriter, r *http.Request) {
	user, errResp := RequireUser(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	var req closeMonthRequest
	if errResp := DecodeJSONBody(w, r, &req); errResp != nil {
		errResp.Write(w)
		return
	}
	month, err := ParseMonthParam(req.Month)
	if err != nil {
		FromError(err).Write(w)
		return
	}

	res, err := s.deps.Closing.CloseMonth(r.Context(), user, month)
	if err != nil {
		s.logFailure(r, "Month close failed", err, applog.OpCloseMonth)
		FromError(err).Write(w)
		return
	}
	if res.Outcome == services.OutcomeClosed {
		s.invalidateReports(user)
	}
	applog.FromContext(r.Context()).LogClose(r.Context(), applog.OpCloseMonth, user, res.Month, string(res.Outcome), 0, res.DegradedClock)
	NewJSONResponse().Payload(res).Write(w)
}

func (s *Server) handleBoundary(w http.ResponseWriter, r *http.Request) {
	user, errResp := RequireUser(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	var req boundaryRequest
	if errResp := DecodeJSONBody(w, r, &req); errResp != nil {
		errResp.Write(w)
		return
	}

	var confirm services.Confirmer
	if req.ConfirmMonthClose != nil {
		approved := *req.ConfirmMonthClose
		confirm = func(context.Context, string) (bool, error) { return approved, nil }
	}

	res, err := s.deps.Closing.RunBoundary(r.Context(), user, confirm)
	if err != nil {
		s.logFailure(r, "Boundary processing failed", err, applog.OpBoundary)
		FromError(err).Write(w)
		return
	}
	for _, step := range res.Steps {
		if step.State == services.StateMonthBoundaryCrossed && step.Outcome == services.OutcomeClosed {
			s.invalidateReports(user)
		}
	}
	NewJSONResponse().Payload(res).Write(w)
}

func (s *Server) handleDailyStatus(w http.ResponseWriter, r *http.Request) {
	user, errResp := RequireUser(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	date, err := ParseDateParam(r.URL.Query().Get("date"))
	if err != nil {
		FromError(err).Write(w)
		return
	}
	status, err := s.deps.Closing.DailyStatus(r.Context(), user, date)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewJSONResponse().Payload(status).Write(w)
}

func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	user, errResp := RequireUser(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	date, err := ParseDateParam(r.URL.Query().Get("date"))
	if err != nil || date.IsZero() {
		BadRequestError("date is required (YYYY-MM-DD)").Write(w)
		return
	}
	entries, err := s.deps.Closing.DeleteLog(r.Context(), user, date)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	if entries == nil {
		entries = []services.DeleteLogEntry{}
	}
	NewJSONResponse().Payload(map[string]any{"date": date, "entries": entries}).Write(w)
}

func (s *Server) handleMonthlyArchive(w http.ResponseWriter, r *http.Request) {
	user, errResp := RequireUser(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	a, ok, err := s.deps.Closing.MonthlyArchive(r.Context(), user, r.PathValue("month"))
	if err != nil {
		FromError(err).Write(w)
		return
	}
	if !ok {
		NotFoundError("monthly archive not found").Write(w)
		return
	}
	NewJSONResponse().Payload(map[string]any{"archive": a}).Write(w)
}

func (s *Server) logFailure(r *http.Request, msg string, err error, op string) {
	applog.FromContext(r.Context()).LogError(r.Context(), msg, err, op, nil)
}
