package http

import (
	"net/http"

	"ledgerbook/internal/services"
)

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	user, errResp := RequireUser(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	list, err := s.deps.Reports.List(r.Context(), user)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewJSONResponse().Payload(map[string]any{"reports": list, "count": len(list)}).Write(w)
}

func (s *Server) handleReportDetail(w http.ResponseWriter, r *http.Request) {
	user, errResp := RequireUser(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	month, err := ParseMonthParam(r.PathValue("month"))
	if err != nil || month == "" {
		BadRequestError("month must be YYYY-MM").Write(w)
		return
	}

	report, err := s.getReport(r, user, month)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewJSONResponse().Payload(map[string]any{"report": report}).Write(w)
}

func reportCacheKey(user, month string) string {
	return user + ":" + month
}

// getReport serves report detail from the cache, loading it on a miss.
// Closing a month invalidates the user's entries.
func (s *Server) getReport(r *http.Request, user, month string) (*services.MonthlyReport, error) {
	key := reportCacheKey(user, month)
	if report, ok := s.reportCache.Get(key); ok {
		return report, nil
	}
	report, err := s.deps.Reports.Get(r.Context(), user, month)
	if err != nil {
		return nil, err
	}
	s.reportCache.Set(key, report)
	return report, nil
}

func (s *Server) invalidateReports(user string) {
	s.reportCache.DeletePrefix(user + ":")
}
