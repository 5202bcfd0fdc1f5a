package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ledgerbook/internal/core"
	"ledgerbook/internal/period"
	"ledgerbook/internal/services"
)

// UserHeader carries the ledger owner of every API request.
const UserHeader = "X-Username"

const maxBodyBytes = 1 << 16

// RequireUser returns the validated request user or an error response.
func RequireUser(r *http.Request) (string, *JSONResponseBuilder) {
	user := sanitizeInput(r.Header.Get(UserHeader))
	if user == "" {
		return "", BadRequestError("missing " + UserHeader + " header")
	}
	keys, err := period.For(user)
	if err != nil {
		return "", BadRequestError(err.Error())
	}
	return keys.User(), nil
}

// DecodeJSONBody decodes a JSON request body into v. An empty body leaves
// v untouched.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, v any) *JSONResponseBuilder {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large")
		}
		return BadRequestError("cannot read request body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return BadRequestError("malformed JSON body")
	}
	return nil
}

// ParseDateParam parses an optional YYYY-MM-DD value; empty yields the
// zero date.
func ParseDateParam(v string) (core.Date, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return core.Date{}, nil
	}
	return period.ParseDay(v)
}

// ParseMonthParam parses an optional YYYY-MM value; empty is returned as is.
func ParseMonthParam(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	return period.ParseMonth(v)
}

// ParseSearchFilter reads year, month, type and q from a query string.
func ParseSearchFilter(q url.Values) (services.SearchFilter, error) {
	var f services.SearchFilter
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			return f, fmt.Errorf("invalid year %q", v)
		}
		f.Year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return f, fmt.Errorf("invalid month %q", v)
		}
		f.Month = m
	}
	if v := strings.TrimSpace(q.Get("type")); v != "" {
		t, err := core.ParseTransactionType(v)
		if err != nil {
			return f, err
		}
		f.Type = t
	}
	f.Text = sanitizeInput(q.Get("q"))
	return f, nil
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
