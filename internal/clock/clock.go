// Package clock provides the current calendar date in the ledger's
// timezone, either computed locally or read from a time service, with a
// resolver that degrades to the local device clock when the service fails.
package clock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	_ "time/tzdata"

	"ledgerbook/internal/core"
	"ledgerbook/internal/period"
)

const (
	// DefaultTimezone is the zone every ledger date is expressed in.
	DefaultTimezone = "Asia/Hong_Kong"

	// DefaultTimeout bounds a single read of a remote clock.
	DefaultTimeout = 3 * time.Second

	// CurrentTimePath is where the server exposes its clock.
	CurrentTimePath = "/api/current-time"
)

var ErrUnavailable = errors.New("clock unavailable")

// Reading is a clock read: the current day and month key in the clock's
// timezone.
type Reading struct {
	Instant  time.Time
	Date     core.Date
	MonthKey string
	Timezone string
}

// Source returns the current reading.
type Source interface {
	Now(ctx context.Context) (Reading, error)
}

// TimeResponse is the JSON body of the current-time endpoint.
type TimeResponse struct {
	ServerTime   time.Time `json:"serverTime"`
	CurrentDate  string    `json:"currentDate"`
	CurrentMonth string    `json:"currentMonth"`
	Timezone     string    `json:"timezone"`
}

// Zone computes readings locally in a fixed location.
type Zone struct {
	loc *time.Location
	now func() time.Time
}

var _ Source = (*Zone)(nil)

// NewZone loads the named IANA zone; an empty name selects DefaultTimezone.
func NewZone(name string) (*Zone, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return &Zone{loc: loc, now: time.Now}, nil
}

// NewFixed returns a zone clock frozen at t, for tests and replays.
func NewFixed(t time.Time) *Zone {
	return &Zone{loc: t.Location(), now: func() time.Time { return t }}
}

func (z *Zone) Now(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return z.At(z.now()), nil
}

// At converts an instant to a reading in the zone.
func (z *Zone) At(t time.Time) Reading {
	local := t.In(z.loc)
	d := core.DateOf(local)
	return Reading{
		Instant:  local,
		Date:     d,
		MonthKey: period.MonthKey(d),
		Timezone: z.loc.String(),
	}
}

// Location returns the zone's location.
func (z *Zone) Location() *time.Location { return z.loc }

// Response renders a reading as the current-time endpoint body.
func (r Reading) Response() TimeResponse {
	return TimeResponse{
		ServerTime:   r.Instant,
		CurrentDate:  r.Date.String(),
		CurrentMonth: r.MonthKey,
		Timezone:     r.Timezone,
	}
}

// Remote reads a ledger server's current-time endpoint.
type Remote struct {
	url    string
	client *http.Client
}

var _ Source = (*Remote)(nil)

// NewRemote targets baseURL + CurrentTimePath. A nil client uses
// http.DefaultClient.
func NewRemote(baseURL string, client *http.Client) *Remote {
	if client == nil {
		client = http.DefaultClient
	}
	return &Remote{url: strings.TrimRight(baseURL, "/") + CurrentTimePath, client: client}
}

func (r *Remote) Now(ctx context.Context) (Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: build request: %w", ErrUnavailable, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var body TimeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Reading{}, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	d, err := core.ParseDate(body.CurrentDate)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	month := body.CurrentMonth
	if month == "" {
		month = period.MonthKey(d)
	}
	return Reading{Instant: body.ServerTime, Date: d, MonthKey: month, Timezone: body.Timezone}, nil
}

// Resolver reads a Source with a timeout and falls back to a local zone
// clock when the source fails.
type Resolver struct {
	source   Source
	fallback *Zone
	timeout  time.Duration
}

// NewResolver builds a resolver. source may be the fallback itself, in
// which case no degradation can occur.
func NewResolver(source Source, fallback *Zone, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{source: source, fallback: fallback, timeout: timeout}
}

// Today returns the current reading and whether it came from the fallback.
func (r *Resolver) Today(ctx context.Context) (Reading, bool) {
	readCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reading, err := r.source.Now(readCtx)
	if err == nil {
		return reading, false
	}

	fallback := r.fallback.At(r.fallback.now())
	slog.WarnContext(ctx, "Clock source unavailable, using device date",
		"error", err,
		"fallback_date", fallback.Date.String(),
		"timezone", fallback.Timezone,
		"degraded", true)
	return fallback, true
}
