package period

import (
	"strings"

	"ledgerbook/internal/core"
)

// Keys builds the storage keys of one user. The zero value is not usable;
// obtain one through For so the user segment is always validated.
type Keys struct {
	user string
}

// For validates user and returns its key builder.
func For(user string) (Keys, error) {
	normalized, err := NormalizeUser(user)
	if err != nil {
		return Keys{}, err
	}
	return Keys{user: normalized}, nil
}

// User returns the normalized user name.
func (k Keys) User() string { return k.user }

// Ledger is the key of the open transactions of month.
func (k Keys) Ledger(month string) string {
	return k.join(prefixLedger, month)
}

// LedgerPrefix enumerates every month ledger of the user.
func (k Keys) LedgerPrefix() string {
	return k.join(prefixLedger, "")
}

func (k Keys) DailyArchive(day core.Date) string {
	return k.join(prefixDailyArchive, day.String())
}

// DailyArchivePrefix enumerates the daily archives of month.
func (k Keys) DailyArchivePrefix(month string) string {
	return k.join(prefixDailyArchive, month+"-")
}

func (k Keys) MonthlyArchive(month string) string {
	return k.join(prefixMonthlyArchive, month)
}

func (k Keys) Report(month string) string {
	return k.join(prefixReport, month)
}

// ReportPrefix enumerates every stored monthly report of the user.
func (k Keys) ReportPrefix() string {
	return k.join(prefixReport, "")
}

func (k Keys) DeleteLog(day core.Date) string {
	return k.join(prefixDeleteLog, day.String())
}

func (k Keys) Limit() string {
	return prefixLimit + ":" + k.user
}

func (k Keys) Markers() string {
	return prefixMarkers + ":" + k.user
}

func (k Keys) join(kind, period string) string {
	return kind + ":" + k.user + ":" + period
}

// PeriodFromKey returns the trailing period segment of a ledger, archive,
// report or delete-log key.
func PeriodFromKey(key string) string {
	i := strings.LastIndex(key, ":")
	if i < 0 {
		return ""
	}
	return key[i+1:]
}
