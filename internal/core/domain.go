package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of a calendar day.
const DateLayout = "2006-01-02"

const (
	Income       TransactionType = "income"
	FixedExpense TransactionType = "fixed_expense"
	Expense      TransactionType = "expense"
)

// RetainedOnDailyClose is the one transaction type a daily close archives
// but leaves in the live ledger, so the running monthly balance keeps
// showing every income entry until the month itself is closed.
const RetainedOnDailyClose = Income

const maxDescriptionLength = 200

type (
	TransactionType string

	// Date is a calendar day with no time-of-day component.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		CreatedAt   time.Time       `json:"createdAt"`
	}
)

var (
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyCategory      = errors.New("empty category")
	ErrMissingID          = errors.New("missing transaction id")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day t falls on in its own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// AddDays moves the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Equal reports whether both values denote the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.String() == other.String()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(data))
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseTransactionType maps a wire value onto the closed set of types.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

func (t TransactionType) Valid() bool {
	switch t {
	case Income, FixedExpense, Expense:
		return true
	default:
		return false
	}
}

// IsRetainedOnDailyClose reports whether entries of this type stay in the
// ledger after their day is closed.
func (t TransactionType) IsRetainedOnDailyClose() bool {
	return t == RetainedOnDailyClose
}

// IsSpending reports whether the type counts towards total spending.
func (t TransactionType) IsSpending() bool {
	return t == FixedExpense || t == Expense
}

// Label is the human readable name used in reports.
func (t TransactionType) Label() string {
	switch t {
	case Income:
		return "Income"
	case FixedExpense:
		return "Fixed expense"
	case Expense:
		return "Expense"
	default:
		return string(t)
	}
}

// rank gives the fixed ordering used to break ties deterministically.
func (t TransactionType) rank() int {
	switch t {
	case Income:
		return 0
	case FixedExpense:
		return 1
	case Expense:
		return 2
	default:
		return 3
	}
}

func (tx Transaction) Validate() error {
	if err := tx.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	return nil
}

func (tx Transaction) validate() error {
	if err := tx.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(tx.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(tx.Description) > maxDescriptionLength {
		return fmt.Errorf("description too long (max %d characters)", maxDescriptionLength)
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if !tx.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, tx.Type)
	}
	if strings.TrimSpace(tx.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// SortTransactions orders entries by date, then creation instant, then id.
func SortTransactions(txs []Transaction) {
	slices.SortFunc(txs, func(a, b Transaction) int {
		if c := strings.Compare(a.Date.String(), b.Date.String()); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
