package core

import "github.com/shopspring/decimal"

// LimitWarningPercent is the usage at which a limit check starts warning.
const LimitWarningPercent = 90

const (
	LimitNone     LimitLevel = "none"
	LimitNormal   LimitLevel = "normal"
	LimitWarning  LimitLevel = "warning"
	LimitExceeded LimitLevel = "exceeded"
)

type LimitLevel string

// LimitCheck compares spending against a spending limit.
type LimitCheck struct {
	Limit        Money           `json:"limit"`
	Spent        Money           `json:"spent"`
	Remaining    Money           `json:"remaining"`
	OverBy       Money           `json:"overBy"`
	UsagePercent decimal.Decimal `json:"usagePercent"`
	Level        LimitLevel      `json:"level"`
}

// CheckLimit reports usage of limit by spent. A non-positive limit means no
// limit is set. The usage percentage is capped at 100.
func CheckLimit(limit, spent Money) LimitCheck {
	c := LimitCheck{Limit: limit, Spent: spent, UsagePercent: decimal.Zero, Level: LimitNone}
	if limit.Cents <= 0 {
		return c
	}

	if spent.Cents > limit.Cents {
		c.OverBy = spent.Sub(limit)
	} else {
		c.Remaining = limit.Sub(spent)
	}

	hundred := decimal.NewFromInt(100)
	pct := decimal.NewFromInt(spent.Cents).Mul(hundred).Div(decimal.NewFromInt(limit.Cents))
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	c.UsagePercent = pct.Round(2)

	switch {
	case pct.GreaterThanOrEqual(hundred):
		c.Level = LimitExceeded
	case pct.GreaterThanOrEqual(decimal.NewFromInt(LimitWarningPercent)):
		c.Level = LimitWarning
	default:
		c.Level = LimitNormal
	}
	return c
}
