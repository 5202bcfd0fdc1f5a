package core

// CategoryStat aggregates the entries sharing one category.
type CategoryStat struct {
	Amount Money           `json:"amount"`
	Count  int             `json:"count"`
	Type   TransactionType `json:"type"`
}

type DailyAverage struct {
	Income   Money `json:"income"`
	Spending Money `json:"spending"`
}

// Summary is the rollup of a batch of transactions.
type Summary struct {
	TotalIncome       Money                   `json:"totalIncome"`
	TotalFixedExpense Money                   `json:"totalFixedExpense"`
	TotalExpense      Money                   `json:"totalExpense"`
	TotalSpending     Money                   `json:"totalSpending"`
	Balance           Money                   `json:"balance"`
	TransactionCount  int                     `json:"transactionCount"`
	DaysCount         int                     `json:"daysCount"`
	CategoryStats     map[string]CategoryStat `json:"categoryStats"`
	DailyAverage      DailyAverage            `json:"dailyAverage"`
}

// Summarize computes totals, per-category stats and daily averages.
//
// The input is not modified and its order does not matter. When a category
// carries entries of several types, the reported type is the lowest in the
// order income, fixed_expense, expense.
func Summarize(txs []Transaction) Summary {
	s := Summary{CategoryStats: make(map[string]CategoryStat)}
	days := make(map[string]struct{})

	for _, tx := range txs {
		switch tx.Type {
		case Income:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		case FixedExpense:
			s.TotalFixedExpense = s.TotalFixedExpense.Add(tx.Amount)
		case Expense:
			s.TotalExpense = s.TotalExpense.Add(tx.Amount)
		}
		s.TransactionCount++
		days[tx.Date.String()] = struct{}{}

		stat, seen := s.CategoryStats[tx.Category]
		stat.Amount = stat.Amount.Add(tx.Amount)
		stat.Count++
		if !seen || tx.Type.rank() < stat.Type.rank() {
			stat.Type = tx.Type
		}
		s.CategoryStats[tx.Category] = stat
	}

	s.TotalSpending = s.TotalFixedExpense.Add(s.TotalExpense)
	s.Balance = s.TotalIncome.Sub(s.TotalSpending)
	s.DaysCount = len(days)
	s.DailyAverage = DailyAverage{
		Income:   s.TotalIncome.DivRound(s.DaysCount),
		Spending: s.TotalSpending.DivRound(s.DaysCount),
	}
	return s
}
