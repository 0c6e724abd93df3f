package core

import "github.com/shopspring/decimal"

// FinanceSummary aggregates a user's transactions.
type FinanceSummary struct {
	Balance  decimal.Decimal
	Income   decimal.Decimal
	Expenses decimal.Decimal
	// Unknown counts rows whose type is neither income nor expense. They
	// are subtracted from Balance but not added to Expenses.
	Unknown int
}

// Summarize computes totals in a single pass. Rows whose amount cannot be
// parsed are skipped and reported through the returned error slice.
func Summarize(rows []Record) (FinanceSummary, []error) {
	sum := FinanceSummary{
		Balance:  decimal.Zero,
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
	}
	var errs []error
	for _, row := range rows {
		tx, err := TransactionFromRecord(row)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		switch tx.Type {
		case Income:
			sum.Income = sum.Income.Add(tx.Amount)
			sum.Balance = sum.Balance.Add(tx.Amount)
		case Expense:
			sum.Expenses = sum.Expenses.Add(tx.Amount)
			sum.Balance = sum.Balance.Sub(tx.Amount)
		default:
			sum.Unknown++
			sum.Balance = sum.Balance.Sub(tx.Amount)
		}
	}
	return sum, errs
}
