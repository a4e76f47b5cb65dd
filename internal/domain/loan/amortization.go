package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// Terms are the locked financial terms of an application.
type Terms struct {
	Principal          decimal.Decimal
	TermMonths         int
	MonthlyRate        decimal.Decimal
	TotalInterest      decimal.Decimal
	TotalRepayable     decimal.Decimal
	MonthlyInstallment decimal.Decimal
}

// Amortize computes flat simple-interest terms: interest = P * r * N,
// installment = (P + interest) / N rounded half-up to cents.
func Amortize(principal, monthlyRate decimal.Decimal, termMonths int) Terms {
	t := Terms{Principal: principal, TermMonths: termMonths, MonthlyRate: monthlyRate}
	if termMonths <= 0 {
		t.TotalRepayable = principal
		return t
	}
	n := decimal.NewFromInt(int64(termMonths))
	t.TotalInterest = principal.Mul(monthlyRate).Mul(n).Round(2)
	t.TotalRepayable = principal.Add(t.TotalInterest)
	t.MonthlyInstallment = t.TotalRepayable.Div(n).Round(2)
	return t
}

type Installment struct {
	Number    int             `json:"number"`
	DueDate   time.Time       `json:"due_date"`
	Amount    decimal.Decimal `json:"amount"`
	Remaining decimal.Decimal `json:"remaining"`
}

// Schedule lays out monthly installments from start. The final installment
// absorbs the rounding residue so the amounts sum to TotalRepayable.
func Schedule(t Terms, start time.Time) []Installment {
	if t.TermMonths <= 0 {
		return nil
	}
	out := make([]Installment, 0, t.TermMonths)
	remaining := t.TotalRepayable
	for i := 1; i <= t.TermMonths; i++ {
		amount := t.MonthlyInstallment
		if i == t.TermMonths || amount.GreaterThan(remaining) {
			amount = remaining
		}
		remaining = remaining.Sub(amount)
		out = append(out, Installment{
			Number:    i,
			DueDate:   start.AddDate(0, i, 0),
			Amount:    amount,
			Remaining: remaining,
		})
	}
	return out
}
