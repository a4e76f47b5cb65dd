package loan

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmortize_ShortTermScenario(t *testing.T) {
	terms := Amortize(decimal.NewFromInt(10000), decimal.RequireFromString("0.015"), 12)

	assert.True(t, terms.TotalInterest.Equal(decimal.NewFromInt(1800)), "interest %s", terms.TotalInterest)
	assert.True(t, terms.TotalRepayable.Equal(decimal.NewFromInt(11800)), "total %s", terms.TotalRepayable)
	assert.Equal(t, "983.33", terms.MonthlyInstallment.StringFixed(2))
}

func TestAmortize_RoundsHalfUp(t *testing.T) {
	// 100 + 100*0.01*3 = 103 / 3 = 34.333.. -> 34.33
	terms := Amortize(decimal.NewFromInt(100), decimal.RequireFromString("0.01"), 3)
	assert.Equal(t, "34.33", terms.MonthlyInstallment.StringFixed(2))

	// 0.10 / 4 = 0.025 -> 0.03
	terms = Amortize(decimal.RequireFromString("0.10"), decimal.Zero, 4)
	assert.Equal(t, "0.03", terms.MonthlyInstallment.StringFixed(2))
}

func TestAmortize_NonPositiveTerm(t *testing.T) {
	terms := Amortize(decimal.NewFromInt(500), decimal.RequireFromString("0.02"), 0)
	assert.True(t, terms.TotalRepayable.Equal(decimal.NewFromInt(500)))
	assert.True(t, terms.MonthlyInstallment.IsZero())
	assert.Nil(t, Schedule(terms, time.Now()))
}

func TestSchedule_LastInstallmentAbsorbsResidue(t *testing.T) {
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	terms := Amortize(decimal.NewFromInt(10000), decimal.RequireFromString("0.015"), 12)

	plan := Schedule(terms, start)
	require.Len(t, plan, 12)

	assert.Equal(t, "983.33", plan[0].Amount.StringFixed(2))
	assert.Equal(t, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), plan[0].DueDate)
	// 11800 - 11 * 983.33
	assert.Equal(t, "983.37", plan[11].Amount.StringFixed(2))
	assert.True(t, plan[11].Remaining.IsZero())
}

func TestAmortize_Properties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 300
	properties := gopter.NewProperties(params)

	cent := decimal.New(1, -2)

	properties.Property("installment times term is within N cents of total", prop.ForAll(
		func(cents int64, ratePermille int64, n int) bool {
			p := decimal.New(cents, -2)
			r := decimal.New(ratePermille, -3)
			terms := Amortize(p, r, n)
			diff := terms.MonthlyInstallment.Mul(decimal.NewFromInt(int64(n))).Sub(terms.TotalRepayable).Abs()
			return diff.LessThanOrEqual(cent.Mul(decimal.NewFromInt(int64(n))))
		},
		gen.Int64Range(100, 100_000_000),
		gen.Int64Range(0, 50),
		gen.IntRange(1, 120),
	))

	properties.Property("schedule sums exactly to total repayable", prop.ForAll(
		func(cents int64, ratePermille int64, n int) bool {
			terms := Amortize(decimal.New(cents, -2), decimal.New(ratePermille, -3), n)
			plan := Schedule(terms, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
			if len(plan) != n {
				return false
			}
			sum := decimal.Zero
			for _, in := range plan {
				if in.Amount.IsNegative() {
					return false
				}
				sum = sum.Add(in.Amount)
			}
			return sum.Equal(terms.TotalRepayable) && plan[n-1].Remaining.IsZero()
		},
		gen.Int64Range(100, 100_000_000),
		gen.Int64Range(0, 50),
		gen.IntRange(1, 120),
	))

	properties.TestingRun(t)
}

func TestState_Predicates(t *testing.T) {
	for _, s := range []State{StateRejected, StateCompleted, StateDefaulted} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []State{StateDraft, StatePendingApproval, StateReturned, StateApproved, StateDisbursed, StateRepaying} {
		assert.False(t, s.Terminal(), s)
	}
	assert.True(t, StateDraft.Editable())
	assert.True(t, StateReturned.Editable())
	assert.False(t, StatePendingApproval.Editable())
}
