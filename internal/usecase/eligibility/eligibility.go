// Package eligibility decides whether a member may take a loan of a given size.
package eligibility

import (
	"sacco-workflow/internal/domain/ledger"
	"sacco-workflow/internal/domain/workflow"

	"github.com/shopspring/decimal"
)

type Input struct {
	Standing  ledger.Standing
	Principal decimal.Decimal
	// Principal may not exceed SavingsBalance * Multiple.
	Multiple decimal.Decimal
	// Zero disables the absolute cap.
	MaxPrincipal decimal.Decimal
	// Non-terminal applications the member holds besides the one being checked.
	InFlight int64
}

// Check returns nil or a validation *workflow.Error naming the first
// failed rule. It has no side effects.
func Check(in Input) error {
	if in.Standing.Status != ledger.MemberActive {
		return workflow.Validation(workflow.ReasonMemberInactive,
			"member status is %q, must be active", in.Standing.Status)
	}
	if !in.Principal.IsPositive() {
		return workflow.Validation(workflow.ReasonInvalidAmount, "principal must be positive")
	}
	if in.InFlight > 0 {
		return workflow.Validation(workflow.ReasonInFlightApplication,
			"member already has %d open application(s)", in.InFlight)
	}
	if in.MaxPrincipal.IsPositive() && in.Principal.GreaterThan(in.MaxPrincipal) {
		return workflow.Validation(workflow.ReasonExceedsMaxPrincipal,
			"principal %s exceeds the cap of %s", in.Principal.StringFixed(2), in.MaxPrincipal.StringFixed(2))
	}
	limit := in.Standing.SavingsBalance.Mul(in.Multiple)
	if in.Principal.GreaterThan(limit) {
		return workflow.Validation(workflow.ReasonExceedsSavingsLimit,
			"principal %s exceeds %s times savings (%s)",
			in.Principal.StringFixed(2), in.Multiple.String(), limit.StringFixed(2))
	}
	return nil
}
