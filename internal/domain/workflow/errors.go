package workflow

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation              Kind = "validation"
	KindAuthorization           Kind = "authorization"
	KindInvalidState            Kind = "invalid_state"
	KindCollaboratorUnavailable Kind = "collaborator_unavailable"
	KindNotFound                Kind = "not_found"
)

// Reasons attached to validation and state errors.
const (
	ReasonMissingField          = "missing_field"
	ReasonInvalidAmount         = "invalid_amount"
	ReasonInvalidTerm           = "invalid_term"
	ReasonUnknownProduct        = "unknown_product"
	ReasonTermExceedsProduct    = "term_exceeds_product"
	ReasonMemberInactive        = "member_inactive"
	ReasonMemberNotFound        = "member_not_found"
	ReasonExceedsSavingsLimit   = "exceeds_savings_limit"
	ReasonExceedsMaxPrincipal   = "exceeds_max_principal"
	ReasonInFlightApplication   = "in_flight_application"
	ReasonRemarksRequired       = "remarks_required"
	ReasonUnknownOutcome        = "unknown_outcome"
	ReasonUnknownRole           = "unknown_role"
	ReasonExceedsBalance        = "exceeds_balance"
	ReasonStaleVersion          = "stale_version"
	ReasonIllegalTransition     = "illegal_transition"
	ReasonDuplicateRepayment    = "duplicate_repayment"
	ReasonReferenceMismatch     = "reference_mismatch"
	ReasonDisbursementRequested = "disbursement_already_requested"
)

// Error is the single error type surfaced by the workflow engine.
// Callers match on Kind through errors.Is against the package sentinels.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind. A target with a Reason
// only matches errors carrying that same reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

var (
	ErrValidation              = &Error{Kind: KindValidation}
	ErrAuthorization           = &Error{Kind: KindAuthorization}
	ErrInvalidState            = &Error{Kind: KindInvalidState}
	ErrCollaboratorUnavailable = &Error{Kind: KindCollaboratorUnavailable}
	ErrNotFound                = &Error{Kind: KindNotFound}
)

func Validation(reason, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func Authorization(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(reason, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unavailable wraps a failed call to an external collaborator.
func Unavailable(collaborator string, err error) *Error {
	return &Error{
		Kind:    KindCollaboratorUnavailable,
		Reason:  collaborator,
		Message: collaborator + " unavailable",
		Err:     err,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}
