// Package notify is the port to the member notification channel.
package notify

import "context"

type EventType string

const (
	EventApproved  EventType = "loan.approved"
	EventRejected  EventType = "loan.rejected"
	EventReturned  EventType = "loan.returned"
	EventDisbursed EventType = "loan.disbursed"
	EventCompleted EventType = "loan.completed"
	EventDefaulted EventType = "loan.defaulted"
)

type Service interface {
	Notify(ctx context.Context, memberID string, event EventType, payload map[string]any) error
}
