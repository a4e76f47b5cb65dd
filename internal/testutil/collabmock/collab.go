// Package collabmock provides recording fakes of the ledger and
// notification ports.
package collabmock

import (
	"context"
	"sync"
	"time"

	"sacco-workflow/internal/domain/ledger"
	"sacco-workflow/internal/domain/notify"

	"github.com/shopspring/decimal"
)

var (
	_ ledger.Service = (*Ledger)(nil)
	_ notify.Service = (*Notifier)(nil)
)

type RepaymentPost struct {
	ApplicationID string
	Amount        decimal.Decimal
	PaidOn        time.Time
	Reference     string
}

// Ledger answers standings from Standings (missing members are active
// with zero savings) and records disbursement and repayment posts.
type Ledger struct {
	mu sync.Mutex

	Standings        map[string]ledger.Standing
	StandingErr      error
	DisbursementErr  error
	RepaymentErr     error
	Disbursements    []string
	RepaymentsPosted []RepaymentPost
}

func NewLedger() *Ledger { return &Ledger{Standings: map[string]ledger.Standing{}} }

func (l *Ledger) SetStanding(memberID string, status ledger.MemberStatus, savings decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Standings[memberID] = ledger.Standing{Status: status, SavingsBalance: savings}
}

func (l *Ledger) GetMemberStanding(_ context.Context, memberID string) (*ledger.Standing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.StandingErr != nil {
		return nil, l.StandingErr
	}
	s, ok := l.Standings[memberID]
	if !ok {
		s = ledger.Standing{Status: ledger.MemberActive, SavingsBalance: decimal.Zero}
	}
	return &s, nil
}

func (l *Ledger) CreateDisbursement(_ context.Context, applicationID string, _ decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.DisbursementErr != nil {
		return l.DisbursementErr
	}
	l.Disbursements = append(l.Disbursements, applicationID)
	return nil
}

func (l *Ledger) ApplyRepayment(_ context.Context, applicationID string, amount decimal.Decimal, paidOn time.Time, reference string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.RepaymentErr != nil {
		return l.RepaymentErr
	}
	l.RepaymentsPosted = append(l.RepaymentsPosted, RepaymentPost{applicationID, amount, paidOn, reference})
	return nil
}

// Fail sets or clears the error returned by every ledger call.
func (l *Ledger) Fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.StandingErr, l.DisbursementErr, l.RepaymentErr = err, err, err
}

type Notification struct {
	MemberID string
	Event    notify.EventType
	Payload  map[string]any
}

type Notifier struct {
	mu   sync.Mutex
	Err  error
	Sent []Notification
}

func (n *Notifier) Notify(_ context.Context, memberID string, event notify.EventType, payload map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Sent = append(n.Sent, Notification{memberID, event, payload})
	return nil
}

// Events lists sent event types in order.
func (n *Notifier) Events() []notify.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.EventType, 0, len(n.Sent))
	for _, s := range n.Sent {
		out = append(out, s.Event)
	}
	return out
}
