// Package collaborator holds the outbound adapters for the ledger and
// notification ports.
package collaborator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"sacco-workflow/internal/domain/ledger"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

var _ ledger.Service = (*LedgerClient)(nil)

// LedgerClient talks to the cooperative ledger over HTTP/JSON.
type LedgerClient struct {
	http *resty.Client
}

func NewLedgerClient(baseURL string, timeout time.Duration) *LedgerClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	return &LedgerClient{http: c}
}

type standingResponse struct {
	Status         string          `json:"status"`
	SavingsBalance decimal.Decimal `json:"savings_balance"`
}

type disbursementRequest struct {
	ApplicationID string          `json:"application_id"`
	Amount        decimal.Decimal `json:"amount"`
}

type repaymentRequest struct {
	ApplicationID string          `json:"application_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaidOn        string          `json:"paid_on"`
	Reference     string          `json:"reference"`
}

func (c *LedgerClient) GetMemberStanding(ctx context.Context, memberID string) (*ledger.Standing, error) {
	var out standingResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/members/" + url.PathEscape(memberID) + "/standing")
	if err != nil {
		return nil, fmt.Errorf("ledger standing: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ledger.ErrMemberNotFound
	}
	if resp.IsError() {
		return nil, statusError("standing", resp)
	}
	return &ledger.Standing{
		Status:         ledger.MemberStatus(out.Status),
		SavingsBalance: out.SavingsBalance,
	}, nil
}

func (c *LedgerClient) CreateDisbursement(ctx context.Context, applicationID string, amount decimal.Decimal) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", "disburse-"+applicationID).
		SetBody(disbursementRequest{ApplicationID: applicationID, Amount: amount}).
		Post("/disbursements")
	if err != nil {
		return fmt.Errorf("ledger disbursement: %w", err)
	}
	if resp.IsError() {
		return statusError("disbursement", resp)
	}
	return nil
}

func (c *LedgerClient) ApplyRepayment(ctx context.Context, applicationID string, amount decimal.Decimal, paidOn time.Time, reference string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", reference).
		SetBody(repaymentRequest{
			ApplicationID: applicationID,
			Amount:        amount,
			PaidOn:        paidOn.Format(time.DateOnly),
			Reference:     reference,
		}).
		Post("/repayments")
	if err != nil {
		return fmt.Errorf("ledger repayment: %w", err)
	}
	// 409: the ledger already holds this reference
	if resp.IsError() && resp.StatusCode() != http.StatusConflict {
		return statusError("repayment", resp)
	}
	return nil
}

func statusError(op string, resp *resty.Response) error {
	return fmt.Errorf("ledger %s: unexpected status %d: %s", op, resp.StatusCode(), resp.String())
}
