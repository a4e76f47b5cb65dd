package approval

import "context"

// Repository is append-only: there is no update or delete.
type Repository interface {
	Create(ctx context.Context, d *Decision) error

	// Audit trail of one application, oldest first
	ListByApplicationID(ctx context.Context, applicationID uint64) ([]Decision, error)

	// Get by public decision_id
	GetByDecisionID(ctx context.Context, decisionID string) (*Decision, error)
}
