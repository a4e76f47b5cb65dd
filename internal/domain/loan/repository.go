package loan

import "context"

type Repository interface {
	// Create fails with ErrOpenApplicationExists when a holds the member
	// slot and another open application already does.
	Create(ctx context.Context, a *Application) error
	GetByApplicationID(ctx context.Context, applicationID string) (*Application, error)
	// Locks the row for the rest of the surrounding transaction.
	GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*Application, error)
	// Save bumps Version and fails with ErrVersionConflict when the stored
	// row no longer carries the version the caller read.
	Save(ctx context.Context, a *Application) error

	CountInFlightByMember(ctx context.Context, memberID string, excludeID uint64) (int64, error)
	ListPendingAtStages(ctx context.Context, stageIndices []int) ([]Application, error)
	ListByMember(ctx context.Context, memberID string) ([]Application, error)
	ListByState(ctx context.Context, state State) ([]Application, error)
	CountByState(ctx context.Context) (map[State]int64, error)
}
