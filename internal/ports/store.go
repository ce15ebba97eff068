package ports

import (
	"context"

	"app-installer/internal/types"
)

// ResultStorePort is an append-only store of verification results. Results
// are never rewritten, except that ClearFlag may flip the review flag of the
// most recent flagged result of one pair.
type ResultStorePort interface {
	Append(ctx context.Context, result types.VerificationResult) (types.VerificationResult, error)
	Latest(ctx context.Context, key types.ResultKey) (types.VerificationResult, bool, error)
	LatestAll(ctx context.Context) ([]types.VerificationResult, error)
	ListFlagged(ctx context.Context, manager types.ManagerID) ([]types.VerificationResult, error)
	ClearFlag(ctx context.Context, key types.ResultKey) (types.VerificationResult, error)
	Close() error
}
