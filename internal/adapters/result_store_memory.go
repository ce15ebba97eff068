package adapters

import (
	"context"
	"fmt"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/uuid"

	"app-installer/internal/ports"
	"app-installer/internal/types"
)

// ResultStoreMemoryAdapter keeps verification results in process memory.
type ResultStoreMemoryAdapter struct {
	mu      sync.Mutex
	results []types.VerificationResult
	closed  bool
}

func NewResultStoreMemoryAdapter() *ResultStoreMemoryAdapter {
	return &ResultStoreMemoryAdapter{}
}

func (a *ResultStoreMemoryAdapter) Append(ctx context.Context, result types.VerificationResult) (types.VerificationResult, error) {
	if err := ctx.Err(); err != nil {
		return types.VerificationResult{}, err
	}
	if err := validateResult(result); err != nil {
		return types.VerificationResult{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return types.VerificationResult{}, errStoreClosed()
	}
	result.ID = uuid.NewString()
	a.results = append(a.results, result)
	return result, nil
}

func (a *ResultStoreMemoryAdapter) Latest(ctx context.Context, key types.ResultKey) (types.VerificationResult, bool, error) {
	results, err := a.snapshot(ctx)
	if err != nil {
		return types.VerificationResult{}, false, err
	}
	result, ok := latestFor(results, key)
	return result, ok, nil
}

func (a *ResultStoreMemoryAdapter) LatestAll(ctx context.Context) ([]types.VerificationResult, error) {
	results, err := a.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return latestAll(results), nil
}

func (a *ResultStoreMemoryAdapter) ListFlagged(ctx context.Context, manager types.ManagerID) ([]types.VerificationResult, error) {
	results, err := a.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return flaggedResults(results, manager), nil
}

func (a *ResultStoreMemoryAdapter) ClearFlag(ctx context.Context, key types.ResultKey) (types.VerificationResult, error) {
	if err := ctx.Err(); err != nil {
		return types.VerificationResult{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return types.VerificationResult{}, errStoreClosed()
	}
	idx := latestFlagged(a.results, key)
	if idx < 0 {
		return types.VerificationResult{}, errNoFlaggedResult(key)
	}
	a.results[idx].ManualReviewFlag = false
	return a.results[idx], nil
}

func (a *ResultStoreMemoryAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func (a *ResultStoreMemoryAdapter) snapshot(ctx context.Context) ([]types.VerificationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, errStoreClosed()
	}
	return append([]types.VerificationResult(nil), a.results...), nil
}

func validateResult(result types.VerificationResult) error {
	if result.AppID == "" || result.PackageManagerID == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("verification result requires appId and packageManagerId")
	}
	if result.Timestamp.IsZero() {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("verification result requires a timestamp")
	}
	return nil
}

func errStoreClosed() error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("result store is closed")
}

func errNoFlaggedResult(key types.ResultKey) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("no flagged result for %s on %s", key.AppID, key.Manager))
}

var _ ports.ResultStorePort = (*ResultStoreMemoryAdapter)(nil)
