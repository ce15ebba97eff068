package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"app-installer/internal/core"
	"app-installer/internal/policies"
	"app-installer/internal/types"
)

// ListFlagged returns the most recent flagged result of every pair, sorted
// by an allow-listed field.
func (s Service) ListFlagged(ctx context.Context, req types.FlaggedQuery) ([]types.VerificationResult, error) {
	manager := types.ManagerID(strings.TrimSpace(string(req.Manager)))
	if manager != "" && !core.IsKnownManager(manager) {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unknown package manager: " + string(manager))
	}
	flagged, err := s.Store.ListFlagged(ctx, manager)
	if err != nil {
		return nil, err
	}
	return policies.NewFlaggedSortPolicy().Sort(flagged, req.SortBy, req.Order), nil
}

// ResolveFlag clears the review flag of the pair's most recent flagged
// result. It reports NotFound when nothing is flagged.
func (s Service) ResolveFlag(ctx context.Context, req ResolveFlagRequest) (types.VerificationResult, error) {
	key, err := requireKey(req.AppID, req.Manager)
	if err != nil {
		return types.VerificationResult{}, err
	}
	resolved, err := s.Store.ClearFlag(ctx, key)
	if err != nil {
		return types.VerificationResult{}, err
	}
	log.Ctx(ctx).Info().
		Str("app", resolved.AppID).
		Str("manager", string(resolved.PackageManagerID)).
		Str("id", resolved.ID).
		Msg("review flag cleared")
	return resolved, nil
}
