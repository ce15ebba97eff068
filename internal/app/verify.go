package app

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"app-installer/internal/core"
	"app-installer/internal/types"
)

// TriggerVerification runs the full pipeline once the bearer token matches
// the configured secret.
func (s Service) TriggerVerification(ctx context.Context, req TriggerVerificationRequest) (types.VerificationSummary, error) {
	if err := s.authorize(req.Token); err != nil {
		return types.VerificationSummary{}, err
	}
	return s.RunVerification(ctx)
}

// RunVerification verifies every application x manager pair of the catalog.
// Callers outside the process go through TriggerVerification.
func (s Service) RunVerification(ctx context.Context) (types.VerificationSummary, error) {
	catalog, err := s.loadCatalog("")
	if err != nil {
		return types.VerificationSummary{}, err
	}
	jobs := core.PlanVerification(catalog)
	log.Ctx(ctx).Info().Int("pairs", len(jobs)).Msg("verification run started")
	return s.verifier().Run(ctx, jobs)
}

func (s Service) authorize(token string) error {
	secret := strings.TrimSpace(s.VerifySecret)
	if secret == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("server misconfiguration: verification secret is not set")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg("missing verification token")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg("invalid verification token")
	}
	return nil
}

// VerifyPackage verifies one pair on demand and appends its result.
func (s Service) VerifyPackage(ctx context.Context, req VerifyPackageRequest) (types.VerificationResult, error) {
	key, err := requireKey(req.AppID, req.Manager)
	if err != nil {
		return types.VerificationResult{}, err
	}
	catalog, err := s.loadCatalog("")
	if err != nil {
		return types.VerificationResult{}, err
	}
	application, ok := catalog.Find(key.AppID)
	if !ok {
		return types.VerificationResult{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("unknown application: " + key.AppID)
	}
	target, ok := application.Target(key.Manager)
	if !ok {
		return types.VerificationResult{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(application.ID + " is not offered on " + string(key.Manager))
	}
	return s.verifier().Verify(ctx, core.VerificationJob{
		AppID:       application.ID,
		Manager:     key.Manager,
		PackageName: target,
	})
}

// Status returns the current result of one pair, or a pending placeholder
// when it was never verified. Without both filters it returns the current
// result of every stored pair matching the filters given.
func (s Service) Status(ctx context.Context, req StatusRequest) (StatusResult, error) {
	appID := strings.TrimSpace(req.AppID)
	manager := types.ManagerID(strings.TrimSpace(string(req.Manager)))
	if manager != "" && !core.IsKnownManager(manager) {
		return StatusResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unknown package manager: " + string(manager))
	}

	if appID != "" && manager != "" {
		key := types.ResultKey{AppID: appID, Manager: manager}
		result, ok, err := s.Store.Latest(ctx, key)
		if err != nil {
			return StatusResult{}, err
		}
		if !ok {
			result = s.pendingResult(key)
		}
		return StatusResult{Single: true, Results: []types.VerificationResult{result}}, nil
	}

	all, err := s.Store.LatestAll(ctx)
	if err != nil {
		return StatusResult{}, err
	}
	results := []types.VerificationResult{}
	for _, result := range all {
		if appID != "" && result.AppID != appID {
			continue
		}
		if manager != "" && result.PackageManagerID != manager {
			continue
		}
		results = append(results, result)
	}
	return StatusResult{Results: results}, nil
}

// pendingResult is never stored. The package name is filled in from the
// catalog when the pair is mapped there.
func (s Service) pendingResult(key types.ResultKey) types.VerificationResult {
	result := types.VerificationResult{
		AppID:            key.AppID,
		PackageManagerID: key.Manager,
		Status:           types.StatusPending,
	}
	catalog, err := s.loadCatalog("")
	if err != nil {
		return result
	}
	if application, ok := catalog.Find(key.AppID); ok {
		result.PackageName, _ = application.Target(key.Manager)
	}
	return result
}

func requireKey(appID string, manager types.ManagerID) (types.ResultKey, error) {
	key := types.ResultKey{
		AppID:   strings.TrimSpace(appID),
		Manager: types.ManagerID(strings.TrimSpace(string(manager))),
	}
	if key.AppID == "" || key.Manager == "" {
		return types.ResultKey{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("appId and packageManagerId are required")
	}
	if !core.IsKnownManager(key.Manager) {
		return types.ResultKey{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unknown package manager: " + string(key.Manager))
	}
	return key, nil
}
