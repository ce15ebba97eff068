package policies

import (
	"context"
	"errors"
	"fmt"

	"app-installer/internal/types"
)

// Outcome is the classification of one registry lookup.
type Outcome struct {
	Status           types.VerificationStatus
	ErrorMessage     string
	ManualReviewFlag bool
	LatestVersion    string
	// Inconclusive marks lookups that ended in an error rather than a clean
	// answer from the registry.
	Inconclusive bool
}

type VerificationPolicy struct{}

func NewVerificationPolicy() VerificationPolicy {
	return VerificationPolicy{}
}

// Unverifiable is the outcome for managers without a public registry.
func (p VerificationPolicy) Unverifiable(descriptor types.ManagerDescriptor) Outcome {
	return Outcome{
		Status:       types.StatusUnverifiable,
		ErrorMessage: fmt.Sprintf("%s has no public registry to verify against", descriptor.Label),
	}
}

// Classify maps a registry lookup to a status. A clean not-found fails the
// package outright; an error fails it and raises the manual review flag so an
// administrator can tell a missing package from an inconclusive check.
func (p VerificationPolicy) Classify(descriptor types.ManagerDescriptor, packageName string, check types.RegistryCheck, err error) Outcome {
	if err != nil {
		message := fmt.Sprintf("registry check failed: %v", err)
		if errors.Is(err, context.DeadlineExceeded) {
			message = fmt.Sprintf("registry check timed out: %v", err)
		}
		return Outcome{
			Status:           types.StatusFailed,
			ErrorMessage:     message,
			ManualReviewFlag: true,
			Inconclusive:     true,
		}
	}
	if !check.Exists {
		return Outcome{
			Status:       types.StatusFailed,
			ErrorMessage: fmt.Sprintf("package %q not found in the %s registry", packageName, descriptor.Label),
		}
	}
	return Outcome{
		Status:        types.StatusVerified,
		LatestVersion: check.LatestVersion,
	}
}
