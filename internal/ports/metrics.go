package ports

import (
	"time"

	"app-installer/internal/types"
)

// VerificationMetricsPort records one verification outcome.
type VerificationMetricsPort interface {
	ObserveVerification(result types.VerificationResult, inconclusive bool, elapsed time.Duration)
}
