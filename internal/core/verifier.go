package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"app-installer/internal/policies"
	"app-installer/internal/ports"
	"app-installer/internal/types"
)

const (
	DefaultVerifyWorkers = 8
	DefaultVerifyTimeout = 10 * time.Second
)

// VerificationJob is one (application, manager) pair with a catalog target.
type VerificationJob struct {
	AppID       string
	Manager     types.ManagerID
	PackageName string
}

// PlanVerification lists every application x manager pair the catalog maps
// to a non-empty target, in catalog order.
func PlanVerification(catalog types.Catalog) []VerificationJob {
	jobs := []VerificationJob{}
	for _, app := range catalog.Applications {
		for _, manager := range types.AllManagers {
			target, ok := app.Target(manager)
			if !ok {
				continue
			}
			jobs = append(jobs, VerificationJob{AppID: app.ID, Manager: manager, PackageName: target})
		}
	}
	return jobs
}

// Verifier checks package identifiers against their registries and appends
// every outcome to the result store.
type Verifier struct {
	Checkers ports.RegistryCheckersPort
	Store    ports.ResultStorePort
	Metrics  ports.VerificationMetricsPort
	Policy   policies.VerificationPolicy
	Workers  int
	Timeout  time.Duration
	clock    *monotonicClock
}

func NewVerifier(checkers ports.RegistryCheckersPort, store ports.ResultStorePort, clock func() time.Time) Verifier {
	return Verifier{
		Checkers: checkers,
		Store:    store,
		Policy:   policies.NewVerificationPolicy(),
		Workers:  DefaultVerifyWorkers,
		Timeout:  DefaultVerifyTimeout,
		clock:    newMonotonicClock(clock),
	}
}

// Run verifies every job with a bounded worker pool. Registry failures are
// recorded per pair; only a store failure or cancellation aborts the run.
func (v Verifier) Run(ctx context.Context, jobs []VerificationJob) (types.VerificationSummary, error) {
	summary := types.VerificationSummary{Total: len(jobs)}
	workers := v.Workers
	if workers <= 0 {
		workers = DefaultVerifyWorkers
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for _, job := range jobs {
		group.Go(func() error {
			result, inconclusive, err := v.verify(groupCtx, job)
			if err != nil {
				return err
			}
			mu.Lock()
			tally(&summary, result, inconclusive)
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return summary, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("verification run aborted").
			WithCause(err)
	}
	log.Ctx(ctx).Info().
		Int("total", summary.Total).
		Int("verified", summary.Verified).
		Int("failed", summary.Failed).
		Int("errors", summary.Errors).
		Int("unverifiable", summary.Unverifiable).
		Msg("verification run complete")
	return summary, nil
}

// Verify checks a single pair and appends its result.
func (v Verifier) Verify(ctx context.Context, job VerificationJob) (types.VerificationResult, error) {
	result, _, err := v.verify(ctx, job)
	return result, err
}

func (v Verifier) verify(ctx context.Context, job VerificationJob) (types.VerificationResult, bool, error) {
	if err := ctx.Err(); err != nil {
		return types.VerificationResult{}, false, err
	}
	profile, err := LookupProfile(job.Manager)
	if err != nil {
		return types.VerificationResult{}, false, err
	}

	started := time.Now()
	var outcome policies.Outcome
	if !profile.Descriptor.Verifiable {
		outcome = v.Policy.Unverifiable(profile.Descriptor)
	} else {
		check, checkErr := v.check(ctx, profile, job)
		if ctx.Err() != nil {
			return types.VerificationResult{}, false, ctx.Err()
		}
		outcome = v.Policy.Classify(profile.Descriptor, job.PackageName, check, checkErr)
	}

	result := types.VerificationResult{
		AppID:            job.AppID,
		PackageManagerID: job.Manager,
		PackageName:      job.PackageName,
		Status:           outcome.Status,
		Timestamp:        v.now(),
		ErrorMessage:     outcome.ErrorMessage,
		ManualReviewFlag: outcome.ManualReviewFlag,
		LatestVersion:    outcome.LatestVersion,
	}
	stored, err := v.Store.Append(ctx, result)
	if err != nil {
		return types.VerificationResult{}, false, err
	}
	if v.Metrics != nil {
		v.Metrics.ObserveVerification(stored, outcome.Inconclusive, time.Since(started))
	}
	log.Ctx(ctx).Debug().
		Str("app", job.AppID).
		Str("manager", string(job.Manager)).
		Str("status", string(stored.Status)).
		Bool("flagged", stored.ManualReviewFlag).
		Msg("package verified")
	return stored, outcome.Inconclusive, nil
}

func (v Verifier) check(ctx context.Context, profile ManagerProfile, job VerificationJob) (types.RegistryCheck, error) {
	if v.Checkers == nil {
		return types.RegistryCheck{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no registry checkers configured")
	}
	checker, ok := v.Checkers.CheckerFor(job.Manager)
	if !ok {
		return types.RegistryCheck{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no registry checker for " + string(job.Manager))
	}
	name, _ := SplitConfinement(job.PackageName, profile.ConfinementMarker)
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	check, err := checker.Check(callCtx, name)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %v", context.DeadlineExceeded, timeout, err)
	}
	return check, err
}

func (v Verifier) now() time.Time {
	if v.clock == nil {
		return time.Now().UTC()
	}
	return v.clock.Next()
}

func tally(summary *types.VerificationSummary, result types.VerificationResult, inconclusive bool) {
	switch result.Status {
	case types.StatusVerified:
		summary.Verified++
	case types.StatusFailed:
		summary.Failed++
	case types.StatusUnverifiable:
		summary.Unverifiable++
	}
	if inconclusive {
		summary.Errors++
	}
}

// monotonicClock hands out strictly increasing UTC timestamps at millisecond
// precision, even when the wall clock stalls or steps backwards.
type monotonicClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewTimestampSource returns a clock whose readings strictly increase across
// every caller sharing it.
func NewTimestampSource(now func() time.Time) func() time.Time {
	return newMonotonicClock(now).Next
}

func newMonotonicClock(now func() time.Time) *monotonicClock {
	if now == nil {
		now = time.Now
	}
	return &monotonicClock{now: now}
}

func (c *monotonicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.now().UTC().Truncate(time.Millisecond)
	if !next.After(c.last) {
		next = c.last.Add(time.Millisecond)
	}
	c.last = next
	return next
}
