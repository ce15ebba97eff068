package adapters

import (
	"sort"

	"app-installer/internal/types"
)

// newerResult reports whether candidate supersedes current. Later timestamps
// win and ties go to the later append.
func newerResult(candidate types.VerificationResult, candidateIdx int, current types.VerificationResult, currentIdx int) bool {
	if !candidate.Timestamp.Equal(current.Timestamp) {
		return candidate.Timestamp.After(current.Timestamp)
	}
	return candidateIdx > currentIdx
}

func currentResults(results []types.VerificationResult) map[types.ResultKey]int {
	current := map[types.ResultKey]int{}
	for idx, result := range results {
		key := result.Key()
		prev, ok := current[key]
		if !ok || newerResult(result, idx, results[prev], prev) {
			current[key] = idx
		}
	}
	return current
}

func latestFlagged(results []types.VerificationResult, key types.ResultKey) int {
	best := -1
	for idx, result := range results {
		if result.Key() != key || !result.ManualReviewFlag {
			continue
		}
		if best < 0 || newerResult(result, idx, results[best], best) {
			best = idx
		}
	}
	return best
}

func latestFor(results []types.VerificationResult, key types.ResultKey) (types.VerificationResult, bool) {
	best := -1
	for idx, result := range results {
		if result.Key() != key {
			continue
		}
		if best < 0 || newerResult(result, idx, results[best], best) {
			best = idx
		}
	}
	if best < 0 {
		return types.VerificationResult{}, false
	}
	return results[best], true
}

func latestAll(results []types.VerificationResult) []types.VerificationResult {
	current := currentResults(results)
	out := make([]types.VerificationResult, 0, len(current))
	for _, idx := range current {
		out = append(out, results[idx])
	}
	sortByKey(out)
	return out
}

// flaggedResults returns, per pair, the most recent result still carrying the
// review flag. This is the document a resolve would clear.
func flaggedResults(results []types.VerificationResult, manager types.ManagerID) []types.VerificationResult {
	best := map[types.ResultKey]int{}
	for idx, result := range results {
		if !result.ManualReviewFlag {
			continue
		}
		if manager != "" && result.PackageManagerID != manager {
			continue
		}
		key := result.Key()
		prev, ok := best[key]
		if !ok || newerResult(result, idx, results[prev], prev) {
			best[key] = idx
		}
	}
	out := make([]types.VerificationResult, 0, len(best))
	for _, idx := range best {
		out = append(out, results[idx])
	}
	sortByKey(out)
	return out
}

func sortByKey(results []types.VerificationResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].AppID != results[j].AppID {
			return results[i].AppID < results[j].AppID
		}
		return results[i].PackageManagerID < results[j].PackageManagerID
	})
}
