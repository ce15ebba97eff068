package policies

import (
	"sort"
	"strings"

	"app-installer/internal/types"
)

const (
	SortFieldTimestamp        = "timestamp"
	SortFieldAppID            = "appId"
	SortFieldPackageManagerID = "packageManagerId"
	SortFieldPackageName      = "packageName"
	SortFieldStatus           = "status"
)

var sortFields = map[string]string{
	strings.ToLower(SortFieldTimestamp):        SortFieldTimestamp,
	strings.ToLower(SortFieldAppID):            SortFieldAppID,
	strings.ToLower(SortFieldPackageManagerID): SortFieldPackageManagerID,
	strings.ToLower(SortFieldPackageName):      SortFieldPackageName,
	strings.ToLower(SortFieldStatus):           SortFieldStatus,
}

// FlaggedSortPolicy orders flagged results by one allow-listed field.
// Unknown fields fall back to timestamp and the default order is descending.
type FlaggedSortPolicy struct{}

func NewFlaggedSortPolicy() FlaggedSortPolicy {
	return FlaggedSortPolicy{}
}

func (p FlaggedSortPolicy) Normalize(sortBy string, order types.SortOrder) (string, types.SortOrder) {
	field, ok := sortFields[strings.ToLower(strings.TrimSpace(sortBy))]
	if !ok {
		field = SortFieldTimestamp
	}
	switch types.SortOrder(strings.ToLower(strings.TrimSpace(string(order)))) {
	case types.SortAsc:
		return field, types.SortAsc
	default:
		return field, types.SortDesc
	}
}

func (p FlaggedSortPolicy) Sort(results []types.VerificationResult, sortBy string, order types.SortOrder) []types.VerificationResult {
	field, direction := p.Normalize(sortBy, order)
	sorted := append([]types.VerificationResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		cmp := compareField(sorted[i], sorted[j], field)
		if cmp == 0 && field != SortFieldTimestamp {
			cmp = compareField(sorted[i], sorted[j], SortFieldTimestamp)
		}
		if direction == types.SortAsc {
			return cmp < 0
		}
		return cmp > 0
	})
	return sorted
}

func compareField(a types.VerificationResult, b types.VerificationResult, field string) int {
	switch field {
	case SortFieldAppID:
		return strings.Compare(a.AppID, b.AppID)
	case SortFieldPackageManagerID:
		return strings.Compare(string(a.PackageManagerID), string(b.PackageManagerID))
	case SortFieldPackageName:
		return strings.Compare(a.PackageName, b.PackageName)
	case SortFieldStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	default:
		return a.Timestamp.Compare(b.Timestamp)
	}
}
