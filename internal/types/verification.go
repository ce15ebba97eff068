package types

import "time"

// VerificationResult is one immutable verification document. The current
// status of an (app, manager) pair is the result with the latest Timestamp.
type VerificationResult struct {
	ID               string             `json:"id"`
	AppID            string             `json:"appId"`
	PackageManagerID ManagerID          `json:"packageManagerId"`
	PackageName      string             `json:"packageName"`
	Status           VerificationStatus `json:"status"`
	Timestamp        time.Time          `json:"timestamp"`
	ErrorMessage     string             `json:"errorMessage,omitempty"`
	ManualReviewFlag bool               `json:"manualReviewFlag,omitempty"`
	LatestVersion    string             `json:"latestVersion,omitempty"`
}

func (r VerificationResult) Key() ResultKey {
	return ResultKey{AppID: r.AppID, Manager: r.PackageManagerID}
}

type ResultKey struct {
	AppID   string
	Manager ManagerID
}

type VerificationSummary struct {
	Total        int `json:"total"`
	Verified     int `json:"verified"`
	Failed       int `json:"failed"`
	Errors       int `json:"errors"`
	Unverifiable int `json:"unverifiable"`
}

// RegistryCheck is the outcome of a registry lookup that completed cleanly.
// Exists=false is a well-formed "not found".
type RegistryCheck struct {
	Exists        bool
	LatestVersion string
}

type FlaggedQuery struct {
	Manager ManagerID
	SortBy  string
	Order   SortOrder
}
