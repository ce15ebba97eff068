package app

import "app-installer/internal/types"

type GenerateScriptRequest struct {
	CatalogPath string
	Manager     types.ManagerID
	AppIDs      []string
	// OutputPath, when set, writes the script to disk. SignKey additionally
	// writes an armored detached signature next to it.
	OutputPath string
	SignKey    string
}

type GenerateScriptResult struct {
	Manager       types.ManagerDescriptor
	Script        string
	Items         []types.ScriptItem
	Unavailable   []string
	OutputPath    string
	SignaturePath string
}

type GenerateCommandRequest struct {
	CatalogPath string
	Manager     types.ManagerID
	AppIDs      []string
}

type GenerateCommandResult struct {
	Manager     types.ManagerDescriptor
	Command     string
	Unavailable []string
}

type ListApplicationsRequest struct {
	CatalogPath string
	Manager     types.ManagerID
}

type ApplicationListing struct {
	Application types.Application
	Managers    []types.ManagerID
}

type ListApplicationsResult struct {
	Applications []ApplicationListing
}

type TriggerVerificationRequest struct {
	Token string
}

type VerifyPackageRequest struct {
	AppID   string
	Manager types.ManagerID
}

type StatusRequest struct {
	AppID   string
	Manager types.ManagerID
}

type StatusResult struct {
	// Single is set when both filters were given; Results then holds just
	// that one result or its pending placeholder.
	Single  bool
	Results []types.VerificationResult
}

type ResolveFlagRequest struct {
	AppID   string
	Manager types.ManagerID
}
