package types

// ScriptItem is an application resolved to the package identifier of one
// manager, ready to be embedded in a script.
type ScriptItem struct {
	AppID   string
	Name    string
	Package string
}
