package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"app-installer/internal/types"
)

// Selection is the outcome of resolving application ids against one manager.
// Unavailable lists the ids that exist but are not offered on the manager.
type Selection struct {
	Items       []types.ScriptItem
	Unavailable []string
}

// ResolveSelection maps application ids to the manager's package identifiers
// in request order. Duplicate ids are collapsed and unknown ids are rejected.
func ResolveSelection(catalog types.Catalog, appIDs []string, manager types.ManagerID) (Selection, error) {
	if !IsKnownManager(manager) {
		return Selection{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown package manager: %s", manager))
	}
	selection := Selection{Items: []types.ScriptItem{}}
	seen := map[string]struct{}{}
	for _, raw := range appIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		app, ok := catalog.Find(id)
		if !ok {
			return Selection{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("unknown application: %s", id))
		}
		target, ok := app.Target(manager)
		if !ok {
			selection.Unavailable = append(selection.Unavailable, id)
			continue
		}
		selection.Items = append(selection.Items, types.ScriptItem{
			AppID:   app.ID,
			Name:    app.Name,
			Package: target,
		})
	}
	return selection, nil
}

// AvailableApplications lists the catalog entries offered on the manager.
func AvailableApplications(catalog types.Catalog, manager types.ManagerID) []types.Application {
	out := []types.Application{}
	for _, app := range catalog.Applications {
		if app.Available(manager) {
			out = append(out, app)
		}
	}
	return out
}

func PackageNames(items []types.ScriptItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Package)
	}
	return out
}
