package adapters

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"app-installer/internal/core"
	"app-installer/internal/ports"
	"app-installer/internal/types"
)

//go:embed catalog/default.yaml
var defaultCatalog []byte

// CatalogFileAdapter loads the application catalog from YAML, JSON or TOML.
// An empty path selects the built-in catalog.
type CatalogFileAdapter struct{}

func NewCatalogFileAdapter() CatalogFileAdapter {
	return CatalogFileAdapter{}
}

func (a CatalogFileAdapter) LoadCatalog(path string) (types.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return parseCatalog(defaultCatalog, ".yaml")
	}
	expanded, err := homedir.Expand(strings.TrimSpace(path))
	if err != nil {
		return types.Catalog{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid catalog path").
			WithCause(err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return types.Catalog{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("catalog file not found").
			WithCause(err)
	}
	return parseCatalog(data, strings.ToLower(filepath.Ext(expanded)))
}

func parseCatalog(data []byte, ext string) (types.Catalog, error) {
	var catalog types.Catalog
	var err error
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &catalog)
	case ".json":
		err = json.Unmarshal(data, &catalog)
	case ".toml":
		err = toml.Unmarshal(data, &catalog)
	default:
		return types.Catalog{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported catalog format: %q", ext))
	}
	if err != nil {
		return types.Catalog{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse catalog").
			WithCause(err)
	}
	if err := validateCatalog(&catalog); err != nil {
		return types.Catalog{}, err
	}
	return catalog, nil
}

func validateCatalog(catalog *types.Catalog) error {
	seen := map[string]struct{}{}
	for i := range catalog.Applications {
		app := &catalog.Applications[i]
		app.ID = strings.TrimSpace(app.ID)
		if app.ID == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("catalog entry %d has no id", i))
		}
		if _, ok := seen[app.ID]; ok {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("duplicate application id: " + app.ID)
		}
		seen[app.ID] = struct{}{}
		if strings.TrimSpace(app.Name) == "" {
			app.Name = app.ID
		}
		for manager := range app.Targets {
			if !core.IsKnownManager(manager) {
				return errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("application %s targets unknown package manager %s", app.ID, manager))
			}
		}
	}
	return nil
}

var _ ports.CatalogPort = CatalogFileAdapter{}
