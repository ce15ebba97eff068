package ports

import "app-installer/internal/types"

type CatalogPort interface {
	LoadCatalog(path string) (types.Catalog, error)
}
