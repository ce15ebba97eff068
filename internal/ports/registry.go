package ports

import (
	"context"

	"app-installer/internal/types"
)

// RegistryCheckerPort looks a package identifier up in one package manager's
// public registry. A clean "not found" is reported as Exists=false with a nil
// error; any error means the lookup was inconclusive.
type RegistryCheckerPort interface {
	Check(ctx context.Context, packageName string) (types.RegistryCheck, error)
}

// RegistryCheckersPort hands out the checker of a verifiable manager.
type RegistryCheckersPort interface {
	CheckerFor(manager types.ManagerID) (RegistryCheckerPort, bool)
}
