package core

import (
	"strings"

	"app-installer/internal/types"
)

// BuildInstallCommand renders a one-line command that installs every package
// with the manager's native tooling. Packages carrying the manager's
// confinement marker are installed by separate invocations chained with &&.
func BuildInstallCommand(manager types.ManagerID, packages []string) (string, error) {
	profile, err := LookupProfile(manager)
	if err != nil {
		return "", err
	}
	quote := QuoteShellArg
	if profile.Descriptor.Dialect == types.DialectPowerShell {
		quote = QuotePowerShellArg
	}

	plain := make([]string, 0, len(packages))
	var confined []string
	for _, pkg := range packages {
		name, flag := SplitConfinement(pkg, profile.ConfinementMarker)
		if name == "" {
			continue
		}
		name = quote(profile.PackagePrefix + name)
		if flag != "" {
			confined = append(confined, name+" "+flag)
			continue
		}
		plain = append(plain, name)
	}
	if len(plain) == 0 && len(confined) == 0 {
		return "", nil
	}

	if profile.BatchPerPackage {
		commands := make([]string, 0, len(plain))
		for _, name := range plain {
			commands = append(commands, profile.BatchCommand+" "+name)
		}
		return strings.Join(commands, profile.BatchSeparator), nil
	}

	commands := make([]string, 0, 1+len(confined))
	if len(plain) > 0 {
		commands = append(commands, profile.BatchCommand+" "+strings.Join(plain, " "))
	}
	for _, args := range confined {
		commands = append(commands, profile.BatchCommand+" "+args)
	}
	return strings.Join(commands, " && "), nil
}
