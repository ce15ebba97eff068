package core

import (
	"github.com/ZanzyTHEbar/errbuilder-go"

	"app-installer/internal/types"
)

// ManagerProfile captures everything that differs between package managers
// so that a single driver per script dialect can emit every script.
//
// CheckCommand and InstallCommand are shell (or PowerShell) bodies that read
// the package identifier from $pkg ($Package for PowerShell). Snap reads the
// optional confinement flag from $flag.
type ManagerProfile struct {
	Descriptor        types.ManagerDescriptor
	Executable        string
	InstallHint       string
	Privilege         types.Privilege
	UseSudo           bool
	ConfinementMarker string
	ParallelThreshold int
	Bootstrap         []BootstrapStep
	CheckCommand      string
	InstallCommand    string
	PermanentFailures []string

	// BatchCommand is the one-line install prefix used by the command
	// synthesizer; PackagePrefix is prepended to every identifier.
	BatchCommand  string
	PackagePrefix string
	// BatchPerPackage issues one invocation per package, joined by
	// BatchSeparator.
	BatchPerPackage bool
	BatchSeparator  string
}

// BootstrapStep runs once per script before any install. A failing step is
// reported as a warning and the script carries on.
type BootstrapStep struct {
	Description string
	Command     string
	Warning     string
}

const flathubRepo = "https://dl.flathub.org/repo/flathub.flatpakrepo"

var managerProfiles = map[types.ManagerID]ManagerProfile{
	types.ManagerApt: {
		Descriptor:     descriptor(types.ManagerApt, "APT", types.OSLinux, false),
		Executable:     "apt-get",
		InstallHint:    "https://wiki.debian.org/Apt",
		Privilege:      types.PrivilegeRefuseRoot,
		UseSudo:        true,
		CheckCommand:   `dpkg-query -W -f='${Status}' "$pkg" 2>/dev/null | grep -q "install ok installed"`,
		InstallCommand: `sudo DEBIAN_FRONTEND=noninteractive apt-get install -y "$pkg"`,
		Bootstrap: []BootstrapStep{{
			Description: "Refreshing package lists...",
			Command:     "sudo apt-get update -qq",
			Warning:     "Could not refresh package lists, continuing with cached metadata",
		}},
		PermanentFailures: []string{"Unable to locate package", "has no installation candidate"},
		BatchCommand:      "sudo apt install -y",
	},
	types.ManagerDnf: {
		Descriptor:        descriptor(types.ManagerDnf, "DNF", types.OSLinux, false),
		Executable:        "dnf",
		InstallHint:       "https://docs.fedoraproject.org/en-US/quick-docs/dnf/",
		Privilege:         types.PrivilegeRefuseRoot,
		UseSudo:           true,
		CheckCommand:      `rpm -q "$pkg" >/dev/null 2>&1`,
		InstallCommand:    `sudo dnf install -y "$pkg"`,
		PermanentFailures: []string{"No match for argument", "Unable to find a match"},
		BatchCommand:      "sudo dnf install -y",
	},
	types.ManagerPacman: {
		Descriptor:        descriptor(types.ManagerPacman, "Pacman", types.OSLinux, true),
		Executable:        "pacman",
		InstallHint:       "https://wiki.archlinux.org/title/Pacman",
		Privilege:         types.PrivilegeRefuseRoot,
		UseSudo:           true,
		CheckCommand:      `pacman -Qi "$pkg" >/dev/null 2>&1`,
		InstallCommand:    `sudo pacman -S --needed --noconfirm "$pkg"`,
		PermanentFailures: []string{"target not found"},
		BatchCommand:      "sudo pacman -S --needed --noconfirm",
	},
	types.ManagerZypper: {
		Descriptor:        descriptor(types.ManagerZypper, "Zypper", types.OSLinux, false),
		Executable:        "zypper",
		InstallHint:       "https://en.opensuse.org/SDB:Zypper_usage",
		Privilege:         types.PrivilegeRefuseRoot,
		UseSudo:           true,
		CheckCommand:      `rpm -q "$pkg" >/dev/null 2>&1`,
		InstallCommand:    `sudo zypper --non-interactive install --auto-agree-with-licenses "$pkg"`,
		PermanentFailures: []string{"No provider of", "not found in package names"},
		BatchCommand:      "sudo zypper --non-interactive install",
	},
	types.ManagerFlatpak: {
		Descriptor:        descriptor(types.ManagerFlatpak, "Flatpak", types.OSLinux, true),
		Executable:        "flatpak",
		InstallHint:       "https://flatpak.org/setup/",
		Privilege:         types.PrivilegeAny,
		ParallelThreshold: 3,
		CheckCommand:      `flatpak info "$pkg" >/dev/null 2>&1`,
		InstallCommand:    `flatpak install --noninteractive -y flathub "$pkg"`,
		Bootstrap: []BootstrapStep{{
			Description: "Adding the Flathub remote...",
			Command:     "flatpak remote-add --if-not-exists flathub " + flathubRepo,
			Warning:     "Could not add the Flathub remote, continuing",
		}},
		PermanentFailures: []string{"No remote refs found", "Nothing matches"},
		BatchCommand:      "flatpak install flathub -y",
	},
	types.ManagerSnap: {
		Descriptor:        descriptor(types.ManagerSnap, "Snap", types.OSLinux, true),
		Executable:        "snap",
		InstallHint:       "https://snapcraft.io/docs/installing-snapd",
		Privilege:         types.PrivilegeRefuseRoot,
		UseSudo:           true,
		ConfinementMarker: "--classic",
		CheckCommand:      `snap list "$pkg" >/dev/null 2>&1`,
		InstallCommand:    `sudo snap install "$pkg" ${flag:+"$flag"}`,
		PermanentFailures: []string{"not found"},
		BatchCommand:      "sudo snap install",
	},
	types.ManagerNix: {
		Descriptor:        descriptor(types.ManagerNix, "Nix", types.OSLinux, false),
		Executable:        "nix-env",
		InstallHint:       "https://nixos.org/download/",
		Privilege:         types.PrivilegeRefuseRoot,
		CheckCommand:      `nix-env -q --installed "$pkg" >/dev/null 2>&1`,
		InstallCommand:    `nix-env -iA "nixpkgs.$pkg"`,
		PermanentFailures: []string{"does not provide attribute"},
		BatchCommand:      "nix-env -iA",
		PackagePrefix:     "nixpkgs.",
	},
	types.ManagerHomebrew: {
		Descriptor:        descriptor(types.ManagerHomebrew, "Homebrew", types.OSMacOS, true),
		Executable:        "brew",
		InstallHint:       "https://brew.sh",
		Privilege:         types.PrivilegeRefuseRoot,
		CheckCommand:      `brew list "$pkg" >/dev/null 2>&1`,
		InstallCommand:    `brew install "$pkg"`,
		PermanentFailures: []string{"No available formula", "No formulae or casks found"},
		BatchCommand:      "brew install",
	},
	types.ManagerWinget: {
		Descriptor:  descriptor(types.ManagerWinget, "Winget", types.OSWindows, false),
		Executable:  "winget",
		InstallHint: "https://aka.ms/getwinget",
		Privilege:   types.PrivilegeAny,
		CheckCommand: `winget list --id "$Package" --exact --accept-source-agreements | Out-Null
    return ($LASTEXITCODE -eq 0)`,
		InstallCommand:    `winget install --id "$Package" --exact --silent --accept-package-agreements --accept-source-agreements`,
		PermanentFailures: []string{"No package found matching input criteria"},
		BatchCommand:      "winget install --exact --silent --accept-package-agreements --accept-source-agreements --id",
		BatchPerPackage:   true,
		BatchSeparator:    "; ",
	},
	types.ManagerChocolatey: {
		Descriptor:  descriptor(types.ManagerChocolatey, "Chocolatey", types.OSWindows, true),
		Executable:  "choco",
		InstallHint: "https://chocolatey.org/install",
		Privilege:   types.PrivilegeRequireRoot,
		CheckCommand: `$installed = choco list --exact --limit-output "$Package"
    return [bool]$installed`,
		InstallCommand:    `choco install "$Package" -y --no-progress`,
		PermanentFailures: []string{"not found with the source(s) listed"},
		BatchCommand:      "choco install -y",
	},
	types.ManagerScoop: {
		Descriptor:     descriptor(types.ManagerScoop, "Scoop", types.OSWindows, true),
		Executable:     "scoop",
		InstallHint:    "https://scoop.sh",
		Privilege:      types.PrivilegeRefuseRoot,
		CheckCommand:   `return [bool](scoop list 6>$null | Where-Object { $_.Name -eq $Package })`,
		InstallCommand: `scoop install "$Package"`,
		Bootstrap: []BootstrapStep{{
			Description: "Adding the extras bucket...",
			Command:     "scoop bucket add extras",
			Warning:     "Could not add the extras bucket, continuing",
		}},
		PermanentFailures: []string{"Couldn't find manifest"},
		BatchCommand:      "scoop install",
	},
}

func descriptor(id types.ManagerID, label string, os types.OSFamily, verifiable bool) types.ManagerDescriptor {
	dialect := types.DialectPOSIX
	if os == types.OSWindows {
		dialect = types.DialectPowerShell
	}
	return types.ManagerDescriptor{
		ID:         id,
		Label:      label,
		OS:         os,
		Dialect:    dialect,
		Verifiable: verifiable,
	}
}

// LookupProfile returns the capability profile of a manager.
func LookupProfile(manager types.ManagerID) (ManagerProfile, error) {
	profile, ok := managerProfiles[manager]
	if !ok {
		return ManagerProfile{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unknown package manager: " + string(manager))
	}
	return profile, nil
}

func LookupDescriptor(manager types.ManagerID) (types.ManagerDescriptor, error) {
	profile, err := LookupProfile(manager)
	if err != nil {
		return types.ManagerDescriptor{}, err
	}
	return profile.Descriptor, nil
}

// Descriptors returns every manager descriptor in display order.
func Descriptors() []types.ManagerDescriptor {
	out := make([]types.ManagerDescriptor, 0, len(types.AllManagers))
	for _, id := range types.AllManagers {
		out = append(out, managerProfiles[id].Descriptor)
	}
	return out
}

func IsKnownManager(manager types.ManagerID) bool {
	_, ok := managerProfiles[manager]
	return ok
}
