package types

type ManagerID string

const (
	ManagerApt        ManagerID = "apt"
	ManagerDnf        ManagerID = "dnf"
	ManagerPacman     ManagerID = "pacman"
	ManagerZypper     ManagerID = "zypper"
	ManagerFlatpak    ManagerID = "flatpak"
	ManagerSnap       ManagerID = "snap"
	ManagerNix        ManagerID = "nix"
	ManagerHomebrew   ManagerID = "homebrew"
	ManagerWinget     ManagerID = "winget"
	ManagerChocolatey ManagerID = "chocolatey"
	ManagerScoop      ManagerID = "scoop"
)

// AllManagers lists every supported package manager in display order.
var AllManagers = []ManagerID{
	ManagerApt,
	ManagerDnf,
	ManagerPacman,
	ManagerZypper,
	ManagerFlatpak,
	ManagerSnap,
	ManagerNix,
	ManagerHomebrew,
	ManagerWinget,
	ManagerChocolatey,
	ManagerScoop,
}

type OSFamily string

const (
	OSLinux   OSFamily = "linux"
	OSMacOS   OSFamily = "macos"
	OSWindows OSFamily = "windows"
)

type ScriptDialect string

const (
	DialectPOSIX      ScriptDialect = "posix"
	DialectPowerShell ScriptDialect = "powershell"
)

// Privilege is the privilege convention a generated script enforces
// before touching any package.
type Privilege string

const (
	PrivilegeAny         Privilege = "any"
	PrivilegeRefuseRoot  Privilege = "refuse-root"
	PrivilegeRequireRoot Privilege = "require-root"
)

type VerificationStatus string

const (
	StatusVerified     VerificationStatus = "verified"
	StatusFailed       VerificationStatus = "failed"
	StatusPending      VerificationStatus = "pending"
	StatusUnverifiable VerificationStatus = "unverifiable"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)
