package adapters

import (
	"context"
	"net/url"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"app-installer/internal/ports"
	"app-installer/internal/types"
)

// RegistryEndpoints holds the base URL of every public registry queried
// during verification.
type RegistryEndpoints struct {
	Homebrew   string
	Chocolatey string
	Flathub    string
	Snapcraft  string
	ArchLinux  string
	AUR        string
	Scoop      string
}

func DefaultRegistryEndpoints() RegistryEndpoints {
	return RegistryEndpoints{
		Homebrew:   "https://formulae.brew.sh",
		Chocolatey: "https://community.chocolatey.org/api/v2",
		Flathub:    "https://flathub.org",
		Snapcraft:  "https://api.snapcraft.io",
		ArchLinux:  "https://archlinux.org",
		AUR:        "https://aur.archlinux.org",
		Scoop:      "https://raw.githubusercontent.com/ScoopInstaller",
	}
}

// MirrorRegistryEndpoints points every registry at a path below one base
// URL, as served by a registry mirror.
func MirrorRegistryEndpoints(base string) RegistryEndpoints {
	base = strings.TrimRight(base, "/")
	return RegistryEndpoints{
		Homebrew:   base + "/homebrew",
		Chocolatey: base + "/chocolatey",
		Flathub:    base + "/flathub",
		Snapcraft:  base + "/snapcraft",
		ArchLinux:  base + "/archlinux",
		AUR:        base + "/aur",
		Scoop:      base + "/scoop",
	}
}

type RegistryConfig struct {
	Endpoints    RegistryEndpoints
	TimeoutSec   int
	Retries      int
	RetryDelayMs int
}

type RegistryCheckersAdapter struct {
	checkers map[types.ManagerID]ports.RegistryCheckerPort
}

func NewRegistryCheckersAdapter(cfg RegistryConfig) RegistryCheckersAdapter {
	client := newRegistryClient(normalizeRegistryConfig(cfg.TimeoutSec, cfg.Retries, cfg.RetryDelayMs))
	endpoints := cfg.Endpoints
	return RegistryCheckersAdapter{checkers: map[types.ManagerID]ports.RegistryCheckerPort{
		types.ManagerHomebrew:   HomebrewChecker{client: client, base: endpoints.Homebrew},
		types.ManagerChocolatey: ChocolateyChecker{client: client, base: endpoints.Chocolatey},
		types.ManagerFlatpak:    FlathubChecker{client: client, base: endpoints.Flathub},
		types.ManagerSnap:       SnapChecker{client: client, base: endpoints.Snapcraft},
		types.ManagerPacman:     PacmanChecker{client: client, archBase: endpoints.ArchLinux, aurBase: endpoints.AUR},
		types.ManagerScoop:      ScoopChecker{client: client, base: endpoints.Scoop},
	}}
}

func (a RegistryCheckersAdapter) CheckerFor(manager types.ManagerID) (ports.RegistryCheckerPort, bool) {
	checker, ok := a.checkers[manager]
	return checker, ok
}

type HomebrewChecker struct {
	client registryClient
	base   string
}

type homebrewFormula struct {
	Name     string `json:"name"`
	Versions struct {
		Stable string `json:"stable"`
	} `json:"versions"`
}

type homebrewCask struct {
	Token   string `json:"token"`
	Version string `json:"version"`
}

// Check looks the name up as a formula first and as a cask second.
func (c HomebrewChecker) Check(ctx context.Context, packageName string) (types.RegistryCheck, error) {
	if err := requirePackageName(packageName); err != nil {
		return types.RegistryCheck{}, err
	}
	escaped := url.PathEscape(packageName)
	formula := homebrewFormula{}
	found, err := c.client.getJSON(ctx, c.base+"/api/formula/"+escaped+".json", nil, &formula)
	if err != nil {
		return types.RegistryCheck{}, err
	}
	if found {
		return types.RegistryCheck{Exists: true, LatestVersion: formula.Versions.Stable}, nil
	}
	cask := homebrewCask{}
	found, err = c.client.getJSON(ctx, c.base+"/api/cask/"+escaped+".json", nil, &cask)
	if err != nil || !found {
		return types.RegistryCheck{}, err
	}
	return types.RegistryCheck{Exists: true, LatestVersion: cask.Version}, nil
}

type FlathubChecker struct {
	client registryClient
	base   string
}

type flathubAppstream struct {
	ID       string `json:"id"`
	Releases []struct {
		Version string `json:"version"`
	} `json:"releases"`
}

func (c FlathubChecker) Check(ctx context.Context, packageName string) (types.RegistryCheck, error) {
	if err := requirePackageName(packageName); err != nil {
		return types.RegistryCheck{}, err
	}
	var appstream *flathubAppstream
	found, err := c.client.getJSON(ctx, c.base+"/api/v2/appstream/"+url.PathEscape(packageName), nil, &appstream)
	if err != nil || !found || appstream == nil {
		return types.RegistryCheck{}, err
	}
	check := types.RegistryCheck{Exists: true}
	if len(appstream.Releases) > 0 {
		check.LatestVersion = appstream.Releases[0].Version
	}
	return check, nil
}

type SnapChecker struct {
	client registryClient
	base   string
}

type snapInfo struct {
	Name       string `json:"name"`
	ChannelMap []struct {
		Channel struct {
			Name  string `json:"name"`
			Track string `json:"track"`
		} `json:"channel"`
		Version string `json:"version"`
	} `json:"channel-map"`
}

func (c SnapChecker) Check(ctx context.Context, packageName string) (types.RegistryCheck, error) {
	if err := requirePackageName(packageName); err != nil {
		return types.RegistryCheck{}, err
	}
	info := snapInfo{}
	headers := map[string]string{"Snap-Device-Series": "16"}
	found, err := c.client.getJSON(ctx, c.base+"/v2/snaps/info/"+url.PathEscape(packageName), headers, &info)
	if err != nil || !found {
		return types.RegistryCheck{}, err
	}
	check := types.RegistryCheck{Exists: true}
	for _, entry := range info.ChannelMap {
		if entry.Channel.Name == "stable" && (entry.Channel.Track == "" || entry.Channel.Track == "latest") {
			check.LatestVersion = entry.Version
			break
		}
	}
	if check.LatestVersion == "" && len(info.ChannelMap) > 0 {
		check.LatestVersion = info.ChannelMap[0].Version
	}
	return check, nil
}

type ScoopChecker struct {
	client registryClient
	base   string
}

var scoopBuckets = []string{"Main", "Extras"}

type scoopManifest struct {
	Version string `json:"version"`
}

// Check searches the Main bucket and then Extras, the bucket every
// generated Scoop script adds.
func (c ScoopChecker) Check(ctx context.Context, packageName string) (types.RegistryCheck, error) {
	if err := requirePackageName(packageName); err != nil {
		return types.RegistryCheck{}, err
	}
	for _, bucket := range scoopBuckets {
		manifest := scoopManifest{}
		endpoint := c.base + "/" + bucket + "/master/bucket/" + url.PathEscape(packageName) + ".json"
		found, err := c.client.getJSON(ctx, endpoint, nil, &manifest)
		if err != nil {
			return types.RegistryCheck{}, err
		}
		if found {
			return types.RegistryCheck{Exists: true, LatestVersion: manifest.Version}, nil
		}
	}
	return types.RegistryCheck{}, nil
}

func requirePackageName(packageName string) error {
	if strings.TrimSpace(packageName) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package name is required")
	}
	return nil
}

var _ ports.RegistryCheckersPort = RegistryCheckersAdapter{}
var _ ports.RegistryCheckerPort = HomebrewChecker{}
var _ ports.RegistryCheckerPort = FlathubChecker{}
var _ ports.RegistryCheckerPort = SnapChecker{}
var _ ports.RegistryCheckerPort = ScoopChecker{}
