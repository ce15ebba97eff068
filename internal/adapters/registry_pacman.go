package adapters

import (
	"context"
	"net/url"
	"strconv"

	"github.com/ZanzyTHEbar/errbuilder-go"
	debversion "github.com/knqyf263/go-deb-version"

	"app-installer/internal/ports"
	"app-installer/internal/types"
)

// PacmanChecker looks a package up in the official Arch repositories and
// falls back to the AUR.
type PacmanChecker struct {
	client   registryClient
	archBase string
	aurBase  string
}

type archSearchResponse struct {
	Results []struct {
		Name    string `json:"pkgname"`
		Version string `json:"pkgver"`
		Release string `json:"pkgrel"`
		Epoch   int    `json:"epoch"`
		Repo    string `json:"repo"`
	} `json:"results"`
}

type aurInfoResponse struct {
	Type        string `json:"type"`
	Error       string `json:"error"`
	ResultCount int    `json:"resultcount"`
	Results     []struct {
		Name    string `json:"Name"`
		Version string `json:"Version"`
	} `json:"results"`
}

func (c PacmanChecker) Check(ctx context.Context, packageName string) (types.RegistryCheck, error) {
	if err := requirePackageName(packageName); err != nil {
		return types.RegistryCheck{}, err
	}
	search := archSearchResponse{}
	found, err := c.client.getJSON(ctx, c.archBase+"/packages/search/json/?name="+url.QueryEscape(packageName), nil, &search)
	if err != nil {
		return types.RegistryCheck{}, err
	}
	if found {
		versions := []string{}
		for _, result := range search.Results {
			if result.Name != packageName {
				continue
			}
			versions = append(versions, archVersion(result.Epoch, result.Version, result.Release))
		}
		if len(versions) > 0 {
			return types.RegistryCheck{Exists: true, LatestVersion: highestVersion(versions)}, nil
		}
	}

	info := aurInfoResponse{}
	found, err = c.client.getJSON(ctx, c.aurBase+"/rpc/v5/info?arg[]="+url.QueryEscape(packageName), nil, &info)
	if err != nil || !found {
		return types.RegistryCheck{}, err
	}
	if info.Type == "error" {
		return types.RegistryCheck{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("aur rpc error: " + info.Error)
	}
	for _, result := range info.Results {
		if result.Name == packageName {
			return types.RegistryCheck{Exists: true, LatestVersion: result.Version}, nil
		}
	}
	return types.RegistryCheck{}, nil
}

func archVersion(epoch int, version string, release string) string {
	value := version
	if release != "" {
		value += "-" + release
	}
	if epoch > 0 {
		value = strconv.Itoa(epoch) + ":" + value
	}
	return value
}

// highestVersion orders epoch:version-release strings the way dpkg does,
// which agrees with vercmp for the version shapes Arch uses.
func highestVersion(versions []string) string {
	best := ""
	var bestParsed *debversion.Version
	for _, raw := range versions {
		parsed, err := debversion.NewVersion(raw)
		if err != nil {
			if best == "" {
				best = raw
			}
			continue
		}
		if bestParsed == nil || parsed.GreaterThan(*bestParsed) {
			best = raw
			bestParsed = &parsed
		}
	}
	return best
}

var _ ports.RegistryCheckerPort = PacmanChecker{}
