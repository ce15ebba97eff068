package adapters

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"app-installer/internal/ports"
	"app-installer/internal/shared"
	"app-installer/internal/types"
)

// ChocolateyChecker queries the community repository's OData feed.
type ChocolateyChecker struct {
	client registryClient
	base   string
}

type chocolateyFeed struct {
	Entries []chocolateyEntry `xml:"entry"`
}

type chocolateyEntry struct {
	Properties struct {
		ID              string `xml:"Id"`
		Version         string `xml:"Version"`
		IsLatestVersion string `xml:"IsLatestVersion"`
	} `xml:"properties"`
}

func (c ChocolateyChecker) Check(ctx context.Context, packageName string) (types.RegistryCheck, error) {
	if err := requirePackageName(packageName); err != nil {
		return types.RegistryCheck{}, err
	}
	endpoint := c.base + "/FindPackagesById()?id=" + url.QueryEscape("'"+packageName+"'")
	resp, err := c.client.get(ctx, endpoint, map[string]string{"Accept": "application/atom+xml"})
	if err != nil {
		return types.RegistryCheck{}, err
	}
	switch resp.status {
	case http.StatusOK:
	case http.StatusNotFound:
		return types.RegistryCheck{}, nil
	default:
		return types.RegistryCheck{}, shared.HTTPStatusErrorWithBody(resp.status, endpoint, truncate(string(resp.body), 200))
	}

	feed := chocolateyFeed{}
	if err := xml.Unmarshal(resp.body, &feed); err != nil {
		return types.RegistryCheck{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("malformed registry response from " + endpoint).
			WithCause(err)
	}
	if len(feed.Entries) == 0 {
		return types.RegistryCheck{}, nil
	}
	check := types.RegistryCheck{Exists: true, LatestVersion: feed.Entries[len(feed.Entries)-1].Properties.Version}
	for _, entry := range feed.Entries {
		if strings.EqualFold(strings.TrimSpace(entry.Properties.IsLatestVersion), "true") {
			check.LatestVersion = entry.Properties.Version
			break
		}
	}
	return check, nil
}

var _ ports.RegistryCheckerPort = ChocolateyChecker{}
