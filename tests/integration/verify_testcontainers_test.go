//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"app-installer/internal/adapters"
	"app-installer/internal/app"
	"app-installer/internal/core"
	"app-installer/internal/httpapi"
	"app-installer/internal/types"
	"app-installer/tests/testutil"
)

func TestVerificationAgainstMockRegistries(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers integration in short mode")
	}

	ctx := t.Context()
	endpoint, cleanup := startRegistryMock(ctx, t)
	t.Cleanup(cleanup)

	storePath := filepath.Join(t.TempDir(), "results.jsonl")
	store := adapters.NewResultStoreFileAdapter(storePath)
	t.Cleanup(func() { _ = store.Close() })

	service := app.NewService()
	service.CatalogPath = testutil.FixturePath(t, "catalog-verify.yaml")
	service.Store = store
	service.Checkers = adapters.NewRegistryCheckersAdapter(adapters.RegistryConfig{
		Endpoints:    adapters.MirrorRegistryEndpoints(endpoint),
		TimeoutSec:   5,
		Retries:      2,
		RetryDelayMs: 100,
	})
	service.VerifySecret = "integration-secret"
	service.VerifyTimeout = 15 * time.Second

	summary, err := service.TriggerVerification(ctx, app.TriggerVerificationRequest{Token: "integration-secret"})
	require.NoError(t, err)
	want := types.VerificationSummary{Total: 11, Verified: 7, Failed: 2, Errors: 1, Unverifiable: 2}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Fatalf("unexpected summary (-want +got):\n%s", diff)
	}

	status, err := service.Status(ctx, app.StatusRequest{AppID: "ghost", Manager: types.ManagerChocolatey})
	require.NoError(t, err)
	require.Equal(t, types.StatusFailed, status.Results[0].Status)
	require.False(t, status.Results[0].ManualReviewFlag)

	status, err = service.Status(ctx, app.StatusRequest{AppID: "firefox", Manager: types.ManagerPacman})
	require.NoError(t, err)
	require.Equal(t, types.StatusVerified, status.Results[0].Status)
	require.Equal(t, "1:131.0-2", status.Results[0].LatestVersion)

	flagged, err := service.ListFlagged(ctx, types.FlaggedQuery{})
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	require.Equal(t, "ghost", flagged[0].AppID)
	require.Equal(t, types.ManagerSnap, flagged[0].PackageManagerID)

	// A second process sees the same history through the file store.
	reopened := adapters.NewResultStoreFileAdapter(storePath)
	t.Cleanup(func() { _ = reopened.Close() })
	resolved, err := reopened.ClearFlag(ctx, types.ResultKey{AppID: "ghost", Manager: types.ManagerSnap})
	require.NoError(t, err)
	require.Equal(t, flagged[0].ID, resolved.ID)

	flagged, err = service.ListFlagged(ctx, types.FlaggedQuery{})
	require.NoError(t, err)
	require.Empty(t, flagged)
}

func TestHTTPTriggerAgainstMockRegistries(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers integration in short mode")
	}

	ctx := t.Context()
	endpoint, cleanup := startRegistryMock(ctx, t)
	t.Cleanup(cleanup)

	service := app.NewService()
	service.CatalogPath = testutil.FixturePath(t, "catalog-verify.yaml")
	service.Checkers = adapters.NewRegistryCheckersAdapter(adapters.RegistryConfig{
		Endpoints:    adapters.MirrorRegistryEndpoints(endpoint),
		Retries:      1,
		RetryDelayMs: 50,
	})
	service.VerifySecret = "integration-secret"
	service.Clock = core.NewTimestampSource(time.Now)
	metrics := adapters.NewMetricsPrometheusAdapter()
	service.Metrics = metrics
	server := httptest.NewServer(httpapi.NewHandler(service, metrics.Handler()))
	t.Cleanup(server.Close)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/api/verify/trigger", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer integration-secret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	metricsResp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	body, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `app_installer_verification_inconclusive_total{manager="snap"} 1`)
}

func startRegistryMock(ctx context.Context, t *testing.T) (string, func()) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "python:3.12-alpine",
		ExposedPorts: []string{"8080/tcp"},
		Cmd:          []string{"python", "-c", registryMockScript},
		WaitingFor:   wait.ForListeningPort("8080/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8080/tcp")
	require.NoError(t, err)

	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())
	cleanup := func() {
		_ = container.Terminate(context.WithoutCancel(ctx))
	}
	return endpoint, cleanup
}

const registryMockScript = `
import json
from http.server import BaseHTTPRequestHandler, HTTPServer
from urllib.parse import urlparse, parse_qs

FEED = """<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:m="http://schemas.microsoft.com/ado/2007/08/dataservices/metadata" xmlns:d="http://schemas.microsoft.com/ado/2007/08/dataservices">%s</feed>"""
ENTRY = "<entry><m:properties><d:Id>%s</d:Id><d:Version>%s</d:Version><d:IsLatestVersion m:type=\"Edm.Boolean\">%s</d:IsLatestVersion></m:properties></entry>"

JSON_ROUTES = {
    "/homebrew/api/formula/git.json": {"name": "git", "versions": {"stable": "2.47.1"}},
    "/homebrew/api/cask/visual-studio-code.json": {"token": "visual-studio-code", "version": "1.95.3"},
    "/flathub/api/v2/appstream/org.mozilla.firefox": {"id": "org.mozilla.firefox", "releases": [{"version": "131.0"}]},
    "/snapcraft/v2/snaps/info/code": {"name": "code", "channel-map": [{"channel": {"name": "stable", "track": "latest"}, "version": "1.95.3"}]},
    "/scoop/Extras/master/bucket/firefox.json": {"version": "131.0"},
}

class Handler(BaseHTTPRequestHandler):
    def send(self, status, body, content_type="application/json"):
        data = body.encode()
        self.send_response(status)
        self.send_header("Content-Type", content_type)
        self.send_header("Content-Length", str(len(data)))
        self.end_headers()
        self.wfile.write(data)

    def do_GET(self):
        url = urlparse(self.path)
        query = parse_qs(url.query)
        if url.path in JSON_ROUTES:
            return self.send(200, json.dumps(JSON_ROUTES[url.path]))
        if url.path == "/snapcraft/v2/snaps/info/broken":
            return self.send(500, json.dumps({"error": "upstream unavailable"}))
        if url.path == "/chocolatey/FindPackagesById()":
            package = query.get("id", [""])[0].strip("'")
            entries = ""
            if package == "git":
                entries = ENTRY % ("git", "2.46.0", "false") + ENTRY % ("git", "2.47.1", "true")
            return self.send(200, FEED % entries, "application/atom+xml")
        if url.path == "/archlinux/packages/search/json/":
            name = query.get("name", [""])[0]
            results = []
            if name == "firefox":
                results = [
                    {"pkgname": "firefox", "pkgver": "131.0", "pkgrel": "1", "epoch": 1, "repo": "extra"},
                    {"pkgname": "firefox", "pkgver": "131.0", "pkgrel": "2", "epoch": 1, "repo": "extra-testing"},
                    {"pkgname": "firefox-developer-edition", "pkgver": "132.0b1", "pkgrel": "1", "epoch": 0, "repo": "extra"},
                ]
            return self.send(200, json.dumps({"version": 2, "results": results}))
        if url.path == "/aur/rpc/v5/info":
            return self.send(200, json.dumps({"version": 5, "type": "multiinfo", "resultcount": 0, "results": []}))
        return self.send(404, json.dumps({"error": "not found"}))

    def log_message(self, format, *args):
        pass

HTTPServer(("0.0.0.0", 8080), Handler).serve_forever()
`
