package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"app-installer/internal/adapters"
	"app-installer/internal/app"
	"app-installer/internal/core"
	"app-installer/internal/ports"
	"app-installer/internal/types"
)

type staticCatalog types.Catalog

func (s staticCatalog) LoadCatalog(string) (types.Catalog, error) {
	return types.Catalog(s), nil
}

type checkerFunc func(ctx context.Context, name string) (types.RegistryCheck, error)

func (f checkerFunc) Check(ctx context.Context, name string) (types.RegistryCheck, error) {
	return f(ctx, name)
}

type checkerMap map[types.ManagerID]checkerFunc

func (m checkerMap) CheckerFor(manager types.ManagerID) (ports.RegistryCheckerPort, bool) {
	checker, ok := m[manager]
	if !ok {
		return nil, false
	}
	return checker, true
}

func newTestServer(t *testing.T, secret string, chocolatey checkerFunc) (*httptest.Server, *adapters.MetricsPrometheusAdapter) {
	t.Helper()
	store := adapters.NewResultStoreMemoryAdapter()
	metrics := adapters.NewMetricsPrometheusAdapter()
	service := app.Service{
		Catalog: staticCatalog{Applications: []types.Application{
			{ID: "git", Name: "Git", Targets: map[types.ManagerID]string{
				types.ManagerChocolatey: "git",
				types.ManagerApt:        "git",
			}},
		}},
		Checkers:      checkerMap{types.ManagerChocolatey: chocolatey},
		Store:         store,
		Metrics:       metrics,
		VerifySecret:  secret,
		VerifyTimeout: 50 * time.Millisecond,
		Clock:         core.NewTimestampSource(time.Now),
	}
	server := httptest.NewServer(NewHandler(service, metrics.Handler()))
	t.Cleanup(func() {
		server.Close()
		_ = store.Close()
	})
	return server, metrics
}

func exists(context.Context, string) (types.RegistryCheck, error) {
	return types.RegistryCheck{Exists: true, LatestVersion: "2.47.1"}, nil
}

func do(t *testing.T, method string, url string, body string, headers map[string]string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, url, strings.NewReader(body))
	require.NoError(t, err)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	return resp.StatusCode, raw
}

func TestTriggerRequiresBearer(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		status int
		body   string
	}{
		{name: "misconfigured", secret: "", header: "Bearer anything", status: http.StatusInternalServerError, body: misconfiguredMessage},
		{name: "missing token", secret: "s3cret", status: http.StatusUnauthorized},
		{name: "wrong token", secret: "s3cret", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "ok", secret: "s3cret", header: "Bearer s3cret", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newTestServer(t, tt.secret, exists)
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			status, body := do(t, http.MethodPost, server.URL+"/api/verify/trigger", "", headers)
			require.Equal(t, tt.status, status, string(body))
			if tt.body != "" {
				require.Contains(t, string(body), tt.body)
			}
			if tt.status == http.StatusOK {
				var summary types.VerificationSummary
				require.NoError(t, json.Unmarshal(body, &summary))
				if diff := cmp.Diff(types.VerificationSummary{Total: 2, Verified: 1, Unverifiable: 1}, summary); diff != "" {
					t.Fatalf("unexpected summary (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestVerifyStatusAndResolve(t *testing.T) {
	server, _ := newTestServer(t, "s3cret", func(context.Context, string) (types.RegistryCheck, error) {
		return types.RegistryCheck{}, errors.New("status=502")
	})
	pair := `{"appId":"git","packageManagerId":"chocolatey"}`

	status, body := do(t, http.MethodGet, server.URL+"/api/status?appId=git&packageManagerId=chocolatey", "", nil)
	require.Equal(t, http.StatusOK, status)
	var pending resultResponse
	require.NoError(t, json.Unmarshal(body, &pending))
	require.Equal(t, types.StatusPending, pending.Status)
	require.Nil(t, pending.Timestamp)
	require.Contains(t, string(body), `"timestamp":null`)

	status, _ = do(t, http.MethodPost, server.URL+"/api/admin/resolve", pair, nil)
	require.Equal(t, http.StatusNotFound, status)

	status, body = do(t, http.MethodPost, server.URL+"/api/verify", pair, nil)
	require.Equal(t, http.StatusOK, status)
	var verified resultResponse
	require.NoError(t, json.Unmarshal(body, &verified))
	require.Equal(t, types.StatusFailed, verified.Status)
	require.True(t, verified.ManualReviewFlag)
	require.NotNil(t, verified.Timestamp)

	status, body = do(t, http.MethodGet, server.URL+"/api/admin/flagged?sortBy=appId&order=asc", "", nil)
	require.Equal(t, http.StatusOK, status)
	var flagged []resultResponse
	require.NoError(t, json.Unmarshal(body, &flagged))
	require.Len(t, flagged, 1)

	status, body = do(t, http.MethodPost, server.URL+"/api/admin/resolve", pair, nil)
	require.Equal(t, http.StatusOK, status)
	var resolved resultResponse
	require.NoError(t, json.Unmarshal(body, &resolved))
	require.Equal(t, verified.ID, resolved.ID)
	require.False(t, resolved.ManualReviewFlag)

	status, body = do(t, http.MethodGet, server.URL+"/api/status", "", nil)
	require.Equal(t, http.StatusOK, status)
	var all []resultResponse
	require.NoError(t, json.Unmarshal(body, &all))
	require.Len(t, all, 1)
	require.False(t, all[0].ManualReviewFlag)
}

func TestVerifyRejectsBadInput(t *testing.T) {
	server, _ := newTestServer(t, "s3cret", exists)
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "malformed", body: `{"appId":`, status: http.StatusBadRequest},
		{name: "missing manager", body: `{"appId":"git"}`, status: http.StatusBadRequest},
		{name: "unknown app", body: `{"appId":"emacs","packageManagerId":"chocolatey"}`, status: http.StatusNotFound},
		{name: "no mapping", body: `{"appId":"git","packageManagerId":"scoop"}`, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, http.MethodPost, server.URL+"/api/verify", tt.body, nil)
			require.Equal(t, tt.status, status, string(body))
		})
	}
}

func TestMetricsAndHealth(t *testing.T) {
	server, _ := newTestServer(t, "s3cret", exists)
	status, _ := do(t, http.MethodPost, server.URL+"/api/verify", `{"appId":"git","packageManagerId":"chocolatey"}`, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, http.MethodGet, server.URL+"/healthz", "", nil)
	require.Equal(t, http.StatusOK, status)

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw := new(strings.Builder)
	_, err = io.Copy(raw, resp.Body)
	require.NoError(t, err)
	require.Contains(t, raw.String(), `app_installer_verification_results_total{manager="chocolatey",status="verified"} 1`)
}

func TestServeShutsDownAndClosesStore(t *testing.T) {
	store := adapters.NewResultStoreMemoryAdapter()
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), store)
	}()
	cancel()
	require.NoError(t, <-done)

	_, err := store.LatestAll(t.Context())
	require.Error(t, err)
}
