package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"app-installer/internal/adapters"
	"app-installer/internal/core"
	"app-installer/internal/ports"
	"app-installer/internal/types"
)

type staticCatalog struct {
	catalog types.Catalog
	err     error
}

func (s staticCatalog) LoadCatalog(string) (types.Catalog, error) {
	return s.catalog, s.err
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

type fakeSigner struct {
	keyPath string
	data    []byte
}

func (f *fakeSigner) SignDetached(keyPath string, data []byte) ([]byte, error) {
	f.keyPath = keyPath
	f.data = data
	return []byte("-----BEGIN PGP SIGNATURE-----\n"), nil
}

func testCatalog() types.Catalog {
	return types.Catalog{Applications: []types.Application{
		{ID: "firefox", Name: "Firefox", Targets: map[types.ManagerID]string{
			types.ManagerHomebrew: "firefox", types.ManagerApt: "firefox", types.ManagerFlatpak: "org.mozilla.firefox",
		}},
		{ID: "vscode", Name: "Visual Studio Code", Targets: map[types.ManagerID]string{
			types.ManagerHomebrew: "visual-studio-code", types.ManagerSnap: "code --classic",
		}},
		{ID: "git", Name: "Git", Targets: map[types.ManagerID]string{
			types.ManagerChocolatey: "git", types.ManagerApt: "git", types.ManagerWinget: "",
		}},
	}}
}

func newTestService(t *testing.T, checkers checkerMap) Service {
	t.Helper()
	store := adapters.NewResultStoreMemoryAdapter()
	t.Cleanup(func() { _ = store.Close() })
	fixed := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	return Service{
		Catalog:       staticCatalog{catalog: testCatalog()},
		Checkers:      checkers,
		Store:         store,
		ScriptWriter:  adapters.NewScriptFileAdapter(),
		Signer:        &fakeSigner{},
		VerifySecret:  "s3cret",
		VerifyWorkers: 2,
		VerifyTimeout: 50 * time.Millisecond,
		Clock:         core.NewTimestampSource(func() time.Time { return fixed }),
	}
}

func TestGenerateScriptHomebrew(t *testing.T) {
	service := newTestService(t, nil)
	result, err := service.GenerateScript(t.Context(), GenerateScriptRequest{
		Manager: types.ManagerHomebrew,
		AppIDs:  []string{"firefox", "vscode"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(result.Script, "\ninstall_package "))
	require.Contains(t, result.Script, "command -v brew")
	require.Contains(t, result.Script, "print_summary")
	require.Equal(t, "Homebrew", result.Manager.Label)
	require.Empty(t, result.OutputPath)
}

func TestGenerateScriptWritesAndSigns(t *testing.T) {
	service := newTestService(t, nil)
	signer := &fakeSigner{}
	service.Signer = signer
	path := filepath.Join(t.TempDir(), "install.sh")

	result, err := service.GenerateScript(t.Context(), GenerateScriptRequest{
		Manager:    types.ManagerApt,
		AppIDs:     []string{"git", "vscode"},
		OutputPath: path,
		SignKey:    "/keys/release.asc",
	})
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"vscode"}, result.Unavailable); diff != "" {
		t.Fatalf("unexpected unavailable apps (-want +got):\n%s", diff)
	}
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, result.Script, string(written))
	require.Equal(t, path+".asc", result.SignaturePath)
	require.Equal(t, "/keys/release.asc", signer.keyPath)
	require.Equal(t, result.Script, string(signer.data))
	_, err = os.Stat(path + ".asc")
	require.NoError(t, err)
}

func TestGenerateScriptSignWithoutOutput(t *testing.T) {
	_, err := newTestService(t, nil).GenerateScript(t.Context(), GenerateScriptRequest{
		Manager: types.ManagerApt,
		AppIDs:  []string{"git"},
		SignKey: "/keys/release.asc",
	})
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestGenerateScriptUnknownApp(t *testing.T) {
	_, err := newTestService(t, nil).GenerateScript(t.Context(), GenerateScriptRequest{
		Manager: types.ManagerApt,
		AppIDs:  []string{"emacs"},
	})
	require.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestGenerateCommandSnapClassic(t *testing.T) {
	service := newTestService(t, nil)
	service.Catalog = staticCatalog{catalog: types.Catalog{Applications: []types.Application{
		{ID: "vlc", Name: "VLC", Targets: map[types.ManagerID]string{types.ManagerSnap: "vlc"}},
		{ID: "vscode", Name: "VS Code", Targets: map[types.ManagerID]string{types.ManagerSnap: "code --classic"}},
	}}}
	result, err := service.GenerateCommand(t.Context(), GenerateCommandRequest{
		Manager: types.ManagerSnap,
		AppIDs:  []string{"vlc", "vscode"},
	})
	require.NoError(t, err)
	if diff := cmp.Diff("sudo snap install vlc && sudo snap install code --classic", result.Command); diff != "" {
		t.Fatalf("unexpected command (-want +got):\n%s", diff)
	}
}

func TestListApplications(t *testing.T) {
	service := newTestService(t, nil)
	all, err := service.ListApplications(t.Context(), ListApplicationsRequest{})
	require.NoError(t, err)
	require.Len(t, all.Applications, 3)
	if diff := cmp.Diff([]types.ManagerID{types.ManagerApt, types.ManagerChocolatey}, all.Applications[2].Managers); diff != "" {
		t.Fatalf("unexpected git managers (-want +got):\n%s", diff)
	}

	snap, err := service.ListApplications(t.Context(), ListApplicationsRequest{Manager: types.ManagerSnap})
	require.NoError(t, err)
	require.Len(t, snap.Applications, 1)
	require.Equal(t, "vscode", snap.Applications[0].Application.ID)

	_, err = service.ListApplications(t.Context(), ListApplicationsRequest{Manager: "yum"})
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestTriggerVerificationAuth(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		token  string
		code   errbuilder.ErrCode
	}{
		{name: "missing secret", secret: "", token: "s3cret", code: errbuilder.CodeFailedPrecondition},
		{name: "missing token", secret: "s3cret", token: "", code: errbuilder.CodePermissionDenied},
		{name: "wrong token", secret: "s3cret", token: "guess", code: errbuilder.CodePermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestService(t, nil)
			service.VerifySecret = tt.secret
			_, err := service.TriggerVerification(t.Context(), TriggerVerificationRequest{Token: tt.token})
			require.Equal(t, tt.code, errbuilder.CodeOf(err))

			status, err := service.Status(t.Context(), StatusRequest{})
			require.NoError(t, err)
			require.Empty(t, status.Results)
		})
	}
}

func TestTriggerVerificationRunsCatalog(t *testing.T) {
	service := newTestService(t, checkerMap{
		types.ManagerHomebrew: func(context.Context, string) (types.RegistryCheck, error) {
			return types.RegistryCheck{Exists: true}, nil
		},
		types.ManagerFlatpak: func(context.Context, string) (types.RegistryCheck, error) {
			return types.RegistryCheck{}, nil
		},
		types.ManagerSnap: func(context.Context, string) (types.RegistryCheck, error) {
			return types.RegistryCheck{}, errors.New("status=503")
		},
		types.ManagerChocolatey: func(context.Context, string) (types.RegistryCheck, error) {
			return types.RegistryCheck{Exists: true}, nil
		},
	})
	summary, err := service.TriggerVerification(t.Context(), TriggerVerificationRequest{Token: "s3cret"})
	require.NoError(t, err)
	want := types.VerificationSummary{Total: 7, Verified: 3, Failed: 2, Errors: 1, Unverifiable: 2}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Fatalf("unexpected summary (-want +got):\n%s", diff)
	}

	status, err := service.Status(t.Context(), StatusRequest{})
	require.NoError(t, err)
	require.Len(t, status.Results, 7)

	flagged, err := service.ListFlagged(t.Context(), types.FlaggedQuery{})
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	require.Equal(t, "vscode", flagged[0].AppID)
	require.Equal(t, "code --classic", flagged[0].PackageName)
}

func TestVerifyPackageChocolateyGit(t *testing.T) {
	tests := []struct {
		name    string
		checker checkerFunc
		status  types.VerificationStatus
		flagged bool
	}{
		{
			name: "exists",
			checker: func(context.Context, string) (types.RegistryCheck, error) {
				return types.RegistryCheck{Exists: true}, nil
			},
			status: types.StatusVerified,
		},
		{
			name: "not found",
			checker: func(context.Context, string) (types.RegistryCheck, error) {
				return types.RegistryCheck{}, nil
			},
			status: types.StatusFailed,
		},
		{
			name: "timeout",
			checker: func(ctx context.Context, _ string) (types.RegistryCheck, error) {
				<-ctx.Done()
				return types.RegistryCheck{}, ctx.Err()
			},
			status:  types.StatusFailed,
			flagged: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestService(t, checkerMap{types.ManagerChocolatey: tt.checker})
			result, err := service.VerifyPackage(t.Context(), VerifyPackageRequest{AppID: "git", Manager: types.ManagerChocolatey})
			require.NoError(t, err)
			require.Equal(t, tt.status, result.Status)
			require.Equal(t, tt.flagged, result.ManualReviewFlag)
			require.Equal(t, "git", result.PackageName)
			require.NotEmpty(t, result.ID)
		})
	}
}

func TestVerifyPackageErrors(t *testing.T) {
	service := newTestService(t, checkerMap{})
	tests := []struct {
		name string
		req  VerifyPackageRequest
		code errbuilder.ErrCode
	}{
		{name: "missing fields", req: VerifyPackageRequest{AppID: "git"}, code: errbuilder.CodeInvalidArgument},
		{name: "unknown manager", req: VerifyPackageRequest{AppID: "git", Manager: "yum"}, code: errbuilder.CodeInvalidArgument},
		{name: "unknown app", req: VerifyPackageRequest{AppID: "emacs", Manager: types.ManagerApt}, code: errbuilder.CodeNotFound},
		{name: "no mapping", req: VerifyPackageRequest{AppID: "git", Manager: types.ManagerSnap}, code: errbuilder.CodeNotFound},
		{name: "empty mapping", req: VerifyPackageRequest{AppID: "git", Manager: types.ManagerWinget}, code: errbuilder.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.VerifyPackage(t.Context(), tt.req)
			require.Equal(t, tt.code, errbuilder.CodeOf(err))
		})
	}
}

func TestStatusPendingPlaceholder(t *testing.T) {
	service := newTestService(t, nil)
	status, err := service.Status(t.Context(), StatusRequest{AppID: "git", Manager: types.ManagerChocolatey})
	require.NoError(t, err)
	require.True(t, status.Single)
	want := []types.VerificationResult{{
		AppID:            "git",
		PackageManagerID: types.ManagerChocolatey,
		PackageName:      "git",
		Status:           types.StatusPending,
	}}
	if diff := cmp.Diff(want, status.Results); diff != "" {
		t.Fatalf("unexpected placeholder (-want +got):\n%s", diff)
	}
}

func TestStatusReturnsMostRecent(t *testing.T) {
	calls := 0
	service := newTestService(t, checkerMap{
		types.ManagerChocolatey: func(context.Context, string) (types.RegistryCheck, error) {
			calls++
			return types.RegistryCheck{Exists: calls > 1}, nil
		},
	})
	req := VerifyPackageRequest{AppID: "git", Manager: types.ManagerChocolatey}
	first, err := service.VerifyPackage(t.Context(), req)
	require.NoError(t, err)
	second, err := service.VerifyPackage(t.Context(), req)
	require.NoError(t, err)
	require.True(t, second.Timestamp.After(first.Timestamp))

	status, err := service.Status(t.Context(), StatusRequest{AppID: "git", Manager: types.ManagerChocolatey})
	require.NoError(t, err)
	require.Equal(t, types.StatusVerified, status.Results[0].Status)
	require.Equal(t, second.ID, status.Results[0].ID)
}

func TestResolveFlag(t *testing.T) {
	service := newTestService(t, checkerMap{
		types.ManagerChocolatey: func(context.Context, string) (types.RegistryCheck, error) {
			return types.RegistryCheck{}, errors.New("connection reset")
		},
	})
	req := ResolveFlagRequest{AppID: "git", Manager: types.ManagerChocolatey}
	_, err := service.ResolveFlag(t.Context(), req)
	require.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))

	flaggedResult, err := service.VerifyPackage(t.Context(), VerifyPackageRequest{AppID: "git", Manager: types.ManagerChocolatey})
	require.NoError(t, err)
	require.True(t, flaggedResult.ManualReviewFlag)

	resolved, err := service.ResolveFlag(t.Context(), req)
	require.NoError(t, err)
	require.Equal(t, flaggedResult.ID, resolved.ID)
	require.False(t, resolved.ManualReviewFlag)

	flagged, err := service.ListFlagged(t.Context(), types.FlaggedQuery{})
	require.NoError(t, err)
	require.Empty(t, flagged)

	_, err = service.ResolveFlag(t.Context(), req)
	require.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestListFlaggedRejectsUnknownManager(t *testing.T) {
	_, err := newTestService(t, nil).ListFlagged(t.Context(), types.FlaggedQuery{Manager: "yum"})
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}
