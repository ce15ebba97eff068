package cli

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"app-installer/internal/adapters"
	"app-installer/internal/app"
	"app-installer/internal/ports"
)

const (
	storeFile        = "file"
	storeMemory      = "memory"
	defaultStorePath = "~/.local/share/app-installer/results.jsonl"
)

// newAppService wires the service from configuration. The result store is
// opened lazily, so building a service never touches the disk.
func newAppService() app.Service {
	service := app.NewService()
	service.CatalogPath = viper.GetString("catalog")
	service.Store = newResultStore(viper.GetString("store"), viper.GetString("store_path"))
	service.Checkers = adapters.NewRegistryCheckersAdapter(adapters.RegistryConfig{
		Endpoints:    registryEndpoints(viper.GetString("registry_mirror")),
		TimeoutSec:   viper.GetInt("registry_timeout_sec"),
		Retries:      viper.GetInt("registry_retries"),
		RetryDelayMs: viper.GetInt("registry_retry_delay_ms"),
	})
	service.Signer = adapters.NewScriptSignerGPGAdapter(viper.GetString("sign_passphrase"))
	service.VerifySecret = viper.GetString("verify_secret")
	if workers := viper.GetInt("verify_workers"); workers > 0 {
		service.VerifyWorkers = workers
	}
	if timeout := viper.GetInt("verify_timeout_sec"); timeout > 0 {
		service.VerifyTimeout = time.Duration(timeout) * time.Second
	}
	return service
}

func newResultStore(backend string, path string) ports.ResultStorePort {
	if strings.EqualFold(strings.TrimSpace(backend), storeMemory) {
		return adapters.NewResultStoreMemoryAdapter()
	}
	if strings.TrimSpace(path) == "" {
		path = defaultStorePath
	}
	return adapters.NewResultStoreFileAdapter(path)
}

func registryEndpoints(mirror string) adapters.RegistryEndpoints {
	if mirror = strings.TrimSpace(mirror); mirror != "" {
		return adapters.MirrorRegistryEndpoints(mirror)
	}
	return adapters.DefaultRegistryEndpoints()
}
