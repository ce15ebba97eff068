package app

import (
	"time"

	"app-installer/internal/adapters"
	"app-installer/internal/core"
	"app-installer/internal/ports"
)

type Service struct {
	Catalog       ports.CatalogPort
	CatalogPath   string
	Checkers      ports.RegistryCheckersPort
	Store         ports.ResultStorePort
	Metrics       ports.VerificationMetricsPort
	ScriptWriter  ports.ScriptWriterPort
	Signer        ports.ScriptSignerPort
	VerifySecret  string
	VerifyWorkers int
	VerifyTimeout time.Duration
	// Clock stamps verification results. Copies of a Service share it, so
	// timestamps stay strictly increasing across concurrent requests.
	Clock func() time.Time
}

func NewService() Service {
	return Service{
		Catalog:       adapters.NewCatalogFileAdapter(),
		Checkers:      adapters.NewRegistryCheckersAdapter(adapters.RegistryConfig{Endpoints: adapters.DefaultRegistryEndpoints()}),
		Store:         adapters.NewResultStoreMemoryAdapter(),
		ScriptWriter:  adapters.NewScriptFileAdapter(),
		Signer:        adapters.NewScriptSignerGPGAdapter(""),
		VerifyWorkers: core.DefaultVerifyWorkers,
		VerifyTimeout: core.DefaultVerifyTimeout,
		Clock:         core.NewTimestampSource(time.Now),
	}
}

func (s Service) verifier() core.Verifier {
	verifier := core.NewVerifier(s.Checkers, s.Store, s.Clock)
	verifier.Metrics = s.Metrics
	if s.VerifyWorkers > 0 {
		verifier.Workers = s.VerifyWorkers
	}
	if s.VerifyTimeout > 0 {
		verifier.Timeout = s.VerifyTimeout
	}
	return verifier
}
