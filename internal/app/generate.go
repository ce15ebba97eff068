package app

import (
	"context"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"app-installer/internal/core"
	"app-installer/internal/types"
)

const signatureSuffix = ".asc"

func (s Service) GenerateScript(ctx context.Context, req GenerateScriptRequest) (GenerateScriptResult, error) {
	catalog, err := s.loadCatalog(req.CatalogPath)
	if err != nil {
		return GenerateScriptResult{}, err
	}
	selection, err := core.ResolveSelection(catalog, req.AppIDs, req.Manager)
	if err != nil {
		return GenerateScriptResult{}, err
	}
	generator, err := core.NewScriptGenerator(req.Manager)
	if err != nil {
		return GenerateScriptResult{}, err
	}
	script := generator.Generate(selection.Items, s.now())
	result := GenerateScriptResult{
		Manager:     generator.Descriptor(),
		Script:      script,
		Items:       selection.Items,
		Unavailable: selection.Unavailable,
	}
	if len(selection.Unavailable) > 0 {
		log.Ctx(ctx).Warn().
			Str("manager", string(req.Manager)).
			Strs("apps", selection.Unavailable).
			Msg("applications not offered on this manager were skipped")
	}

	outputPath := strings.TrimSpace(req.OutputPath)
	signKey := strings.TrimSpace(req.SignKey)
	if outputPath == "" {
		if signKey != "" {
			return GenerateScriptResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("an output path is required to sign the script")
		}
		return result, nil
	}
	if err := s.ScriptWriter.WriteScript(outputPath, script); err != nil {
		return GenerateScriptResult{}, err
	}
	result.OutputPath = outputPath
	log.Ctx(ctx).Info().Str("path", outputPath).Int("apps", len(selection.Items)).Msg("script written")

	if signKey == "" {
		return result, nil
	}
	signature, err := s.Signer.SignDetached(signKey, []byte(script))
	if err != nil {
		return GenerateScriptResult{}, err
	}
	signaturePath := outputPath + signatureSuffix
	if err := s.ScriptWriter.WriteSignature(signaturePath, signature); err != nil {
		return GenerateScriptResult{}, err
	}
	result.SignaturePath = signaturePath
	log.Ctx(ctx).Info().Str("path", signaturePath).Msg("script signed")
	return result, nil
}

func (s Service) GenerateCommand(ctx context.Context, req GenerateCommandRequest) (GenerateCommandResult, error) {
	catalog, err := s.loadCatalog(req.CatalogPath)
	if err != nil {
		return GenerateCommandResult{}, err
	}
	selection, err := core.ResolveSelection(catalog, req.AppIDs, req.Manager)
	if err != nil {
		return GenerateCommandResult{}, err
	}
	descriptor, err := core.LookupDescriptor(req.Manager)
	if err != nil {
		return GenerateCommandResult{}, err
	}
	command, err := core.BuildInstallCommand(req.Manager, core.PackageNames(selection.Items))
	if err != nil {
		return GenerateCommandResult{}, err
	}
	log.Ctx(ctx).Debug().Str("manager", string(req.Manager)).Int("apps", len(selection.Items)).Msg("install command built")
	return GenerateCommandResult{
		Manager:     descriptor,
		Command:     command,
		Unavailable: selection.Unavailable,
	}, nil
}

// ListApplications lists the catalog with the managers each entry is offered
// on. A manager filter keeps only applications available there.
func (s Service) ListApplications(ctx context.Context, req ListApplicationsRequest) (ListApplicationsResult, error) {
	if req.Manager != "" && !core.IsKnownManager(req.Manager) {
		return ListApplicationsResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unknown package manager: " + string(req.Manager))
	}
	catalog, err := s.loadCatalog(req.CatalogPath)
	if err != nil {
		return ListApplicationsResult{}, err
	}
	result := ListApplicationsResult{Applications: []ApplicationListing{}}
	for _, application := range catalog.Applications {
		if req.Manager != "" && !application.Available(req.Manager) {
			continue
		}
		listing := ApplicationListing{Application: application, Managers: []types.ManagerID{}}
		for _, manager := range types.AllManagers {
			if application.Available(manager) {
				listing.Managers = append(listing.Managers, manager)
			}
		}
		result.Applications = append(result.Applications, listing)
	}
	log.Ctx(ctx).Debug().Int("apps", len(result.Applications)).Msg("catalog listed")
	return result, nil
}

func (s Service) loadCatalog(path string) (types.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		path = s.CatalogPath
	}
	return s.Catalog.LoadCatalog(strings.TrimSpace(path))
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock()
}
