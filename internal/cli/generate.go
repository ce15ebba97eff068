package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"app-installer/internal/app"
	"app-installer/internal/shared"
	"app-installer/internal/types"
)

type generateOptions struct {
	Manager     string
	Apps        []string
	Output      string
	SignKey     string
	Interactive bool
}

// selectApps is swapped in tests; the real prompt needs a terminal.
var selectApps = func(title string, options []huh.Option[string], selected *[]string) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title(title).
				Filterable(true).
				Options(options...).
				Value(selected),
		),
	).WithOutput(os.Stderr).Run()
}

func newGenerateCommand() *cobra.Command {
	opts := generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an installation script for a package manager",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Manager, "manager", "", "Package manager id")
	cmd.Flags().StringSliceVar(&opts.Apps, "apps", nil, "Application ids")
	cmd.Flags().StringVar(&opts.Output, "output", "", "Write the script to this path instead of stdout")
	cmd.Flags().StringVar(&opts.SignKey, "sign-key", "", "Armored private key used to sign the script")
	cmd.Flags().BoolVar(&opts.Interactive, "interactive", false, "Pick applications interactively")
	_ = viper.BindPFlag("manager", cmd.Flags().Lookup("manager"))
	_ = viper.BindPFlag("apps", cmd.Flags().Lookup("apps"))
	_ = viper.BindPFlag("sign_key", cmd.Flags().Lookup("sign-key"))
	_ = viper.BindPFlag("interactive", cmd.Flags().Lookup("interactive"))
	return cmd
}

func runGenerate(ctx context.Context, cmd *cobra.Command, opts generateOptions) error {
	service := newAppService()
	manager := types.ManagerID(resolveString(cmd, opts.Manager, "manager", "manager"))
	if manager == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("--manager is required")
	}
	appIDs := shared.SplitList(resolveStrings(cmd, opts.Apps, "apps", "apps"))
	if resolveBool(cmd, opts.Interactive, "interactive", "interactive") {
		picked, err := pickApps(ctx, service, manager, appIDs)
		if err != nil {
			return err
		}
		appIDs = picked
	}

	result, err := service.GenerateScript(ctx, app.GenerateScriptRequest{
		Manager:    manager,
		AppIDs:     appIDs,
		OutputPath: opts.Output,
		SignKey:    resolveString(cmd, opts.SignKey, "sign_key", "sign-key"),
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, id := range result.Unavailable {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("skipped %s: not available on %s", id, result.Manager.Label))
	}
	if result.OutputPath == "" {
		_, _ = fmt.Fprint(out, result.Script)
		return nil
	}
	_, _ = fmt.Fprintf(out, "script: %s (%d apps, %s)\n", result.OutputPath, len(result.Items), result.Manager.Label)
	if result.SignaturePath != "" {
		_, _ = fmt.Fprintf(out, "signature: %s\n", result.SignaturePath)
	}
	return nil
}

func pickApps(ctx context.Context, service app.Service, manager types.ManagerID, preselected []string) ([]string, error) {
	listing, err := service.ListApplications(ctx, app.ListApplicationsRequest{Manager: manager})
	if err != nil {
		return nil, err
	}
	chosen := map[string]bool{}
	for _, id := range preselected {
		chosen[id] = true
	}
	options := make([]huh.Option[string], 0, len(listing.Applications))
	for _, entry := range listing.Applications {
		label := entry.Application.Name
		if entry.Application.Category != "" {
			label = fmt.Sprintf("%s (%s)", label, entry.Application.Category)
		}
		options = append(options, huh.NewOption(label, entry.Application.ID).Selected(chosen[entry.Application.ID]))
	}
	selected := append([]string(nil), preselected...)
	if err := selectApps(fmt.Sprintf("Applications to install with %s", manager), options, &selected); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("selection cancelled")
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("interactive selection failed").
			WithCause(err)
	}
	return selected, nil
}

func newCommandCommand() *cobra.Command {
	opts := generateOptions{}
	cmd := &cobra.Command{
		Use:   "command",
		Short: "Print a one-line install command",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := newAppService()
			result, err := service.GenerateCommand(cmd.Context(), app.GenerateCommandRequest{
				Manager: types.ManagerID(strings.TrimSpace(opts.Manager)),
				AppIDs:  shared.SplitList(opts.Apps),
			})
			if err != nil {
				return err
			}
			for _, id := range result.Unavailable {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("skipped %s: not available on %s", id, result.Manager.Label))
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Command)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Manager, "manager", "", "Package manager id")
	cmd.Flags().StringSliceVar(&opts.Apps, "apps", nil, "Application ids")
	return cmd
}
