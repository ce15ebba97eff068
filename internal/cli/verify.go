package cli

import (
	"context"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"app-installer/internal/app"
	"app-installer/internal/types"
)

type verifyOptions struct {
	App        string
	Manager    string
	Workers    int
	TimeoutSec int
	Mirror     string
}

func newVerifyCommand() *cobra.Command {
	opts := verifyOptions{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify catalog package identifiers against their registries",
		Long:  "Without --app and --manager every mapped pair of the catalog is verified.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.App, "app", "", "Application id to verify")
	cmd.Flags().StringVar(&opts.Manager, "manager", "", "Package manager id to verify")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Concurrent registry lookups")
	cmd.Flags().IntVar(&opts.TimeoutSec, "timeout", 0, "Per-lookup timeout in seconds")
	cmd.Flags().StringVar(&opts.Mirror, "registry-mirror", "", "Base URL serving every registry API")
	_ = viper.BindPFlag("verify_workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("verify_timeout_sec", cmd.Flags().Lookup("timeout"))
	_ = viper.BindPFlag("registry_mirror", cmd.Flags().Lookup("registry-mirror"))
	return cmd
}

func runVerify(ctx context.Context, cmd *cobra.Command, opts verifyOptions) error {
	service := newAppService()
	if workers := resolveInt(cmd, opts.Workers, "verify_workers", "workers"); workers > 0 {
		service.VerifyWorkers = workers
	}
	defer func() {
		_ = service.Store.Close()
	}()
	out := cmd.OutOrStdout()
	if opts.App == "" && opts.Manager == "" {
		summary, err := service.RunVerification(ctx)
		if err != nil {
			return err
		}
		printSummary(out, summary)
		return nil
	}
	if opts.App == "" || opts.Manager == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("--app and --manager must be given together")
	}
	result, err := service.VerifyPackage(ctx, app.VerifyPackageRequest{
		AppID:   opts.App,
		Manager: types.ManagerID(opts.Manager),
	})
	if err != nil {
		return err
	}
	printResults(out, []types.VerificationResult{result})
	return nil
}
