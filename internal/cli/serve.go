package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"app-installer/internal/adapters"
	"app-installer/internal/httpapi"
)

const defaultListen = "127.0.0.1:8080"

type serveOptions struct {
	Listen string
	Secret string
}

func newServeCommand() *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the verification API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Listen, "listen", defaultListen, "Listen address")
	cmd.Flags().StringVar(&opts.Secret, "verify-secret", "", "Bearer secret for the verification trigger")
	_ = viper.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("verify_secret", cmd.Flags().Lookup("verify-secret"))
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, opts serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := newAppService()
	service.VerifySecret = resolveString(cmd, opts.Secret, "verify_secret", "verify-secret")
	metrics := adapters.NewMetricsPrometheusAdapter()
	service.Metrics = metrics
	handler := httpapi.NewHandler(service, metrics.Handler())
	return httpapi.Serve(ctx, resolveString(cmd, opts.Listen, "listen", "listen"), handler, service.Store)
}
