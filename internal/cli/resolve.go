package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"app-installer/internal/app"
	"app-installer/internal/types"
)

func newResolveCommand() *cobra.Command {
	var appID, manager string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Clear the review flag of a flagged result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := newAppService()
			defer func() {
				_ = service.Store.Close()
			}()
			result, err := service.ResolveFlag(cmd.Context(), app.ResolveFlagRequest{
				AppID:   appID,
				Manager: types.ManagerID(manager),
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s on %s (%s)\n",
				color.GreenString("resolved:"), result.AppID, result.PackageManagerID, result.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&appID, "app", "", "Application id")
	cmd.Flags().StringVar(&manager, "manager", "", "Package manager id")
	_ = cmd.MarkFlagRequired("app")
	_ = cmd.MarkFlagRequired("manager")
	return cmd
}
