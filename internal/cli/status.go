package cli

import (
	"github.com/spf13/cobra"

	"app-installer/internal/app"
	"app-installer/internal/types"
)

func newStatusCommand() *cobra.Command {
	var appID, manager string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current verification status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := newAppService()
			defer func() {
				_ = service.Store.Close()
			}()
			result, err := service.Status(cmd.Context(), app.StatusRequest{
				AppID:   appID,
				Manager: types.ManagerID(manager),
			})
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), result.Results)
			return nil
		},
	}
	cmd.Flags().StringVar(&appID, "app", "", "Application id")
	cmd.Flags().StringVar(&manager, "manager", "", "Package manager id")
	return cmd
}

func newFlaggedCommand() *cobra.Command {
	var manager, sortBy, order string
	cmd := &cobra.Command{
		Use:   "flagged",
		Short: "List results awaiting manual review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := newAppService()
			defer func() {
				_ = service.Store.Close()
			}()
			results, err := service.ListFlagged(cmd.Context(), types.FlaggedQuery{
				Manager: types.ManagerID(manager),
				SortBy:  sortBy,
				Order:   types.SortOrder(order),
			})
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().StringVar(&manager, "manager", "", "Only list this package manager")
	cmd.Flags().StringVar(&sortBy, "sort-by", "timestamp", "Sort field (timestamp, appId, packageManagerId, packageName, status)")
	cmd.Flags().StringVar(&order, "order", "desc", "Sort order (asc or desc)")
	return cmd
}
