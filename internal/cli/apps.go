package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"app-installer/internal/app"
	"app-installer/internal/core"
	"app-installer/internal/types"
)

func newAppsCommand() *cobra.Command {
	var manager string
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "List catalog applications and the managers offering them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := newAppService()
			result, err := service.ListApplications(cmd.Context(), app.ListApplicationsRequest{
				Manager: types.ManagerID(strings.TrimSpace(manager)),
			})
			if err != nil {
				return err
			}
			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			_, _ = fmt.Fprintln(writer, "ID\tNAME\tCATEGORY\tMANAGERS")
			for _, entry := range result.Applications {
				managers := make([]string, 0, len(entry.Managers))
				for _, id := range entry.Managers {
					managers = append(managers, string(id))
				}
				_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
					entry.Application.ID,
					entry.Application.Name,
					entry.Application.Category,
					strings.Join(managers, ","))
			}
			return writer.Flush()
		},
	}
	cmd.Flags().StringVar(&manager, "manager", "", "Only list applications offered on this manager")
	cmd.AddCommand(newManagersCommand())
	return cmd
}

func newManagersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "managers",
		Short: "List supported package managers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			_, _ = fmt.Fprintln(writer, "ID\tLABEL\tOS\tDIALECT\tVERIFIABLE")
			for _, descriptor := range core.Descriptors() {
				_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%t\n",
					descriptor.ID, descriptor.Label, descriptor.OS, descriptor.Dialect, descriptor.Verifiable)
			}
			return writer.Flush()
		},
	}
}
