package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"app-installer/internal/types"
)

const timestampLayout = "2006-01-02 15:04:05"

func statusLabel(status types.VerificationStatus) string {
	switch status {
	case types.StatusVerified:
		return color.GreenString(string(status))
	case types.StatusFailed:
		return color.RedString(string(status))
	case types.StatusUnverifiable:
		return color.New(color.FgHiBlack).Sprint(string(status))
	default:
		return color.YellowString(string(status))
	}
}

func formatTimestamp(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.UTC().Format(timestampLayout)
}

// printResults renders results as an aligned table.
func printResults(out io.Writer, results []types.VerificationResult) {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(out, "no results")
		return
	}
	writer := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	_, _ = fmt.Fprintln(writer, "APP\tMANAGER\tPACKAGE\tSTATUS\tCHECKED\tNOTE")
	for _, result := range results {
		note := result.ErrorMessage
		if result.ManualReviewFlag {
			note = color.YellowString("review") + " " + note
		}
		_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			result.AppID,
			result.PackageManagerID,
			result.PackageName,
			statusLabel(result.Status),
			formatTimestamp(result.Timestamp),
			strings.TrimSpace(note),
		)
	}
	_ = writer.Flush()
}

func printSummary(out io.Writer, summary types.VerificationSummary) {
	_, _ = fmt.Fprintf(out, "total: %d\n", summary.Total)
	_, _ = fmt.Fprintf(out, "%s %d\n", color.GreenString("verified:"), summary.Verified)
	_, _ = fmt.Fprintf(out, "%s %d\n", color.RedString("failed:"), summary.Failed)
	_, _ = fmt.Fprintf(out, "%s %d\n", color.YellowString("errors:"), summary.Errors)
	_, _ = fmt.Fprintf(out, "unverifiable: %d\n", summary.Unverifiable)
}
