package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current health of all monitored cards",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, _, err := loadService(ctx)
	if err != nil {
		slog.Error("failed to initialize service", "error", err)
		os.Exit(1)
	}

	report := svc.FleetStatus(ctx)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CARD\tSTATUS\tTEMP\tPOWER\tLINK\tERRORS\tFIRMWARE\tANOMALIES")

	for _, cr := range report.Cards {
		link := "up"
		if !cr.LinkUp {
			link = "down"
		}
		anomalies := make([]string, 0, len(cr.Anomalies))
		for _, a := range cr.Anomalies {
			anomalies = append(anomalies, string(a))
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.1f\t%.1f\t%s\t%d\t%s\t%s\n",
			cr.CardID, cr.Status, cr.Temperature, cr.PowerWatts, link,
			cr.ErrorCount, cr.FirmwareVersion, strings.Join(anomalies, ","))
	}
	_ = w.Flush()

	fmt.Printf("\nFleet status: %s\n", report.Status)
}
