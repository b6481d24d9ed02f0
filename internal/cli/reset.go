package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

var resetCmd = &cobra.Command{
	Use:   "reset <card-id>",
	Short: "Reset a card to a clean baseline",
	Args:  cobra.ExactArgs(1),
	Run:   runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, _, err := loadService(ctx)
	if err != nil {
		slog.Error("failed to initialize service", "error", err)
		os.Exit(1)
	}

	if err := svc.Reset(ctx, domain.CardID(args[0])); err != nil {
		slog.Error("reset failed", "card", args[0], "error", err)
		os.Exit(1)
	}
	fmt.Printf("card %s reset\n", args[0])
}
