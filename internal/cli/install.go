package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

var installCmd = &cobra.Command{
	Use:   "install <card-id>",
	Short: "Install the target firmware on a card",
	Args:  cobra.ExactArgs(1),
	Run:   runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, _, err := loadService(ctx)
	if err != nil {
		slog.Error("failed to initialize service", "error", err)
		os.Exit(1)
	}

	if err := svc.Install(ctx, domain.CardID(args[0])); err != nil {
		slog.Error("installation failed", "card", args[0], "error", err)
		os.Exit(1)
	}
	fmt.Printf("firmware installed on %s\n", args[0])
}
