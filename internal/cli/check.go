package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

var checkCmd = &cobra.Command{
	Use:   "check <card-id>",
	Short: "Collect one snapshot from a card and print the verdict",
	Args:  cobra.ExactArgs(1),
	Run:   runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, _, err := loadService(ctx)
	if err != nil {
		slog.Error("failed to initialize service", "error", err)
		os.Exit(1)
	}

	result, err := svc.CheckCard(ctx, domain.CardID(args[0]))
	if err != nil {
		slog.Error("check failed", "card", args[0], "error", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}
