package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

var failureType string

var recoverCmd = &cobra.Command{
	Use:   "recover <card-id>",
	Short: "Run a recovery recipe on a card",
	Long: `Runs the recovery recipe for the given failure type. Without --failure-type
the latest stored verdict is classified to pick one.`,
	Args: cobra.ExactArgs(1),
	Run:  runRecover,
}

func init() {
	recoverCmd.Flags().StringVar(&failureType, "failure-type", "", "failure type to recover from (e.g. boot_failure)")
	rootCmd.AddCommand(recoverCmd)
}

func runRecover(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, _, err := loadService(ctx)
	if err != nil {
		slog.Error("failed to initialize service", "error", err)
		os.Exit(1)
	}

	cardID := domain.CardID(args[0])
	ft := domain.FailureType(failureType)
	if ft == "" {
		ft, err = svc.ClassifyCard(ctx, cardID)
		if err != nil {
			slog.Error("failed to classify card", "card", cardID, "error", err)
			os.Exit(1)
		}
		slog.Info("classified failure", "card", cardID, "failure_type", ft)
	}

	attempt, err := svc.Recover(ctx, cardID, ft)
	if err != nil {
		slog.Error("recovery failed", "card", cardID, "error", err)
		os.Exit(1)
	}

	for _, step := range attempt.Steps {
		mark := "ok"
		if !step.OK {
			mark = "FAILED: " + step.Error
		}
		fmt.Printf("  %-40s %s\n", step.Step, mark)
	}

	if attempt.Success {
		fmt.Printf("recovery succeeded on %s (%s)\n", cardID, ft)
		return
	}
	fmt.Printf("recovery failed on %s (%s)\n", cardID, ft)
	os.Exit(1)
}
