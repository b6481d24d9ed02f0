package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

var outputPath string

var techsupportCmd = &cobra.Command{
	Use:   "techsupport <card-id>",
	Short: "Generate a technical support bundle for a card",
	Args:  cobra.ExactArgs(1),
	Run:   runTechsupport,
}

func init() {
	techsupportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the bundle to a file instead of stdout")
	rootCmd.AddCommand(techsupportCmd)
}

func runTechsupport(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, _, err := loadService(ctx)
	if err != nil {
		slog.Error("failed to initialize service", "error", err)
		os.Exit(1)
	}

	bundle, err := svc.TechSupport(ctx, domain.CardID(args[0]))
	if err != nil {
		slog.Error("failed to generate bundle", "card", args[0], "error", err)
		os.Exit(1)
	}

	if outputPath == "" {
		fmt.Print(bundle)
		return
	}
	if err := os.WriteFile(outputPath, []byte(bundle), 0o644); err != nil {
		slog.Error("failed to write bundle", "path", outputPath, "error", err)
		os.Exit(1)
	}
	fmt.Printf("bundle written to %s\n", outputPath)
}
