package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var burndownJSON bool

var burndownCmd = &cobra.Command{
	Use:   "burndown <board-id>",
	Short: "Reconstruct the per-day remaining-points series for a sprint",
	Args:  cobra.ExactArgs(1),
	RunE:  runBurndown,
}

func init() {
	burndownCmd.Flags().BoolVar(&burndownJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(burndownCmd)
}

func runBurndown(cmd *cobra.Command, args []string) error {
	boardID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid board id %q: %w", args[0], err)
	}

	ctx := context.Background()
	env, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	report, err := env.analytics.Burndown(ctx, boardID)
	if err != nil {
		return err
	}

	if burndownJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	printSnapshot(report.Snapshot)
	fmt.Println()
	fmt.Printf("%-12s %s\n", "DATE", "REMAINING")
	for _, point := range report.Series {
		fmt.Printf("%-12s %d\n", point.Date.Format("2006-01-02"), point.RemainingPoints)
	}
	return nil
}
