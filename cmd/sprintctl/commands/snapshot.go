package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rpattn/sprintmetrics/internal/analytics"
)

var snapshotJSON bool

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <board-id>",
	Short: "Report the current sprint accounting for one board",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().BoolVar(&snapshotJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
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

	snapshot, err := env.analytics.SprintSnapshot(ctx, boardID)
	if err != nil {
		return err
	}

	if snapshotJSON {
		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	printSnapshot(snapshot)
	return nil
}

func printSnapshot(snapshot analytics.Snapshot) {
	color.Cyan("Sprint %s", snapshot.BoardID)
	fmt.Printf("%-18s %d\n", "total points", snapshot.TotalPoints)
	fmt.Printf("%-18s %d\n", "completed points", snapshot.CompletedPoints)
	fmt.Printf("%-18s %d\n", "remaining points", snapshot.RemainingPoints)
	fmt.Printf("%-18s %+d\n", "net scope change", snapshot.NetScopeChange)
}
