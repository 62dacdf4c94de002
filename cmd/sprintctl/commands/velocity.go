package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var velocityJSON bool

var velocityCmd = &cobra.Command{
	Use:   "velocity <board-id>...",
	Short: "Report completed story points per sprint",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runVelocity,
}

func init() {
	velocityCmd.Flags().BoolVar(&velocityJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(velocityCmd)
}

func runVelocity(cmd *cobra.Command, args []string) error {
	boardIDs := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		boardID, err := uuid.Parse(arg)
		if err != nil {
			return fmt.Errorf("invalid board id %q: %w", arg, err)
		}
		boardIDs = append(boardIDs, boardID)
	}

	ctx := context.Background()
	env, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	entries, err := env.analytics.Velocity(ctx, boardIDs)
	if err != nil {
		return err
	}

	if velocityJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%-38s %-20s %s\n", "BOARD", "TITLE", "COMPLETED")
	for _, entry := range entries {
		fmt.Printf("%-38s %-20s %d\n", entry.BoardID, entry.Title, entry.CompletedPoints)
	}
	return nil
}
