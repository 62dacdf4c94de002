package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rpattn/sprintmetrics/internal/events"
	"github.com/rpattn/sprintmetrics/internal/mutation"
)

var (
	updateProject bool
	updateUpdater string
	updateSets    []string
)

var updateCmd = &cobra.Command{
	Use:   "update <entity-id>",
	Short: "Apply a field update to an issue or project",
	Long: `Apply one audited field update to an issue (or, with --project, a
project). Each --set pair names an allow-listed field; values are parsed
as JSON where possible, otherwise taken as strings.

Example:
  sprintctl update 4f1c... --updater 9a2b... --set status=Done --set story_points=5`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateProject, "project", false, "Target a project instead of an issue")
	updateCmd.Flags().StringVar(&updateUpdater, "updater", "", "User id recorded in the audit trail")
	updateCmd.Flags().StringArrayVar(&updateSets, "set", nil, "field=value pair, repeatable")
	updateCmd.MarkFlagRequired("updater")
	updateCmd.MarkFlagRequired("set")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	entityID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid entity id %q: %w", args[0], err)
	}
	updater, err := uuid.Parse(updateUpdater)
	if err != nil {
		return fmt.Errorf("invalid updater id %q: %w", updateUpdater, err)
	}

	fields := make(map[string]any, len(updateSets))
	for _, pair := range updateSets {
		field, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q, want field=value", pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		fields[field] = value
	}

	ctx := context.Background()
	env, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	publisher, err := events.NewRedisPublisher(env.cfg.Redis)
	if err != nil {
		return err
	}
	defer publisher.Close()
	dispatcher := events.NewDispatcher(publisher, env.cfg.OutboxSize)
	defer dispatcher.Close()

	orchestrator := mutation.NewOrchestrator(env.issues, env.projects, env.boards, dispatcher)

	if updateProject {
		project, err := orchestrator.ApplyProjectUpdate(ctx, entityID, fields, updater)
		if err != nil {
			return err
		}
		color.Green("✓ %s updated to version %d", project.Key, project.Version)
		return nil
	}

	issue, err := orchestrator.ApplyIssueUpdate(ctx, entityID, fields, updater)
	if err != nil {
		return err
	}
	color.Green("✓ %s updated to version %d", issue.Key, issue.Version)
	return nil
}
