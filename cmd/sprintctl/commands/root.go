package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpattn/sprintmetrics/internal/analytics"
	"github.com/rpattn/sprintmetrics/internal/config"
	"github.com/rpattn/sprintmetrics/internal/db"
	"github.com/rpattn/sprintmetrics/internal/repository"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sprintctl",
	Short: "Sprint analytics and migration tooling",
	Long: `sprintctl operates the sprint analytics engine from the command line:
it applies schema migrations and reports sprint snapshots, burndown
series and velocity trends straight from the entity store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no subcommand is specified, show help
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing config.yaml")
}

// env bundles the wired collaborators a command needs.
type env struct {
	cfg       config.Config
	conn      *db.Connection
	issues    repository.IssueRepository
	projects  repository.ProjectRepository
	boards    repository.BoardRepository
	analytics *analytics.Service
}

func newEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	issues := repository.NewIssueRepository(conn.Pool)
	projects := repository.NewProjectRepository(conn.Pool)
	boards := repository.NewBoardRepository(conn.Pool)
	return &env{
		cfg:       cfg,
		conn:      conn,
		issues:    issues,
		projects:  projects,
		boards:    boards,
		analytics: analytics.NewService(issues, boards),
	}, nil
}

func (e *env) Close() {
	e.conn.Close()
}
