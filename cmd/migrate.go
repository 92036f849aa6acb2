package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podbrief/podbrief-api/internal/database"
	"github.com/podbrief/podbrief-api/internal/models"
	"github.com/podbrief/podbrief-api/pkg/config"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	Long: `Apply the database schema for the PodBrief API.

The schema is managed through GORM auto-migration: running this command
creates or updates the transcript and summary tables to match the
current model definitions. It is safe to run repeatedly.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("dry-run", false, "print the target schema without making changes")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		fmt.Println("Dry run mode - no changes will be made")
		fmt.Printf("Database: %s\n", cfg.Database.Path)
		fmt.Println("Tables to migrate:")
		fmt.Println("  transcripts (episode_id, language unique; soft delete)")
		fmt.Println("  summaries   (episode_id, language unique; soft delete; episode metadata)")
		return nil
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(&models.Transcript{}, &models.Summary{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	fmt.Printf("Migrations applied to %s\n", cfg.Database.Path)
	return nil
}
