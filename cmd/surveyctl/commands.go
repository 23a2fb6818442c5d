package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/yourusername/survey-api/internal/config"
	pgRepo "github.com/yourusername/survey-api/internal/repository/postgres"
	"github.com/yourusername/survey-api/pkg/database"
	"github.com/yourusername/survey-api/pkg/logger"
)

var (
	configPath string
	logMode    string

	rootCmd = &cobra.Command{
		Use:          "surveyctl",
		Short:        "Maintenance commands for the survey API database",
		SilenceUsage: true,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Manage schema migrations",
	}
	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE:  runMigrateUp,
	}
	migrateForceCmd = &cobra.Command{
		Use:   "force [version]",
		Short: "Mark the schema as clean at the given version after a failed migration",
		Args:  cobra.ExactArgs(1),
		RunE:  runMigrateForce,
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "Read-only diagnostics",
	}
	inspectSurveyCmd = &cobra.Command{
		Use:   "survey [id]",
		Short: "Print a survey, its ordered questions and response category counts",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspectSurvey,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to the config file")
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", "development", "logger preset (development|production)")

	migrateCmd.AddCommand(migrateUpCmd, migrateForceCmd)
	inspectCmd.AddCommand(inspectSurveyCmd)
	rootCmd.AddCommand(migrateCmd, inspectCmd)
}

// openDB loads the config and connects to PostgreSQL
func openDB() (*config.Config, *gorm.DB, *logger.Logger, error) {
	log, err := logger.New(logMode)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build logger: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), false)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return cfg, db, log, nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, db, log, err := openDB()
	if err != nil {
		return err
	}
	defer log.Sync()
	return database.MigrateDB(db, cfg.Database.MigrationsDir, log)
}

func runMigrateForce(cmd *cobra.Command, args []string) error {
	version, err := strconv.Atoi(args[0])
	if err != nil || version < 0 {
		return fmt.Errorf("version must be a non-negative integer, got %q", args[0])
	}

	cfg, db, log, err := openDB()
	if err != nil {
		return err
	}
	defer log.Sync()

	m, err := database.NewMigrator(db, cfg.Database.MigrationsDir)
	if err != nil {
		return err
	}
	if err := m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	log.Info("migration state forced", "version", version)
	return nil
}

func runInspectSurvey(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("survey id must be a positive integer, got %q", args[0])
	}

	cfg, db, log, err := openDB()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*cfg.Database.QueryTimeout)
	defer cancel()

	timeout := cfg.Database.QueryTimeout
	inspector := surveyInspector{
		surveys:   pgRepo.NewSurveyRepo(db, timeout),
		questions: pgRepo.NewQuestionRepo(db, timeout),
		responses: pgRepo.NewResponseRepo(db, timeout),
	}
	return inspector.Print(ctx, cmd.OutOrStdout(), uint(id))
}
