package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/render"
	"github.com/frahmantamala/dot-spend/internal/storage"
	"github.com/frahmantamala/dot-spend/pkg/logger"
)

var (
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade the database schema or move data between backends",
	}
	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply the embedded sql migrations to the sqlite or postgres backend",
		Args:  cobra.NoArgs,
		RunE:  runMigration,
	}
	migrateStorageCmd = &cobra.Command{
		Use:   "storage",
		Short: "Copy every record into another backend and switch to it",
		Long: `storage copies expenses, budgets and recurring rules from the configured backend into
the one named by --to, then makes it the configured backend. The JSON documents are backed up
to <data dir>/backups/<timestamp>/ first.`,
		Example: "  spend migrate storage --to sqlite",
		Args:    cobra.NoArgs,
		RunE:    runStorageMigration,
	}
	migrateRollback bool
	migrateTo       string
)

func init() {
	migrateUpCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateStorageCmd.Flags().StringVar(&migrateTo, "to", "", "target backend: json, sqlite or postgres")
	_ = migrateStorageCmd.MarkFlagRequired("to")

	migrateCmd.AddCommand(migrateUpCmd, migrateStorageCmd)
	rootCmd.AddCommand(migrateCmd)
}

func runMigration(cmd *cobra.Command, _ []string) error {
	if cfg.Storage.Backend == internal.BackendJSON {
		return internal.NewValidationError("schema migrations apply to the sqlite and postgres backends only", internal.ErrCodeInvalidConfig)
	}

	// opening the backend applies pending migrations
	backend, err := storage.New(cmd.Context(), cfg, logger.LoggerWrapper())
	if err != nil {
		return err
	}
	defer backend.Close()

	if migrateRollback {
		if err := backend.SQL.Migrate(cmd.Context(), true); err != nil {
			return err
		}
		render.Success(cmd.OutOrStdout(), "Rolled back the latest %s migration", backend.Kind)
		return nil
	}
	render.Success(cmd.OutOrStdout(), "%s schema is up to date", backend.Kind)
	return nil
}

func runStorageMigration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	lg := logger.LoggerWrapper()

	switch migrateTo {
	case internal.BackendJSON, internal.BackendSQLite, internal.BackendPostgres:
	default:
		return internal.NewValidationFieldError("to", fmt.Sprintf("unknown backend %q: choose json, sqlite or postgres", migrateTo), internal.ErrCodeInvalidConfig)
	}
	if migrateTo == cfg.Storage.Backend {
		return internal.NewValidationFieldError("to", fmt.Sprintf("%s is already the configured backend", migrateTo), internal.ErrCodeInvalidConfig)
	}

	backupDir, err := storage.BackupJSON(cfg.DataDir, time.Now())
	if err != nil {
		return err
	}
	lg.Info("json documents backed up", "dir", backupDir)

	src, err := storage.New(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := storage.Open(ctx, cfg, migrateTo, lg)
	if err != nil {
		return err
	}
	defer dst.Close()

	existing, err := dst.Expenses.List(expense.Filter{LastN: 1})
	if err != nil {
		return internal.NewStorageError("failed to read the target backend", internal.ErrCodeStorageRead, err)
	}
	if len(existing) > 0 {
		return internal.NewConflictError(fmt.Sprintf("the %s backend already holds expenses; clear it before migrating", migrateTo), internal.ErrCodeDuplicateID)
	}

	result, err := storage.Transfer(src, dst)
	if err != nil {
		return internal.NewStorageError("storage migration failed", internal.ErrCodeStorageWrite, err)
	}
	if err := writeSettings(map[string]string{"storage.backend": migrateTo}); err != nil {
		return err
	}

	render.Success(cmd.OutOrStdout(), "Copied %d expense(s), %d budget(s) and %d recurring rule(s) from %s to %s",
		result.Expenses, result.Budgets, result.Recurring, src.Kind, dst.Kind)
	fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", backupDir)
	return nil
}
