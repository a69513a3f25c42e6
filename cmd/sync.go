package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/cloudsync"
	"github.com/frahmantamala/dot-spend/internal/render"
	"github.com/frahmantamala/dot-spend/internal/storage/jsonfile"
	"github.com/frahmantamala/dot-spend/pkg/logger"
)

var syncOpts []string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy the ledger to and from another device",
}

var syncSetupCmd = &cobra.Command{
	Use:   "setup <" + strings.Join(cloudsync.Providers, "|") + ">",
	Short: "Choose and configure the sync provider",
	Example: `  spend sync setup folder --opt path=~/Dropbox/spend
  spend sync setup git --opt repo_path=~/ledger --opt branch=main
  spend sync setup gdrive --opt credentials_file=~/key.json --opt folder_id=1AbC
  spend sync setup dropbox --opt token=sl.xxx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := cloudsync.ParseOptions(syncOpts)
		if err != nil {
			return err
		}
		for k, v := range opts {
			if strings.HasPrefix(v, "~/") {
				if home, err := os.UserHomeDir(); err == nil {
					opts[k] = filepath.Join(home, v[2:])
				}
			}
		}
		_, values, err := cloudsync.Setup(cfg.Sync, args[0], opts)
		if err != nil {
			return err
		}
		if err := writeSettings(values); err != nil {
			return err
		}
		render.Success(cmd.OutOrStdout(), "Sync provider set to %s. Run `spend sync now` to upload.", cfg.Sync.Provider)
		return nil
	},
}

var syncNowCmd = &cobra.Command{
	Use:     "now",
	Aliases: []string{"push"},
	Short:   "Upload changed data files",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, func(ctx context.Context, m *cloudsync.Manager) (*cloudsync.Result, error) {
			return m.Push(ctx)
		}, "Uploaded")
	},
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace local data files with the remote copies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, func(ctx context.Context, m *cloudsync.Manager) (*cloudsync.Result, error) {
			return m.Pull(ctx)
		}, "Downloaded")
	},
}

func runSync(cmd *cobra.Command, op func(context.Context, *cloudsync.Manager) (*cloudsync.Result, error), verb string) error {
	files, err := syncFiles(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := internal.WithTimeout(cmd.Context(), cfg.Sync.Timeout)
	defer cancel()

	lg := logger.LoggerWrapper()
	provider, err := cloudsync.New(ctx, cfg.Sync, lg)
	if err != nil {
		return err
	}
	manager := cloudsync.NewManager(provider, cfg.DataDir, files, cfg.Sync.Workers, lg)

	result, err := op(ctx, manager)
	if err != nil {
		return err
	}
	render.Success(cmd.OutOrStdout(), "%s %d file(s) via %s, %d unchanged", verb, len(result.Transferred), provider.Name(), len(result.Unchanged))
	if len(result.Transferred) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "  "+strings.Join(result.Transferred, "\n  "))
	}
	return nil
}

// syncFiles lists the data files of the configured backend, relative to the data directory.
func syncFiles(c *internal.Config) ([]string, error) {
	switch c.Storage.Backend {
	case internal.BackendSQLite:
		name := c.Storage.SQLiteFile
		if filepath.IsAbs(name) {
			rel, err := filepath.Rel(c.DataDir, name)
			if err != nil || strings.HasPrefix(rel, "..") {
				return nil, internal.NewValidationError("sync needs the sqlite file inside the data directory", internal.ErrCodeInvalidConfig)
			}
			name = rel
		}
		return []string{name}, nil
	case internal.BackendPostgres:
		return nil, internal.NewValidationError("the postgres backend is shared already; sync only copies json and sqlite data files", internal.ErrCodeInvalidConfig)
	}
	return jsonfile.Files, nil
}

func init() {
	syncSetupCmd.Flags().StringArrayVarP(&syncOpts, "opt", "o", nil, "provider option key=value (repeatable)")

	syncCmd.AddCommand(syncSetupCmd, syncNowCmd, syncPullCmd)
	rootCmd.AddCommand(syncCmd)
}
