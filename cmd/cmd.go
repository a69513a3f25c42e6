package cmd

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/render"
	"github.com/frahmantamala/dot-spend/pkg/logger"
)

// ConfigFile is the settings file inside the data directory.
const ConfigFile = "config.yml"

var (
	dataDirFlag string
	verbose     bool

	cfg      *internal.Config
	settings *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:   "spend",
	Short: "Personal expense tracker",
	Long: `spend records expenses from the command line, tracks budgets, imports bank
statements and keeps the ledger in sync across devices.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, settings, err = loadConfig(dataDirFlag)
		if err != nil {
			return err
		}
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger.Init(level, cfg.Logging.Format, os.Stderr)
		return nil
	},
}

// Execute runs the CLI and exits with the status that matches the failure kind.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		render.Error(os.Stderr, "%s", userMessage(err))
		os.Exit(exitCode(err))
	}
}

func userMessage(err error) string {
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr.Error()
	}
	return err.Error()
}

func exitCode(err error) int {
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr.ExitCode()
	}
	return 1
}

// loadConfig layers defaults, config.yml from the data directory, .env and SPEND_* variables.
func loadConfig(dataDir string) (*internal.Config, *viper.Viper, error) {
	// .env is optional
	_ = godotenv.Load()

	dir, err := internal.ResolveDataDir(dataDir)
	if err != nil {
		return nil, nil, internal.NewValidationError(err.Error(), internal.ErrCodeInvalidConfig)
	}

	v := viper.New()
	for key, value := range internal.Defaults() {
		v.SetDefault(key, value)
	}
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("SPEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, nil, internal.NewValidationError(fmt.Sprintf("error reading config: %v", err), internal.ErrCodeInvalidConfig)
		}
	}

	c, err := decodeConfig(v, dir)
	if err != nil {
		return nil, nil, err
	}
	return c, v, nil
}

func decodeConfig(v *viper.Viper, dataDir string) (*internal.Config, error) {
	var c internal.Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, internal.NewValidationError(fmt.Sprintf("error unmarshaling config: %v", err), internal.ErrCodeInvalidConfig)
	}
	c.DataDir = dataDir
	c.Currency.Base = strings.ToUpper(c.Currency.Base)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (default: $"+internal.DataDirEnv+" or the platform data dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
}
