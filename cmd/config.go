package cmd

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/render"
)

// settingKeys are the keys without a default that config set still accepts.
var settingKeys = []string{
	"storage.postgres_dsn",
	"sync.folder.path",
	"sync.git.repo_path",
	"sync.gdrive.credentials_file",
	"sync.gdrive.folder_id",
	"sync.dropbox.token",
	"http_server.jwt_secret",
}

var secretFragments = []string{"token", "secret", "dsn", "password"}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and change settings",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		if !knownKey(key) {
			return unknownKey(key)
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatValue(settings.Get(key)))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:     "set <key> <value>",
	Short:   "Change one setting in config.yml",
	Example: "  spend config set currency.base EUR\n  spend config set storage.backend sqlite",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		if !knownKey(key) {
			return unknownKey(key)
		}
		if err := writeSettings(map[string]string{key: args[1]}); err != nil {
			return err
		}
		render.Success(cmd.OutOrStdout(), "%s = %s", key, mask(key, args[1]))
		if key == "storage.backend" {
			render.Warn(cmd.ErrOrStderr(), "existing records stay in the old backend: use `spend migrate storage --to <backend>` to move them instead")
		}
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every setting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", configPath())
		fmt.Fprintf(cmd.OutOrStdout(), "data_dir = %s\n", cfg.DataDir)
		for _, key := range allKeys() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, mask(key, formatValue(settings.Get(key))))
		}
		return nil
	},
}

func configPath() string {
	return cfg.Path(ConfigFile)
}

// writeSettings validates the merged configuration with values applied, then persists only
// the keys stored in config.yml, leaving environment overrides out of the file.
func writeSettings(values map[string]string) error {
	file := viper.New()
	file.SetConfigFile(configPath())
	file.SetConfigType("yml")
	if err := file.ReadInConfig(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return internal.NewValidationError(fmt.Sprintf("error reading %s: %v", configPath(), err), internal.ErrCodeInvalidConfig)
		}
	}

	previous := make(map[string]interface{}, len(values))
	for key, raw := range values {
		value := parseValue(key, raw)
		previous[key] = settings.Get(key)
		settings.Set(key, value)
		file.Set(key, value)
	}
	candidate, err := decodeConfig(settings, cfg.DataDir)
	if err != nil {
		for key, value := range previous {
			settings.Set(key, value)
		}
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return internal.NewStorageError("failed to create data directory", internal.ErrCodeStorageWrite, err)
	}
	if err := file.WriteConfigAs(configPath()); err != nil {
		return internal.NewStorageError("failed to write "+configPath(), internal.ErrCodeStorageWrite, err)
	}
	cfg = candidate
	return nil
}

// parseValue splits list settings on commas; viper decodes the other kinds when unmarshaling.
func parseValue(key, raw string) interface{} {
	if _, ok := internal.Defaults()[key].([]string); ok {
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return raw
}

func allKeys() []string {
	keys := append([]string{}, settingKeys...)
	for key := range internal.Defaults() {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func knownKey(key string) bool {
	for _, k := range allKeys() {
		if k == key {
			return true
		}
	}
	return false
}

func unknownKey(key string) error {
	return internal.NewNotFoundError(fmt.Sprintf("unknown setting %q: see `spend config list`", key), internal.ErrCodeSettingNotFound)
}

func mask(key, value string) string {
	if value == "" {
		return value
	}
	for _, fragment := range secretFragments {
		if strings.Contains(key, fragment) {
			return "********"
		}
	}
	return value
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(t, ",")
	case []interface{}:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd)
	rootCmd.AddCommand(configCmd)
}
