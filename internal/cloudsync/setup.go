package cloudsync

import (
	"fmt"
	"sort"
	"strings"

	"github.com/frahmantamala/dot-spend/internal"
)

// options lists the settings each provider accepts, in config key form.
var options = map[string][]string{
	ProviderFolder:  {"path"},
	ProviderGit:     {"repo_path", "remote", "branch"},
	ProviderGDrive:  {"credentials_file", "folder_id"},
	ProviderDropbox: {"token", "path"},
}

// ParseOptions reads key=value pairs as given to `sync setup --opt`.
func ParseOptions(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.ToLower(strings.TrimSpace(k))
		if !ok || k == "" {
			return nil, internal.NewValidationFieldError("opt", fmt.Sprintf("option %q must look like key=value", pair), internal.ErrCodeValidationFailed)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// Setup applies provider options onto cfg, validates the result and returns the settings to
// persist keyed the way the configuration addresses them (e.g. "sync.git.repo_path").
func Setup(cfg internal.SyncConfig, provider string, opts map[string]string) (internal.SyncConfig, map[string]string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	allowed, ok := options[provider]
	if !ok {
		return cfg, nil, internal.NewValidationFieldError("provider", fmt.Sprintf("unknown provider %q: choose from %s", provider, strings.Join(Providers, ", ")), internal.ErrCodeInvalidConfig)
	}

	settings := map[string]string{"sync.provider": provider}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !contains(allowed, k) {
			return cfg, nil, internal.NewValidationFieldError("opt", fmt.Sprintf("%s does not take option %q (accepted: %s)", provider, k, strings.Join(allowed, ", ")), internal.ErrCodeInvalidConfig)
		}
		settings["sync."+provider+"."+k] = opts[k]
	}

	cfg.Provider = provider
	for k, v := range opts {
		switch provider + "." + k {
		case "folder.path":
			cfg.Folder.Path = v
		case "git.repo_path":
			cfg.Git.RepoPath = v
		case "git.remote":
			cfg.Git.Remote = v
		case "git.branch":
			cfg.Git.Branch = v
		case "gdrive.credentials_file":
			cfg.GDrive.CredentialsFile = v
		case "gdrive.folder_id":
			cfg.GDrive.FolderID = v
		case "dropbox.token":
			cfg.Dropbox.Token = v
		case "dropbox.path":
			cfg.Dropbox.Path = v
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, internal.NewValidationError("sync config: "+err.Error(), internal.ErrCodeInvalidConfig)
	}
	return cfg, settings, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
