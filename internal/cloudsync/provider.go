// Package cloudsync copies the data files to and from a remote location.
package cloudsync

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/dot-spend/internal"
)

const (
	ProviderFolder  = "folder"
	ProviderGit     = "git"
	ProviderGDrive  = "gdrive"
	ProviderDropbox = "dropbox"
)

// Providers lists the supported provider names.
var Providers = []string{ProviderFolder, ProviderGit, ProviderGDrive, ProviderDropbox}

// ErrRemoteMissing is returned by Pull when the remote has no copy of the file.
var ErrRemoteMissing = stderrors.New("file not found on remote")

// Provider moves whole files by name. Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	Push(ctx context.Context, name string, data []byte) error
	Pull(ctx context.Context, name string) ([]byte, error)
}

// Committer is implemented by providers that publish pushed files as one batch.
type Committer interface {
	Commit(ctx context.Context, names []string) error
}

// Preparer is implemented by providers that must refresh their copy before pulling.
type Preparer interface {
	Prepare(ctx context.Context) error
}

// New builds the configured provider.
func New(ctx context.Context, cfg internal.SyncConfig, logger *slog.Logger) (Provider, error) {
	switch cfg.Provider {
	case ProviderFolder:
		return NewFolder(cfg.Folder.Path), nil
	case ProviderGit:
		return NewGit(cfg.Git, logger), nil
	case ProviderGDrive:
		g, err := NewGDrive(ctx, cfg.GDrive)
		if err != nil {
			return nil, err
		}
		return g, nil
	case ProviderDropbox:
		return NewDropbox(cfg.Dropbox, DropboxContentURL, cfg.Timeout), nil
	case "":
		return nil, internal.NewValidationError("sync is not set up: run `spend sync setup <provider>`", internal.ErrCodeInvalidConfig)
	}
	return nil, internal.NewValidationError(fmt.Sprintf("unknown sync provider %q", cfg.Provider), internal.ErrCodeInvalidConfig)
}

func syncError(provider, op, name string, err error) error {
	return internal.NewExternalError(fmt.Sprintf("%s: %s %s failed", provider, op, name), internal.ErrCodeSyncFailed, err)
}
