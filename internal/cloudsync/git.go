package cloudsync

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/storage/jsonfile"
)

// Git keeps the data files in a working tree and publishes them with the git binary.
type Git struct {
	cfg    internal.GitSync
	logger *slog.Logger
}

func NewGit(cfg internal.GitSync, logger *slog.Logger) *Git {
	if cfg.Remote == "" {
		cfg.Remote = "origin"
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	return &Git{cfg: cfg, logger: logger}
}

func (g *Git) Name() string {
	return ProviderGit
}

func (g *Git) Push(_ context.Context, name string, data []byte) error {
	if err := jsonfile.WriteAtomic(filepath.Join(g.cfg.RepoPath, name), data); err != nil {
		return syncError(ProviderGit, "push", name, err)
	}
	return nil
}

// Commit stages names, commits when anything changed and pushes the branch.
func (g *Git) Commit(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if _, err := g.run(ctx, append([]string{"add", "--"}, names...)...); err != nil {
		return err
	}
	status, err := g.run(ctx, "status", "--porcelain", "--")
	if err != nil {
		return err
	}
	if strings.TrimSpace(status) != "" {
		msg := "dot-spend sync: update " + strings.Join(names, ", ")
		if _, err := g.run(ctx, "commit", "-m", msg); err != nil {
			return err
		}
	}
	_, err = g.run(ctx, "push", g.cfg.Remote, g.cfg.Branch)
	return err
}

func (g *Git) Prepare(ctx context.Context) error {
	_, err := g.run(ctx, "pull", "--ff-only", g.cfg.Remote, g.cfg.Branch)
	return err
}

func (g *Git) Pull(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(g.cfg.RepoPath, name))
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, ErrRemoteMissing
	}
	if err != nil {
		return nil, syncError(ProviderGit, "pull", name, err)
	}
	return data, nil
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.cfg.RepoPath
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	g.logger.Debug("running git", "args", args, "dir", g.cfg.RepoPath)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", internal.NewExternalError(fmt.Sprintf("git %s: %s", args[0], msg), internal.ErrCodeSyncFailed, err)
	}
	return stdout.String(), nil
}
