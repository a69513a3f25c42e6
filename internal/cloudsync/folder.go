package cloudsync

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/frahmantamala/dot-spend/internal/storage/jsonfile"
)

// Folder syncs into a plain directory, typically one kept in sync by another tool.
type Folder struct {
	path string
}

func NewFolder(path string) *Folder {
	return &Folder{path: path}
}

func (f *Folder) Name() string {
	return ProviderFolder
}

func (f *Folder) Push(_ context.Context, name string, data []byte) error {
	if err := jsonfile.WriteAtomic(filepath.Join(f.path, name), data); err != nil {
		return syncError(ProviderFolder, "push", name, err)
	}
	return nil
}

func (f *Folder) Pull(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.path, name))
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, ErrRemoteMissing
	}
	if err != nil {
		return nil, syncError(ProviderFolder, "pull", name, err)
	}
	return data, nil
}
