package cloudsync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/frahmantamala/dot-spend/internal"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// GDrive stores the files in one Drive folder, authenticated with a service account key.
type GDrive struct {
	svc      *drive.Service
	folderID string
}

func NewGDrive(ctx context.Context, cfg internal.GDriveSync, opts ...option.ClientOption) (*GDrive, error) {
	if len(opts) == 0 {
		opts = []option.ClientOption{
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(drive.DriveFileScope),
		}
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, internal.NewExternalError("create drive service", internal.ErrCodeSyncFailed, err)
	}
	folder := cfg.FolderID
	if folder == "" {
		folder = "root"
	}
	return &GDrive{svc: svc, folderID: folder}, nil
}

func (g *GDrive) Name() string {
	return ProviderGDrive
}

func (g *GDrive) find(ctx context.Context, name string) (*drive.File, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", escapeQuery(name), escapeQuery(g.folderID))
	list, err := g.svc.Files.List().Q(q).Fields("files(id, name, modifiedTime)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	return list.Files[0], nil
}

func (g *GDrive) Push(ctx context.Context, name string, data []byte) error {
	existing, err := g.find(ctx, name)
	if err != nil {
		return syncError(ProviderGDrive, "push", name, err)
	}
	if existing != nil {
		_, err = g.svc.Files.Update(existing.Id, &drive.File{}).Media(bytes.NewReader(data)).Context(ctx).Do()
	} else {
		_, err = g.svc.Files.Create(&drive.File{Name: name, Parents: []string{g.folderID}}).Media(bytes.NewReader(data)).Context(ctx).Do()
	}
	if err != nil {
		return syncError(ProviderGDrive, "push", name, err)
	}
	return nil
}

func (g *GDrive) Pull(ctx context.Context, name string) ([]byte, error) {
	existing, err := g.find(ctx, name)
	if err != nil {
		return nil, syncError(ProviderGDrive, "pull", name, err)
	}
	if existing == nil {
		return nil, ErrRemoteMissing
	}
	resp, err := g.svc.Files.Get(existing.Id).Context(ctx).Download()
	if err != nil {
		return nil, syncError(ProviderGDrive, "pull", name, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, syncError(ProviderGDrive, "pull", name, err)
	}
	return data, nil
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
