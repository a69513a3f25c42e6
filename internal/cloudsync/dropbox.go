package cloudsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/frahmantamala/dot-spend/internal"
)

// DropboxContentURL is the content endpoint of the Dropbox HTTP API.
const DropboxContentURL = "https://content.dropboxapi.com/2"

// Dropbox talks to the Dropbox HTTP API with a long-lived access token.
type Dropbox struct {
	cfg     internal.DropboxSync
	baseURL string
	client  *http.Client
}

func NewDropbox(cfg internal.DropboxSync, baseURL string, timeout time.Duration) *Dropbox {
	if timeout <= 0 {
		timeout = time.Minute
	}
	if cfg.Path == "" {
		cfg.Path = "/Apps/dot-spend"
	}
	return &Dropbox{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (d *Dropbox) Name() string {
	return ProviderDropbox
}

type dropboxArg struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
	Mute bool   `json:"mute,omitempty"`
}

type dropboxError struct {
	ErrorSummary string `json:"error_summary"`
}

func (d *Dropbox) remotePath(name string) string {
	return path.Join("/", d.cfg.Path, name)
}

func (d *Dropbox) Push(ctx context.Context, name string, data []byte) error {
	arg := dropboxArg{Path: d.remotePath(name), Mode: "overwrite", Mute: true}
	resp, err := d.call(ctx, "/files/upload", arg, bytes.NewReader(data))
	if err != nil {
		return syncError(ProviderDropbox, "push", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return syncError(ProviderDropbox, "push", name, apiError(resp))
	}
	return nil
}

func (d *Dropbox) Pull(ctx context.Context, name string) ([]byte, error) {
	resp, err := d.call(ctx, "/files/download", dropboxArg{Path: d.remotePath(name)}, nil)
	if err != nil {
		return nil, syncError(ProviderDropbox, "pull", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		apiErr := apiError(resp)
		if strings.Contains(apiErr.Error(), "not_found") {
			return nil, ErrRemoteMissing
		}
		return nil, syncError(ProviderDropbox, "pull", name, apiErr)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, syncError(ProviderDropbox, "pull", name, apiError(resp))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, syncError(ProviderDropbox, "pull", name, err)
	}
	return data, nil
}

func (d *Dropbox) call(ctx context.Context, endpoint string, arg dropboxArg, body io.Reader) (*http.Response, error) {
	encoded, err := json.Marshal(arg)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+d.cfg.Token)
	req.Header.Set("Dropbox-API-Arg", string(encoded))
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	return d.client.Do(req)
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e dropboxError
	if err := json.Unmarshal(body, &e); err == nil && e.ErrorSummary != "" {
		return fmt.Errorf("dropbox %d: %s", resp.StatusCode, e.ErrorSummary)
	}
	return fmt.Errorf("dropbox %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
