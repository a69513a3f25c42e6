package cloudsync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/storage/jsonfile"
	"golang.org/x/sync/errgroup"
)

// StateFile records what was last exchanged with the remote.
const StateFile = "sync_state.json"

const defaultWorkers = 4

type FileState struct {
	SHA256   string    `json:"sha256"`
	SyncedAt time.Time `json:"synced_at"`
}

type State struct {
	Provider string               `json:"provider"`
	Files    map[string]FileState `json:"files"`
}

// Result lists the files by outcome.
type Result struct {
	Transferred []string `json:"transferred"`
	Unchanged   []string `json:"unchanged"`
	Missing     []string `json:"missing"`
}

type Manager struct {
	provider Provider
	dataDir  string
	files    []string
	workers  int
	logger   *slog.Logger
	now      func() time.Time
}

func NewManager(provider Provider, dataDir string, files []string, workers int, logger *slog.Logger) *Manager {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Manager{
		provider: provider,
		dataDir:  dataDir,
		files:    files,
		workers:  workers,
		logger:   logger,
		now:      time.Now,
	}
}

type outcome int

const (
	outcomeTransferred outcome = iota
	outcomeUnchanged
	outcomeMissing
)

// Push uploads every local file whose content changed since the last sync. Uploads run
// concurrently, bounded by the worker count.
func (m *Manager) Push(ctx context.Context) (*Result, error) {
	state, err := m.loadState()
	if err != nil {
		return nil, err
	}

	outcomes := make([]outcome, len(m.files))
	hashes := make([]string, len(m.files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, name := range m.files {
		i, name := i, name
		g.Go(func() error {
			data, err := os.ReadFile(filepath.Join(m.dataDir, name))
			if stderrors.Is(err, fs.ErrNotExist) {
				outcomes[i] = outcomeMissing
				return nil
			}
			if err != nil {
				return internal.NewStorageError("failed to read "+name, internal.ErrCodeStorageRead, err)
			}
			hashes[i] = digest(data)
			if prev, ok := state.Files[name]; ok && prev.SHA256 == hashes[i] && state.Provider == m.provider.Name() {
				outcomes[i] = outcomeUnchanged
				return nil
			}
			if err := m.provider.Push(gctx, name, data); err != nil {
				return err
			}
			m.logger.Debug("file pushed", "provider", m.provider.Name(), "file", name)
			outcomes[i] = outcomeTransferred
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.logger.Error("sync push failed", "provider", m.provider.Name(), "error", err)
		return nil, err
	}

	result := m.collect(outcomes)
	if committer, ok := m.provider.(Committer); ok {
		if err := committer.Commit(ctx, result.Transferred); err != nil {
			return nil, err
		}
	}

	m.record(state, outcomes, hashes)
	if err := m.saveState(state); err != nil {
		return nil, err
	}
	m.logger.Info("sync push completed", "provider", m.provider.Name(), "pushed", len(result.Transferred), "unchanged", len(result.Unchanged))
	return result, nil
}

// Pull downloads every file the remote has and replaces the local copy. The remote wins.
func (m *Manager) Pull(ctx context.Context) (*Result, error) {
	state, err := m.loadState()
	if err != nil {
		return nil, err
	}
	if preparer, ok := m.provider.(Preparer); ok {
		if err := preparer.Prepare(ctx); err != nil {
			return nil, err
		}
	}

	outcomes := make([]outcome, len(m.files))
	hashes := make([]string, len(m.files))
	payloads := make([][]byte, len(m.files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, name := range m.files {
		i, name := i, name
		g.Go(func() error {
			data, err := m.provider.Pull(gctx, name)
			if stderrors.Is(err, ErrRemoteMissing) {
				outcomes[i] = outcomeMissing
				return nil
			}
			if err != nil {
				return err
			}
			if strings.HasSuffix(name, ".json") {
				if err := jsonfile.Validate(name, data); err != nil {
					return internal.NewExternalError(fmt.Sprintf("remote copy of %s is unreadable: %v", name, err), internal.ErrCodeSyncFailed, err)
				}
			}
			hashes[i] = digest(data)
			payloads[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.logger.Error("sync pull failed", "provider", m.provider.Name(), "error", err)
		return nil, err
	}

	// Downloads are all in memory before anything local is replaced.
	for i, name := range m.files {
		if outcomes[i] == outcomeMissing {
			continue
		}
		local, err := os.ReadFile(filepath.Join(m.dataDir, name))
		if err == nil && digest(local) == hashes[i] {
			outcomes[i] = outcomeUnchanged
			continue
		}
		if err := jsonfile.WriteAtomic(filepath.Join(m.dataDir, name), payloads[i]); err != nil {
			return nil, internal.NewStorageError("failed to write "+name, internal.ErrCodeStorageWrite, err)
		}
		outcomes[i] = outcomeTransferred
	}

	result := m.collect(outcomes)
	m.record(state, outcomes, hashes)
	if err := m.saveState(state); err != nil {
		return nil, err
	}
	m.logger.Info("sync pull completed", "provider", m.provider.Name(), "pulled", len(result.Transferred), "unchanged", len(result.Unchanged))
	return result, nil
}

func (m *Manager) collect(outcomes []outcome) *Result {
	r := &Result{Transferred: []string{}, Unchanged: []string{}, Missing: []string{}}
	for i, o := range outcomes {
		switch o {
		case outcomeTransferred:
			r.Transferred = append(r.Transferred, m.files[i])
		case outcomeUnchanged:
			r.Unchanged = append(r.Unchanged, m.files[i])
		case outcomeMissing:
			r.Missing = append(r.Missing, m.files[i])
		}
	}
	return r
}

func (m *Manager) record(state *State, outcomes []outcome, hashes []string) {
	state.Provider = m.provider.Name()
	now := m.now()
	for i, o := range outcomes {
		if o == outcomeMissing {
			continue
		}
		state.Files[m.files[i]] = FileState{SHA256: hashes[i], SyncedAt: now}
	}
}

func (m *Manager) loadState() (*State, error) {
	state := &State{}
	if _, err := jsonfile.ReadJSON(filepath.Join(m.dataDir, StateFile), state); err != nil {
		return nil, err
	}
	if state.Files == nil {
		state.Files = map[string]FileState{}
	}
	return state, nil
}

func (m *Manager) saveState(state *State) error {
	return jsonfile.WriteJSON(filepath.Join(m.dataDir, StateFile), state)
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
