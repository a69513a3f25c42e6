package cloudsync_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/cloudsync"
)

func TestCloudSync(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cloud Sync Suite")
}

const remoteLedger = `[{"id":"abc12345","amount":"4.5","currency":"USD","category":"Food","note":"","date":"2024-01-05T12:30:00Z","source":"manual"}]`

var _ = Describe("Sync Manager", func() {
	var (
		ctx     context.Context
		dataDir string
		remote  string
		slogger *slog.Logger
		files   = []string{"expenses.json", "budgets.json", "recurring.json"}
	)

	BeforeEach(func() {
		ctx = context.Background()
		root := GinkgoT().TempDir()
		dataDir = filepath.Join(root, "data")
		remote = filepath.Join(root, "remote")
		Expect(os.MkdirAll(dataDir, 0o755)).To(Succeed())
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	})

	write := func(dir, name, content string) {
		Expect(os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)).To(Succeed())
	}

	read := func(dir, name string) string {
		data, err := os.ReadFile(filepath.Join(dir, name))
		Expect(err).NotTo(HaveOccurred())
		return string(data)
	}

	It("pushes present files and skips unchanged ones next time", func() {
		write(dataDir, "expenses.json", `[]`)
		write(dataDir, "budgets.json", `{"Food":"500"}`)
		manager := cloudsync.NewManager(cloudsync.NewFolder(remote), dataDir, files, 2, slogger)

		result, err := manager.Push(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Transferred).To(ConsistOf("expenses.json", "budgets.json"))
		Expect(result.Missing).To(ConsistOf("recurring.json"))
		Expect(read(remote, "budgets.json")).To(Equal(`{"Food":"500"}`))
		Expect(filepath.Join(dataDir, cloudsync.StateFile)).To(BeAnExistingFile())

		write(dataDir, "budgets.json", `{"Food":"600"}`)
		result, err = manager.Push(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Transferred).To(ConsistOf("budgets.json"))
		Expect(result.Unchanged).To(ConsistOf("expenses.json"))
	})

	It("pulls the remote copy over the local one", func() {
		Expect(os.MkdirAll(remote, 0o755)).To(Succeed())
		write(remote, "expenses.json", remoteLedger)
		write(dataDir, "expenses.json", `[]`)
		manager := cloudsync.NewManager(cloudsync.NewFolder(remote), dataDir, files, 0, slogger)

		result, err := manager.Pull(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Transferred).To(ConsistOf("expenses.json"))
		Expect(read(dataDir, "expenses.json")).To(Equal(remoteLedger))
	})

	It("refuses a remote document that is not JSON", func() {
		Expect(os.MkdirAll(remote, 0o755)).To(Succeed())
		write(remote, "expenses.json", `{broken`)
		write(dataDir, "expenses.json", `[]`)
		manager := cloudsync.NewManager(cloudsync.NewFolder(remote), dataDir, files, 0, slogger)

		_, err := manager.Pull(ctx)

		Expect(internal.IsType(err, internal.ErrorTypeExternal)).To(BeTrue())
		Expect(read(dataDir, "expenses.json")).To(Equal(`[]`))
	})

	DescribeTable("refuses a remote document the ledger could not read",
		func(name, content string) {
			Expect(os.MkdirAll(remote, 0o755)).To(Succeed())
			write(remote, name, content)
			write(dataDir, "expenses.json", `[]`)
			manager := cloudsync.NewManager(cloudsync.NewFolder(remote), dataDir, files, 0, slogger)

			_, err := manager.Pull(ctx)

			Expect(internal.IsType(err, internal.ErrorTypeExternal)).To(BeTrue())
			Expect(read(dataDir, "expenses.json")).To(Equal(`[]`))
			_, statErr := os.Stat(filepath.Join(dataDir, name))
			if name != "expenses.json" {
				Expect(os.IsNotExist(statErr)).To(BeTrue())
			}
		},
		Entry("expense without amount", "expenses.json", `[{"id":"abc","category":"Food","date":"2024-01-05"}]`),
		Entry("expenses as an object", "expenses.json", `{"id":"abc"}`),
		Entry("negative budget", "budgets.json", `{"Food":"-5"}`),
		Entry("rule without id", "recurring.json", `[{"amount":"10"}]`),
	)

	Describe("Dropbox", func() {
		var (
			server *httptest.Server
			stored map[string]string
		)

		BeforeEach(func() {
			stored = map[string]string{}
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer secret-token" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				arg := r.Header.Get("Dropbox-API-Arg")
				switch r.URL.Path {
				case "/files/upload":
					body, _ := io.ReadAll(r.Body)
					stored[arg[strings.Index(arg, `"path":"`)+8:strings.Index(arg, `","mode"`)]] = string(body)
					w.Write([]byte(`{}`))
				case "/files/download":
					p := arg[strings.Index(arg, `"path":"`)+8 : strings.LastIndex(arg, `"`)]
					content, ok := stored[p]
					if !ok {
						w.WriteHeader(http.StatusConflict)
						w.Write([]byte(`{"error_summary":"path/not_found/."}`))
						return
					}
					w.Write([]byte(content))
				default:
					w.WriteHeader(http.StatusNotFound)
				}
			}))
			DeferCleanup(server.Close)
		})

		It("round-trips files through the HTTP API", func() {
			write(dataDir, "expenses.json", remoteLedger)
			provider := cloudsync.NewDropbox(internal.DropboxSync{Token: "secret-token", Path: "/Apps/test"}, server.URL, 5*time.Second)
			manager := cloudsync.NewManager(provider, dataDir, files, 0, slogger)

			_, err := manager.Push(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(HaveKeyWithValue("/Apps/test/expenses.json", remoteLedger))

			write(dataDir, "expenses.json", `[]`)
			result, err := manager.Pull(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Missing).To(ConsistOf("budgets.json", "recurring.json"))
			Expect(read(dataDir, "expenses.json")).To(Equal(remoteLedger))
		})

		It("surfaces authentication failures", func() {
			write(dataDir, "expenses.json", `[1]`)
			provider := cloudsync.NewDropbox(internal.DropboxSync{Token: "wrong"}, server.URL, 5*time.Second)

			_, err := cloudsync.NewManager(provider, dataDir, files, 0, slogger).Push(ctx)

			Expect(internal.IsType(err, internal.ErrorTypeExternal)).To(BeTrue())
		})
	})

	Describe("Setup", func() {
		It("maps options onto config keys", func() {
			opts, err := cloudsync.ParseOptions([]string{"repo_path=/tmp/repo", "branch=trunk"})
			Expect(err).NotTo(HaveOccurred())

			cfg, settings, err := cloudsync.Setup(internal.SyncConfig{}, "git", opts)

			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Git.RepoPath).To(Equal("/tmp/repo"))
			Expect(settings).To(Equal(map[string]string{
				"sync.provider":      "git",
				"sync.git.repo_path": "/tmp/repo",
				"sync.git.branch":    "trunk",
			}))
		})

		It("rejects options the provider does not take", func() {
			_, _, err := cloudsync.Setup(internal.SyncConfig{}, "folder", map[string]string{"token": "x"})
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("rejects an incomplete provider config", func() {
			_, _, err := cloudsync.Setup(internal.SyncConfig{}, "dropbox", map[string]string{})
			Expect(err).To(MatchError(ContainSubstring("dropbox.token is required")))
		})
	})
})
