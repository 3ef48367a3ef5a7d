package main

import (
	"bytes"
	"context"
	"hash/fnv"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/litweaver/internal/config"
	"github.com/fyrsmithlabs/litweaver/internal/extraction/extractiontest"
	"github.com/fyrsmithlabs/litweaver/internal/ingest"
	"github.com/fyrsmithlabs/litweaver/internal/logging"
	"github.com/fyrsmithlabs/litweaver/internal/vectorstore"
)

// hashEmbedder returns deterministic non-zero vectors.
type hashEmbedder struct{ dim int }

func (e hashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.EmbedQuery(ctx, t)
	}
	return out, nil
}

func (e hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()
	v := make([]float32, e.dim)
	for i := range v {
		v[i] = float32((seed>>(uint(i)%24))%89+1) / 89
	}
	return v, nil
}

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// testEnv runs commands inside a temporary working directory and home.
type testEnv struct {
	dir    string
	logger *logging.TestLogger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Chdir(dir)

	env := &testEnv{dir: dir, logger: logging.NewTestLogger()}

	origLogger := newLogger
	newLogger = func(cfg *config.Config) (*logging.Logger, error) {
		if _, err := logging.FromAppConfig(cfg.Logging); err != nil {
			return nil, err
		}
		return env.logger.Logger, nil
	}
	origOpen := openStore
	openStore = func(*app) ingest.StoreOpener {
		return func(_ context.Context, path string) (vectorstore.Store, error) {
			return openTestStore(path)
		}
	}
	t.Cleanup(func() {
		newLogger = origLogger
		openStore = origOpen
	})

	return env
}

func openTestStore(path string) (vectorstore.Store, error) {
	return vectorstore.NewStore(config.VectorStoreConfig{Provider: "chromem"}, path, hashEmbedder{dim: 8}, 8, logging.NewNop())
}

func (e *testEnv) command(args ...string) (*cobra.Command, *syncBuffer) {
	out := &syncBuffer{}
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	return cmd, out
}

// run executes args and returns everything the command printed.
func (e *testEnv) run(t *testing.T, args ...string) string {
	t.Helper()
	cmd, out := e.command(args...)
	require.NoError(t, cmd.ExecuteContext(context.Background()), out.String())
	return out.String()
}

// papers returns the papers directory of project name.
func (e *testEnv) papers(name string) string {
	return filepath.Join(e.dir, "projects", name, "papers")
}

func (e *testEnv) writePDF(t *testing.T, project, file, text string) {
	t.Helper()
	extractiontest.WritePDF(t, filepath.Join(e.papers(project), file), file, text)
}
