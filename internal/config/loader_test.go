package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestHome points HOME at a temp dir and returns the litweaver config dir inside it.
func setupTestHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	configDir := filepath.Join(home, ".config", "litweaver")
	require.NoError(t, os.MkdirAll(configDir, 0700))
	return configDir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	setupTestHome(t)

	cfg, err := LoadWithFile("")
	require.NoError(t, err)

	assert.Equal(t, "projects", cfg.Projects.BaseDir)
	assert.Equal(t, 1000, cfg.Chunking.ChunkSize)
	assert.Equal(t, 200, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, "fastembed", cfg.Embeddings.Provider)
	assert.Equal(t, "BAAI/bge-small-en-v1.5", cfg.Embeddings.Model)
	assert.Equal(t, 60*time.Second, cfg.Embeddings.Timeout.Duration())
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
	assert.Equal(t, 64, cfg.VectorStore.BatchSize)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	dir := setupTestHome(t)

	path := writeConfig(t, dir, `projects:
  base_dir: research
chunking:
  chunk_size: 500
  chunk_overlap: 50
embeddings:
  provider: tei
  base_url: http://localhost:8080
  timeout: 5s
vectorstore:
  provider: qdrant
  qdrant_host: qdrant.local
  qdrant_port: 6334
`, 0600)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "research", cfg.Projects.BaseDir)
	assert.Equal(t, 500, cfg.Chunking.ChunkSize)
	assert.Equal(t, 50, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, "tei", cfg.Embeddings.Provider)
	assert.Equal(t, "http://localhost:8080", cfg.Embeddings.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Embeddings.Timeout.Duration())
	assert.Equal(t, "qdrant", cfg.VectorStore.Provider)
	assert.Equal(t, "qdrant.local", cfg.VectorStore.QdrantHost)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	dir := setupTestHome(t)

	path := writeConfig(t, dir, `projects:
  base_dir: from-file
`, 0600)

	t.Setenv("LITWEAVER_PROJECTS_BASE_DIR", "from-env")
	t.Setenv("LITWEAVER_CHUNKING_CHUNK_SIZE", "800")
	t.Setenv("LITWEAVER_EMBEDDINGS_API_KEY", "sk-secret")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Projects.BaseDir)
	assert.Equal(t, 800, cfg.Chunking.ChunkSize)
	assert.Equal(t, "sk-secret", cfg.Embeddings.APIKey.Value())
	assert.Equal(t, "[REDACTED]", cfg.Embeddings.APIKey.String())
}

func TestLoadWithFile_RejectsPathOutsideAllowedDirs(t *testing.T) {
	setupTestHome(t)

	_, err := LoadWithFile(filepath.Join(t.TempDir(), "config.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config path validation failed")
}

func TestLoadWithFile_RejectsInsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission model differs on windows")
	}
	dir := setupTestHome(t)

	path := writeConfig(t, dir, "projects:\n  base_dir: x\n", 0644)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoadWithFile_InvalidValues(t *testing.T) {
	dir := setupTestHome(t)

	path := writeConfig(t, dir, `embeddings:
  provider: word2vec
`, 0600)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported embeddings provider")
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"LITWEAVER_PROJECTS_BASE_DIR", "projects.base_dir"},
		{"LITWEAVER_EMBEDDINGS_REQUESTS_PER_SECOND", "embeddings.requests_per_second"},
		{"LITWEAVER_VECTORSTORE_QDRANT_HOST", "vectorstore.qdrant_host"},
		{"LITWEAVER_DEBUG", "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, envKey(tt.in))
		})
	}
}
