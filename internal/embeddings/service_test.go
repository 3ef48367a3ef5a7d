package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/litweaver/internal/vectorstore"
)

var _ vectorstore.Embedder = (*Service)(nil)

// newTEIServer answers /embed with one 3-dim vector per input.
func newTEIServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		if r.URL.Path != "/embed" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Inputs   json.RawMessage `json:"inputs"`
			Truncate bool            `json:"truncate"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		assert.True(t, req.Truncate)

		var inputs []string
		if err := json.Unmarshal(req.Inputs, &inputs); err != nil {
			var single string
			if err := json.Unmarshal(req.Inputs, &single); err != nil {
				http.Error(w, "bad inputs", http.StatusBadRequest)
				return
			}
			inputs = []string{single}
		}

		out := make([][]float32, len(inputs))
		for i, in := range inputs {
			out[i] = []float32{float32(len(in)), float32(i), 1}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}))
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name       string
		config     Config
		wantErr    bool
		errMessage string
	}{
		{
			name:   "valid configuration",
			config: Config{BaseURL: "http://localhost:8080", Model: "BAAI/bge-small-en-v1.5"},
		},
		{
			name:   "trailing slash",
			config: Config{BaseURL: "https://tei.internal/"},
		},
		{
			name:       "empty base URL",
			config:     Config{Model: "test"},
			wantErr:    true,
			errMessage: "base URL required",
		},
		{
			name:       "missing scheme",
			config:     Config{BaseURL: "localhost:8080"},
			wantErr:    true,
			errMessage: "http://",
		},
		{
			name:       "negative rate",
			config:     Config{BaseURL: "http://localhost:8080", RequestsPerSecond: -1},
			wantErr:    true,
			errMessage: "negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewService(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.errMessage)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, service)
		})
	}
}

func TestService_EmbedDocuments(t *testing.T) {
	srv := newTEIServer(t, nil)
	defer srv.Close()

	service, err := NewService(Config{BaseURL: srv.URL + "/", Model: "test"})
	require.NoError(t, err)

	vectors, err := service.EmbedDocuments(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{2, 1, 1}, vectors[1])
}

func TestService_EmbedDocuments_EmptyInput(t *testing.T) {
	service, err := NewService(Config{BaseURL: "http://localhost:1"})
	require.NoError(t, err)

	_, err = service.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = service.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestService_EmbedQuery(t *testing.T) {
	srv := newTEIServer(t, nil)
	defer srv.Close()

	service, err := NewService(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	vec, err := service.EmbedQuery(context.Background(), "four")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 0, 1}, vec)
}

func TestService_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	service, err := NewService(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = service.EmbedDocuments(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestService_VectorCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[[1,2,3]]`))
	}))
	defer srv.Close()

	service, err := NewService(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = service.EmbedDocuments(context.Background(), []string{"x", "y"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestService_ContextCancelled(t *testing.T) {
	var calls int32
	srv := newTEIServer(t, &calls)
	defer srv.Close()

	service, err := NewService(Config{BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = service.EmbedDocuments(ctx, []string{"x"})
	require.Error(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
