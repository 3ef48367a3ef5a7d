//go:build !cgo

package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProvider_FastEmbedWithoutCGO(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Provider: "fastembed", Model: "BAAI/bge-small-en-v1.5"})
	assert.ErrorIs(t, err, ErrFastEmbedNotAvailable)
	assert.Nil(t, p)

	var stub FastEmbedProvider
	_, err = stub.EmbedDocuments(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrFastEmbedNotAvailable)
	assert.Zero(t, stub.Dimension())
	assert.NoError(t, stub.Close())
}
