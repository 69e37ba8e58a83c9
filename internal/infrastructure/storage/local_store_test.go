package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	invoiceapp "github.com/wellnest/backend/internal/application/invoice"
)

func TestLocalStore_PutAndPresign(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "archive"))
	require.NoError(t, err)
	ctx := context.Background()

	key := invoiceapp.ArchiveKey("WN-a1b2c3d4")
	pdf := []byte("%PDF-1.4 test")
	require.NoError(t, store.Put(ctx, key, pdf, "application/pdf"))

	written, err := os.ReadFile(filepath.Join(dir, "archive", "invoices", "WN-a1b2c3d4.pdf"))
	require.NoError(t, err)
	assert.Equal(t, pdf, written)

	link, expiresAt, err := store.PresignGet(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "file://"))
	assert.True(t, strings.HasSuffix(link, "invoices/WN-a1b2c3d4.pdf"))
	assert.True(t, expiresAt.After(time.Now()))
}

func TestLocalStore_Rejects(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, store.Put(ctx, "", []byte("x"), "application/pdf"))
	assert.Error(t, store.Put(ctx, "../escape.pdf", []byte("x"), "application/pdf"))

	_, _, err = store.PresignGet(ctx, "invoices/missing.pdf", time.Hour)
	assert.Error(t, err)

	_, err = NewLocalStore("")
	assert.Error(t, err)
}
