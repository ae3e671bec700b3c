package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwas-risk-engine/internal/domain"
)

func TestMemoryStore_PutAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	genotype := domain.GenotypeMap{"rs1": "AG", "rs2": "CC"}
	require.NoError(t, store.Put(ctx, "session-1", genotype))

	got, err := store.Get(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, genotype, got)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStore_PutReplacesWholesale(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "session-1", domain.GenotypeMap{"rs1": "AG"}))
	require.NoError(t, store.Put(ctx, "session-1", domain.GenotypeMap{"rs2": "CC"}))

	got, err := store.Get(ctx, "session-1")
	require.NoError(t, err)
	assert.NotContains(t, got, "rs1")
	assert.Equal(t, "CC", got["rs2"])
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "session-1", domain.GenotypeMap{"rs1": "AG"}))
	require.NoError(t, store.Delete(ctx, "session-1"))

	_, err := store.Get(ctx, "session-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting an absent session is not an error.
	assert.NoError(t, store.Delete(ctx, "session-1"))
}

func TestMemoryStore_SessionsAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a", domain.GenotypeMap{"rs1": "AG"}))
	require.NoError(t, store.Put(ctx, "b", domain.GenotypeMap{"rs1": "TT"}))

	a, err := store.Get(ctx, "a")
	require.NoError(t, err)
	b, err := store.Get(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, "AG", a["rs1"])
	assert.Equal(t, "TT", b["rs1"])
}
