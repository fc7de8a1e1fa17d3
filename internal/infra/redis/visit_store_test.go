package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestVisitStoreCountsFromZero(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewVisitStore(newClient(mr))
	ctx := context.Background()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = store.Increment(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	n, err = store.Increment(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	got, err := mr.Get(visitsKey)
	require.NoError(t, err)
	require.Equal(t, "2", got)
}

func TestVisitStoreSurfacesErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewVisitStore(newClient(mr))
	mr.SetError("LOADING")

	_, err := store.Increment(context.Background())
	require.Error(t, err)
}
