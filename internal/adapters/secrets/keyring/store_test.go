package keyring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuuki-launcher/yuuki-core/internal/domain"
	gokeyring "github.com/zalando/go-keyring"
)

// The keyring mock provider is process global, so these tests do not run in
// parallel.

func TestStoreRoundTrip(t *testing.T) {
	gokeyring.MockInit()

	store := NewStore("yuuki-test")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "yuuki/accounts/offline-1/tokens", `{"access_token":"tok"}`))

	value, err := store.Get(ctx, "yuuki/accounts/offline-1/tokens")
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"tok"}`, value)

	require.NoError(t, store.Delete(ctx, "yuuki/accounts/offline-1/tokens"))

	_, err = store.Get(ctx, "yuuki/accounts/offline-1/tokens")
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreDeleteMissingKeyIsNoop(t *testing.T) {
	gokeyring.MockInit()

	require.NoError(t, NewStore("").Delete(context.Background(), "yuuki/accounts/missing/tokens"))
}

func TestStoreGetMapsNotFound(t *testing.T) {
	gokeyring.MockInit()

	_, err := NewStore("").Get(context.Background(), "yuuki/accounts/missing/tokens")
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
	assert.ErrorContains(t, err, "yuuki/accounts/missing/tokens")
}

func TestStoreSurfacesBackendError(t *testing.T) {
	gokeyring.MockInitWithError(assert.AnError)

	err := NewStore("").Put(context.Background(), "k", "v")
	require.ErrorIs(t, err, assert.AnError)
	assert.ErrorContains(t, err, "keyring put")
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	gokeyring.MockInit()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStore("").Get(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
}
