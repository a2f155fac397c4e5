package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RevenueCat/purchases-android-sub005/cache"
)

func RunStoreTests(t *testing.T, s cache.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s cache.Store){
		testStore_GetSet,
		testStore_Overwrite,
		testStore_Delete,
		testDeviceCache_TermSkus,
		testDeviceCache_PostedTokens,
		testDeviceCache_Storefront,
	} {
		tf(t, s)
		teardown()
	}
}

func testStore_GetSet(t *testing.T, s cache.Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, cache.ErrNotFound)

	require.NoError(t, s.Set(ctx, "a", "1"))

	value, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "1", value)
}

func testStore_Overwrite(t *testing.T, s cache.Store) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "a", "2"))

	value, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "2", value)
}

func testStore_Delete(t *testing.T, s cache.Store) {
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, "absent"))

	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Delete(ctx, "a"))

	_, err := s.Get(ctx, "a")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func testDeviceCache_TermSkus(t *testing.T, s cache.Store) {
	ctx := context.Background()
	dc := cache.NewDeviceCache(zap.NewNop(), s)

	_, ok, err := dc.GetReceiptTermSku(ctx, "receipt-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, dc.SetReceiptTermSku(ctx, "receipt-1", "premium.monthly"))
	require.NoError(t, dc.SetReceiptTermSku(ctx, "receipt-2", "premium.annual"))

	sku, ok, err := dc.GetReceiptTermSku(ctx, "receipt-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "premium.monthly", sku)

	// Backend re-resolution overwrites the mapping for the same token.
	require.NoError(t, dc.SetReceiptTermSku(ctx, "receipt-1", "premium.weekly"))
	sku, ok, err = dc.GetReceiptTermSku(ctx, "receipt-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "premium.weekly", sku)
}

func testDeviceCache_PostedTokens(t *testing.T, s cache.Store) {
	ctx := context.Background()
	dc := cache.NewDeviceCache(zap.NewNop(), s)

	ok, err := dc.ContainsSuccessfullyPostedToken(ctx, "token-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, dc.AddSuccessfullyPostedToken(ctx, "token-1"))
	require.NoError(t, dc.AddSuccessfullyPostedToken(ctx, "token-1"))

	ok, err = dc.ContainsSuccessfullyPostedToken(ctx, "token-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = dc.ContainsSuccessfullyPostedToken(ctx, "token-2")
	require.NoError(t, err)
	require.False(t, ok)
}

func testDeviceCache_Storefront(t *testing.T, s cache.Store) {
	ctx := context.Background()
	dc := cache.NewDeviceCache(zap.NewNop(), s)

	country, err := dc.GetStorefront(ctx)
	require.NoError(t, err)
	require.Empty(t, country)

	require.NoError(t, dc.SetStorefront(ctx, "US"))

	country, err = dc.GetStorefront(ctx)
	require.NoError(t, err)
	require.Equal(t, "US", country)
}
