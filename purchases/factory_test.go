package purchases

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RevenueCat/purchases-android-sub005/billing"
	"github.com/RevenueCat/purchases-android-sub005/billing/cached"
	googlememory "github.com/RevenueCat/purchases-android-sub005/billing/google/memory"
	"github.com/RevenueCat/purchases-android-sub005/cache/memory"
	"github.com/RevenueCat/purchases-android-sub005/dispatch"
	"github.com/RevenueCat/purchases-android-sub005/store"
)

func testDeps() Deps {
	return Deps{
		Log:        zap.NewNop(),
		AppState:   billing.AppStateProviderFunc(func() bool { return false }),
		Dispatcher: dispatch.NewSynchronous(),
		CacheStore: memory.NewInMemory(),
	}
}

func TestNewBilling_PlayStore(t *testing.T) {
	deps := testDeps()
	deps.GoogleClient = googlememory.NewInMemory("US")

	b, err := NewBilling(store.StorePlayStore, Config{}, deps)
	require.NoError(t, err)
	require.NotNil(t, b)
}

func TestNewBilling_PlayStoreRequiresGoogleClient(t *testing.T) {
	_, err := NewBilling(store.StorePlayStore, Config{}, testDeps())
	require.Error(t, err)
}

func TestNewBilling_AmazonRequiresAmazonClient(t *testing.T) {
	_, err := NewBilling(store.StoreAmazonAppstore, Config{}, testDeps())
	require.Error(t, err)
}

func TestNewBilling_UnknownStoreIsAnErrorNotAFallback(t *testing.T) {
	deps := testDeps()
	deps.GoogleClient = googlememory.NewInMemory("US")

	_, err := NewBilling(store.StoreUnknown, Config{}, deps)
	require.Error(t, err)
}

func TestNewBilling_ProductCacheDecorator(t *testing.T) {
	deps := testDeps()
	deps.GoogleClient = googlememory.NewInMemory("US")

	b, err := NewBilling(store.StorePlayStore, Config{ProductDetailsCacheTTL: 0}, deps)
	require.NoError(t, err)
	_, isCached := b.(*cached.Billing)
	require.False(t, isCached)

	b, err = NewBilling(store.StorePlayStore, Config{ProductDetailsCacheTTL: time.Minute}, deps)
	require.NoError(t, err)
	_, isCached = b.(*cached.Billing)
	require.True(t, isCached)
}

func TestConfig_StoreType(t *testing.T) {
	require.Equal(t, store.StorePlayStore, Config{Store: "play_store"}.StoreType())
	require.Equal(t, store.StoreAmazonAppstore, Config{Store: "amazon"}.StoreType())
	require.Equal(t, store.StoreUnknown, Config{Store: "bogus"}.StoreType())
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("PURCHASES_API_KEY", "test-key")
	t.Setenv("PURCHASES_STORE", "amazon")
	t.Setenv("PURCHASES_PRODUCT_CACHE_TTL", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "test-key", cfg.APIKey)
	require.Equal(t, store.StoreAmazonAppstore, cfg.StoreType())
	require.Equal(t, "30s", cfg.ProductDetailsCacheTTL.String())
}

func TestLoadConfig_RejectsUnknownStore(t *testing.T) {
	t.Setenv("PURCHASES_API_KEY", "test-key")
	t.Setenv("PURCHASES_STORE", "app_store")

	_, err := LoadConfig()
	require.Error(t, err)
}
