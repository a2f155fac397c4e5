package purchases

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RevenueCat/purchases-android-sub005/backend"
	"github.com/RevenueCat/purchases-android-sub005/billing"
	"github.com/RevenueCat/purchases-android-sub005/cache"
	"github.com/RevenueCat/purchases-android-sub005/cache/memory"
	"github.com/RevenueCat/purchases-android-sub005/store"
)

type consumeCall struct {
	shouldConsume bool
	token         string
	source        billing.InitiationSource
}

type fakeBilling struct {
	billing.Billing

	purchases map[string]*store.StoreTransaction
	history   []*store.StoreTransaction

	mu       sync.Mutex
	consumed []consumeCall
}

func (b *fakeBilling) QueryPurchases(
	appUserID string,
	onSuccess func(map[string]*store.StoreTransaction),
	onError func(*billing.Error),
) {
	onSuccess(b.purchases)
}

func (b *fakeBilling) QueryAllPurchases(
	appUserID string,
	onSuccess func([]*store.StoreTransaction),
	onError func(*billing.Error),
) {
	onSuccess(b.history)
}

func (b *fakeBilling) ConsumeAndSave(shouldConsume bool, transaction *store.StoreTransaction, source billing.InitiationSource) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consumed = append(b.consumed, consumeCall{
		shouldConsume: shouldConsume,
		token:         transaction.PurchaseToken,
		source:        source,
	})
}

func (b *fakeBilling) consumeCalls() []consumeCall {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]consumeCall(nil), b.consumed...)
}

type orchestratorHarness struct {
	orchestrator *Orchestrator
	billing      *fakeBilling
	deviceCache  *cache.DeviceCache

	mu           sync.Mutex
	postedTokens []string
}

func newOrchestratorHarness(t *testing.T) *orchestratorHarness {
	t.Helper()

	h := &orchestratorHarness{
		billing: &fakeBilling{purchases: map[string]*store.StoreTransaction{}},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		h.mu.Lock()
		h.postedTokens = append(h.postedTokens, body["fetch_token"])
		h.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	t.Cleanup(server.Close)

	h.deviceCache = cache.NewDeviceCache(zap.NewNop(), memory.NewInMemory())
	h.orchestrator = NewOrchestrator(
		zap.NewNop(),
		h.billing,
		h.deviceCache,
		backend.NewClient("test-key", server.URL+"/v1/"),
		"user-1",
	)
	return h
}

func (h *orchestratorHarness) posted() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]string(nil), h.postedTokens...)
}

func transaction(token string, state store.PurchaseState) *store.StoreTransaction {
	return &store.StoreTransaction{
		ProductIDs:    []string{"premium"},
		ProductType:   store.ProductTypeSubs,
		PurchaseToken: token,
		PurchaseState: state,
		PurchaseType:  store.PurchaseTypeGoogle,
	}
}

func awaitCount(t *testing.T, run func(onComplete func(int), onError func(*billing.Error))) int {
	t.Helper()

	countCh := make(chan int, 1)
	run(func(n int) {
		countCh <- n
	}, func(err *billing.Error) {
		t.Errorf("unexpected error: %v", err)
	})

	select {
	case n := <-countCh:
		return n
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
		return 0
	}
}

func TestOrchestrator_SyncUnsyncedPurchases(t *testing.T) {
	h := newOrchestratorHarness(t)
	ctx := context.Background()

	newTx := transaction("new-token", store.PurchaseStatePurchased)
	postedTx := transaction("posted-token", store.PurchaseStatePurchased)
	pendingTx := transaction("pending-token", store.PurchaseStatePending)
	h.billing.purchases = map[string]*store.StoreTransaction{
		newTx.Key():     newTx,
		postedTx.Key():  postedTx,
		pendingTx.Key(): pendingTx,
	}
	require.NoError(t, h.deviceCache.AddSuccessfullyPostedToken(ctx, "posted-token"))

	synced := awaitCount(t, h.orchestrator.SyncUnsyncedPurchases)

	// Only the not-yet-posted, non-pending purchase goes to the backend.
	require.Equal(t, 1, synced)
	require.Equal(t, []string{"new-token"}, h.posted())

	calls := h.billing.consumeCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "new-token", calls[0].token)
	require.True(t, calls[0].shouldConsume)
	require.Equal(t, billing.InitiationSourceUnsyncedActivePurchases, calls[0].source)
}

func TestOrchestrator_SyncWithNothingUnsynced(t *testing.T) {
	h := newOrchestratorHarness(t)
	postedTx := transaction("posted-token", store.PurchaseStatePurchased)
	h.billing.purchases = map[string]*store.StoreTransaction{postedTx.Key(): postedTx}
	require.NoError(t, h.deviceCache.AddSuccessfullyPostedToken(context.Background(), "posted-token"))

	synced := awaitCount(t, h.orchestrator.SyncUnsyncedPurchases)
	require.Zero(t, synced)
	require.Empty(t, h.posted())
}

func TestOrchestrator_RestoreRepostsEverything(t *testing.T) {
	h := newOrchestratorHarness(t)
	ctx := context.Background()

	h.billing.history = []*store.StoreTransaction{
		transaction("token-1", store.PurchaseStatePurchased),
		transaction("token-2", store.PurchaseStatePurchased),
	}
	// Restore exists to repair backend state: already-posted tokens are
	// posted again.
	require.NoError(t, h.deviceCache.AddSuccessfullyPostedToken(ctx, "token-1"))

	restored := awaitCount(t, h.orchestrator.RestorePurchases)

	require.Equal(t, 2, restored)
	require.ElementsMatch(t, []string{"token-1", "token-2"}, h.posted())

	calls := h.billing.consumeCalls()
	require.Len(t, calls, 2)
	for _, call := range calls {
		require.False(t, call.shouldConsume)
		require.Equal(t, billing.InitiationSourceRestore, call.source)
	}
}
