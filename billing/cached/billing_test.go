package cached

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/RevenueCat/purchases-android-sub005/billing"
	"github.com/RevenueCat/purchases-android-sub005/store"
)

type fakeBilling struct {
	billing.Billing

	queries  int
	products []*store.StoreProduct
}

func (b *fakeBilling) QueryProductDetails(
	productType store.ProductType,
	productIDs []string,
	onReceive func([]*store.StoreProduct),
	onError func(*billing.Error),
) {
	b.queries++
	onReceive(b.products)
}

func TestQueryProductDetails_CachesByTypeAndIDs(t *testing.T) {
	fake := &fakeBilling{products: []*store.StoreProduct{
		{ID: "premium", Type: store.ProductTypeSubs},
	}}
	b := NewInCache(fake, time.Minute)

	query := func(productType store.ProductType, ids ...string) []*store.StoreProduct {
		var got []*store.StoreProduct
		b.QueryProductDetails(productType, ids, func(products []*store.StoreProduct) {
			got = products
		}, func(err *billing.Error) {
			t.Fatalf("unexpected error: %v", err)
		})
		return got
	}

	got := query(store.ProductTypeSubs, "premium")
	require.Len(t, got, 1)
	require.Equal(t, 1, fake.queries)

	// Same ids, any order: served from cache.
	query(store.ProductTypeSubs, "premium")
	require.Equal(t, 1, fake.queries)

	// Different product type misses.
	query(store.ProductTypeInApp, "premium")
	require.Equal(t, 2, fake.queries)

	// Different id set misses.
	query(store.ProductTypeSubs, "premium", "gold")
	require.Equal(t, 3, fake.queries)
}

func TestQueryProductDetails_CachedResultsAreIsolated(t *testing.T) {
	fake := &fakeBilling{products: []*store.StoreProduct{
		{ID: "premium", Type: store.ProductTypeSubs, Title: "Premium"},
	}}
	b := NewInCache(fake, time.Minute)

	var first []*store.StoreProduct
	b.QueryProductDetails(store.ProductTypeSubs, []string{"premium"}, func(products []*store.StoreProduct) {
		first = products
	}, nil)
	first[0].Title = "mutated"

	var second []*store.StoreProduct
	b.QueryProductDetails(store.ProductTypeSubs, []string{"premium"}, func(products []*store.StoreProduct) {
		second = products
	}, nil)

	require.Equal(t, "Premium", second[0].Title)
	require.Equal(t, 1, fake.queries)
}
