// Package cached decorates a billing wrapper with a short-lived
// read-through cache for product details, so rapid paywall re-renders do
// not hammer the vendor service.
package cached

import (
	"sort"
	"strings"
	"time"

	"github.com/ReneKroon/ttlcache"

	"github.com/RevenueCat/purchases-android-sub005/billing"
	"github.com/RevenueCat/purchases-android-sub005/store"
)

type Billing struct {
	billing.Billing

	products *ttlcache.Cache
}

func NewInCache(wrapped billing.Billing, ttl time.Duration) *Billing {
	products := ttlcache.NewCache()
	products.SetTTL(ttl)
	return &Billing{
		Billing:  wrapped,
		products: products,
	}
}

func (b *Billing) QueryProductDetails(
	productType store.ProductType,
	productIDs []string,
	onReceive func([]*store.StoreProduct),
	onError func(*billing.Error),
) {
	cacheKey := toCacheKey(productType, productIDs)

	if cached, ok := b.products.Get(cacheKey); ok {
		onReceive(cloneProducts(cached.([]*store.StoreProduct)))
		return
	}

	b.Billing.QueryProductDetails(productType, productIDs, func(products []*store.StoreProduct) {
		b.products.Set(cacheKey, cloneProducts(products))
		onReceive(products)
	}, onError)
}

func toCacheKey(productType store.ProductType, productIDs []string) string {
	ids := append([]string(nil), productIDs...)
	sort.Strings(ids)
	return productType.String() + ":" + strings.Join(ids, ",")
}

func cloneProducts(products []*store.StoreProduct) []*store.StoreProduct {
	cloned := make([]*store.StoreProduct, 0, len(products))
	for _, p := range products {
		cloned = append(cloned, p.Clone())
	}
	return cloned
}
