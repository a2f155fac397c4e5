package cache

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/RevenueCat/purchases-android-sub005/store"
)

// Key namespace. Every key is prefixed so several SDK instances can share
// one underlying store without colliding.
const (
	keyPrefix = "com.revenuecat.purchases."

	amazonTermSkusKey = keyPrefix + "amazon.receiptsToSkus"
	postedTokensKey   = keyPrefix + "postedTokens"
	storefrontKey     = keyPrefix + "storefrontCountryCode"
)

// DeviceCache is the typed layer over the key-value store. It holds the
// Amazon receipt-to-term-SKU map, the set of purchase tokens already
// finalized with the vendor and reported to the backend, and the last-known
// storefront.
type DeviceCache struct {
	log   *zap.Logger
	store Store
}

func NewDeviceCache(log *zap.Logger, s Store) *DeviceCache {
	return &DeviceCache{
		log:   log,
		store: s,
	}
}

// GetReceiptTermSku resolves a vendor purchase token to the backend-resolved
// canonical product identifier, if the mapping has been cached.
func (c *DeviceCache) GetReceiptTermSku(ctx context.Context, purchaseToken string) (string, bool, error) {
	skus, err := c.receiptTermSkus(ctx)
	if err != nil {
		return "", false, err
	}

	sku, ok := skus[purchaseToken]
	return sku, ok, nil
}

// SetReceiptTermSku records a token-to-term-SKU mapping. Mappings never
// expire; an existing entry is overwritten only when the backend returns an
// updated mapping for the same token.
func (c *DeviceCache) SetReceiptTermSku(ctx context.Context, purchaseToken, termSku string) error {
	skus, err := c.receiptTermSkus(ctx)
	if err != nil {
		return err
	}

	skus[purchaseToken] = termSku

	encoded, err := json.Marshal(skus)
	if err != nil {
		return errors.Wrap(err, "failed to encode term sku map")
	}
	return c.store.Set(ctx, amazonTermSkusKey, string(encoded))
}

func (c *DeviceCache) receiptTermSkus(ctx context.Context) (map[string]string, error) {
	raw, err := c.store.Get(ctx, amazonTermSkusKey)
	if errors.Is(err, ErrNotFound) {
		return map[string]string{}, nil
	} else if err != nil {
		return nil, err
	}

	skus := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &skus); err != nil {
		// A corrupt blob is dropped rather than wedging every purchase
		// query; the mappings repopulate from the backend.
		c.log.Warn("Dropping corrupt term sku cache", zap.Error(err))
		return map[string]string{}, nil
	}
	return skus, nil
}

// AddSuccessfullyPostedToken records that a purchase token has been
// finalized with the vendor and reported to the backend. Callers must only
// invoke this after the vendor call reports success.
func (c *DeviceCache) AddSuccessfullyPostedToken(ctx context.Context, purchaseToken string) error {
	tokens, err := c.postedTokens(ctx)
	if err != nil {
		return err
	}

	hashed := store.TransactionKey(purchaseToken)
	if _, ok := tokens[hashed]; ok {
		return nil
	}
	tokens[hashed] = struct{}{}

	keys := make([]string, 0, len(tokens))
	for k := range tokens {
		keys = append(keys, k)
	}
	encoded, err := json.Marshal(keys)
	if err != nil {
		return errors.Wrap(err, "failed to encode posted token set")
	}
	return c.store.Set(ctx, postedTokensKey, string(encoded))
}

// ContainsSuccessfullyPostedToken gates whether a query-purchases pass
// needs to re-attempt vendor-side finalization for a token.
func (c *DeviceCache) ContainsSuccessfullyPostedToken(ctx context.Context, purchaseToken string) (bool, error) {
	tokens, err := c.postedTokens(ctx)
	if err != nil {
		return false, err
	}

	_, ok := tokens[store.TransactionKey(purchaseToken)]
	return ok, nil
}

func (c *DeviceCache) postedTokens(ctx context.Context) (map[string]struct{}, error) {
	raw, err := c.store.Get(ctx, postedTokensKey)
	if errors.Is(err, ErrNotFound) {
		return map[string]struct{}{}, nil
	} else if err != nil {
		return nil, err
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		c.log.Warn("Dropping corrupt posted token set", zap.Error(err))
		return map[string]struct{}{}, nil
	}

	tokens := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		tokens[k] = struct{}{}
	}
	return tokens, nil
}

// SetStorefront caches the buyer's last-known marketplace/country code.
func (c *DeviceCache) SetStorefront(ctx context.Context, countryCode string) error {
	return c.store.Set(ctx, storefrontKey, countryCode)
}

// GetStorefront returns the cached storefront, or "" when unknown.
func (c *DeviceCache) GetStorefront(ctx context.Context) (string, error) {
	value, err := c.store.Get(ctx, storefrontKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return value, err
}
