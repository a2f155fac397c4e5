package amazon

import (
	"encoding/json"
	"time"

	"github.com/RevenueCat/purchases-android-sub005/store"
)

func toProductType(vendorType ProductType) store.ProductType {
	switch vendorType {
	case ProductTypeSubscription:
		return store.ProductTypeSubs
	case ProductTypeConsumable, ProductTypeEntitled:
		return store.ProductTypeInApp
	default:
		return store.ProductTypeUnknown
	}
}

// isActiveAt reports whether the receipt's entitlement is live at the given
// instant. A canceled-but-not-yet-expired subscription is still active: the
// comparison is against now, not against the mere presence of a
// cancellation date.
func (r Receipt) isActiveAt(now time.Time) bool {
	return r.CancelDate == nil || r.CancelDate.After(now)
}

// toStoreTransaction normalizes a vendor receipt. The receipt id is the
// purchase token; productID is the resolved term SKU for subscriptions and
// the native SKU otherwise. Auto-renewing is derived: true only for
// subscription-type products with no cancellation date.
func toStoreTransaction(r Receipt, productID string, userData UserData) *store.StoreTransaction {
	productType := toProductType(r.ProductType)

	autoRenewing := false
	if productType == store.ProductTypeSubs {
		autoRenewing = r.CancelDate == nil
	}

	raw, _ := json.Marshal(map[string]any{
		"receiptId":    r.ReceiptID,
		"sku":          r.Sku,
		"productType":  string(r.ProductType),
		"purchaseDate": r.PurchaseDate.UnixMilli(),
	})

	return &store.StoreTransaction{
		ProductIDs:     []string{productID},
		ProductType:    productType,
		PurchaseToken:  r.ReceiptID,
		PurchaseTime:   r.PurchaseDate,
		PurchaseState:  store.PurchaseStatePurchased,
		IsAutoRenewing: autoRenewing,
		StoreUserID:    userData.UserID,
		Marketplace:    userData.Marketplace,
		OriginalJSON:   string(raw),
		PurchaseType:   store.PurchaseTypeAmazon,
	}
}

// toStoreProduct normalizes vendor product metadata. The vendor has no
// subscription-option granularity; subscriptions carry the price alone and
// term SKUs are derived from backend receipt data at purchase-query time.
func toStoreProduct(p Product, marketplace string) (*store.StoreProduct, error) {
	price, err := parsePrice(p.Price, marketplace)
	if err != nil {
		return nil, err
	}

	return &store.StoreProduct{
		ID:          p.Sku,
		Type:        toProductType(p.ProductType),
		Title:       p.Title,
		Description: p.Description,
		Price:       price,
	}, nil
}
