package store

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// Store identifies which commerce backend a purchase or product came from.
type Store uint8

const (
	StoreUnknown Store = iota
	StorePlayStore
	StoreAmazonAppstore
)

func (s Store) String() string {
	switch s {
	case StorePlayStore:
		return "play_store"
	case StoreAmazonAppstore:
		return "amazon"
	default:
		return "unknown"
	}
}

// ParseStore maps a configured store name to a Store.
func ParseStore(value string) (Store, error) {
	switch value {
	case "play_store", "google":
		return StorePlayStore, nil
	case "amazon":
		return StoreAmazonAppstore, nil
	default:
		return StoreUnknown, fmt.Errorf("unknown store: %q", value)
	}
}

// ProductType distinguishes subscriptions from one-time products.
type ProductType uint8

const (
	ProductTypeUnknown ProductType = iota
	ProductTypeSubs
	ProductTypeInApp
)

func (t ProductType) String() string {
	switch t {
	case ProductTypeSubs:
		return "subs"
	case ProductTypeInApp:
		return "inapp"
	default:
		return "unknown"
	}
}

// PurchaseState is the vendor-reported state of a transaction.
type PurchaseState uint8

const (
	PurchaseStateUnspecified PurchaseState = iota
	PurchaseStatePurchased
	PurchaseStatePending
)

// PurchaseType tags which vendor produced a transaction.
type PurchaseType uint8

const (
	PurchaseTypeGoogle PurchaseType = iota
	PurchaseTypeAmazon
)

// TransactionKey derives the stable per-purchase map key for a vendor
// purchase token. The token itself is the dedup key for all downstream
// reconciliation; the hash keeps vendor payloads out of map keys and
// cache rows.
func TransactionKey(purchaseToken string) string {
	hasher := sha256.New()
	hasher.Write([]byte(purchaseToken))
	return base58.Encode(hasher.Sum(nil))
}
