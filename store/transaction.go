package store

import "time"

// PresentedOfferingContext records which merchandising context led to a
// purchase. May be absent on transactions restored from the store.
type PresentedOfferingContext struct {
	OfferingID        string
	PlacementID       string
	TargetingRevision int
	TargetingRuleID   string
}

func (c *PresentedOfferingContext) Clone() *PresentedOfferingContext {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// StoreTransaction is the vendor-neutral representation of a completed or
// pending purchase. PurchaseToken is globally unique per vendor and is the
// dedup key for all downstream reconciliation.
type StoreTransaction struct {
	// ProductIDs lists every SKU bundled in the purchase. Google purchases
	// may carry several; Amazon receipts always carry one.
	ProductIDs []string

	ProductType   ProductType
	PurchaseToken string
	PurchaseTime  time.Time
	PurchaseState PurchaseState

	// IsAutoRenewing is only meaningful for subscriptions. For Amazon it is
	// derived from the absence of a cancellation date.
	IsAutoRenewing bool

	PresentedOfferingContext *PresentedOfferingContext

	// StoreUserID is the vendor account id. Amazon-only concept.
	StoreUserID string

	// Marketplace is the buyer's storefront country code, when known.
	Marketplace string

	// Signature is the vendor-signed proof of purchase, when the vendor
	// provides one.
	Signature string

	// OriginalJSON preserves the raw vendor payload for audit.
	OriginalJSON string

	PurchaseType PurchaseType
}

func (t *StoreTransaction) Clone() *StoreTransaction {
	clone := *t
	clone.ProductIDs = append([]string(nil), t.ProductIDs...)
	clone.PresentedOfferingContext = t.PresentedOfferingContext.Clone()
	return &clone
}

// Key returns the stable per-purchase map key used by query results and
// the posted-token bookkeeping.
func (t *StoreTransaction) Key() string {
	return TransactionKey(t.PurchaseToken)
}
