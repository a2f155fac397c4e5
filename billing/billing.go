// Package billing defines the vendor-neutral contract that every commerce
// backend wrapper implements. Concrete wrappers live in billing/google and
// billing/amazon and are selected by the purchases factory keyed on the
// store identity.
package billing

import (
	"github.com/RevenueCat/purchases-android-sub005/store"
)

// InitiationSource is the caller context of a billing operation. It
// determines the retry policy applied to vendor errors.
type InitiationSource uint8

const (
	// InitiationSourcePurchase is an interactive purchase with the user in
	// session.
	InitiationSourcePurchase InitiationSource = iota

	// InitiationSourceRestore is a user-initiated restore.
	InitiationSourceRestore

	// InitiationSourceUnsyncedActivePurchases is a silent background sync
	// of purchases not yet reported to the backend.
	InitiationSourceUnsyncedActivePurchases
)

func (s InitiationSource) String() string {
	switch s {
	case InitiationSourcePurchase:
		return "purchase"
	case InitiationSourceRestore:
		return "restore"
	case InitiationSourceUnsyncedActivePurchases:
		return "unsynced_active_purchases"
	default:
		return "unknown"
	}
}

// ConnectionState is the vendor service connection lifecycle.
type ConnectionState uint8

const (
	ConnectionStateDisconnected ConnectionState = iota
	ConnectionStateConnecting
	ConnectionStateConnected
)

// StateListener is notified when the wrapper reaches the Connected state.
type StateListener interface {
	OnConnected()
}

// PurchasesUpdatedListener receives the outcome of purchase flows launched
// through MakePurchase.
type PurchasesUpdatedListener interface {
	OnPurchasesUpdated(transactions []*store.StoreTransaction)
	OnPurchasesFailedToUpdate(err *Error)
}

// PurchasesUpdatedListenerFuncs adapts a pair of functions to
// PurchasesUpdatedListener. Either field may be nil.
type PurchasesUpdatedListenerFuncs struct {
	OnUpdated func(transactions []*store.StoreTransaction)
	OnFailed  func(err *Error)
}

func (l PurchasesUpdatedListenerFuncs) OnPurchasesUpdated(transactions []*store.StoreTransaction) {
	if l.OnUpdated != nil {
		l.OnUpdated(transactions)
	}
}

func (l PurchasesUpdatedListenerFuncs) OnPurchasesFailedToUpdate(err *Error) {
	if l.OnFailed != nil {
		l.OnFailed(err)
	}
}

// AppStateProvider reports whether the app is currently backgrounded. The
// retry executors consult it to pick backoff ceilings and to avoid
// retrying on behalf of silent background work while a user is in session.
type AppStateProvider interface {
	IsAppBackgrounded() bool
}

// AppStateProviderFunc adapts a function to AppStateProvider.
type AppStateProviderFunc func() bool

func (f AppStateProviderFunc) IsAppBackgrounded() bool { return f() }

// PurchaseParams describes an interactive purchase to launch.
type PurchaseParams struct {
	AppUserID string
	Product   *store.StoreProduct

	// OptionID selects a subscription option; empty means the product's
	// default option.
	OptionID string

	// OldProductID, when set, requests a product change from an existing
	// subscription.
	OldProductID string

	PresentedOfferingContext *store.PresentedOfferingContext
}

// Billing presents one asynchronous, callback-based contract regardless of
// which vendor backs it. Operations invoked while the wrapper is not yet
// connected queue and replay once the Connected state is reached. All
// callbacks are delivered on the wrapper's controller thread.
type Billing interface {
	// StartConnection begins connecting to the vendor billing service.
	StartConnection()

	// EndConnection tears the vendor connection down.
	EndConnection() error

	IsConnected() bool

	// SetStateListener registers the listener notified on reconnects.
	SetStateListener(listener StateListener)

	// SetPurchasesUpdatedListener registers the sink for purchase flow
	// outcomes.
	SetPurchasesUpdatedListener(listener PurchasesUpdatedListener)

	// QueryPurchases returns all currently-owned entitlements normalized to
	// StoreTransaction, keyed by store.TransactionKey of the purchase
	// token.
	QueryPurchases(appUserID string, onSuccess func(map[string]*store.StoreTransaction), onError func(*Error))

	// QueryAllPurchases returns the full purchase history, including
	// expired and canceled entitlements.
	QueryAllPurchases(appUserID string, onSuccess func([]*store.StoreTransaction), onError func(*Error))

	// QueryProductDetails fetches vendor metadata for the given product
	// identifiers. Blank identifiers are dropped before the vendor query;
	// if none remain the callback fires with an empty slice and no vendor
	// round-trip happens.
	QueryProductDetails(productType store.ProductType, productIDs []string, onReceive func([]*store.StoreProduct), onError func(*Error))

	// MakePurchase launches the vendor purchase flow. The outcome arrives
	// through the PurchasesUpdatedListener.
	MakePurchase(params PurchaseParams)

	// ConsumeAndSave finalizes a purchased transaction with the vendor when
	// shouldConsume is set, and records its token as successfully posted
	// either way. Pending transactions are never finalized.
	ConsumeAndSave(shouldConsume bool, transaction *store.StoreTransaction, source InitiationSource)

	// GetStorefront resolves the buyer's marketplace/country code and
	// caches it.
	GetStorefront(onSuccess func(countryCode string), onError func(*Error))
}
