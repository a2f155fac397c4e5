// Package google wraps a Google Play-style billing service behind the
// vendor-neutral billing contract. The vendor service itself is reachable
// only through the asynchronous Client surface below; production bindings
// and test fakes both implement it.
package google

// ResponseCode mirrors the vendor billing service response codes.
type ResponseCode int32

const (
	ResponseCodeServiceDisconnected ResponseCode = -1
	ResponseCodeOK                  ResponseCode = 0
	ResponseCodeUserCanceled        ResponseCode = 1
	ResponseCodeServiceUnavailable  ResponseCode = 2
	ResponseCodeBillingUnavailable  ResponseCode = 3
	ResponseCodeItemUnavailable     ResponseCode = 4
	ResponseCodeDeveloperError      ResponseCode = 5
	ResponseCodeError               ResponseCode = 6
	ResponseCodeItemAlreadyOwned    ResponseCode = 7
	ResponseCodeItemNotOwned        ResponseCode = 8
	ResponseCodeNetworkError        ResponseCode = 12
)

// BillingResult is the vendor's outcome envelope for every async call.
type BillingResult struct {
	ResponseCode ResponseCode
	DebugMessage string
}

// Vendor purchase states.
const (
	purchaseStateUnspecified = 0
	purchaseStatePurchased   = 1
	purchaseStatePending     = 2
)

// Purchase is the vendor-native purchase record. A single purchase may
// bundle several products.
type Purchase struct {
	OrderID        string
	Products       []string
	PurchaseToken  string
	PurchaseTime   int64 // epoch millis
	PurchaseState  int
	IsAcknowledged bool
	IsAutoRenewing bool
	Signature      string
	OriginalJSON   string
}

// Vendor product type strings, as used in query contexts.
const (
	productTypeSubs  = "subs"
	productTypeInApp = "inapp"
)

// Vendor recurrence modes.
const (
	recurrenceModeInfinite     = 1
	recurrenceModeFinite       = 2
	recurrenceModeNonRecurring = 3
)

// PricingPhase is one step of a vendor subscription offer.
type PricingPhase struct {
	BillingPeriod     string
	PriceAmountMicros int64
	PriceCurrencyCode string
	FormattedPrice    string
	BillingCycleCount int
	RecurrenceMode    int
}

// SubscriptionOffer is one purchasable configuration of a vendor
// subscription product.
type SubscriptionOffer struct {
	BasePlanID    string
	OfferID       string
	OfferToken    string
	PricingPhases []PricingPhase
}

// OneTimePurchaseOffer is the price details of a one-time product.
type OneTimePurchaseOffer struct {
	PriceAmountMicros int64
	PriceCurrencyCode string
	FormattedPrice    string
}

// ProductDetails is the vendor-native product metadata record.
type ProductDetails struct {
	ProductID            string
	ProductType          string
	Title                string
	Description          string
	OneTimePurchaseOffer *OneTimePurchaseOffer
	SubscriptionOffers   []SubscriptionOffer
}

// BillingConfig carries storefront information.
type BillingConfig struct {
	CountryCode string
}

// FlowParams describes a purchase flow launch.
type FlowParams struct {
	ProductID    string
	ProductType  string
	OfferToken   string
	OldProductID string
	AppUserID    string
}

// ClientStateListener is notified of vendor connection lifecycle changes.
type ClientStateListener interface {
	OnBillingSetupFinished(result BillingResult)
	OnBillingServiceDisconnected()
}

type (
	PurchasesResponseListener      func(result BillingResult, purchases []Purchase)
	ProductDetailsResponseListener func(result BillingResult, products []ProductDetails)
	AcknowledgeResponseListener    func(result BillingResult)
	ConsumeResponseListener        func(result BillingResult, purchaseToken string)
	BillingConfigResponseListener  func(result BillingResult, config *BillingConfig)
	PurchasesUpdatedListener       func(result BillingResult, purchases []Purchase)
)

// Client is the asynchronous vendor billing service surface. Listeners may
// be invoked from arbitrary vendor threads, and vendors are documented to
// sometimes double-fire them; the wrapper guards against both.
type Client interface {
	StartConnection(listener ClientStateListener)
	EndConnection() error
	IsReady() bool

	SetPurchasesUpdatedListener(listener PurchasesUpdatedListener)

	QueryPurchasesAsync(productType string, listener PurchasesResponseListener)
	QueryPurchaseHistoryAsync(productType string, listener PurchasesResponseListener)
	QueryProductDetailsAsync(productType string, productIDs []string, listener ProductDetailsResponseListener)
	LaunchBillingFlow(params FlowParams) BillingResult
	AcknowledgePurchase(purchaseToken string, listener AcknowledgeResponseListener)
	ConsumePurchase(purchaseToken string, listener ConsumeResponseListener)
	GetBillingConfig(listener BillingConfigResponseListener)
}
