// Package amazon wraps an Amazon Appstore-style purchasing service behind
// the vendor-neutral billing contract. The vendor's native receipt does not
// carry the true subscribed product identifier; that is resolved through
// the backend and cached on device.
package amazon

import "time"

// RequestStatus is the vendor's outcome for every async call.
type RequestStatus int

const (
	RequestStatusSuccessful RequestStatus = iota
	RequestStatusFailed
	RequestStatusNotSupported
)

// ProductType is the vendor product classification.
type ProductType string

const (
	ProductTypeConsumable   ProductType = "CONSUMABLE"
	ProductTypeEntitled     ProductType = "ENTITLED"
	ProductTypeSubscription ProductType = "SUBSCRIPTION"
)

// FulfillmentResult is reported back to the vendor after delivering a
// purchase.
type FulfillmentResult string

const (
	FulfillmentResultFulfilled   FulfillmentResult = "FULFILLED"
	FulfillmentResultUnavailable FulfillmentResult = "UNAVAILABLE"
)

// Receipt is the vendor-native purchase record. The receipt id doubles as
// the purchase token. TermSku is absent on native receipts by design.
type Receipt struct {
	ReceiptID    string
	Sku          string
	ProductType  ProductType
	PurchaseDate time.Time

	// CancelDate is set once the subscription is canceled. A canceled
	// subscription stays active until this date passes.
	CancelDate *time.Time
}

// UserData identifies the vendor account and its marketplace.
type UserData struct {
	UserID      string
	Marketplace string
}

// Product is the vendor-native product metadata record. Price is a
// formatted display string whose decimal separator and currency symbol
// placement vary by marketplace.
type Product struct {
	Sku         string
	ProductType ProductType
	Title       string
	Description string
	Price       string
}

type PurchaseUpdatesResponse struct {
	RequestStatus RequestStatus
	UserData      UserData
	Receipts      []Receipt
}

type ProductDataResponse struct {
	RequestStatus   RequestStatus
	Products        map[string]Product
	UnavailableSkus []string
}

type PurchaseResponse struct {
	RequestStatus RequestStatus
	UserData      UserData
	Receipt       Receipt
}

type UserDataResponse struct {
	RequestStatus RequestStatus
	UserData      UserData
}

// Client is the asynchronous vendor purchasing service surface. Unlike the
// Google-style service there is no connection lifecycle; the service is
// process-local and always reachable.
type Client interface {
	GetPurchaseUpdates(reset bool, listener func(PurchaseUpdatesResponse))
	GetProductData(skus []string, listener func(ProductDataResponse))
	Purchase(sku string, listener func(PurchaseResponse))
	NotifyFulfillment(receiptID string, result FulfillmentResult)
	GetUserData(listener func(UserDataResponse))
}
