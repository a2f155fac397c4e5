package amazon

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RevenueCat/purchases-android-sub005/billing"
	"github.com/RevenueCat/purchases-android-sub005/cache"
	"github.com/RevenueCat/purchases-android-sub005/diagnostics"
	"github.com/RevenueCat/purchases-android-sub005/dispatch"
	"github.com/RevenueCat/purchases-android-sub005/store"
)

// ReceiptBackend resolves the canonical product identifier for a vendor
// receipt. Implemented by backend.Client.
type ReceiptBackend interface {
	GetAmazonReceiptData(ctx context.Context, storeUserID, receiptID string) (termSku string, err error)
}

// Wrapper implements billing.Billing on top of an Amazon Appstore-style
// purchasing service. The vendor service has no connection lifecycle, so
// the wrapper reports Connected as soon as StartConnection runs.
type Wrapper struct {
	log         *zap.Logger
	client      Client
	dispatcher  dispatch.Dispatcher
	deviceCache *cache.DeviceCache
	backend     ReceiptBackend
	tracker     diagnostics.Tracker

	mu                sync.Mutex
	connected         bool
	stateListener     billing.StateListener
	purchasesListener billing.PurchasesUpdatedListener
	offeringContexts  map[string]*store.PresentedOfferingContext

	// now is swapped in tests to pin the active-receipt cutoff.
	now func() time.Time
}

func NewWrapper(
	log *zap.Logger,
	client Client,
	dispatcher dispatch.Dispatcher,
	deviceCache *cache.DeviceCache,
	backend ReceiptBackend,
	tracker diagnostics.Tracker,
) *Wrapper {
	return &Wrapper{
		log:              log,
		client:           client,
		dispatcher:       dispatcher,
		deviceCache:      deviceCache,
		backend:          backend,
		tracker:          tracker,
		offeringContexts: map[string]*store.PresentedOfferingContext{},
		now:              time.Now,
	}
}

var _ billing.Billing = (*Wrapper)(nil)

func (w *Wrapper) SetStateListener(listener billing.StateListener) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stateListener = listener
}

func (w *Wrapper) SetPurchasesUpdatedListener(listener billing.PurchasesUpdatedListener) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.purchasesListener = listener
}

func (w *Wrapper) StartConnection() {
	w.dispatcher.Post(func() {
		w.mu.Lock()
		w.connected = true
		listener := w.stateListener
		w.mu.Unlock()

		if listener != nil {
			listener.OnConnected()
		}
	})
}

func (w *Wrapper) EndConnection() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.connected = false
	return nil
}

func (w *Wrapper) IsConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.connected
}

// QueryPurchases returns currently-owned entitlements. Canceled
// subscriptions whose cancellation date is still in the future remain
// included; resolution failures for individual receipts drop those
// receipts rather than failing the batch, unless every subscription fails.
func (w *Wrapper) QueryPurchases(
	appUserID string,
	onSuccess func(map[string]*store.StoreTransaction),
	onError func(*billing.Error),
) {
	startedAt := time.Now()
	w.queryReceipts(false, func(transactions []*store.StoreTransaction) {
		w.tracker.TrackAmazonQueryPurchasesRequest(true, time.Since(startedAt))

		result := make(map[string]*store.StoreTransaction, len(transactions))
		for _, transaction := range transactions {
			result[transaction.Key()] = transaction
		}
		onSuccess(result)
	}, func(err *billing.Error) {
		w.tracker.TrackAmazonQueryPurchasesRequest(false, time.Since(startedAt))
		onError(err)
	})
}

// QueryAllPurchases returns the purchase history, including canceled
// subscriptions whose cancellation date has already passed.
func (w *Wrapper) QueryAllPurchases(
	appUserID string,
	onSuccess func([]*store.StoreTransaction),
	onError func(*billing.Error),
) {
	w.queryReceipts(true, onSuccess, onError)
}

func (w *Wrapper) queryReceipts(includeExpired bool, onSuccess func([]*store.StoreTransaction), onError func(*billing.Error)) {
	w.client.GetPurchaseUpdates(true, func(response PurchaseUpdatesResponse) {
		w.dispatcher.Post(func() {
			if response.RequestStatus != RequestStatusSuccessful {
				onError(billing.NewError(billing.ErrorCodeStoreProblem, "failed to get purchase updates"))
				return
			}
			w.resolveReceipts(response, includeExpired, onSuccess, onError)
		})
	})
}

// resolveReceipts normalizes a purchase-updates batch. Term SKUs for
// subscriptions come from the device cache when present; cache misses are
// fetched from the backend off the controller thread, and the results are
// posted back here to be cached and assembled.
func (w *Wrapper) resolveReceipts(
	response PurchaseUpdatesResponse,
	includeExpired bool,
	onSuccess func([]*store.StoreTransaction),
	onError func(*billing.Error),
) {
	userData := response.UserData
	if userData.Marketplace != "" {
		if err := w.deviceCache.SetStorefront(context.Background(), userData.Marketplace); err != nil {
			w.log.Warn("Failed to cache storefront", zap.Error(err))
		}
	}

	now := w.now()
	receipts := make([]Receipt, 0, len(response.Receipts))
	for _, r := range response.Receipts {
		if includeExpired || r.isActiveAt(now) {
			receipts = append(receipts, r)
		}
	}

	resolved := map[string]string{}
	var misses []Receipt
	subscriptions := 0
	for _, r := range receipts {
		if r.ProductType != ProductTypeSubscription {
			// Consumables and entitlements never need the network: the
			// native SKU is already canonical.
			resolved[r.ReceiptID] = r.Sku
			continue
		}
		subscriptions++
		if sku, ok, err := w.deviceCache.GetReceiptTermSku(context.Background(), r.ReceiptID); err != nil {
			w.log.Warn("Failed to read term sku cache", zap.Error(err))
			misses = append(misses, r)
		} else if ok {
			resolved[r.ReceiptID] = sku
		} else {
			misses = append(misses, r)
		}
	}

	assemble := func(fetched map[string]string) {
		for token, sku := range fetched {
			if err := w.deviceCache.SetReceiptTermSku(context.Background(), token, sku); err != nil {
				w.log.Warn("Failed to cache term sku", zap.Error(err))
			}
			resolved[token] = sku
		}

		resolvedSubscriptions := 0
		transactions := make([]*store.StoreTransaction, 0, len(receipts))
		for _, r := range receipts {
			sku, ok := resolved[r.ReceiptID]
			if !ok {
				// Partial-success policy: failed entries are dropped, not
				// retried inline.
				continue
			}
			if r.ProductType == ProductTypeSubscription {
				resolvedSubscriptions++
			}
			transactions = append(transactions, toStoreTransaction(r, sku, userData))
		}

		if subscriptions > 0 && resolvedSubscriptions == 0 {
			onError(billing.NewError(billing.ErrorCodeInvalidReceipt,
				"no subscription receipt could be resolved to a term sku"))
			return
		}
		onSuccess(transactions)
	}

	if len(misses) == 0 {
		assemble(map[string]string{})
		return
	}

	go func() {
		fetched := map[string]string{}
		for _, r := range misses {
			sku, err := w.backend.GetAmazonReceiptData(context.Background(), userData.UserID, r.ReceiptID)
			if err != nil {
				w.log.Warn("Failed to resolve term sku",
					zap.String("receipt_id", r.ReceiptID),
					zap.Error(err),
				)
				continue
			}
			fetched[r.ReceiptID] = sku
		}
		w.dispatcher.Post(func() {
			assemble(fetched)
		})
	}()
}

// QueryProductDetails resolves the marketplace first so price strings can
// be parsed with the right currency context.
func (w *Wrapper) QueryProductDetails(
	productType store.ProductType,
	productIDs []string,
	onReceive func([]*store.StoreProduct),
	onError func(*billing.Error),
) {
	valid := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		if id != "" {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		w.log.Debug("No valid product ids to query")
		w.dispatcher.Post(func() {
			onReceive(nil)
		})
		return
	}

	startedAt := time.Now()
	w.client.GetUserData(func(userResponse UserDataResponse) {
		w.dispatcher.Post(func() {
			marketplace := userResponse.UserData.Marketplace
			if userResponse.RequestStatus != RequestStatusSuccessful {
				marketplace, _ = w.deviceCache.GetStorefront(context.Background())
			}

			w.client.GetProductData(valid, func(response ProductDataResponse) {
				w.dispatcher.Post(func() {
					if response.RequestStatus != RequestStatusSuccessful {
						w.tracker.TrackAmazonQueryProductDetailsRequest(false, time.Since(startedAt))
						onError(billing.NewError(billing.ErrorCodeStoreProblem, "failed to get product data"))
						return
					}
					w.tracker.TrackAmazonQueryProductDetailsRequest(true, time.Since(startedAt))

					products := make([]*store.StoreProduct, 0, len(response.Products))
					for _, p := range response.Products {
						product, err := toStoreProduct(p, marketplace)
						if err != nil {
							w.log.Warn("Dropping product with unparseable price",
								zap.String("sku", p.Sku),
								zap.Error(err),
							)
							continue
						}
						if productType != store.ProductTypeUnknown && product.Type != productType {
							continue
						}
						products = append(products, product)
					}
					onReceive(products)
				})
			})
		})
	})
}

func (w *Wrapper) MakePurchase(params billing.PurchaseParams) {
	if params.Product == nil {
		w.notifyPurchaseFailure(billing.NewError(billing.ErrorCodeUnknown, "no product to purchase"))
		return
	}

	w.mu.Lock()
	w.offeringContexts[params.Product.ID] = params.PresentedOfferingContext.Clone()
	w.mu.Unlock()

	w.client.Purchase(params.Product.ID, func(response PurchaseResponse) {
		w.dispatcher.Post(func() {
			w.mu.Lock()
			offeringContext := w.offeringContexts[response.Receipt.Sku]
			delete(w.offeringContexts, response.Receipt.Sku)
			listener := w.purchasesListener
			w.mu.Unlock()

			if response.RequestStatus != RequestStatusSuccessful {
				w.notifyPurchaseFailure(billing.NewError(billing.ErrorCodeStoreProblem, "purchase failed"))
				return
			}

			transaction := toStoreTransaction(response.Receipt, response.Receipt.Sku, response.UserData)
			transaction.PresentedOfferingContext = offeringContext
			if listener != nil {
				listener.OnPurchasesUpdated([]*store.StoreTransaction{transaction})
			}
		})
	})
}

func (w *Wrapper) notifyPurchaseFailure(err *billing.Error) {
	w.mu.Lock()
	listener := w.purchasesListener
	w.mu.Unlock()

	if listener != nil {
		listener.OnPurchasesFailedToUpdate(err)
	}
}

// ConsumeAndSave notifies fulfillment when consumption is requested and
// records the receipt id as successfully posted either way. Pending
// purchases are never finalized.
func (w *Wrapper) ConsumeAndSave(shouldConsume bool, transaction *store.StoreTransaction, _ billing.InitiationSource) {
	if transaction.PurchaseType != store.PurchaseTypeAmazon {
		return
	}
	if transaction.PurchaseState == store.PurchaseStatePending {
		return
	}

	if shouldConsume {
		w.client.NotifyFulfillment(transaction.PurchaseToken, FulfillmentResultFulfilled)
	}
	if err := w.deviceCache.AddSuccessfullyPostedToken(context.Background(), transaction.PurchaseToken); err != nil {
		w.log.Warn("Failed to save posted token", zap.Error(err))
	}
}

// GetStorefront resolves the buyer marketplace and caches it, falling back
// to the cached value when the vendor call fails.
func (w *Wrapper) GetStorefront(onSuccess func(string), onError func(*billing.Error)) {
	w.client.GetUserData(func(response UserDataResponse) {
		w.dispatcher.Post(func() {
			if response.RequestStatus != RequestStatusSuccessful {
				cached, err := w.deviceCache.GetStorefront(context.Background())
				if err == nil && cached != "" {
					onSuccess(cached)
					return
				}
				onError(billing.NewError(billing.ErrorCodeStoreProblem, "failed to get user data"))
				return
			}

			if err := w.deviceCache.SetStorefront(context.Background(), response.UserData.Marketplace); err != nil {
				w.log.Warn("Failed to cache storefront", zap.Error(err))
			}
			onSuccess(response.UserData.Marketplace)
		})
	})
}
