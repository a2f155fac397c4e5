package google

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

// Wrapper implements billing.Billing on top of a Google Play-style vendor
// client. Operations issued before the vendor connection is up are queued
// and replayed once Connected is reached.
type Wrapper struct {
	log         *zap.Logger
	client      Client
	dispatcher  dispatch.Dispatcher
	appState    billing.AppStateProvider
	deviceCache *cache.DeviceCache
	tracker     diagnostics.Tracker

	mu                sync.Mutex
	connectionState   billing.ConnectionState
	pendingRequests   []func()
	stateListener     billing.StateListener
	purchasesListener billing.PurchasesUpdatedListener

	// purchaseContexts remembers the product type and merchandising context
	// of purchases launched through MakePurchase, keyed by product id, so
	// the vendor's purchase-updates callback can be normalized.
	purchaseContexts map[string]purchaseContext
}

type purchaseContext struct {
	productType     store.ProductType
	offeringContext *store.PresentedOfferingContext
}

func NewWrapper(
	log *zap.Logger,
	client Client,
	dispatcher dispatch.Dispatcher,
	appState billing.AppStateProvider,
	deviceCache *cache.DeviceCache,
	tracker diagnostics.Tracker,
) *Wrapper {
	w := &Wrapper{
		log:              log,
		client:           client,
		dispatcher:       dispatcher,
		appState:         appState,
		deviceCache:      deviceCache,
		tracker:          tracker,
		purchaseContexts: map[string]purchaseContext{},
	}
	client.SetPurchasesUpdatedListener(w.onVendorPurchasesUpdated)
	return w
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

// Connection lifecycle: Disconnected -> Connecting -> Connected ->
// Disconnected (on vendor service disconnect).

func (w *Wrapper) StartConnection() {
	w.mu.Lock()
	if w.connectionState != billing.ConnectionStateDisconnected {
		w.mu.Unlock()
		return
	}
	w.connectionState = billing.ConnectionStateConnecting
	w.mu.Unlock()

	w.client.StartConnection(w)
}

func (w *Wrapper) EndConnection() error {
	w.mu.Lock()
	w.connectionState = billing.ConnectionStateDisconnected
	w.mu.Unlock()

	return w.client.EndConnection()
}

func (w *Wrapper) IsConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.connectionState == billing.ConnectionStateConnected
}

// OnBillingSetupFinished implements ClientStateListener.
func (w *Wrapper) OnBillingSetupFinished(result BillingResult) {
	w.dispatcher.Post(func() {
		if result.ResponseCode != ResponseCodeOK {
			w.log.Warn("Billing setup failed",
				zap.Int32("response_code", int32(result.ResponseCode)),
				zap.String("debug_message", result.DebugMessage),
			)
			w.mu.Lock()
			w.connectionState = billing.ConnectionStateDisconnected
			pending := w.pendingRequests
			w.pendingRequests = nil
			w.mu.Unlock()

			// Flush waiters so their use cases can classify the failure.
			for _, request := range pending {
				request()
			}
			return
		}

		w.mu.Lock()
		w.connectionState = billing.ConnectionStateConnected
		listener := w.stateListener
		pending := w.pendingRequests
		w.pendingRequests = nil
		w.mu.Unlock()

		w.log.Debug("Billing service connected")
		if listener != nil {
			listener.OnConnected()
		}
		for _, request := range pending {
			request()
		}
	})
}

// OnBillingServiceDisconnected implements ClientStateListener.
func (w *Wrapper) OnBillingServiceDisconnected() {
	w.dispatcher.Post(func() {
		w.mu.Lock()
		w.connectionState = billing.ConnectionStateDisconnected
		w.mu.Unlock()

		w.log.Debug("Billing service disconnected")
	})
}

// withConnectedClient hands a ready vendor client to onConnected, queueing
// the request and (re)starting the connection when the service is down.
func (w *Wrapper) withConnectedClient(onConnected func(Client), onError func(*billing.Error)) {
	w.mu.Lock()
	if w.connectionState == billing.ConnectionStateConnected && w.client.IsReady() {
		w.mu.Unlock()
		onConnected(w.client)
		return
	}

	w.pendingRequests = append(w.pendingRequests, func() {
		if w.IsConnected() {
			onConnected(w.client)
			return
		}
		onError(billing.NewError(billing.ErrorCodeStoreProblem, "billing service is not connected"))
	})
	needsConnect := w.connectionState == billing.ConnectionStateDisconnected
	if needsConnect {
		w.connectionState = billing.ConnectionStateConnecting
	}
	w.mu.Unlock()

	if needsConnect {
		w.client.StartConnection(w)
	}
}

// QueryPurchases queries SUBS then INAPP as two sequential vendor calls and
// merges the results into one map keyed by the hashed purchase token.
func (w *Wrapper) QueryPurchases(
	appUserID string,
	onSuccess func(map[string]*store.StoreTransaction),
	onError func(*billing.Error),
) {
	log := w.log.With(zap.String("app_user_id", appUserID))
	log.Debug("Querying purchases")

	w.queryPurchasesByType(productTypeSubs, func(subs []Purchase) {
		w.queryPurchasesByType(productTypeInApp, func(inapp []Purchase) {
			result := make(map[string]*store.StoreTransaction, len(subs)+len(inapp))
			for _, p := range subs {
				transaction := toStoreTransaction(p, store.ProductTypeSubs, nil)
				result[transaction.Key()] = transaction
			}
			for _, p := range inapp {
				transaction := toStoreTransaction(p, store.ProductTypeInApp, nil)
				result[transaction.Key()] = transaction
			}
			onSuccess(result)
		}, onError)
	}, onError)
}

func (w *Wrapper) queryPurchasesByType(vendorType string, onSuccess func([]Purchase), onError func(*billing.Error)) {
	u := &useCase[[]Purchase]{
		name:                "query_purchases_" + vendorType,
		log:                 w.log,
		source:              billing.InitiationSourcePurchase,
		dispatcher:          w.dispatcher,
		appInBackground:     w.appState.IsAppBackgrounded,
		withConnectedClient: w.withConnectedClient,
		executeRequest: func(client Client, done func(BillingResult, []Purchase)) {
			client.QueryPurchasesAsync(vendorType, func(result BillingResult, purchases []Purchase) {
				done(result, purchases)
			})
		},
		onSuccess: onSuccess,
		onError:   onError,
		track: func(code ResponseCode, responseTime time.Duration) {
			// SUBS and INAPP sub-queries are tracked separately.
			w.tracker.TrackGoogleQueryPurchasesRequest(vendorType, int32(code), responseTime)
		},
	}
	u.run()
}

// QueryAllPurchases returns the full purchase history of both product
// types, including expired subscriptions.
func (w *Wrapper) QueryAllPurchases(
	appUserID string,
	onSuccess func([]*store.StoreTransaction),
	onError func(*billing.Error),
) {
	w.queryHistoryByType(productTypeSubs, func(subs []Purchase) {
		w.queryHistoryByType(productTypeInApp, func(inapp []Purchase) {
			transactions := make([]*store.StoreTransaction, 0, len(subs)+len(inapp))
			for _, p := range subs {
				transactions = append(transactions, toStoreTransaction(p, store.ProductTypeSubs, nil))
			}
			for _, p := range inapp {
				transactions = append(transactions, toStoreTransaction(p, store.ProductTypeInApp, nil))
			}
			onSuccess(transactions)
		}, onError)
	}, onError)
}

func (w *Wrapper) queryHistoryByType(vendorType string, onSuccess func([]Purchase), onError func(*billing.Error)) {
	u := &useCase[[]Purchase]{
		name:                "query_purchase_history_" + vendorType,
		log:                 w.log,
		source:              billing.InitiationSourceRestore,
		dispatcher:          w.dispatcher,
		appInBackground:     w.appState.IsAppBackgrounded,
		withConnectedClient: w.withConnectedClient,
		executeRequest: func(client Client, done func(BillingResult, []Purchase)) {
			client.QueryPurchaseHistoryAsync(vendorType, func(result BillingResult, purchases []Purchase) {
				done(result, purchases)
			})
		},
		onSuccess: onSuccess,
		onError:   onError,
		track: func(code ResponseCode, responseTime time.Duration) {
			w.tracker.TrackGoogleQueryPurchaseHistoryRequest(vendorType, int32(code), responseTime)
		},
	}
	u.run()
}

// QueryProductDetails fetches vendor metadata for a set of product ids.
// Blank identifiers are filtered before the vendor round-trip; an empty
// remainder short-circuits without touching the vendor.
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

	vendorType := toVendorProductType(productType)
	u := &useCase[[]ProductDetails]{
		name:                "query_product_details_" + vendorType,
		log:                 w.log,
		source:              billing.InitiationSourcePurchase,
		dispatcher:          w.dispatcher,
		appInBackground:     w.appState.IsAppBackgrounded,
		withConnectedClient: w.withConnectedClient,
		executeRequest: func(client Client, done func(BillingResult, []ProductDetails)) {
			client.QueryProductDetailsAsync(vendorType, valid, func(result BillingResult, products []ProductDetails) {
				done(result, products)
			})
		},
		onSuccess: func(details []ProductDetails) {
			products := make([]*store.StoreProduct, 0, len(details))
			for _, d := range details {
				products = append(products, toStoreProduct(d))
			}
			onReceive(products)
		},
		onError: onError,
		track: func(code ResponseCode, responseTime time.Duration) {
			w.tracker.TrackGoogleQueryProductDetailsRequest(vendorType, int32(code), responseTime)
		},
	}
	u.run()
}

// MakePurchase launches the vendor purchase flow; the outcome arrives
// through the registered PurchasesUpdatedListener.
func (w *Wrapper) MakePurchase(params billing.PurchaseParams) {
	if params.Product == nil {
		w.notifyPurchaseFailure(billing.NewError(billing.ErrorCodeUnknown, "no product to purchase"))
		return
	}

	offerToken := ""
	if params.Product.Type == store.ProductTypeSubs {
		optionID := params.OptionID
		if optionID == "" {
			optionID = params.Product.DefaultOptionID
		}
		offerToken = optionID
	}

	w.mu.Lock()
	w.purchaseContexts[params.Product.ID] = purchaseContext{
		productType:     params.Product.Type,
		offeringContext: params.PresentedOfferingContext.Clone(),
	}
	w.mu.Unlock()

	flowParams := FlowParams{
		ProductID:    params.Product.ID,
		ProductType:  toVendorProductType(params.Product.Type),
		OfferToken:   offerToken,
		OldProductID: params.OldProductID,
		AppUserID:    params.AppUserID,
	}

	w.withConnectedClient(func(client Client) {
		result := client.LaunchBillingFlow(flowParams)
		if result.ResponseCode != ResponseCodeOK {
			w.notifyPurchaseFailure(billing.NewError(
				billing.ErrorCodeStoreProblem, "failed to launch billing flow: "+result.DebugMessage))
		}
	}, w.notifyPurchaseFailure)
}

func (w *Wrapper) onVendorPurchasesUpdated(result BillingResult, purchases []Purchase) {
	w.dispatcher.Post(func() {
		if result.ResponseCode != ResponseCodeOK {
			w.notifyPurchaseFailure(billing.NewError(
				billing.ErrorCodeStoreProblem, "purchase failed: "+result.DebugMessage))
			return
		}

		transactions := make([]*store.StoreTransaction, 0, len(purchases))
		for _, p := range purchases {
			productType := store.ProductTypeUnknown
			var offeringContext *store.PresentedOfferingContext

			w.mu.Lock()
			for _, productID := range p.Products {
				if pc, ok := w.purchaseContexts[productID]; ok {
					productType = pc.productType
					offeringContext = pc.offeringContext
					delete(w.purchaseContexts, productID)
					break
				}
			}
			w.mu.Unlock()

			transactions = append(transactions, toStoreTransaction(p, productType, offeringContext))
		}

		w.mu.Lock()
		listener := w.purchasesListener
		w.mu.Unlock()
		if listener != nil {
			listener.OnPurchasesUpdated(transactions)
		}
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

// ConsumeAndSave finalizes a purchased transaction with the vendor and
// records its token as successfully posted. Transactions that should not be
// consumed are still marked posted, since finalization already happened via
// another path. Pending purchases are never finalized.
func (w *Wrapper) ConsumeAndSave(shouldConsume bool, transaction *store.StoreTransaction, source billing.InitiationSource) {
	if transaction.PurchaseType != store.PurchaseTypeGoogle {
		return
	}
	if transaction.PurchaseState == store.PurchaseStatePending {
		return
	}

	token := transaction.PurchaseToken
	if !shouldConsume {
		w.markSuccessfullyPosted(token)
		return
	}

	if transaction.ProductType == store.ProductTypeInApp {
		w.consumePurchase(token, source)
		return
	}
	w.acknowledgePurchase(token, source)
}

func (w *Wrapper) consumePurchase(token string, source billing.InitiationSource) {
	u := &useCase[string]{
		name:                "consume_purchase",
		log:                 w.log,
		source:              source,
		dispatcher:          w.dispatcher,
		appInBackground:     w.appState.IsAppBackgrounded,
		withConnectedClient: w.withConnectedClient,
		executeRequest: func(client Client, done func(BillingResult, string)) {
			client.ConsumePurchase(token, func(result BillingResult, purchaseToken string) {
				done(result, purchaseToken)
			})
		},
		onSuccess: func(string) {
			w.markSuccessfullyPosted(token)
		},
		onError: func(err *billing.Error) {
			w.log.Warn("Failed to consume purchase", zap.Error(err))
		},
		track: func(code ResponseCode, responseTime time.Duration) {
			w.tracker.TrackGoogleConsumePurchaseRequest(int32(code), responseTime)
		},
	}
	u.run()
}

func (w *Wrapper) acknowledgePurchase(token string, source billing.InitiationSource) {
	u := &useCase[struct{}]{
		name:                "acknowledge_purchase",
		log:                 w.log,
		source:              source,
		dispatcher:          w.dispatcher,
		appInBackground:     w.appState.IsAppBackgrounded,
		withConnectedClient: w.withConnectedClient,
		executeRequest: func(client Client, done func(BillingResult, struct{})) {
			client.AcknowledgePurchase(token, func(result BillingResult) {
				done(result, struct{}{})
			})
		},
		onSuccess: func(struct{}) {
			w.markSuccessfullyPosted(token)
		},
		onError: func(err *billing.Error) {
			w.log.Warn("Failed to acknowledge purchase", zap.Error(err))
		},
		track: func(code ResponseCode, responseTime time.Duration) {
			w.tracker.TrackGoogleAcknowledgePurchaseRequest(int32(code), responseTime)
		},
	}
	u.run()
}

func (w *Wrapper) markSuccessfullyPosted(token string) {
	if err := w.deviceCache.AddSuccessfullyPostedToken(context.Background(), token); err != nil {
		w.log.Warn("Failed to save posted token", zap.Error(err))
	}
}

// GetStorefront resolves the buyer country code and caches it. A vendor
// failure falls back to the last cached value when one exists.
func (w *Wrapper) GetStorefront(onSuccess func(string), onError func(*billing.Error)) {
	u := &useCase[*BillingConfig]{
		name:                "get_billing_config",
		log:                 w.log,
		source:              billing.InitiationSourcePurchase,
		dispatcher:          w.dispatcher,
		appInBackground:     w.appState.IsAppBackgrounded,
		withConnectedClient: w.withConnectedClient,
		executeRequest: func(client Client, done func(BillingResult, *BillingConfig)) {
			client.GetBillingConfig(func(result BillingResult, config *BillingConfig) {
				done(result, config)
			})
		},
		onSuccess: func(config *BillingConfig) {
			if config == nil {
				onError(billing.NewError(billing.ErrorCodeStoreProblem, "billing config is missing"))
				return
			}
			if err := w.deviceCache.SetStorefront(context.Background(), config.CountryCode); err != nil {
				w.log.Warn("Failed to cache storefront", zap.Error(err))
			}
			onSuccess(config.CountryCode)
		},
		onError: func(err *billing.Error) {
			cached, cacheErr := w.deviceCache.GetStorefront(context.Background())
			if cacheErr == nil && cached != "" {
				onSuccess(cached)
				return
			}
			onError(err)
		},
		track: func(code ResponseCode, responseTime time.Duration) {
			w.tracker.TrackGoogleGetBillingConfigRequest(int32(code), responseTime)
		},
	}
	u.run()
}
