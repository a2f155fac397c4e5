package purchases

import (
	"context"

	"go.uber.org/zap"

	"github.com/RevenueCat/purchases-android-sub005/backend"
	"github.com/RevenueCat/purchases-android-sub005/billing"
	"github.com/RevenueCat/purchases-android-sub005/cache"
	"github.com/RevenueCat/purchases-android-sub005/store"
)

// Orchestrator reconciles vendor purchase state with the backend. It owns
// the "post once" guarantee: a purchase token is reported to the backend
// and finalized with the vendor at most once, gated by the successfully-
// posted token set.
type Orchestrator struct {
	log         *zap.Logger
	billing     billing.Billing
	deviceCache *cache.DeviceCache
	backend     *backend.Client
	appUserID   string
}

func NewOrchestrator(
	log *zap.Logger,
	b billing.Billing,
	deviceCache *cache.DeviceCache,
	backendClient *backend.Client,
	appUserID string,
) *Orchestrator {
	return &Orchestrator{
		log:         log,
		billing:     b,
		deviceCache: deviceCache,
		backend:     backendClient,
		appUserID:   appUserID,
	}
}

// SyncUnsyncedPurchases posts owned purchases that have not yet been
// reported to the backend, then finalizes them with the vendor. Runs with
// the background-sync initiation source, so vendor errors follow the
// silent-work retry policy.
func (o *Orchestrator) SyncUnsyncedPurchases(onComplete func(synced int), onError func(*billing.Error)) {
	o.billing.QueryPurchases(o.appUserID, func(purchases map[string]*store.StoreTransaction) {
		unsynced := make([]*store.StoreTransaction, 0, len(purchases))
		for _, transaction := range purchases {
			if transaction.PurchaseState == store.PurchaseStatePending {
				continue
			}
			posted, err := o.deviceCache.ContainsSuccessfullyPostedToken(context.Background(), transaction.PurchaseToken)
			if err != nil {
				o.log.Warn("Failed to check posted token", zap.Error(err))
				continue
			}
			if !posted {
				unsynced = append(unsynced, transaction)
			}
		}

		if len(unsynced) == 0 {
			onComplete(0)
			return
		}

		// Backend posts are network calls; keep them off the controller
		// thread. ConsumeAndSave re-enters the controller thread itself.
		go func() {
			synced := 0
			for _, transaction := range unsynced {
				productID := ""
				if len(transaction.ProductIDs) > 0 {
					productID = transaction.ProductIDs[0]
				}
				err := o.backend.PostReceipt(
					context.Background(),
					o.appUserID,
					transaction.PurchaseToken,
					transaction.StoreUserID,
					productID,
				)
				if err != nil {
					o.log.Warn("Failed to post receipt",
						zap.String("purchase_key", transaction.Key()),
						zap.Error(err),
					)
					continue
				}
				o.billing.ConsumeAndSave(true, transaction, billing.InitiationSourceUnsyncedActivePurchases)
				synced++
			}
			onComplete(synced)
		}()
	}, onError)
}

// RestorePurchases re-posts the full purchase history on behalf of the
// user, for account recovery. Already-posted tokens are posted again on
// purpose: restore exists to repair backend state.
func (o *Orchestrator) RestorePurchases(onComplete func(restored int), onError func(*billing.Error)) {
	o.billing.QueryAllPurchases(o.appUserID, func(purchases []*store.StoreTransaction) {
		if len(purchases) == 0 {
			onComplete(0)
			return
		}

		go func() {
			restored := 0
			for _, transaction := range purchases {
				if transaction.PurchaseState == store.PurchaseStatePending {
					continue
				}
				productID := ""
				if len(transaction.ProductIDs) > 0 {
					productID = transaction.ProductIDs[0]
				}
				err := o.backend.PostReceipt(
					context.Background(),
					o.appUserID,
					transaction.PurchaseToken,
					transaction.StoreUserID,
					productID,
				)
				if err != nil {
					o.log.Warn("Failed to restore receipt",
						zap.String("purchase_key", transaction.Key()),
						zap.Error(err),
					)
					continue
				}
				o.billing.ConsumeAndSave(false, transaction, billing.InitiationSourceRestore)
				restored++
			}
			onComplete(restored)
		}()
	}, onError)
}
