// Package purchases assembles the SDK: it selects the billing wrapper for
// the configured store and coordinates purchase reconciliation with the
// backend.
package purchases

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/RevenueCat/purchases-android-sub005/backend"
	"github.com/RevenueCat/purchases-android-sub005/billing"
	"github.com/RevenueCat/purchases-android-sub005/billing/amazon"
	"github.com/RevenueCat/purchases-android-sub005/billing/cached"
	"github.com/RevenueCat/purchases-android-sub005/billing/google"
	"github.com/RevenueCat/purchases-android-sub005/cache"
	"github.com/RevenueCat/purchases-android-sub005/diagnostics"
	"github.com/RevenueCat/purchases-android-sub005/dispatch"
	"github.com/RevenueCat/purchases-android-sub005/store"
)

// Deps carries the externally-provided collaborators: vendor clients, the
// device store, and the app state source. Vendor clients are only required
// for the store actually selected.
type Deps struct {
	Log      *zap.Logger
	AppState billing.AppStateProvider

	GoogleClient google.Client
	AmazonClient amazon.Client

	Dispatcher dispatch.Dispatcher
	CacheStore cache.Store
	Backend    *backend.Client
	Tracker    diagnostics.Tracker
}

// NewBilling builds the billing wrapper for the given store identity. The
// switch is exhaustive over supported stores; anything else is an error,
// not a fallback.
func NewBilling(storeType store.Store, cfg Config, deps Deps) (billing.Billing, error) {
	if deps.Tracker == nil {
		deps.Tracker = diagnostics.NoOp{}
		if cfg.DiagnosticsEnabled {
			deps.Tracker = diagnostics.NewLogging(deps.Log)
		}
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = dispatch.NewSerial()
	}

	deviceCache := cache.NewDeviceCache(deps.Log, deps.CacheStore)

	var wrapper billing.Billing
	switch storeType {
	case store.StorePlayStore:
		if deps.GoogleClient == nil {
			return nil, errors.New("play store selected but no google client provided")
		}
		wrapper = google.NewWrapper(deps.Log, deps.GoogleClient, deps.Dispatcher, deps.AppState, deviceCache, deps.Tracker)
	case store.StoreAmazonAppstore:
		if deps.AmazonClient == nil {
			return nil, errors.New("amazon appstore selected but no amazon client provided")
		}
		wrapper = amazon.NewWrapper(deps.Log, deps.AmazonClient, deps.Dispatcher, deviceCache, deps.Backend, deps.Tracker)
	default:
		return nil, errors.Errorf("unsupported store: %s", storeType)
	}

	if cfg.ProductDetailsCacheTTL > 0 {
		return cached.NewInCache(wrapper, cfg.ProductDetailsCacheTTL), nil
	}
	return wrapper, nil
}
