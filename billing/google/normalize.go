package google

import (
	"time"

	"github.com/RevenueCat/purchases-android-sub005/store"
)

func toProductType(vendorType string) store.ProductType {
	switch vendorType {
	case productTypeSubs:
		return store.ProductTypeSubs
	case productTypeInApp:
		return store.ProductTypeInApp
	default:
		return store.ProductTypeUnknown
	}
}

func toVendorProductType(productType store.ProductType) string {
	switch productType {
	case store.ProductTypeSubs:
		return productTypeSubs
	default:
		return productTypeInApp
	}
}

func toPurchaseState(vendorState int) store.PurchaseState {
	switch vendorState {
	case purchaseStatePurchased:
		return store.PurchaseStatePurchased
	case purchaseStatePending:
		return store.PurchaseStatePending
	default:
		return store.PurchaseStateUnspecified
	}
}

// toStoreTransaction normalizes a vendor purchase. The purchase token is
// vendor-native, the product type comes from the query context, and
// multi-product purchases are preserved as-is.
func toStoreTransaction(
	p Purchase,
	productType store.ProductType,
	offeringContext *store.PresentedOfferingContext,
) *store.StoreTransaction {
	return &store.StoreTransaction{
		ProductIDs:               append([]string(nil), p.Products...),
		ProductType:              productType,
		PurchaseToken:            p.PurchaseToken,
		PurchaseTime:             time.UnixMilli(p.PurchaseTime),
		PurchaseState:            toPurchaseState(p.PurchaseState),
		IsAutoRenewing:           p.IsAutoRenewing,
		PresentedOfferingContext: offeringContext.Clone(),
		Signature:                p.Signature,
		OriginalJSON:             p.OriginalJSON,
		PurchaseType:             store.PurchaseTypeGoogle,
	}
}

func toRecurrenceMode(vendorMode int) store.RecurrenceMode {
	switch vendorMode {
	case recurrenceModeInfinite:
		return store.RecurrenceModeInfinite
	case recurrenceModeFinite:
		return store.RecurrenceModeFinite
	case recurrenceModeNonRecurring:
		return store.RecurrenceModeNonRecurring
	default:
		return store.RecurrenceModeUnknown
	}
}

func toSubscriptionOption(offer SubscriptionOffer) store.SubscriptionOption {
	optionID := offer.BasePlanID
	if offer.OfferID != "" {
		optionID += ":" + offer.OfferID
	}

	phases := make([]store.PricingPhase, 0, len(offer.PricingPhases))
	for _, phase := range offer.PricingPhases {
		period, _ := store.ParsePeriod(phase.BillingPeriod)
		phases = append(phases, store.PricingPhase{
			BillingPeriod:  period,
			RecurrenceMode: toRecurrenceMode(phase.RecurrenceMode),
			BillingCycles:  phase.BillingCycleCount,
			Price: store.Price{
				Formatted:    phase.FormattedPrice,
				AmountMicros: phase.PriceAmountMicros,
				CurrencyCode: phase.PriceCurrencyCode,
			},
		})
	}

	return store.SubscriptionOption{
		ID:            optionID,
		PricingPhases: phases,
	}
}

// toStoreProduct normalizes vendor product metadata. Subscriptions expose
// one StoreProduct per vendor record, carrying every offer as an option;
// the base plan with no intro phases is the default option.
func toStoreProduct(details ProductDetails) *store.StoreProduct {
	product := &store.StoreProduct{
		ID:          details.ProductID,
		Type:        toProductType(details.ProductType),
		Title:       details.Title,
		Description: details.Description,
	}

	if details.OneTimePurchaseOffer != nil {
		product.Price = store.Price{
			Formatted:    details.OneTimePurchaseOffer.FormattedPrice,
			AmountMicros: details.OneTimePurchaseOffer.PriceAmountMicros,
			CurrencyCode: details.OneTimePurchaseOffer.PriceCurrencyCode,
		}
		return product
	}

	for _, offer := range details.SubscriptionOffers {
		product.SubscriptionOptions = append(product.SubscriptionOptions, toSubscriptionOption(offer))
	}

	// The default option is the first offer with a free trial, falling back
	// to the bare base plan.
	for i := range product.SubscriptionOptions {
		option := &product.SubscriptionOptions[i]
		if option.FreePhase() != nil {
			product.DefaultOptionID = option.ID
			break
		}
		if option.IsBasePlan() && product.DefaultOptionID == "" {
			product.DefaultOptionID = option.ID
		}
	}

	if option := product.DefaultOption(); option != nil {
		base := option.PricingPhases[len(option.PricingPhases)-1]
		product.Price = base.Price
		product.Period = base.BillingPeriod
		if free := option.FreePhase(); free != nil {
			product.FreeTrialPeriod = free.BillingPeriod
		}
	}
	return product
}
