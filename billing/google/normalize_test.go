package google

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/RevenueCat/purchases-android-sub005/store"
)

func TestToStoreTransaction(t *testing.T) {
	purchase := Purchase{
		OrderID:        "GPA.1234",
		Products:       []string{"premium", "addon"},
		PurchaseToken:  "token-1",
		PurchaseTime:   1700000000000,
		PurchaseState:  purchaseStatePurchased,
		IsAutoRenewing: true,
		Signature:      "sig",
		OriginalJSON:   `{"orderId":"GPA.1234"}`,
	}

	tx := toStoreTransaction(purchase, store.ProductTypeSubs, &store.PresentedOfferingContext{OfferingID: "default"})

	require.Equal(t, []string{"premium", "addon"}, tx.ProductIDs)
	require.Equal(t, store.ProductTypeSubs, tx.ProductType)
	require.Equal(t, "token-1", tx.PurchaseToken)
	require.Equal(t, time.UnixMilli(1700000000000), tx.PurchaseTime)
	require.Equal(t, store.PurchaseStatePurchased, tx.PurchaseState)
	require.True(t, tx.IsAutoRenewing)
	require.Equal(t, "default", tx.PresentedOfferingContext.OfferingID)
	require.Equal(t, store.PurchaseTypeGoogle, tx.PurchaseType)
}

func TestToStoreProduct_OneTime(t *testing.T) {
	product := toStoreProduct(ProductDetails{
		ProductID:   "coins",
		ProductType: productTypeInApp,
		Title:       "Coins",
		OneTimePurchaseOffer: &OneTimePurchaseOffer{
			PriceAmountMicros: 990000,
			PriceCurrencyCode: "USD",
			FormattedPrice:    "$0.99",
		},
	})

	require.Equal(t, store.ProductTypeInApp, product.Type)
	require.Equal(t, int64(990000), product.Price.AmountMicros)
	require.Empty(t, product.SubscriptionOptions)
}

func TestToStoreProduct_Subscription(t *testing.T) {
	basePhase := PricingPhase{
		BillingPeriod:     "P1M",
		PriceAmountMicros: 7990000,
		PriceCurrencyCode: "USD",
		FormattedPrice:    "$7.99",
		RecurrenceMode:    recurrenceModeInfinite,
	}
	trialPhase := PricingPhase{
		BillingPeriod:     "P1W",
		PriceAmountMicros: 0,
		PriceCurrencyCode: "USD",
		FormattedPrice:    "Free",
		BillingCycleCount: 1,
		RecurrenceMode:    recurrenceModeFinite,
	}

	product := toStoreProduct(ProductDetails{
		ProductID:   "premium",
		ProductType: productTypeSubs,
		SubscriptionOffers: []SubscriptionOffer{
			{BasePlanID: "p1m", PricingPhases: []PricingPhase{basePhase}},
			{BasePlanID: "p1m", OfferID: "trial", PricingPhases: []PricingPhase{trialPhase, basePhase}},
		},
	})

	require.Equal(t, store.ProductTypeSubs, product.Type)
	require.Len(t, product.SubscriptionOptions, 2)

	// The free-trial offer wins the default slot over the bare base plan.
	require.Equal(t, "p1m:trial", product.DefaultOptionID)

	// Product-level price and period come from the recurring phase of the
	// default option, not the trial phase.
	require.Equal(t, int64(7990000), product.Price.AmountMicros)
	require.Equal(t, store.Period{Value: 1, Unit: store.PeriodUnitMonth}, product.Period)
	require.Equal(t, store.Period{Value: 1, Unit: store.PeriodUnitWeek}, product.FreeTrialPeriod)
}

func TestToStoreProduct_BasePlanOnly(t *testing.T) {
	product := toStoreProduct(ProductDetails{
		ProductID:   "premium",
		ProductType: productTypeSubs,
		SubscriptionOffers: []SubscriptionOffer{
			{BasePlanID: "p1y", PricingPhases: []PricingPhase{{
				BillingPeriod:     "P1Y",
				PriceAmountMicros: 79990000,
				PriceCurrencyCode: "USD",
				FormattedPrice:    "$79.99",
				RecurrenceMode:    recurrenceModeInfinite,
			}}},
		},
	})

	require.Equal(t, "p1y", product.DefaultOptionID)
	require.Equal(t, store.Period{Value: 1, Unit: store.PeriodUnitYear}, product.Period)
	require.True(t, product.FreeTrialPeriod.IsZero())
}
