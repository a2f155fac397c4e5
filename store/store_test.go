package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransactionKey(t *testing.T) {
	key := TransactionKey("purchase-token")
	require.NotEmpty(t, key)
	require.NotEqual(t, "purchase-token", key, "key must not leak the raw token")
	require.Equal(t, key, TransactionKey("purchase-token"))
	require.NotEqual(t, key, TransactionKey("other-token"))
}

func TestParseStore(t *testing.T) {
	s, err := ParseStore("play_store")
	require.NoError(t, err)
	require.Equal(t, StorePlayStore, s)

	s, err = ParseStore("amazon")
	require.NoError(t, err)
	require.Equal(t, StoreAmazonAppstore, s)

	_, err = ParseStore("app_store")
	require.Error(t, err)
}

func TestParsePeriod(t *testing.T) {
	for value, want := range map[string]Period{
		"P3D": {Value: 3, Unit: PeriodUnitDay},
		"P1W": {Value: 1, Unit: PeriodUnitWeek},
		"P1M": {Value: 1, Unit: PeriodUnitMonth},
		"P1Y": {Value: 1, Unit: PeriodUnitYear},
	} {
		got, err := ParsePeriod(value)
		require.NoError(t, err, value)
		require.Equal(t, want, got)
		require.Equal(t, value, got.String())
	}

	for _, value := range []string{"", "P1", "1M", "PT1H", "P-1M"} {
		_, err := ParsePeriod(value)
		require.Error(t, err, value)
	}

	require.True(t, Period{}.IsZero())
	require.False(t, Period{Value: 1, Unit: PeriodUnitMonth}.IsZero())
}

func TestStoreProduct_DefaultOption(t *testing.T) {
	p := &StoreProduct{
		SubscriptionOptions: []SubscriptionOption{
			{ID: "offer-1"},
			{ID: "base-plan"},
		},
		DefaultOptionID: "base-plan",
	}
	require.Equal(t, "base-plan", p.DefaultOption().ID)

	p.DefaultOptionID = "missing"
	require.Equal(t, "offer-1", p.DefaultOption().ID)

	require.Nil(t, (&StoreProduct{}).DefaultOption())
}

func TestSubscriptionOption(t *testing.T) {
	base := SubscriptionOption{
		ID: "base",
		PricingPhases: []PricingPhase{
			{Price: Price{AmountMicros: 7990000, CurrencyCode: "USD"}},
		},
	}
	require.True(t, base.IsBasePlan())
	require.Nil(t, base.FreePhase())

	trial := SubscriptionOption{
		ID: "trial",
		PricingPhases: []PricingPhase{
			{Price: Price{AmountMicros: 0, CurrencyCode: "USD"}, BillingPeriod: Period{Value: 1, Unit: PeriodUnitWeek}},
			{Price: Price{AmountMicros: 7990000, CurrencyCode: "USD"}},
		},
	}
	require.False(t, trial.IsBasePlan())
	require.NotNil(t, trial.FreePhase())
	require.Equal(t, Period{Value: 1, Unit: PeriodUnitWeek}, trial.FreePhase().BillingPeriod)
}

func TestStoreTransaction_Clone(t *testing.T) {
	original := &StoreTransaction{
		ProductIDs:    []string{"premium"},
		PurchaseToken: "token-1",
		PresentedOfferingContext: &PresentedOfferingContext{
			OfferingID: "default",
		},
	}

	clone := original.Clone()
	clone.ProductIDs[0] = "changed"
	clone.PresentedOfferingContext.OfferingID = "changed"

	require.Equal(t, "premium", original.ProductIDs[0])
	require.Equal(t, "default", original.PresentedOfferingContext.OfferingID)
	require.Equal(t, original.Key(), TransactionKey("token-1"))
}
