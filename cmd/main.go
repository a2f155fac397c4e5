package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/RevenueCat/purchases-android-sub005/billing"
	"github.com/RevenueCat/purchases-android-sub005/billing/google"
	googlememory "github.com/RevenueCat/purchases-android-sub005/billing/google/memory"
	cachememory "github.com/RevenueCat/purchases-android-sub005/cache/memory"
	"github.com/RevenueCat/purchases-android-sub005/purchases"
	"github.com/RevenueCat/purchases-android-sub005/store"
)

// Demo: runs a purchase flow end to end against the in-memory vendor
// service.
func main() {
	_ = godotenv.Load()

	if os.Getenv("PURCHASES_API_KEY") == "" {
		os.Setenv("PURCHASES_API_KEY", "demo")
	}

	cfg, err := purchases.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}

	vendor := googlememory.NewInMemory("US")
	vendor.AddProduct(google.ProductDetails{
		ProductID:   "premium",
		ProductType: "subs",
		Title:       "Premium",
		SubscriptionOffers: []google.SubscriptionOffer{{
			BasePlanID: "monthly",
			PricingPhases: []google.PricingPhase{{
				BillingPeriod:     "P1M",
				PriceAmountMicros: 7_990_000,
				PriceCurrencyCode: "USD",
				FormattedPrice:    "$7.99",
				RecurrenceMode:    1,
			}},
		}},
	})

	b, err := purchases.NewBilling(store.StorePlayStore, cfg, purchases.Deps{
		Log:          logger,
		AppState:     billing.AppStateProviderFunc(func() bool { return false }),
		GoogleClient: vendor,
		CacheStore:   cachememory.NewInMemory(),
	})
	if err != nil {
		log.Fatal("Failed to create billing:", err)
	}

	done := make(chan struct{})
	b.SetPurchasesUpdatedListener(&demoListener{b: b, done: done})
	b.StartConnection()

	b.QueryProductDetails(store.ProductTypeSubs, []string{"premium"}, func(products []*store.StoreProduct) {
		for _, p := range products {
			fmt.Printf("Product: %s %s (%s)\n", p.ID, p.Price.Formatted, p.Price.CurrencyCode)
		}
		if len(products) == 0 {
			log.Fatal("No products found")
		}
		b.MakePurchase(billing.PurchaseParams{AppUserID: "demo-user", Product: products[0]})
	}, func(err *billing.Error) {
		log.Fatal("Failed to query products:", err)
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Fatal("Timed out waiting for purchase")
	}
}

type demoListener struct {
	b    billing.Billing
	done chan struct{}
}

func (l *demoListener) OnPurchasesUpdated(transactions []*store.StoreTransaction) {
	for _, t := range transactions {
		fmt.Printf("Purchased: %v token=%s\n", t.ProductIDs, t.PurchaseToken)
		l.b.ConsumeAndSave(true, t, billing.InitiationSourcePurchase)
	}
	close(l.done)
}

func (l *demoListener) OnPurchasesFailedToUpdate(err *billing.Error) {
	fmt.Println("Purchase failed:", err)
	close(l.done)
}
