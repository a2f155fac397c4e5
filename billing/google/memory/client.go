// Package memory is an in-memory vendor billing service, used by the demo
// binary and anywhere the real platform service is unavailable.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RevenueCat/purchases-android-sub005/billing/google"
)

type InMemoryClient struct {
	mu        sync.Mutex
	ready     bool
	listener  google.PurchasesUpdatedListener
	products  map[string]google.ProductDetails
	purchases map[string][]google.Purchase // vendor product type -> owned purchases
	country   string
}

func NewInMemory(country string) *InMemoryClient {
	return &InMemoryClient{
		products:  map[string]google.ProductDetails{},
		purchases: map[string][]google.Purchase{},
		country:   country,
	}
}

// AddProduct seeds vendor product metadata.
func (c *InMemoryClient) AddProduct(details google.ProductDetails) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.products[details.ProductID] = details
}

var ok = google.BillingResult{ResponseCode: google.ResponseCodeOK}

func (c *InMemoryClient) StartConnection(listener google.ClientStateListener) {
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()

	listener.OnBillingSetupFinished(ok)
}

func (c *InMemoryClient) EndConnection() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ready = false
	return nil
}

func (c *InMemoryClient) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ready
}

func (c *InMemoryClient) SetPurchasesUpdatedListener(listener google.PurchasesUpdatedListener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listener = listener
}

func (c *InMemoryClient) QueryPurchasesAsync(productType string, listener google.PurchasesResponseListener) {
	c.mu.Lock()
	owned := append([]google.Purchase(nil), c.purchases[productType]...)
	c.mu.Unlock()

	listener(ok, owned)
}

func (c *InMemoryClient) QueryPurchaseHistoryAsync(productType string, listener google.PurchasesResponseListener) {
	c.QueryPurchasesAsync(productType, listener)
}

func (c *InMemoryClient) QueryProductDetailsAsync(productType string, productIDs []string, listener google.ProductDetailsResponseListener) {
	c.mu.Lock()
	var details []google.ProductDetails
	for _, id := range productIDs {
		if d, found := c.products[id]; found && d.ProductType == productType {
			details = append(details, d)
		}
	}
	c.mu.Unlock()

	listener(ok, details)
}

func (c *InMemoryClient) LaunchBillingFlow(params google.FlowParams) google.BillingResult {
	purchase := google.Purchase{
		OrderID:        uuid.NewString(),
		Products:       []string{params.ProductID},
		PurchaseToken:  uuid.NewString(),
		PurchaseTime:   time.Now().UnixMilli(),
		PurchaseState:  1,
		IsAutoRenewing: params.ProductType == "subs",
	}

	c.mu.Lock()
	c.purchases[params.ProductType] = append(c.purchases[params.ProductType], purchase)
	listener := c.listener
	c.mu.Unlock()

	if listener != nil {
		listener(ok, []google.Purchase{purchase})
	}
	return ok
}

func (c *InMemoryClient) AcknowledgePurchase(purchaseToken string, listener google.AcknowledgeResponseListener) {
	listener(ok)
}

func (c *InMemoryClient) ConsumePurchase(purchaseToken string, listener google.ConsumeResponseListener) {
	c.mu.Lock()
	for productType, owned := range c.purchases {
		kept := owned[:0]
		for _, p := range owned {
			if p.PurchaseToken != purchaseToken {
				kept = append(kept, p)
			}
		}
		c.purchases[productType] = kept
	}
	c.mu.Unlock()

	listener(ok, purchaseToken)
}

func (c *InMemoryClient) GetBillingConfig(listener google.BillingConfigResponseListener) {
	listener(ok, &google.BillingConfig{CountryCode: c.country})
}
