package store

// Price is a vendor-quoted price normalized to micro-units of its currency.
type Price struct {
	// Formatted is the vendor's display string, e.g. "$7.12".
	Formatted string

	// AmountMicros is the price in one-millionths of the currency unit.
	AmountMicros int64

	// CurrencyCode is the 3-letter ISO 4217 code.
	CurrencyCode string
}

// RecurrenceMode describes how a pricing phase repeats.
type RecurrenceMode uint8

const (
	RecurrenceModeUnknown RecurrenceMode = iota
	RecurrenceModeInfinite
	RecurrenceModeFinite
	RecurrenceModeNonRecurring
)

// PricingPhase is one step of a subscription option's pricing sequence,
// e.g. a free trial followed by a recurring base price.
type PricingPhase struct {
	BillingPeriod  Period
	RecurrenceMode RecurrenceMode
	BillingCycles  int
	Price          Price
}

// SubscriptionOption is one purchasable configuration of a subscription
// product. Google products expose several; Amazon products expose a single
// synthesized option since the vendor has no option granularity.
type SubscriptionOption struct {
	ID            string
	PricingPhases []PricingPhase

	PresentedOfferingContext *PresentedOfferingContext
}

// IsBasePlan reports whether the option is the bare recurring plan with no
// introductory phases.
func (o *SubscriptionOption) IsBasePlan() bool {
	return len(o.PricingPhases) == 1
}

// FreePhase returns the option's free-trial phase, if any.
func (o *SubscriptionOption) FreePhase() *PricingPhase {
	for i := range o.PricingPhases {
		if o.PricingPhases[i].Price.AmountMicros == 0 {
			return &o.PricingPhases[i]
		}
	}
	return nil
}

// StoreProduct is vendor-neutral product metadata.
type StoreProduct struct {
	ID          string
	Type        ProductType
	Title       string
	Description string
	Price       Price

	// Period is the billing period for subscriptions, zero otherwise.
	Period Period

	// FreeTrialPeriod is the trial length, when the default option has one.
	FreeTrialPeriod Period

	// SubscriptionOptions lists every purchasable configuration. Empty for
	// one-time products.
	SubscriptionOptions []SubscriptionOption

	// DefaultOptionID selects the option purchased when the caller does not
	// pick one explicitly.
	DefaultOptionID string

	PresentedOfferingContext *PresentedOfferingContext
}

// DefaultOption resolves DefaultOptionID, falling back to the first option.
func (p *StoreProduct) DefaultOption() *SubscriptionOption {
	for i := range p.SubscriptionOptions {
		if p.SubscriptionOptions[i].ID == p.DefaultOptionID {
			return &p.SubscriptionOptions[i]
		}
	}
	if len(p.SubscriptionOptions) > 0 {
		return &p.SubscriptionOptions[0]
	}
	return nil
}

func (p *StoreProduct) Clone() *StoreProduct {
	clone := *p
	clone.SubscriptionOptions = append([]SubscriptionOption(nil), p.SubscriptionOptions...)
	clone.PresentedOfferingContext = p.PresentedOfferingContext.Clone()
	return &clone
}
