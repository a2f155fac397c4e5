// Package diagnostics is the sink for billing telemetry. The wrappers call
// it exactly once per logical operation outcome, timed from dispatch to the
// first terminal response, regardless of how many retries happened in
// between. Query-purchases is the exception: its SUBS and INAPP sub-queries
// are issued as two sequential vendor calls and tracked separately.
package diagnostics

import (
	"time"

	"go.uber.org/zap"
)

// Tracker receives one event per logical vendor request.
type Tracker interface {
	TrackGoogleQueryPurchasesRequest(productType string, responseCode int32, responseTime time.Duration)
	TrackGoogleQueryPurchaseHistoryRequest(productType string, responseCode int32, responseTime time.Duration)
	TrackGoogleQueryProductDetailsRequest(productType string, responseCode int32, responseTime time.Duration)
	TrackGoogleAcknowledgePurchaseRequest(responseCode int32, responseTime time.Duration)
	TrackGoogleConsumePurchaseRequest(responseCode int32, responseTime time.Duration)
	TrackGoogleGetBillingConfigRequest(responseCode int32, responseTime time.Duration)

	TrackAmazonQueryPurchasesRequest(wasSuccessful bool, responseTime time.Duration)
	TrackAmazonQueryProductDetailsRequest(wasSuccessful bool, responseTime time.Duration)
}

// NoOp discards every event.
type NoOp struct{}

func (NoOp) TrackGoogleQueryPurchasesRequest(string, int32, time.Duration)       {}
func (NoOp) TrackGoogleQueryPurchaseHistoryRequest(string, int32, time.Duration) {}
func (NoOp) TrackGoogleQueryProductDetailsRequest(string, int32, time.Duration)  {}
func (NoOp) TrackGoogleAcknowledgePurchaseRequest(int32, time.Duration)          {}
func (NoOp) TrackGoogleConsumePurchaseRequest(int32, time.Duration)              {}
func (NoOp) TrackGoogleGetBillingConfigRequest(int32, time.Duration)             {}
func (NoOp) TrackAmazonQueryPurchasesRequest(bool, time.Duration)                {}
func (NoOp) TrackAmazonQueryProductDetailsRequest(bool, time.Duration)           {}

// Logging emits every event as a structured log line.
type Logging struct {
	log *zap.Logger
}

func NewLogging(log *zap.Logger) *Logging {
	return &Logging{log: log}
}

func (t *Logging) track(name string, fields ...zap.Field) {
	t.log.Debug("Tracked billing request", append([]zap.Field{zap.String("event", name)}, fields...)...)
}

func (t *Logging) TrackGoogleQueryPurchasesRequest(productType string, responseCode int32, responseTime time.Duration) {
	t.track("google_query_purchases",
		zap.String("product_type", productType),
		zap.Int32("response_code", responseCode),
		zap.Duration("response_time", responseTime),
	)
}

func (t *Logging) TrackGoogleQueryPurchaseHistoryRequest(productType string, responseCode int32, responseTime time.Duration) {
	t.track("google_query_purchase_history",
		zap.String("product_type", productType),
		zap.Int32("response_code", responseCode),
		zap.Duration("response_time", responseTime),
	)
}

func (t *Logging) TrackGoogleQueryProductDetailsRequest(productType string, responseCode int32, responseTime time.Duration) {
	t.track("google_query_product_details",
		zap.String("product_type", productType),
		zap.Int32("response_code", responseCode),
		zap.Duration("response_time", responseTime),
	)
}

func (t *Logging) TrackGoogleAcknowledgePurchaseRequest(responseCode int32, responseTime time.Duration) {
	t.track("google_acknowledge_purchase",
		zap.Int32("response_code", responseCode),
		zap.Duration("response_time", responseTime),
	)
}

func (t *Logging) TrackGoogleConsumePurchaseRequest(responseCode int32, responseTime time.Duration) {
	t.track("google_consume_purchase",
		zap.Int32("response_code", responseCode),
		zap.Duration("response_time", responseTime),
	)
}

func (t *Logging) TrackGoogleGetBillingConfigRequest(responseCode int32, responseTime time.Duration) {
	t.track("google_get_billing_config",
		zap.Int32("response_code", responseCode),
		zap.Duration("response_time", responseTime),
	)
}

func (t *Logging) TrackAmazonQueryPurchasesRequest(wasSuccessful bool, responseTime time.Duration) {
	t.track("amazon_query_purchases",
		zap.Bool("successful", wasSuccessful),
		zap.Duration("response_time", responseTime),
	)
}

func (t *Logging) TrackAmazonQueryProductDetailsRequest(wasSuccessful bool, responseTime time.Duration) {
	t.track("amazon_query_product_details",
		zap.Bool("successful", wasSuccessful),
		zap.Duration("response_time", responseTime),
	)
}
