package google

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RevenueCat/purchases-android-sub005/billing"
	"github.com/RevenueCat/purchases-android-sub005/dispatch"
)

const (
	// Bounded-retry budget for NETWORK_ERROR and for ERROR during
	// user-in-session operations: 3 retries, 4 attempts total.
	maxRetriesDefault = 3

	// Backoff budget for silent work: 12 attempts total. The 11th retry's
	// delay (878ms doubled ten times) lands just under the background
	// ceiling.
	maxAttemptsBackoff = 12

	retryBackoffStart         = 878 * time.Millisecond
	retryBackoffMaxBackground = 15 * time.Minute
	retryBackoffMaxForeground = 4 * time.Second
)

// useCase wraps a single asynchronous vendor call with the uniform retry
// policy keyed on the vendor response code and the operation's initiation
// source. One value is created per logical operation; it is not reused.
type useCase[T any] struct {
	name   string
	log    *zap.Logger
	source billing.InitiationSource

	dispatcher      dispatch.Dispatcher
	appInBackground func() bool

	// withConnectedClient re-acquires a connected vendor client before
	// every attempt, reconnecting if the service dropped.
	withConnectedClient func(onConnected func(Client), onError func(*billing.Error))

	// executeRequest issues the vendor call once and reports its result.
	executeRequest func(client Client, done func(BillingResult, T))

	onSuccess func(T)
	onError   func(*billing.Error)

	// track fires once with the terminal response code and the latency
	// from dispatch to the terminal response. Optional.
	track func(code ResponseCode, responseTime time.Duration)

	attempts       int
	retriesDefault int
	backoffRetries int
	reDispatched   bool

	startedAt time.Time
	finish    sync.Once
}

// run dispatches the first attempt onto the controller thread.
func (u *useCase[T]) run() {
	u.startedAt = time.Now()
	u.dispatcher.Post(u.execute)
}

func (u *useCase[T]) execute() {
	u.attempts++

	u.withConnectedClient(func(client Client) {
		// Vendors are documented to sometimes double-fire listeners for a
		// single request; collapse to one processResult per attempt.
		var once sync.Once
		u.executeRequest(client, func(result BillingResult, payload T) {
			once.Do(func() {
				u.dispatcher.Post(func() {
					u.processResult(result, payload)
				})
			})
		})
	}, func(err *billing.Error) {
		u.terminalError(ResponseCodeServiceDisconnected, err)
	})
}

func (u *useCase[T]) processResult(result BillingResult, payload T) {
	switch result.ResponseCode {
	case ResponseCodeOK:
		u.terminalSuccess(result.ResponseCode, payload)

	case ResponseCodeItemUnavailable:
		// Never retried: the product simply isn't purchasable.
		u.terminalError(result.ResponseCode, billing.NewError(
			billing.ErrorCodeProductNotAvailable, u.errorMessage(result)))

	case ResponseCodeNetworkError:
		if u.retriesDefault < maxRetriesDefault {
			u.retriesDefault++
			u.execute()
			return
		}
		u.terminalError(result.ResponseCode, billing.NewError(
			billing.ErrorCodeNetwork, u.errorMessage(result)))

	case ResponseCodeError:
		if u.source == billing.InitiationSourceUnsyncedActivePurchases {
			if u.retryWithBackoff() {
				return
			}
		} else if u.retriesDefault < maxRetriesDefault {
			u.retriesDefault++
			u.execute()
			return
		}
		u.terminalError(result.ResponseCode, billing.NewError(
			billing.ErrorCodeStoreProblem, u.errorMessage(result)))

	case ResponseCodeServiceUnavailable:
		if u.appInBackground() {
			if u.retryWithBackoff() {
				return
			}
		}
		// User in session: fail fast rather than subject them to backoff.
		u.terminalError(result.ResponseCode, billing.NewError(
			billing.ErrorCodeStoreProblem, u.errorMessage(result)))

	case ResponseCodeServiceDisconnected:
		// Transport hiccup, not a vendor verdict: one re-dispatch through
		// reconnection, outside the bounded retry counters.
		if !u.reDispatched {
			u.reDispatched = true
			u.execute()
			return
		}
		u.terminalError(result.ResponseCode, billing.NewError(
			billing.ErrorCodeStoreProblem, u.errorMessage(result)))

	default:
		u.terminalError(result.ResponseCode, billing.NewError(
			billing.ErrorCodeStoreProblem, u.errorMessage(result)))
	}
}

// retryWithBackoff schedules the next attempt with an exponentially growing
// delay, capped at the ceiling for the current app state. Returns false
// once the backoff budget is spent.
func (u *useCase[T]) retryWithBackoff() bool {
	if u.attempts >= maxAttemptsBackoff {
		return false
	}

	delay := retryBackoffStart * time.Duration(1<<u.backoffRetries)
	ceiling := retryBackoffMaxBackground
	if !u.appInBackground() {
		ceiling = retryBackoffMaxForeground
	}
	if delay > ceiling {
		delay = ceiling
	}
	u.backoffRetries++

	u.log.Debug("Retrying billing call with backoff",
		zap.String("operation", u.name),
		zap.Int("attempt", u.attempts),
		zap.Duration("delay", delay),
	)
	u.dispatcher.PostDelayed(u.execute, delay)
	return true
}

func (u *useCase[T]) terminalSuccess(code ResponseCode, payload T) {
	u.finish.Do(func() {
		if u.track != nil {
			u.track(code, time.Since(u.startedAt))
		}
		u.onSuccess(payload)
	})
}

func (u *useCase[T]) terminalError(code ResponseCode, err *billing.Error) {
	u.finish.Do(func() {
		if u.track != nil {
			u.track(code, time.Since(u.startedAt))
		}
		u.log.Warn("Billing call failed",
			zap.String("operation", u.name),
			zap.Int("attempts", u.attempts),
			zap.Error(err),
		)
		u.onError(err)
	})
}

func (u *useCase[T]) errorMessage(result BillingResult) string {
	if result.DebugMessage != "" {
		return u.name + ": " + result.DebugMessage
	}
	return u.name + " failed"
}
