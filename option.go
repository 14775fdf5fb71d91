package walletsession

import (
	"time"

	"github.com/evmkit/walletsession/logger"
	"github.com/evmkit/walletsession/metrics"
	"github.com/evmkit/walletsession/types"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger replaces the default no-op logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// WithMetrics replaces the default no-op recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Controller) {
		c.rec = r
	}
}

// WithConnectTimeout bounds the whole connect flow, including transport
// construction and account authorization.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.connectTimeout = d
	}
}

// WithSwitchTimeout bounds the wait for the wallet's chain-changed
// confirmation after a switch request; after it the flow proceeds
// optimistically.
func WithSwitchTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.switchTimeout = d
	}
}

// WithSettleDelay sets the fixed pause between a chain switch and the
// transaction that follows it.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.settleDelay = d
	}
}

// WithChainMismatchPolicy decides whether a post-switch chain id mismatch
// fails the operation or adopts the actual chain.
func WithChainMismatchPolicy(p types.ChainMismatchPolicy) Option {
	return func(c *Controller) {
		c.mismatch = p
	}
}

// WithGasEstimation makes the test transaction carry locally estimated gas
// parameters instead of delegating to the wallet's defaults.
func WithGasEstimation(enabled bool) Option {
	return func(c *Controller) {
		c.estimateGas = enabled
	}
}

// WithStateHandler registers a callback invoked when the session lifecycle
// state changes.
func WithStateHandler(fn func(types.SessionState)) Option {
	return func(c *Controller) {
		c.onState = fn
	}
}

// WithErrorHandler registers the user-visible error notification sink. Every
// operation failure is delivered here exactly once with a classified error.
func WithErrorHandler(fn func(*types.Error)) Option {
	return func(c *Controller) {
		c.onError = fn
	}
}
