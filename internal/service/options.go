package service

import (
	"github.com/mmynk/groupledger/internal/events"
	"github.com/mmynk/groupledger/internal/metrics"
)

type options struct {
	publisher       events.Publisher
	metrics         *metrics.Metrics
	defaultCurrency string
}

// Option configures a service.
type Option func(*options)

// WithPublisher sets where ledger events are published. Events are dropped
// by default.
func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithMetrics sets the Prometheus collectors to update.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithDefaultCurrency sets the currency of groups created without one.
func WithDefaultCurrency(currency string) Option {
	return func(o *options) { o.defaultCurrency = currency }
}

func newOptions(opts []Option) options {
	o := options{
		publisher:       events.NopPublisher{},
		defaultCurrency: "USD",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
