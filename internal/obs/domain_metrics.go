package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// UpstreamRequestTotal counts operations issued to hosted upstreams
	// (the GraphQL data layer, the identity provider) by outcome.
	UpstreamRequestTotal *prometheus.CounterVec
	// OrdersSubmittedTotal counts checkout submissions by outcome.
	OrdersSubmittedTotal *prometheus.CounterVec
	// ContactMessagesTotal counts contact form submissions by outcome.
	ContactMessagesTotal *prometheus.CounterVec
	// EmailDeliveriesTotal counts outbound email delivery outcomes.
	EmailDeliveriesTotal *prometheus.CounterVec
	// CartOperationsTotal counts cart mutations by operation and outcome.
	CartOperationsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific
// Prometheus collectors. Safe to call more than once.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		UpstreamRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_request_total",
			Help:      "Count of upstream operations by target, kind and outcome.",
		}, []string{"target", "kind", "result"})
		OrdersSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Count of checkout submissions by outcome.",
		}, []string{"result"})
		ContactMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contact_messages_total",
			Help:      "Count of contact form submissions by outcome.",
		}, []string{"result"})
		EmailDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_deliveries_total",
			Help:      "Count of outbound email delivery outcomes.",
		}, []string{"result"})
		CartOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_operations_total",
			Help:      "Count of cart mutations by operation and outcome.",
		}, []string{"op", "result"})

		for _, collector := range []struct {
			c     *prometheus.CounterVec
			reuse func(*prometheus.CounterVec)
		}{
			{UpstreamRequestTotal, func(v *prometheus.CounterVec) { UpstreamRequestTotal = v }},
			{OrdersSubmittedTotal, func(v *prometheus.CounterVec) { OrdersSubmittedTotal = v }},
			{ContactMessagesTotal, func(v *prometheus.CounterVec) { ContactMessagesTotal = v }},
			{EmailDeliveriesTotal, func(v *prometheus.CounterVec) { EmailDeliveriesTotal = v }},
			{CartOperationsTotal, func(v *prometheus.CounterVec) { CartOperationsTotal = v }},
		} {
			mustRegisterCounterVec(reg, collector.c, collector.reuse)
		}
	})
}

// CountUpstream records one upstream operation outcome. Safe to call before
// metrics registration (tests exercise upstream clients without it).
func CountUpstream(target, kind, result string) {
	if UpstreamRequestTotal == nil {
		return
	}
	UpstreamRequestTotal.WithLabelValues(target, kind, result).Inc()
}

// CountCartOp records one cart mutation outcome. Safe to call before
// metrics registration.
func CountCartOp(op, result string) {
	if CartOperationsTotal == nil {
		return
	}
	CartOperationsTotal.WithLabelValues(op, result).Inc()
}

// CountOrderSubmitted records one checkout submission outcome. Safe to call
// before metrics registration.
func CountOrderSubmitted(result string) {
	if OrdersSubmittedTotal == nil {
		return
	}
	OrdersSubmittedTotal.WithLabelValues(result).Inc()
}

// CountContactMessage records one contact form submission outcome. Safe to
// call before metrics registration.
func CountContactMessage(result string) {
	if ContactMessagesTotal == nil {
		return
	}
	ContactMessagesTotal.WithLabelValues(result).Inc()
}

// CountEmailDelivery records one outbound email delivery outcome. Safe to
// call before metrics registration.
func CountEmailDelivery(result string) {
	if EmailDeliveriesTotal == nil {
		return
	}
	EmailDeliveriesTotal.WithLabelValues(result).Inc()
}

func mustRegisterCounterVec(reg prometheus.Registerer, collector *prometheus.CounterVec, reuse func(*prometheus.CounterVec)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok && reuse != nil {
				reuse(existing)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
