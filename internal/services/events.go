package services

import "log"

// Routing keys of the domain events published by the services.
const (
	EventUserLoggedIn            = "user.logged_in"
	EventCustomerProductsChanged = "customer.products.changed"
)

// EventPublisher publishes domain events. A nil publisher disables events.
type EventPublisher interface {
	PublishEvent(routingKey string, payload interface{}) error
}

// MetricsRecorder receives outcome counters from the services. A nil
// recorder disables metrics.
type MetricsRecorder interface {
	RecordLogin(outcome string)
	RecordTokenVerification(outcome string)
	RecordAssociationOp(operation, outcome string)
}

// Outcome labels shared by the metrics calls.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type noopRecorder struct{}

func (noopRecorder) RecordLogin(string)                 {}
func (noopRecorder) RecordTokenVerification(string)     {}
func (noopRecorder) RecordAssociationOp(string, string) {}

func recorderOrNoop(m MetricsRecorder) MetricsRecorder {
	if m == nil {
		return noopRecorder{}
	}
	return m
}

// publish sends an event if a publisher is configured. Failures are logged
// and never propagated: events are a side channel.
func publish(events EventPublisher, routingKey string, payload interface{}) {
	if events == nil {
		return
	}
	if err := events.PublishEvent(routingKey, payload); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", routingKey, err)
	}
}
