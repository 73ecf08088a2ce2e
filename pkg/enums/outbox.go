package enums

import "slices"

// OutboxAggregateType names the entity an outbox row belongs to.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
	AggregateBag   OutboxAggregateType = "bag"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateOrder || a == AggregateBag
}

// OutboxEventType is the domain event carried by an outbox row. Values
// double as the event_type attribute on published messages.
type OutboxEventType string

const (
	EventOrderPlaced    OutboxEventType = "order_placed"
	EventOrderConfirmed OutboxEventType = "order_confirmed"
	EventOrderCompleted OutboxEventType = "order_completed"
	EventOrderCancelled OutboxEventType = "order_cancelled"
	EventOrderRated     OutboxEventType = "order_rated"
	EventBagCreated     OutboxEventType = "bag_created"
)

var outboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderConfirmed,
	EventOrderCompleted,
	EventOrderCancelled,
	EventOrderRated,
	EventBagCreated,
}

func (e OutboxEventType) IsValid() bool { return slices.Contains(outboxEventTypes, e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return member(outboxEventTypes, "event type", value)
}
