package imageslots

import "context"

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// SlotStored does nothing and returns nil
func (n *NoopEventSink) SlotStored(ctx context.Context, slot Slot) error {
	return nil
}

// SlotEvicted does nothing and returns nil
func (n *NoopEventSink) SlotEvicted(ctx context.Context, slot Slot) error {
	return nil
}

// UserCleared does nothing and returns nil
func (n *NoopEventSink) UserCleared(ctx context.Context, userID string, removed int) error {
	return nil
}
