package bridge

// FakePublisher records published payloads for test assertions.
type FakePublisher struct {
	// Statuses contains the status payloads that were published.
	Statuses [][]byte

	// Messages contains the alert payloads that were published.
	Messages [][]byte

	// PublishError, if set, will be returned by both publish methods.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishStatus records the payload.
func (f *FakePublisher) PublishStatus(payload []byte) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Statuses = append(f.Statuses, payload)
	return nil
}

// PublishMessage records the payload.
func (f *FakePublisher) PublishMessage(payload []byte) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Messages = append(f.Messages, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// FakeFeedHold records hold transitions.
type FakeFeedHold struct {
	// Changes lists every value passed to Set, in order.
	Changes []bool

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// Set records the value.
func (f *FakeFeedHold) Set(hold bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Changes = append(f.Changes, hold)
	return nil
}

// Close marks the line as released.
func (f *FakeFeedHold) Close() error {
	f.Closed = true
	return nil
}
