package room

import "sync"

type sentEvent struct {
	event   string
	payload any
}

// mockConn records what the room layer sends through it.
type mockConn struct {
	id string

	mu     sync.Mutex
	events []sentEvent
	closed bool
}

func newMockConn(id string) *mockConn { return &mockConn{id: id} }

func (c *mockConn) ID() string { return c.id }

func (c *mockConn) SendEvent(event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, sentEvent{event: event, payload: payload})
}

func (c *mockConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *mockConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *mockConn) eventNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.events))
	for i, e := range c.events {
		names[i] = e.event
	}
	return names
}
