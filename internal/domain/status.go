package domain

import "fmt"

// ChatStatus tracks where a chat is in its persistence lifecycle.
type ChatStatus int

const (
	StatusLocal ChatStatus = iota
	StatusSending
	StatusFail
	StatusOK
)

var statusNames = [...]string{
	StatusLocal:   "local",
	StatusSending: "sending",
	StatusFail:    "fail",
	StatusOK:      "ok",
}

func (s ChatStatus) String() string {
	if s < StatusLocal || s > StatusOK {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// Valid reports whether s is one of the four known states.
func (s ChatStatus) Valid() bool {
	return s >= StatusLocal && s <= StatusOK
}

// StatusObserver is called after a chat moved to a new status.
type StatusObserver func(status ChatStatus, chat *Chat)

type statusObserver struct {
	id int
	fn StatusObserver
}

type statusMachine struct {
	value     ChatStatus
	observers []statusObserver
	nextID    int
}

func (m *statusMachine) subscribe(fn StatusObserver) int {
	m.nextID++
	m.observers = append(m.observers, statusObserver{id: m.nextID, fn: fn})
	return m.nextID
}

func (m *statusMachine) unsubscribe(id int) {
	for i, o := range m.observers {
		if o.id == id {
			m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
			return
		}
	}
}

// Status returns the current lifecycle state.
func (c *Chat) Status() ChatStatus {
	return c.status.value
}

func (c *Chat) StatusName() string {
	return c.status.value.String()
}

func (c *Chat) IsStatus(s ChatStatus) bool {
	return c.status.value == s
}

func (c *Chat) IsOK() bool {
	return c.IsStatus(StatusOK)
}

// ChangeStatus moves the chat to s and notifies observers. Moving to the current
// state is a no-op, as are invalid states and StatusOK without a remote id.
func (c *Chat) ChangeStatus(s ChatStatus) {
	if !s.Valid() || c.status.value == s {
		return
	}
	if s == StatusOK && c.id == "" {
		return
	}
	c.status.value = s
	// Observers may unregister themselves while being notified.
	observers := append([]statusObserver(nil), c.status.observers...)
	for _, o := range observers {
		o.fn(s, c)
	}
}

// OnStatusChange registers fn for every later status transition. The returned func
// removes the registration and is safe to call more than once.
func (c *Chat) OnStatusChange(fn StatusObserver) (unregister func()) {
	if fn == nil {
		return func() {}
	}
	id := c.status.subscribe(fn)
	return func() {
		c.status.unsubscribe(id)
	}
}

// ID returns the server assigned identifier, empty until the server confirmed the chat.
func (c *Chat) ID() string {
	return c.id
}

// SetRemoteID records the server identifier. A non-empty id confirms the chat;
// clearing it marks the chat as failed.
func (c *Chat) SetRemoteID(id string) {
	c.id = id
	if id != "" {
		c.ChangeStatus(StatusOK)
	} else {
		c.ChangeStatus(StatusFail)
	}
}
