package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusStartsLocal(t *testing.T) {
	c := NewGroupChat("design", 1, 2, 3)
	assert.Equal(t, StatusLocal, c.Status())
	assert.Equal(t, "local", c.StatusName())
	assert.False(t, c.IsOK())
}

func TestSetRemoteIDDrivesStatus(t *testing.T) {
	c := NewGroupChat("design", 1, 2)

	type change struct {
		status ChatStatus
		chat   *Chat
	}
	var changes []change
	c.OnStatusChange(func(s ChatStatus, chat *Chat) {
		changes = append(changes, change{s, chat})
	})

	c.ChangeStatus(StatusSending)
	c.SetRemoteID("42")
	require.Len(t, changes, 2)
	assert.Equal(t, StatusSending, changes[0].status)
	assert.Equal(t, StatusOK, changes[1].status)
	assert.Same(t, c, changes[1].chat)
	assert.True(t, c.IsOK())
	assert.Equal(t, StatusOK, c.Record().Status)

	c.SetRemoteID("")
	assert.Equal(t, StatusFail, c.Status())
	assert.Equal(t, StatusFail, c.Record().Status)
	assert.Len(t, changes, 3)
}

func TestChangeStatusToSameStateIsSilent(t *testing.T) {
	c := NewGroupChat("design", 1)
	calls := 0
	c.OnStatusChange(func(ChatStatus, *Chat) { calls++ })

	c.ChangeStatus(StatusLocal)
	c.ChangeStatus(StatusSending)
	c.ChangeStatus(StatusSending)
	assert.Equal(t, 1, calls)
}

func TestStatusOKRequiresRemoteID(t *testing.T) {
	c := NewGroupChat("design", 1)
	c.ChangeStatus(StatusOK)
	assert.Equal(t, StatusLocal, c.Status())

	c.ChangeStatus(ChatStatus(9))
	assert.Equal(t, StatusLocal, c.Status())
}

func TestUnregisterStatusObserver(t *testing.T) {
	c := NewGroupChat("design", 1)
	var first, second int
	unregister := c.OnStatusChange(func(ChatStatus, *Chat) { first++ })
	c.OnStatusChange(func(ChatStatus, *Chat) { second++ })

	c.ChangeStatus(StatusSending)
	unregister()
	unregister()
	c.ChangeStatus(StatusFail)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestObserverMayUnregisterItself(t *testing.T) {
	c := NewGroupChat("design", 1)
	calls := 0
	var unregister func()
	unregister = c.OnStatusChange(func(ChatStatus, *Chat) {
		calls++
		unregister()
	})

	c.ChangeStatus(StatusSending)
	c.ChangeStatus(StatusFail)
	assert.Equal(t, 1, calls)
}

func TestChatStatusString(t *testing.T) {
	assert.Equal(t, "sending", StatusSending.String())
	assert.Equal(t, "status(7)", ChatStatus(7).String())
}
