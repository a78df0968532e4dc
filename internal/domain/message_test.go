package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("student")
	assert.True(t, ok)
	assert.Equal(t, RoleStudent, r)

	_, ok = ParseRole("robot")
	assert.False(t, ok)
}

func TestCounterpart(t *testing.T) {
	m := Message{SenderID: "u1", ReceiverID: "u2", SenderName: "A", ReceiverName: "B",
		SenderType: RoleStudent, ReceiverType: RolePeer}

	assert.Equal(t, "u2", m.Counterpart("u1"))
	assert.Equal(t, "B", m.CounterpartName("u1"))
	assert.Equal(t, RolePeer, m.CounterpartRole("u1"))

	assert.Equal(t, "u1", m.Counterpart("u2"))
	assert.Equal(t, "A", m.CounterpartName("u2"))
	assert.Equal(t, RoleStudent, m.CounterpartRole("u2"))
}

func TestInThread(t *testing.T) {
	m := Message{SenderID: "u1", ReceiverID: "u2"}
	assert.True(t, m.InThread("u1", "u2"))
	assert.True(t, m.InThread("u2", "u1"))
	assert.False(t, m.InThread("u1", "u3"))
}

func TestThreadKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, ThreadKey("a", "b"), ThreadKey("b", "a"))
	assert.Equal(t, "a:b", ThreadKey("b", "a"))
}
