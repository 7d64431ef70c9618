package shared_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dddkit/domain/shared"
)

type counterIncremented struct {
	shared.BaseEvent
	Value int
}

type counter struct {
	shared.AggregateRoot[string]
	events shared.EventRecorder
	value  int
}

func newCounter(id string) *counter {
	root, events := shared.NewAggregateRoot(id)
	return &counter{AggregateRoot: root, events: events}
}

func (c *counter) Increment() {
	c.value++
	c.events.Record(counterIncremented{
		BaseEvent: shared.NewBaseEvent("counter.incremented", c.ID()),
		Value:     c.value,
	})
}

func TestAggregateRoot_EventsAreBufferedInCallOrder(t *testing.T) {
	c := newCounter("c-1")
	for range 3 {
		c.Increment()
	}

	events := c.DomainEvents()
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, i+1, e.(counterIncremented).Value)
	}
}

func TestAggregateRoot_SnapshotIsNotAffectedByLaterEvents(t *testing.T) {
	c := newCounter("c-1")
	c.Increment()

	snapshot := c.DomainEvents()
	c.Increment()
	snapshot[0] = nil

	assert.Len(t, snapshot, 1)
	assert.Len(t, c.DomainEvents(), 2)
	assert.NotNil(t, c.DomainEvents()[0])
}

func TestAggregateRoot_ClearIsIdempotent(t *testing.T) {
	c := newCounter("c-1")
	c.Increment()
	c.Increment()

	c.ClearDomainEvents()
	assert.Empty(t, c.DomainEvents())
	c.ClearDomainEvents()
	assert.Empty(t, c.DomainEvents())

	c.Increment()
	assert.Len(t, c.DomainEvents(), 1)
}

func TestAggregateRoot_ZeroValueIsUsableButSilent(t *testing.T) {
	var root shared.AggregateRoot[int]

	assert.Empty(t, root.DomainEvents())
	root.ClearDomainEvents()
	assert.True(t, root.IsTransient())
}

func TestAggregateRoot_IsAnEntity(t *testing.T) {
	a, b := newCounter("same"), newCounter("same")
	a.Increment()

	assert.True(t, shared.Equal[string](a, b))

	var _ shared.Aggregate[string] = a
}
