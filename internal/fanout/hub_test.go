package fanout

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesAllConnections(t *testing.T) {
	h := NewHub()
	a := h.Subscribe("u1")
	b := h.Subscribe("u1")

	h.Publish("u1", Event{Name: EventRewardUpdate, Payload: RewardUpdate{CurrencyDelta: 5}})

	for _, sub := range []*Subscriber{a, b} {
		ev := <-sub.Events()
		assert.Equal(t, EventRewardUpdate, ev.Name)
		assert.Equal(t, RewardUpdate{CurrencyDelta: 5}, ev.Payload)
	}
}

func TestHub_PublishScopedToUser(t *testing.T) {
	h := NewHub()
	mine := h.Subscribe("u1")
	other := h.Subscribe("u2")

	h.Publish("u1", Event{Name: EventPetReact})

	ev := <-mine.Events()
	assert.Equal(t, EventPetReact, ev.Name)
	assert.Empty(t, other.Events(), "other users must receive nothing")
}

func TestHub_PublishToEmptyGroupIsDropped(t *testing.T) {
	h := NewHub()
	// No subscribers: must not panic or block.
	h.Publish("ghost", Event{Name: EventIdleAlert})
	assert.Equal(t, 0, h.Connections("ghost"))
}

func TestHub_OrderingPerSubscriber(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("u1")

	names := []string{EventRewardUpdate, EventPetReact, EventIdleAlert}
	for _, n := range names {
		h.Publish("u1", Event{Name: n})
	}
	for _, want := range names {
		ev := <-sub.Events()
		assert.Equal(t, want, ev.Name, "events arrive in publish order")
	}
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("u1")

	for i := 0; i < subscriberBuffer+10; i++ {
		h.Publish("u1", Event{Name: EventRewardUpdate})
	}

	// Only the buffered events are retained; the rest were dropped.
	assert.Len(t, sub.ch, subscriberBuffer)
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("u1")
	h.Unsubscribe("u1", sub)

	_, open := <-sub.Events()
	assert.False(t, open, "channel must be closed after unsubscribe")
	assert.Equal(t, 0, h.Connections("u1"))

	// Publishing after teardown is a silent drop.
	h.Publish("u1", Event{Name: EventRewardUpdate})

	// Double unsubscribe must be safe.
	h.Unsubscribe("u1", sub)
}

func TestHub_ConcurrentConnectDisconnectAndPublish(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				sub := h.Subscribe("u1")
				h.Publish("u1", Event{Name: EventPetReact})
				h.Unsubscribe("u1", sub)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 200; j++ {
			h.Publish("u1", Event{Name: EventRewardUpdate})
		}
	}()
	wg.Wait()

	require.Equal(t, 0, h.Connections("u1"))
}
