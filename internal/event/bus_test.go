package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToEverySubscriber(t *testing.T) {
	bus := NewBus()
	first, unsubFirst := bus.Subscribe()
	defer unsubFirst()
	second, unsubSecond := bus.Subscribe()
	defer unsubSecond()

	bus.Publish(Event{Type: TypePostReplied, RecipientID: "u1", Message: "hi", Timestamp: time.Now()})

	for _, ch := range []<-chan Event{first, second} {
		select {
		case e := <-ch:
			assert.Equal(t, TypePostReplied, e.Type)
			assert.NotEmpty(t, e.ID)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()
	unsubscribe()

	_, open := <-ch
	assert.False(t, open)

	unsubscribe()
	bus.Publish(Event{Type: TypeUserWarned})
}

func TestBusDropsWhenBufferFull(t *testing.T) {
	bus := NewBus()
	_, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+3; i++ {
		bus.Publish(Event{Type: TypeContentLiked})
	}

	require.Equal(t, int64(3), bus.Dropped())
}
