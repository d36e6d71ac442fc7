package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bananameter/playtabq/pkg/host"
)

func TestBus_RuntimeMessages(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	var got []Message
	var senders []Sender
	remove := bus.OnMessage(func(_ context.Context, msg Message, sender Sender) {
		got = append(got, msg)
		senders = append(senders, sender)
	})

	tab := &host.Tab{ID: 3}
	bus.Send(ctx, Message{Type: TypeVideoEnded}, Sender{Tab: tab})

	assert.Equal(t, []Message{{Type: TypeVideoEnded}}, got)
	assert.Same(t, tab, senders[0].Tab)

	remove()
	bus.Send(ctx, Message{Type: TypeVideoEnded}, Sender{})
	assert.Len(t, got, 1)
}

func TestBus_TabMessagesAreAddressed(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	var tab1, tab2 int
	bus.OnTabMessage(1, func(context.Context, Message) { tab1++ })
	remove2 := bus.OnTabMessage(2, func(context.Context, Message) { tab2++ })

	assert.True(t, bus.SendToTab(ctx, 1, Message{Type: TypePlayVideo}))
	assert.Equal(t, 1, tab1)
	assert.Equal(t, 0, tab2)

	remove2()
	assert.False(t, bus.SendToTab(ctx, 2, Message{Type: TypePlayVideo}))
	assert.Equal(t, 0, tab2)
}
