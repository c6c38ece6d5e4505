package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, cancel
}

func TestHub_BroadcastsToEverySession(t *testing.T) {
	hub, _ := startHub(t)

	a := &Client{Hub: hub, EmployeeID: 1, Send: make(chan []byte, 4)}
	b := &Client{Hub: hub, EmployeeID: 1, Send: make(chan []byte, 4)}
	c := &Client{Hub: hub, EmployeeID: 2, Send: make(chan []byte, 4)}
	hub.Register(a)
	hub.Register(b)
	hub.Register(c)

	require.Eventually(t, func() bool { return hub.ConnectedEmployees() == 2 }, time.Second, 5*time.Millisecond)

	hub.PublishCheckoutEvent(model.CheckoutEvent{
		Type:       model.CheckoutEventStatusChanged,
		CheckoutID: 7,
		Status:     model.CheckoutStatusShipped,
	})

	for _, client := range []*Client{a, b, c} {
		select {
		case raw := <-client.Send:
			var event model.CheckoutEvent
			require.NoError(t, json.Unmarshal(raw, &event))
			assert.Equal(t, uint(7), event.CheckoutID)
			assert.Equal(t, model.CheckoutStatusShipped, event.Status)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub, _ := startHub(t)

	client := &Client{Hub: hub, EmployeeID: 3, Send: make(chan []byte, 1)}
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ConnectedEmployees() == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.ConnectedEmployees() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-client.Send
	assert.False(t, open)
}

func TestHub_ShutdownClosesSessions(t *testing.T) {
	hub, cancel := startHub(t)

	client := &Client{Hub: hub, EmployeeID: 4, Send: make(chan []byte, 1)}
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ConnectedEmployees() == 1 }, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case _, open := <-client.Send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("session not closed on shutdown")
	}
}
