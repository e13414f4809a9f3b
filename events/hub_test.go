package events_test

import (
	"testing"

	"pickup-service/events"
	"pickup-service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func pickupEvent(marketerID string) models.PickupEvent {
	return models.PickupEvent{
		Type: models.EventPickupCreated,
		Pickup: models.PickupRecord{
			ID:         uuid.New(),
			MarketerID: marketerID,
			Status:     models.StatusPending,
		},
	}
}

func TestHub_ScopedDelivery(t *testing.T) {
	hub := events.NewHub(zap.NewNop())

	admin := hub.Subscribe("admin-1", "admin", []string{"marketer-a", "marketer-b"}, false)
	other := hub.Subscribe("admin-2", "admin", []string{"marketer-c"}, false)
	master := hub.Subscribe("boss", "master-admin", nil, true)

	hub.Publish(pickupEvent("marketer-a"))

	select {
	case got := <-admin.C:
		assert.Equal(t, "marketer-a", got.Pickup.MarketerID)
	default:
		t.Fatal("supervising admin should receive the event")
	}

	select {
	case <-other.C:
		t.Fatal("out-of-scope admin should not receive the event")
	default:
	}

	select {
	case got := <-master.C:
		assert.Equal(t, "marketer-a", got.Pickup.MarketerID)
	default:
		t.Fatal("master admin should receive every event")
	}
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := events.NewHub(zap.NewNop())
	sub := hub.Subscribe("admin-1", "admin", []string{"marketer-a"}, false)

	// Overflow the buffer; Publish must never block.
	for i := 0; i < 50; i++ {
		hub.Publish(pickupEvent("marketer-a"))
	}

	received := 0
	for {
		select {
		case <-sub.C:
			received++
			continue
		default:
		}
		break
	}
	require.Greater(t, received, 0)
	assert.Less(t, received, 50)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := events.NewHub(zap.NewNop())
	sub := hub.Subscribe("admin-1", "admin", []string{"marketer-a"}, false)
	assert.Equal(t, 1, hub.SubscriberCount())

	hub.Unsubscribe(sub)
	assert.Equal(t, 0, hub.SubscriberCount())

	// Channel is closed; publishing afterwards must not panic.
	hub.Publish(pickupEvent("marketer-a"))
	_, open := <-sub.C
	assert.False(t, open)

	// Double unsubscribe is safe.
	hub.Unsubscribe(sub)
}

func TestHub_MultipleSubscriptionsPerViewer(t *testing.T) {
	hub := events.NewHub(zap.NewNop())

	first := hub.Subscribe("admin-1", "admin", []string{"marketer-a"}, false)
	second := hub.Subscribe("admin-1", "admin", []string{"marketer-a"}, false)
	require.NotEqual(t, first.ID, second.ID)

	hub.Publish(pickupEvent("marketer-a"))

	for _, sub := range []*events.Subscriber{first, second} {
		select {
		case <-sub.C:
		default:
			t.Fatal("both subscriptions should receive the event")
		}
	}
}
