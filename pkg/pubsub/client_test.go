package pubsub

import (
	"testing"

	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestResourceName(t *testing.T) {
	assert.Equal(t, "projects/p1/topics/domain", resourceName("p1", "topics", " domain "))
	assert.Equal(t, "projects/x/subscriptions/s", resourceName("p1", "subscriptions", "projects/x/subscriptions/s"))
	assert.Equal(t, "", resourceName("", "topics", "domain"))
	assert.Equal(t, "", resourceName("p1", "topics", "  "))
}

func TestWorkerSubscriptions(t *testing.T) {
	cfg := config.PubSubConfig{
		NotificationSubscription: "n",
		PushSubscription:         "p",
		RealtimeSubscription:     " ",
		AnalyticsSubscription:    "a",
	}
	assert.Equal(t, []string{"n", "p"}, WorkerSubscriptions(cfg, false))
	assert.Equal(t, []string{"n", "p", "a"}, WorkerSubscriptions(cfg, true))
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Subscriber("x"))
	assert.Nil(t, c.DomainPublisher())
	assert.NoError(t, c.Close())
}
