//go:build integration

package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlportal/pkg/testutil/containers"
)

func TestRedisBackend_FanOutAcrossBrokers(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	left := NewBroker(WithBackend(NewRedisBackend(rc.Client, "test:messages", nil)))
	right := NewBroker(WithBackend(NewRedisBackend(rc.Client, "test:messages", nil)))
	go func() { _ = left.Run(ctx) }()
	go func() { _ = right.Run(ctx) }()

	sub, err := right.Subscribe("999993653")
	require.NoError(t, err)

	// PUBSUB NUMSUB confirms both brokers are listening before publishing.
	require.Eventually(t, func() bool {
		counts, err := rc.Client.PubSubNumSub(ctx, "test:messages").Result()
		return err == nil && counts["test:messages"] == 2
	}, 5*time.Second, 50*time.Millisecond)

	sent, err := left.Publisher().Publish(ctx, "999993653", "zaak.status", map[string]string{"status": "Afgerond"})
	require.NoError(t, err)

	got := receive(t, sub)
	assert.Equal(t, sent.ID, got.ID)
	assert.JSONEq(t, `{"status":"Afgerond"}`, string(got.Payload))
}
