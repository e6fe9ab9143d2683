package stream

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func expectMessage(t *testing.T, client *Client, want string) {
	t.Helper()
	select {
	case msg := <-client.Send:
		if string(msg) != want {
			t.Fatalf("unexpected message %q, want %q", msg, want)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for %q", want)
	}
}

func expectSilence(t *testing.T, client *Client) {
	t.Helper()
	select {
	case msg := <-client.Send:
		t.Fatalf("unexpected message %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func waitReady(t *testing.T, hub *Hub) {
	t.Helper()
	select {
	case <-hub.Ready():
	case <-time.After(time.Second):
		t.Fatalf("hub relay not ready")
	}
}

func TestHubBroadcastByTopic(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	listings := hub.Register("listings")
	defer hub.Unregister(listings)
	other := hub.Register("other")
	defer hub.Unregister(other)

	hub.Broadcast("listings", []byte("hello"))
	expectMessage(t, listings, "hello")
	expectSilence(t, other)
}

func TestChannelHelpers(t *testing.T) {
	ch := redisChannel("listings")
	if ch != "nusago:listings:changes" {
		t.Fatalf("unexpected channel %q", ch)
	}
	if topicFromChannel(ch) != "listings" {
		t.Fatalf("unexpected topic")
	}
	for _, bad := range []string{"bad", "nusago::changes", "tracking:listings:broadcast"} {
		if topicFromChannel(bad) != "" {
			t.Fatalf("expected empty topic for %q", bad)
		}
	}
}

func TestUnregisterClosesOnce(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("listings")
	hub.Unregister(client)
	hub.Unregister(client)
	if _, ok := <-client.Send; ok {
		t.Fatalf("expected channel closed")
	}
}

func TestHubDoneAfterClose(t *testing.T) {
	hub := NewHub(nil)
	select {
	case <-hub.Done():
		t.Fatalf("hub done before close")
	default:
	}
	hub.Close()
	select {
	case <-hub.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("hub not done after close")
	}
}

func TestHubRelayAcrossInstances(t *testing.T) {
	s := miniredis.RunT(t)
	rdbA := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdbA.Close()
	rdbB := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdbB.Close()

	hubA := NewHub(rdbA)
	defer hubA.Close()
	hubB := NewHub(rdbB)
	defer hubB.Close()
	waitReady(t, hubA)
	waitReady(t, hubB)

	localA := hubA.Register("listings")
	defer hubA.Unregister(localA)
	remoteB := hubB.Register("listings")
	defer hubB.Unregister(remoteB)

	hubA.Broadcast("listings", []byte(`{"op":"delete","id":"l-1"}`))

	expectMessage(t, localA, `{"op":"delete","id":"l-1"}`)
	expectMessage(t, remoteB, `{"op":"delete","id":"l-1"}`)
	expectSilence(t, localA)
}

func TestHubDropsMalformedRelay(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()

	hub := NewHub(rdb)
	defer hub.Close()
	waitReady(t, hub)
	client := hub.Register("listings")
	defer hub.Unregister(client)

	if err := rdb.Publish(context.Background(), redisChannel("listings"), "not an envelope").Err(); err != nil {
		t.Fatalf("publish error: %v", err)
	}
	expectSilence(t, client)
}

func TestHubRedisPublishError(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	server.Close()
	defer client.Close()

	hub := NewHub(client)
	defer hub.Close()
	local := hub.Register("listings")
	defer hub.Unregister(local)

	hub.Broadcast("listings", []byte("ping"))
	expectMessage(t, local, "ping")
}
