package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	channelPrefix  = "nusago:"
	channelSuffix  = ":changes"
	channelPattern = channelPrefix + "*" + channelSuffix
	clientBuffer   = 256
)

// Hub fans topic messages out to local clients and relays them through
// Redis to every other hub. Each hub drops the relayed copies of its own
// messages, which it has already delivered locally.
type Hub struct {
	id      string
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex

	ready  chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

type Client struct {
	Topic string
	Send  chan []byte
}

type envelope struct {
	Origin  string `json:"origin"`
	Payload []byte `json:"payload"`
}

func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		id:      uuid.NewString(),
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
		ready:   make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	if redisClient != nil {
		go h.subscribeRedis(ctx)
	} else {
		close(h.ready)
	}
	return h
}

// Ready is closed once the Redis relay is subscribed, or immediately when
// there is no relay.
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

// Done is closed once the hub has been closed.
func (h *Hub) Done() <-chan struct{} {
	return h.ctx.Done()
}

func (h *Hub) Close() {
	h.cancel()
}

func (h *Hub) Register(topic string) *Client {
	client := &Client{
		Topic: topic,
		Send:  make(chan []byte, clientBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = map[*Client]struct{}{}
	}
	h.clients[topic][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topicClients, ok := h.clients[client.Topic]
	if !ok {
		return
	}
	if _, ok := topicClients[client]; !ok {
		return
	}
	delete(topicClients, client)
	if len(topicClients) == 0 {
		delete(h.clients, client.Topic)
	}
	close(client.Send)
}

// Broadcast delivers payload to local clients of topic and publishes it
// for the other hubs.
func (h *Hub) Broadcast(topic string, payload []byte) {
	h.deliver(topic, payload)

	if h.redis == nil {
		return
	}
	msg, err := json.Marshal(envelope{Origin: h.id, Payload: payload})
	if err != nil {
		log.WithError(err).WithField("topic", topic).Error("encode relay envelope")
		return
	}
	if err := h.redis.Publish(context.Background(), redisChannel(topic), msg).Err(); err != nil {
		log.WithError(err).WithField("topic", topic).Warn("redis publish failed")
	}
}

func (h *Hub) deliver(topic string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[topic] {
		select {
		case client.Send <- payload:
		default:
			log.WithField("topic", topic).Warn("client buffer full, message dropped")
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.redis.PSubscribe(ctx, channelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		log.WithError(err).Error("redis relay subscribe failed")
		close(h.ready)
		return
	}
	close(h.ready)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.relay(msg.Channel, msg.Payload)
		}
	}
}

func (h *Hub) relay(channel, raw string) {
	topic := topicFromChannel(channel)
	if topic == "" {
		return
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		log.WithError(err).WithField("channel", channel).Warn("dropping malformed relay message")
		return
	}
	if env.Origin == h.id {
		return
	}
	h.deliver(topic, env.Payload)
}

func redisChannel(topic string) string {
	return channelPrefix + topic + channelSuffix
}

// topicFromChannel reverses redisChannel: nusago:{topic}:changes.
func topicFromChannel(ch string) string {
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
