// Package mock provides an in-memory [mqtt.Client] for testing code that
// talks to a broker.
package mock

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lone-faerie/lenconv/log"
)

// Message is a message published through a [MockClient].
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// MockClient implements [mqtt.Client] without a broker. Publishes are
// recorded and optionally echoed to a writer, and messages can be delivered
// to subscriptions with [MockClient.Deliver].
type MockClient struct {
	connected bool

	// ConnectErr, SubscribeErr and PublishErr are returned by the tokens of
	// the matching operations when set.
	ConnectErr   error
	SubscribeErr error
	PublishErr   error

	opts      *mqtt.ClientOptions
	w         io.Writer
	published []Message
	handlers  map[string]mqtt.MessageHandler
	changed   chan struct{}
	mu        sync.Mutex
}

// NewMockClient returns a MockClient with the given options. If w is not nil,
// every publish is written to it as indented JSON.
func NewMockClient(o *mqtt.ClientOptions, w io.Writer) *MockClient {
	if o == nil {
		o = mqtt.NewClientOptions()
	}
	return &MockClient{
		opts:     o,
		w:        w,
		handlers: make(map[string]mqtt.MessageHandler),
		changed:  make(chan struct{}),
	}
}

func (c *MockClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *MockClient) IsConnectionOpen() bool {
	return c.IsConnected()
}

func (c *MockClient) Connect() mqtt.Token {
	if c.ConnectErr != nil {
		return &token{err: c.ConnectErr}
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	if c.opts.OnConnect != nil {
		c.opts.OnConnect(c)
	}
	return &token{}
}

func (c *MockClient) Disconnect(_ uint) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *MockClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	if c.PublishErr != nil {
		return &token{err: c.PublishErr}
	}
	var p []byte
	switch v := payload.(type) {
	case []byte:
		p = v
	case string:
		p = []byte(v)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, Message{topic, qos, retained, p})
	close(c.changed)
	c.changed = make(chan struct{})

	if c.w != nil {
		raw := json.RawMessage(p)
		if !json.Valid(p) {
			raw, _ = json.Marshal(string(p))
		}
		e := json.NewEncoder(c.w)
		e.SetIndent("", "  ")
		if err := e.Encode(map[string]json.RawMessage{topic: raw}); err != nil {
			log.Error("Error encoding "+topic, err)
		}
	}
	return &token{}
}

func (c *MockClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	if c.SubscribeErr != nil {
		return &token{err: c.SubscribeErr}
	}
	c.mu.Lock()
	c.handlers[topic] = callback
	c.mu.Unlock()
	return &token{}
}

func (c *MockClient) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	if c.SubscribeErr != nil {
		return &token{err: c.SubscribeErr}
	}
	c.mu.Lock()
	for topic := range filters {
		c.handlers[topic] = callback
	}
	c.mu.Unlock()
	return &token{}
}

func (c *MockClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	for _, topic := range topics {
		delete(c.handlers, topic)
	}
	c.mu.Unlock()
	return &token{}
}

func (c *MockClient) AddRoute(topic string, callback mqtt.MessageHandler) {
	c.mu.Lock()
	c.handlers[topic] = callback
	c.mu.Unlock()
}

func (c *MockClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.NewOptionsReader(c.opts)
}

// Subscribed reports whether a handler is registered for topic.
func (c *MockClient) Subscribed(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.handlers[topic]
	return ok
}

// Deliver calls the handler subscribed to topic with payload, as the broker
// would. Deliver reports false if nothing is subscribed to topic.
func (c *MockClient) Deliver(topic string, payload []byte) bool {
	c.mu.Lock()
	h, ok := c.handlers[topic]
	c.mu.Unlock()
	if !ok {
		return false
	}
	h(c, &message{topic: topic, payload: payload})
	return true
}

// Published returns the messages published to topic so far, or every message
// if topic is empty.
func (c *MockClient) Published(topic string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter(topic)
}

func (c *MockClient) filter(topic string) []Message {
	var msgs []Message
	for _, m := range c.published {
		if topic == "" || m.Topic == topic {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// WaitFor waits until at least n messages have been published to topic and
// returns them.
func (c *MockClient) WaitFor(ctx context.Context, topic string, n int) ([]Message, error) {
	for {
		c.mu.Lock()
		msgs := c.filter(topic)
		changed := c.changed
		c.mu.Unlock()
		if len(msgs) >= n {
			return msgs, nil
		}
		select {
		case <-ctx.Done():
			return msgs, ctx.Err()
		case <-changed:
		}
	}
}

// token implements [mqtt.Token] for an operation that has already completed.
type token struct {
	err error
}

var closed = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (t *token) Wait() bool                     { return true }
func (t *token) WaitTimeout(time.Duration) bool { return true }
func (t *token) Done() <-chan struct{}          { return closed }
func (t *token) Error() error                   { return t.err }

type message struct {
	topic   string
	payload []byte
}

func (m *message) Duplicate() bool   { return false }
func (m *message) Qos() byte         { return 0 }
func (m *message) Retained() bool    { return false }
func (m *message) MessageID() uint16 { return 0 }
func (m *message) Ack()              {}

func (m *message) Topic() string {
	return m.topic
}

func (m *message) Payload() []byte {
	return m.payload
}
