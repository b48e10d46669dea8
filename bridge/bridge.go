// Package bridge serves length conversions and a remote converter panel over
// MQTT.
//
// Stateless conversions are requested by publishing a JSON request to
// <base>/convert:
//
//	{"input": "26.2", "from": "mi", "to": "km", "reply_to": "my/reply"}
//
// The outcome is published to reply_to, or <base>/result if it is empty. The
// panel is driven through the <base>/panel/... command topics and its state is
// published retained to <base>/panel/state after every change.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"

	"github.com/lone-faerie/lenconv/config"
	"github.com/lone-faerie/lenconv/discovery"
	"github.com/lone-faerie/lenconv/discovery/icon"
	"github.com/lone-faerie/lenconv/length"
	"github.com/lone-faerie/lenconv/log"
	"github.com/lone-faerie/lenconv/panel"
)

// Topics relative to the base topic.
const (
	TopicConvert     = "convert"
	TopicResult      = "result"
	TopicPanelInput  = "panel/input/set"
	TopicPanelSource = "panel/source/set"
	TopicPanelTarget = "panel/target/set"
	TopicPanelSwap   = "panel/swap"
	TopicPanelCalc   = "panel/calculate"
	TopicPanelState  = "panel/state"
	TopicStop        = "bridge/stop"
)

// ErrMissingUnit is returned for a conversion request without a from or to unit.
var ErrMissingUnit = errors.New("missing unit")

// Bridge is the MQTT client that bridges conversions and the panel to the
// broker.
type Bridge struct {
	client mqtt.Client

	baseTopic string
	qos       byte
	panel     *panel.Panel
	discovery *discovery.Discovery

	updates chan publication

	ready chan struct{}
	done  chan struct{}

	once   sync.Once
	cancel context.CancelFunc
}

type publication struct {
	topic    string
	retained bool
	payload  []byte
}

var noopLogger = mqtt.NOOPLogger{}

// New returns a new Bridge with the given config and options. The config is
// used to fill in any values not provided by the options. The bridge must be
// started with [Bridge.Start] before it serves anything.
func New(cfg *config.Config, opts ...Option) *Bridge {
	b := &Bridge{
		qos: cfg.MQTT.QoS,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.client == nil {
		b.client = mqtt.NewClient(cfg.MQTT.ClientOptions())
	}

	if b.panel == nil {
		b.panel = panel.New(cfg.Defaults.Source, cfg.Defaults.Target)
	}

	if b.discovery == nil && cfg.Discovery.Enabled {
		d, err := discovery.New(&cfg.Discovery)
		if err != nil {
			log.Error("Unable to get discovery", err)
		} else {
			b.discovery = d
		}
	}

	if cfg.MQTT.LogLevel < log.LevelDisabled && mqtt.ERROR == noopLogger {
		SetClientLogLevel(cfg.MQTT.LogLevel)
	}

	if b.baseTopic == "" {
		if cfg.BaseTopic != "" {
			b.baseTopic = cfg.BaseTopic
		} else {
			b.baseTopic = config.DefaultBaseTopic
		}
	}

	return b
}

// Topic returns the full topic of sub, one of the Topic constants.
func (b *Bridge) Topic(sub string) string {
	return b.baseTopic + "/" + sub
}

// Panel returns the panel served by the bridge.
func (b *Bridge) Panel() *panel.Panel {
	return b.panel
}

// waitToken waits for the first of ctx.Done() or t.Done() and returns t.Error(), or ctx.Err()
// if ctx.Done() finished first.
func waitToken(ctx context.Context, t mqtt.Token) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Done():
	}

	return t.Error()
}

// maybeSend sends t on ch, unless the given context is cancelled before it can send.
// maybeSend returns true if t was sent and false if the context was canceled.
func maybeSend[T any](ctx context.Context, ch chan<- T, t T) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- t:
		return true
	}
}

// nilToken implements [mqtt.Token] with a nil channel.
type nilToken struct{}

func (nilToken) Wait() bool                       { return true }
func (nilToken) WaitTimeout(_ time.Duration) bool { return true }
func (nilToken) Done() <-chan struct{}            { return nil }
func (nilToken) Error() error                     { return nil }

// loop is the event loop for the bridge and publishes everything received on the updates channel.
func (b *Bridge) loop(ctx context.Context) {
	defer func() {
		if b.client.IsConnected() || b.client.IsConnectionOpen() {
			if t := b.publishAvailability(false); t != nil {
				t.WaitTimeout(time.Second)
			}

			b.client.Disconnect(500)
		}

		close(b.done)
	}()

	var t mqtt.Token = nilToken{}

	for {
		select {
		case <-ctx.Done():
			return
		case p := <-b.updates:
			t = b.client.Publish(p.topic, b.qos, p.retained, p.payload)
		case <-t.Done():
			if err := t.Error(); err != nil {
				log.WarnError("Unable to publish update", err)
			}

			t = nilToken{}
		}
	}
}

// Start connects to the broker, subscribes to the command topics and starts
// the bridge's event loop. Start returns once the bridge is ready.
func (b *Bridge) Start(ctx context.Context) (err error) {
	b.once.Do(func() {
		b.ready = make(chan struct{})
		b.done = make(chan struct{})
		b.updates = make(chan publication)

		t := b.client.Connect()
		if err = waitToken(ctx, t); err != nil {
			err = fmt.Errorf("connecting to broker: %w", err)
			close(b.done)
			return
		}

		ctx, b.cancel = context.WithCancel(ctx)

		if err = b.start(ctx); err != nil {
			b.cancel()
			b.client.Disconnect(250)
			close(b.done)
			return
		}

		go b.loop(ctx)

		close(b.ready)
		log.Info("Bridge ready", "base_topic", b.baseTopic)
	})

	return
}

// subscribe subscribes handler to sub. Handlers get ctx, while wait only
// bounds the subscription itself.
func (b *Bridge) subscribe(ctx, wait context.Context, sub string, handler func(context.Context, []byte)) error {
	topic := b.Topic(sub)
	t := b.client.Subscribe(topic, b.qos, func(_ mqtt.Client, msg mqtt.Message) {
		log.Debug("Received message", "topic", msg.Topic())
		handler(ctx, msg.Payload())
	})
	if err := waitToken(wait, t); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	log.Debug("Subscribed", "topic", topic)

	return nil
}

// start subscribes to every command topic and publishes the birth message,
// the panel state and the discovery payload.
func (b *Bridge) start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	handlers := map[string]func(context.Context, []byte){
		TopicConvert:     b.handleConvert,
		TopicPanelInput:  b.handleInput,
		TopicPanelSource: b.handleSource,
		TopicPanelTarget: b.handleTarget,
		TopicPanelSwap:   b.handleSwap,
		TopicPanelCalc:   b.handleCalculate,
		TopicStop: func(context.Context, []byte) {
			go b.Stop()
		},
	}
	for sub, h := range handlers {
		g.Go(func() error {
			return b.subscribe(ctx, gctx, sub, h)
		})
	}

	g.Go(func() error {
		if t := b.publishAvailability(true); t != nil {
			return waitToken(gctx, t)
		}
		return nil
	})

	g.Go(func() error {
		payload, err := json.Marshal(b.panel.State())
		if err != nil {
			return err
		}
		return waitToken(gctx, b.client.Publish(b.Topic(TopicPanelState), b.qos, true, payload))
	})

	if b.discovery != nil {
		g.Go(func() error {
			b.Discover(b.discovery)
			return b.discovery.Publish(gctx, b.client)
		})
	}

	return g.Wait()
}

// Stop publishes the offline status, disconnects from the broker and waits
// for the event loop to finish.
func (b *Bridge) Stop() {
	log.Debug("Stopping bridge")

	if b.ready == nil {
		return
	}

	select {
	case <-b.ready:
	case <-b.done:
		return
	}

	b.cancel()
	<-b.done
}

// Ready is closed once [Bridge.Start] has succeeded.
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// Done is closed once the bridge has stopped.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// publishAvailability publishes the client's birth ("online") or LWT payload
// to the LWT topic. It returns nil if the client has no LWT.
func (b *Bridge) publishAvailability(online bool) mqtt.Token {
	opts := b.client.OptionsReader()
	if !opts.WillEnabled() || opts.WillTopic() == "" {
		return nil
	}

	payload := opts.WillPayload()
	if online {
		payload = []byte("online")
	}

	return b.client.Publish(opts.WillTopic(), opts.WillQos(), opts.WillRetained(), payload)
}

func (b *Bridge) publish(ctx context.Context, topic string, retained bool, payload []byte) {
	if !maybeSend(ctx, b.updates, publication{topic, retained, payload}) {
		log.Debug("Dropped publish, bridge stopping", "topic", topic)
	}
}

func (b *Bridge) publishState(ctx context.Context) {
	payload, err := json.Marshal(b.panel.State())
	if err != nil {
		log.WarnError("Unable to marshal panel state", err)
		return
	}

	b.publish(ctx, b.Topic(TopicPanelState), true, payload)
}

// convertRequest keeps the units as text so that reply_to is known even when a
// unit is invalid.
type convertRequest struct {
	Input   string  `json:"input"`
	From    *string `json:"from"`
	To      *string `json:"to"`
	ReplyTo string  `json:"reply_to,omitempty"`
}

type errorReply struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseUnit(s *string, field string) (length.Unit, error) {
	if s == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingUnit, field)
	}
	return length.ParseUnit(*s)
}

// decodeRequest parses a conversion request. The reply topic is returned even
// when the units are invalid.
func decodeRequest(payload []byte) (req length.Request, replyTo string, err error) {
	var r convertRequest

	if err = json.Unmarshal(payload, &r); err != nil {
		return req, "", err
	}

	req.Input = r.Input
	if req.From, err = parseUnit(r.From, "from"); err != nil {
		return req, r.ReplyTo, err
	}
	req.To, err = parseUnit(r.To, "to")

	return req, r.ReplyTo, err
}

func (b *Bridge) handleConvert(ctx context.Context, payload []byte) {
	req, replyTo, err := decodeRequest(payload)
	if replyTo == "" {
		replyTo = b.Topic(TopicResult)
	}

	var data []byte
	if err != nil {
		log.WarnError("Invalid conversion request", err)
		data, err = json.Marshal(errorReply{Error: "bad_request", Message: err.Error()})
	} else {
		o := req.Do()
		log.Debug("Converted", "request", req, "result", o.String())
		data, err = json.Marshal(o)
	}
	if err != nil {
		log.WarnError("Unable to marshal reply", err)
		return
	}

	b.publish(ctx, replyTo, false, data)
}

func (b *Bridge) handleInput(ctx context.Context, payload []byte) {
	b.panel.SetInput(string(payload))
	b.publishState(ctx)
}

func (b *Bridge) handleUnit(ctx context.Context, payload []byte, set func(length.Unit) error) {
	u, err := length.ParseUnit(string(bytes.TrimSpace(payload)))
	if err == nil {
		err = set(u)
	}
	if err != nil {
		log.WarnError("Invalid unit", err)
		return
	}

	b.publishState(ctx)
}

func (b *Bridge) handleSource(ctx context.Context, payload []byte) {
	b.handleUnit(ctx, payload, b.panel.SetSource)
}

func (b *Bridge) handleTarget(ctx context.Context, payload []byte) {
	b.handleUnit(ctx, payload, b.panel.SetTarget)
}

func (b *Bridge) handleSwap(ctx context.Context, _ []byte) {
	b.panel.Swap()
	b.publishState(ctx)
}

func (b *Bridge) handleCalculate(ctx context.Context, _ []byte) {
	if o := b.panel.Calculate(); !o.OK() {
		log.Debug("Calculation failed", "input", o.Input, "error", o.Err.Kind())
	}
	b.publishState(ctx)
}

// Discover adds the panel's entities to d.
func (b *Bridge) Discover(d *discovery.Discovery) {
	var (
		state   = b.Topic(TopicPanelState)
		units   = length.Units()
		options = make([]string, len(units))
	)
	for i, u := range units {
		options[i] = u.String()
	}

	cmp := func(id string, c discovery.Component) {
		c[discovery.UniqueID] = d.NodeID + "_" + id
		c[discovery.ObjectID] = d.NodeID + "_" + id
		if d.AvailabilityTopic != "" {
			c[discovery.AvailabilityTopic] = d.AvailabilityTopic
		}
		d.Components[id] = c
	}

	cmp("input", discovery.Component{
		discovery.Platform:      discovery.Text,
		discovery.Name:          "Input",
		discovery.Icon:          icon.Input,
		discovery.CommandTopic:  b.Topic(TopicPanelInput),
		discovery.StateTopic:    state,
		discovery.ValueTemplate: "{{ value_json.input }}",
		discovery.Mode:          "text",
		discovery.Max:           255,
	})
	cmp("source", discovery.Component{
		discovery.Platform:      discovery.Select,
		discovery.Name:          "Source unit",
		discovery.Icon:          icon.Source,
		discovery.CommandTopic:  b.Topic(TopicPanelSource),
		discovery.StateTopic:    state,
		discovery.ValueTemplate: "{{ value_json.source }}",
		discovery.Options:       options,
	})
	cmp("target", discovery.Component{
		discovery.Platform:      discovery.Select,
		discovery.Name:          "Target unit",
		discovery.Icon:          icon.Target,
		discovery.CommandTopic:  b.Topic(TopicPanelTarget),
		discovery.StateTopic:    state,
		discovery.ValueTemplate: "{{ value_json.target }}",
		discovery.Options:       options,
	})
	cmp("swap", discovery.Component{
		discovery.Platform:     discovery.Button,
		discovery.Name:         "Swap units",
		discovery.Icon:         icon.Swap,
		discovery.CommandTopic: b.Topic(TopicPanelSwap),
	})
	cmp("calculate", discovery.Component{
		discovery.Platform:     discovery.Button,
		discovery.Name:         "Calculate",
		discovery.Icon:         icon.Calculate,
		discovery.CommandTopic: b.Topic(TopicPanelCalc),
	})
	cmp("result", discovery.Component{
		discovery.Platform:            discovery.Sensor,
		discovery.Name:                "Result",
		discovery.Icon:                icon.Result,
		discovery.StateTopic:          state,
		discovery.ValueTemplate:       "{{ value_json.error if value_json.error else value_json.result }}",
		discovery.JSONAttributesTopic: state,
	})
}
