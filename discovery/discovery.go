// Package discovery implements [Home Assistant MQTT discovery] for the
// converter panel. All components are published at once with a device
// discovery payload.
//
// [Home Assistant MQTT discovery]: https://www.home-assistant.io/integrations/mqtt/#mqtt-discovery
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lone-faerie/lenconv/config"
)

// Platforms
const (
	Button = "button"
	Select = "select"
	Sensor = "sensor"
	Text   = "text"
)

const (
	Diagnostic = "diagnostic"
	Config     = "config"
)

// Component is the discovery payload of a single entity, keyed by abbreviated
// option names.
type Component map[Option]any

// Discoverer adds its components to a Discovery.
type Discoverer interface {
	Discover(*Discovery)
}

// Discovery is the device discovery payload.
type Discovery struct {
	Origin     *Origin              `json:"o"`
	Device     *Device              `json:"dev"`
	Components map[string]Component `json:"cmps"`

	AvailabilityTopic string `json:"-"`
	ObjectID          string `json:"-"`
	NodeID            string `json:"-"`

	cfg *config.DiscoveryConfig
}

// New returns a Discovery for the device running lenconv, with the components
// of cmps added.
func New(cfg *config.DiscoveryConfig, cmps ...Discoverer) (*Discovery, error) {
	dev, err := NewDevice()
	if err != nil {
		return nil, err
	}
	switch cfg.DeviceName {
	case "", "hostname":
	default:
		dev.Name = cfg.DeviceName
	}
	if dev.Name == "" {
		dev.Name = "Lenconv"
	}

	d := &Discovery{
		Origin:            NewOrigin(),
		Device:            dev,
		Components:        make(map[string]Component),
		NodeID:            cfg.NodeID,
		AvailabilityTopic: cfg.Availability,
		cfg:               cfg,
	}
	if d.NodeID == "" {
		d.NodeID = "lenconv"
	}
	switch {
	case len(dev.Identifiers) > 0:
		d.ObjectID = strings.Join(dev.Identifiers, "_")
	case len(dev.Connections) > 0:
		for i := range dev.Connections {
			if i > 0 {
				d.ObjectID += "_"
			}
			d.ObjectID += dev.Connections[i][1]
		}
	default:
		return nil, errors.New("no object id")
	}
	for i := range cmps {
		cmps[i].Discover(d)
	}
	return d, nil
}

// Topic returns the device discovery topic
// <prefix>/device/<node_id>/<object_id>/config.
func (d *Discovery) Topic() string {
	prefix := "homeassistant"
	if d.cfg != nil && d.cfg.Prefix != "" {
		prefix = d.cfg.Prefix
	}
	return strings.Join([]string{prefix, "device", d.NodeID, d.ObjectID, "config"}, "/")
}

// SetAvailability sets the availability option of every component.
func (d *Discovery) SetAvailability(avail Component) {
	for cmp := range d.Components {
		d.Components[cmp][Availability] = avail
	}
}

func (d *Discovery) qos() (qos byte, retained bool) {
	if d.cfg != nil {
		return d.cfg.QoS, d.cfg.Retained
	}
	return 0, false
}

func (d *Discovery) publish(ctx context.Context, c mqtt.Client, payload []byte) error {
	qos, retained := d.qos()
	t := c.Publish(d.Topic(), qos, retained, payload)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Done():
	}
	return t.Error()
}

// Publish publishes the discovery payload of d.
func (d *Discovery) Publish(ctx context.Context, c mqtt.Client) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return d.publish(ctx, c, payload)
}

// Remove publishes an empty payload to the discovery topic, which removes the
// device and its components from Home Assistant.
func (d *Discovery) Remove(ctx context.Context, c mqtt.Client) error {
	return d.publish(ctx, c, []byte{})
}
