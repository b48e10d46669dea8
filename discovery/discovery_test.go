package discovery_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lone-faerie/lenconv/config"
	"github.com/lone-faerie/lenconv/discovery"
	"github.com/lone-faerie/lenconv/mock"
)

type button string

func (b button) Discover(d *discovery.Discovery) {
	d.Components[string(b)] = discovery.Component{
		discovery.Platform:     discovery.Button,
		discovery.Name:         string(b),
		discovery.CommandTopic: "test/" + string(b),
	}
}

func setMachineID(t *testing.T, id string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "machine-id")
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := discovery.MachineIDFiles
	discovery.MachineIDFiles = []string{filepath.Join(t.TempDir(), "missing"), path}
	t.Cleanup(func() { discovery.MachineIDFiles = old })

	sum := sha256.Sum256([]byte(id))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func TestNew(t *testing.T) {
	objectID := setMachineID(t, "0123456789abcdef")
	cfg := config.DefaultDiscovery
	cfg.DeviceName = "Workshop"

	d, err := discovery.New(&cfg, button("swap"), button("calculate"))
	if err != nil {
		t.Fatal(err)
	}
	if d.ObjectID != objectID {
		t.Errorf("ObjectID: wanted %q, got %q", objectID, d.ObjectID)
	}
	if d.Device.Name != "Workshop" {
		t.Errorf("Device.Name: wanted %q, got %q", "Workshop", d.Device.Name)
	}
	if d.Origin.Name != "lenconv" {
		t.Errorf("Origin.Name: wanted %q, got %q", "lenconv", d.Origin.Name)
	}
	if len(d.Components) != 2 {
		t.Errorf("Components: wanted 2, got %d", len(d.Components))
	}
	want := "homeassistant/device/lenconv/" + objectID + "/config"
	if got := d.Topic(); got != want {
		t.Errorf("Topic: wanted %q, got %q", want, got)
	}
}

func TestPublish(t *testing.T) {
	setMachineID(t, "fedcba9876543210")
	cfg := config.DefaultDiscovery
	cfg.Prefix = "ha"
	cfg.NodeID = "office"
	cfg.Retained = true

	d, err := discovery.New(&cfg, button("swap"))
	if err != nil {
		t.Fatal(err)
	}
	d.SetAvailability(discovery.Component{discovery.Topic: "lenconv/bridge/status"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c := mock.NewMockClient(nil, nil)
	if err = d.Publish(ctx, c); err != nil {
		t.Fatal(err)
	}
	msgs := c.Published(d.Topic())
	if len(msgs) != 1 {
		t.Fatalf("Wanted 1 message, got %d", len(msgs))
	}
	if !msgs[0].Retained {
		t.Error("Retained: wanted true, got false")
	}

	var payload struct {
		Origin     map[string]any            `json:"o"`
		Device     map[string]any            `json:"dev"`
		Components map[string]map[string]any `json:"cmps"`
	}
	if err = json.Unmarshal(msgs[0].Payload, &payload); err != nil {
		t.Fatal(err)
	}
	swap, ok := payload.Components["swap"]
	if !ok {
		t.Fatalf("Wanted component swap in %s", msgs[0].Payload)
	}
	if swap["p"] != "button" || swap["cmd_t"] != "test/swap" {
		t.Errorf("Wanted button on test/swap, got %v", swap)
	}
	if avty, ok := swap["avty"].(map[string]any); !ok || avty["t"] != "lenconv/bridge/status" {
		t.Errorf("Wanted availability lenconv/bridge/status, got %v", swap["avty"])
	}
	if payload.Origin["name"] != "lenconv" {
		t.Errorf("Origin: wanted lenconv, got %v", payload.Origin["name"])
	}

	if err = d.Remove(ctx, c); err != nil {
		t.Fatal(err)
	}
	msgs = c.Published(d.Topic())
	if len(msgs) != 2 || len(msgs[1].Payload) != 0 {
		t.Errorf("Wanted an empty removal payload, got %v", msgs)
	}
}
