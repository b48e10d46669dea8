package config_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lone-faerie/lenconv/config"
	"github.com/lone-faerie/lenconv/config/secrets"
	"github.com/lone-faerie/lenconv/length"
	"github.com/lone-faerie/lenconv/log"
)

func TestReplaceBase(t *testing.T) {
	var tests = []struct {
		base  string
		topic string
		want  string
	}{
		{"base", "~/topic/foo", "base/topic/foo"},
		{"base", "topic/foo/~", "topic/foo/base"},
		{"base", "~/topic/foo/~", "base/topic/foo/base"},
		{"base", "topic/~/foo", "topic/~/foo"},
		{"base", "", ""},
	}
	for _, tt := range tests {
		got := config.ReplaceBase(tt.base, tt.topic)
		if got != tt.want {
			t.Errorf("%q: wanted %q, got %q", tt.topic, tt.want, got)
		}
	}
}

func TestExpand(t *testing.T) {
	secrets.Dir = t.TempDir()
	t.Cleanup(func() { secrets.Dir = "/run/secrets" })

	for name, value := range map[string]string{"foo": "Hello", "bar": "World\n"} {
		if err := os.WriteFile(filepath.Join(secrets.Dir, name), []byte(value), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("BAZ", "env variable")

	var tests = []struct {
		input string
		want  string
	}{
		{"!secret foo", "Hello"},
		{"!secret bar", "World"},
		{"!secret missing", ""},
		{"$BAZ", "env variable"},
		{"tcp://${BAZ}:1883", "tcp://env variable:1883"},
		{"$LENCONV_NOT_A_VAR", ""},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		got := config.Expand(tt.input)
		if got != tt.want {
			t.Errorf("%q: wanted %q, got %q", tt.input, tt.want, got)
		}
	}
}

func TestDefault(t *testing.T) {
	t.Setenv("LENCONV_BROKER_ADDRESS", "tcp://localhost:1883")
	cfg := config.Default()

	if cfg.BaseTopic != "lenconv" {
		t.Errorf("BaseTopic: wanted %q, got %q", "lenconv", cfg.BaseTopic)
	}
	if cfg.Defaults.Source != length.Metre || cfg.Defaults.Target != length.Metre {
		t.Errorf("Defaults: wanted Metre/Metre, got %v/%v", cfg.Defaults.Source, cfg.Defaults.Target)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("MQTT.Broker: wanted %q, got %q", "tcp://localhost:1883", cfg.MQTT.Broker)
	}
	if cfg.MQTT.BirthWillTopic != "lenconv/bridge/status" {
		t.Errorf("MQTT.BirthWillTopic: wanted %q, got %q", "lenconv/bridge/status", cfg.MQTT.BirthWillTopic)
	}
	if cfg.Discovery.Availability != "lenconv/bridge/status" {
		t.Errorf("Discovery.Availability: wanted %q, got %q", "lenconv/bridge/status", cfg.Discovery.Availability)
	}
	if cfg.Log.Level != log.LevelInfo {
		t.Errorf("Log.Level: wanted %v, got %v", log.LevelInfo, cfg.Log.Level)
	}
	if config.DefaultMQTT.BirthWillTopic != "~/bridge/status" {
		t.Errorf("DefaultMQTT was modified: %q", config.DefaultMQTT.BirthWillTopic)
	}
}

const testConfig = `base_topic: office/lenconv
defaults:
  source: km
  target: miles
mqtt:
  broker: tcp://broker:1883
  keep_alive: 30s
  log_level: warn
discovery:
  enabled: true
log:
  level: debug
  format: json
`

func TestRead(t *testing.T) {
	cfg, err := config.Read(strings.NewReader(testConfig + "---\nmqtt:\n  qos: 1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseTopic != "office/lenconv" {
		t.Errorf("BaseTopic: wanted %q, got %q", "office/lenconv", cfg.BaseTopic)
	}
	if cfg.Defaults.Source != length.Kilometre {
		t.Errorf("Defaults.Source: wanted %v, got %v", length.Kilometre, cfg.Defaults.Source)
	}
	if cfg.Defaults.Target != length.Mile {
		t.Errorf("Defaults.Target: wanted %v, got %v", length.Mile, cfg.Defaults.Target)
	}
	if cfg.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("MQTT.Broker: wanted %q, got %q", "tcp://broker:1883", cfg.MQTT.Broker)
	}
	if cfg.MQTT.KeepAlive != 30*time.Second {
		t.Errorf("MQTT.KeepAlive: wanted %v, got %v", 30*time.Second, cfg.MQTT.KeepAlive)
	}
	if cfg.MQTT.QoS != 1 {
		t.Errorf("MQTT.QoS: wanted 1, got %d", cfg.MQTT.QoS)
	}
	if cfg.MQTT.LogLevel != log.LevelWarn {
		t.Errorf("MQTT.LogLevel: wanted %v, got %v", log.LevelWarn, cfg.MQTT.LogLevel)
	}
	if cfg.MQTT.BirthWillTopic != "office/lenconv/bridge/status" {
		t.Errorf("MQTT.BirthWillTopic: wanted %q, got %q", "office/lenconv/bridge/status", cfg.MQTT.BirthWillTopic)
	}
	if !cfg.Discovery.Enabled {
		t.Error("Discovery.Enabled: wanted true, got false")
	}
	if cfg.Log.Level != log.LevelDebug || cfg.Log.Format != "json" {
		t.Errorf("Log: wanted debug/json, got %v/%s", cfg.Log.Level, cfg.Log.Format)
	}
}

func TestReadInvalid(t *testing.T) {
	var tests = []string{
		"defaults:\n  source: furlong\n",
		"log:\n  level: loud\n",
		"mqtt: [\n",
	}
	for _, tt := range tests {
		if _, err := config.Read(strings.NewReader(tt)); err == nil {
			t.Errorf("%q: wanted error, got nil", tt)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.yaml")
	second := filepath.Join(dir, "b.yml")
	if err := os.WriteFile(first, []byte(testConfig), 0o600); err != nil {
		t.Fatal(err)
	}
	// No trailing newline, so the documents only split through the separator.
	if err := os.WriteFile(second, []byte("defaults:\n  target: ft"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("Files", func(t *testing.T) {
		cfg, err := config.Load(first, second)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Defaults.Source != length.Kilometre || cfg.Defaults.Target != length.Foot {
			t.Errorf("Defaults: wanted Kilometre/Foot, got %v/%v", cfg.Defaults.Source, cfg.Defaults.Target)
		}
	})
	t.Run("Dir", func(t *testing.T) {
		cfg, err := config.Load(dir)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Defaults.Source != length.Kilometre || cfg.Defaults.Target != length.Foot {
			t.Errorf("Defaults: wanted Kilometre/Foot, got %v/%v", cfg.Defaults.Source, cfg.Defaults.Target)
		}
	})
	t.Run("Missing", func(t *testing.T) {
		cfg, err := config.Load(filepath.Join(dir, "missing.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if cfg.BaseTopic != config.DefaultBaseTopic {
			t.Errorf("BaseTopic: wanted %q, got %q", config.DefaultBaseTopic, cfg.BaseTopic)
		}
	})
}

func TestWrite(t *testing.T) {
	cfg, err := config.Read(strings.NewReader(testConfig))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err = cfg.Write(&buf); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"source: Kilometre", "target: Mile", "level: DEBUG", "log_level: WARN"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Wanted %q in:\n%s", want, buf.String())
		}
	}
	got, err := config.Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Defaults != cfg.Defaults {
		t.Errorf("Defaults: wanted %v, got %v", cfg.Defaults, got.Defaults)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := config.Default()
	cfg.MQTT.Broker = "tcp://broker:1883"
	cfg.MQTT.ClientID = "lenconv-test"
	cfg.MQTT.KeepAlive = 10 * time.Second

	opts := cfg.MQTT.ClientOptions()
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://broker:1883" {
		t.Errorf("Servers: wanted [tcp://broker:1883], got %v", opts.Servers)
	}
	if opts.ClientID != "lenconv-test" {
		t.Errorf("ClientID: wanted %q, got %q", "lenconv-test", opts.ClientID)
	}
	if opts.KeepAlive != 10 {
		t.Errorf("KeepAlive: wanted 10, got %d", opts.KeepAlive)
	}
	if !opts.WillEnabled || opts.WillTopic != "lenconv/bridge/status" || string(opts.WillPayload) != "offline" {
		t.Errorf("Will: wanted lenconv/bridge/status offline, got %v %q %q", opts.WillEnabled, opts.WillTopic, opts.WillPayload)
	}
	if opts.TLSConfig != nil {
		t.Error("TLSConfig: wanted nil without a certificate")
	}

	cfg.MQTT.BirthWillEnabled = false
	if opts = cfg.MQTT.ClientOptions(); opts.WillEnabled {
		t.Error("WillEnabled: wanted false, got true")
	}
}

func TestWatch(t *testing.T) {
	config.WatchDelay = 10 * time.Millisecond
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("base_topic: before\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reloaded := make(chan *config.Config, 1)
	errc := make(chan error, 1)
	go func() {
		errc <- config.Watch(ctx, func(cfg *config.Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		}, path)
	}()

	// Rewrite until the watcher has been set up and sees the change.
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-reloaded:
			if cfg.BaseTopic != "after" {
				t.Errorf("BaseTopic: wanted %q, got %q", "after", cfg.BaseTopic)
			}
			cancel()
			<-errc
			return
		case <-tick.C:
			if err := os.WriteFile(path, []byte("base_topic: after\n"), 0o600); err != nil {
				t.Fatal(err)
			}
		case err := <-errc:
			t.Fatal("Watch returned before reloading:", err)
		}
	}
}
