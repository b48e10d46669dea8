package config

import (
	"crypto/tls"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lone-faerie/lenconv/log"
)

// MQTTConfig is the configuration for the MQTT client.
//
// See [mqtt.ClientOptions]
type MQTTConfig struct {
	// Broker is the URI of the broker in the form scheme://host:port, where
	// scheme is one of "tcp", "ssl" or "ws".
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id,omitempty"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// KeepAlive is how long the client waits before pinging the broker.
	KeepAlive time.Duration `yaml:"keep_alive,omitempty"`
	// CertFile and KeyFile are the paths of a PEM encoded client certificate
	// and key. TLS is only used when both are set.
	CertFile string `yaml:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`
	// ReconnectInterval is the longest the client waits between reconnection
	// attempts.
	ReconnectInterval time.Duration `yaml:"reconnect_interval,omitempty"`
	// ConnectTimeout of 0 means the client never times out while connecting.
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
	PingTimeout    time.Duration `yaml:"ping_timeout,omitempty"`
	// WriteTimeout of 0 means publishing blocks until done.
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
	// QoS is used for every publish and subscription of the bridge.
	QoS byte `yaml:"qos,omitempty"`
	// BirthWillEnabled enables the "online" birth message and the "offline"
	// Last Will and Testament on BirthWillTopic.
	BirthWillEnabled bool   `yaml:"birth_lwt_enabled"`
	BirthWillTopic   string `yaml:"birth_lwt_topic"`
	// LogLevel is the log level given to the MQTT client package.
	// See [mqtt.Logger]
	LogLevel log.Level `yaml:"log_level"`

	tlsCert *tls.Certificate
}

// DiscoveryConfig is the configuration for Home Assistant MQTT discovery of
// the converter panel.
//
// See https://www.home-assistant.io/integrations/mqtt/#mqtt-discovery
type DiscoveryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Prefix is the discovery_prefix part of the discovery topic
	// <discovery_prefix>/device/<node_id>/<object_id>/config.
	Prefix string `yaml:"prefix"`
	// DeviceName is the name of the device in Home Assistant. The special
	// value "hostname" uses the hostname of the system.
	DeviceName string `yaml:"device_name,omitempty"`
	// NodeID may only consist of characters from [a-zA-Z0-9_-].
	NodeID string `yaml:"node_id,omitempty"`
	// Availability is the topic used for reporting availability.
	Availability string `yaml:"availability_topic,omitempty"`
	Retained     bool   `yaml:"retained"`
	QoS          byte   `yaml:"qos,omitempty"`
}

var DefaultMQTT = MQTTConfig{
	Broker:           "$LENCONV_BROKER_ADDRESS",
	Username:         "$LENCONV_BROKER_USERNAME",
	Password:         "$LENCONV_BROKER_PASSWORD",
	BirthWillEnabled: true,
	BirthWillTopic:   "~/bridge/status",
	LogLevel:         log.LevelDisabled,
}

var DefaultDiscovery = DiscoveryConfig{
	Enabled:      false,
	Prefix:       "homeassistant",
	DeviceName:   "hostname",
	NodeID:       "lenconv",
	Availability: "~/bridge/status",
}

// ClientOptions returns cfg formatted as [mqtt.ClientOptions] to provide to
// the backing MQTT client when calling [mqtt.NewClient].
func (cfg *MQTTConfig) ClientOptions() *mqtt.ClientOptions {
	o := mqtt.NewClientOptions()
	o.AddBroker(cfg.Broker)
	o.SetClientID(cfg.ClientID)
	o.SetUsername(cfg.Username).SetPassword(cfg.Password)
	o.SetResumeSubs(true)

	if cfg.KeepAlive > 0 {
		o.SetKeepAlive(cfg.KeepAlive)
	}
	if cfg.ReconnectInterval > 0 {
		o.SetMaxReconnectInterval(cfg.ReconnectInterval)
	}
	if cfg.ConnectTimeout > 0 {
		o.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.PingTimeout > 0 {
		o.SetPingTimeout(cfg.PingTimeout)
	}
	if cfg.WriteTimeout > 0 {
		o.SetWriteTimeout(cfg.WriteTimeout)
	}
	if cfg.BirthWillEnabled && cfg.BirthWillTopic != "" {
		o.SetWill(cfg.BirthWillTopic, "offline", 1, true)
	}
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		o.SetTLSConfig(&tls.Config{
			GetClientCertificate: cfg.getCertificate,
		})
	}

	return o
}

func (cfg *MQTTConfig) getCertificate(_ *tls.CertificateRequestInfo) (*tls.Certificate, error) {
	if cfg.tlsCert == nil {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		cfg.tlsCert = &cert
	}
	return cfg.tlsCert, nil
}
