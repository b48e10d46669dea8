package bridge

import (
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lone-faerie/lenconv/discovery"
	"github.com/lone-faerie/lenconv/log"
	"github.com/lone-faerie/lenconv/panel"
)

type Option func(*Bridge)

func WithClient(c mqtt.Client) Option {
	return func(b *Bridge) {
		b.client = c
	}
}

// WithPanel makes the bridge serve p instead of a new panel with the
// configured default units.
func WithPanel(p *panel.Panel) Option {
	return func(b *Bridge) {
		b.panel = p
	}
}

func WithDiscovery(d *discovery.Discovery) Option {
	return func(b *Bridge) {
		b.discovery = d
	}
}

func WithLogLevel(level log.Level) Option {
	return func(b *Bridge) {
		SetClientLogLevel(level)
	}
}

func WithBaseTopic(base string) Option {
	return func(b *Bridge) {
		b.baseTopic = base
	}
}

// SetClientLogLevel routes the log output of the MQTT client package at or
// above level to the logger. The MQTT loggers are package globals, so this
// affects every client.
func SetClientLogLevel(level log.Level) {
	var noop mqtt.NOOPLogger

	mqtt.ERROR, mqtt.CRITICAL, mqtt.WARN, mqtt.DEBUG = noop, noop, noop, noop
	if level <= log.LevelError {
		mqtt.ERROR = log.ErrorLogger()
		mqtt.CRITICAL = log.ErrorLogger()
	}
	if level <= log.LevelWarn {
		mqtt.WARN = log.WarnLogger()
	}
	if level <= log.LevelDebug {
		mqtt.DEBUG = log.DebugLogger()
	}
}
