// Package config provides the structures used for configuration.
//
// Configuration is YAML and may be spread over several files or directories;
// later files override earlier ones. String values may reference environment
// variables as $VAR or ${VAR}, or a secret file as "!secret name". Topics may
// start or end with "~", which is replaced by the base topic.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lone-faerie/lenconv/config/secrets"
	"github.com/lone-faerie/lenconv/internal/fileutil"
	"github.com/lone-faerie/lenconv/length"
	"github.com/lone-faerie/lenconv/log"
)

// Config contains the configuration of the converter, the MQTT client and
// the logger. Config should be created with a call to [Default], [Read], or
// [Load] so that topics and variables are expanded.
type Config struct {
	// BaseTopic replaces "~" in every topic. The default is "lenconv".
	BaseTopic string          `yaml:"base_topic"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	MQTT      MQTTConfig      `yaml:"mqtt,omitempty"`
	Discovery DiscoveryConfig `yaml:"discovery,omitempty"`
	Log       LogConfig       `yaml:"log,omitempty"`
}

// DefaultsConfig holds the units selected when the panel starts.
type DefaultsConfig struct {
	Source length.Unit `yaml:"source"`
	Target length.Unit `yaml:"target"`
}

const DefaultBaseTopic = "lenconv"

func defaultConfig() *Config {
	return &Config{
		BaseTopic: DefaultBaseTopic,
		Defaults: DefaultsConfig{
			Source: length.Metre,
			Target: length.Metre,
		},
		MQTT:      DefaultMQTT,
		Discovery: DefaultDiscovery,
		Log:       DefaultLog,
	}
}

// Default returns the Config used when no config file is provided.
func Default() *Config {
	cfg := defaultConfig()
	cfg.load()
	return cfg
}

// Read returns the Config parsed from the YAML documents in r, applied in
// order over the defaults.
func Read(r io.Reader) (*Config, error) {
	cfg := defaultConfig()
	dec := yaml.NewDecoder(r)
	for {
		err := dec.Decode(cfg)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding config: %w", err)
		}
	}
	cfg.load()
	return cfg, nil
}

// Load returns the Config parsed from the given files. If no file is given or
// the first one does not exist, the default config is returned. Directories
// are read as every YAML file they contain.
func Load(file ...string) (*Config, error) {
	if len(file) == 0 {
		return Default(), nil
	}
	log.Debug("Loading config", "path", file)
	if _, err := os.Stat(file[0]); errors.Is(err, os.ErrNotExist) {
		log.Debug("Config not found, using defaults", "path", file[0])
		return Default(), nil
	}
	r := fileutil.NewMultiFileReader(file...)
	defer r.Close()
	return Read(r)
}

func (cfg *Config) load() {
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = DefaultBaseTopic
	}
	cfg.Expand()
	cfg.MQTT.BirthWillTopic = ReplaceBase(cfg.BaseTopic, cfg.MQTT.BirthWillTopic)
	cfg.Discovery.Availability = ReplaceBase(cfg.BaseTopic, cfg.Discovery.Availability)
	if cfg.Discovery.Availability == "" && cfg.MQTT.BirthWillEnabled {
		cfg.Discovery.Availability = cfg.MQTT.BirthWillTopic
	}
}

// Topic returns the topic base/sub.
func (cfg *Config) Topic(sub string) string {
	return cfg.BaseTopic + "/" + sub
}

// ReplaceBase replaces a leading "~/" or a trailing "/~" in topic with base.
func ReplaceBase(base, topic string) string {
	if s, ok := strings.CutPrefix(topic, "~/"); ok {
		topic = base + "/" + s
	}
	if s, ok := strings.CutSuffix(topic, "/~"); ok {
		topic = s + "/" + base
	}
	return topic
}

func expandValue(v reflect.Value) {
	switch v.Kind() {
	case reflect.String:
		if v.CanSet() {
			v.SetString(Expand(v.String()))
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				expandValue(v.Field(i))
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	case reflect.Pointer:
		if !v.IsNil() {
			expandValue(v.Elem())
		}
	}
}

// Expand replaces ${var} or $var in s according to the values of
// the current environment variables, and replaces "!secret name" by the
// contents of the secret file.
func Expand(s string) string {
	if secret, ok := secrets.CutPrefix(s); ok {
		return secrets.MustRead(secret, "")
	}
	return os.ExpandEnv(s)
}

// Expand calls [Expand] on every string field of cfg.
func (cfg *Config) Expand() {
	expandValue(reflect.ValueOf(cfg).Elem())
}

// Write writes the YAML encoding of cfg to w.
func (cfg *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()

	enc.SetIndent(2)
	return enc.Encode(cfg)
}
