package discovery

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"os"
	"slices"

	"golang.org/x/sys/unix"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Connection is a tuple of the form [connnection_type, connection_identifier] used for
// the device mapping of the discovery payload.
//
// For example the MAC address of a network interface:
//
//	Connection{"mac", "02:5b:26:a8:dc:12"}
type Connection [2]string

// Device implements the device mapping for the discovery payload. This ties components
// together in Home Assistant's device registry.
type Device struct {
	ConfigurationURL string       `json:"cu,omitempty"`
	Connections      []Connection `json:"cns,omitempty"`
	HWVersion        string       `json:"hw,omitempty"`
	Identifiers      []string     `json:"ids,omitempty"`
	Manufacturer     string       `json:"mf,omitempty"`
	Model            string       `json:"mdl,omitempty"`
	ModelID          string       `json:"mdl_id,omitempty"`
	Name             string       `json:"name,omitempty"`
	SerialNumber     string       `json:"sn,omitempty"`
	SuggestedArea    string       `json:"sa,omitempty"`
	SWVersion        string       `json:"sw,omitempty"`
}

// MachineIDFiles are tried in order for the identifier of the device.
var MachineIDFiles = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

var defaultHostnames = []string{
	"localhost",
	"debian",
}

var errNoMachineID = errors.New("no machine id")

// NewDevice returns a new Device with an identifier equal to the sha256 sum of
// the device's machine id, encoded in base64. The name is the title-cased
// hostname unless it is a common default.
func NewDevice() (*Device, error) {
	id, err := machineID()
	if err != nil {
		return nil, err
	}

	d := &Device{
		Identifiers: []string{base64.RawURLEncoding.EncodeToString(id)},
		Model:       "Length converter",
	}

	if name, err := os.Hostname(); err == nil && !slices.Contains(defaultHostnames, name) {
		d.Name = cases.Title(language.English).String(name)
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		d.SWVersion = unix.ByteSliceToString(uts.Sysname[:]) + " " + unix.ByteSliceToString(uts.Release[:])
		d.HWVersion = unix.ByteSliceToString(uts.Machine[:])
	}

	return d, nil
}

func machineID() ([]byte, error) {
	for _, name := range MachineIDFiles {
		b, err := os.ReadFile(name)
		if err != nil {
			continue
		}
		if b = bytes.TrimSpace(b); len(b) == 0 {
			continue
		}
		sum := sha256.Sum256(b)
		return sum[:], nil
	}
	// containers often have no machine id
	if h, err := os.Hostname(); err == nil && h != "" {
		sum := sha256.Sum256([]byte(h))
		return sum[:], nil
	}
	return nil, errNoMachineID
}
