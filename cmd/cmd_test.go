package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/lone-faerie/lenconv/length"
	"github.com/lone-faerie/lenconv/log"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestConvert(t *testing.T) {
	var tests = []struct {
		args []string
		want string
	}{
		{[]string{"1", "km", "m"}, "1 Kilometre = 1000.00 Metre\n"},
		{[]string{"1", "mi", "km"}, "1 Mile = 1.61 Kilometre\n"},
		{[]string{"100", "cm"}, "100 Centimetre = 1.00 Metre\n"},
		{[]string{"--from", "ft", "--to", "cm", "1"}, "1 Foot = 30.48 Centimetre\n"},
		{[]string{"-f", "Kilometers", "-t", "MILES", "42.195"}, "42.195 Kilometre = 26.22 Mile\n"},
		{[]string{"--swap", "26.2", "km", "mi"}, "26.2 Mile = 42.16 Kilometre\n"},
		{[]string{"3.14159"}, "3.14159 Metre = 3.14 Metre\n"},
		{[]string{"0", "ft", "mm"}, "0 Foot = 0.00 Millimetre\n"},
	}
	for _, tt := range tests {
		got, _, err := execute(t, NewCmdConvert(), tt.args...)
		if err != nil {
			t.Errorf("%v: %v", tt.args, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%v: wanted %q, got %q", tt.args, tt.want, got)
		}
	}
}

func TestConvertInvalid(t *testing.T) {
	var tests = []struct {
		args []string
		want length.ValidationError
	}{
		{[]string{""}, length.ErrEmptyInput},
		{[]string{"abc", "m", "km"}, length.ErrNotANumber},
		{[]string{" 5", "m", "km"}, length.ErrNotANumber},
		{[]string{"0x10"}, length.ErrNotANumber},
		{[]string{"--", "-5", "m", "km"}, length.ErrNegativeValue},
	}
	for _, tt := range tests {
		out, errOut, err := execute(t, NewCmdConvert(), tt.args...)
		var exit *ExitError
		if !errors.As(err, &exit) || exit.Code != 1 {
			t.Errorf("%v: wanted exit code 1, got %v", tt.args, err)
			continue
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("%v: wanted %v, got %v", tt.args, tt.want, err)
		}
		if out != "" {
			t.Errorf("%v: wanted no output, got %q", tt.args, out)
		}
		if errOut != tt.want.Error()+"\n" {
			t.Errorf("%v: wanted %q on stderr, got %q", tt.args, tt.want.Error()+"\n", errOut)
		}
	}
}

func TestConvertUnknownUnit(t *testing.T) {
	for _, args := range [][]string{
		{"1", "furlong", "m"},
		{"1", "m", "furlong"},
		{"--from", "furlong", "1"},
	} {
		_, _, err := execute(t, NewCmdConvert(), args...)
		if err == nil {
			t.Errorf("%v: wanted error, got nil", args)
		}
		var exit *ExitError
		if errors.As(err, &exit) {
			t.Errorf("%v: wanted usage error, got exit error %v", args, err)
		}
	}
}

func TestConvertJSON(t *testing.T) {
	out, _, err := execute(t, NewCmdConvert(), "--json", "1", "km", "m")
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err = json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if got["result"] != "1 Kilometre = 1000.00 Metre" || got["value"] != 1000.0 {
		t.Errorf("Wanted result and value, got %v", got)
	}

	out, _, err = execute(t, NewCmdConvert(), "--json", "abc")
	if !errors.Is(err, length.ErrNotANumber) {
		t.Errorf("Wanted %v, got %v", length.ErrNotANumber, err)
	}
	got = nil
	if err = json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if got["error"] != "not_a_number" {
		t.Errorf("Wanted not_a_number, got %v", got["error"])
	}
}

func TestUnits(t *testing.T) {
	out, _, err := execute(t, NewCmdUnits())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 7 {
		t.Fatalf("Wanted header and 6 units, got:\n%s", out)
	}
	for i, u := range length.Units() {
		fields := strings.Fields(lines[i+1])
		if len(fields) != 3 || fields[0] != u.String() || fields[1] != u.Symbol() {
			t.Errorf("Wanted %v %s, got %q", u, u.Symbol(), lines[i+1])
		}
	}

	out, _, err = execute(t, NewCmdUnits(), "--json")
	if err != nil {
		t.Fatal(err)
	}
	var units []unitInfo
	if err = json.Unmarshal([]byte(out), &units); err != nil {
		t.Fatal(err)
	}
	if len(units) != 6 || units[4] != (unitInfo{"Mile", "mi", 1609.34}) {
		t.Errorf("Wanted 6 units with Mile fifth, got %v", units)
	}
}

func TestRootCommand(t *testing.T) {
	out, _, err := execute(t, NewCommand(), "convert", "1", "km", "m")
	if err != nil {
		t.Fatal(err)
	}
	if out != "1 Kilometre = 1000.00 Metre\n" {
		t.Errorf("Wanted %q, got %q", "1 Kilometre = 1000.00 Metre\n", out)
	}
}

func TestMaybeWithPort(t *testing.T) {
	var tests = []struct {
		addr string
		port int
		want string
	}{
		{"tcp://localhost", 1883, "tcp://localhost:1883"},
		{"tcp://localhost:8883", 1883, "tcp://localhost:8883"},
		{"tcp://10.0.0.1", 1883, "tcp://10.0.0.1:1883"},
		{"tcp://10.0.0.1:1884", 1883, "tcp://10.0.0.1:1884"},
		{"ws://broker", -1, "ws://broker"},
	}
	for _, tt := range tests {
		if got := maybeWithPort(tt.addr, tt.port); got != tt.want {
			t.Errorf("%q: wanted %q, got %q", tt.addr, tt.want, got)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lenconv.yaml")
	err := os.WriteFile(path, []byte("base_topic: test\nlog:\n  output: discard\n"), 0o600)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("LENCONV_CONFIG_PATH", path)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLogLevel(log.LevelInfo)
	})

	cmd := NewCmdStop()
	if err = cmd.ParseFlags([]string{"--broker", "tcp://broker", "--port", "1884"}); err != nil {
		t.Fatal(err)
	}
	ConfigPath = nil
	Discovery = "ha"

	cfg, err := loadConfig(cmd.Flags(), log.LevelWarn)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseTopic != "test" {
		t.Errorf("BaseTopic: wanted %q, got %q", "test", cfg.BaseTopic)
	}
	if cfg.MQTT.Broker != "tcp://broker:1884" {
		t.Errorf("Broker: wanted %q, got %q", "tcp://broker:1884", cfg.MQTT.Broker)
	}
	if !cfg.Discovery.Enabled || cfg.Discovery.Prefix != "ha" {
		t.Errorf("Discovery: wanted enabled with prefix ha, got %v %q", cfg.Discovery.Enabled, cfg.Discovery.Prefix)
	}
	if cfg.Log.Level != log.LevelWarn {
		t.Errorf("Log.Level: wanted %v, got %v", log.LevelWarn, cfg.Log.Level)
	}
	if cfg.Topic("bridge/stop") != "test/bridge/stop" {
		t.Errorf("Stop topic: wanted %q, got %q", "test/bridge/stop", cfg.Topic("bridge/stop"))
	}
	Discovery = ""
}
