package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lone-faerie/lenconv/config"
	"github.com/lone-faerie/lenconv/internal/build"
	"github.com/lone-faerie/lenconv/internal/cleanup"
	"github.com/lone-faerie/lenconv/log"
)

// Flags shared by [NewCmdRun] and [NewCmdStop]
var (
	ConfigPath []string      // Path(s) to config file/directory (default is first of $LENCONV_CONFIG_PATH, $XDG_CONFIG_HOME/lenconv.yaml, $HOME/.config/lenconv.yaml)
	Broker     string        // MQTT broker address
	Port       int           // MQTT broker port
	Username   string        // MQTT broker username
	Password   string        // MQTT broker password
	CertFile   string        // MQTT TLS certificate file (PEM encoded)
	KeyFile    string        // MQTT TLS private key file (PEM encoded)
	Discovery  string        // Discovery prefix, or 'disabled' to disable
	LogLevel   log.LevelFlag // Log level
)

func findConfig() {
	const defaultConfigFile = "lenconv.yaml"

	if len(ConfigPath) > 0 {
		return
	}

	if env, ok := os.LookupEnv("LENCONV_CONFIG_PATH"); ok {
		ConfigPath = strings.Split(env, ",")
		return
	}

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		ConfigPath = []string{filepath.Join(xdg, defaultConfigFile)}
		return
	}

	home, err := os.UserHomeDir()
	cobra.CheckErr(err)

	ConfigPath = []string{filepath.Join(home, ".config", defaultConfigFile)}
}

// loadConfig finds and loads the config, applies the changed flags and sets up
// logging no more verbose than minLevel.
func loadConfig(flags *pflag.FlagSet, minLevel log.Level) (*config.Config, error) {
	findConfig()

	cfg, err := config.Load(ConfigPath...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}

	flagsToConfig(cfg, flags)
	setLogHandler(cfg, minLevel)

	log.Debug("Config loaded", "path", ConfigPath)
	log.Debug("MQTT broker", "addr", cfg.MQTT.Broker)

	return cfg, nil
}

const banner = `┌────────────────────────────────────────────────────────────────────┐
│                                                                    │
│   ██╗     ███████╗███╗   ██╗ ██████╗ ██████╗ ███╗   ██╗██╗   ██╗   │
│   ██║     ██╔════╝████╗  ██║██╔════╝██╔═══██╗████╗  ██║██║   ██║   │
│   ██║     █████╗  ██╔██╗ ██║██║     ██║   ██║██╔██╗ ██║██║   ██║   │
│   ██║     ██╔══╝  ██║╚██╗██║██║     ██║   ██║██║╚██╗██║╚██╗ ██╔╝   │
│   ███████╗███████╗██║ ╚████║╚██████╗╚██████╔╝██║ ╚████║ ╚████╔╝    │
│   ╚══════╝╚══════╝╚═╝  ╚═══╝ ╚═════╝ ╚═════╝ ╚═╝  ╚═══╝  ╚═══╝     │
│                                                                    │
│     Author: lone-faerie                                            │
│                                                                    │
│     Version: {{printf "%%-18.18s" .Version}}                                    │
│     Build Time: %-26.26s                         │
│                                                                    │
└────────────────────────────────────────────────────────────────────┘
`

// BannerTemplate returns the string used for templating the banner.
func BannerTemplate() string {
	return fmt.Sprintf(banner, build.BuildTime())
}

// PrintBanner prints the banner to the given commands output.
func PrintBanner(cmd *cobra.Command) error {
	t := template.New("banner")

	template.Must(t.Parse(BannerTemplate()))

	return t.Execute(cmd.OutOrStdout(), cmd.Root())
}

const fullDocsFooter = `Full documentation is available at:
https://pkg.go.dev/github.com/lone-faerie/lenconv`

// ExitError is an error that should cause the program to exit with the given code.
// Its message has already been reported to the user.
type ExitError struct {
	Err  error
	Code int
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status " + strconv.Itoa(e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func maybeWithPort(addr string, port int) string {
	var hasPort bool

	if last := addr[len(addr)-1]; '0' <= last && last <= '9' {
		if i := strings.LastIndexByte(addr, ':'); i >= 0 {
			_, err := strconv.Atoi(addr[i+1:])
			hasPort = err == nil
		}
	}

	if hasPort || port < 0 {
		return addr
	}

	return addr + ":" + strconv.Itoa(port)
}

func flagsToConfig(cfg *config.Config, flags *pflag.FlagSet) {
	if flags.Changed("log") {
		cfg.Log.Level = log.Level(LogLevel)
	}

	if Broker != "" {
		cfg.MQTT.Broker = maybeWithPort(Broker, Port)
	}

	if Username != "" {
		cfg.MQTT.Username = Username
	}

	if Password != "" {
		cfg.MQTT.Password = Password
	}

	if CertFile != "" {
		cfg.MQTT.CertFile = CertFile
	}

	if KeyFile != "" {
		cfg.MQTT.KeyFile = KeyFile
	}

	if Discovery == "disabled" {
		cfg.Discovery.Enabled = false
	} else if Discovery != "" {
		cfg.Discovery.Enabled = true
		cfg.Discovery.Prefix = Discovery
	}
}

// setLogHandler sets the output, format and level of the logger from cfg. The
// level is raised to minLevel if needed.
func setLogHandler(cfg *config.Config, minLevel log.Level) {
	var w io.Writer

	if cfg.Log.Level < minLevel {
		cfg.Log.Level = minLevel
	}

	log.SetLogLevel(cfg.Log.Level)

	switch strings.ToLower(cfg.Log.Output) {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	case "discard":
		log.SetHandler(log.DiscardHandler)
		return
	default:
		f, err := os.OpenFile(cfg.Log.Output, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
		if err != nil {
			log.Error(
				"Unable to open log file, deferring to stderr",
				err,
			)

			w = os.Stderr

			break
		}

		w = f

		cleanup.Register(func() { f.Close() })
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		log.SetJSONHandler(w)
	default:
		log.SetTextHandler(w)
	}
}

// addConnectionFlags adds the flags used to reach the broker.
func addConnectionFlags(flags *pflag.FlagSet) {
	flags.StringSliceVarP(&ConfigPath, "config", "c", nil, "Path(s) to config file/directory")
	flags.StringVarP(&Broker, "broker", "b", "", "MQTT broker address")
	flags.IntVarP(&Port, "port", "p", 1883, "MQTT broker port")
	flags.StringVar(&Username, "username", "", "MQTT client username")
	flags.StringVar(&Password, "password", "", "MQTT client password")
	flags.StringVar(&CertFile, "cert", "", "MQTT TLS certificate file (PEM encoded)")
	flags.StringVar(&KeyFile, "key", "", "MQTT TLS private key file (PEM encoded)")
}
