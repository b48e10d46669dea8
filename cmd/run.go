package cmd

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lone-faerie/lenconv/bridge"
	"github.com/lone-faerie/lenconv/config"
	"github.com/lone-faerie/lenconv/log"
)

// Flags for lenconv run
var (
	Detach bool // Run detached (in background)
	Watch  bool // Reload the log levels when the config changes
)

var cfg *config.Config

// NewCmdRun returns the [cobra.Command] used for running the bridge.
func NewCmdRun() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run [--config <path>]... [flags]",
		Aliases: []string{"start"},
		Short:   "Run the MQTT bridge",
		Long: `Run a bridge serving length conversions and a converter panel over MQTT.

A connection to the MQTT broker will be established and the bridge will run in the foreground until a signal is received.

	- SIGINT or SIGTERM will gracefully shutdown the bridge.

lenconv can load configuration from multiple YAML files, including from directories. If no config file is specified, the default path(s) will be determined by the first defined value of $LENCONV_CONFIG_PATH, $XDG_CONFIG_HOME/lenconv.yaml, or $HOME/.config/lenconv.yaml. In the case of $LENCONV_CONFIG_PATH, the value may be a comma-separated list of paths. If none of these files exist, the default configuration will be used, which looks for the following environment variables:

	- broker:   $LENCONV_BROKER_ADDRESS
	- username: $LENCONV_BROKER_USERNAME
	- password: $LENCONV_BROKER_PASSWORD

All of the flags, if specified, will override the equivalent values in the config. The format of --broker should be scheme://host:port Where "scheme" is one of "tcp", "ssl", or "ws", "host" is the ip-address (or hostname) and "port" is the port on which the broker is accepting connections. If "port" is not defined, it will use the value of --port (default 1883).`,
		Example: `  lenconv run --config config.yaml
  lenconv run --broker tcp://127.0.0.1:1883 --username lenconv --password p@55w0rd
  lenconv run --discovery homeassistant --watch`,
		GroupID: "bridge",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) (err error) {
			if Detach {
				var code int
				if err = runDetached(); err != nil {
					code = 1
				}
				return &ExitError{err, code}
			}

			if err = PrintBanner(cmd); err != nil {
				return
			}

			cfg, err = loadConfig(cmd.Flags(), log.LevelDebug)

			return
		},
		RunE: runBridge,

		DisableFlagsInUseLine: true,
	}

	cmd.Flags().SortFlags = false
	addConnectionFlags(cmd.Flags())
	cmd.Flags().StringVarP(&Discovery, "discovery", "D", "", "Discovery prefix, or 'disabled' to disable")
	cmd.Flags().VarP(&LogLevel, "log", "l", "Log level")
	cmd.Flags().BoolVarP(&Watch, "watch", "w", false, "Reload the log levels when the config changes")
	cmd.Flags().BoolVarP(&Detach, "detach", "d", false, "Run detached (in background)")

	cmd.MarkFlagFilename("config", "yaml", "yml")
	cmd.MarkFlagDirname("config")

	cmd.SetHelpTemplate(cmd.HelpTemplate() + "\n" + fullDocsFooter + "\n")

	return cmd
}

func runDetached() error {
	c := exec.Command(os.Args[0], os.Args[1:]...)
	if errors.Is(c.Err, exec.ErrDot) {
		c.Err = nil
	}

	c.Args = slices.DeleteFunc(c.Args, func(s string) bool { return s == "-d" || s == "--detach" })

	if err := c.Start(); err != nil {
		return err
	}

	log.Info("Running detached", "pid", c.Process.Pid)

	return c.Process.Release()
}

// reload applies the log levels of a reloaded config. Other changes need a
// restart.
func reload(c *config.Config) {
	if c.Log.Level != cfg.Log.Level {
		log.Info("Log level changed", "from", cfg.Log.Level, "to", c.Log.Level)
		log.SetLogLevel(c.Log.Level)
		cfg.Log.Level = c.Log.Level
	}

	if c.MQTT.LogLevel != cfg.MQTT.LogLevel {
		bridge.SetClientLogLevel(c.MQTT.LogLevel)
		cfg.MQTT.LogLevel = c.MQTT.LogLevel
	}
}

func runBridge(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := bridge.New(cfg)
	if err := b.Start(ctx); err != nil {
		log.Error("Not connected.", err)
		return &ExitError{err, 1}
	}

	defer func() {
		b.Stop()
		log.Info("Done")
	}()

	if Watch {
		go func() {
			err := config.Watch(ctx, reload, ConfigPath...)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.WarnError("Not watching config", err)
			}
		}()
	}

	select {
	case <-b.Done():
		log.Info("Stopped by request")
	case <-ctx.Done():
		log.Debug("Received signal")
	}

	return nil
}
