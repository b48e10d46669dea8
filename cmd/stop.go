package cmd

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/lone-faerie/lenconv/bridge"
	"github.com/lone-faerie/lenconv/log"
)

// Flags for lenconv stop
var (
	StopPID     int           // PID of the process to interrupt instead of using MQTT
	StopTimeout time.Duration // How long to wait for the broker
)

// NewCmdStop returns the [cobra.Command] that stops a running bridge by
// publishing to its stop topic.
//
// Usage:
//
//	lenconv stop [flags]
//
// Flags:
//
//	-c, --config strings     Path(s) to config file/directory
//	-b, --broker string      MQTT broker address
//	-p, --port int           MQTT broker port (default 1883)
//	    --username string    MQTT client username
//	    --password string    MQTT client password
//	    --cert string        MQTT TLS certificate file (PEM encoded)
//	    --key string         MQTT TLS private key file (PEM encoded)
//	-P, --pid int            PID of the process
//	    --timeout duration   How long to wait for the broker (default 10s)
//	-h, --help               help for stop
func NewCmdStop() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stop",
		Short:   "Stop a running bridge",
		GroupID: "bridge",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err = loadConfig(cmd.Flags(), log.LevelWarn)
			return
		},
		RunE: stopBridge,
	}

	cmd.Flags().SortFlags = false
	addConnectionFlags(cmd.Flags())
	cmd.Flags().IntVarP(&StopPID, "pid", "P", 0, "PID of the process")
	cmd.Flags().DurationVar(&StopTimeout, "timeout", 10*time.Second, "How long to wait for the broker")

	cmd.SetHelpTemplate(cmd.HelpTemplate() + "\n" + fullDocsFooter + "\n")

	return cmd
}

func stopBridge(cmd *cobra.Command, _ []string) error {
	if StopPID > 0 {
		log.Debug("Stopping", "pid", StopPID)

		err := unix.Kill(StopPID, unix.SIGINT)
		if err == nil {
			return nil
		}

		log.WarnError("Unable to signal process, using MQTT", err, "pid", StopPID)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithTimeout(ctx, StopTimeout)
	defer cancel()

	opts := cfg.MQTT.ClientOptions()
	// reusing the bridge's client ID or will would disconnect it as offline
	opts.SetClientID("")
	opts.WillEnabled = false

	client := mqtt.NewClient(opts)
	if err := wait(ctx, client.Connect()); err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer client.Disconnect(250)

	topic := cfg.Topic(bridge.TopicStop)
	log.Debug("Publishing stop", "topic", topic)

	return wait(ctx, client.Publish(topic, cfg.MQTT.QoS, false, []byte{}))
}

func wait(ctx context.Context, t mqtt.Token) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Done():
	}

	return t.Error()
}
