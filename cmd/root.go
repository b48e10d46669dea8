// Package cmd implements the lenconv command line.
package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/lone-faerie/lenconv/internal/build"
	"github.com/lone-faerie/lenconv/internal/cleanup"
)

// RootCommand is the lenconv command. Its subcommands are added by
// [NewCommand].
var RootCommand = NewCommand()

// NewCommand returns the root [cobra.Command] with every subcommand added.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "lenconv",
		Short:   "Convert lengths between units",
		Long:    "Convert lengths between metres, centimetres, millimetres, kilometres, miles and feet, on the command line or over MQTT.",
		Version: build.Version(),
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			cleanup.Cleanup()
		},
		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	}

	cmd.AddGroup(
		&cobra.Group{ID: "convert", Title: "Conversion:"},
		&cobra.Group{ID: "bridge", Title: "MQTT bridge:"},
	)

	cmd.AddCommand(
		NewCmdConvert(),
		NewCmdUnits(),
		NewCmdRun(),
		NewCmdStop(),
	)

	return cmd
}

// Execute runs [RootCommand]. Errors other than an [ExitError] are printed
// along with the usage of the failing command.
func Execute() error {
	c, err := RootCommand.ExecuteC()
	if err == nil {
		return nil
	}

	var exit *ExitError
	if !errors.As(err, &exit) {
		c.PrintErrln("Error:", err)
		c.PrintErrln(c.UsageString())
	}

	cleanup.Cleanup()

	return err
}
