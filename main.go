// Lenconv converts lengths between metres, centimetres, millimetres,
// kilometres, miles and feet. Conversions are available on the command line
// and, through "lenconv run", over MQTT with an optional Home Assistant panel.
package main

import (
	"errors"
	"os"

	"github.com/lone-faerie/lenconv/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var exit *cmd.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}

		os.Exit(1)
	}
}
