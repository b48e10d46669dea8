package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lone-faerie/lenconv/length"
)

// Flags for lenconv units
var (
	UnitsJSON bool // Print the units as JSON
)

type unitInfo struct {
	Name   string  `json:"name"`
	Symbol string  `json:"symbol"`
	Metres float64 `json:"metres"`
}

// NewCmdUnits returns the [cobra.Command] that lists the supported units.
//
// Usage:
//
//	lenconv units [flags]
//
// Flags:
//
//	    --json   Print the units as JSON
//	-h, --help   help for units
func NewCmdUnits() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "units",
		Aliases: []string{"u"},
		Short:   "List supported units",
		GroupID: "convert",
		Args:    cobra.NoArgs,
		RunE:    listUnits,
	}

	cmd.Flags().BoolVar(&UnitsJSON, "json", false, "Print the units as JSON")

	return cmd
}

func listUnits(cmd *cobra.Command, _ []string) error {
	units := length.Units()

	if UnitsJSON {
		info := make([]unitInfo, len(units))
		for i, u := range units {
			info[i] = unitInfo{u.String(), u.Symbol(), u.Factor()}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		return enc.Encode(info)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSYMBOL\tMETRES")
	for _, u := range units {
		fmt.Fprintf(w, "%s\t%s\t%s\n", u, u.Symbol(), strconv.FormatFloat(u.Factor(), 'f', -1, 64))
	}

	return w.Flush()
}
