package cmd

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lone-faerie/lenconv/length"
)

// Flags for lenconv convert
var (
	ConvertFrom length.Unit // Unit converted from
	ConvertTo   length.Unit // Unit converted to
	ConvertSwap bool        // Swap the units before converting
	ConvertJSON bool        // Print the outcome as JSON
)

//go:embed help/convert.md
var convertHelp string

// unitFlag implements [github.com/spf13/pflag.Value] for a [length.Unit].
type unitFlag struct {
	u *length.Unit
}

func newUnitFlag(u *length.Unit, def length.Unit) unitFlag {
	*u = def
	return unitFlag{u}
}

func (f unitFlag) String() string {
	if f.u == nil {
		return ""
	}
	return f.u.String()
}

func (f unitFlag) Set(s string) (err error) {
	*f.u, err = length.ParseUnit(s)
	return
}

func (f unitFlag) Type() string {
	return "unit"
}

func unitCompletions() []cobra.Completion {
	units := length.Units()
	c := make([]cobra.Completion, len(units))
	for i, u := range units {
		c[i] = cobra.CompletionWithDesc(u.Symbol(), u.String())
	}
	return c
}

// NewCmdConvert returns the [cobra.Command] that converts a single value.
//
// Usage:
//
//	lenconv convert <value> [from] [to] [flags]
//
// Aliases:
//
//	convert, c
//
// Flags:
//
//	-f, --from unit   Unit to convert from (default Metre)
//	-t, --to unit     Unit to convert to (default Metre)
//	-s, --swap        Swap the units before converting
//	    --json        Print the outcome as JSON
//	-h, --help        help for convert
func NewCmdConvert() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "convert <value> [from] [to]",
		Aliases: []string{"c"},
		Short:   "Convert a length",
		Long:    convertHelp,
		Example: `  lenconv convert 26.2 mi km
  lenconv convert --from ft --to cm 6
  lenconv convert --swap 42.195 mi km
  lenconv convert --json -- -5 m`,
		GroupID: "convert",
		Args:    cobra.RangeArgs(1, 3),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
			if len(args) == 0 || len(args) > 2 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return unitCompletions(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: runConvert,
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().VarP(newUnitFlag(&ConvertFrom, length.Metre), "from", "f", "Unit to convert from")
	cmd.Flags().VarP(newUnitFlag(&ConvertTo, length.Metre), "to", "t", "Unit to convert to")
	cmd.Flags().BoolVarP(&ConvertSwap, "swap", "s", false, "Swap the units before converting")
	cmd.Flags().BoolVar(&ConvertJSON, "json", false, "Print the outcome as JSON")

	cmd.RegisterFlagCompletionFunc("from", cobra.FixedCompletions(unitCompletions(), cobra.ShellCompDirectiveNoFileComp))
	cmd.RegisterFlagCompletionFunc("to", cobra.FixedCompletions(unitCompletions(), cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func runConvert(cmd *cobra.Command, args []string) (err error) {
	req := length.Request{
		Input: args[0],
		From:  ConvertFrom,
		To:    ConvertTo,
	}

	if len(args) > 1 {
		if req.From, err = length.ParseUnit(args[1]); err != nil {
			return err
		}
	}

	if len(args) > 2 {
		if req.To, err = length.ParseUnit(args[2]); err != nil {
			return err
		}
	}

	if ConvertSwap {
		req = req.Swapped()
	}

	o := req.Do()

	if ConvertJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err = enc.Encode(o); err != nil {
			return err
		}
	} else if o.OK() {
		fmt.Fprintln(cmd.OutOrStdout(), o)
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), o)
	}

	if !o.OK() {
		return &ExitError{o.Err, 1}
	}

	return nil
}
