//go:build docgen

package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// Docs are generated with:
//
//	go run -tags docgen . docgen man
func init() {
	docgen := &cobra.Command{
		Use:    "docgen",
		Short:  "Generate documentation",
		Hidden: true,
	}

	docgen.AddCommand(&cobra.Command{
		Use:   "man [dir]",
		Short: "Generate man pages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := "docs/man"
			if len(args) > 0 {
				dir = args[0]
			}
			hdr := &doc.GenManHeader{
				Title:   "LENCONV",
				Section: "1",
			}
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return err
			}
			return doc.GenManTree(RootCommand, hdr, dir)
		},
	})

	docgen.AddCommand(&cobra.Command{
		Use:   "markdown [dir]",
		Short: "Generate markdown docs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := "docs/md"
			if len(args) > 0 {
				dir = args[0]
			}
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return err
			}
			return doc.GenMarkdownTree(RootCommand, dir)
		},
	})

	RootCommand.AddCommand(docgen)
}
