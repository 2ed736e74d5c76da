// Command feedctl generates, validates and publishes listing feeds for
// rentwise-web.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	v "github.com/keithlinneman/rentwise-web/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "feedctl",
		Short:         "Manage rentwise-web listing feeds",
		Version:       v.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenerateCmd(), newValidateCmd(), newPublishCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "feedctl:", err)
		os.Exit(1)
	}
}
