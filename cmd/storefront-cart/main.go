package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "storefront-cart",
		Short:        "Session-scoped shopping cart for the storefront",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand(), newCartCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
