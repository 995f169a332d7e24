package main

import (
	"fmt"

	"github.com/productif-io/assistant/pkg/flexmatch"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect command catalogs",
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate a catalog file",
	Long:  "Parse and validate a catalog YAML file. With no argument, checks the embedded default catalog.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCatalogCheck,
}

func init() {
	catalogCmd.AddCommand(catalogCheckCmd)
}

func runCatalogCheck(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}

	catalog, err := flexmatch.LoadCatalog(path)
	if err != nil {
		return err
	}

	source := path
	if source == "" {
		source = "embedded default"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "catalog ok: %s (%d commands)\n", source, len(catalog))
	return nil
}
