package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/campus-event-backend/internal/toolschema"
)

func newCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the tool catalog",
		Args:  cobra.NoArgs,
		RunE:  runCatalog,
	}
	cmd.Flags().String("format", "json", "output format: json or yaml")
	return cmd
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}

	a, err := loadApp(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	out := a.Dispatcher().CatalogJSON()
	if format == "yaml" {
		out, err = toolschema.MarshalCatalogYAML(a.Dispatcher().Catalog())
		if err != nil {
			return err
		}
	}
	w := cmd.OutOrStdout()
	if _, err := w.Write(out); err != nil {
		return err
	}
	if len(out) > 0 && out[len(out)-1] != '\n' {
		_, err = fmt.Fprintln(w)
	}
	return err
}
