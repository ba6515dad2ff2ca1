package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/campus-event-backend/internal/app"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/config"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "campusd",
		Short:         "Campus event backend: events, venues and notifications for agent tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file")

	root.AddCommand(newServeCommand())
	root.AddCommand(newCatalogCommand())
	root.AddCommand(newCallCommand())
	return root
}

// loadApp reads the --config flag and builds the application, logging to
// logs.
func loadApp(cmd *cobra.Command, logs io.Writer) (*app.App, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, logs)
}
