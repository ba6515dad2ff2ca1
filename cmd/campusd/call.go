package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/campus-event-backend/internal/dispatch"
)

func newCallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <tool> [json-arguments]",
		Short: "Dispatch one tool call against a freshly seeded store",
		Long: "Dispatch one tool call against a freshly seeded store and print the response.\n" +
			"Arguments are a JSON object; pass - to read them from stdin.",
		Args: cobra.RangeArgs(1, 2),
		RunE: runCall,
	}
	cmd.Flags().String("id", "", "correlation id echoed in the response")
	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd, io.Discard)
	if err != nil {
		return err
	}

	call := dispatch.Call{Name: args[0]}
	call.ID, _ = cmd.Flags().GetString("id")
	if len(args) == 2 {
		raw := []byte(args[1])
		if args[1] == "-" {
			if raw, err = io.ReadAll(cmd.InOrStdin()); err != nil {
				return err
			}
		}
		call.Arguments = raw
	}

	resp, callErr := a.Dispatcher().Dispatch(cmd.Context(), call)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}
	return callErr
}
