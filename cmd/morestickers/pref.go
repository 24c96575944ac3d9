package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newPrefCmd(appFn func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pref",
		Short: "Read and write add-on preferences",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print a preference, or its default when unset",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a := appFn()
				value, found, err := a.store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !found {
					if def, ok := a.store.Definition(args[0]); ok {
						value = def.DefaultValue
					}
				}
				return printJSON(a, map[string]interface{}{"key": args[0], "value": value, "found": found})
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Store a preference; value is parsed as JSON when possible",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				a := appFn()
				if err := a.store.Set(cmd.Context(), args[0], parseValue(args[1])); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s updated\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <key>",
			Short: "Remove a preference",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a := appFn()
				return a.store.Delete(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "Print every stored preference",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a := appFn()
				all, err := a.store.All(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(a, all)
			},
		},
	)
	return cmd
}

// parseValue turns "true", "3" or `{"a":1}` into typed values and leaves
// anything that is not JSON as a string.
func parseValue(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func printJSON(a *app, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Fprintln(a.out, string(out))
	return nil
}
