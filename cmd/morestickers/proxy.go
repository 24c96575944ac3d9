package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProxyURLCmd(appFn func() *app) *cobra.Command {
	var fetch bool

	cmd := &cobra.Command{
		Use:   "proxy-url <url>",
		Short: "Print the CORS relay URL for a target, or fetch it through the relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			client := a.proxyClient()
			if !fetch {
				fmt.Fprintln(a.out, client.URL(args[0]))
				return nil
			}
			body, err := client.FetchBytes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = a.out.Write(body)
			return err
		},
	}
	cmd.Flags().BoolVar(&fetch, "fetch", false, "fetch the target through the relay and print the body")
	return cmd
}
