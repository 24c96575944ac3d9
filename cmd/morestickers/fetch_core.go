package main

import (
	"github.com/spf13/cobra"

	"github.com/CreativeUnicorns/morestickers/transcoder"
)

func newFetchCoreCmd(appFn func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-core <dir>",
		Short: "Download the ffmpeg core, wasm and worker artifacts into dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			fetcher := transcoder.NewAssetFetcher(nil, a.fs)
			local, err := fetcher.Fetch(cmd.Context(), transcoder.AssetsFor(a.cfg.CoreBaseURL), args[0])
			if err != nil {
				return err
			}
			return printJSON(a, local)
		},
	}
}
