package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/CreativeUnicorns/morestickers/delivery"
)

func newSendCmd(appFn func() *app, opts *rootOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "send <channel-id> <file>",
		Short: "Convert a sticker and post it to a Discord channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			channelID, input := args[0], args[1]

			session := opts.sender
			if session == nil {
				dg, err := delivery.NewSession(a.cfg.DiscordToken)
				if err != nil {
					return err
				}
				session = dg
			}
			sender := delivery.NewSender(session, a.logger)

			if raw {
				data, err := afero.ReadFile(a.fs, input)
				if err != nil {
					return fmt.Errorf("read %s: %w", input, err)
				}
				id, err := sender.Send(cmd.Context(), channelID, filepath.Base(input), data)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "sent %s as message %s\n", filepath.Base(input), id)
				return nil
			}

			sticker, err := convertFile(cmd, a, opts, input)
			if err != nil {
				return err
			}
			id, err := sender.SendSticker(cmd.Context(), channelID, sticker)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "sent %s as message %s\n", sticker.Name, id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "send the file as is, without converting")
	return cmd
}
