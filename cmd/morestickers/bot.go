package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/CreativeUnicorns/morestickers/delivery"
	"github.com/CreativeUnicorns/morestickers/picker"
)

func newBotCmd(appFn func() *app) *cobra.Command {
	var guildID string

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run a Discord bot serving the /stickers settings command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFn()
			dg, err := delivery.NewSession(a.cfg.DiscordToken)
			if err != nil {
				return err
			}

			handler := delivery.NewCommandHandler(picker.NewSettings(a.store, a.localizer), a.localizer, a.logger)
			dg.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
				a.logger.Info("Logged in", "user", r.User.Username)
			})
			dg.AddHandler(handler.InteractionCreate)

			if err := dg.Open(); err != nil {
				return fmt.Errorf("open discord connection: %w", err)
			}
			defer dg.Close()

			registered := make([]*discordgo.ApplicationCommand, 0, len(delivery.Commands()))
			for _, c := range delivery.Commands() {
				rc, err := dg.ApplicationCommandCreate(dg.State.User.ID, guildID, c)
				if err != nil {
					return fmt.Errorf("create command %s: %w", c.Name, err)
				}
				registered = append(registered, rc)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a.logger.Info("Bot is running. Press Ctrl+C to exit.")
			<-ctx.Done()

			for _, c := range registered {
				if err := dg.ApplicationCommandDelete(dg.State.User.ID, guildID, c.ID); err != nil {
					a.logger.Warn("failed to delete command", "command", c.Name, "error", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&guildID, "guild", "", "register commands in this guild only")
	return cmd
}
