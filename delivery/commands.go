package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/CreativeUnicorns/morestickers"
	"github.com/CreativeUnicorns/morestickers/picker"
)

const CommandName = "stickers"

// Translator localizes reply text. *i18n.Localizer satisfies it.
type Translator interface {
	Localize(text string) string
}

// InteractionResponder is the part of *discordgo.Session used to answer
// slash commands.
type InteractionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// Commands returns the slash commands served by CommandHandler.
func Commands() []*discordgo.ApplicationCommand {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(picker.LanguageOptions()))
	for _, opt := range picker.LanguageOptions() {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: opt.Label, Value: opt.Value})
	}

	return []*discordgo.ApplicationCommand{{
		Name:        CommandName,
		Description: "Manage sticker settings",
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "view",
				Description: "View the current sticker settings",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
			{
				Name:        "set",
				Description: "Change sticker settings",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "language",
						Description: "Interface language",
						Type:        discordgo.ApplicationCommandOptionString,
						Choices:     choices,
					},
					{
						Name:        "no_resize",
						Description: "Send stickers at their original size",
						Type:        discordgo.ApplicationCommandOptionBoolean,
					},
				},
			},
		},
	}}
}

// CommandHandler answers the stickers command from the picker settings.
type CommandHandler struct {
	settings   *picker.Settings
	translator Translator
	logger     morestickers.Logger
}

func NewCommandHandler(settings *picker.Settings, translator Translator, logger morestickers.Logger) *CommandHandler {
	if logger == nil {
		logger = morestickers.NewDefaultLogger()
	}
	return &CommandHandler{settings: settings, translator: translator, logger: logger}
}

// InteractionCreate can be registered with (*discordgo.Session).AddHandler.
func (h *CommandHandler) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.Handle(context.Background(), s, i)
}

// Handle answers one interaction. Anything other than the stickers command
// is ignored.
func (h *CommandHandler) Handle(ctx context.Context, r InteractionResponder, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != CommandName || len(data.Options) == 0 {
		return
	}

	content, err := h.Reply(ctx, data.Options[0])
	if err != nil {
		h.logger.Error("stickers command failed", "subcommand", data.Options[0].Name, "error", err)
		content = "❌ " + err.Error()
	}

	err = r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		h.logger.Error("failed to respond to interaction", "error", err)
	}
}

// Reply runs a subcommand and returns the message to show.
func (h *CommandHandler) Reply(ctx context.Context, sub *discordgo.ApplicationCommandInteractionDataOption) (string, error) {
	switch sub.Name {
	case "view":
		return h.view(ctx)
	case "set":
		for _, opt := range sub.Options {
			var err error
			switch opt.Name {
			case "language":
				err = h.settings.ChangeLanguage(ctx, opt.StringValue())
			case "no_resize":
				err = h.settings.SetNoResize(ctx, opt.BoolValue())
			}
			if err != nil {
				return "", fmt.Errorf("set %s: %w", opt.Name, err)
			}
		}
		return h.view(ctx)
	default:
		return "", fmt.Errorf("unknown subcommand %q", sub.Name)
	}
}

func (h *CommandHandler) view(ctx context.Context) (string, error) {
	state, err := h.settings.State(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", h.localize("Stickers+"))
	fmt.Fprintf(&b, "• %s: %s\n", h.localize("Language"), state.Region)
	fmt.Fprintf(&b, "• %s: %t\n", h.localize("No Resize"), state.NoResize)
	return b.String(), nil
}

func (h *CommandHandler) localize(text string) string {
	if h.translator == nil {
		return text
	}
	return h.translator.Localize(text)
}
