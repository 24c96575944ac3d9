// Package delivery posts converted stickers to Discord and serves the
// add-on's settings as a slash command.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"

	"github.com/bwmarrin/discordgo"

	"github.com/CreativeUnicorns/morestickers"
	"github.com/CreativeUnicorns/morestickers/transcoder"
)

var (
	ErrNoChannel = errors.New("channel id is required")
	ErrEmptyFile = errors.New("sticker is empty")
)

// MessageSender is the part of *discordgo.Session used to post files.
type MessageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Sender uploads stickers as message attachments.
type Sender struct {
	session MessageSender
	logger  morestickers.Logger
}

// NewSender wraps an existing session. A nil logger uses the default.
func NewSender(session MessageSender, logger morestickers.Logger) *Sender {
	if logger == nil {
		logger = morestickers.NewDefaultLogger()
	}
	return &Sender{session: session, logger: logger}
}

// NewSession opens a bot session for token. The caller owns the returned
// session.
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, errors.New("discord token is required")
	}
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return dg, nil
}

// Send posts data as a file called name to channelID and returns the created
// message ID.
func (s *Sender) Send(ctx context.Context, channelID, name string, data []byte) (string, error) {
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.send(ctx, channelID, name, contentType, data)
}

// SendSticker posts a converted sticker.
func (s *Sender) SendSticker(ctx context.Context, channelID string, sticker *transcoder.Sticker) (string, error) {
	if sticker == nil {
		return "", ErrEmptyFile
	}
	return s.send(ctx, channelID, sticker.Name, sticker.ContentType, sticker.Data)
}

func (s *Sender) send(ctx context.Context, channelID, name, contentType string, data []byte) (string, error) {
	if channelID == "" {
		return "", ErrNoChannel
	}
	if len(data) == 0 {
		return "", ErrEmptyFile
	}

	msg, err := s.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Files: []*discordgo.File{{
			Name:        name,
			ContentType: contentType,
			Reader:      bytes.NewReader(data),
		}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		s.logger.Error("failed to send sticker", "channel", channelID, "name", name, "error", err)
		return "", fmt.Errorf("send %s to %s: %w", name, channelID, err)
	}

	s.logger.Debug("sticker sent", "channel", channelID, "name", name, "message", msg.ID)
	return msg.ID, nil
}
