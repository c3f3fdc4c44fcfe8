package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"subcast/internal/storage"
)

const (
	replyInvalidChannel = "Invalid channel name. Only letters, numbers, and underscores are allowed."
	replyInternalError  = "Something went wrong, please try again later."

	startText = "Hi! I forward channel messages to you.\n\n" +
		"/subscribe <channel> - receive messages posted to a channel\n" +
		"/unsubscribe <channel> - stop receiving them"

	commandTimeout = 10 * time.Second
)

func (a *Adapter) registerHandlers() {
	a.bot.Handle("/start", func(c tele.Context) error {
		return c.Send(startText)
	})
	a.bot.Handle("/subscribe", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Send(subscribeReply(ctx, a.reg, a.log, c.Chat().ID, payload(c)))
	})
	a.bot.Handle("/unsubscribe", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Send(unsubscribeReply(ctx, a.reg, a.log, c.Chat().ID, payload(c)))
	})
}

func payload(c tele.Context) string {
	return strings.TrimSpace(c.Message().Payload)
}

func subscribeReply(ctx context.Context, reg Registry, log zerolog.Logger, chatID int64, channel string) string {
	err := reg.Subscribe(ctx, chatID, channel)
	switch {
	case err == nil:
		return fmt.Sprintf("Successfully subscribed to '%s'", channel)
	case errors.Is(err, storage.ErrInvalidChannel):
		return replyInvalidChannel
	case errors.Is(err, storage.ErrAlreadySubscribed):
		return fmt.Sprintf("You are already subscribed to '%s'", channel)
	default:
		log.Error().Int64("chat_id", chatID).Str("channel", channel).Err(err).Msg("subscribe failed")
		return replyInternalError
	}
}

func unsubscribeReply(ctx context.Context, reg Registry, log zerolog.Logger, chatID int64, channel string) string {
	removed, err := reg.Unsubscribe(ctx, chatID, channel)
	switch {
	case errors.Is(err, storage.ErrInvalidChannel):
		return replyInvalidChannel
	case err != nil:
		log.Error().Int64("chat_id", chatID).Str("channel", channel).Err(err).Msg("unsubscribe failed")
		return replyInternalError
	case removed:
		return fmt.Sprintf("Successfully unsubscribed from '%s'", channel)
	default:
		return fmt.Sprintf("You are not subscribed to '%s'", channel)
	}
}
