package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/stroymat/materials-bot/internal/intake"
)

// Handler processes one customer event and emits replies in order.
type Handler interface {
	Handle(ctx context.Context, ev intake.Event, reply func(intake.Reply))
}

// sender is the part of the Bot API used to talk back to Telegram.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api    *tgbotapi.BotAPI
	out    sender
	logger *slog.Logger
}

type Config struct {
	Token string
	Debug bool
}

func New(cfg Config, logger *slog.Logger) (*Bot, error) {
	if err := tgbotapi.SetLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug)); err != nil {
		return nil, fmt.Errorf("failed to set telegram logger: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = cfg.Debug

	logger.Info("authorized on account", "username", api.Self.UserName)

	return &Bot{
		api:    api,
		out:    api,
		logger: logger,
	}, nil
}

// Run long-polls for updates until ctx is cancelled and passes them to h.
// Each user's events are handled in arrival order; different users are
// handled concurrently.
func (b *Bot) Run(ctx context.Context, h Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	process := func(ctx context.Context, in inbound) { b.process(ctx, h, in) }
	boxes := newMailboxes(process, mailboxSize, mailboxIdle, b.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case update, ok := <-updates:
				if !ok {
					if ctx.Err() != nil {
						return nil
					}
					return errors.New("telegram update channel closed")
				}
				b.route(ctx, update, boxes)
			}
		}
	})

	err := g.Wait()
	boxes.wait()
	return err
}

// route never waits on Telegram; slow calls happen in the user's mailbox.
func (b *Bot) route(ctx context.Context, update tgbotapi.Update, boxes *mailboxes) {
	in, ok := inboundFromUpdate(update)
	if !ok {
		if cq := update.CallbackQuery; cq != nil {
			go b.answerCallback(cq.ID)
		}
		return
	}
	boxes.deliver(ctx, in)
}

func (b *Bot) process(ctx context.Context, h Handler, in inbound) {
	if in.callbackID != "" {
		b.answerCallback(in.callbackID)
	}
	h.Handle(ctx, in.event, func(r intake.Reply) {
		if _, err := b.out.Send(buildMessage(in.event.ChatID, in.messageID, r)); err != nil {
			b.logger.Error("failed to send reply", "user_id", in.event.UserID, "error", err)
		}
	})
}

// answerCallback stops the button spinner Telegram shows until the query is
// answered.
func (b *Bot) answerCallback(id string) {
	if _, err := b.out.Request(tgbotapi.NewCallback(id, "")); err != nil {
		b.logger.Warn("failed to answer callback", "error", err)
	}
}

// Notify posts a plain-text message to chatID.
func (b *Bot) Notify(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.out.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	return nil
}

func inboundFromUpdate(update tgbotapi.Update) (inbound, bool) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return inbound{}, false
		}
		return inbound{
			event: intake.Event{
				UserID:      cq.From.ID,
				ChatID:      cq.Message.Chat.ID,
				DisplayName: displayName(cq.From),
				Kind:        intake.EventButton,
				Payload:     cq.Data,
			},
			messageID:  cq.Message.MessageID,
			callbackID: cq.ID,
		}, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return inbound{}, false
	}

	ev := intake.Event{
		UserID:      msg.From.ID,
		ChatID:      msg.Chat.ID,
		DisplayName: displayName(msg.From),
		Kind:        intake.EventText,
		Payload:     msg.Text,
	}
	if msg.IsCommand() && msg.Command() == "start" {
		ev.Kind = intake.EventStart
		ev.Payload = ""
	}
	return inbound{event: ev}, true
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func buildMessage(chatID int64, messageID int, r intake.Reply) tgbotapi.Chattable {
	if r.Edit && messageID != 0 {
		if len(r.Inline) == 0 {
			return tgbotapi.NewEditMessageText(chatID, messageID, r.Text)
		}
		return tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, r.Text, inlineKeyboard(r.Inline))
	}

	msg := tgbotapi.NewMessage(chatID, r.Text)
	switch {
	case len(r.Inline) > 0:
		msg.ReplyMarkup = inlineKeyboard(r.Inline)
	case len(r.Menu) > 0:
		msg.ReplyMarkup = menuKeyboard(r.Menu)
	}
	return msg
}

func inlineKeyboard(rows [][]intake.Button) tgbotapi.InlineKeyboardMarkup {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Data))
		}
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

func menuKeyboard(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	keyboard := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		keyboard = append(keyboard, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	markup := tgbotapi.NewReplyKeyboard(keyboard...)
	markup.ResizeKeyboard = true
	return markup
}
