// Package bot adapts the wallet conversation to Telegram: commands, free text and inline
// button presses become conversation events, and replies become messages.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/walletbot/core/logger"
	"github.com/m3rciful/walletbot/core/telegram/callbacks"
	"github.com/m3rciful/walletbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/walletbot/core/telegram/helpers"
	"github.com/m3rciful/walletbot/core/telegram/keyboard"
	"github.com/m3rciful/walletbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

const component = "service.bot"

// CallbackUnique is the telebot unique shared by every wallet option button.
const CallbackUnique = "wallet"

const (
	// FailureText is sent when the conversation could not be advanced.
	FailureText    = "Something went wrong. Please try again later."
	restartingText = "Restarting the bot..."
)

// Command names.
const (
	CommandStart   = "/start"
	CommandUptime  = "/debug_uptime"
	CommandRestart = "/debug_restart"
)

// Conversation is the wallet state machine as seen by the adapter.
type Conversation interface {
	Start(ctx context.Context, userID int64) (conversation.Reply, error)
	Text(ctx context.Context, userID int64, text string) (conversation.Reply, error)
	Select(ctx context.Context, userID int64, token string) (conversation.Reply, error)
}

// RestartRecorder durably remembers who asked for a restart.
type RestartRecorder interface {
	RequestRestart(ctx context.Context, recipient int64) error
}

// Process describes the running bot process.
type Process interface {
	UptimeText() string
	RequestRestart()
}

// Handlers holds the Telegram handlers of the wallet bot.
type Handlers struct {
	conv     Conversation
	restarts RestartRecorder
	process  Process
}

// New builds the handlers. restarts and process may be nil when the debug commands are not
// registered.
func New(conv Conversation, restarts RestartRecorder, process Process) *Handlers {
	return &Handlers{conv: conv, restarts: restarts, process: process}
}

// Commands returns the command table for the registry.
func (h *Handlers) Commands() map[string]commands.Command {
	cmds := map[string]commands.Command{
		CommandStart: {Handler: h.Start, Description: "Open the wallet menu"},
	}
	if h.process != nil {
		cmds[CommandUptime] = commands.Command{
			Handler:     h.Uptime,
			Description: "Show how long the bot has been running",
			AdminOnly:   true,
		}
	}
	if h.process != nil && h.restarts != nil {
		cmds[CommandRestart] = commands.Command{
			Handler:     h.Restart,
			Description: "Restart the bot",
			AdminOnly:   true,
		}
	}
	return cmds
}

// Start opens the main menu or resumes the interrupted flow.
func (h *Handlers) Start(c tele.Context) error {
	userID, ok := sender(c)
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	reply, err := h.conv.Start(ctx, userID)
	return h.deliver(c, reply, err)
}

// Text feeds a free-text message into the conversation.
func (h *Handlers) Text(c tele.Context) error {
	userID, ok := sender(c)
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	reply, err := h.conv.Text(ctx, userID, c.Text())
	return h.deliver(c, reply, err)
}

// Select feeds an inline button press into the conversation. The button payload is the
// option token.
func (h *Handlers) Select(c tele.Context) error {
	userID, ok := sender(c)
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	reply, err := h.conv.Select(ctx, userID, callbacks.Payload(c))
	return h.deliver(c, reply, err)
}

// Uptime reports how long the process has been running.
func (h *Handlers) Uptime(c tele.Context) error {
	return tghelpers.SendText(c, h.process.UptimeText())
}

// Restart records the requesting chat, acknowledges, and asks the process to restart. The
// chat is told once the next process is up.
func (h *Handlers) Restart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	if err := h.restarts.RequestRestart(ctx, chat.ID); err != nil {
		if sendErr := tghelpers.SendText(c, FailureText); sendErr != nil {
			err = errors.Join(err, sendErr)
		}
		return fmt.Errorf("bot: restart: %w", err)
	}
	if err := tghelpers.SendText(c, restartingText); err != nil {
		return err
	}
	logger.Info(ctx, component, "restart.accepted",
		slog.String("status", "ok"),
		slog.Int64("chat_id", chat.ID),
	)
	h.process.RequestRestart()
	return nil
}

// deliver sends the reply, or the failure text when the conversation failed.
func (h *Handlers) deliver(c tele.Context, reply conversation.Reply, err error) error {
	if err != nil {
		if sendErr := tghelpers.SendText(c, FailureText); sendErr != nil {
			err = errors.Join(err, sendErr)
		}
		return err
	}
	return tghelpers.SendAll(c, Messages(reply)...)
}

// Messages renders a reply as Telegram messages: every notice as plain text, then the
// prompt with its options as an inline keyboard.
func Messages(reply conversation.Reply) []tghelpers.Message {
	msgs := make([]tghelpers.Message, 0, len(reply.Notices)+1)
	for _, n := range reply.Notices {
		msgs = append(msgs, tghelpers.Message{Text: n})
	}
	if reply.Prompt.Text == "" {
		return msgs
	}
	return append(msgs, tghelpers.Message{
		Text:   reply.Prompt.Text,
		Markup: Keyboard(reply.Prompt.Options),
	})
}

// Keyboard lays out one button per option; nil when there are none.
func Keyboard(opts []conversation.Option) *tele.ReplyMarkup {
	if len(opts) == 0 {
		return nil
	}
	btns := make([]keyboard.InlineBtn, 0, len(opts))
	for _, o := range opts {
		btns = append(btns, keyboard.InlineBtn{Text: o.Label, Unique: CallbackUnique, Data: o.Token})
	}
	return keyboard.InlineButtons(btns)
}

func sender(c tele.Context) (int64, bool) {
	u := c.Sender()
	if u == nil || u.IsBot {
		return 0, false
	}
	return u.ID, true
}
