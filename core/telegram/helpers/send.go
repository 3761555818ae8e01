package helpers

import (
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/m3rciful/walletbot/core/logger"
	"github.com/m3rciful/walletbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

const (
	counterMessages = "messages"
	counterKeyboard = "kb"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

// Message is one outbound message. Markup may be nil.
type Message struct {
	Text   string
	Markup *tele.ReplyMarkup
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	msg := Message{Text: text}
	if len(markup) > 0 {
		msg.Markup = markup[0]
	}
	return SendAll(c, msg)
}

// SendAll sends msgs to the current chat in order as one dispatcher job. Without a
// dispatcher, or when its queue rejects the job, the messages are sent inline.
func SendAll(c tele.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	count(c, msgs)

	run := func() error {
		for _, m := range msgs {
			var err error
			if m.Markup != nil {
				err = c.Send(m.Text, m.Markup)
			} else {
				err = c.Send(m.Text)
			}
			if err != nil {
				return err
			}
		}
		return nil
	}

	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}
	ctx := BuildContext(c)
	_, chatID, _ := UpdateIdentity(c)
	err := disp.Enqueue(ctx, strconv.FormatInt(chatID, 10), "send.text", run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("status", "skip"),
			slog.Int("count", len(msgs)),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

func count(c tele.Context, msgs []Message) {
	n, _ := c.Get(counterMessages).(int)
	kb, _ := c.Get(counterKeyboard).(bool)
	for _, m := range msgs {
		n++
		kb = kb || m.Markup != nil
	}
	c.Set(counterMessages, n)
	c.Set(counterKeyboard, kb)
}

// Counters reports how many messages the handler sent and whether any carried a keyboard.
func Counters(c tele.Context) (int, bool) {
	n, _ := c.Get(counterMessages).(int)
	kb, _ := c.Get(counterKeyboard).(bool)
	return n, kb
}
