package router

import (
	"strings"

	tg "github.com/m3rciful/walletbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// TextRoutes routes free text. Slash-prefixed aliases of registered commands are resolved
// through the registry; everything else goes to onText.
func TextRoutes(reg *tg.Registry, onText tele.HandlerFunc) []tg.Route {
	handler := func(c tele.Context) error {
		if text := c.Text(); reg != nil && strings.HasPrefix(text, "/") {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return handleWithSummary(c, "command."+normalizeHandlerName(key), func() error {
					return cmd.Handler(c)
				})
			}
		}
		if onText == nil {
			return handleWithSummary(c, "unknown_text", func() error { return nil })
		}
		return handleWithSummary(c, "text", func() error { return onText(c) })
	}
	return []tg.Route{{Endpoint: tele.OnText, Handler: handler}}
}
