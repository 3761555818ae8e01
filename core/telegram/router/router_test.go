package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/walletbot/core/telegram"
	"github.com/m3rciful/walletbot/core/telegram/callbacks"
	"github.com/m3rciful/walletbot/core/telegram/commands"
)

type answeringContext struct {
	tele.Context
	responded int
}

func (a *answeringContext) Respond(...*tele.CallbackResponse) error {
	a.responded++
	return nil
}

func newContext(t *testing.T, u tele.Update) *answeringContext {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return &answeringContext{Context: b.NewContext(u)}
}

func textFrom(id int64, text string) tele.Update {
	return tele.Update{ID: 3, Message: &tele.Message{
		Sender: &tele.User{ID: id},
		Chat:   &tele.Chat{ID: id},
		Text:   text,
	}}
}

func registry(t *testing.T, hits map[string]int) *tg.Registry {
	t.Helper()
	reg := tg.NewRegistry()
	handler := func(name string) tele.HandlerFunc {
		return func(tele.Context) error {
			hits[name]++
			return nil
		}
	}
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{
		Handler: handler("start"), Description: "Open the wallet menu", Aliases: []string{"/menu"},
	}))
	require.NoError(t, reg.RegisterCommand("/debug_restart", commands.Command{
		Handler: handler("restart"), Description: "Restart", AdminOnly: true, Aliases: []string{"/reboot"},
	}))
	require.NoError(t, reg.RegisterCallback("wallet", handler("wallet")))
	return reg
}

func routeFor(routes []tg.Route, endpoint any) tele.HandlerFunc {
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	return nil
}

func TestCommandRoutesGateAdminCommands(t *testing.T) {
	hits := map[string]int{}
	routes := CommandRoutes(registry(t, hits), CommandRouteOptions{AdminID: 9})
	require.Len(t, routes, 2)

	restart := routeFor(routes, "/debug_restart")
	require.NotNil(t, restart)
	require.NoError(t, restart(newContext(t, textFrom(1, "/debug_restart"))))
	assert.Zero(t, hits["restart"])
	require.NoError(t, restart(newContext(t, textFrom(9, "/debug_restart"))))
	assert.Equal(t, 1, hits["restart"])

	start := routeFor(routes, "/start")
	require.NotNil(t, start)
	require.NoError(t, start(newContext(t, textFrom(1, "/start"))))
	assert.Equal(t, 1, hits["start"])
}

func TestTextRoutesResolveAliases(t *testing.T) {
	hits := map[string]int{}
	var texts []string
	routes := TextRoutes(registry(t, hits), func(c tele.Context) error {
		texts = append(texts, c.Text())
		return nil
	})
	require.Len(t, routes, 1)
	h := routes[0].Handler

	require.NoError(t, h(newContext(t, textFrom(9, "/menu"))))
	assert.Equal(t, 1, hits["start"])

	// Admin aliases never bypass the admin gate.
	require.NoError(t, h(newContext(t, textFrom(9, "/reboot"))))
	assert.Zero(t, hits["restart"])

	require.NoError(t, h(newContext(t, textFrom(9, "100"))))
	assert.Equal(t, []string{"/reboot", "100"}, texts)
}

func TestCallbackRouteAnswersAndDispatches(t *testing.T) {
	hits := map[string]int{}
	route := CallbackRoute(registry(t, hits))

	c := newContext(t, tele.Update{ID: 4, Callback: &tele.Callback{
		Sender:  &tele.User{ID: 1},
		Message: &tele.Message{Chat: &tele.Chat{ID: 1}},
		Data:    callbacks.Encode("wallet", "deposit"),
	}})
	require.NoError(t, route.Handler(c))
	assert.Equal(t, 1, hits["wallet"])
	assert.Equal(t, 1, c.responded)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "INTERNAL", errorCode(assert.AnError))
	assert.Equal(t, "unknown", normalizeHandlerName(" "))
	assert.Equal(t, "debug_uptime", normalizeHandlerName("/Debug_Uptime"))
}
