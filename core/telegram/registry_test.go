package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/walletbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Open the wallet menu"}))
	require.NoError(t, reg.RegisterCommand("/debug_uptime", commands.Command{Handler: noop, Description: "Uptime", AdminOnly: true}))
	require.NoError(t, reg.RegisterCommand("/help", commands.Command{Handler: noop, Description: "Help", Aliases: []string{"h"}}))

	assert.ErrorIs(t, reg.RegisterCommand("start", commands.Command{Handler: noop, Description: "x"}), ErrInvalidRegistration)
	assert.ErrorIs(t, reg.RegisterCommand("/nohandler", commands.Command{Description: "x"}), ErrInvalidRegistration)
	assert.Error(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "again"}))

	visible := reg.ListCommands(true)
	require.Len(t, visible, 2)
	assert.Equal(t, "/help", visible[0].Text)
	assert.Equal(t, "/start", visible[1].Text)
	assert.Len(t, reg.ListCommands(false), 3)

	key, _, ok := reg.LookupCommand("h")
	require.True(t, ok)
	assert.Equal(t, "/help", key)
	_, _, ok = reg.LookupCommand("/missing")
	assert.False(t, ok)
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("wallet", noop))
	assert.Error(t, reg.RegisterCallback("wallet", noop))
	assert.ErrorIs(t, reg.RegisterCallback("", noop), ErrInvalidRegistration)

	_, ok := reg.GetCallback("wallet")
	assert.True(t, ok)
	assert.Equal(t, []string{"wallet"}, reg.ListCallbacks())
	assert.NotNil(t, reg.CallbackNotFound())
}
