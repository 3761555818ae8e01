// Package commands describes bot commands for the registry.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is one slash command. AdminOnly commands (the debug uptime and restart commands)
// are wrapped in the admin gate, left out of the published command menu and never reached
// through an alias typed as text. Hidden keeps a public command out of the menu.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}
