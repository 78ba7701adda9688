// File: cmd/slash/format.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"fmt"
	"strings"

	"github.com/momentics/hioload-rtm/realtime"
)

// names resolves user ids for display; unknown ids print as-is.
type names map[string]string

func (n names) of(id string) string {
	if v, ok := n[id]; ok && v != "" {
		return v
	}
	return id
}

// formatEvent renders ev as one terminal line. Empty means print nothing.
func formatEvent(ev realtime.Event, n names) string {
	switch v := ev.(type) {
	case realtime.Hello:
		return "* connected"
	case realtime.MessageEvent:
		return fmt.Sprintf("[%s] <%s> %s", v.Channel, n.of(v.User), v.Text)
	case realtime.MessageChanged:
		return fmt.Sprintf("[%s] <%s> %s (edited)", v.Channel, n.of(v.User), v.Text)
	case realtime.MessageDeleted:
		return fmt.Sprintf("[%s] message %s deleted", v.Channel, v.TS)
	case realtime.PresenceChange:
		return fmt.Sprintf("* %s is %s", n.of(v.User), v.Presence)
	case realtime.TeamRename:
		return fmt.Sprintf("* team renamed to %s", v.Name)
	case realtime.Reply:
		return fmt.Sprintf("* message %d delivered at %s", v.ID, v.TS)
	case realtime.DesktopNotification:
		return fmt.Sprintf("! %s %s: %s", v.Title, v.Subtitle, v.Content)
	case realtime.UserTyping:
		return fmt.Sprintf("[%s] %s is typing", v.Channel, n.of(v.User))
	case realtime.Diagnostic:
		return fmt.Sprintf("* connection lost: %v", v.Err)
	}
	return ""
}

type commandKind int

const (
	cmdNone commandKind = iota
	cmdSend
	cmdStatus
	cmdHistory
	cmdRecent
	cmdQuit
)

type command struct {
	kind    commandKind
	channel string
	text    string
}

// parseCommand reads one input line: "/status", "/history C1",
// "/recent [C1]", "/quit", or "C1 message text".
func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{}, nil
	}
	if strings.HasPrefix(line, "/") {
		verb, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch verb {
		case "/status":
			return command{kind: cmdStatus}, nil
		case "/quit":
			return command{kind: cmdQuit}, nil
		case "/recent":
			return command{kind: cmdRecent, channel: arg}, nil
		case "/history":
			if arg == "" {
				return command{}, fmt.Errorf("usage: /history CHANNEL")
			}
			return command{kind: cmdHistory, channel: arg}, nil
		}
		return command{}, fmt.Errorf("unknown command %s", verb)
	}
	channel, text, ok := strings.Cut(line, " ")
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		return command{}, fmt.Errorf("usage: CHANNEL text")
	}
	return command{kind: cmdSend, channel: channel, text: text}, nil
}
