package main

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-rtm/realtime"
)

func TestFormatEvent(t *testing.T) {
	who := names{"U1": "ann"}
	cases := []struct {
		ev   realtime.Event
		want string
	}{
		{realtime.MessageEvent{Message: realtime.Message{Channel: "C1", User: "U1", Text: "hi"}}, "[C1] <ann> hi"},
		{realtime.MessageEvent{Message: realtime.Message{Channel: "C1", User: "U9", Text: "yo"}}, "[C1] <U9> yo"},
		{realtime.MessageDeleted{TS: "9.1", Channel: "C2"}, "[C2] message 9.1 deleted"},
		{realtime.PresenceChange{User: "U1", Presence: realtime.PresenceActive}, "* ann is active"},
		{realtime.Reply{ID: 3, TS: "5"}, "* message 3 delivered at 5"},
		{realtime.UserTyping{Channel: "C1", User: "U1"}, "[C1] ann is typing"},
		{realtime.Diagnostic{Err: errors.New("eof")}, "* connection lost: eof"},
		{realtime.Marker{Tag: realtime.KindFileShared}, ""},
	}
	for _, tc := range cases {
		if got := formatEvent(tc.ev, who); got != tc.want {
			t.Errorf("%v: got %q, want %q", tc.ev.Kind(), got, tc.want)
		}
	}
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		want command
		err  bool
	}{
		{"C1 hello world", command{kind: cmdSend, channel: "C1", text: "hello world"}, false},
		{"  ", command{}, false},
		{"/status", command{kind: cmdStatus}, false},
		{"/recent", command{kind: cmdRecent}, false},
		{"/recent C1", command{kind: cmdRecent, channel: "C1"}, false},
		{"/history D1", command{kind: cmdHistory, channel: "D1"}, false},
		{"/quit", command{kind: cmdQuit}, false},
		{"/history", command{}, true},
		{"/bogus", command{}, true},
		{"C1", command{}, true},
	}
	for _, tc := range cases {
		got, err := parseCommand(tc.in)
		if (err != nil) != tc.err || got != tc.want {
			t.Errorf("%q: got %+v %v", tc.in, got, err)
		}
	}
}
