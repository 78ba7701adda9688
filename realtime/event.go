// Package realtime
// Author: momentics <momentics@gmail.com>
//
// Realtime messaging session: translation of inbound payloads into a closed
// set of domain events, the reconnecting read loop and outbound sends.
package realtime

import "fmt"

// Kind tags every domain event.
type Kind int

const (
	KindHello Kind = iota + 1
	KindMessage
	KindMessageChanged
	KindMessageDeleted
	KindPresenceChange
	KindTeamRename
	KindReply
	KindDesktopNotification
	KindUnknown
	KindUserTyping
	KindReconnectURL
	KindChannelMarked
	KindGroupMarked
	KindIMMarked
	KindMPIMMarked
	KindFileCreated
	KindFilePublic
	KindFileShared
	KindFileChange
	KindPrefChange
	KindReactionAdded
	KindUserChange
	KindDiagnostic
)

var kindNames = map[Kind]string{
	KindHello:               "hello",
	KindMessage:             "message",
	KindMessageChanged:      "message_changed",
	KindMessageDeleted:      "message_deleted",
	KindPresenceChange:      "presence_change",
	KindTeamRename:          "team_rename",
	KindReply:               "reply",
	KindDesktopNotification: "desktop_notification",
	KindUnknown:             "unknown",
	KindUserTyping:          "user_typing",
	KindReconnectURL:        "reconnect_url",
	KindChannelMarked:       "channel_marked",
	KindGroupMarked:         "group_marked",
	KindIMMarked:            "im_marked",
	KindMPIMMarked:          "mpim_marked",
	KindFileCreated:         "file_created",
	KindFilePublic:          "file_public",
	KindFileShared:          "file_shared",
	KindFileChange:          "file_change",
	KindPrefChange:          "pref_change",
	KindReactionAdded:       "reaction_added",
	KindUserChange:          "user_change",
	KindDiagnostic:          "diagnostic",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is one domain event. The set of implementations is closed.
type Event interface {
	Kind() Kind
	event()
}

// Message is a chat message as carried by message events.
type Message struct {
	TS      string
	Channel string
	User    string
	Text    string
}

// Presence is a user's availability.
type Presence int

const (
	PresenceAway Presence = iota
	PresenceActive
)

func (p Presence) String() string {
	if p == PresenceActive {
		return "active"
	}
	return "away"
}

type (
	Hello          struct{}
	MessageEvent   struct{ Message }
	MessageChanged struct{ Message }
	MessageDeleted struct {
		TS      string
		Channel string
	}
	PresenceChange struct {
		User     string
		Presence Presence
	}
	TeamRename struct{ Name string }
	// Reply acknowledges the outbound message sent with the same ID.
	Reply struct {
		ID int64
		TS string
	}
	DesktopNotification struct {
		Title    string
		Subtitle string
		Content  string
	}
	// Unknown carries an unrecognized type with its raw document.
	Unknown struct {
		Type string
		Raw  Document
	}
	UserTyping struct {
		Channel string
		User    string
	}
	// Marker is a recognized event that carries nothing but its kind.
	Marker struct{ Tag Kind }
	// Diagnostic reports a session fault; the client reconnects after it.
	Diagnostic struct{ Err error }
)

func (Hello) Kind() Kind               { return KindHello }
func (MessageEvent) Kind() Kind        { return KindMessage }
func (MessageChanged) Kind() Kind      { return KindMessageChanged }
func (MessageDeleted) Kind() Kind      { return KindMessageDeleted }
func (PresenceChange) Kind() Kind      { return KindPresenceChange }
func (TeamRename) Kind() Kind          { return KindTeamRename }
func (Reply) Kind() Kind               { return KindReply }
func (DesktopNotification) Kind() Kind { return KindDesktopNotification }
func (Unknown) Kind() Kind             { return KindUnknown }
func (UserTyping) Kind() Kind          { return KindUserTyping }
func (m Marker) Kind() Kind            { return m.Tag }
func (Diagnostic) Kind() Kind          { return KindDiagnostic }

func (Hello) event()               {}
func (MessageEvent) event()        {}
func (MessageChanged) event()      {}
func (MessageDeleted) event()      {}
func (PresenceChange) event()      {}
func (TeamRename) event()          {}
func (Reply) event()               {}
func (DesktopNotification) event() {}
func (Unknown) event()             {}
func (UserTyping) event()          {}
func (Marker) event()              {}
func (Diagnostic) event()          {}
